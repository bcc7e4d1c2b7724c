package main

import (
	"os"

	"github.com/spf13/cobra"
)

type rootCmdConfig struct {
	verbose bool
}

func main() {
	if err := cliParser().Execute(); err != nil {
		os.Exit(1)
	}
}

func cliParser() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "sporf",
		Short: "sporf is a tool to train and pack sparse projection oblique randomized forests",
		Long:  `A tool to grow randomized decision forests from your data, pack them into a binned traversal-friendly layout, and use them to make predictions`,
	}
	config := &rootCmdConfig{}
	rootCmd.PersistentFlags().BoolVarP(&(config.verbose), "verbose", "v", false, "")
	rootCmd.AddCommand(versionCmd(), growCmd(config), packCmd(config), predictCmd(config))
	return rootCmd
}
