package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const (
	// VersionMajor is the major number in sporf's version
	VersionMajor = 0
	// VersionMinor is the minor number in sporf's version
	VersionMinor = 1
	// VersionPatch is the patch number in sporf's version
	VersionPatch = 0
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sporf",
		Long:  `All software has versions. This is sporf's`,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("sporf v%d.%d.%d\n", VersionMajor, VersionMinor, VersionPatch)
		},
	}
}
