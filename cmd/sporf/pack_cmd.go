package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/MaiRajborirug/SPORF/dataset"
	"github.com/MaiRajborirug/SPORF/forest"
	"github.com/MaiRajborirug/SPORF/pack"
	"github.com/spf13/cobra"
)

type packCmdConfig struct {
	*rootCmdConfig
	forestInput string
	output      string
	numBins     int
	dataInput   string
	labelColumn int
	ctx         context.Context
	cancelFunc  context.CancelFunc
}

func packCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &packCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "pack",
		Short: "Pack a grown forest for traversal",
		Long:  `Pack a grown forest into a binned flat layout that a prediction engine can traverse without chasing pointers. Supplying the training data lets the packer order each bin by traversal frequency, keeping hot paths close together.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			f, err := loadForest(config.forestInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			var ds *dataset.Dataset
			if config.dataInput != "" {
				config.Logf("Opening %s to read traversal statistics data...", config.dataInput)
				ds, err = dataset.ReadCSVFile(config.dataInput, config.labelColumn)
				if err != nil {
					fmt.Fprintln(os.Stderr, err)
					os.Exit(3)
				}
			}
			config.Logf("Packing %d trees with %d nodes into %d bins...",
				f.NumTrees(), f.NumNodes(), config.numBins)
			pf, err := pack.Pack(config.Context(), f, config.output, pack.Options{
				NumBins: config.numBins,
				Dataset: ds,
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "packing the forest: %v\n", err)
				os.Exit(4)
			}
			config.Logf("Done")
			config.Logf("Packed forest with %d trees across %d bins written to %s",
				pf.NumTrees(), len(pf.Bins), config.output)
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.forestInput), "forest", "f", "", "path to a file from which the forest to pack will be read and parsed as JSON (required)")
	cmd.PersistentFlags().StringVarP(&(config.output), "output", "o", "forest.out", "path to which the packed forest will be written")
	cmd.PersistentFlags().IntVarP(&(config.numBins), "bins", "b", runtime.NumCPU(), "number of tree bins in the packed layout (defaults to the number of CPUs)")
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "data", "d", "", "path to a CSV file with the training data, used to order each bin by traversal frequency")
	cmd.PersistentFlags().IntVarP(&(config.labelColumn), "label-column", "c", -1, "index of the column with the class labels on the data file (required with data)")
	return cmd
}

func (pcc *packCmdConfig) Validate() error {
	if pcc.forestInput == "" {
		return fmt.Errorf("required forest flag was not set")
	}
	if pcc.numBins < 1 {
		return fmt.Errorf("bins flag must be at least 1")
	}
	if pcc.dataInput != "" && pcc.labelColumn < 0 {
		return fmt.Errorf("required label-column flag was not set")
	}
	return nil
}

func (pcc *packCmdConfig) Context() context.Context {
	if pcc.ctx == nil {
		pcc.ctx, pcc.cancelFunc = context.WithCancel(context.Background())
	}
	return pcc.ctx
}

func loadForest(filepath string) (*forest.Forest, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, fmt.Errorf("reading forest in JSON from %s: %v", filepath, err)
	}
	defer f.Close()
	fst, err := forest.ReadJSON(f)
	if err != nil {
		err = fmt.Errorf("parsing forest in JSON from %s: %v", filepath, err)
	}
	return fst, err
}
