package main

import (
	"fmt"
	"os"

	"github.com/MaiRajborirug/SPORF/dataset"
	"github.com/MaiRajborirug/SPORF/pack"
	"github.com/spf13/cobra"
)

type predictCmdConfig struct {
	*rootCmdConfig
	packedInput string
	dataInput   string
	labelColumn int
}

func predictCmd(rootConfig *rootCmdConfig) *cobra.Command {
	config := &predictCmdConfig{rootCmdConfig: rootConfig}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict class labels for a set of samples",
		Long:  `Traverse a packed forest with a set of samples and print the majority-vote class label for each, one per line. When the input carries a label column, the prediction accuracy is also reported.`,
		Run: func(cmd *cobra.Command, args []string) {
			err := config.Validate()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(1)
			}
			pf, err := pack.Open(config.packedInput)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(2)
			}
			x, y, err := config.samples()
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				os.Exit(3)
			}
			config.Logf("Predicting labels for %d samples with a packed forest of %d trees...",
				len(x), pf.NumTrees())
			labels, err := pf.Predict(x)
			if err != nil {
				fmt.Fprintf(os.Stderr, "predicting: %v\n", err)
				os.Exit(4)
			}
			for _, label := range labels {
				fmt.Println(label)
			}
			if y != nil {
				var hits int
				for i, label := range labels {
					if label == y[i] {
						hits++
					}
				}
				fmt.Fprintf(os.Stderr, "%f success rate over %d samples\n",
					float64(hits)/float64(len(y)), len(y))
			}
		},
	}
	cmd.PersistentFlags().StringVarP(&(config.packedInput), "packed-forest", "p", "", "path to a packed forest file to traverse (required)")
	cmd.PersistentFlags().StringVarP(&(config.dataInput), "input", "i", "", "path to an input CSV file with samples to predict (defaults to STDIN)")
	cmd.PersistentFlags().IntVarP(&(config.labelColumn), "label-column", "c", -1, "index of a column with the true class labels, used to report accuracy (defaults to -1: no labels)")
	return cmd
}

func (pcc *predictCmdConfig) Validate() error {
	if pcc.packedInput == "" {
		return fmt.Errorf("required packed-forest flag was not set")
	}
	return nil
}

/*
samples reads the feature matrix to predict labels for, and the true
labels when the input carries a label column.
*/
func (pcc *predictCmdConfig) samples() ([][]float64, []int, error) {
	f := os.Stdin
	if pcc.dataInput != "" {
		pcc.Logf("Opening %s to read samples...", pcc.dataInput)
		var err error
		f, err = os.Open(pcc.dataInput)
		if err != nil {
			return nil, nil, fmt.Errorf("opening samples at %s: %v", pcc.dataInput, err)
		}
		defer f.Close()
	} else {
		pcc.Logf("Reading samples from STDIN...")
	}
	if pcc.labelColumn < 0 {
		x, err := dataset.ReadCSVMatrix(f)
		if err != nil {
			return nil, nil, fmt.Errorf("reading samples: %v", err)
		}
		return x, nil, nil
	}
	ds, err := dataset.ReadCSV(f, pcc.labelColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("reading samples: %v", err)
	}
	return ds.X, ds.Y, nil
}
