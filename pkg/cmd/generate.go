package cmd

import (
	"fmt"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/classifier"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/dataset"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate-data",
	Short: "Write a synthetic labeled feature table",
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")
		samples, _ := cmd.Flags().GetInt("samples")
		seed, _ := cmd.Flags().GetInt64("seed")
		if samples <= 0 {
			samples = cfg.Model.SyntheticSamples
		}

		w, err := dataset.NewWriter(output)
		if err != nil {
			return err
		}

		X, y := classifier.Generate(samples, seed)
		phishing := 0
		for i := range X {
			if err := w.WriteRow("", X[i], y[i]); err != nil {
				_ = w.Close()
				return fmt.Errorf("failed to write row %d: %w", i, err)
			}
			phishing += y[i]
		}
		if err := w.Close(); err != nil {
			return err
		}

		log.Infow("Synthetic dataset written", "path", output, "samples", len(X), "phishing", phishing)
		fmt.Fprintf(cmd.OutOrStdout(), "%s %d samples (%d phishing) to %s\n",
			color.GreenString("Wrote"), len(X), phishing, output)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringP("output", "o", "training_data.csv", "output CSV path (appended to if it exists)")
	generateCmd.Flags().Int("samples", 0, "number of samples (default: model.synthetic_samples)")
	generateCmd.Flags().Int64("seed", 42, "random seed")
	rootCmd.AddCommand(generateCmd)
}
