package cmd

import (
	"fmt"
	"sort"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/classifier"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/dataset"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the random forest and save the model artifact",
	Long: `Train fits the classifier on a feature table written by "extract" or
"generate-data". Without --dataset it trains on freshly generated
synthetic samples.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		datasetPath, _ := cmd.Flags().GetString("dataset")
		samples, _ := cmd.Flags().GetInt("samples")
		if samples <= 0 {
			samples = cfg.Model.SyntheticSamples
		}

		var X []features.Vector
		var y []int
		if datasetPath != "" {
			s, err := dataset.LoadSamples(datasetPath)
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}
			X, y = s.X, s.Labels
			log.Infow("Loaded dataset", "path", datasetPath, "samples", s.Len())
		} else {
			X, y = classifier.Generate(samples, cfg.Model.Seed)
			log.Infow("Generated synthetic dataset", "samples", len(X), "seed", cfg.Model.Seed)
		}

		a, err := classifier.Train(cmd.Context(), X, y, classifier.ParamsFrom(cfg.Model), log)
		if err != nil {
			return err
		}
		if err := classifier.SaveArtifact(cfg.Model.Path, a); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		m := a.Metrics
		fmt.Fprintf(out, "%s %s\n", color.GreenString("Model saved to"), cfg.Model.Path)
		fmt.Fprintf(out, "  train/test:  %d/%d\n", m.TrainSize, m.TestSize)
		fmt.Fprintf(out, "  accuracy:    %.4f\n", m.Accuracy)
		fmt.Fprintf(out, "  precision:   %.4f\n", m.Precision)
		fmt.Fprintf(out, "  recall:      %.4f\n", m.Recall)
		fmt.Fprintf(out, "  f1:          %.4f\n", m.F1)

		top, _ := cmd.Flags().GetInt("importance")
		if top > 0 {
			fmt.Fprintln(out, "  most important features:")
			for _, fi := range rankImportance(a, top) {
				fmt.Fprintf(out, "    %-24s %.4f\n", fi.name, fi.weight)
			}
		}
		return nil
	},
}

func init() {
	trainCmd.Flags().String("dataset", "", "feature table CSV to train on (default: synthetic samples)")
	trainCmd.Flags().Int("samples", 0, "number of synthetic samples (default: model.synthetic_samples)")
	trainCmd.Flags().Int("importance", 10, "print the N most important features")
	rootCmd.AddCommand(trainCmd)
}

type importance struct {
	name   string
	weight float64
}

func rankImportance(a *classifier.Artifact, n int) []importance {
	ranked := make([]importance, 0, len(a.FeatureNames))
	for i, name := range a.FeatureNames {
		if i < len(a.Forest.Importance) {
			ranked = append(ranked, importance{name: name, weight: a.Forest.Importance[i]})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].weight > ranked[j].weight })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
