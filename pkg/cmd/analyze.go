package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/analyzer"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/classifier"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errRejected = errors.New("one or more URLs were rejected")

var analyzeCmd = &cobra.Command{
	Use:   "analyze <url> [url...]",
	Short: "Analyze one or more URLs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		verbose, _ := cmd.Flags().GetBool("features")

		a, _ := newPipeline(cmd.Context())
		out := cmd.OutOrStdout()

		var rejected bool
		var results []*analyzer.Result
		for _, raw := range args {
			res, err := a.Analyze(cmd.Context(), raw)
			if err != nil {
				rejected = true
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", color.RedString("✗"), raw, err)
				continue
			}
			if asJSON {
				results = append(results, res)
				continue
			}
			printResult(out, res, verbose)
		}

		if asJSON && len(results) > 0 {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			var v any = results
			if len(results) == 1 {
				v = results[0]
			}
			if err := enc.Encode(v); err != nil {
				return fmt.Errorf("failed to encode results: %w", err)
			}
		}
		if rejected {
			return errRejected
		}
		return nil
	},
}

func init() {
	analyzeCmd.Flags().Bool("json", false, "print results as JSON")
	analyzeCmd.Flags().Bool("features", false, "list every feature, not only the top contributors")
	rootCmd.AddCommand(analyzeCmd)
}

func labelColor(l classifier.Label) *color.Color {
	switch l {
	case classifier.LabelPhishing:
		return color.New(color.FgRed, color.Bold)
	case classifier.LabelSuspicious:
		return color.New(color.FgYellow, color.Bold)
	case classifier.LabelLegitimate:
		return color.New(color.FgGreen, color.Bold)
	default:
		return color.New(color.FgWhite)
	}
}

func printResult(w io.Writer, res *analyzer.Result, allFeatures bool) {
	fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint(res.NormalizedURL))
	fmt.Fprintf(w, "  Verdict:     %s\n", labelColor(res.Label).Sprint(res.Label))
	if res.Error != "" {
		fmt.Fprintf(w, "  Error:       %s\n", color.RedString(res.Error))
	} else {
		fmt.Fprintf(w, "  Risk:        %d/100 (%s)\n", res.RiskScore, res.RiskLevel)
		fmt.Fprintf(w, "  Confidence:  %.0f%%\n", res.Confidence*100)
	}
	fmt.Fprintf(w, "  Model:       %s\n", res.Model)
	if res.DegradedMode {
		for _, reason := range res.DegradedReasons {
			fmt.Fprintf(w, "  %s %s\n", color.YellowString("degraded:"), reason)
		}
	}

	if len(res.TopFeatures) > 0 {
		fmt.Fprintln(w, "  Top signals:")
		for _, c := range res.TopFeatures {
			entry, _ := res.Explanation.Lookup(c.Name)
			fmt.Fprintf(w, "    %-24s %s\n", c.Name, entry.Interpretation)
		}
	}

	if allFeatures {
		fmt.Fprintln(w, "  Features:")
		for _, e := range res.Explanation {
			line := fmt.Sprintf("    %-24s %-10g %s", e.Name, e.Value, e.Interpretation)
			if !e.Available {
				line = color.HiBlackString(line)
			}
			fmt.Fprintln(w, line)
		}
	}
}

// exitCode maps command errors to process exit codes.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errRejected):
		return 2
	default:
		return 1
	}
}

// Exit runs the command tree and exits the process.
func Exit() {
	os.Exit(exitCode(Execute()))
}
