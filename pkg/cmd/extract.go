package cmd

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/analyzer"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/dataset"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/extractor"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/features"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract features for seed URLs and append them to a dataset",
	Long: `Extract runs the full feature extractor over a list of seed URLs and
appends one labeled row per URL to a feature table for "train".

Seeds come from exactly one of:
  --url        a single URL
  --urls       a text file with one URL per line
  --labeled    a CSV of url,label rows
  --phishtank  a PhishTank export (verified and online rows only)

--label sets the class for --url and --urls.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		seeds, err := seedsFromFlags(cmd)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")
		workers, _ := cmd.Flags().GetInt("workers")
		skipOffline, _ := cmd.Flags().GetBool("skip-offline")

		w, err := dataset.NewWriter(output)
		if err != nil {
			return err
		}

		ex := extractor.New(extractor.NewProbes(cfg.Probes), extractor.OptionsFrom(cfg.Probes, cfg.Lexical), log)
		stats, runErr := runExtraction(cmd.Context(), seeds, ex, w, extractSettings{
			Workers:     workers,
			JobTimeout:  cfg.Probes.TotalBudget + 5*time.Second,
			SkipOffline: skipOffline,
		}, log)
		if err := w.Close(); err != nil && runErr == nil {
			runErr = err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s %d rows to %s (%d invalid, %d offline skipped, %d duplicates)\n",
			color.GreenString("Wrote"), stats.Written, output, stats.Invalid, stats.Offline, stats.Duplicates)
		return runErr
	},
}

func init() {
	extractCmd.Flags().String("url", "", "a single URL to extract")
	extractCmd.Flags().String("urls", "", "file with one URL per line")
	extractCmd.Flags().String("labeled", "", "CSV file of url,label rows")
	extractCmd.Flags().String("phishtank", "", "PhishTank CSV export")
	extractCmd.Flags().String("label", "phishing", "label for --url and --urls (phishing or legitimate)")
	extractCmd.Flags().StringP("output", "o", "features.csv", "dataset CSV to append to")
	extractCmd.Flags().IntP("workers", "w", 20, "number of concurrent workers")
	extractCmd.Flags().Bool("skip-offline", false, "drop URLs for which every network probe failed")
	rootCmd.AddCommand(extractCmd)
}

func seedsFromFlags(cmd *cobra.Command) ([]dataset.Seed, error) {
	single, _ := cmd.Flags().GetString("url")
	urlsFile, _ := cmd.Flags().GetString("urls")
	labeledFile, _ := cmd.Flags().GetString("labeled")
	phishtankFile, _ := cmd.Flags().GetString("phishtank")
	labelFlag, _ := cmd.Flags().GetString("label")

	set := 0
	for _, s := range []string{single, urlsFile, labeledFile, phishtankFile} {
		if s != "" {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of --url, --urls, --labeled or --phishtank is required")
	}

	switch {
	case phishtankFile != "":
		log.Infow("Reading PhishTank export", "path", phishtankFile)
		return dataset.ReadPhishTank(phishtankFile)
	case labeledFile != "":
		log.Infow("Reading labeled URLs", "path", labeledFile)
		return dataset.ReadLabeledURLs(labeledFile)
	}

	label, err := dataset.ParseLabel(labelFlag)
	if err != nil {
		return nil, err
	}
	if single != "" {
		return []dataset.Seed{{URL: single, Label: label}}, nil
	}
	log.Infow("Reading URL list", "path", urlsFile, "label", labelFlag)
	urls, err := dataset.ReadURLs(urlsFile)
	if err != nil {
		return nil, err
	}
	seeds := make([]dataset.Seed, 0, len(urls))
	for _, u := range urls {
		seeds = append(seeds, dataset.Seed{URL: u, Label: label})
	}
	return seeds, nil
}

type rowWriter interface {
	WriteRow(rawURL string, v features.Vector, label int) error
}

type extractSettings struct {
	Workers     int
	JobTimeout  time.Duration
	SkipOffline bool
}

type extractStats struct {
	Written    int
	Invalid    int
	Offline    int
	Duplicates int
}

type extractJob struct {
	url   string
	label int
}

type extractResult struct {
	job        extractJob
	normalized string
	x          extractor.Extraction
	err        error
}

// visitedSet deduplicates seeds by normalized URL.
type visitedSet struct {
	m  map[string]bool
	mu sync.Mutex
}

// checkAndAdd reports whether url is new, marking it visited.
func (v *visitedSet) checkAndAdd(url string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.m[url] {
		return false
	}
	v.m[url] = true
	return true
}

func extractWorker(id int, ex analyzer.FeatureExtractor, timeout time.Duration, jobs <-chan extractJob, results chan<- extractResult, wg *sync.WaitGroup, log *logger.Logger) {
	defer wg.Done()
	for job := range jobs {
		u, err := analyzer.ParseURL(job.url)
		if err != nil {
			results <- extractResult{job: job, err: err}
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		x := ex.Run(ctx, u)
		cancel()

		log.Debugw("Extracted", "worker", id, "url", u.String(), "failed_probes", len(x.Failed))
		results <- extractResult{job: job, normalized: u.String(), x: x}
	}
}

// runExtraction fans seeds out to a worker pool and writes rows as results
// arrive. Writing happens on the calling goroutine only.
func runExtraction(ctx context.Context, seeds []dataset.Seed, ex analyzer.FeatureExtractor, w rowWriter, s extractSettings, log *logger.Logger) (extractStats, error) {
	if log == nil {
		log = logger.Nop()
	}
	if s.Workers < 1 {
		s.Workers = 1
	}

	var stats extractStats
	visited := &visitedSet{m: make(map[string]bool)}
	var queue []extractJob
	for _, seed := range seeds {
		key := seed.URL
		if u, err := analyzer.ParseURL(seed.URL); err == nil {
			key = u.String()
		}
		if !visited.checkAndAdd(key) {
			stats.Duplicates++
			continue
		}
		queue = append(queue, extractJob{url: seed.URL, label: seed.Label})
	}

	jobs := make(chan extractJob)
	results := make(chan extractResult)
	var wg sync.WaitGroup

	wg.Add(s.Workers)
	for id := 1; id <= s.Workers; id++ {
		go extractWorker(id, ex, s.JobTimeout, jobs, results, &wg, log)
	}

	go func() {
		defer close(jobs)
		for _, job := range queue {
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	log.Infow("Extraction started", "seeds", len(queue), "workers", s.Workers)

	var writeErr error
	for res := range results {
		switch {
		case res.err != nil:
			stats.Invalid++
			log.Warnw("Skipping invalid seed", "url", res.job.url, "error", res.err)
		case s.SkipOffline && res.x.NetworkDown():
			stats.Offline++
			log.Infow("Skipping offline URL", "url", res.normalized, "failed", res.x.Failed)
		case writeErr != nil:
			// keep draining so the workers can exit
		default:
			if err := w.WriteRow(res.normalized, res.x.Vector, res.job.label); err != nil {
				writeErr = fmt.Errorf("failed to write row for %s: %w", res.normalized, err)
				continue
			}
			stats.Written++
		}
	}

	log.Infow("Extraction finished",
		"written", stats.Written,
		"invalid", stats.Invalid,
		"offline", stats.Offline,
		"duplicates", stats.Duplicates)

	if writeErr != nil {
		return stats, writeErr
	}
	return stats, ctx.Err()
}
