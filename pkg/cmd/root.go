// Package cmd holds the urldetector command tree.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/csaibalakrishna/URL-DETECTOR/pkg/analyzer"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/classifier"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/config"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/extractor"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/logger"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "URLDETECTOR"

var (
	cfg     *config.Config
	log     *logger.Logger
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "urldetector",
	Short: "Phishing URL detection with explainable features",
	Long: `urldetector scores URLs as legitimate, suspicious or phishing.

Every analysis extracts a fixed set of lexical, DNS, WHOIS, TLS and page
content features, scores them with a random forest (or a rule-based
fallback when no model is available) and explains each feature.

Run "urldetector train" once to build the model artifact. Without it,
analyze and extract score with the rule-based fallback and mark results
as degraded, while serve trains and saves a synthetic model on first
start unless --train-if-missing=false is given.

Examples:
  urldetector analyze https://www.wikipedia.org
  urldetector analyze --json http://192.168.1.1/login.php
  urldetector train --dataset data/features.csv
  urldetector extract --phishtank verified_online.csv --output data/features.csv
  urldetector serve --addr :8080`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd, cfgFile)
		if err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		log, err = logger.New(cfg.Logger)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			// stderr sync fails with EINVAL on Linux
			_ = log.Sync()
		}
	},
}

// Execute runs the command tree. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./urldetector.yaml or ~/.urldetector/urldetector.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "log format (json, console)")
	rootCmd.PersistentFlags().String("model", "", "path to the model artifact")
	rootCmd.PersistentFlags().Bool("no-network", false, "disable DNS, WHOIS, TLS and page fetch probes")
}

// loadConfig layers flags over URLDETECTOR_* environment variables over the
// config file over config.Default().
func loadConfig(cmd *cobra.Command, file string) (*config.Config, error) {
	// A missing .env is normal.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, config.Default())

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("urldetector")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home + "/.urldetector")
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	flags := cmd.Flags()
	for key, name := range map[string]string{
		"logger.level":  "log-level",
		"logger.format": "log-format",
		"model.path":    "model",
	} {
		if f := flags.Lookup(name); f != nil && f.Changed {
			v.Set(key, f.Value.String())
		}
	}
	if f := flags.Lookup("no-network"); f != nil && f.Changed && f.Value.String() == "true" {
		v.Set("probes.enabled", false)
	}
	// Only serve registers this flag, and its default applies even when
	// the flag is not given.
	if flags.Lookup("train-if-missing") != nil {
		on, _ := flags.GetBool("train-if-missing")
		v.Set("model.train_if_missing", on)
	}

	c := &config.Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper, d *config.Config) {
	v.SetDefault("logger.level", d.Logger.Level)
	v.SetDefault("logger.format", d.Logger.Format)
	v.SetDefault("logger.output_paths", d.Logger.OutputPaths)

	v.SetDefault("probes.enabled", d.Probes.Enabled)
	v.SetDefault("probes.dns_server", d.Probes.DNSServer)
	v.SetDefault("probes.dns_timeout", d.Probes.DNSTimeout)
	v.SetDefault("probes.whois_timeout", d.Probes.WhoisTimeout)
	v.SetDefault("probes.tls_timeout", d.Probes.TLSTimeout)
	v.SetDefault("probes.fetch_timeout", d.Probes.FetchTimeout)
	v.SetDefault("probes.total_budget", d.Probes.TotalBudget)
	v.SetDefault("probes.max_body_bytes", d.Probes.MaxBodyBytes)
	v.SetDefault("probes.max_redirects", d.Probes.MaxRedirects)
	v.SetDefault("probes.block_private_targets", d.Probes.BlockPrivateTargets)
	v.SetDefault("probes.insecure_fetch", d.Probes.InsecureFetch)
	v.SetDefault("probes.user_agent", d.Probes.UserAgent)

	v.SetDefault("lexical.suspicious_tokens", d.Lexical.SuspiciousTokens)
	v.SetDefault("lexical.shorteners", d.Lexical.Shorteners)
	v.SetDefault("lexical.abused_tlds", d.Lexical.AbusedTLDs)

	v.SetDefault("model.path", d.Model.Path)
	v.SetDefault("model.low_threshold", d.Model.LowThreshold)
	v.SetDefault("model.high_threshold", d.Model.HighThreshold)
	v.SetDefault("model.train_if_missing", d.Model.TrainIfMissing)
	v.SetDefault("model.trees", d.Model.Trees)
	v.SetDefault("model.max_depth", d.Model.MaxDepth)
	v.SetDefault("model.min_samples_split", d.Model.MinSamplesSplit)
	v.SetDefault("model.seed", d.Model.Seed)
	v.SetDefault("model.synthetic_samples", d.Model.SyntheticSamples)

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.rate_limit", d.Server.RateLimit)
	v.SetDefault("server.rate_burst", d.Server.RateBurst)

	v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.dial_timeout", d.Cache.DialTimeout)
}

// newPipeline builds the analyzer shared by analyze and serve.
func newPipeline(ctx context.Context) (*analyzer.Analyzer, *classifier.Classifier) {
	clf := classifier.Shared(ctx, cfg.Model, log)
	ex := extractor.New(extractor.NewProbes(cfg.Probes), extractor.OptionsFrom(cfg.Probes, cfg.Lexical), log)
	return analyzer.New(ex, clf, log), clf
}
