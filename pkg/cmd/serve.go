package cmd

import (
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/cache"
	"github.com/csaibalakrishna/URL-DETECTOR/pkg/server"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}

		a, clf := newPipeline(cmd.Context())

		var c server.Cache
		if cfg.Cache.RedisAddr != "" {
			rc, err := cache.NewRedisCache(cfg.Cache, log)
			if err != nil {
				log.Warnw("Result cache disabled", "addr", cfg.Cache.RedisAddr, "error", err)
			} else {
				defer rc.Close()
				c = rc
				log.Infow("Result cache enabled", "addr", cfg.Cache.RedisAddr, "ttl", cfg.Cache.TTL)
			}
		}

		return server.New(cfg.Server, a, clf, c, log).Run(cmd.Context())
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: server.addr)")
	serveCmd.Flags().Bool("train-if-missing", true, "train and save a synthetic model when the artifact is missing or corrupt")
	rootCmd.AddCommand(serveCmd)
}
