// Package cli is the command-line front end: one-off queries against the platform
// plus the run/watch collection loop.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"go-substack-watch/internal/auth"
	"go-substack-watch/internal/config"
	"go-substack-watch/internal/fetch"
	"go-substack-watch/internal/logx"
	"go-substack-watch/internal/metrics"
	"go-substack-watch/internal/substack"
)

// app is what every command works with, built once before the command runs.
type app struct {
	cfg     *config.Config
	opts    substack.Options
	reg     *prometheus.Registry
	metrics *metrics.Collector
	out     io.Writer
}

type appKey struct{}

func appFrom(cmd *cobra.Command) *app {
	return cmd.Context().Value(appKey{}).(*app)
}

type rootFlags struct {
	configPath  string
	cookiesPath string
	logLevel    string
	platformURL string
}

// NewRootCmd builds the full command tree.
func NewRootCmd() *cobra.Command {
	var f rootFlags
	root := &cobra.Command{
		Use:           "substack-watch",
		Short:         "Read newsletters, posts, profiles and categories from Substack, and watch newsletters for new posts.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			a, err := setup(cmd, f)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey{}, a))
			return nil
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", "settings.yaml", "path to settings.yaml (optional)")
	pf.StringVar(&f.cookiesPath, "cookies", "", "JSON cookie export to authenticate with (overrides COOKIES_PATH)")
	pf.StringVar(&f.logLevel, "log-level", "", "debug|info|warn|error|silent (overrides LOG_LEVEL)")
	pf.StringVar(&f.platformURL, "platform-url", substack.DefaultPlatformURL, "base URL of the platform-wide API")

	root.AddCommand(
		newPostsCmd(),
		newPostCmd(),
		newAuthorsCmd(),
		newRecommendationsCmd(),
		newFeedCmd(),
		newSearchCmd(),
		newProfileCmd(),
		newCategoriesCmd(),
		newCategoryCmd(),
		newRunCmd(),
		newWatchCmd(),
		newExportCmd(),
	)
	return root
}

// ExecuteContext runs the command tree and exits non-zero on failure.
func ExecuteContext(ctx context.Context) {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup(cmd *cobra.Command, f rootFlags) (*app, error) {
	cfg, err := loadConfig(cmd, f.configPath)
	if err != nil {
		return nil, err
	}
	if f.cookiesPath != "" {
		cfg.CookiesPath = f.cookiesPath
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	logx.InitWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat, cfg.LogColor)

	reg := prometheus.NewRegistry()
	col := metrics.NewCollector(reg)
	cl, err := fetch.New(fetch.Options{
		ProxyHTTP:  cfg.Proxy.HTTP,
		ProxyHTTPS: cfg.Proxy.HTTPS,
		Timeout:    cfg.RequestTimeout.Std(),
		Observer:   col,
	})
	if err != nil {
		return nil, fmt.Errorf("http client: %w", err)
	}
	opts := substack.Options{
		Client:           cl,
		PlatformURL:      f.platformURL,
		PageDelay:        cfg.PageDelay.Std(),
		MaxCategoryPages: cfg.MaxCategoryPages,
	}
	if cfg.CookiesPath != "" {
		opts.Auth = auth.FromFile(cl, cfg.CookiesPath)
	}
	return &app{cfg: cfg, opts: opts, reg: reg, metrics: col, out: cmd.OutOrStdout()}, nil
}

// loadConfig reads the settings file. A missing file is fine unless it was asked for.
func loadConfig(cmd *cobra.Command, path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if errors.Is(err, os.ErrNotExist) && !cmd.Flags().Changed("config") {
		return config.Default()
	}
	return nil, err
}
