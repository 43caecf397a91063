package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"go-substack-watch/internal/export"
	"go-substack-watch/internal/logx"
	"go-substack-watch/internal/metrics"
	"go-substack-watch/internal/model"
	"go-substack-watch/internal/store"
	"go-substack-watch/internal/watch"
)

// openRunner builds a Runner over the configured store. done must be called afterwards.
func openRunner(ctx context.Context, a *app, exportPath string) (r *watch.Runner, done func(), err error) {
	cfg := a.cfg
	if len(cfg.Newsletters) == 0 {
		return nil, nil, errors.New("no NEWSLETTERS configured")
	}
	done = func() {}
	var sink watch.Store
	if !cfg.SimpleMode {
		st, err := store.OpenSQLite(cfg.Database.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		done = func() { _ = st.Close() }
		if cfg.ResetOnStart {
			if err := st.Reset(ctx); err != nil {
				logx.Warnf("reset database failed: %v", err)
			} else {
				logx.Infof("database reset")
			}
		}
		sink = st
	}
	if cfg.ResetOnStart && exportPath != "" {
		if err := os.Remove(exportPath); err == nil {
			logx.Infof("removed %s", exportPath)
		}
	}
	return watch.New(cfg, a.opts, sink).WithRecorder(a.metrics), done, nil
}

func newRunCmd() *cobra.Command {
	var exportPath string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect new posts from every configured newsletter once.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			r, closeStore, err := openRunner(cmd.Context(), a, exportPath)
			if err != nil {
				return err
			}
			defer closeStore()
			st, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			if a.cfg.SimpleMode {
				if err := export.ToJSONData(r.BufferData(), st, exportPath); err != nil {
					return fmt.Errorf("export json: %w", err)
				}
				logx.Infof("exported %s", exportPath)
			}
			fmt.Fprintf(a.out, "newsletters=%d failed=%d new posts=%d\n", st.Newsletters, st.NewslettersError, st.PostsNew)
			return nil
		},
	}
	cmd.Flags().StringVar(&exportPath, "export", "data.json", "export path when SIMPLE_MODE is on")
	return cmd
}

func newWatchCmd() *cobra.Command {
	var exportPath string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run once, then again on SCHEDULE until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a := appFrom(cmd)
			ctx := cmd.Context()
			r, closeStore, err := openRunner(ctx, a, exportPath)
			if err != nil {
				return err
			}
			defer closeStore()
			if a.cfg.MetricsAddr != "" {
				go serveMetrics(ctx, a, a.cfg.MetricsAddr)
			}

			job := watch.Job(r)
			if a.cfg.SimpleMode {
				job = exportingJob{r: r, path: exportPath}
			}
			if _, err := job.Run(ctx); err != nil {
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			return watch.Schedule(ctx, a.cfg.Schedule, job)
		},
	}
	cmd.Flags().StringVar(&exportPath, "export", "data.json", "export path when SIMPLE_MODE is on")
	return cmd
}

// exportingJob rewrites the export file after every simple-mode run.
type exportingJob struct {
	r    *watch.Runner
	path string
}

func (j exportingJob) Run(ctx context.Context) (st model.Stats, err error) {
	st, err = j.r.Run(ctx)
	if err != nil {
		return st, err
	}
	if err := export.ToJSONData(j.r.BufferData(), st, j.path); err != nil {
		logx.Errorf("export json: %v", err)
	}
	return st, nil
}

func serveMetrics(ctx context.Context, a *app, addr string) {
	srv := &http.Server{Addr: addr, Handler: metrics.Handler(a.reg), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logx.Infof("metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logx.Errorf("metrics server: %v", err)
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <path>",
		Short: "Write the newest stored posts to a JSON file.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := appFrom(cmd)
			st, err := store.OpenSQLite(a.cfg.Database.DSN)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			defer st.Close()
			if err := export.ToJSON(cmd.Context(), st, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "exported %s\n", args[0])
			return nil
		},
	}
}
