// Command substack-watch reads newsletters, posts, profiles and categories from
// Substack and keeps a local store of new posts:
// - one-off queries print tables (posts, post, profile, category, ...)
// - run collects once; watch collects on a cron schedule and serves /metrics
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go-substack-watch/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cli.ExecuteContext(ctx)
}
