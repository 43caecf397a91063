// Package export writes collected posts as an indented JSON file.
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"go-substack-watch/internal/model"
)

// maxExportPosts caps the file at the newest posts.
const maxExportPosts = 200

// Lister is the read side of the store. *store.SQLite satisfies it.
type Lister interface {
	List(ctx context.Context, limit int) ([]model.Post, error)
}

// ToJSON writes the newest stored posts to path.
func ToJSON(ctx context.Context, s Lister, path string) error {
	posts, err := s.List(ctx, maxExportPosts)
	if err != nil {
		return fmt.Errorf("list posts: %w", err)
	}
	st := model.Stats{PostsTotal: len(posts), UpdatedAt: time.Now()}
	return write(path, model.Export{Stats: st, Posts: posts})
}

func write(path string, out model.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode json to %s: %w", path, err)
	}
	return nil
}
