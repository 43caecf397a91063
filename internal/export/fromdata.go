package export

import (
	"go-substack-watch/internal/model"
)

// ToJSONData writes in-memory posts and the run's stats to path, newest posts first.
func ToJSONData(posts []model.Post, st model.Stats, path string) error {
	if len(posts) > maxExportPosts {
		posts = posts[:maxExportPosts]
	}
	st.PostsTotal = len(posts)
	if posts == nil {
		posts = []model.Post{}
	}
	return write(path, model.Export{Stats: st, Posts: posts})
}
