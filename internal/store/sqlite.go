// Package store keeps collected posts in SQLite so a watch run only fetches what is new.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"go-substack-watch/internal/model"
)

// SQLite wraps *sql.DB on modernc.org/sqlite.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens dsn (a file path or "file:" URI) and migrates it.
func OpenSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dsn, err)
	}
	db.SetMaxOpenConns(1)
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Reset deletes every stored post; the file itself is kept.
func (s *SQLite) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM posts`); err != nil {
		return fmt.Errorf("delete posts: %w", err)
	}
	return nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS posts (
            url TEXT PRIMARY KEY,
            newsletter TEXT NOT NULL,
            title TEXT,
            subtitle TEXT,
            author TEXT,
            audience TEXT,
            published_at TIMESTAMP,
            text TEXT,
            paywalled INTEGER NOT NULL DEFAULT 0,
            fetched_at TIMESTAMP,
            run_id TEXT
        );`,
		`CREATE INDEX IF NOT EXISTS posts_published ON posts(published_at DESC);`,
	}
	for _, q := range stmts {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("exec migrate: %w", err)
		}
	}
	return nil
}

// Exists reports whether url was stored before.
func (s *SQLite) Exists(ctx context.Context, url string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE url = ?`, url).Scan(&one)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("lookup post %s: %w", url, err)
	}
	return true, nil
}

// Save inserts or replaces a post keyed on its url.
func (s *SQLite) Save(ctx context.Context, p model.Post) error {
	if p.URL == "" {
		return errors.New("post.url required")
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO posts(url, newsletter, title, subtitle, author, audience, published_at, text, paywalled, fetched_at, run_id)
        VALUES(?,?,?,?,?,?,?,?,?,?,?)
        ON CONFLICT(url) DO UPDATE SET newsletter=excluded.newsletter, title=excluded.title, subtitle=excluded.subtitle,
            author=excluded.author, audience=excluded.audience, published_at=excluded.published_at, text=excluded.text,
            paywalled=excluded.paywalled, fetched_at=excluded.fetched_at, run_id=excluded.run_id`,
		p.URL, p.Newsletter, p.Title, p.Subtitle, p.Author, p.Audience, p.PublishedAt, p.Text, p.Paywalled, nowOr(p.FetchedAt), p.RunID)
	if err != nil {
		return fmt.Errorf("save post %s: %w", p.URL, err)
	}
	return nil
}

// List returns stored posts newest first. limit <= 0 returns all.
func (s *SQLite) List(ctx context.Context, limit int) ([]model.Post, error) {
	q := `SELECT url, newsletter, COALESCE(title,''), COALESCE(subtitle,''), COALESCE(author,''), COALESCE(audience,''),
        published_at, COALESCE(text,''), paywalled, fetched_at, COALESCE(run_id,'')
        FROM posts ORDER BY published_at DESC, url`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()
	var out []model.Post
	for rows.Next() {
		var p model.Post
		var published, fetched sql.NullTime
		if err := rows.Scan(&p.URL, &p.Newsletter, &p.Title, &p.Subtitle, &p.Author, &p.Audience,
			&published, &p.Text, &p.Paywalled, &fetched, &p.RunID); err != nil {
			return nil, fmt.Errorf("scan posts: %w", err)
		}
		if published.Valid {
			p.PublishedAt = published.Time
		}
		if fetched.Valid {
			p.FetchedAt = fetched.Time
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	return out, nil
}

// Count returns the number of stored posts.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM posts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return n, nil
}

func nowOr(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
