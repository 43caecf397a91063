// Package model holds the records that are stored and exported.
package model

import "time"

// Post is a collected article with its normalized text.
type Post struct {
	URL         string    `json:"url"`
	Newsletter  string    `json:"newsletter"`
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Author      string    `json:"author,omitempty"`
	Audience    string    `json:"audience"`
	PublishedAt time.Time `json:"published_at"`
	Text        string    `json:"text,omitempty"`
	// Paywalled posts fetched without cookies have no text.
	Paywalled bool      `json:"paywalled"`
	FetchedAt time.Time `json:"fetched_at"`
	RunID     string    `json:"run_id,omitempty"`
}

// Stats summarizes one watch run.
type Stats struct {
	Newsletters      int       `json:"newsletters"`
	NewslettersError int       `json:"newsletters_error"`
	PostsTotal       int       `json:"posts_total"`
	PostsNew         int       `json:"posts_new"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Export is the top level of the simple-mode JSON file.
type Export struct {
	Stats Stats  `json:"stats"`
	Posts []Post `json:"posts"`
}
