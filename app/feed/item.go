package feed

import (
	"time"
)

// Syndication import/export types

type Metadata struct {
	Title           string
	Link            string
	Description     string
	ImageURL        string
	Language        string
	FeedPublishedAt *time.Time
}

type Item struct {
	GUID        string
	URN         string // activity URN the imported post is rendered with
	Title       string
	Link        string
	Description string
	Content     string
	PublishedAt time.Time
	Authors     []string // "email (name)" or "name"
	Categories  []string
}

// ExportPost is a post left visible after occlusion, as written to RSS.
type ExportPost struct {
	Key      string
	Text     string
	Link     string
	Category Category
}

// Channel describes the exported feed.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
}
