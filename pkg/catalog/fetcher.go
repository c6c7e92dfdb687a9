package catalog

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mmcdole/gofeed"
)

// Entry is a single recipe candidate pulled from a catalog feed. Summary
// is plain text with any feed HTML stripped.
type Entry struct {
	FeedName    string
	GUID        string
	Title       string
	Link        string
	Summary     string
	Tags        []string
	Ingredients []string // list items found in the entry's embedded HTML
	Published   time.Time
}

// FeedFetcher retrieves recipe feeds over HTTP and parses RSS/Atom
type FeedFetcher struct {
	parser    *gofeed.Parser
	sanitizer *bluemonday.Policy
	timeout   time.Duration
}

// NewFeedFetcher creates a feed fetcher with the given per-fetch timeout
func NewFeedFetcher(timeout time.Duration) *FeedFetcher {
	return &FeedFetcher{
		parser:    gofeed.NewParser(),
		sanitizer: bluemonday.StrictPolicy(),
		timeout:   timeout,
	}
}

// Fetch retrieves and parses the feed at feedURL, tagging every entry
// with feedName
func (f *FeedFetcher) Fetch(ctx context.Context, feedURL, feedName string) ([]Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	feed, err := f.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}

	entries := make([]Entry, 0, len(feed.Items))
	for _, item := range feed.Items {
		entry := Entry{
			FeedName:    feedName,
			Title:       strings.TrimSpace(item.Title),
			Link:        item.Link,
			Summary:     f.plainText(item.Description),
			Tags:        normalizeTags(item.Categories),
			Ingredients: listItems(item.Content),
			GUID:        item.GUID,
		}
		if entry.GUID == "" {
			entry.GUID = item.Link
		}
		if item.PublishedParsed != nil {
			entry.Published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			entry.Published = *item.UpdatedParsed
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// plainText strips markup from feed HTML and collapses whitespace
func (f *FeedFetcher) plainText(s string) string {
	stripped := html.UnescapeString(f.sanitizer.Sanitize(s))
	return strings.Join(strings.Fields(stripped), " ")
}

// normalizeTags lower-cases feed categories and drops empty ones
func normalizeTags(categories []string) []string {
	tags := make([]string, 0, len(categories))
	seen := make(map[string]bool, len(categories))
	for _, c := range categories {
		tag := strings.ToLower(strings.TrimSpace(c))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
