package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"golang.org/x/sync/errgroup"

	"github.com/pantryscope/pantryscope/pkg/content"
	"github.com/pantryscope/pantryscope/pkg/domain"
)

// Fetcher retrieves and parses recipe feeds
type Fetcher interface {
	Fetch(ctx context.Context, feedURL, feedName string) ([]Entry, error)
}

// PageReader pulls readable text out of a recipe page URL
type PageReader interface {
	Extract(ctx context.Context, url string) (*content.Page, error)
}

// RecipeStore persists and searches ingested recipes
type RecipeStore interface {
	SaveRecipe(ctx context.Context, recipe *domain.Recipe) error
	SearchRecipes(ctx context.Context, query string, limit int) ([]domain.Recipe, error)
}

// Feed is one configured recipe source
type Feed struct {
	Name string
	URL  string
	Tags []string // extra tags stamped on every entry from this feed
}

// Params configures the catalog manager
type Params struct {
	Feeds          []Feed
	UpdateInterval time.Duration
	MaxConcurrent  int  // concurrent feed fetches during a refresh
	ExtractPages   bool // fetch each entry's page for full text
}

// Manager keeps the recipe catalog fresh: it pulls the configured feeds,
// optionally extracts full page text, and stores everything through the
// recipe store. It also answers suggestion queries against the stored
// catalog with a static fallback for empty results.
type Manager struct {
	params  Params
	fetcher Fetcher
	pages   PageReader
	store   RecipeStore
}

// NewManager creates a catalog manager. pages may be nil when page
// extraction is disabled.
func NewManager(params Params, fetcher Fetcher, pages PageReader, store RecipeStore) *Manager {
	if params.MaxConcurrent <= 0 {
		params.MaxConcurrent = 4
	}
	return &Manager{params: params, fetcher: fetcher, pages: pages, store: store}
}

// Run refreshes the catalog on the configured interval until the context
// is canceled. The first refresh happens immediately.
func (m *Manager) Run(ctx context.Context) error {
	if len(m.params.Feeds) == 0 {
		lgr.Printf("[INFO] no catalog feeds configured, refresh loop not started")
		<-ctx.Done()
		return ctx.Err()
	}

	if err := m.RefreshAll(ctx); err != nil {
		lgr.Printf("[WARN] initial catalog refresh: %v", err)
	}

	ticker := time.NewTicker(m.params.UpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := m.RefreshAll(ctx); err != nil {
				lgr.Printf("[WARN] catalog refresh: %v", err)
			}
		}
	}
}

// RefreshAll fetches every configured feed and stores the entries. Feeds
// are fetched concurrently; one failing feed does not stop the others,
// the first error is reported after all feeds finish.
func (m *Manager) RefreshAll(ctx context.Context) error {
	var g errgroup.Group
	g.SetLimit(m.params.MaxConcurrent)

	for _, feed := range m.params.Feeds {
		g.Go(func() error {
			entries, err := m.fetcher.Fetch(ctx, feed.URL, feed.Name)
			if err != nil {
				return fmt.Errorf("fetch feed %s: %w", feed.Name, err)
			}
			stored := 0
			for _, entry := range entries {
				if err := m.storeEntry(ctx, entry, feed.Tags); err != nil {
					lgr.Printf("[WARN] store entry %q from %s: %v", entry.Title, feed.Name, err)
					continue
				}
				stored++
			}
			lgr.Printf("[INFO] refreshed feed %s: %d of %d entries stored", feed.Name, stored, len(entries))
			return nil
		})
	}
	return g.Wait()
}

// storeEntry converts a feed entry to a recipe and saves it. With page
// extraction enabled the entry's page text fills the instructions; an
// extraction failure degrades to the feed summary alone.
func (m *Manager) storeEntry(ctx context.Context, entry Entry, feedTags []string) error {
	if entry.Title == "" || entry.Link == "" {
		return nil // nothing useful to store
	}

	recipe := &domain.Recipe{
		Title:       entry.Title,
		Source:      entry.Link,
		Summary:     entry.Summary,
		Tags:        normalizeTags(append(append([]string(nil), entry.Tags...), feedTags...)),
		Ingredients: entry.Ingredients,
	}

	if m.params.ExtractPages && m.pages != nil {
		page, err := m.pages.Extract(ctx, entry.Link)
		if err != nil {
			lgr.Printf("[DEBUG] page extraction failed for %s: %v", entry.Link, err)
		} else {
			recipe.Instructions = pageParagraphs(page.Text)
			if recipe.Summary == "" {
				recipe.Summary = firstSentence(page.Text)
			}
		}
	}

	return m.store.SaveRecipe(ctx, recipe)
}

// Suggest searches the stored catalog for recipes matching any of the
// given ingredients, deduplicated across ingredients. When the catalog
// has no match at all, static dish ideas for the ingredients are
// returned instead.
func (m *Manager) Suggest(ctx context.Context, ingredients []string, limit int) ([]domain.Recipe, []string, error) {
	if limit <= 0 {
		limit = 5
	}

	var recipes []domain.Recipe
	seen := make(map[int64]bool)
	for _, ingredient := range ingredients {
		query := strings.TrimSpace(ingredient)
		if query == "" {
			continue
		}
		found, err := m.store.SearchRecipes(ctx, query, limit)
		if err != nil {
			return nil, nil, fmt.Errorf("search catalog for %q: %w", query, err)
		}
		for _, recipe := range found {
			if seen[recipe.ID] {
				continue
			}
			seen[recipe.ID] = true
			recipes = append(recipes, recipe)
			if len(recipes) >= limit {
				return recipes, nil, nil
			}
		}
	}

	if len(recipes) > 0 {
		return recipes, nil, nil
	}
	return nil, fallbackSuggestions(ingredients, limit), nil
}

// pageParagraphs splits extracted page text into instruction lines,
// capped to keep pathological pages from bloating the store
func pageParagraphs(text string) []string {
	const maxLines = 40
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == maxLines {
			break
		}
	}
	return lines
}

// firstSentence returns the text up to the first period, capped at 200 chars
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, ". "); idx > 0 {
		text = text[:idx+1]
	}
	if len(text) > 200 {
		text = text[:200]
	}
	return text
}
