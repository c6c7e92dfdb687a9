package prefs

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-pkgz/lgr"

	"github.com/pantryscope/pantryscope/pkg/domain"
)

// Store is the preference persistence the extractor and the profile
// assembler work through.
type Store interface {
	Save(ctx context.Context, userID, key, value string) error
	GetAll(ctx context.Context, userID string) ([]domain.Preference, error)
	GetByCategory(ctx context.Context, userID string, category domain.Category) ([]string, error)
}

// Extractor mines free-form text for food preferences using literal
// pattern matching: trigger phrases for dislikes and likes, closed
// vocabularies for cuisines and dietary restrictions. Findings are
// deduplicated against the store and written through it.
//
// The check-then-write sequence is not atomic across concurrent calls
// for the same user; a race re-increments the frequency of an existing
// key, which the store's upsert keeps harmless.
type Extractor struct {
	store           Store
	dislikePatterns []*regexp.Regexp
	likePatterns    []*regexp.Regexp
	cuisines        []string
	dietaryTerms    []string
}

// captured spans end at a sentence delimiter; a coordinating conjunction
// also ends the span so "i love garlic and i am vegan" yields "garlic"
var spanBreak = regexp.MustCompile(`\s+(?:and|but|or)\s+`)

// NewExtractor creates an extractor with patterns compiled from the vocabulary
func NewExtractor(store Store, vocab Vocabulary) *Extractor {
	return &Extractor{
		store:           store,
		dislikePatterns: compileTriggers(vocab.DislikeTriggers),
		likePatterns:    compileTriggers(vocab.LikeTriggers),
		cuisines:        vocab.Cuisines,
		dietaryTerms:    vocab.DietaryTerms,
	}
}

// compileTriggers builds one regexp per trigger phrase, capturing the
// span after the trigger up to the next sentence delimiter
func compileTriggers(triggers []string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(triggers))
	for _, trigger := range triggers {
		patterns = append(patterns, regexp.MustCompile(`\b`+regexp.QuoteMeta(trigger)+`\s+([^,.!?]+)`))
	}
	return patterns
}

// Extract scans text for new preferences, writes each genuinely new one
// through the store and reports them grouped by category. Values the
// store already holds are skipped. A store failure aborts the remaining
// scan; findings written before the failure stay in place and are
// returned alongside the error.
func (e *Extractor) Extract(ctx context.Context, userID, text string) (*domain.ExtractionResult, error) {
	normalized := strings.ToLower(text)
	result := &domain.ExtractionResult{}

	var err error
	if result.NewDislikes, err = e.processCategory(ctx, userID, domain.CategoryDislike,
		e.phraseCandidates(normalized, e.dislikePatterns)); err != nil {
		return result, err
	}
	if result.NewLikes, err = e.processCategory(ctx, userID, domain.CategoryLike,
		e.phraseCandidates(normalized, e.likePatterns)); err != nil {
		return result, err
	}
	if result.NewCuisines, err = e.processCategory(ctx, userID, domain.CategoryCuisine,
		vocabularyCandidates(normalized, e.cuisines, false)); err != nil {
		return result, err
	}
	if result.NewDietary, err = e.processCategory(ctx, userID, domain.CategoryDietary,
		vocabularyCandidates(normalized, e.dietaryTerms, true)); err != nil {
		return result, err
	}

	if !result.Empty() {
		lgr.Printf("[DEBUG] extracted preferences for user %s: %d dislikes, %d likes, %d cuisines, %d dietary",
			userID, len(result.NewDislikes), len(result.NewLikes), len(result.NewCuisines), len(result.NewDietary))
	}
	return result, nil
}

// phraseCandidates collects spans captured by the trigger patterns, in
// order of first match within the scan
func (e *Extractor) phraseCandidates(text string, patterns []*regexp.Regexp) []string {
	var candidates []string
	for _, pattern := range patterns {
		for _, match := range pattern.FindAllStringSubmatch(text, -1) {
			if candidate := cleanSpan(match[1]); candidate != "" {
				candidates = append(candidates, candidate)
			}
		}
	}
	return candidates
}

// vocabularyCandidates returns the known terms appearing as substrings of
// the text. With hyphenVariant set, a hyphenated term also matches its
// space-separated form ("gluten-free" matches "gluten free").
func vocabularyCandidates(text string, terms []string, hyphenVariant bool) []string {
	var candidates []string
	for _, term := range terms {
		if strings.Contains(text, term) {
			candidates = append(candidates, term)
			continue
		}
		if hyphenVariant && strings.Contains(term, "-") &&
			strings.Contains(text, strings.ReplaceAll(term, "-", " ")) {
			candidates = append(candidates, term)
		}
	}
	return candidates
}

// processCategory writes the candidates absent from the store and returns
// the newly added values in candidate order
func (e *Extractor) processCategory(ctx context.Context, userID string, category domain.Category, candidates []string) ([]string, error) {
	added := []string{}
	if len(candidates) == 0 {
		return added, nil
	}

	existing, err := e.store.GetByCategory(ctx, userID, category)
	if err != nil {
		return nil, fmt.Errorf("check %s preferences: %w", category, err)
	}
	known := make(map[string]bool, len(existing))
	for _, value := range existing {
		known[value] = true
	}

	for _, candidate := range candidates {
		if known[candidate] {
			continue
		}
		if err := e.store.Save(ctx, userID, category.Key(candidate), candidate); err != nil {
			return added, fmt.Errorf("save %s preference %q: %w", category, candidate, err)
		}
		known[candidate] = true
		added = append(added, candidate)
	}
	return added, nil
}

// cleanSpan trims a captured span and cuts it at the first coordinating
// conjunction
func cleanSpan(span string) string {
	if parts := spanBreak.Split(span, 2); len(parts) > 0 {
		span = parts[0]
	}
	return strings.TrimSpace(span)
}
