package prefs

import (
	"context"
	"fmt"

	"github.com/pantryscope/pantryscope/pkg/domain"
)

// Profiler assembles a user's preference profile from the store, one
// category at a time. Each list keeps the store's frequency ordering.
type Profiler struct {
	store Store
}

// NewProfiler creates a profiler over the given store
func NewProfiler(store Store) *Profiler {
	return &Profiler{store: store}
}

// Profile returns the user's preferences grouped by category. A user
// with no stored preferences gets a profile of empty lists.
func (p *Profiler) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	profile := &domain.UserProfile{
		Dislikes: []string{},
		Likes:    []string{},
		Cuisines: []string{},
		Dietary:  []string{},
	}

	for _, fill := range []struct {
		category domain.Category
		dest     *[]string
	}{
		{domain.CategoryDislike, &profile.Dislikes},
		{domain.CategoryLike, &profile.Likes},
		{domain.CategoryCuisine, &profile.Cuisines},
		{domain.CategoryDietary, &profile.Dietary},
	} {
		values, err := p.store.GetByCategory(ctx, userID, fill.category)
		if err != nil {
			return nil, fmt.Errorf("load %s preferences for user %s: %w", fill.category, userID, err)
		}
		if len(values) > 0 {
			*fill.dest = values
		}
	}
	return profile, nil
}
