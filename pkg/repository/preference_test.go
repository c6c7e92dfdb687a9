package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantryscope/pantryscope/pkg/domain"
)

func TestPreferenceRepository_SaveUpsert(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	// first save creates the record with frequency 1
	require.NoError(t, repos.Preference.Save(ctx, "u1", "dislike_mushrooms", "mushrooms"))

	prefs, err := repos.Preference.GetAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, 1, prefs[0].Frequency)
	assert.Equal(t, "mushrooms", prefs[0].Value)

	// second save of the same key overwrites the value and bumps frequency,
	// without creating a second row
	require.NoError(t, repos.Preference.Save(ctx, "u1", "dislike_mushrooms", "button mushrooms"))

	prefs, err = repos.Preference.GetAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, 2, prefs[0].Frequency)
	assert.Equal(t, "button mushrooms", prefs[0].Value)
}

func TestPreferenceRepository_SaveValidation(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	err := repos.Preference.Save(ctx, "", "like_garlic", "garlic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty user id")

	err = repos.Preference.Save(ctx, "u1", "", "garlic")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty key")
}

func TestPreferenceRepository_GetAllOrdering(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	// build records with frequencies 1, 3 and 2
	require.NoError(t, repos.Preference.Save(ctx, "u1", "like_garlic", "garlic"))

	for i := 0; i < 3; i++ {
		require.NoError(t, repos.Preference.Save(ctx, "u1", "dislike_mushrooms", "mushrooms"))
	}

	for i := 0; i < 2; i++ {
		require.NoError(t, repos.Preference.Save(ctx, "u1", "cuisine_italian", "italian"))
	}

	prefs, err := repos.Preference.GetAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, prefs, 3)

	// most reinforced first
	assert.Equal(t, "dislike_mushrooms", prefs[0].Key)
	assert.Equal(t, 3, prefs[0].Frequency)
	assert.Equal(t, "cuisine_italian", prefs[1].Key)
	assert.Equal(t, 2, prefs[1].Frequency)
	assert.Equal(t, "like_garlic", prefs[2].Key)
	assert.Equal(t, 1, prefs[2].Frequency)
}

func TestPreferenceRepository_GetAllUnknownUser(t *testing.T) {
	repos := setupTestRepos(t)

	prefs, err := repos.Preference.GetAll(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, prefs)
}

func TestPreferenceRepository_GetByCategory(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Preference.Save(ctx, "u1", "dislike_mushrooms", "mushrooms"))
	require.NoError(t, repos.Preference.Save(ctx, "u1", "dislike_olives", "olives"))
	require.NoError(t, repos.Preference.Save(ctx, "u1", "like_garlic", "garlic"))
	require.NoError(t, repos.Preference.Save(ctx, "u1", "dietary_vegan", "vegan"))

	// reinforce olives so it sorts first within the category
	require.NoError(t, repos.Preference.Save(ctx, "u1", "dislike_olives", "olives"))

	dislikes, err := repos.Preference.GetByCategory(ctx, "u1", domain.CategoryDislike)
	require.NoError(t, err)
	assert.Equal(t, []string{"olives", "mushrooms"}, dislikes)

	likes, err := repos.Preference.GetByCategory(ctx, "u1", domain.CategoryLike)
	require.NoError(t, err)
	assert.Equal(t, []string{"garlic"}, likes)

	cuisines, err := repos.Preference.GetByCategory(ctx, "u1", domain.CategoryCuisine)
	require.NoError(t, err)
	assert.Empty(t, cuisines)
}

func TestPreferenceRepository_UsersIsolated(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	require.NoError(t, repos.Preference.Save(ctx, "u1", "like_garlic", "garlic"))
	require.NoError(t, repos.Preference.Save(ctx, "u2", "like_basil", "basil"))

	u1, err := repos.Preference.GetAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, u1, 1)
	assert.Equal(t, "garlic", u1[0].Value)

	u2, err := repos.Preference.GetAll(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, u2, 1)
	assert.Equal(t, "basil", u2[0].Value)
}

func TestPreferenceRepository_ConcurrentSaves(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	// hammer the same key from multiple goroutines; the upsert must keep
	// frequency exact with no lost updates
	const goroutines = 10
	const savesEach = 5

	var wg sync.WaitGroup
	errs := make(chan error, goroutines*savesEach)
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < savesEach; i++ {
				errs <- repos.Preference.Save(ctx, "u1", "like_garlic", "garlic")
			}
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}

	prefs, err := repos.Preference.GetAll(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, prefs, 1)
	assert.Equal(t, goroutines*savesEach, prefs[0].Frequency)
}

func TestPreferenceRepository_ManyKeys(t *testing.T) {
	repos := setupTestRepos(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		value := fmt.Sprintf("ingredient-%02d", i)
		require.NoError(t, repos.Preference.Save(ctx, "u1", domain.CategoryLike.Key(value), value))
	}

	likes, err := repos.Preference.GetByCategory(ctx, "u1", domain.CategoryLike)
	require.NoError(t, err)
	assert.Len(t, likes, 20)
}
