package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantryscope/pantryscope/pkg/domain"
	"github.com/pantryscope/pantryscope/pkg/llm"
	"github.com/pantryscope/pantryscope/pkg/prefs"
)

// memPrefStore is an in-memory PreferenceStore with the real ordering
// semantics: frequency descending, recency descending
type memPrefStore struct {
	mu   sync.Mutex
	seq  int
	data map[string]map[string]*memPref // userID -> key -> pref
	err  error
}

type memPref struct {
	value string
	freq  int
	seq   int
}

func newMemPrefStore() *memPrefStore {
	return &memPrefStore{data: map[string]map[string]*memPref{}}
}

func (s *memPrefStore) Save(_ context.Context, userID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.seq++
	if s.data[userID] == nil {
		s.data[userID] = map[string]*memPref{}
	}
	if p, ok := s.data[userID][key]; ok {
		p.value = value
		p.freq++
		p.seq = s.seq
		return nil
	}
	s.data[userID][key] = &memPref{value: value, freq: 1, seq: s.seq}
	return nil
}

func (s *memPrefStore) sorted(userID string) []struct {
	key string
	p   *memPref
} {
	var out []struct {
		key string
		p   *memPref
	}
	for key, p := range s.data[userID] {
		out = append(out, struct {
			key string
			p   *memPref
		}{key, p})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].p.freq != out[j].p.freq {
			return out[i].p.freq > out[j].p.freq
		}
		return out[i].p.seq > out[j].p.seq
	})
	return out
}

func (s *memPrefStore) GetAll(_ context.Context, userID string) ([]domain.Preference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var res []domain.Preference
	for _, e := range s.sorted(userID) {
		res = append(res, domain.Preference{
			UserID: userID, Key: e.key, Value: e.p.value, Frequency: e.p.freq, UpdatedAt: time.Now(),
		})
	}
	return res, nil
}

func (s *memPrefStore) GetByCategory(_ context.Context, userID string, category domain.Category) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	var res []string
	for _, e := range s.sorted(userID) {
		if strings.HasPrefix(e.key, string(category)+"_") {
			res = append(res, e.p.value)
		}
	}
	return res, nil
}

// memPantry is an in-memory PantryStore
type memPantry struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]domain.PantryItem
}

func newMemPantry() *memPantry { return &memPantry{items: map[int64]domain.PantryItem{}} }

func (p *memPantry) CreateItem(_ context.Context, item *domain.PantryItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	item.ID = p.nextID
	item.CreatedAt = time.Now()
	item.UpdatedAt = item.CreatedAt
	p.items[item.ID] = *item
	return nil
}

func (p *memPantry) GetItem(_ context.Context, id int64) (*domain.PantryItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	item, ok := p.items[id]
	if !ok {
		return nil, fmt.Errorf("pantry item %d not found", id)
	}
	return &item, nil
}

func (p *memPantry) GetItems(_ context.Context, userID string) ([]domain.PantryItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	var res []domain.PantryItem
	for _, item := range p.items {
		if item.UserID == userID {
			res = append(res, item)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (p *memPantry) UpdateItem(_ context.Context, item *domain.PantryItem) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.items[item.ID]; !ok {
		return fmt.Errorf("pantry item %d not found", item.ID)
	}
	item.UpdatedAt = time.Now()
	p.items[item.ID] = *item
	return nil
}

func (p *memPantry) DeleteItem(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.items, id)
	return nil
}

// memRecipes is an in-memory RecipeStore
type memRecipes struct {
	mu      sync.Mutex
	nextID  int64
	recipes map[int64]domain.Recipe
}

func newMemRecipes() *memRecipes { return &memRecipes{recipes: map[int64]domain.Recipe{}} }

func (m *memRecipes) SaveRecipe(_ context.Context, recipe *domain.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	recipe.ID = m.nextID
	recipe.CreatedAt = time.Now()
	m.recipes[recipe.ID] = *recipe
	return nil
}

func (m *memRecipes) GetRecipe(_ context.Context, id int64) (*domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe, ok := m.recipes[id]
	if !ok {
		return nil, fmt.Errorf("recipe %d not found", id)
	}
	return &recipe, nil
}

func (m *memRecipes) GetRecipes(_ context.Context, limit int) ([]domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.Recipe
	for _, recipe := range m.recipes {
		res = append(res, recipe)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (m *memRecipes) SearchRecipes(_ context.Context, query string, limit int) ([]domain.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []domain.Recipe
	for _, recipe := range m.recipes {
		haystack := strings.ToLower(recipe.Title + " " + strings.Join(recipe.Tags, " ") + " " + strings.Join(recipe.Ingredients, " "))
		if strings.Contains(haystack, strings.ToLower(query)) {
			res = append(res, recipe)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

// fakeSuggester returns canned catalog matches
type fakeSuggester struct {
	recipes  []domain.Recipe
	fallback []string
	err      error
}

func (f *fakeSuggester) Suggest(_ context.Context, _ []string, _ int) ([]domain.Recipe, []string, error) {
	return f.recipes, f.fallback, f.err
}

// fakeChef captures generation requests and returns canned recipes
type fakeChef struct {
	enabled bool
	recipes []domain.GeneratedRecipe
	err     error
	lastReq llm.GenerateRequest
}

func (f *fakeChef) Enabled() bool { return f.enabled }

func (f *fakeChef) GenerateRecipes(_ context.Context, req llm.GenerateRequest) ([]domain.GeneratedRecipe, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return f.recipes, nil
}

type testConfig struct {
	listen string
}

func (c *testConfig) GetServerConfig() (string, time.Duration) {
	if c.listen == "" {
		return ":8080", 30 * time.Second
	}
	return c.listen, 30 * time.Second
}

type testEnv struct {
	srv       *Server
	ts        *httptest.Server
	prefStore *memPrefStore
	pantry    *memPantry
	recipes   *memRecipes
	suggester *fakeSuggester
	chef      *fakeChef
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		prefStore: newMemPrefStore(),
		pantry:    newMemPantry(),
		recipes:   newMemRecipes(),
		suggester: &fakeSuggester{},
		chef:      &fakeChef{enabled: true},
	}
	resolver := prefs.NewResolver(prefs.DefaultSubstitutions())
	env.srv = New(Deps{
		Config:      &testConfig{},
		Preferences: env.prefStore,
		Extractor:   prefs.NewExtractor(env.prefStore, prefs.DefaultVocabulary()),
		Profiler:    prefs.NewProfiler(env.prefStore),
		Resolver:    resolver,
		Pantry:      env.pantry,
		Recipes:     env.recipes,
		Suggester:   env.suggester,
		Chef:        env.chef,
	}, "test", false)
	env.ts = httptest.NewServer(env.srv.router)
	t.Cleanup(env.ts.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, data
}

func TestServer_Status(t *testing.T) {
	env := newTestEnv(t)

	resp, body := env.do(t, http.MethodGet, "/api/v1/status", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var status map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &status))
	assert.Equal(t, "ok", status["status"])
	assert.Equal(t, "test", status["version"])
}

func TestServer_PreferenceEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("save single preference", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/users/u1/preferences",
			map[string]string{"key": "dislike_mushrooms", "value": "mushrooms"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var envelope map[string]string
		require.NoError(t, json.Unmarshal(body, &envelope))
		assert.Equal(t, "success", envelope["status"])
	})

	t.Run("save rejects missing key", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/users/u1/preferences",
			map[string]string{"value": "mushrooms"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var envelope map[string]string
		require.NoError(t, json.Unmarshal(body, &envelope))
		assert.Equal(t, "error", envelope["status"])
		assert.Contains(t, envelope["message"], "key is required")
	})

	t.Run("save preference list", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/users/u1/preferences/cuisine",
			map[string][]string{"items": {"Italian", "  ", "THAI"}})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var envelope map[string]string
		require.NoError(t, json.Unmarshal(body, &envelope))
		assert.Equal(t, "2 cuisine preferences saved", envelope["message"])
	})

	t.Run("save list rejects unknown type", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/v1/users/u1/preferences/flavor",
			map[string][]string{"items": {"umami"}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("get preference list", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users/u1/preferences/cuisine", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var values []string
		require.NoError(t, json.Unmarshal(body, &values))
		assert.ElementsMatch(t, []string{"italian", "thai"}, values)
	})

	t.Run("get preference list empty for unknown user", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users/nobody/preferences/cuisine", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "[]\n", string(body))
	})

	t.Run("get all preferences as mapping", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users/u1/preferences", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var envelope struct {
			Status      string `json:"status"`
			Preferences map[string]struct {
				Value     string `json:"value"`
				Frequency int    `json:"frequency"`
				Timestamp string `json:"timestamp"`
			} `json:"preferences"`
		}
		require.NoError(t, json.Unmarshal(body, &envelope))
		assert.Equal(t, "success", envelope.Status)
		require.Contains(t, envelope.Preferences, "dislike_mushrooms")
		assert.Equal(t, "mushrooms", envelope.Preferences["dislike_mushrooms"].Value)
		assert.Equal(t, 1, envelope.Preferences["dislike_mushrooms"].Frequency)
		assert.NotEmpty(t, envelope.Preferences["dislike_mushrooms"].Timestamp)
	})
}

func TestServer_ExtractProfileChat(t *testing.T) {
	env := newTestEnv(t)

	t.Run("extract", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/users/u1/extract",
			map[string]string{"text": "I don't like mushrooms, but I love garlic and I am vegan."})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result domain.ExtractionResult
		require.NoError(t, json.Unmarshal(body, &result))
		assert.Equal(t, []string{"mushrooms"}, result.NewDislikes)
		assert.Equal(t, []string{"garlic"}, result.NewLikes)
		assert.Empty(t, result.NewCuisines)
		assert.Equal(t, []string{"vegan"}, result.NewDietary)

		// empty lists serialize as [], not null
		assert.Contains(t, string(body), `"new_cuisines":[]`)
	})

	t.Run("extract requires text", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/v1/users/u1/extract", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("profile", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users/u1/profile", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var profile domain.UserProfile
		require.NoError(t, json.Unmarshal(body, &profile))
		assert.Equal(t, []string{"mushrooms"}, profile.Dislikes)
		assert.Equal(t, []string{"garlic"}, profile.Likes)
		assert.Equal(t, []string{"vegan"}, profile.Dietary)
		assert.Empty(t, profile.Cuisines)
	})

	t.Run("profile of unknown user is empty lists", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users/nobody/profile", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"dislikes":[],"likes":[],"cuisines":[],"dietary":[]}`, string(body))
	})

	t.Run("chat learns and substitutes", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/users/u1/chat",
			map[string]string{"message": "What can I use instead of milk? Also I enjoy basil."})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var envelope struct {
			Status        string                  `json:"status"`
			Reply         string                  `json:"reply"`
			Learned       domain.ExtractionResult `json:"learned"`
			Profile       domain.UserProfile      `json:"profile"`
			Substitutions map[string][]string     `json:"substitutions"`
		}
		require.NoError(t, json.Unmarshal(body, &envelope))
		assert.Equal(t, "success", envelope.Status)
		assert.Equal(t, []string{"basil"}, envelope.Learned.NewLikes)
		assert.Contains(t, envelope.Profile.Likes, "basil")
		assert.Equal(t, []string{"almond milk", "soy milk", "oat milk"}, envelope.Substitutions["milk"])
		assert.Contains(t, envelope.Reply, "almond milk")
	})

	t.Run("chat requires message", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/v1/users/u1/chat", map[string]string{})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_Substitutions(t *testing.T) {
	env := newTestEnv(t)

	t.Run("known ingredient", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/substitutions?ingredient=milk&tags=vegan,dairy-free", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var subs []string
		require.NoError(t, json.Unmarshal(body, &subs))
		assert.Equal(t, []string{"almond milk", "soy milk", "oat milk"}, subs)
	})

	t.Run("unknown ingredient yields empty list", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/substitutions?ingredient=quinoa&tags=vegan", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "[]\n", string(body))
	})

	t.Run("ingredient required", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/substitutions?tags=vegan", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_Pantry(t *testing.T) {
	env := newTestEnv(t)

	var itemID int64
	t.Run("add item", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/users/u1/pantry",
			map[string]interface{}{"name": "milk", "quantity": 1.0, "unit": "l", "category": "dairy"})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var envelope struct {
			Status string `json:"status"`
			ID     int64  `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &envelope))
		assert.Equal(t, "success", envelope.Status)
		require.NotZero(t, envelope.ID)
		itemID = envelope.ID
	})

	t.Run("add requires name", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/v1/users/u1/pantry", map[string]interface{}{"quantity": 1})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("get item", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/u1/pantry/%d", itemID), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var item domain.PantryItem
		require.NoError(t, json.Unmarshal(body, &item))
		assert.Equal(t, "milk", item.Name)
		assert.InDelta(t, 1.0, item.Quantity, 0.001)
	})

	t.Run("other user cannot see the item", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/u2/pantry/%d", itemID), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("update item", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPut, fmt.Sprintf("/api/v1/users/u1/pantry/%d", itemID),
			map[string]interface{}{"name": "oat milk", "quantity": 0.5, "unit": "l", "category": "dairy"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		_, body := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/u1/pantry/%d", itemID), nil)
		var item domain.PantryItem
		require.NoError(t, json.Unmarshal(body, &item))
		assert.Equal(t, "oat milk", item.Name)
		assert.InDelta(t, 0.5, item.Quantity, 0.001)
	})

	t.Run("list items", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/users/u1/pantry", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var items []domain.PantryItem
		require.NoError(t, json.Unmarshal(body, &items))
		require.Len(t, items, 1)
		assert.Equal(t, "oat milk", items[0].Name)
	})

	t.Run("delete item", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodDelete, fmt.Sprintf("/api/v1/users/u1/pantry/%d", itemID), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/users/u1/pantry/%d", itemID), nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid id", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/users/u1/pantry/abc", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestServer_Recipes(t *testing.T) {
	env := newTestEnv(t)

	var recipeID int64
	t.Run("save recipe", func(t *testing.T) {
		resp, body := env.do(t, http.MethodPost, "/api/v1/recipes", domain.Recipe{
			Title:        "Garlic Pasta",
			Ingredients:  []string{"pasta", "garlic"},
			Instructions: []string{"Boil pasta.", "Fry garlic, toss."},
			Tags:         []string{"pasta", "quick"},
		})
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var envelope struct {
			Status string `json:"status"`
			ID     int64  `json:"id"`
		}
		require.NoError(t, json.Unmarshal(body, &envelope))
		require.NotZero(t, envelope.ID)
		recipeID = envelope.ID
	})

	t.Run("save requires title", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodPost, "/api/v1/recipes", domain.Recipe{Ingredients: []string{"x"}})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("get recipe", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, fmt.Sprintf("/api/v1/recipes/%d", recipeID), nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var recipe domain.Recipe
		require.NoError(t, json.Unmarshal(body, &recipe))
		assert.Equal(t, "Garlic Pasta", recipe.Title)
	})

	t.Run("get missing recipe", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/recipes/99999", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("list recipes", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/recipes", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var recipes []domain.Recipe
		require.NoError(t, json.Unmarshal(body, &recipes))
		assert.Len(t, recipes, 1)
	})

	t.Run("search recipes", func(t *testing.T) {
		resp, body := env.do(t, http.MethodGet, "/api/v1/recipes/search?q=garlic", nil)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var recipes []domain.Recipe
		require.NoError(t, json.Unmarshal(body, &recipes))
		require.Len(t, recipes, 1)
		assert.Equal(t, "Garlic Pasta", recipes[0].Title)
	})

	t.Run("search requires query", func(t *testing.T) {
		resp, _ := env.do(t, http.MethodGet, "/api/v1/recipes/search", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestServer_GenerateRecipes(t *testing.T) {
	t.Run("full generation flow", func(t *testing.T) {
		env := newTestEnv(t)
		env.suggester.recipes = []domain.Recipe{{ID: 1, Title: "Catalog Carbonara"}}
		env.chef.recipes = []domain.GeneratedRecipe{
			{
				Title:              "Vegan Alfredo",
				Ingredients:        []string{"pasta", "cashews"},
				Instructions:       []string{"Blend cashews.", "Toss with pasta."},
				MissingIngredients: []string{"cashews", "Nutritional Yeast"},
			},
			{
				Title:              "Garlic Noodles",
				Ingredients:        []string{"pasta", "garlic"},
				Instructions:       []string{"Cook."},
				MissingIngredients: []string{"cashews"}, // duplicate across recipes
			},
		}

		// the stored profile shapes the request
		_, _ = env.do(t, http.MethodPost, "/api/v1/users/u1/extract", map[string]string{"text": "I am vegan"})

		resp, body := env.do(t, http.MethodPost, "/api/v1/users/u1/recipes/generate",
			map[string]interface{}{"ingredients": []string{"pasta", "milk"}, "num_people": 3, "notes": "quick dinner"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var envelope struct {
			Status  string                   `json:"status"`
			Recipes []domain.GeneratedRecipe `json:"recipes"`
			Cart    []domain.CartItem        `json:"cart"`
		}
		require.NoError(t, json.Unmarshal(body, &envelope))
		assert.Equal(t, "success", envelope.Status)
		assert.Len(t, envelope.Recipes, 2)
		assert.Equal(t, []domain.CartItem{
			{Name: "cashews", Status: "added (simulated)"},
			{Name: "nutritional yeast", Status: "added (simulated)"},
		}, envelope.Cart)

		// chef request carried the profile, substitutions and hints
		req := env.chef.lastReq
		assert.Equal(t, 3, req.NumPeople)
		assert.Equal(t, []string{"pasta", "milk"}, req.Ingredients)
		assert.Equal(t, "quick dinner", req.Notes)
		require.NotNil(t, req.Profile)
		assert.Equal(t, []string{"vegan"}, req.Profile.Dietary)
		assert.Equal(t, []string{"almond milk", "soy milk", "oat milk"}, req.Substitutions["milk"])
		assert.Contains(t, req.CatalogHints, "Catalog Carbonara")
	})

	t.Run("requires ingredients", func(t *testing.T) {
		env := newTestEnv(t)
		resp, _ := env.do(t, http.MethodPost, "/api/v1/users/u1/recipes/generate",
			map[string]interface{}{"num_people": 2})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("generation disabled", func(t *testing.T) {
		env := newTestEnv(t)
		env.chef.enabled = false
		resp, _ := env.do(t, http.MethodPost, "/api/v1/users/u1/recipes/generate",
			map[string]interface{}{"ingredients": []string{"pasta"}})
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	})

	t.Run("chef failure surfaces", func(t *testing.T) {
		env := newTestEnv(t)
		env.chef.err = fmt.Errorf("model overloaded")
		resp, body := env.do(t, http.MethodPost, "/api/v1/users/u1/recipes/generate",
			map[string]interface{}{"ingredients": []string{"pasta"}})
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Contains(t, string(body), "model overloaded")
	})
}

func TestServer_Run(t *testing.T) {
	// find free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	require.NoError(t, listener.Close())

	env := &testEnv{
		prefStore: newMemPrefStore(),
		pantry:    newMemPantry(),
		recipes:   newMemRecipes(),
		suggester: &fakeSuggester{},
		chef:      &fakeChef{},
	}
	srv := New(Deps{
		Config:      &testConfig{listen: fmt.Sprintf("127.0.0.1:%d", port)},
		Preferences: env.prefStore,
		Extractor:   prefs.NewExtractor(env.prefStore, prefs.DefaultVocabulary()),
		Profiler:    prefs.NewProfiler(env.prefStore),
		Resolver:    prefs.NewResolver(prefs.DefaultSubstitutions()),
		Pantry:      env.pantry,
		Recipes:     env.recipes,
		Suggester:   env.suggester,
		Chef:        env.chef,
	}, "test", false)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	// wait for the server to come up, ping is wired by middleware
	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/ping", port))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not shut down")
	}
}
