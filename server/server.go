package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/go-pkgz/rest"
	"github.com/go-pkgz/rest/logger"
	"github.com/go-pkgz/routegroup"

	"github.com/pantryscope/pantryscope/pkg/domain"
	"github.com/pantryscope/pantryscope/pkg/llm"
)

// PreferenceStore is the preference persistence used by the handlers
type PreferenceStore interface {
	Save(ctx context.Context, userID, key, value string) error
	GetAll(ctx context.Context, userID string) ([]domain.Preference, error)
	GetByCategory(ctx context.Context, userID string, category domain.Category) ([]string, error)
}

// Extractor mines free text for preferences
type Extractor interface {
	Extract(ctx context.Context, userID, text string) (*domain.ExtractionResult, error)
}

// Profiler assembles user preference profiles
type Profiler interface {
	Profile(ctx context.Context, userID string) (*domain.UserProfile, error)
}

// Resolver answers dietary substitution queries
type Resolver interface {
	Resolve(tags []string, ingredient string) []string
	Mentioned(tags []string, text string) map[string][]string
}

// PantryStore persists pantry items
type PantryStore interface {
	CreateItem(ctx context.Context, item *domain.PantryItem) error
	GetItem(ctx context.Context, id int64) (*domain.PantryItem, error)
	GetItems(ctx context.Context, userID string) ([]domain.PantryItem, error)
	UpdateItem(ctx context.Context, item *domain.PantryItem) error
	DeleteItem(ctx context.Context, id int64) error
}

// RecipeStore persists and searches recipes
type RecipeStore interface {
	SaveRecipe(ctx context.Context, recipe *domain.Recipe) error
	GetRecipe(ctx context.Context, id int64) (*domain.Recipe, error)
	GetRecipes(ctx context.Context, limit int) ([]domain.Recipe, error)
	SearchRecipes(ctx context.Context, query string, limit int) ([]domain.Recipe, error)
}

// Suggester answers ingredient-based recipe suggestions from the catalog
type Suggester interface {
	Suggest(ctx context.Context, ingredients []string, limit int) ([]domain.Recipe, []string, error)
}

// Chef generates recipes through an LLM
type Chef interface {
	Enabled() bool
	GenerateRecipes(ctx context.Context, req llm.GenerateRequest) ([]domain.GeneratedRecipe, error)
}

// ConfigProvider provides server configuration
type ConfigProvider interface {
	GetServerConfig() (listen string, timeout time.Duration)
}

// Deps bundles everything the server calls into
type Deps struct {
	Config      ConfigProvider
	Preferences PreferenceStore
	Extractor   Extractor
	Profiler    Profiler
	Resolver    Resolver
	Pantry      PantryStore
	Recipes     RecipeStore
	Suggester   Suggester
	Chef        Chef
}

// Server is the HTTP front of the application
type Server struct {
	Deps
	version string
	debug   bool

	lock       sync.Mutex
	httpServer *http.Server
	router     *routegroup.Bundle
}

// New initializes a server instance with routes and middleware set up
func New(deps Deps, version string, debug bool) *Server {
	s := &Server{
		Deps:    deps,
		version: version,
		debug:   debug,
		router:  routegroup.New(http.NewServeMux()),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// Run starts the HTTP server and handles graceful shutdown
func (s *Server) Run(ctx context.Context) error {
	listen, timeout := s.Config.GetServerConfig()
	lgr.Printf("[INFO] starting server on %s", listen)

	s.lock.Lock()
	s.httpServer = &http.Server{
		Addr:         listen,
		Handler:      s.router,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
	s.lock.Unlock()

	go func() {
		<-ctx.Done()
		lgr.Printf("[INFO] shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			lgr.Printf("[WARN] server shutdown error: %v", err)
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server error: %w", err)
	}

	return nil
}

// setupMiddleware configures standard middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(rest.AppInfo("pantryscope", "pantryscope", s.version))
	s.router.Use(rest.Ping)

	if s.debug {
		s.router.Use(logger.New(logger.Log(lgr.Default()), logger.Prefix("[DEBUG]")).Handler)
	}

	s.router.Use(rest.Recoverer(lgr.Default()))
	s.router.Use(rest.Throttle(100))
	s.router.Use(rest.SizeLimit(1024 * 1024)) // 1MB
}

// setupRoutes configures application routes
func (s *Server) setupRoutes() {
	s.router.Mount("/api/v1").Route(func(r *routegroup.Bundle) {
		r.HandleFunc("GET /status", s.statusHandler)

		// preference memory
		r.HandleFunc("POST /users/{user}/preferences", s.savePreferenceHandler)
		r.HandleFunc("POST /users/{user}/preferences/{type}", s.savePreferenceListHandler)
		r.HandleFunc("GET /users/{user}/preferences", s.getPreferencesHandler)
		r.HandleFunc("GET /users/{user}/preferences/{type}", s.getPreferenceListHandler)
		r.HandleFunc("POST /users/{user}/extract", s.extractHandler)
		r.HandleFunc("GET /users/{user}/profile", s.profileHandler)
		r.HandleFunc("GET /substitutions", s.substitutionsHandler)
		r.HandleFunc("POST /users/{user}/chat", s.chatHandler)

		// pantry inventory
		r.HandleFunc("GET /users/{user}/pantry", s.listPantryHandler)
		r.HandleFunc("POST /users/{user}/pantry", s.addPantryHandler)
		r.HandleFunc("GET /users/{user}/pantry/{id}", s.getPantryHandler)
		r.HandleFunc("PUT /users/{user}/pantry/{id}", s.updatePantryHandler)
		r.HandleFunc("DELETE /users/{user}/pantry/{id}", s.deletePantryHandler)

		// recipes
		r.HandleFunc("GET /recipes", s.listRecipesHandler)
		r.HandleFunc("POST /recipes", s.saveRecipeHandler)
		r.HandleFunc("GET /recipes/search", s.searchRecipesHandler)
		r.HandleFunc("GET /recipes/{id}", s.getRecipeHandler)
		r.HandleFunc("POST /users/{user}/recipes/generate", s.generateRecipesHandler)
	})
}

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// renderJSON sends a JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			lgr.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends an error response in the {status, message} envelope
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	errMsg := "unknown error"
	if err != nil {
		errMsg = err.Error()
	}
	renderJSON(w, r, code, map[string]string{"status": "error", "message": errMsg})
}
