package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pantryscope/pantryscope/pkg/domain"
)

// RecipeRepository handles recipe storage database operations
type RecipeRepository struct {
	db *sqlx.DB
}

// recipeSQL represents a recipe row for SQL operations
type recipeSQL struct {
	ID           int64       `db:"id"`
	Title        string      `db:"title"`
	Ingredients  stringsJSON `db:"ingredients"`
	Instructions stringsJSON `db:"instructions"`
	Tags         stringsJSON `db:"tags"`
	Source       string      `db:"source"`
	Summary      string      `db:"summary"`
	CreatedAt    time.Time   `db:"created_at"`
}

// NewRecipeRepository creates a new recipe repository
func NewRecipeRepository(db *sqlx.DB) *RecipeRepository {
	return &RecipeRepository{db: db}
}

// SaveRecipe inserts a recipe. Catalog re-ingestion of the same
// (source, title) refreshes the stored summary and tags instead of
// duplicating the row.
func (r *RecipeRepository) SaveRecipe(ctx context.Context, recipe *domain.Recipe) error {
	row := &recipeSQL{
		Title:        recipe.Title,
		Ingredients:  stringsJSON(recipe.Ingredients),
		Instructions: stringsJSON(recipe.Instructions),
		Tags:         stringsJSON(recipe.Tags),
		Source:       recipe.Source,
		Summary:      recipe.Summary,
	}

	query := `
		INSERT INTO recipes (title, ingredients, instructions, tags, source, summary)
		VALUES (:title, :ingredients, :instructions, :tags, :source, :summary)
		ON CONFLICT(source, title) DO UPDATE SET
			tags = excluded.tags,
			summary = excluded.summary
	`
	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("save recipe: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get insert id: %w", err)
	}

	recipe.ID = id
	return nil
}

// GetRecipe retrieves a recipe by ID
func (r *RecipeRepository) GetRecipe(ctx context.Context, id int64) (*domain.Recipe, error) {
	var row recipeSQL
	err := r.db.GetContext(ctx, &row, "SELECT * FROM recipes WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("recipe %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe: %w", err)
	}
	return toDomainRecipe(&row), nil
}

// GetRecipes retrieves recipes, newest first
func (r *RecipeRepository) GetRecipes(ctx context.Context, limit int) ([]domain.Recipe, error) {
	query := "SELECT * FROM recipes ORDER BY created_at DESC, id DESC LIMIT ?"

	var rows []recipeSQL
	if err := r.db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, fmt.Errorf("get recipes: %w", err)
	}

	recipes := make([]domain.Recipe, len(rows))
	for i, row := range rows {
		recipes[i] = *toDomainRecipe(&row)
	}
	return recipes, nil
}

// SearchRecipes finds recipes whose title, tags or ingredients contain
// the query string, newest first
func (r *RecipeRepository) SearchRecipes(ctx context.Context, query string, limit int) ([]domain.Recipe, error) {
	sqlQuery := `
		SELECT * FROM recipes
		WHERE title LIKE ? OR tags LIKE ? OR ingredients LIKE ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	pattern := "%" + query + "%"

	var rows []recipeSQL
	if err := r.db.SelectContext(ctx, &rows, sqlQuery, pattern, pattern, pattern, limit); err != nil {
		return nil, fmt.Errorf("search recipes: %w", err)
	}

	recipes := make([]domain.Recipe, len(rows))
	for i, row := range rows {
		recipes[i] = *toDomainRecipe(&row)
	}
	return recipes, nil
}

// toDomainRecipe converts recipeSQL to domain.Recipe
func toDomainRecipe(row *recipeSQL) *domain.Recipe {
	return &domain.Recipe{
		ID:           row.ID,
		Title:        row.Title,
		Ingredients:  []string(row.Ingredients),
		Instructions: []string(row.Instructions),
		Tags:         []string(row.Tags),
		Source:       row.Source,
		Summary:      row.Summary,
		CreatedAt:    row.CreatedAt,
	}
}
