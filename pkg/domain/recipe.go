package domain

import "time"

// Recipe is a stored recipe, either saved by a user, ingested from a
// catalog source, or produced by the generator.
type Recipe struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Ingredients  []string  `json:"ingredients"`
	Instructions []string  `json:"instructions"`
	Tags         []string  `json:"tags"`
	Source       string    `json:"source"` // origin URL, empty for user-saved
	Summary      string    `json:"summary"`
	CreatedAt    time.Time `json:"created_at"`
}

// GeneratedRecipe is a recipe produced by the AI chef. MissingIngredients
// lists what the user would need on top of their stated ingredients.
type GeneratedRecipe struct {
	Title              string   `json:"title"`
	Ingredients        []string `json:"ingredients"`
	Instructions       []string `json:"instructions"`
	MissingIngredients []string `json:"missing_ingredients"`
}

// CartItem represents a simulated shopping-cart addition for a missing
// ingredient. Real marketplace integration needs a user session, so the
// cart step only reports what would be added.
type CartItem struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}
