package domain

import "time"

// Category is the semantic grouping of a preference, encoded as the key prefix.
type Category string

// Known preference categories
const (
	CategoryDislike Category = "dislike"
	CategoryLike    Category = "like"
	CategoryCuisine Category = "cuisine"
	CategoryDietary Category = "dietary"
)

// Categories lists all known preference categories in profile order
var Categories = []Category{CategoryDislike, CategoryLike, CategoryCuisine, CategoryDietary}

// Key builds the composite preference key for a value in this category,
// e.g. CategoryDislike.Key("mushrooms") -> "dislike_mushrooms"
func (c Category) Key(value string) string {
	return string(c) + "_" + value
}

// Preference is a single (user, key) fact with a reinforcement counter.
// Frequency counts how many times the same key has been re-asserted;
// it serves as a confidence/recency proxy when ordering preferences.
type Preference struct {
	UserID    string
	Key       string
	Value     string
	Frequency int
	UpdatedAt time.Time
}

// UserProfile is the assembled view of a user's stored preferences,
// rebuilt from the store on every request.
type UserProfile struct {
	Dislikes []string `json:"dislikes"`
	Likes    []string `json:"likes"`
	Cuisines []string `json:"cuisines"`
	Dietary  []string `json:"dietary"`
}

// ExtractionResult lists the preferences newly discovered in a single text
// scan, in order of first match. Values already known to the store are not
// reported again.
type ExtractionResult struct {
	NewDislikes []string `json:"new_dislikes"`
	NewLikes    []string `json:"new_likes"`
	NewCuisines []string `json:"new_cuisines"`
	NewDietary  []string `json:"new_dietary"`
}

// Empty reports whether the scan discovered nothing new
func (r *ExtractionResult) Empty() bool {
	return len(r.NewDislikes) == 0 && len(r.NewLikes) == 0 &&
		len(r.NewCuisines) == 0 && len(r.NewDietary) == 0
}
