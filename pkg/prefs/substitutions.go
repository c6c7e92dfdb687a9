package prefs

import "strings"

// SubstitutionTable maps a dietary tag and a lower-cased ingredient name
// to an ordered list of substitutes. Entries are static for the process
// lifetime; the resolver never mutates the table.
type SubstitutionTable map[string]map[string][]string

// DefaultSubstitutions returns the built-in substitution seed data.
// Callers depend on the exact contents, including substitute order.
func DefaultSubstitutions() SubstitutionTable {
	return SubstitutionTable{
		"gluten-free": {
			"pasta":     {"gluten-free pasta", "rice noodles", "quinoa"},
			"flour":     {"almond flour", "coconut flour", "rice flour"},
			"bread":     {"gluten-free bread", "lettuce wraps"},
			"soy sauce": {"tamari", "coconut aminos"},
		},
		"vegan": {
			"cheese": {"vegan cheese", "nutritional yeast"},
			"milk":   {"almond milk", "soy milk", "oat milk"},
			"butter": {"vegan butter", "coconut oil"},
			"eggs":   {"flax eggs", "aquafaba"},
			"meat":   {"tofu", "tempeh", "seitan", "mushrooms"},
		},
		"dairy-free": {
			"milk":   {"almond milk", "soy milk", "oat milk"},
			"cheese": {"dairy-free cheese", "nutritional yeast"},
			"butter": {"dairy-free butter", "coconut oil"},
			"yogurt": {"coconut yogurt", "almond yogurt"},
		},
		"low-carb": {
			"pasta":    {"zucchini noodles", "spaghetti squash"},
			"rice":     {"cauliflower rice"},
			"bread":    {"lettuce wraps", "portobello mushroom caps"},
			"potatoes": {"turnips", "radishes"},
		},
	}
}

// Merge returns a table extended with override entries. Overrides replace
// the substitute list for an existing (tag, ingredient) pair and add new
// pairs or tags; they never remove seed entries.
func (t SubstitutionTable) Merge(overrides SubstitutionTable) SubstitutionTable {
	merged := make(SubstitutionTable, len(t))
	for tag, ingredients := range t {
		merged[tag] = make(map[string][]string, len(ingredients))
		for name, subs := range ingredients {
			merged[tag][name] = append([]string(nil), subs...)
		}
	}
	for tag, ingredients := range overrides {
		if merged[tag] == nil {
			merged[tag] = make(map[string][]string, len(ingredients))
		}
		for name, subs := range ingredients {
			merged[tag][strings.ToLower(name)] = append([]string(nil), subs...)
		}
	}
	return merged
}

// Resolver answers ingredient substitution queries against a static table
type Resolver struct {
	table SubstitutionTable
}

// NewResolver creates a resolver over the given table
func NewResolver(table SubstitutionTable) *Resolver {
	return &Resolver{table: table}
}

// Resolve returns the substitutes for an ingredient under the given
// dietary tags. Tags are looked up in caller-supplied order and the
// combined list is de-duplicated preserving first-seen order. An unknown
// tag or ingredient contributes nothing; an empty result means "no known
// substitute".
func (r *Resolver) Resolve(tags []string, ingredient string) []string {
	name := strings.ToLower(strings.TrimSpace(ingredient))

	var combined []string
	for _, tag := range tags {
		ingredients, ok := r.table[strings.ToLower(tag)]
		if !ok {
			continue
		}
		combined = append(combined, ingredients[name]...)
	}

	seen := make(map[string]bool, len(combined))
	result := make([]string, 0, len(combined))
	for _, sub := range combined {
		if seen[sub] {
			continue
		}
		seen[sub] = true
		result = append(result, sub)
	}
	return result
}

// Mentioned scans free text for ingredients that are restricted under
// the given dietary tags and returns their substitutes. Matching is a
// lower-cased substring check, same as the extractor's vocabularies.
func (r *Resolver) Mentioned(tags []string, text string) map[string][]string {
	lowered := strings.ToLower(text)
	found := make(map[string][]string)
	for _, tag := range tags {
		for ingredient := range r.table[strings.ToLower(tag)] {
			if _, ok := found[ingredient]; ok {
				continue
			}
			if strings.Contains(lowered, ingredient) {
				found[ingredient] = r.Resolve(tags, ingredient)
			}
		}
	}
	return found
}
