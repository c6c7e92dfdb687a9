package catalog

import "strings"

// dishIdeas holds canned dish suggestions keyed by a single ingredient.
// It backs Suggest when the stored catalog has nothing to offer, so a
// fresh install still returns something useful.
var dishIdeas = map[string][]string{
	"chicken":   {"chicken stir-fry with seasonal vegetables", "roast chicken with root vegetables", "chicken noodle soup"},
	"beef":      {"beef and broccoli stir-fry", "slow-braised beef stew", "beef tacos"},
	"pork":      {"pork chops with apples", "pulled pork sandwiches"},
	"fish":      {"pan-seared fish with lemon butter", "fish tacos with slaw"},
	"salmon":    {"baked salmon with dill", "salmon rice bowl"},
	"shrimp":    {"garlic butter shrimp", "shrimp fried rice"},
	"tofu":      {"crispy tofu stir-fry", "mapo tofu"},
	"eggs":      {"vegetable frittata", "shakshuka", "egg fried rice"},
	"pasta":     {"pasta aglio e olio", "pasta with tomato sauce"},
	"rice":      {"vegetable fried rice", "rice pilaf"},
	"potatoes":  {"roasted potatoes with herbs", "potato leek soup"},
	"tomatoes":  {"tomato soup with grilled cheese", "caprese salad"},
	"mushrooms": {"mushroom risotto", "creamy mushroom soup"},
	"beans":     {"three-bean chili", "white bean and kale soup"},
	"lentils":   {"red lentil dal", "lentil soup"},
	"cheese":    {"grilled cheese sandwich", "cheese quesadilla"},
	"broccoli":  {"roasted broccoli with garlic", "broccoli cheddar soup"},
	"spinach":   {"spinach and feta omelette", "creamed spinach"},
}

// fallbackSuggestions returns canned dish ideas for the given
// ingredients, deduplicated, capped at limit
func fallbackSuggestions(ingredients []string, limit int) []string {
	var suggestions []string
	seen := make(map[string]bool)
	for _, ingredient := range ingredients {
		ideas := dishIdeas[strings.ToLower(strings.TrimSpace(ingredient))]
		for _, idea := range ideas {
			if seen[idea] {
				continue
			}
			seen[idea] = true
			suggestions = append(suggestions, idea)
			if len(suggestions) == limit {
				return suggestions
			}
		}
	}
	return suggestions
}
