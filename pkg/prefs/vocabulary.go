package prefs

// Vocabulary holds the pattern data the extractor scans with: trigger
// phrases for the dislike/like families and the closed term sets for
// cuisines and dietary restrictions. It is built once at process start;
// the extraction logic never mutates it.
type Vocabulary struct {
	DislikeTriggers []string
	LikeTriggers    []string
	Cuisines        []string
	DietaryTerms    []string
}

// DefaultVocabulary returns the built-in pattern data
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		DislikeTriggers: []string{
			"i don't like",
			"i do not like",
			"i hate",
			"no",
			"not a fan of",
			"avoid",
			"allergic to",
			"can't eat",
			"cannot eat",
		},
		LikeTriggers: []string{
			"i love",
			"i really like",
			"my favorite is",
			"my favourite is",
			"i enjoy",
		},
		Cuisines: []string{
			"italian", "chinese", "mexican", "indian", "thai", "japanese",
			"french", "mediterranean", "korean", "vietnamese", "greek",
			"spanish", "middle eastern", "american",
		},
		DietaryTerms: []string{
			"vegan", "vegetarian", "pescatarian", "gluten-free", "dairy-free",
			"nut-free", "low-carb", "keto", "paleo", "halal", "kosher",
		},
	}
}

// Merge returns a copy of the vocabulary extended with additional cuisine
// and dietary terms, skipping terms already present
func (v Vocabulary) Merge(extraCuisines, extraDietary []string) Vocabulary {
	merged := Vocabulary{
		DislikeTriggers: append([]string(nil), v.DislikeTriggers...),
		LikeTriggers:    append([]string(nil), v.LikeTriggers...),
		Cuisines:        appendMissing(v.Cuisines, extraCuisines),
		DietaryTerms:    appendMissing(v.DietaryTerms, extraDietary),
	}
	return merged
}

func appendMissing(base, extra []string) []string {
	out := append([]string(nil), base...)
	known := make(map[string]bool, len(base))
	for _, term := range base {
		known[term] = true
	}
	for _, term := range extra {
		if term == "" || known[term] {
			continue
		}
		known[term] = true
		out = append(out, term)
	}
	return out
}
