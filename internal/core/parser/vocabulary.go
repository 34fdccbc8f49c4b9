package parser

import (
	"pantry-recipes/internal/core/text"
)

// Vocabulary 解析器使用的固定詞表，建立後不再修改
type Vocabulary struct {
	PreparationVerbs []string
	SizeAdjectives   []string
	FillerWords      []string
	TrailingPhrases  []string
	LeadingWords     []string
	// Units 將出現在文字中的單位寫法對應到標準名稱
	Units map[string]string
}

var defaultPreparationVerbs = []string{
	"chopped", "diced", "minced", "sliced", "grated", "shredded", "peeled", "cored",
	"crushed", "cubed", "julienned", "mashed", "melted", "softened", "beaten", "whisked",
	"sifted", "toasted", "roasted", "drained", "rinsed", "trimmed", "halved", "quartered",
	"seeded", "pitted", "deveined", "zested", "juiced", "cooked", "thawed", "separated",
	"torn", "crumbled", "blanched", "squeezed", "packed",
}

var defaultSizeAdjectives = []string{
	"extra-large", "extra large", "small", "medium", "large", "jumbo", "big", "mini",
	"tiny", "giant", "heaping", "level", "thick", "thin", "generous", "scant",
}

var defaultFillerWords = []string{
	"freshly", "fresh", "finely", "roughly", "coarsely", "thinly", "thickly", "lightly",
	"very", "well", "approximately", "about",
}

var defaultTrailingPhrases = []string{
	"or to taste", "to taste", "for garnish", "for serving", "to serve", "for decoration",
	"optional", "divided", "as needed", "if needed", "if desired", "plus more", "or more",
	"at room temperature", "room temperature",
}

var defaultLeadingWords = []string{"about", "approximately", "approx.", "around", "roughly"}

// 標準單位名稱
var canonicalUnits = []string{
	"cup", "tablespoon", "teaspoon", "ounce", "pound", "gram", "kilogram", "milligram",
	"milliliter", "liter", "pint", "quart", "gallon", "pinch", "dash", "clove", "can",
	"package", "stick", "slice", "piece", "bunch", "head", "sprig", "stalk", "jar",
	"bottle", "bag", "box", "handful", "sheet", "drop", "inch", "fillet", "container",
	"packet", "envelope", "cube", "whole",
}

// 不規則複數
var irregularUnitPlurals = map[string]string{
	"leaves": "leaf",
	"leaf":   "leaf",
	"loaves": "loaf",
	"loaf":   "loaf",
	"litre":  "liter",
	"litres": "liter",
}

// DefaultVocabulary 建立預設詞表
func DefaultVocabulary() *Vocabulary {
	units := make(map[string]string)
	for _, u := range canonicalUnits {
		units[u] = u
		units[text.Pluralize(u)] = u
	}
	for k, v := range irregularUnitPlurals {
		units[k] = v
	}
	for _, abbr := range []string{"tbsp", "tbsps", "tbs", "tblsp", "tsp", "tsps", "c", "oz", "ozs", "lb", "lbs", "g", "kg", "ml", "l", "pt", "qt", "gal"} {
		units[abbr] = text.CanonicalUnitName(abbr)
	}
	units["pkg"] = "package"

	return &Vocabulary{
		PreparationVerbs: defaultPreparationVerbs,
		SizeAdjectives:   defaultSizeAdjectives,
		FillerWords:      defaultFillerWords,
		TrailingPhrases:  defaultTrailingPhrases,
		LeadingWords:     defaultLeadingWords,
		Units:            units,
	}
}
