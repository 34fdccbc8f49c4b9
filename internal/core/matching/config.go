// Package matching 以固定順序的規則把食譜食材名稱對應到使用者的食材庫存
package matching

// DefaultFuzzyThreshold 三元組相似度的預設門檻
const DefaultFuzzyThreshold = 0.3

// Config 配對參數，建立後不再修改，可安全地被多個 goroutine 共用
type Config struct {
	FuzzyThreshold float64
	// ParentAdjectives 尋找主食材時忽略的描述詞
	ParentAdjectives map[string]bool
	// MeatTypes 肉類關鍵字
	MeatTypes map[string]bool
	// Stopwords 多字比對時忽略的字
	Stopwords map[string]bool
	// MinWordLength 多字比對時有效字的最短長度
	MinWordLength int
}

var defaultParentAdjectives = []string{
	"fresh", "frozen", "dried", "ground", "minced", "chopped", "sliced", "diced",
	"organic", "raw", "canned", "whole", "smoked", "roasted", "grated", "shredded",
}

var defaultMeatTypes = []string{
	"chicken", "beef", "pork", "lamb", "turkey", "veal", "duck", "goat", "bacon",
	"ham", "sausage", "steak", "mince", "salmon", "tuna", "cod", "shrimp", "prawn",
	"fish", "venison",
}

var defaultStopwords = []string{
	"and", "or", "of", "the", "with", "for", "from", "into", "fresh", "large", "small",
	"medium", "whole", "some", "each", "per",
}

// DefaultConfig 預設配對參數
func DefaultConfig() *Config {
	return NewConfig(DefaultFuzzyThreshold)
}

// NewConfig 以指定門檻建立配對參數，門檻不在 (0, 1] 時使用預設值
func NewConfig(threshold float64) *Config {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultFuzzyThreshold
	}
	return &Config{
		FuzzyThreshold:   threshold,
		ParentAdjectives: toSet(defaultParentAdjectives),
		MeatTypes:        toSet(defaultMeatTypes),
		Stopwords:        toSet(defaultStopwords),
		MinWordLength:    3,
	}
}

func toSet(words []string) map[string]bool {
	set := make(map[string]bool, len(words))
	for _, w := range words {
		set[w] = true
	}
	return set
}
