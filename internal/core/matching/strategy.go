package matching

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"pantry-recipes/internal/core/text"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// Finder 單一比對規則，找不到時回傳 nil, nil
type Finder func(ctx context.Context, ownerID int64, name string) (*common.Grocery, error)

// Strategy 具名的比對規則
type Strategy struct {
	Name string
	Find Finder
}

// cascade 依序執行規則，第一個命中者勝出
func cascade(ctx context.Context, strategies []Strategy, ownerID int64, rawName string) (*common.Grocery, error) {
	name := text.Normalize(rawName)
	if name == "" {
		return nil, nil
	}

	for _, s := range strategies {
		g, err := s.Find(ctx, ownerID, name)
		if err != nil {
			return nil, fmt.Errorf("%s match for %q: %w", s.Name, name, err)
		}
		if g != nil {
			common.LogDebug("Grocery matched",
				zap.String("strategy", s.Name),
				zap.String("name", name),
				zap.Int64("grocery_id", g.ID),
			)
			return g, nil
		}
	}

	common.LogDebug("No grocery match", zap.String("name", name), zap.Int64("owner_id", ownerID))
	return nil, nil
}

// exactMatch 名稱完全相同（不分大小寫）
func exactMatch(repo store.Repository) Strategy {
	return Strategy{Name: "exact", Find: func(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
		return repo.FindGroceryByName(ctx, ownerID, name)
	}}
}

// inflectionMatch 單複數變化後完全相同
func inflectionMatch(repo store.Repository) Strategy {
	return Strategy{Name: "plural", Find: func(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
		for _, variant := range text.Inflections(name) {
			g, err := repo.FindGroceryByName(ctx, ownerID, variant)
			if err != nil || g != nil {
				return g, err
			}
		}
		return nil, nil
	}}
}

// parentMatch 去掉描述詞後以最後一個字完全比對，例如 fresh organic spinach → spinach
func parentMatch(repo store.Repository, cfg *Config) Strategy {
	return Strategy{Name: "parent", Find: func(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
		words := strings.Fields(name)
		if len(words) <= 1 {
			return nil, nil
		}
		remaining := words[:0:0]
		for _, w := range words {
			if !cfg.ParentAdjectives[w] {
				remaining = append(remaining, w)
			}
		}
		if len(remaining) == 0 {
			return nil, nil
		}
		return repo.FindGroceryByName(ctx, ownerID, remaining[len(remaining)-1])
	}}
}

// fuzzyMatch 三元組相似度最高者，同分時取編輯距離最小者
func fuzzyMatch(repo store.Repository, cfg *Config) Strategy {
	return Strategy{Name: "fuzzy", Find: func(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
		candidates, err := repo.SimilarGroceries(ctx, ownerID, name, cfg.FuzzyThreshold)
		if err != nil || len(candidates) == 0 {
			return nil, err
		}

		best := candidates[0]
		bestDistance := levenshtein.ComputeDistance(name, strings.ToLower(best.Name))
		for _, c := range candidates[1:] {
			if math.Abs(c.Score-best.Score) > 1e-9 {
				break
			}
			if d := levenshtein.ComputeDistance(name, strings.ToLower(c.Name)); d < bestDistance {
				best, bestDistance = c, d
			}
		}
		g := best.Grocery
		return &g, nil
	}}
}

// prefixContainmentMatch 名稱為食材名稱的開頭、被包含，或食材名稱為其開頭
func prefixContainmentMatch(repo store.Repository) Strategy {
	return Strategy{Name: "prefix", Find: func(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
		for _, filter := range []store.GroceryFilter{
			{Prefix: name, Limit: 1},
			{Contains: name, Limit: 1},
		} {
			found, err := repo.FindGroceries(ctx, ownerID, filter)
			if err != nil || len(found) > 0 {
				return first(found), err
			}
		}

		// 取最長的開頭，peanut 優於 pea
		found, err := repo.FindGroceries(ctx, ownerID, store.GroceryFilter{PrefixOf: name})
		if err != nil || len(found) == 0 {
			return nil, err
		}
		g := found[len(found)-1]
		return &g, nil
	}}
}

// meatTypeMatch 名稱含肉類關鍵字時，以其他描述詞的命中數挑選候選
func meatTypeMatch(repo store.Repository, cfg *Config) Strategy {
	return Strategy{Name: "meat", Find: func(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
		words := tokenize(name)
		meat := ""
		var descriptors []string
		for _, w := range words {
			if meat == "" && (cfg.MeatTypes[w] || cfg.MeatTypes[text.Singularize(w)]) {
				meat = text.Singularize(w)
				continue
			}
			if len(w) >= cfg.MinWordLength && !cfg.Stopwords[w] {
				descriptors = append(descriptors, w)
			}
		}
		if meat == "" {
			return nil, nil
		}

		candidates, err := repo.FindGroceries(ctx, ownerID, store.GroceryFilter{Contains: meat})
		if err != nil || len(candidates) == 0 {
			return nil, err
		}
		if len(descriptors) == 0 {
			return first(candidates), nil
		}

		bestIdx, bestScore := 0, -1
		for i, c := range candidates {
			cname := strings.ToLower(c.Name)
			score := 0
			for _, d := range descriptors {
				if strings.Contains(cname, d) {
					score += 2
				}
			}
			if strings.Contains(cname, words[0]) {
				score++
			}
			if score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		g := candidates[bestIdx]
		return &g, nil
	}}
}

// multiWordMatch 每個命中字 +10，順序一致 +5，第一個字相同 +3
func multiWordMatch(repo store.Repository, cfg *Config) Strategy {
	return Strategy{Name: "multi_word", Find: func(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
		words := significantWords(name, cfg)
		if len(words) == 0 {
			return nil, nil
		}

		candidates, err := repo.FindGroceries(ctx, ownerID, store.GroceryFilter{ContainsAny: words})
		if err != nil || len(candidates) == 0 {
			return nil, err
		}

		bestIdx, bestScore := -1, 0
		for i, c := range candidates {
			if score := multiWordScore(words, strings.ToLower(c.Name)); score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		if bestIdx < 0 {
			return nil, nil
		}
		g := candidates[bestIdx]
		return &g, nil
	}}
}

func multiWordScore(words []string, candidate string) int {
	score := 0
	positions := make([]int, 0, len(words))
	for _, w := range words {
		if idx := strings.Index(candidate, w); idx >= 0 {
			score += 10
			positions = append(positions, idx)
		}
	}
	if score == 0 {
		return 0
	}

	if len(positions) > 1 {
		ordered := true
		for i := 1; i < len(positions); i++ {
			if positions[i] <= positions[i-1] {
				ordered = false
				break
			}
		}
		if ordered {
			score += 5
		}
	}

	if candWords := tokenize(candidate); len(candWords) > 0 && candWords[0] == words[0] {
		score += 3
	}
	return score
}

// tokenize 以空白、逗號、連字號、斜線切字
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', ',', '-', '/':
			return true
		}
		return false
	})
}

func significantWords(name string, cfg *Config) []string {
	var out []string
	for _, w := range tokenize(name) {
		if len(w) >= cfg.MinWordLength && !cfg.Stopwords[w] {
			out = append(out, w)
		}
	}
	return out
}

func first(gs []common.Grocery) *common.Grocery {
	if len(gs) == 0 {
		return nil
	}
	g := gs[0]
	return &g
}
