// Package availability 判斷食譜能否以目前的食材庫存完成
package availability

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// Snapshot 某個時間點的食材庫存，以 grocery ID 為鍵
type Snapshot map[int64]common.Grocery

// MissingEntry 缺少的食材
type MissingEntry struct {
	IngredientID      int64   `json:"ingredient_id"`
	Name              string  `json:"name"`
	RequiredQuantity  float64 `json:"required_quantity"`
	RequiredUnit      string  `json:"required_unit"`
	AvailableQuantity float64 `json:"available_quantity"`
	AvailableUnit     string  `json:"available_unit"`
}

// Info 食譜可用性
type Info struct {
	Available          bool           `json:"available"`
	MissingIngredients []MissingEntry `json:"missing_ingredients"`
}

// LoadSnapshot 一次載入使用者的全部食材庫存
func LoadSnapshot(ctx context.Context, repo store.Repository, ownerID int64) (Snapshot, error) {
	groceries, err := repo.ListGroceries(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("load pantry for owner %d: %w", ownerID, err)
	}
	snap := make(Snapshot, len(groceries))
	for _, g := range groceries {
		snap[g.ID] = g
	}
	return snap, nil
}

// MissingIngredients 依食材順序列出缺少的項目，limit <= 0 表示不限數量。
// 數量直接比較數值，不做單位換算。
func MissingIngredients(recipe *common.Recipe, pantry Snapshot, limit int) []MissingEntry {
	missing := []MissingEntry{}
	if recipe == nil {
		return missing
	}

	for _, ing := range recipe.Ingredients {
		if limit > 0 && len(missing) >= limit {
			break
		}

		entry := MissingEntry{
			IngredientID:     ing.ID,
			Name:             ing.Name,
			RequiredQuantity: ing.Quantity,
			RequiredUnit:     common.UnitName(ing.Unit),
			AvailableUnit:    common.DefaultUnitName,
		}

		if ing.GroceryID == nil {
			missing = append(missing, entry)
			continue
		}

		g, ok := pantry[*ing.GroceryID]
		if !ok {
			missing = append(missing, entry)
			continue
		}

		if decimal.NewFromFloat(ing.Quantity).GreaterThan(decimal.NewFromFloat(g.Quantity)) {
			entry.AvailableQuantity = g.Quantity
			entry.AvailableUnit = common.UnitName(g.Unit)
			missing = append(missing, entry)
		}
	}

	return missing
}

// Available 只要找到第一個缺少的食材就停止
func Available(recipe *common.Recipe, pantry Snapshot) bool {
	return len(MissingIngredients(recipe, pantry, 1)) == 0
}

// AvailabilityInfo 可用性與缺少清單
func AvailabilityInfo(recipe *common.Recipe, pantry Snapshot, limit int) Info {
	missing := MissingIngredients(recipe, pantry, limit)
	return Info{
		Available:          len(missing) == 0,
		MissingIngredients: missing,
	}
}

// CheckRecipes 以同一份庫存檢查多個食譜，結果以食譜 ID 為鍵
func CheckRecipes(recipes []common.Recipe, pantry Snapshot) map[int64]bool {
	out := make(map[int64]bool, len(recipes))
	for i := range recipes {
		out[recipes[i].ID] = Available(&recipes[i], pantry)
	}
	return out
}
