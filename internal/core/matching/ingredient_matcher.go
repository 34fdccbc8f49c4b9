package matching

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// IngredientMatcher 食材名稱 → 食材庫存
type IngredientMatcher struct {
	repo       store.Repository
	cfg        *Config
	strategies []Strategy
}

// NewIngredientMatcher 依序使用 exact、plural、parent、fuzzy 規則
func NewIngredientMatcher(repo store.Repository, cfg *Config) *IngredientMatcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &IngredientMatcher{
		repo: repo,
		cfg:  cfg,
		strategies: []Strategy{
			exactMatch(repo),
			inflectionMatch(repo),
			parentMatch(repo, cfg),
			fuzzyMatch(repo, cfg),
		},
	}
}

// Strategies 回傳規則名稱，依執行順序
func (m *IngredientMatcher) Strategies() []string {
	return strategyNames(m.strategies)
}

// MatchIngredientToGrocery 找出最適合的食材庫存，沒有結果時回傳 nil, nil
func (m *IngredientMatcher) MatchIngredientToGrocery(ctx context.Context, ownerID int64, rawName string) (*common.Grocery, error) {
	return cascade(ctx, m.strategies, ownerID, rawName)
}

// LinkIngredient 為單一食材配對並寫入關聯；已配對時除非 force 否則不做事，重複執行結果相同
func (m *IngredientMatcher) LinkIngredient(ctx context.Context, ingredientID, ownerID int64, force bool) (*common.Grocery, error) {
	ing, err := m.repo.GetIngredient(ctx, ingredientID)
	if errors.Is(err, store.ErrNotFound) {
		common.LogDebug("Ingredient gone before matching", zap.Int64("ingredient_id", ingredientID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load ingredient %d: %w", ingredientID, err)
	}

	// 食譜必須屬於同一使用者
	if _, err := m.repo.GetRecipe(ctx, ownerID, ing.RecipeID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			common.LogWarn("Ingredient does not belong to owner",
				zap.Int64("ingredient_id", ingredientID),
				zap.Int64("owner_id", ownerID),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("load recipe %d: %w", ing.RecipeID, err)
	}

	if ing.Matched() && !force {
		return nil, nil
	}

	g, err := m.MatchIngredientToGrocery(ctx, ownerID, ing.Name)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, nil
	}
	if common.SameID(ing.GroceryID, &g.ID) {
		return g, nil
	}

	if err := m.repo.SetIngredientGrocery(ctx, ing.ID, &g.ID); err != nil {
		return nil, fmt.Errorf("link ingredient %d: %w", ing.ID, err)
	}

	common.LogInfo("Ingredient linked",
		zap.Int64("ingredient_id", ing.ID),
		zap.Int64("grocery_id", g.ID),
	)
	return g, nil
}

func strategyNames(strategies []Strategy) []string {
	names := make([]string, len(strategies))
	for i, s := range strategies {
		names[i] = s.Name
	}
	return names
}
