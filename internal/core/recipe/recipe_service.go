package recipe

import (
	"context"

	"pantry-recipes/internal/core/availability"
	"pantry-recipes/internal/pkg/common"
)

// RecipeService 食譜查詢與可用性檢查
type RecipeService struct {
	*Service
}

// NewRecipeService 創建新的食譜查詢服務
func NewRecipeService(base *Service) *RecipeService {
	return &RecipeService{Service: base}
}

// GetRecipe 取得使用者的食譜
func (s *RecipeService) GetRecipe(ctx context.Context, ownerID, id int64) (*common.Recipe, error) {
	return s.store.GetRecipe(ctx, ownerID, id)
}

// ListRecipes 列出食譜並標示能否以目前庫存完成；庫存只載入一次
func (s *RecipeService) ListRecipes(ctx context.Context, ownerID int64) ([]RecipeSummary, error) {
	recipes, err := s.store.ListRecipes(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	pantry, err := availability.LoadSnapshot(ctx, s.store, ownerID)
	if err != nil {
		return nil, err
	}

	available := availability.CheckRecipes(recipes, pantry)
	out := make([]RecipeSummary, 0, len(recipes))
	for _, r := range recipes {
		out = append(out, RecipeSummary{Recipe: r, Available: available[r.ID]})
	}
	return out, nil
}

// Availability 列出食譜缺少的食材，limit <= 0 表示全部列出
func (s *RecipeService) Availability(ctx context.Context, ownerID, id int64, limit int) (*availability.Info, error) {
	recipe, err := s.store.GetRecipe(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	pantry, err := availability.LoadSnapshot(ctx, s.store, ownerID)
	if err != nil {
		return nil, err
	}
	info := availability.AvailabilityInfo(recipe, pantry, limit)
	return &info, nil
}
