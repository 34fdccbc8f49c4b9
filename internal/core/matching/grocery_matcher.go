package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// GroceryMatcher 食材庫存方向的比對與批次關聯
type GroceryMatcher struct {
	repo       store.Repository
	strategies []Strategy
	// identity 只含 exact 與單複數，用來判斷是否為同一項食材
	identity []Strategy
}

// NewGroceryMatcher 依序使用 exact、plural、prefix、meat、multi_word 規則
func NewGroceryMatcher(repo store.Repository, cfg *Config) *GroceryMatcher {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	exact, plural := exactMatch(repo), inflectionMatch(repo)
	return &GroceryMatcher{
		repo: repo,
		strategies: []Strategy{
			exact,
			plural,
			prefixContainmentMatch(repo),
			meatTypeMatch(repo, cfg),
			multiWordMatch(repo, cfg),
		},
		identity: []Strategy{exact, plural},
	}
}

// Strategies 回傳規則名稱，依執行順序
func (m *GroceryMatcher) Strategies() []string {
	return strategyNames(m.strategies)
}

// FindGroceryByName 以名稱找出使用者的食材庫存，沒有結果時回傳 nil, nil
func (m *GroceryMatcher) FindGroceryByName(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
	return cascade(ctx, m.strategies, ownerID, name)
}

// FindSameGrocery 只接受同名或單複數變化，不做包含或模糊比對；補貨時用來避免加到別的食材
func (m *GroceryMatcher) FindSameGrocery(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
	return cascade(ctx, m.identity, ownerID, name)
}

// UpdateRelatedIngredients 把同一使用者尚未配對、名稱包含此食材名稱的食譜食材關聯過來
func (m *GroceryMatcher) UpdateRelatedIngredients(ctx context.Context, grocery *common.Grocery) (int, error) {
	if grocery == nil {
		return 0, nil
	}
	n, err := m.repo.LinkUnmatchedIngredients(ctx, grocery.OwnerID, grocery.ID, grocery.Name)
	if err != nil {
		return 0, fmt.Errorf("link ingredients to grocery %d: %w", grocery.ID, err)
	}
	if n > 0 {
		common.LogInfo("Linked related ingredients",
			zap.Int64("grocery_id", grocery.ID),
			zap.Int("count", n),
		)
	}
	return n, nil
}
