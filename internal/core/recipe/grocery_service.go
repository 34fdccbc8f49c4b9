package recipe

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pantry-recipes/internal/core/jobs"
	"pantry-recipes/internal/core/matching"
	"pantry-recipes/internal/core/text"
	"pantry-recipes/internal/pkg/common"
)

// EmojiSuggester 依食材名稱建議表情符號
type EmojiSuggester interface {
	Suggest(name string) string
}

// GroceryService 食材庫存服務；新增或改名後送出反向配對工作
type GroceryService struct {
	*Service
	matcher *matching.GroceryMatcher
	emoji   EmojiSuggester
}

// NewGroceryService 創建新的食材庫存服務；emoji 可為 nil
func NewGroceryService(base *Service, matcher *matching.GroceryMatcher, emoji EmojiSuggester) *GroceryService {
	return &GroceryService{
		Service: base,
		matcher: matcher,
		emoji:   emoji,
	}
}

// CreateGrocery 建立食材庫存，名稱轉小寫且同一使用者內唯一
func (s *GroceryService) CreateGrocery(ctx context.Context, ownerID int64, in GroceryInput) (*common.Grocery, error) {
	name := text.CollapseSpaces(text.Normalize(in.Name))
	if err := validateGrocery(name, in.Quantity); err != nil {
		return nil, err
	}

	g := &common.Grocery{
		OwnerID:   ownerID,
		Name:      name,
		Quantity:  text.FormatQuantity(in.Quantity),
		SectionID: in.SectionID,
		Emoji:     in.Emoji,
	}
	if g.Emoji == "" {
		g.Emoji = s.suggestEmoji(name)
	}
	if in.UnitName != "" {
		unitID, res := resolveUnit(ctx, s.store, in.UnitName)
		if res.Failed() {
			return nil, res.Err
		}
		g.UnitID = unitID
	}

	if err := s.store.CreateGrocery(ctx, g); err != nil {
		return nil, fmt.Errorf("create grocery %q: %w", name, err)
	}

	common.LogInfo("Grocery created",
		zap.Int64("grocery_id", g.ID),
		zap.Int64("owner_id", ownerID),
		zap.String("emoji", g.Emoji),
	)
	s.enqueue(ctx, jobs.NewLinkGroceryJob(g.ID, ownerID))
	return g, nil
}

// UpdateGrocery 部分更新；改名時重新送出反向配對工作
func (s *GroceryService) UpdateGrocery(ctx context.Context, ownerID, id int64, in GroceryUpdate) (*common.Grocery, error) {
	g, err := s.store.GetGrocery(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	renamed := false
	if in.Name != nil {
		name := text.CollapseSpaces(text.Normalize(*in.Name))
		renamed = name != g.Name
		g.Name = name
	}
	if in.Quantity != nil {
		g.Quantity = text.FormatQuantity(*in.Quantity)
	}
	if in.SectionID != nil {
		g.SectionID = in.SectionID
	}
	if in.Emoji != nil {
		g.Emoji = *in.Emoji
	}
	if err := validateGrocery(g.Name, g.Quantity); err != nil {
		return nil, err
	}
	if in.UnitName != nil {
		unitID, res := resolveUnit(ctx, s.store, *in.UnitName)
		if res.Failed() {
			return nil, res.Err
		}
		g.UnitID = unitID
	}

	g.Unit = nil
	if err := s.store.UpdateGrocery(ctx, g); err != nil {
		return nil, fmt.Errorf("update grocery %d: %w", id, err)
	}
	if renamed {
		s.enqueue(ctx, jobs.NewLinkGroceryJob(g.ID, ownerID))
	}
	return g, nil
}

// AddToPantry 購買後加入庫存：找得到同名（含單複數）的食材就累加數量，否則新建
func (s *GroceryService) AddToPantry(ctx context.Context, ownerID int64, in PantryInput) (*common.Grocery, bool, error) {
	if err := validateGrocery(in.Name, in.Quantity); err != nil {
		return nil, false, err
	}

	existing, err := s.matcher.FindSameGrocery(ctx, ownerID, in.Name)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		g, err := s.CreateGrocery(ctx, ownerID, GroceryInput{
			Name:     in.Name,
			Quantity: in.Quantity,
			UnitName: in.UnitName,
		})
		return g, err == nil, err
	}

	total := decimal.NewFromFloat(existing.Quantity).Add(decimal.NewFromFloat(in.Quantity))
	existing.Quantity = text.FormatQuantity(total.InexactFloat64())
	existing.Unit = nil
	if err := s.store.UpdateGrocery(ctx, existing); err != nil {
		return nil, false, fmt.Errorf("restock grocery %d: %w", existing.ID, err)
	}

	common.LogDebug("Grocery restocked",
		zap.Int64("grocery_id", existing.ID),
		zap.String("query", in.Name),
		zap.Float64("quantity", existing.Quantity),
	)
	return existing, false, nil
}

// DeleteGrocery 刪除食材庫存，關聯的食譜食材變回未配對
func (s *GroceryService) DeleteGrocery(ctx context.Context, ownerID, id int64) error {
	if err := s.store.DeleteGrocery(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete grocery %d: %w", id, err)
	}
	return nil
}

// ListGroceries 列出使用者的食材庫存
func (s *GroceryService) ListGroceries(ctx context.Context, ownerID int64) ([]common.Grocery, error) {
	return s.store.ListGroceries(ctx, ownerID)
}

func (s *GroceryService) suggestEmoji(name string) string {
	if s.emoji == nil {
		return ""
	}
	return s.emoji.Suggest(name)
}
