package recipe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"pantry-recipes/internal/core/jobs"
	"pantry-recipes/internal/core/text"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

const genericSaveError = "Failed to save recipe, please try again"

// IngredientService 食譜建立流程：解析食材文字、建立單位與食材，提交後送出配對工作
type IngredientService struct {
	*Service
}

// NewIngredientService 創建新的食譜食材服務
func NewIngredientService(base *Service) *IngredientService {
	return &IngredientService{Service: base}
}

// CreateRecipe 在單一交易中建立食譜與全部食材；任何需要回滾的步驟失敗時整筆取消
func (s *IngredientService) CreateRecipe(ctx context.Context, ownerID int64, in RecipeInput) Result[*common.Recipe] {
	if err := validateRecipe(in); err != nil {
		return fail[*common.Recipe](common.ErrCodeValidation, common.ValidationMessages(err)...)
	}

	parsed := s.ParseIngredients(in.IngredientsText)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		common.LogError("Failed to begin transaction", zap.Int64("owner_id", ownerID), zap.Error(err))
		return fail[*common.Recipe](common.ErrCodeInternalError, genericSaveError)
	}
	defer tx.Rollback()

	recipe := &common.Recipe{
		OwnerID:      ownerID,
		Name:         strings.TrimSpace(in.Name),
		Instructions: in.Instructions,
		Notes:        appendNotes(in.Notes, parsed.Notes),
		CategoryID:   in.CategoryID,
		PrepTime:     in.PrepTime,
		CookTime:     in.CookTime,
		Servings:     in.Servings,
	}
	if err := tx.CreateRecipe(ctx, recipe); err != nil {
		return s.abort(tx, ownerID, StepResult{Step: "create recipe", Err: err, Datastore: true})
	}

	created, warnings, failed := s.createIngredients(ctx, tx, recipe.ID, parsed.Ingredients)
	if failed != nil {
		return s.abort(tx, ownerID, *failed)
	}

	if err := tx.Commit(); err != nil {
		return s.abort(tx, ownerID, StepResult{Step: "commit", Err: err, Datastore: true})
	}

	for _, ing := range created {
		s.enqueue(ctx, jobs.NewMatchIngredientJob(ing.ID, ownerID, false))
	}

	common.LogInfo("Recipe created",
		zap.Int64("recipe_id", recipe.ID),
		zap.Int64("owner_id", ownerID),
		zap.Int("ingredients", len(created)),
		zap.Int("warnings", len(warnings)),
	)
	return succeed(s.reload(ctx, ownerID, recipe, created), warnings)
}

// ReplaceIngredients 以新的食材文字取代食譜的食材；同名食材保留原本的配對，其餘刪除或新建
func (s *IngredientService) ReplaceIngredients(ctx context.Context, ownerID, recipeID int64, raw string) Result[*common.Recipe] {
	parsed := s.ParseIngredients(raw)

	tx, err := s.store.Begin(ctx)
	if err != nil {
		common.LogError("Failed to begin transaction", zap.Int64("owner_id", ownerID), zap.Error(err))
		return fail[*common.Recipe](common.ErrCodeInternalError, genericSaveError)
	}
	defer tx.Rollback()

	recipe, err := tx.GetRecipe(ctx, ownerID, recipeID)
	if errors.Is(err, store.ErrNotFound) {
		return fail[*common.Recipe](common.ErrCodeNotFound, "Recipe not found")
	}
	if err != nil {
		return s.abort(tx, ownerID, StepResult{Step: "load recipe", Err: err, Datastore: true})
	}

	// 依名稱保留既有食材
	existing := make(map[string][]common.RecipeIngredient)
	for _, ing := range recipe.Ingredients {
		existing[ing.Name] = append(existing[ing.Name], ing)
	}

	var (
		kept     []common.RecipeIngredient
		drafts   []common.ParsedIngredient
		warnings []string
	)
	for _, draft := range parsed.Ingredients {
		same := existing[draft.Name]
		if len(same) == 0 {
			drafts = append(drafts, draft)
			continue
		}
		ing := same[0]
		existing[draft.Name] = same[1:]

		unitID, res := resolveUnit(ctx, tx, draft.UnitName)
		if res.RequiresRollback() {
			return s.abort(tx, ownerID, res)
		}
		if res.Warning != "" {
			warnings = append(warnings, res.Warning)
		}
		if err := validateDraft(draft); err != nil {
			return s.abort(tx, ownerID, StepResult{Step: "update ingredient", Err: err})
		}
		ing.Quantity = text.FormatQuantity(draft.Quantity)
		ing.UnitID = unitID
		ing.Preparation = draft.Preparation
		ing.Size = draft.Size
		ing.Unit = nil
		if err := tx.UpdateIngredient(ctx, &ing); err != nil {
			return s.abort(tx, ownerID, StepResult{Step: "update ingredient", Err: err, Datastore: true})
		}
		kept = append(kept, ing)
	}

	for _, rest := range existing {
		for _, ing := range rest {
			if err := tx.DeleteIngredient(ctx, ing.ID); err != nil {
				return s.abort(tx, ownerID, StepResult{Step: "delete ingredient", Err: err, Datastore: true})
			}
		}
	}

	created, more, failed := s.createIngredients(ctx, tx, recipe.ID, drafts)
	if failed != nil {
		return s.abort(tx, ownerID, *failed)
	}
	warnings = append(warnings, more...)

	if notes := appendNotes(recipe.Notes, parsed.Notes); notes != recipe.Notes {
		recipe.Notes = notes
		recipe.Ingredients = nil
		if err := tx.UpdateRecipe(ctx, recipe); err != nil {
			return s.abort(tx, ownerID, StepResult{Step: "update recipe notes", Err: err, Datastore: true})
		}
	}

	if err := tx.Commit(); err != nil {
		return s.abort(tx, ownerID, StepResult{Step: "commit", Err: err, Datastore: true})
	}

	for _, ing := range append(kept, created...) {
		if !ing.Matched() {
			s.enqueue(ctx, jobs.NewMatchIngredientJob(ing.ID, ownerID, false))
		}
	}
	return succeed(s.reload(ctx, ownerID, recipe, append(kept, created...)), warnings)
}

// RenameIngredient 更改食材名稱，清除原本的配對並重新配對
func (s *IngredientService) RenameIngredient(ctx context.Context, ownerID, ingredientID int64, name string) (*common.RecipeIngredient, error) {
	name = text.CollapseSpaces(text.Normalize(name))
	if name == "" {
		return nil, common.NewValidationError("Name can't be blank")
	}

	ing, err := s.store.GetIngredient(ctx, ingredientID)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetRecipe(ctx, ownerID, ing.RecipeID); err != nil {
		return nil, err
	}
	if ing.Name == name {
		return ing, nil
	}

	ing.Name = name
	ing.GroceryID = nil
	ing.Unit = nil
	if err := s.store.UpdateIngredient(ctx, ing); err != nil {
		return nil, fmt.Errorf("rename ingredient %d: %w", ingredientID, err)
	}

	s.enqueue(ctx, jobs.NewMatchIngredientJob(ing.ID, ownerID, true))
	return ing, nil
}

// createIngredients 逐筆建立食材；回傳第一個需要回滾的步驟
func (s *IngredientService) createIngredients(ctx context.Context, tx store.Repository, recipeID int64, drafts []common.ParsedIngredient) ([]common.RecipeIngredient, []string, *StepResult) {
	var (
		created  []common.RecipeIngredient
		warnings []string
	)
	for _, draft := range drafts {
		ing, res := s.createIngredient(ctx, tx, recipeID, draft)
		if res.RequiresRollback() {
			return nil, nil, &res
		}
		if res.Failed() {
			warnings = append(warnings, res.Err.Error())
			continue
		}
		if res.Warning != "" {
			warnings = append(warnings, res.Warning)
		}
		created = append(created, *ing)
	}
	return created, warnings, nil
}

func (s *IngredientService) createIngredient(ctx context.Context, tx store.Repository, recipeID int64, draft common.ParsedIngredient) (*common.RecipeIngredient, StepResult) {
	step := "create ingredient " + draft.Name
	if err := validateDraft(draft); err != nil {
		return nil, StepResult{Step: step, Err: err}
	}

	unitID, res := resolveUnit(ctx, tx, draft.UnitName)
	if res.Failed() {
		return nil, res
	}

	ing := &common.RecipeIngredient{
		RecipeID:    recipeID,
		Name:        text.Normalize(draft.Name),
		Quantity:    text.FormatQuantity(draft.Quantity),
		UnitID:      unitID,
		Preparation: draft.Preparation,
		Size:        draft.Size,
	}
	if err := tx.CreateIngredient(ctx, ing); err != nil {
		return nil, StepResult{
			Step:      step,
			Err:       fmt.Errorf("%s %q: %w", common.IngredientCreationErrorPrefix, draft.Name, err),
			Datastore: true,
		}
	}
	return ing, StepResult{Step: step, Warning: res.Warning}
}

// validateDraft 食材名稱必填、數量必須大於 0
func validateDraft(draft common.ParsedIngredient) error {
	var msgs []string
	if strings.TrimSpace(draft.Name) == "" {
		msgs = append(msgs, "name can't be blank")
	}
	if text.FormatQuantity(draft.Quantity) <= 0 {
		msgs = append(msgs, "quantity must be greater than 0")
	}
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%s %q: %s", common.IngredientCreationErrorPrefix, draft.Name, common.StringSliceToString(msgs))
}

// abort 明確回滾交易；資料存取錯誤只寫日誌，回傳通用訊息
func (s *IngredientService) abort(tx store.Tx, ownerID int64, res StepResult) Result[*common.Recipe] {
	if err := tx.Rollback(); err != nil {
		common.LogError("Failed to roll back recipe transaction", zap.Error(err))
	}

	if res.Datastore {
		common.LogError("Recipe save rolled back",
			zap.String("step", res.Step),
			zap.Int64("owner_id", ownerID),
			zap.Error(res.Err),
		)
		if strings.Contains(res.Err.Error(), common.IngredientCreationErrorPrefix) {
			return fail[*common.Recipe](common.ErrCodeInternalError, common.IngredientCreationErrorPrefix)
		}
		return fail[*common.Recipe](common.ErrCodeInternalError, genericSaveError)
	}

	common.LogWarn("Recipe save rolled back",
		zap.String("step", res.Step),
		zap.Int64("owner_id", ownerID),
		zap.String("reason", res.Err.Error()),
	)
	return fail[*common.Recipe](common.ErrCodeValidation, res.Err.Error())
}

// reload 提交後重新讀取食譜；讀取失敗時回傳記憶體中的內容
func (s *IngredientService) reload(ctx context.Context, ownerID int64, recipe *common.Recipe, ingredients []common.RecipeIngredient) *common.Recipe {
	fresh, err := s.store.GetRecipe(ctx, ownerID, recipe.ID)
	if err == nil {
		return fresh
	}
	common.LogWarn("Failed to reload recipe", zap.Int64("recipe_id", recipe.ID), zap.Error(err))
	recipe.Ingredients = ingredients
	return recipe
}
