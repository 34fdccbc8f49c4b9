package recipe

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"pantry-recipes/internal/core/text"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// resolveUnit 依名稱或縮寫找出單位，找不到時以關鍵字自動分類後建立
func resolveUnit(ctx context.Context, repo store.Repository, name string) (*int64, StepResult) {
	name = text.CanonicalUnitName(text.Normalize(name))
	if name == "" {
		name = common.DefaultUnitName
	}
	step := "resolve unit " + name

	unit, err := repo.FindUnit(ctx, name)
	if err != nil {
		return nil, StepResult{Step: step, Err: fmt.Errorf("find unit %q: %w", name, err), Datastore: true}
	}
	if unit != nil {
		return &unit.ID, StepResult{Step: step}
	}

	unit = &common.Unit{
		Name:         name,
		Abbreviation: name,
		Category:     text.ClassifyUnitCategory(name),
	}
	if err := repo.CreateUnit(ctx, unit); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, StepResult{
				Step:    step,
				Warning: fmt.Sprintf("Unit %q conflicts with an existing unit and was not saved", name),
			}
		}
		return nil, StepResult{Step: step, Err: fmt.Errorf("create unit %q: %w", name, err), Datastore: true}
	}

	common.LogInfo("Unit created",
		zap.String("unit", unit.Name),
		zap.String("category", string(unit.Category)),
	)
	return &unit.ID, StepResult{Step: step}
}
