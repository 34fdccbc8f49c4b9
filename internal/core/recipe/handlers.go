package recipe

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"pantry-recipes/internal/core/jobs"
	"pantry-recipes/internal/core/matching"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// RegisterJobHandlers 註冊配對工作的處理器
func RegisterJobHandlers(d *jobs.Dispatcher, repo store.Repository, im *matching.IngredientMatcher, gm *matching.GroceryMatcher) {
	d.Register(jobs.TypeMatchIngredient, func(ctx context.Context, job jobs.Job) error {
		_, err := im.LinkIngredient(ctx, job.IngredientID, job.OwnerID, job.Force)
		return err
	})

	d.Register(jobs.TypeLinkGrocery, func(ctx context.Context, job jobs.Job) error {
		g, err := repo.GetGrocery(ctx, job.OwnerID, job.GroceryID)
		if errors.Is(err, store.ErrNotFound) {
			common.LogDebug("Grocery gone before linking", zap.Int64("grocery_id", job.GroceryID))
			return nil
		}
		if err != nil {
			return err
		}
		_, err = gm.UpdateRelatedIngredients(ctx, g)
		return err
	})
}
