// Package jobs 背景配對工作：工作定義、隊列與重試派送
package jobs

import (
	"context"
	"time"

	"pantry-recipes/internal/pkg/common"
)

// Type 工作類型
type Type string

const (
	// TypeMatchIngredient 為單一食譜食材尋找食材庫存
	TypeMatchIngredient Type = "match_ingredient"
	// TypeLinkGrocery 把食材庫存批次關聯到尚未配對的食譜食材
	TypeLinkGrocery Type = "link_grocery"
)

// Job 工作內容只放 ID，執行時再讀取最新資料
type Job struct {
	ID           string    `json:"id"`
	Type         Type      `json:"type"`
	OwnerID      int64     `json:"owner_id"`
	IngredientID int64     `json:"ingredient_id,omitempty"`
	GroceryID    int64     `json:"grocery_id,omitempty"`
	Force        bool      `json:"force,omitempty"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// NewMatchIngredientJob 建立食材配對工作；force 會覆寫既有關聯
func NewMatchIngredientJob(ingredientID, ownerID int64, force bool) Job {
	return Job{
		ID:           common.GenerateUUID(),
		Type:         TypeMatchIngredient,
		OwnerID:      ownerID,
		IngredientID: ingredientID,
		Force:        force,
		EnqueuedAt:   time.Now(),
	}
}

// NewLinkGroceryJob 建立食材庫存批次關聯工作
func NewLinkGroceryJob(groceryID, ownerID int64) Job {
	return Job{
		ID:         common.GenerateUUID(),
		Type:       TypeLinkGrocery,
		OwnerID:    ownerID,
		GroceryID:  groceryID,
		EnqueuedAt: time.Now(),
	}
}

// EntityID 工作處理的主要實體 ID
func (j Job) EntityID() int64 {
	if j.Type == TypeLinkGrocery {
		return j.GroceryID
	}
	return j.IngredientID
}

// Queue 提交工作，不等待結果
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
}

// Handler 執行單一工作
type Handler func(ctx context.Context, job Job) error

// Status 隊列狀態
type Status struct {
	Backend        string `json:"backend"`
	QueueLength    int    `json:"queue_length"`
	ProcessedCount int64  `json:"processed_count"`
	FailedCount    int64  `json:"failed_count"`
	MaxQueueSize   int    `json:"max_queue_size"`
	Workers        int    `json:"workers"`
}
