// Package store 定義資料存取介面，實作位於 memory 與 postgres 子套件
package store

import (
	"context"
	"errors"

	"pantry-recipes/internal/pkg/common"
)

var (
	// ErrNotFound 資料不存在，或不屬於查詢的使用者
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate 違反唯一性限制
	ErrDuplicate = errors.New("duplicate record")
)

// GroceryFilter 食材查詢條件，非空欄位之間為 AND
type GroceryFilter struct {
	// Prefix 名稱以此開頭
	Prefix string
	// Contains 名稱包含此字串
	Contains string
	// ContainsAny 名稱包含任一字串
	ContainsAny []string
	// PrefixOf 名稱是此字串的開頭
	PrefixOf string
	Limit    int
}

// ScoredGrocery 帶相似度分數的食材
type ScoredGrocery struct {
	common.Grocery
	Score float64
}

// Repository 資料存取操作，所有名稱比對皆以小寫進行
type Repository interface {
	// 單位
	FindUnit(ctx context.Context, name string) (*common.Unit, error)
	GetUnit(ctx context.Context, id int64) (*common.Unit, error)
	CreateUnit(ctx context.Context, unit *common.Unit) error

	// 食材庫存
	CreateGrocery(ctx context.Context, grocery *common.Grocery) error
	UpdateGrocery(ctx context.Context, grocery *common.Grocery) error
	DeleteGrocery(ctx context.Context, ownerID, id int64) error
	GetGrocery(ctx context.Context, ownerID, id int64) (*common.Grocery, error)
	ListGroceries(ctx context.Context, ownerID int64) ([]common.Grocery, error)
	FindGroceryByName(ctx context.Context, ownerID int64, name string) (*common.Grocery, error)
	FindGroceries(ctx context.Context, ownerID int64, filter GroceryFilter) ([]common.Grocery, error)
	SimilarGroceries(ctx context.Context, ownerID int64, name string, threshold float64) ([]ScoredGrocery, error)

	// 食譜
	CreateRecipe(ctx context.Context, recipe *common.Recipe) error
	UpdateRecipe(ctx context.Context, recipe *common.Recipe) error
	GetRecipe(ctx context.Context, ownerID, id int64) (*common.Recipe, error)
	ListRecipes(ctx context.Context, ownerID int64) ([]common.Recipe, error)
	DeleteRecipe(ctx context.Context, ownerID, id int64) error

	// 食譜食材
	CreateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error
	UpdateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error
	DeleteIngredient(ctx context.Context, id int64) error
	GetIngredient(ctx context.Context, id int64) (*common.RecipeIngredient, error)
	SetIngredientGrocery(ctx context.Context, ingredientID int64, groceryID *int64) error
	LinkUnmatchedIngredients(ctx context.Context, ownerID, groceryID int64, name string) (int, error)
}

// Store 可開啟交易的資料存取
type Store interface {
	Repository
	Begin(ctx context.Context) (Tx, error)
	Ping(ctx context.Context) error
	Close() error
}

// Tx 交易，Commit 後呼叫 Rollback 不會有任何作用
type Tx interface {
	Repository
	Commit() error
	Rollback() error
}
