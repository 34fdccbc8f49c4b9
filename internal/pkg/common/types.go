package common

import (
	"time"
)

// UnitCategory 單位分類
type UnitCategory string

const (
	UnitCategoryVolume UnitCategory = "volume"
	UnitCategoryWeight UnitCategory = "weight"
	UnitCategoryLength UnitCategory = "length"
	UnitCategoryCount  UnitCategory = "count"
	UnitCategoryOther  UnitCategory = "other"
)

// DefaultUnitName 無法解析單位時使用的單位
const DefaultUnitName = "whole"

// Unit 計量單位
type Unit struct {
	ID           int64        `json:"id" gorm:"primaryKey"`
	Name         string       `json:"name" gorm:"uniqueIndex;not null"`
	Category     UnitCategory `json:"category" gorm:"type:varchar(16);not null;default:other"`
	Abbreviation string       `json:"abbreviation" gorm:"uniqueIndex;not null"`
}

// Grocery 食材庫存項目，名稱以小寫儲存且同一使用者內唯一
type Grocery struct {
	ID        int64   `json:"id" gorm:"primaryKey"`
	OwnerID   int64   `json:"owner_id" gorm:"uniqueIndex:idx_grocery_owner_name;not null"`
	Name      string  `json:"name" gorm:"uniqueIndex:idx_grocery_owner_name;not null"`
	Quantity  float64 `json:"quantity" gorm:"type:decimal(12,2);not null;default:0"`
	UnitID    *int64  `json:"unit_id,omitempty"`
	SectionID *int64  `json:"section_id,omitempty"`
	Emoji     string  `json:"emoji,omitempty"`
	Unit      *Unit   `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
}

// Recipe 食譜
type Recipe struct {
	ID           int64              `json:"id" gorm:"primaryKey"`
	OwnerID      int64              `json:"owner_id" gorm:"index;not null"`
	Name         string             `json:"name" gorm:"not null"`
	Instructions string             `json:"instructions"`
	Notes        string             `json:"notes"`
	CategoryID   *int64             `json:"category_id,omitempty"`
	Completed    bool               `json:"completed"`
	CompletedAt  *time.Time         `json:"completed_at,omitempty"`
	PrepTime     int                `json:"prep_time"`
	CookTime     int                `json:"cook_time"`
	Servings     int                `json:"servings"`
	Ingredients  []RecipeIngredient `json:"ingredients" gorm:"foreignKey:RecipeID;constraint:OnDelete:CASCADE"`
}

// RecipeIngredient 食譜中的一行食材，GroceryID 為空代表尚未配對
type RecipeIngredient struct {
	ID          int64   `json:"id" gorm:"primaryKey"`
	RecipeID    int64   `json:"recipe_id" gorm:"index;not null"`
	GroceryID   *int64  `json:"grocery_id" gorm:"index"`
	Name        string  `json:"name" gorm:"not null"`
	Quantity    float64 `json:"quantity" gorm:"type:decimal(12,2);not null"`
	UnitID      *int64  `json:"unit_id,omitempty"`
	Preparation string  `json:"preparation,omitempty"`
	Size        string  `json:"size,omitempty"`
	Unit        *Unit   `json:"unit,omitempty" gorm:"foreignKey:UnitID"`
}

// Matched 是否已配對到食材庫存
func (i RecipeIngredient) Matched() bool {
	return i.GroceryID != nil
}

// ParsedIngredient 解析器輸出的暫存食材，尚未寫入資料庫
type ParsedIngredient struct {
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	UnitName    string  `json:"unit_name"`
	Preparation string  `json:"preparation"`
	Size        string  `json:"size"`
}

// ParseResult 解析結果
type ParseResult struct {
	Ingredients []ParsedIngredient `json:"ingredients"`
	Notes       []string           `json:"notes"`
}

// UnitName 取得單位名稱，缺少時回傳 whole
func UnitName(u *Unit) string {
	if u == nil || u.Name == "" {
		return DefaultUnitName
	}
	return u.Name
}
