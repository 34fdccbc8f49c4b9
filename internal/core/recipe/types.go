package recipe

import (
	"strings"

	"pantry-recipes/internal/pkg/common"
)

// Result 同步操作的結果；預期中的失敗（驗證、找不到）放在 Errors，不以 error 回傳
type Result[T any] struct {
	Success  bool     `json:"success"`
	Data     T        `json:"data,omitempty"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Code     string   `json:"code,omitempty"`
}

func succeed[T any](data T, warnings []string) Result[T] {
	return Result[T]{Success: true, Data: data, Warnings: warnings}
}

func fail[T any](code string, messages ...string) Result[T] {
	return Result[T]{Code: code, Errors: messages}
}

// StepResult 建立流程中單一步驟的結果
type StepResult struct {
	Step string
	Err  error
	// Datastore 表示錯誤來自資料存取
	Datastore bool
	Warning   string
}

// Failed 步驟是否出錯
func (r StepResult) Failed() bool {
	return r.Err != nil
}

// RequiresRollback 資料存取錯誤或食材建立錯誤需要整筆回滾，其他錯誤降為警告
func (r StepResult) RequiresRollback() bool {
	if r.Err == nil {
		return false
	}
	return r.Datastore || strings.Contains(r.Err.Error(), common.IngredientCreationErrorPrefix)
}

// RecipeInput 建立食譜的輸入
type RecipeInput struct {
	Name            string `json:"name"`
	Instructions    string `json:"instructions"`
	Notes           string `json:"notes"`
	CategoryID      *int64 `json:"category_id"`
	PrepTime        int    `json:"prep_time"`
	CookTime        int    `json:"cook_time"`
	Servings        int    `json:"servings"`
	IngredientsText string `json:"ingredients_text"`
}

// GroceryInput 建立食材庫存的輸入
type GroceryInput struct {
	Name      string  `json:"name"`
	Quantity  float64 `json:"quantity"`
	UnitName  string  `json:"unit_name"`
	SectionID *int64  `json:"section_id"`
	Emoji     string  `json:"emoji"`
}

// GroceryUpdate 部分更新，nil 欄位不變
type GroceryUpdate struct {
	Name      *string  `json:"name"`
	Quantity  *float64 `json:"quantity"`
	UnitName  *string  `json:"unit_name"`
	SectionID *int64   `json:"section_id"`
	Emoji     *string  `json:"emoji"`
}

// PantryInput 購買後加入庫存
type PantryInput struct {
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	UnitName string  `json:"unit_name"`
}

// RecipeSummary 食譜列表項目
type RecipeSummary struct {
	common.Recipe
	Available bool `json:"available"`
}

func validateRecipe(in RecipeInput) error {
	var msgs []string
	if strings.TrimSpace(in.Name) == "" {
		msgs = append(msgs, "Name can't be blank")
	}
	if in.PrepTime < 0 {
		msgs = append(msgs, "Prep time must be greater than or equal to 0")
	}
	if in.CookTime < 0 {
		msgs = append(msgs, "Cook time must be greater than or equal to 0")
	}
	if in.Servings < 0 {
		msgs = append(msgs, "Servings must be greater than or equal to 0")
	}
	if len(msgs) > 0 {
		return common.NewValidationError(msgs...)
	}
	return nil
}

func validateGrocery(name string, quantity float64) error {
	var msgs []string
	if strings.TrimSpace(name) == "" {
		msgs = append(msgs, "Name can't be blank")
	}
	if quantity < 0 {
		msgs = append(msgs, "Quantity must be greater than or equal to 0")
	}
	if len(msgs) > 0 {
		return common.NewValidationError(msgs...)
	}
	return nil
}

// appendNotes 把解析器的備註接在使用者備註之後，已存在的不重複加入
func appendNotes(notes string, extra []string) string {
	lines := []string{}
	if strings.TrimSpace(notes) != "" {
		lines = append(lines, strings.TrimSpace(notes))
	}
	for _, n := range extra {
		if !strings.Contains(notes, n) {
			lines = append(lines, n)
		}
	}
	return strings.Join(lines, "\n")
}
