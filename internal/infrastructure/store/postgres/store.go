// Package postgres 以 gorm 實作 store.Store，模糊比對使用 pg_trgm 的 similarity()
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pantry-recipes/internal/core/text"
	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// Store PostgreSQL 資料庫
type Store struct {
	repo
}

var _ store.Store = (*Store)(nil)

// Open 連線並視設定執行遷移
func Open(cfg config.DatabaseConfig) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql db: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	s := &Store{repo{db: db}}
	if cfg.AutoMigrate {
		if err := s.Migrate(context.Background()); err != nil {
			return nil, err
		}
	}

	common.LogInfo("Database connection established", zap.String("driver", "postgres"))
	return s, nil
}

// Migrate 建立 pg_trgm 擴充與資料表
func (s *Store) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	for _, ext := range []string{"pg_trgm", "unaccent"} {
		if err := db.Exec("CREATE EXTENSION IF NOT EXISTS " + ext).Error; err != nil {
			return fmt.Errorf("failed to enable %s: %w", ext, err)
		}
	}
	if err := db.AutoMigrate(
		&common.Unit{},
		&common.Grocery{},
		&common.Recipe{},
		&common.RecipeIngredient{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_groceries_name_trgm ON groceries USING gin (name gin_trgm_ops)").Error; err != nil {
		return fmt.Errorf("failed to create trigram index: %w", err)
	}
	common.LogInfo("Migrations completed")
	return nil
}

// Begin 開始交易
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	db := s.db.WithContext(ctx).Begin()
	if db.Error != nil {
		return nil, translate(db.Error)
	}
	return &tx{repo: repo{db: db}}, nil
}

// Ping 檢查連線
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close 關閉連線池
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type tx struct {
	repo
	done bool
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return translate(t.db.Commit().Error)
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	return translate(t.db.Rollback().Error)
}

// translate 將 gorm 錯誤轉為 store 的錯誤
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return store.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
	default:
		return err
	}
}

// repo 同時服務連線池與交易
type repo struct {
	db *gorm.DB
}

func (r repo) FindUnit(ctx context.Context, name string) (*common.Unit, error) {
	var unit common.Unit
	key := strings.ToLower(strings.TrimSpace(name))
	err := r.db.WithContext(ctx).
		Where("lower(name) = ? OR lower(abbreviation) = ?", key, key).
		Order("id").
		First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

func (r repo) GetUnit(ctx context.Context, id int64) (*common.Unit, error) {
	var unit common.Unit
	if err := r.db.WithContext(ctx).First(&unit, id).Error; err != nil {
		return nil, translate(err)
	}
	return &unit, nil
}

func (r repo) CreateUnit(ctx context.Context, unit *common.Unit) error {
	return translate(r.db.WithContext(ctx).Create(unit).Error)
}

func (r repo) CreateGrocery(ctx context.Context, grocery *common.Grocery) error {
	return translate(r.db.WithContext(ctx).Omit("Unit").Create(grocery).Error)
}

func (r repo) UpdateGrocery(ctx context.Context, grocery *common.Grocery) error {
	res := r.db.WithContext(ctx).Model(&common.Grocery{}).
		Where("id = ? AND owner_id = ?", grocery.ID, grocery.OwnerID).
		Updates(map[string]interface{}{
			"name":       grocery.Name,
			"quantity":   grocery.Quantity,
			"unit_id":    grocery.UnitID,
			"section_id": grocery.SectionID,
			"emoji":      grocery.Emoji,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteGrocery 刪除食材並解除食譜食材的關聯
func (r repo) DeleteGrocery(ctx context.Context, ownerID, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		res := db.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&common.Grocery{})
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return db.Model(&common.RecipeIngredient{}).
			Where("grocery_id = ?", id).
			Update("grocery_id", nil).Error
	})
}

func (r repo) GetGrocery(ctx context.Context, ownerID, id int64) (*common.Grocery, error) {
	var g common.Grocery
	err := r.db.WithContext(ctx).Preload("Unit").
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&g).Error
	if err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (r repo) ListGroceries(ctx context.Context, ownerID int64) ([]common.Grocery, error) {
	out := []common.Grocery{}
	err := r.db.WithContext(ctx).Preload("Unit").
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&out).Error
	return out, err
}

func (r repo) FindGroceryByName(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
	var g common.Grocery
	err := r.db.WithContext(ctx).Preload("Unit").
		Where("owner_id = ? AND lower(name) = ?", ownerID, strings.ToLower(strings.TrimSpace(name))).
		Order("id").
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// FindGroceries 使用 strpos 比對，避免 LIKE 萬用字元跳脫
func (r repo) FindGroceries(ctx context.Context, ownerID int64, filter store.GroceryFilter) ([]common.Grocery, error) {
	q := r.db.WithContext(ctx).Preload("Unit").Where("owner_id = ?", ownerID)

	if filter.Prefix != "" {
		q = q.Where("strpos(lower(name), ?) = 1", strings.ToLower(filter.Prefix))
	}
	if filter.Contains != "" {
		q = q.Where("strpos(lower(name), ?) > 0", strings.ToLower(filter.Contains))
	}
	if filter.PrefixOf != "" {
		q = q.Where("strpos(?, lower(name)) = 1", strings.ToLower(filter.PrefixOf))
	}
	if len(filter.ContainsAny) > 0 {
		clauses := make([]string, 0, len(filter.ContainsAny))
		args := make([]interface{}, 0, len(filter.ContainsAny))
		for _, w := range filter.ContainsAny {
			if w == "" {
				continue
			}
			clauses = append(clauses, "strpos(lower(name), ?) > 0")
			args = append(args, strings.ToLower(w))
		}
		if len(clauses) > 0 {
			q = q.Where("("+strings.Join(clauses, " OR ")+")", args...)
		}
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var out []common.Grocery
	err := q.Order("length(name)").Order("id").Find(&out).Error
	return out, err
}

type scoredRow struct {
	ID        int64
	OwnerID   int64
	Name      string
	Quantity  float64
	UnitID    *int64
	SectionID *int64
	Emoji     string
	Score     float64
}

// similarityExpr 兩邊都去掉變音符號後比較，與記憶體實作的 text.TrigramSimilarity 一致
const similarityExpr = "similarity(lower(unaccent(name)), ?)"

// similarityArg 查詢字串先轉小寫並去掉變音符號
func similarityArg(name string) string {
	return strings.ToLower(text.FoldAccents(name))
}

func (r repo) SimilarGroceries(ctx context.Context, ownerID int64, name string, threshold float64) ([]store.ScoredGrocery, error) {
	arg := similarityArg(name)
	var rows []scoredRow
	err := r.db.WithContext(ctx).
		Model(&common.Grocery{}).
		Select("id, owner_id, name, quantity, unit_id, section_id, emoji, "+similarityExpr+" AS score", arg).
		Where("owner_id = ? AND "+similarityExpr+" >= ?", ownerID, arg, threshold).
		Order("score DESC").
		Order("id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]store.ScoredGrocery, len(rows))
	for i, row := range rows {
		out[i] = store.ScoredGrocery{
			Grocery: common.Grocery{
				ID:        row.ID,
				OwnerID:   row.OwnerID,
				Name:      row.Name,
				Quantity:  row.Quantity,
				UnitID:    row.UnitID,
				SectionID: row.SectionID,
				Emoji:     row.Emoji,
			},
			Score: row.Score,
		}
	}
	return out, nil
}

func (r repo) CreateRecipe(ctx context.Context, recipe *common.Recipe) error {
	return translate(r.db.WithContext(ctx).Omit("Ingredients").Create(recipe).Error)
}

func (r repo) UpdateRecipe(ctx context.Context, recipe *common.Recipe) error {
	res := r.db.WithContext(ctx).Model(&common.Recipe{}).
		Where("id = ? AND owner_id = ?", recipe.ID, recipe.OwnerID).
		Updates(map[string]interface{}{
			"name":         recipe.Name,
			"instructions": recipe.Instructions,
			"notes":        recipe.Notes,
			"category_id":  recipe.CategoryID,
			"completed":    recipe.Completed,
			"completed_at": recipe.CompletedAt,
			"prep_time":    recipe.PrepTime,
			"cook_time":    recipe.CookTime,
			"servings":     recipe.Servings,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r repo) withIngredients(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Ingredients", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).Preload("Ingredients.Unit")
}

func (r repo) GetRecipe(ctx context.Context, ownerID, id int64) (*common.Recipe, error) {
	var recipe common.Recipe
	err := r.withIngredients(ctx).
		Where("id = ? AND owner_id = ?", id, ownerID).
		First(&recipe).Error
	if err != nil {
		return nil, translate(err)
	}
	return &recipe, nil
}

func (r repo) ListRecipes(ctx context.Context, ownerID int64) ([]common.Recipe, error) {
	out := []common.Recipe{}
	err := r.withIngredients(ctx).
		Where("owner_id = ?", ownerID).
		Order("id").
		Find(&out).Error
	return out, err
}

func (r repo) DeleteRecipe(ctx context.Context, ownerID, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		res := db.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&common.Recipe{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrNotFound
		}
		return db.Where("recipe_id = ?", id).Delete(&common.RecipeIngredient{}).Error
	})
}

func (r repo) CreateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error {
	return translate(r.db.WithContext(ctx).Omit("Unit").Create(ingredient).Error)
}

func (r repo) UpdateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error {
	res := r.db.WithContext(ctx).Model(&common.RecipeIngredient{}).
		Where("id = ?", ingredient.ID).
		Updates(map[string]interface{}{
			"grocery_id":  ingredient.GroceryID,
			"name":        ingredient.Name,
			"quantity":    ingredient.Quantity,
			"unit_id":     ingredient.UnitID,
			"preparation": ingredient.Preparation,
			"size":        ingredient.Size,
		})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r repo) DeleteIngredient(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&common.RecipeIngredient{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r repo) GetIngredient(ctx context.Context, id int64) (*common.RecipeIngredient, error) {
	var ing common.RecipeIngredient
	if err := r.db.WithContext(ctx).Preload("Unit").First(&ing, id).Error; err != nil {
		return nil, translate(err)
	}
	return &ing, nil
}

func (r repo) SetIngredientGrocery(ctx context.Context, ingredientID int64, groceryID *int64) error {
	res := r.db.WithContext(ctx).Model(&common.RecipeIngredient{}).
		Where("id = ?", ingredientID).
		Update("grocery_id", groceryID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// LinkUnmatchedIngredients 單一 UPDATE 完成批次關聯，已配對的列不受影響
func (r repo) LinkUnmatchedIngredients(ctx context.Context, ownerID, groceryID int64, name string) (int, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&common.RecipeIngredient{}).
		Where("grocery_id IS NULL").
		Where("recipe_id IN (?)", r.db.Model(&common.Recipe{}).Select("id").Where("owner_id = ?", ownerID)).
		Where("strpos(lower(name), ?) > 0", key).
		Update("grocery_id", groceryID)
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}
