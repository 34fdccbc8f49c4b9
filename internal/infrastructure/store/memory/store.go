// Package memory 以行程內 map 實作 store.Store，供開發與測試使用
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pantry-recipes/internal/core/text"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/pkg/common"
)

// Store 記憶體資料庫；交易期間持有寫鎖，其他呼叫會等待交易結束
type Store struct {
	mu   sync.Mutex
	data *data
}

// New 建立空的記憶體資料庫
func New() *Store {
	return &Store{data: newData()}
}

var _ store.Store = (*Store)(nil)

// Begin 開始交易
func (s *Store) Begin(ctx context.Context) (store.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	return &tx{data: s.data, s: s, backup: s.data.clone()}, nil
}

// Ping 記憶體資料庫永遠可用
func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

// Close 無資源需要釋放
func (s *Store) Close() error { return nil }

func (s *Store) FindUnit(ctx context.Context, name string) (*common.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.FindUnit(ctx, name)
}

func (s *Store) GetUnit(ctx context.Context, id int64) (*common.Unit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetUnit(ctx, id)
}

func (s *Store) CreateUnit(ctx context.Context, unit *common.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateUnit(ctx, unit)
}

func (s *Store) CreateGrocery(ctx context.Context, grocery *common.Grocery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateGrocery(ctx, grocery)
}

func (s *Store) UpdateGrocery(ctx context.Context, grocery *common.Grocery) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpdateGrocery(ctx, grocery)
}

func (s *Store) DeleteGrocery(ctx context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteGrocery(ctx, ownerID, id)
}

func (s *Store) GetGrocery(ctx context.Context, ownerID, id int64) (*common.Grocery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetGrocery(ctx, ownerID, id)
}

func (s *Store) ListGroceries(ctx context.Context, ownerID int64) ([]common.Grocery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListGroceries(ctx, ownerID)
}

func (s *Store) FindGroceryByName(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.FindGroceryByName(ctx, ownerID, name)
}

func (s *Store) FindGroceries(ctx context.Context, ownerID int64, filter store.GroceryFilter) ([]common.Grocery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.FindGroceries(ctx, ownerID, filter)
}

func (s *Store) SimilarGroceries(ctx context.Context, ownerID int64, name string, threshold float64) ([]store.ScoredGrocery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SimilarGroceries(ctx, ownerID, name, threshold)
}

func (s *Store) CreateRecipe(ctx context.Context, recipe *common.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateRecipe(ctx, recipe)
}

func (s *Store) UpdateRecipe(ctx context.Context, recipe *common.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpdateRecipe(ctx, recipe)
}

func (s *Store) GetRecipe(ctx context.Context, ownerID, id int64) (*common.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetRecipe(ctx, ownerID, id)
}

func (s *Store) ListRecipes(ctx context.Context, ownerID int64) ([]common.Recipe, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.ListRecipes(ctx, ownerID)
}

func (s *Store) DeleteRecipe(ctx context.Context, ownerID, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteRecipe(ctx, ownerID, id)
}

func (s *Store) CreateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.CreateIngredient(ctx, ingredient)
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.UpdateIngredient(ctx, ingredient)
}

func (s *Store) DeleteIngredient(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.DeleteIngredient(ctx, id)
}

func (s *Store) GetIngredient(ctx context.Context, id int64) (*common.RecipeIngredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.GetIngredient(ctx, id)
}

func (s *Store) SetIngredientGrocery(ctx context.Context, ingredientID int64, groceryID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.SetIngredientGrocery(ctx, ingredientID, groceryID)
}

func (s *Store) LinkUnmatchedIngredients(ctx context.Context, ownerID, groceryID int64, name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.LinkUnmatchedIngredients(ctx, ownerID, groceryID, name)
}

// tx 直接操作 store 的資料；Rollback 時還原開始時的快照
type tx struct {
	*data
	s      *Store
	backup *data
	done   bool
}

func (t *tx) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.mu.Unlock()
	return nil
}

func (t *tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	t.s.data = t.backup
	t.s.mu.Unlock()
	return nil
}

// data 實際的資料表，呼叫端負責鎖定
type data struct {
	nextID      int64
	units       map[int64]common.Unit
	groceries   map[int64]common.Grocery
	recipes     map[int64]common.Recipe
	ingredients map[int64]common.RecipeIngredient
}

func newData() *data {
	return &data{
		units:       make(map[int64]common.Unit),
		groceries:   make(map[int64]common.Grocery),
		recipes:     make(map[int64]common.Recipe),
		ingredients: make(map[int64]common.RecipeIngredient),
	}
}

func (d *data) clone() *data {
	c := newData()
	c.nextID = d.nextID
	for k, v := range d.units {
		c.units[k] = v
	}
	for k, v := range d.groceries {
		c.groceries[k] = v
	}
	for k, v := range d.recipes {
		c.recipes[k] = v
	}
	for k, v := range d.ingredients {
		c.ingredients[k] = v
	}
	return c
}

func (d *data) newID() int64 {
	d.nextID++
	return d.nextID
}

func (d *data) unitFor(id *int64) *common.Unit {
	if id == nil {
		return nil
	}
	if u, ok := d.units[*id]; ok {
		return &u
	}
	return nil
}

func (d *data) FindUnit(ctx context.Context, name string) (*common.Unit, error) {
	key := text.Normalize(name)
	for _, id := range sortedKeys(d.units) {
		u := d.units[id]
		if strings.ToLower(u.Name) == key || strings.ToLower(u.Abbreviation) == key {
			return &u, nil
		}
	}
	return nil, nil
}

func (d *data) GetUnit(ctx context.Context, id int64) (*common.Unit, error) {
	u, ok := d.units[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (d *data) CreateUnit(ctx context.Context, unit *common.Unit) error {
	for _, u := range d.units {
		if strings.EqualFold(u.Name, unit.Name) || strings.EqualFold(u.Abbreviation, unit.Abbreviation) {
			return store.ErrDuplicate
		}
	}
	unit.ID = d.newID()
	d.units[unit.ID] = *unit
	return nil
}

func (d *data) groceryNameTaken(ownerID int64, name string, exceptID int64) bool {
	for id, g := range d.groceries {
		if id != exceptID && g.OwnerID == ownerID && strings.EqualFold(g.Name, name) {
			return true
		}
	}
	return false
}

func (d *data) readGrocery(g common.Grocery) common.Grocery {
	g.Unit = d.unitFor(g.UnitID)
	return g
}

func (d *data) CreateGrocery(ctx context.Context, grocery *common.Grocery) error {
	if d.groceryNameTaken(grocery.OwnerID, grocery.Name, 0) {
		return store.ErrDuplicate
	}
	grocery.ID = d.newID()
	stored := *grocery
	stored.Unit = nil
	d.groceries[grocery.ID] = stored
	return nil
}

func (d *data) UpdateGrocery(ctx context.Context, grocery *common.Grocery) error {
	existing, ok := d.groceries[grocery.ID]
	if !ok || existing.OwnerID != grocery.OwnerID {
		return store.ErrNotFound
	}
	if d.groceryNameTaken(grocery.OwnerID, grocery.Name, grocery.ID) {
		return store.ErrDuplicate
	}
	stored := *grocery
	stored.Unit = nil
	d.groceries[grocery.ID] = stored
	return nil
}

func (d *data) DeleteGrocery(ctx context.Context, ownerID, id int64) error {
	g, ok := d.groceries[id]
	if !ok || g.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(d.groceries, id)
	for ingID, ing := range d.ingredients {
		if ing.GroceryID != nil && *ing.GroceryID == id {
			ing.GroceryID = nil
			d.ingredients[ingID] = ing
		}
	}
	return nil
}

func (d *data) GetGrocery(ctx context.Context, ownerID, id int64) (*common.Grocery, error) {
	g, ok := d.groceries[id]
	if !ok || g.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	g = d.readGrocery(g)
	return &g, nil
}

func (d *data) ListGroceries(ctx context.Context, ownerID int64) ([]common.Grocery, error) {
	out := []common.Grocery{}
	for _, id := range sortedKeys(d.groceries) {
		if g := d.groceries[id]; g.OwnerID == ownerID {
			out = append(out, d.readGrocery(g))
		}
	}
	return out, nil
}

func (d *data) FindGroceryByName(ctx context.Context, ownerID int64, name string) (*common.Grocery, error) {
	key := text.Normalize(name)
	for _, id := range sortedKeys(d.groceries) {
		g := d.groceries[id]
		if g.OwnerID == ownerID && strings.ToLower(g.Name) == key {
			g = d.readGrocery(g)
			return &g, nil
		}
	}
	return nil, nil
}

// FindGroceries 結果依名稱長度、ID 排序
func (d *data) FindGroceries(ctx context.Context, ownerID int64, filter store.GroceryFilter) ([]common.Grocery, error) {
	var out []common.Grocery
	for _, id := range sortedKeys(d.groceries) {
		g := d.groceries[id]
		if g.OwnerID != ownerID || !matchesFilter(strings.ToLower(g.Name), filter) {
			continue
		}
		out = append(out, d.readGrocery(g))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return len(out[i].Name) < len(out[j].Name)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matchesFilter(name string, f store.GroceryFilter) bool {
	if f.Prefix != "" && !strings.HasPrefix(name, strings.ToLower(f.Prefix)) {
		return false
	}
	if f.Contains != "" && !strings.Contains(name, strings.ToLower(f.Contains)) {
		return false
	}
	if f.PrefixOf != "" && !strings.HasPrefix(strings.ToLower(f.PrefixOf), name) {
		return false
	}
	if len(f.ContainsAny) > 0 {
		found := false
		for _, w := range f.ContainsAny {
			if w != "" && strings.Contains(name, strings.ToLower(w)) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// SimilarGroceries 以三元組相似度排序，分數相同時依 ID
func (d *data) SimilarGroceries(ctx context.Context, ownerID int64, name string, threshold float64) ([]store.ScoredGrocery, error) {
	var out []store.ScoredGrocery
	for _, id := range sortedKeys(d.groceries) {
		g := d.groceries[id]
		if g.OwnerID != ownerID {
			continue
		}
		score := text.TrigramSimilarity(name, g.Name)
		if score >= threshold {
			out = append(out, store.ScoredGrocery{Grocery: d.readGrocery(g), Score: score})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

func (d *data) CreateRecipe(ctx context.Context, recipe *common.Recipe) error {
	recipe.ID = d.newID()
	stored := *recipe
	stored.Ingredients = nil
	d.recipes[recipe.ID] = stored
	return nil
}

func (d *data) UpdateRecipe(ctx context.Context, recipe *common.Recipe) error {
	existing, ok := d.recipes[recipe.ID]
	if !ok || existing.OwnerID != recipe.OwnerID {
		return store.ErrNotFound
	}
	stored := *recipe
	stored.Ingredients = nil
	d.recipes[recipe.ID] = stored
	return nil
}

func (d *data) readRecipe(r common.Recipe) common.Recipe {
	r.Ingredients = []common.RecipeIngredient{}
	for _, id := range sortedKeys(d.ingredients) {
		if ing := d.ingredients[id]; ing.RecipeID == r.ID {
			ing.Unit = d.unitFor(ing.UnitID)
			r.Ingredients = append(r.Ingredients, ing)
		}
	}
	return r
}

func (d *data) GetRecipe(ctx context.Context, ownerID, id int64) (*common.Recipe, error) {
	r, ok := d.recipes[id]
	if !ok || r.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	r = d.readRecipe(r)
	return &r, nil
}

func (d *data) ListRecipes(ctx context.Context, ownerID int64) ([]common.Recipe, error) {
	out := []common.Recipe{}
	for _, id := range sortedKeys(d.recipes) {
		if r := d.recipes[id]; r.OwnerID == ownerID {
			out = append(out, d.readRecipe(r))
		}
	}
	return out, nil
}

func (d *data) DeleteRecipe(ctx context.Context, ownerID, id int64) error {
	r, ok := d.recipes[id]
	if !ok || r.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(d.recipes, id)
	for ingID, ing := range d.ingredients {
		if ing.RecipeID == id {
			delete(d.ingredients, ingID)
		}
	}
	return nil
}

func (d *data) CreateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error {
	if _, ok := d.recipes[ingredient.RecipeID]; !ok {
		return store.ErrNotFound
	}
	ingredient.ID = d.newID()
	stored := *ingredient
	stored.Unit = nil
	d.ingredients[ingredient.ID] = stored
	return nil
}

func (d *data) UpdateIngredient(ctx context.Context, ingredient *common.RecipeIngredient) error {
	if _, ok := d.ingredients[ingredient.ID]; !ok {
		return store.ErrNotFound
	}
	stored := *ingredient
	stored.Unit = nil
	d.ingredients[ingredient.ID] = stored
	return nil
}

func (d *data) DeleteIngredient(ctx context.Context, id int64) error {
	if _, ok := d.ingredients[id]; !ok {
		return store.ErrNotFound
	}
	delete(d.ingredients, id)
	return nil
}

func (d *data) GetIngredient(ctx context.Context, id int64) (*common.RecipeIngredient, error) {
	ing, ok := d.ingredients[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	ing.Unit = d.unitFor(ing.UnitID)
	return &ing, nil
}

func (d *data) SetIngredientGrocery(ctx context.Context, ingredientID int64, groceryID *int64) error {
	ing, ok := d.ingredients[ingredientID]
	if !ok {
		return store.ErrNotFound
	}
	if groceryID != nil {
		id := *groceryID
		groceryID = &id
	}
	ing.GroceryID = groceryID
	d.ingredients[ingredientID] = ing
	return nil
}

// LinkUnmatchedIngredients 只更新該使用者尚未配對、名稱包含 name 的食材
func (d *data) LinkUnmatchedIngredients(ctx context.Context, ownerID, groceryID int64, name string) (int, error) {
	key := text.Normalize(name)
	if key == "" {
		return 0, nil
	}
	count := 0
	for _, id := range sortedKeys(d.ingredients) {
		ing := d.ingredients[id]
		if ing.GroceryID != nil {
			continue
		}
		r, ok := d.recipes[ing.RecipeID]
		if !ok || r.OwnerID != ownerID {
			continue
		}
		if strings.Contains(strings.ToLower(ing.Name), key) {
			gid := groceryID
			ing.GroceryID = &gid
			d.ingredients[id] = ing
			count++
		}
	}
	return count, nil
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
