package recipe

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"pantry-recipes/internal/core/cache"
	"pantry-recipes/internal/core/jobs"
	"pantry-recipes/internal/core/matching"
	"pantry-recipes/internal/infrastructure/config"
	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/infrastructure/store/memory"
	"pantry-recipes/internal/pkg/common"
)

type fixture struct {
	store       store.Store
	ingredients *IngredientService
	groceries   *GroceryService
	recipes     *RecipeService
}

func newFixture(t *testing.T, st store.Store) *fixture {
	t.Helper()
	if st == nil {
		st = memory.New()
	}

	d := jobs.NewDispatcher(0, 0, nil)
	cfg := matching.DefaultConfig()
	im := matching.NewIngredientMatcher(st, cfg)
	gm := matching.NewGroceryMatcher(st, cfg)
	RegisterJobHandlers(d, st, im, gm)

	cm := cache.NewManager(config.CacheConfig{
		Enabled:         true,
		MaxSize:         16,
		TTL:             time.Minute,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(func() { cm.Close() })

	base := NewService(st, jobs.InlineQueue{Dispatcher: d}, nil, cm)
	return &fixture{
		store:       st,
		ingredients: NewIngredientService(base),
		groceries:   NewGroceryService(base, gm, config.DefaultEmojiCatalog()),
		recipes:     NewRecipeService(base),
	}
}

func (f *fixture) grocery(t *testing.T, ownerID int64, name string, qty float64) *common.Grocery {
	t.Helper()
	g, err := f.groceries.CreateGrocery(context.Background(), ownerID, GroceryInput{Name: name, Quantity: qty})
	if err != nil {
		t.Fatalf("CreateGrocery(%q): %v", name, err)
	}
	return g
}

func ingredientByName(r *common.Recipe, name string) *common.RecipeIngredient {
	for i := range r.Ingredients {
		if r.Ingredients[i].Name == name {
			return &r.Ingredients[i]
		}
	}
	return nil
}

func TestCreateRecipeLinksIngredients(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	apple := f.grocery(t, 1, "apple", 5)
	milk := f.grocery(t, 1, "milk", 2)
	sugar := f.grocery(t, 1, "sugar", 10)
	f.grocery(t, 2, "apples", 5)

	res := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{
		Name:            "Apple crumble",
		IngredientsText: "2 apples, cored and chopped\n1 cup milk\n2 tablespoons sugar",
	})
	if !res.Success {
		t.Fatalf("CreateRecipe failed: %v", res.Errors)
	}

	recipe := res.Data
	if len(recipe.Ingredients) != 3 {
		t.Fatalf("len(Ingredients) = %d, want 3", len(recipe.Ingredients))
	}

	want := map[string]int64{"apples": apple.ID, "milk": milk.ID, "sugar": sugar.ID}
	for name, id := range want {
		ing := ingredientByName(recipe, name)
		if ing == nil {
			t.Fatalf("ingredient %q missing from %+v", name, recipe.Ingredients)
		}
		if ing.GroceryID == nil || *ing.GroceryID != id {
			t.Errorf("%s linked to %v, want %d", name, ing.GroceryID, id)
		}
	}

	prep := ingredientByName(recipe, "apples").Preparation
	if !strings.Contains(prep, "cored") || !strings.Contains(prep, "chopped") {
		t.Errorf("apples preparation = %q", prep)
	}

	cup, err := f.store.FindUnit(ctx, "cup")
	if err != nil || cup == nil {
		t.Fatalf("FindUnit(cup) = %v, %v", cup, err)
	}
	if cup.Category != common.UnitCategoryVolume {
		t.Errorf("cup category = %q, want volume", cup.Category)
	}
}

func TestCreateRecipeAppendsParserNotes(t *testing.T) {
	f := newFixture(t, nil)

	res := f.ingredients.CreateRecipe(context.Background(), 1, RecipeInput{
		Name:            "Fruit salad",
		Notes:           "Serve cold",
		IngredientsText: "2 apples or pears\n1 banana",
	})
	if !res.Success {
		t.Fatalf("CreateRecipe failed: %v", res.Errors)
	}
	notes := res.Data.Notes
	if !strings.HasPrefix(notes, "Serve cold\n") {
		t.Errorf("notes = %q, want user notes first", notes)
	}
	if !strings.Contains(notes, "Alternative ingredient: can use pears instead of apples") {
		t.Errorf("notes = %q, want alternative note", notes)
	}
	if len(res.Data.Ingredients) != 2 {
		t.Errorf("len(Ingredients) = %d, want 2", len(res.Data.Ingredients))
	}
}

func TestCreateRecipeTinyQuantities(t *testing.T) {
	f := newFixture(t, nil)

	res := f.ingredients.CreateRecipe(context.Background(), 1, RecipeInput{
		Name:            "Paella",
		IngredientsText: "0.001 cup salt\n1/1000 tsp saffron\n1 cup milk",
	})
	if !res.Success {
		t.Fatalf("CreateRecipe failed: %v", res.Errors)
	}
	if len(res.Data.Ingredients) != 3 {
		t.Fatalf("len(Ingredients) = %d, want 3", len(res.Data.Ingredients))
	}
	for _, name := range []string{"salt", "saffron"} {
		ing := ingredientByName(res.Data, name)
		if ing == nil || ing.Quantity != 1 {
			t.Errorf("%s = %+v, want quantity 1", name, ing)
		}
	}
}

func TestCreateRecipeValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{Name: "  ", Servings: -1, IngredientsText: "1 egg"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Code != common.ErrCodeValidation || len(res.Errors) != 2 {
		t.Errorf("result = %+v", res)
	}

	recipes, _ := f.store.ListRecipes(ctx, 1)
	if len(recipes) != 0 {
		t.Errorf("recipes = %d, want 0", len(recipes))
	}
}

type failingStore struct {
	store.Store
	okCreates int
}

func (s *failingStore) Begin(ctx context.Context) (store.Tx, error) {
	tx, err := s.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &failingTx{Tx: tx, left: s.okCreates}, nil
}

type failingTx struct {
	store.Tx
	left int
}

func (t *failingTx) CreateIngredient(ctx context.Context, ing *common.RecipeIngredient) error {
	if t.left == 0 {
		return errors.New("connection reset by peer")
	}
	t.left--
	return t.Tx.CreateIngredient(ctx, ing)
}

func TestCreateRecipeRollsBackOnIngredientFailure(t *testing.T) {
	mem := memory.New()
	f := newFixture(t, &failingStore{Store: mem, okCreates: 1})
	ctx := context.Background()

	res := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{
		Name:            "Pancakes",
		IngredientsText: "1 cup flour\n2 eggs",
	})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Code != common.ErrCodeInternalError {
		t.Errorf("code = %q", res.Code)
	}
	if len(res.Errors) != 1 || res.Errors[0] != common.IngredientCreationErrorPrefix {
		t.Errorf("errors = %v, want generic ingredient error", res.Errors)
	}
	for _, e := range res.Errors {
		if strings.Contains(e, "connection reset") {
			t.Errorf("datastore detail leaked: %q", e)
		}
	}

	recipes, _ := mem.ListRecipes(ctx, 1)
	if len(recipes) != 0 {
		t.Errorf("recipes after rollback = %d, want 0", len(recipes))
	}
	if u, _ := mem.FindUnit(ctx, "cup"); u != nil {
		t.Errorf("unit created inside rolled back transaction: %+v", u)
	}
}

func TestReplaceIngredients(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	apple := f.grocery(t, 1, "apple", 5)
	f.grocery(t, 1, "milk", 1)

	created := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{
		Name:            "Pie",
		IngredientsText: "2 apples\n1 cup milk",
	})
	if !created.Success {
		t.Fatalf("CreateRecipe failed: %v", created.Errors)
	}

	res := f.ingredients.ReplaceIngredients(ctx, 1, created.Data.ID, "4 apples\n3 eggs")
	if !res.Success {
		t.Fatalf("ReplaceIngredients failed: %v", res.Errors)
	}
	got := res.Data
	if len(got.Ingredients) != 2 {
		t.Fatalf("ingredients = %+v", got.Ingredients)
	}
	apples := ingredientByName(got, "apples")
	if apples == nil || apples.Quantity != 4 || !common.SameID(apples.GroceryID, &apple.ID) {
		t.Errorf("apples = %+v", apples)
	}
	if ingredientByName(got, "milk") != nil {
		t.Error("milk should have been deleted")
	}
	if eggs := ingredientByName(got, "eggs"); eggs == nil || eggs.Matched() {
		t.Errorf("eggs = %+v, want unmatched", eggs)
	}

	missing := f.ingredients.ReplaceIngredients(ctx, 2, created.Data.ID, "1 egg")
	if missing.Success || missing.Code != common.ErrCodeNotFound {
		t.Errorf("other owner result = %+v", missing)
	}
}

func TestRenameIngredientRematches(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.grocery(t, 1, "butter", 1)
	oil := f.grocery(t, 1, "olive oil", 1)

	res := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{Name: "Toast", IngredientsText: "1 tbsp butter"})
	if !res.Success {
		t.Fatalf("CreateRecipe failed: %v", res.Errors)
	}
	id := res.Data.Ingredients[0].ID

	if _, err := f.ingredients.RenameIngredient(ctx, 1, id, " Olive Oil "); err != nil {
		t.Fatalf("RenameIngredient: %v", err)
	}
	ing, _ := f.store.GetIngredient(ctx, id)
	if ing.Name != "olive oil" || !common.SameID(ing.GroceryID, &oil.ID) {
		t.Errorf("ingredient = %+v, want relinked to olive oil", ing)
	}

	if _, err := f.ingredients.RenameIngredient(ctx, 2, id, "lard"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other owner err = %v, want ErrNotFound", err)
	}
	if _, err := f.ingredients.RenameIngredient(ctx, 1, id, "   "); !common.IsValidationError(err) {
		t.Errorf("blank name err = %v, want validation error", err)
	}
}

func TestParseIngredientsCached(t *testing.T) {
	f := newFixture(t, nil)

	first := f.ingredients.ParseIngredients("½ cup milk")
	first.Ingredients[0].Name = "mutated"
	second := f.ingredients.ParseIngredients("½ cup milk")

	if second.Ingredients[0].Name != "milk" || second.Ingredients[0].Quantity != 0.5 {
		t.Errorf("cached result = %+v", second.Ingredients[0])
	}
}

func TestCreateGroceryLinksExistingIngredients(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	res := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{Name: "Soup", IngredientsText: "1 tsp sea salt"})
	if !res.Success {
		t.Fatalf("CreateRecipe failed: %v", res.Errors)
	}
	if res.Data.Ingredients[0].Matched() {
		t.Fatal("ingredient should start unmatched")
	}

	salt := f.grocery(t, 1, "  Salt ", 1)
	if salt.Name != "salt" || salt.Emoji != "🧂" {
		t.Errorf("grocery = %+v", salt)
	}

	ing, _ := f.store.GetIngredient(ctx, res.Data.Ingredients[0].ID)
	if !common.SameID(ing.GroceryID, &salt.ID) {
		t.Errorf("sea salt linked to %v, want %d", ing.GroceryID, salt.ID)
	}

	if _, err := f.groceries.CreateGrocery(ctx, 1, GroceryInput{Name: "SALT"}); !errors.Is(err, store.ErrDuplicate) {
		t.Errorf("duplicate err = %v, want ErrDuplicate", err)
	}
	if _, err := f.groceries.CreateGrocery(ctx, 1, GroceryInput{Name: "", Quantity: -1}); !common.IsValidationError(err) {
		t.Errorf("invalid grocery err = %v, want validation error", err)
	}
}

func TestUpdateGroceryRenameLinks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	g := f.grocery(t, 1, "cheddar", 1)

	res := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{Name: "Mac", IngredientsText: "200 g pasta"})
	if !res.Success {
		t.Fatalf("CreateRecipe failed: %v", res.Errors)
	}

	name := "Pasta"
	qty := 3.0
	updated, err := f.groceries.UpdateGrocery(ctx, 1, g.ID, GroceryUpdate{Name: &name, Quantity: &qty})
	if err != nil {
		t.Fatalf("UpdateGrocery: %v", err)
	}
	if updated.Name != "pasta" || updated.Quantity != 3 {
		t.Errorf("updated = %+v", updated)
	}
	ing, _ := f.store.GetIngredient(ctx, res.Data.Ingredients[0].ID)
	if !common.SameID(ing.GroceryID, &g.ID) {
		t.Errorf("pasta ingredient linked to %v, want %d", ing.GroceryID, g.ID)
	}

	if _, err := f.groceries.UpdateGrocery(ctx, 2, g.ID, GroceryUpdate{Quantity: &qty}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other owner err = %v, want ErrNotFound", err)
	}
}

func TestAddToPantry(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	apple := f.grocery(t, 1, "apple", 1.5)

	g, created, err := f.groceries.AddToPantry(ctx, 1, PantryInput{Name: "Apples", Quantity: 2.25})
	if err != nil {
		t.Fatalf("AddToPantry: %v", err)
	}
	if created || g.ID != apple.ID || g.Quantity != 3.75 {
		t.Errorf("restock = %+v created=%v", g, created)
	}

	g, created, err = f.groceries.AddToPantry(ctx, 1, PantryInput{Name: "kiwi", Quantity: 1, UnitName: "bunch"})
	if err != nil {
		t.Fatalf("AddToPantry: %v", err)
	}
	if !created || g.Name != "kiwi" || g.UnitID == nil {
		t.Errorf("new grocery = %+v created=%v", g, created)
	}
	unit, _ := f.store.GetUnit(ctx, *g.UnitID)
	if unit.Name != "bunch" || unit.Category != common.UnitCategoryOther {
		t.Errorf("unit = %+v", unit)
	}
}

func TestAddToPantryIgnoresPrefixMatches(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	salted := f.grocery(t, 1, "salted butter", 1)
	peanut := f.grocery(t, 1, "peanut butter", 1)

	for _, name := range []string{"salt", "pea"} {
		g, created, err := f.groceries.AddToPantry(ctx, 1, PantryInput{Name: name, Quantity: 2})
		if err != nil {
			t.Fatalf("AddToPantry(%q): %v", name, err)
		}
		if !created || g.Name != name || g.Quantity != 2 {
			t.Errorf("AddToPantry(%q) = %+v created=%v, want new grocery", name, g, created)
		}
	}

	for _, id := range []int64{salted.ID, peanut.ID} {
		g, err := f.store.GetGrocery(ctx, 1, id)
		if err != nil {
			t.Fatalf("GetGrocery(%d): %v", id, err)
		}
		if g.Quantity != 1 {
			t.Errorf("%q quantity = %v, want 1", g.Name, g.Quantity)
		}
	}

	g, created, err := f.groceries.AddToPantry(ctx, 1, PantryInput{Name: "peas", Quantity: 1})
	if err != nil {
		t.Fatalf("AddToPantry(peas): %v", err)
	}
	if created || g.Name != "pea" || g.Quantity != 3 {
		t.Errorf("AddToPantry(peas) = %+v created=%v, want restock of pea", g, created)
	}
}

func TestDeleteGroceryUnlinks(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	milk := f.grocery(t, 1, "milk", 1)

	res := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{Name: "Latte", IngredientsText: "1 cup milk"})
	if !res.Success {
		t.Fatalf("CreateRecipe failed: %v", res.Errors)
	}
	if err := f.groceries.DeleteGrocery(ctx, 1, milk.ID); err != nil {
		t.Fatalf("DeleteGrocery: %v", err)
	}
	ing, err := f.store.GetIngredient(ctx, res.Data.Ingredients[0].ID)
	if err != nil || ing.Matched() {
		t.Errorf("ingredient after delete = %+v, %v", ing, err)
	}
	if err := f.groceries.DeleteGrocery(ctx, 1, milk.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestRecipeAvailability(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.grocery(t, 1, "flour", 1)
	f.grocery(t, 1, "egg", 6)

	ready := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{Name: "Omelette", IngredientsText: "3 eggs"})
	short := f.ingredients.CreateRecipe(ctx, 1, RecipeInput{Name: "Bread", IngredientsText: "2 cups flour\n1 tsp yeast"})
	if !ready.Success || !short.Success {
		t.Fatalf("CreateRecipe failed: %v %v", ready.Errors, short.Errors)
	}

	list, err := f.recipes.ListRecipes(ctx, 1)
	if err != nil {
		t.Fatalf("ListRecipes: %v", err)
	}
	if len(list) != 2 || !list[0].Available || list[1].Available {
		t.Errorf("list = %+v", list)
	}

	info, err := f.recipes.Availability(ctx, 1, short.Data.ID, 0)
	if err != nil {
		t.Fatalf("Availability: %v", err)
	}
	if info.Available || len(info.MissingIngredients) != 2 {
		t.Fatalf("info = %+v", info)
	}
	flour := info.MissingIngredients[0]
	if flour.Name != "flour" || flour.RequiredQuantity != 2 || flour.AvailableQuantity != 1 {
		t.Errorf("flour entry = %+v", flour)
	}

	limited, _ := f.recipes.Availability(ctx, 1, short.Data.ID, 1)
	if len(limited.MissingIngredients) != 1 {
		t.Errorf("limited entries = %d, want 1", len(limited.MissingIngredients))
	}

	if _, err := f.recipes.Availability(ctx, 2, short.Data.ID, 0); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("other owner err = %v, want ErrNotFound", err)
	}
}
