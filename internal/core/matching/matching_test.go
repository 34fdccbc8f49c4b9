package matching

import (
	"context"
	"testing"

	"pantry-recipes/internal/infrastructure/store"
	"pantry-recipes/internal/infrastructure/store/memory"
	"pantry-recipes/internal/pkg/common"
)

func seedGroceries(t *testing.T, s *memory.Store, ownerID int64, names ...string) map[string]int64 {
	t.Helper()
	ids := make(map[string]int64, len(names))
	for _, n := range names {
		g := &common.Grocery{OwnerID: ownerID, Name: n, Quantity: 1}
		if err := s.CreateGrocery(context.Background(), g); err != nil {
			t.Fatalf("CreateGrocery(%q): %v", n, err)
		}
		ids[n] = g.ID
	}
	return ids
}

func seedRecipe(t *testing.T, s *memory.Store, ownerID int64, names ...string) []int64 {
	t.Helper()
	ctx := context.Background()
	r := &common.Recipe{OwnerID: ownerID, Name: "recipe"}
	if err := s.CreateRecipe(ctx, r); err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	ids := make([]int64, 0, len(names))
	for _, n := range names {
		ing := &common.RecipeIngredient{RecipeID: r.ID, Name: n, Quantity: 1}
		if err := s.CreateIngredient(ctx, ing); err != nil {
			t.Fatalf("CreateIngredient: %v", err)
		}
		ids = append(ids, ing.ID)
	}
	return ids
}

func groceryName(g *common.Grocery) string {
	if g == nil {
		return "<nil>"
	}
	return g.Name
}

func TestStrategyOrder(t *testing.T) {
	s := memory.New()
	im := NewIngredientMatcher(s, nil).Strategies()
	want := []string{"exact", "plural", "parent", "fuzzy"}
	if len(im) != len(want) {
		t.Fatalf("ingredient strategies = %v", im)
	}
	for i := range want {
		if im[i] != want[i] {
			t.Errorf("ingredient strategy %d = %q, want %q", i, im[i], want[i])
		}
	}

	gm := NewGroceryMatcher(s, nil).Strategies()
	want = []string{"exact", "plural", "prefix", "meat", "multi_word"}
	if len(gm) != len(want) {
		t.Fatalf("grocery strategies = %v", gm)
	}
	for i := range want {
		if gm[i] != want[i] {
			t.Errorf("grocery strategy %d = %q, want %q", i, gm[i], want[i])
		}
	}
}

func TestExactBeatsContainment(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedGroceries(t, s, 1, "Onion Powder", "Onion")

	g, err := NewIngredientMatcher(s, nil).MatchIngredientToGrocery(ctx, 1, "onion")
	if err != nil {
		t.Fatalf("MatchIngredientToGrocery: %v", err)
	}
	if groceryName(g) != "Onion" {
		t.Errorf("match = %s, want Onion", groceryName(g))
	}

	g, _ = NewGroceryMatcher(s, nil).FindGroceryByName(ctx, 1, " ONION ")
	if groceryName(g) != "Onion" {
		t.Errorf("grocery match = %s, want Onion", groceryName(g))
	}
}

func TestSingularPluralSymmetry(t *testing.T) {
	ctx := context.Background()
	for _, w := range []string{"apple", "carrot", "egg", "onion", "lemon", "bean", "olive", "tomato"} {
		s := memory.New()
		seedGroceries(t, s, 1, w)
		seedGroceries(t, s, 2, w+"s")
		m := NewIngredientMatcher(s, nil)

		if g, _ := m.MatchIngredientToGrocery(ctx, 1, w+"s"); groceryName(g) != w {
			t.Errorf("query %q matched %s, want %s", w+"s", groceryName(g), w)
		}
		if g, _ := m.MatchIngredientToGrocery(ctx, 2, w); groceryName(g) != w+"s" {
			t.Errorf("query %q matched %s, want %s", w, groceryName(g), w+"s")
		}
	}
}

func TestParentIngredientMatch(t *testing.T) {
	s := memory.New()
	seedGroceries(t, s, 1, "spinach")

	g, err := NewIngredientMatcher(s, nil).MatchIngredientToGrocery(context.Background(), 1, "Fresh Organic Spinach")
	if err != nil {
		t.Fatalf("MatchIngredientToGrocery: %v", err)
	}
	if groceryName(g) != "spinach" {
		t.Errorf("match = %s, want spinach", groceryName(g))
	}
}

func TestFuzzyMatch(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedGroceries(t, s, 1, "cheddar cheese", "zucchini")
	m := NewIngredientMatcher(s, nil)

	g, err := m.MatchIngredientToGrocery(ctx, 1, "chedar cheese")
	if err != nil {
		t.Fatalf("MatchIngredientToGrocery: %v", err)
	}
	if groceryName(g) != "cheddar cheese" {
		t.Errorf("match = %s, want cheddar cheese", groceryName(g))
	}

	if g, _ := m.MatchIngredientToGrocery(ctx, 1, "saffron"); g != nil {
		t.Errorf("saffron matched %s, want no match", g.Name)
	}
	if g, _ := m.MatchIngredientToGrocery(ctx, 1, "   "); g != nil {
		t.Errorf("blank name matched %s", g.Name)
	}
}

type similarStub struct {
	store.Repository
	results []store.ScoredGrocery
}

func (s similarStub) SimilarGroceries(ctx context.Context, ownerID int64, name string, threshold float64) ([]store.ScoredGrocery, error) {
	return s.results, nil
}

func TestFuzzyTieBreakByEditDistance(t *testing.T) {
	repo := similarStub{results: []store.ScoredGrocery{
		{Grocery: common.Grocery{ID: 1, Name: "tomato paste"}, Score: 0.5},
		{Grocery: common.Grocery{ID: 2, Name: "tomatoes"}, Score: 0.5},
		{Grocery: common.Grocery{ID: 3, Name: "tomat"}, Score: 0.4},
	}}

	g, err := fuzzyMatch(repo, DefaultConfig()).Find(context.Background(), 1, "tomato")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if groceryName(g) != "tomatoes" {
		t.Errorf("tie break = %s, want tomatoes", groceryName(g))
	}
}

func TestUserScoping(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	ids := seedGroceries(t, s, 1, "milk")
	seedGroceries(t, s, 2, "milk")

	m := NewIngredientMatcher(s, nil)
	g, _ := m.MatchIngredientToGrocery(ctx, 1, "milk")
	if g == nil || g.OwnerID != 1 || g.ID != ids["milk"] {
		t.Errorf("owner 1 matched %+v", g)
	}
	if g, _ := m.MatchIngredientToGrocery(ctx, 3, "milk"); g != nil {
		t.Errorf("owner 3 matched %+v, want no match", g)
	}
	if g, _ := NewGroceryMatcher(s, nil).FindGroceryByName(ctx, 3, "whole milk"); g != nil {
		t.Errorf("grocery matcher crossed owners: %+v", g)
	}

	// 食材屬於使用者 2，不可被使用者 1 的工作關聯
	ing := seedRecipe(t, s, 2, "milk")
	linked, err := m.LinkIngredient(ctx, ing[0], 1, false)
	if err != nil {
		t.Fatalf("LinkIngredient: %v", err)
	}
	if linked != nil {
		t.Errorf("linked across owners to %+v", linked)
	}
	got, _ := s.GetIngredient(ctx, ing[0])
	if got.Matched() {
		t.Errorf("ingredient linked across owners")
	}
}

func TestLinkIngredientIdempotent(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	ids := seedGroceries(t, s, 1, "sugar", "brown sugar")
	ing := seedRecipe(t, s, 1, "sugar")
	m := NewIngredientMatcher(s, nil)

	for i := 0; i < 2; i++ {
		if _, err := m.LinkIngredient(ctx, ing[0], 1, false); err != nil {
			t.Fatalf("LinkIngredient run %d: %v", i, err)
		}
		got, _ := s.GetIngredient(ctx, ing[0])
		if !common.SameID(got.GroceryID, common.Int64Ptr(ids["sugar"])) {
			t.Fatalf("run %d: grocery_id = %v, want %d", i, got.GroceryID, ids["sugar"])
		}
	}

	// 手動改連結後，非強制的工作不覆寫
	brown := ids["brown sugar"]
	s.SetIngredientGrocery(ctx, ing[0], &brown)
	m.LinkIngredient(ctx, ing[0], 1, false)
	got, _ := s.GetIngredient(ctx, ing[0])
	if !common.SameID(got.GroceryID, &brown) {
		t.Errorf("non-forced job overwrote an existing link")
	}

	m.LinkIngredient(ctx, ing[0], 1, true)
	got, _ = s.GetIngredient(ctx, ing[0])
	if !common.SameID(got.GroceryID, common.Int64Ptr(ids["sugar"])) {
		t.Errorf("forced job did not relink, grocery_id = %v", got.GroceryID)
	}

	if g, err := m.LinkIngredient(ctx, 9999, 1, false); err != nil || g != nil {
		t.Errorf("missing ingredient = %v, %v; want nil, nil", g, err)
	}
}

func TestGroceryMatcherStrategies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedGroceries(t, s, 1, "chicken breast", "green onion", "garlic", "beef steak", "ground beef", "cheddar cheese", "cream cheese")
	m := NewGroceryMatcher(s, nil)

	tests := []struct {
		query string
		want  string
	}{
		{"chicken", "chicken breast"},
		{"onion", "green onion"},
		{"garlic cloves", "garlic"},
		{"lean ground beef", "ground beef"},
		{"sharp cheddar", "cheddar cheese"},
		{"cheddar cheeses", "cheddar cheese"},
		{"saffron", "<nil>"},
	}
	for _, tt := range tests {
		g, err := m.FindGroceryByName(ctx, 1, tt.query)
		if err != nil {
			t.Fatalf("FindGroceryByName(%q): %v", tt.query, err)
		}
		if groceryName(g) != tt.want {
			t.Errorf("FindGroceryByName(%q) = %s, want %s", tt.query, groceryName(g), tt.want)
		}
	}
}

func TestMultiWordScore(t *testing.T) {
	words := []string{"cream", "cheese"}
	if got := multiWordScore(words, "cream cheese"); got != 28 {
		t.Errorf("score(cream cheese) = %d, want 28", got)
	}
	if got := multiWordScore(words, "cheese cream sauce"); got != 20 {
		t.Errorf("score(cheese cream sauce) = %d, want 20", got)
	}
	if got := multiWordScore(words, "milk"); got != 0 {
		t.Errorf("score(milk) = %d, want 0", got)
	}
}

func TestUpdateRelatedIngredients(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	ids := seedGroceries(t, s, 1, "pepper")
	ing := seedRecipe(t, s, 1, "sea salt", "salt and pepper", "flour")
	pepper := ids["pepper"]
	s.SetIngredientGrocery(ctx, ing[1], &pepper)

	salt := &common.Grocery{OwnerID: 1, Name: "salt"}
	if err := s.CreateGrocery(ctx, salt); err != nil {
		t.Fatalf("CreateGrocery: %v", err)
	}

	n, err := NewGroceryMatcher(s, nil).UpdateRelatedIngredients(ctx, salt)
	if err != nil {
		t.Fatalf("UpdateRelatedIngredients: %v", err)
	}
	if n != 1 {
		t.Errorf("linked %d, want 1", n)
	}

	seaSalt, _ := s.GetIngredient(ctx, ing[0])
	if !common.SameID(seaSalt.GroceryID, &salt.ID) {
		t.Errorf("sea salt not linked to salt")
	}
	sp, _ := s.GetIngredient(ctx, ing[1])
	if !common.SameID(sp.GroceryID, &pepper) {
		t.Errorf("existing link was overwritten")
	}
}

func TestFindSameGroceryOnlyExactOrPlural(t *testing.T) {
	s := memory.New()
	seedGroceries(t, s, 1, "salted butter", "peanut butter", "tomato")
	m := NewGroceryMatcher(s, nil)
	ctx := context.Background()

	tests := []struct {
		query string
		want  string
	}{
		{"salt", "<nil>"},
		{"pea", "<nil>"},
		{"butter", "<nil>"},
		{"tomatoes", "tomato"},
		{"Peanut Butter", "peanut butter"},
	}
	for _, tt := range tests {
		g, err := m.FindSameGrocery(ctx, 1, tt.query)
		if err != nil {
			t.Fatalf("FindSameGrocery(%q): %v", tt.query, err)
		}
		if groceryName(g) != tt.want {
			t.Errorf("FindSameGrocery(%q) = %s, want %s", tt.query, groceryName(g), tt.want)
		}
	}

	// 完整規則仍會以前綴找到
	g, err := m.FindGroceryByName(ctx, 1, "salt")
	if err != nil || groceryName(g) != "salted butter" {
		t.Errorf("FindGroceryByName(salt) = %s, %v", groceryName(g), err)
	}
}
