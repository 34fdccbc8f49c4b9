package availability

import (
	"context"
	"testing"

	"pantry-recipes/internal/infrastructure/store/memory"
	"pantry-recipes/internal/pkg/common"
)

var (
	cup   = &common.Unit{ID: 100, Name: "cup", Category: common.UnitCategoryVolume}
	gram  = &common.Unit{ID: 101, Name: "gram", Category: common.UnitCategoryWeight}
	pound = &common.Unit{ID: 102, Name: "pound", Category: common.UnitCategoryWeight}
)

func pantry() Snapshot {
	return Snapshot{
		1: {ID: 1, OwnerID: 1, Name: "milk", Quantity: 2, UnitID: &cup.ID, Unit: cup},
		2: {ID: 2, OwnerID: 1, Name: "flour", Quantity: 500, UnitID: &gram.ID, Unit: gram},
		3: {ID: 3, OwnerID: 1, Name: "sugar", Quantity: 0.5, UnitID: &cup.ID, Unit: cup},
	}
}

func TestMissingIngredients(t *testing.T) {
	recipe := &common.Recipe{ID: 10, Ingredients: []common.RecipeIngredient{
		{ID: 1, Name: "milk", Quantity: 1, GroceryID: common.Int64Ptr(1), Unit: cup},
		{ID: 2, Name: "eggs", Quantity: 2},
		{ID: 3, Name: "sugar", Quantity: 1, GroceryID: common.Int64Ptr(3), Unit: cup},
		{ID: 4, Name: "butter", Quantity: 1, GroceryID: common.Int64Ptr(99)},
	}}

	missing := MissingIngredients(recipe, pantry(), 0)
	if len(missing) != 3 {
		t.Fatalf("len(missing) = %d, want 3: %+v", len(missing), missing)
	}

	eggs := missing[0]
	if eggs.Name != "eggs" || eggs.AvailableQuantity != 0 || eggs.AvailableUnit != "whole" || eggs.RequiredUnit != "whole" {
		t.Errorf("unmatched entry = %+v", eggs)
	}

	sugar := missing[1]
	if sugar.Name != "sugar" || sugar.RequiredQuantity != 1 || sugar.AvailableQuantity != 0.5 || sugar.AvailableUnit != "cup" {
		t.Errorf("insufficient entry = %+v", sugar)
	}

	butter := missing[2]
	if butter.Name != "butter" || butter.AvailableQuantity != 0 || butter.AvailableUnit != "whole" {
		t.Errorf("absent grocery entry = %+v", butter)
	}
}

func TestAvailableShortCircuits(t *testing.T) {
	recipe := &common.Recipe{Ingredients: []common.RecipeIngredient{
		{ID: 1, Name: "eggs", Quantity: 2},
		{ID: 2, Name: "cream", Quantity: 1},
		{ID: 3, Name: "milk", Quantity: 1, GroceryID: common.Int64Ptr(1)},
	}}
	p := pantry()

	limited := MissingIngredients(recipe, p, 1)
	if len(limited) != 1 || limited[0].Name != "eggs" {
		t.Fatalf("limit 1 = %+v, want only eggs", limited)
	}
	all := MissingIngredients(recipe, p, 0)
	if len(all) != 2 {
		t.Fatalf("no limit = %+v, want 2 entries", all)
	}
	if Available(recipe, p) != (len(all) == 0) {
		t.Errorf("Available disagrees with unlimited missing list")
	}
}

func TestDirectNumericComparison(t *testing.T) {
	// 單位不同時只比較數值
	recipe := &common.Recipe{Ingredients: []common.RecipeIngredient{
		{ID: 1, Name: "flour", Quantity: 1, GroceryID: common.Int64Ptr(2), Unit: pound},
	}}
	if !Available(recipe, pantry()) {
		t.Errorf("1 pound vs 500 gram should compare as 1 <= 500")
	}

	recipe.Ingredients[0].Quantity = 2
	recipe.Ingredients[0].GroceryID = common.Int64Ptr(1)
	if !Available(recipe, pantry()) {
		t.Errorf("equal quantity should be available")
	}

	recipe.Ingredients[0].Quantity = 2.01
	if Available(recipe, pantry()) {
		t.Errorf("2.01 > 2 should be missing")
	}
}

func TestAvailabilityInfo(t *testing.T) {
	empty := AvailabilityInfo(&common.Recipe{}, pantry(), 0)
	if !empty.Available || empty.MissingIngredients == nil || len(empty.MissingIngredients) != 0 {
		t.Errorf("empty recipe info = %+v", empty)
	}

	info := AvailabilityInfo(&common.Recipe{Ingredients: []common.RecipeIngredient{{Name: "eggs", Quantity: 1}}}, nil, 0)
	if info.Available || len(info.MissingIngredients) != 1 {
		t.Errorf("info = %+v", info)
	}
}

func TestLoadSnapshotAndCheckRecipes(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	milk := &common.Grocery{OwnerID: 1, Name: "milk", Quantity: 1}
	s.CreateGrocery(ctx, milk)
	s.CreateGrocery(ctx, &common.Grocery{OwnerID: 2, Name: "eggs", Quantity: 12})

	snap, err := LoadSnapshot(ctx, s, 1)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	if len(snap) != 1 {
		t.Fatalf("snapshot = %+v, want only owner 1 groceries", snap)
	}

	recipes := []common.Recipe{
		{ID: 1, Ingredients: []common.RecipeIngredient{{Name: "milk", Quantity: 1, GroceryID: &milk.ID}}},
		{ID: 2, Ingredients: []common.RecipeIngredient{{Name: "milk", Quantity: 3, GroceryID: &milk.ID}}},
	}
	got := CheckRecipes(recipes, snap)
	if !got[1] || got[2] {
		t.Errorf("CheckRecipes = %v, want map[1:true 2:false]", got)
	}
}
