package shopping

import (
	"math"
	"testing"

	"onlypans-backend/internal/recipe"
)

func findItem(items []ConsolidatedItem, name string, unit recipe.Unit) *ConsolidatedItem {
	for i := range items {
		if items[i].NormalizedName == name && items[i].Unit == unit {
			return &items[i]
		}
	}
	return nil
}

func TestAggregate(t *testing.T) {
	taxonomy := DefaultTaxonomy()

	t.Run("ScalesByMealServings", func(t *testing.T) {
		items, warnings := Aggregate([]Line{
			{Servings: 3, Name: "Rice", Quantity: 0.5, Unit: recipe.UnitCup},
		}, taxonomy)
		if len(warnings) != 0 {
			t.Fatalf("Expected no warnings, got %v", warnings)
		}
		if len(items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(items))
		}
		if math.Abs(items[0].Quantity-1.5) > 1e-9 {
			t.Errorf("Expected quantity 1.5, got %v", items[0].Quantity)
		}
	})

	t.Run("MergesCaseInsensitive", func(t *testing.T) {
		items, _ := Aggregate([]Line{
			{Servings: 1, Name: "Garlic", Quantity: 2, Unit: recipe.UnitClove},
			{Servings: 1, Name: "garlic", Quantity: 3, Unit: recipe.UnitClove},
		}, taxonomy)
		if len(items) != 1 {
			t.Fatalf("Expected 1 merged item, got %d", len(items))
		}
		if items[0].Name != "Garlic" {
			t.Errorf("Expected first-seen display name 'Garlic', got %q", items[0].Name)
		}
		if math.Abs(items[0].Quantity-5) > 1e-9 {
			t.Errorf("Expected quantity 5, got %v", items[0].Quantity)
		}
	})

	t.Run("TrimsWhitespaceInKey", func(t *testing.T) {
		items, _ := Aggregate([]Line{
			{Servings: 1, Name: "  Basil ", Quantity: 1, Unit: recipe.UnitBunch},
			{Servings: 1, Name: "basil", Quantity: 1, Unit: recipe.UnitBunch},
		}, taxonomy)
		if len(items) != 1 {
			t.Fatalf("Expected 1 merged item, got %d", len(items))
		}
	})

	t.Run("NoCrossUnitMerge", func(t *testing.T) {
		items, _ := Aggregate([]Line{
			{Servings: 1, Name: "Milk", Quantity: 1, Unit: recipe.UnitCup},
			{Servings: 1, Name: "Milk", Quantity: 8, Unit: recipe.UnitOz},
		}, taxonomy)
		if len(items) != 2 {
			t.Fatalf("Expected 2 items for different units, got %d", len(items))
		}
		cup := findItem(items, "milk", recipe.UnitCup)
		oz := findItem(items, "milk", recipe.UnitOz)
		if cup == nil || oz == nil {
			t.Fatalf("Expected both cup and oz entries, got %v", items)
		}
		if cup.Quantity != 1 || oz.Quantity != 8 {
			t.Errorf("Quantities were converted: cup=%v oz=%v", cup.Quantity, oz.Quantity)
		}
	})

	t.Run("SkipsInvalidQuantities", func(t *testing.T) {
		items, warnings := Aggregate([]Line{
			{Servings: 1, Name: "Flour", Quantity: -2, Unit: recipe.UnitCup},
			{Servings: 1, Name: "Sugar", Quantity: math.NaN(), Unit: recipe.UnitCup},
			{Servings: 1, Name: "Butter", Quantity: math.Inf(1), Unit: recipe.UnitTbsp},
			{Servings: 0, Name: "Salt", Quantity: 1, Unit: recipe.UnitTsp},
			{Servings: 2, Name: "Eggs", Quantity: 2, Unit: recipe.UnitPiece},
		}, taxonomy)
		if len(warnings) != 4 {
			t.Fatalf("Expected 4 warnings, got %d: %v", len(warnings), warnings)
		}
		if len(items) != 1 {
			t.Fatalf("Expected only the valid line to survive, got %d items", len(items))
		}
		if items[0].NormalizedName != "eggs" || items[0].Quantity != 4 {
			t.Errorf("Unexpected surviving item: %+v", items[0])
		}
	})

	t.Run("ZeroQuantityIsValid", func(t *testing.T) {
		items, warnings := Aggregate([]Line{
			{Servings: 1, Name: "Pepper", Quantity: 0, Unit: recipe.UnitToTaste},
		}, taxonomy)
		if len(warnings) != 0 {
			t.Fatalf("Zero quantity should not warn: %v", warnings)
		}
		if len(items) != 1 {
			t.Fatalf("Expected 1 item, got %d", len(items))
		}
	})

	t.Run("ItemCountBoundedByLineCount", func(t *testing.T) {
		lines := []Line{
			{Servings: 1, Name: "Tomato", Quantity: 1, Unit: recipe.UnitPiece},
			{Servings: 1, Name: "Onion", Quantity: 1, Unit: recipe.UnitPiece},
			{Servings: 1, Name: "tomato", Quantity: 2, Unit: recipe.UnitPiece},
		}
		items, _ := Aggregate(lines, taxonomy)
		if len(items) > len(lines) {
			t.Errorf("Item count %d exceeds line count %d", len(items), len(lines))
		}
		if len(items) != 2 {
			t.Errorf("Expected 2 items after one collision, got %d", len(items))
		}
	})

	t.Run("DeterministicOutput", func(t *testing.T) {
		lines := []Line{
			{Servings: 2, Name: "Chicken breast", Quantity: 1, Unit: recipe.UnitLb},
			{Servings: 1, Name: "Rice", Quantity: 2, Unit: recipe.UnitCup},
			{Servings: 1, Name: "Tomato", Quantity: 3, Unit: recipe.UnitPiece},
		}
		first, _ := Aggregate(lines, taxonomy)
		second, _ := Aggregate(lines, taxonomy)
		if len(first) != len(second) {
			t.Fatalf("Run lengths differ: %d vs %d", len(first), len(second))
		}
		for i := range first {
			if first[i] != second[i] {
				t.Errorf("Position %d differs across runs: %+v vs %+v", i, first[i], second[i])
			}
		}
	})

	t.Run("EmptyInput", func(t *testing.T) {
		items, warnings := Aggregate(nil, taxonomy)
		if len(items) != 0 || len(warnings) != 0 {
			t.Errorf("Expected empty output, got items=%v warnings=%v", items, warnings)
		}
	})
}
