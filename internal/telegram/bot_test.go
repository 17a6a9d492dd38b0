package telegram

import (
	"strings"
	"testing"
	"time"
	"unicode"

	"onlypans-backend/internal/mealplan"
	"onlypans-backend/internal/recipe"
	"onlypans-backend/internal/shopping"
)

func TestFormatPlans(t *testing.T) {
	plans := []mealplan.MealPlan{
		{
			ID:        1,
			Name:      "Week of Sep 7",
			StartDate: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
			EndDate:   time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		},
	}

	out := formatPlans(plans)
	if !strings.Contains(out, "#1 Week of Sep 7 (Sep 7 - Sep 13)") {
		t.Errorf("Unexpected plan line: %q", out)
	}
	for _, r := range out {
		if r > unicode.MaxASCII {
			t.Errorf("Expected plain ASCII output, found %q in %q", r, out)
		}
	}
}

func TestFormatList(t *testing.T) {
	t.Run("EmptyList", func(t *testing.T) {
		view := shopping.NewView(&shopping.ShoppingList{})
		if !strings.Contains(formatList(view), "empty") {
			t.Errorf("Expected empty-list hint, got %q", formatList(view))
		}
	})

	t.Run("GroupsByCategory", func(t *testing.T) {
		view := shopping.NewView(&shopping.ShoppingList{
			Items: []shopping.Item{
				{ID: 1, IngredientName: "Tomato", Quantity: 8, Unit: recipe.UnitPiece, Category: "Produce", Purchased: true},
				{ID: 2, IngredientName: "Rice", Quantity: 3, Unit: recipe.UnitCup, Category: "Pantry"},
			},
		})
		out := formatList(view)
		if !strings.Contains(out, "Shopping list (1/2 purchased)") {
			t.Errorf("Expected summary line, got %q", out)
		}
		if !strings.Contains(out, "Produce") || !strings.Contains(out, "Pantry") {
			t.Errorf("Expected category headers, got %q", out)
		}
		if !strings.Contains(out, "[x] #1 8 piece Tomato") {
			t.Errorf("Expected purchased item line, got %q", out)
		}
		if !strings.Contains(out, "[ ] #2 3 cup Rice") {
			t.Errorf("Expected unpurchased item line, got %q", out)
		}
	})
}
