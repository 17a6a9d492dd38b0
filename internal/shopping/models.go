package shopping

import (
	"time"

	"onlypans-backend/internal/recipe"
)

// ShoppingList is the single shopping list owned by a meal plan. The list
// identity is stable across regenerations; only its items are replaced.
type ShoppingList struct {
	ID         int64      `json:"id"`
	MealPlanID int64      `json:"meal_plan_id"`
	Items      []Item     `json:"items"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Item is one stored shopping list line. Within a list the
// (normalized name, unit) pair is unique.
type Item struct {
	ID             int64       `json:"id"`
	IngredientName string      `json:"ingredient_name"`
	NormalizedName string      `json:"-"`
	Quantity       float64     `json:"quantity"`
	Unit           recipe.Unit `json:"unit"`
	Category       string      `json:"category"`
	Purchased      bool        `json:"purchased"`
	Notes          string      `json:"notes,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}
