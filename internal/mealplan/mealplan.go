package mealplan

import (
	"time"

	"onlypans-backend/internal/recipe"
)

// MealType slots one meal into a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Snack     MealType = "snack"
)

var validMealTypes = map[MealType]bool{
	Breakfast: true, Lunch: true, Dinner: true, Snack: true,
}

// ValidMealType reports whether t is one of the four meal slots.
func ValidMealType(t MealType) bool {
	return validMealTypes[t]
}

// MealPlan is a date-bounded collection of scheduled meals for one user.
type MealPlan struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meal is one scheduled instance of cooking a recipe at a serving count.
// At most one meal exists per (plan, date, meal type) slot.
type Meal struct {
	ID          int64      `json:"id"`
	MealPlanID  int64      `json:"meal_plan_id"`
	RecipeID    int64      `json:"recipe_id"`
	RecipeTitle string     `json:"recipe_title,omitempty"`
	Date        time.Time  `json:"date"`
	MealType    MealType   `json:"meal_type"`
	Servings    int        `json:"servings"`
	Notes       string     `json:"notes,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IngredientLine is one (meal, ingredient) pair produced by the ingredient
// source: the meal's serving count alongside the raw recipe ingredient line.
type IngredientLine struct {
	Servings int
	Name     string
	Quantity float64
	Unit     recipe.Unit
}

// Stats summarizes the meals of one plan.
type Stats struct {
	TotalMeals     int              `json:"total_meals"`
	CompletedMeals int              `json:"completed_meals"`
	CompletionRate float64          `json:"completion_rate"`
	TotalCalories  int              `json:"total_calories"`
	MealTypeCounts map[MealType]int `json:"meal_types_distribution"`
}
