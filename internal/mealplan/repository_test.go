package mealplan

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"onlypans-backend/internal/database"
	"onlypans-backend/internal/recipe"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db.SQL
}

func saveRecipe(t *testing.T, db *sql.DB, title string, ingredients []recipe.Ingredient) int64 {
	t.Helper()
	rec := &recipe.Recipe{
		Title:       title,
		Servings:    4,
		Difficulty:  "easy",
		Cuisine:     "other",
		CreatedBy:   "user-1",
		Ingredients: ingredients,
	}
	if err := recipe.NewRepository(db).Save(context.Background(), rec); err != nil {
		t.Fatalf("Failed to save recipe: %v", err)
	}
	return rec.ID
}

func createPlan(t *testing.T, repo *Repository, userID string) *MealPlan {
	t.Helper()
	plan := &MealPlan{
		UserID:    userID,
		Name:      "Week of Sep 7",
		StartDate: time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 9, 13, 0, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
	if err := repo.CreatePlan(context.Background(), plan); err != nil {
		t.Fatalf("Failed to create plan: %v", err)
	}
	return plan
}

func TestPlanLifecycle(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)

	t.Run("CreateAndGet", func(t *testing.T) {
		plan := createPlan(t, repo, "user-1")
		got, err := repo.GetPlan(ctx, plan.ID, "user-1")
		if err != nil {
			t.Fatalf("GetPlan failed: %v", err)
		}
		if got.Name != plan.Name {
			t.Errorf("Expected name %q, got %q", plan.Name, got.Name)
		}
		if !got.StartDate.Equal(plan.StartDate) || !got.EndDate.Equal(plan.EndDate) {
			t.Errorf("Dates did not round-trip: %v..%v", got.StartDate, got.EndDate)
		}
	})

	t.Run("GetScopedByOwner", func(t *testing.T) {
		plan := createPlan(t, repo, "user-1")
		if _, err := repo.GetPlan(ctx, plan.ID, "intruder"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for foreign user, got %v", err)
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		plans, err := repo.ListPlans(ctx, "user-1")
		if err != nil {
			t.Fatalf("ListPlans failed: %v", err)
		}
		if len(plans) < 2 {
			t.Fatalf("Expected at least 2 plans, got %d", len(plans))
		}
		for i := 1; i < len(plans); i++ {
			if plans[i-1].CreatedAt.Before(plans[i].CreatedAt) {
				t.Errorf("Plans not newest first at index %d", i)
			}
		}
	})

	t.Run("DeleteCascades", func(t *testing.T) {
		plan := createPlan(t, repo, "user-1")
		recipeID := saveRecipe(t, db, "Omelette", []recipe.Ingredient{
			{Name: "Eggs", Quantity: 3, Unit: recipe.UnitPiece},
		})
		meal := &Meal{
			MealPlanID: plan.ID,
			RecipeID:   recipeID,
			Date:       plan.StartDate,
			MealType:   Breakfast,
			Servings:   1,
		}
		if err := repo.ScheduleMeal(ctx, "user-1", meal); err != nil {
			t.Fatalf("ScheduleMeal failed: %v", err)
		}

		if err := repo.DeletePlan(ctx, plan.ID, "user-1"); err != nil {
			t.Fatalf("DeletePlan failed: %v", err)
		}
		var count int
		if err := db.QueryRow(
			`SELECT COUNT(*) FROM meals WHERE meal_plan_id = ?`, plan.ID).Scan(&count); err != nil {
			t.Fatalf("Count query failed: %v", err)
		}
		if count != 0 {
			t.Errorf("Expected meals to cascade away, %d remain", count)
		}
	})

	t.Run("DeleteUnknownPlan", func(t *testing.T) {
		if err := repo.DeletePlan(ctx, 99999, "user-1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})
}

func TestScheduleMeal(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)
	plan := createPlan(t, repo, "user-1")
	recipeID := saveRecipe(t, db, "Pasta", []recipe.Ingredient{
		{Name: "Spaghetti", Quantity: 200, Unit: recipe.UnitGram},
	})

	t.Run("OccupiesSlot", func(t *testing.T) {
		meal := &Meal{
			MealPlanID: plan.ID, RecipeID: recipeID,
			Date: plan.StartDate, MealType: Dinner, Servings: 2,
		}
		if err := repo.ScheduleMeal(ctx, "user-1", meal); err != nil {
			t.Fatalf("ScheduleMeal failed: %v", err)
		}
		if meal.ID == 0 {
			t.Error("Expected meal ID to be assigned")
		}
	})

	t.Run("RejectsOccupiedSlot", func(t *testing.T) {
		dup := &Meal{
			MealPlanID: plan.ID, RecipeID: recipeID,
			Date: plan.StartDate, MealType: Dinner, Servings: 4,
		}
		if err := repo.ScheduleMeal(ctx, "user-1", dup); !errors.Is(err, ErrSlotTaken) {
			t.Errorf("Expected ErrSlotTaken, got %v", err)
		}
	})

	t.Run("DifferentSlotSameDay", func(t *testing.T) {
		meal := &Meal{
			MealPlanID: plan.ID, RecipeID: recipeID,
			Date: plan.StartDate, MealType: Lunch, Servings: 2,
		}
		if err := repo.ScheduleMeal(ctx, "user-1", meal); err != nil {
			t.Errorf("Expected lunch slot to be free, got %v", err)
		}
	})

	t.Run("RejectsInvalidMealType", func(t *testing.T) {
		meal := &Meal{
			MealPlanID: plan.ID, RecipeID: recipeID,
			Date: plan.StartDate, MealType: "brunch", Servings: 2,
		}
		if err := repo.ScheduleMeal(ctx, "user-1", meal); err == nil {
			t.Error("Expected invalid meal type to be rejected")
		}
	})

	t.Run("RejectsZeroServings", func(t *testing.T) {
		meal := &Meal{
			MealPlanID: plan.ID, RecipeID: recipeID,
			Date: plan.StartDate.AddDate(0, 0, 1), MealType: Dinner, Servings: 0,
		}
		if err := repo.ScheduleMeal(ctx, "user-1", meal); err == nil {
			t.Error("Expected zero servings to be rejected")
		}
	})

	t.Run("RejectsForeignPlan", func(t *testing.T) {
		meal := &Meal{
			MealPlanID: plan.ID, RecipeID: recipeID,
			Date: plan.StartDate.AddDate(0, 0, 2), MealType: Dinner, Servings: 2,
		}
		if err := repo.ScheduleMeal(ctx, "intruder", meal); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound for foreign plan, got %v", err)
		}
	})
}

func TestMealQueries(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)
	plan := createPlan(t, repo, "user-1")
	recipeID := saveRecipe(t, db, "Stir Fry", []recipe.Ingredient{
		{Name: "Rice", Quantity: 1, Unit: recipe.UnitCup},
	})

	schedule := func(t *testing.T, date time.Time, mt MealType) *Meal {
		t.Helper()
		meal := &Meal{
			MealPlanID: plan.ID, RecipeID: recipeID,
			Date: date, MealType: mt, Servings: 2,
		}
		if err := repo.ScheduleMeal(ctx, "user-1", meal); err != nil {
			t.Fatalf("ScheduleMeal failed: %v", err)
		}
		return meal
	}

	day1 := plan.StartDate
	day2 := plan.StartDate.AddDate(0, 0, 1)
	schedule(t, day2, Dinner)
	first := schedule(t, day1, Breakfast)
	schedule(t, day1, Lunch)

	t.Run("ScheduleOrder", func(t *testing.T) {
		meals, err := repo.Meals(ctx, plan.ID, "user-1")
		if err != nil {
			t.Fatalf("Meals failed: %v", err)
		}
		if len(meals) != 3 {
			t.Fatalf("Expected 3 meals, got %d", len(meals))
		}
		if !meals[0].Date.Equal(day1) || meals[0].MealType != Breakfast {
			t.Errorf("Expected breakfast on day 1 first, got %s on %v",
				meals[0].MealType, meals[0].Date)
		}
		if !meals[2].Date.Equal(day2) {
			t.Errorf("Expected day 2 meal last, got %v", meals[2].Date)
		}
		if meals[0].RecipeTitle != "Stir Fry" {
			t.Errorf("Expected recipe title to be joined in, got %q", meals[0].RecipeTitle)
		}
	})

	t.Run("DateRange", func(t *testing.T) {
		meals, err := repo.MealsByDateRange(ctx, "user-1", day1, day1)
		if err != nil {
			t.Fatalf("MealsByDateRange failed: %v", err)
		}
		if len(meals) != 2 {
			t.Fatalf("Expected 2 meals on day 1, got %d", len(meals))
		}
		for _, m := range meals {
			if !m.Date.Equal(day1) {
				t.Errorf("Meal outside range: %v", m.Date)
			}
		}
	})

	t.Run("MarkCompleted", func(t *testing.T) {
		if err := repo.MarkCompleted(ctx, first.ID, "user-1"); err != nil {
			t.Fatalf("MarkCompleted failed: %v", err)
		}
		meals, err := repo.Meals(ctx, plan.ID, "user-1")
		if err != nil {
			t.Fatalf("Meals failed: %v", err)
		}
		var done int
		for _, m := range meals {
			if m.Completed {
				done++
				if m.CompletedAt == nil {
					t.Error("Completed meal missing completion time")
				}
			}
		}
		if done != 1 {
			t.Errorf("Expected exactly 1 completed meal, got %d", done)
		}

		// Completing twice is a no-op, not an error.
		if err := repo.MarkCompleted(ctx, first.ID, "user-1"); err != nil {
			t.Errorf("Second MarkCompleted should be a no-op, got %v", err)
		}
	})

	t.Run("MarkCompletedForeignUser", func(t *testing.T) {
		if err := repo.MarkCompleted(ctx, first.ID, "intruder"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx, plan.ID, "user-1")
		if err != nil {
			t.Fatalf("Stats failed: %v", err)
		}
		if stats.TotalMeals != 3 {
			t.Errorf("Expected 3 total meals, got %d", stats.TotalMeals)
		}
		if stats.CompletedMeals != 1 {
			t.Errorf("Expected 1 completed meal, got %d", stats.CompletedMeals)
		}
		if stats.MealTypeCounts[Dinner] != 1 || stats.MealTypeCounts[Breakfast] != 1 {
			t.Errorf("Unexpected meal type counts: %v", stats.MealTypeCounts)
		}
	})
}

func TestIngredientLines(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)
	plan := createPlan(t, repo, "user-1")

	soupID := saveRecipe(t, db, "Soup", []recipe.Ingredient{
		{Name: "Onion", Quantity: 1, Unit: recipe.UnitPiece},
		{Name: "Carrot", Quantity: 2, Unit: recipe.UnitPiece},
	})
	saladID := saveRecipe(t, db, "Salad", []recipe.Ingredient{
		{Name: "Lettuce", Quantity: 1, Unit: recipe.UnitPiece},
	})

	mustSchedule := func(date time.Time, mt MealType, recipeID int64, servings int) {
		t.Helper()
		meal := &Meal{
			MealPlanID: plan.ID, RecipeID: recipeID,
			Date: date, MealType: mt, Servings: servings,
		}
		if err := repo.ScheduleMeal(ctx, "user-1", meal); err != nil {
			t.Fatalf("ScheduleMeal failed: %v", err)
		}
	}
	mustSchedule(plan.StartDate.AddDate(0, 0, 1), Lunch, saladID, 3)
	mustSchedule(plan.StartDate, Dinner, soupID, 2)

	t.Run("OnePerMealIngredientPair", func(t *testing.T) {
		lines, err := repo.IngredientLines(ctx, plan.ID, "user-1")
		if err != nil {
			t.Fatalf("IngredientLines failed: %v", err)
		}
		if len(lines) != 3 {
			t.Fatalf("Expected 3 lines, got %d", len(lines))
		}
	})

	t.Run("ScheduleThenRecipeOrder", func(t *testing.T) {
		lines, err := repo.IngredientLines(ctx, plan.ID, "user-1")
		if err != nil {
			t.Fatalf("IngredientLines failed: %v", err)
		}
		want := []struct {
			name     string
			servings int
		}{
			{"Onion", 2}, {"Carrot", 2}, {"Lettuce", 3},
		}
		for i, w := range want {
			if lines[i].Name != w.name || lines[i].Servings != w.servings {
				t.Errorf("Line %d: expected %s x%d, got %s x%d",
					i, w.name, w.servings, lines[i].Name, lines[i].Servings)
			}
		}
	})

	t.Run("RepeatedRecipeYieldsRepeatedLines", func(t *testing.T) {
		mustSchedule(plan.StartDate.AddDate(0, 0, 2), Dinner, soupID, 4)
		lines, err := repo.IngredientLines(ctx, plan.ID, "user-1")
		if err != nil {
			t.Fatalf("IngredientLines failed: %v", err)
		}
		var onions int
		for _, l := range lines {
			if l.Name == "Onion" {
				onions++
			}
		}
		if onions != 2 {
			t.Errorf("Expected the repeated recipe to contribute 2 onion lines, got %d", onions)
		}
	})

	t.Run("ForeignUser", func(t *testing.T) {
		if _, err := repo.IngredientLines(ctx, plan.ID, "intruder"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("EmptyPlan", func(t *testing.T) {
		empty := createPlan(t, repo, "user-1")
		lines, err := repo.IngredientLines(ctx, empty.ID, "user-1")
		if err != nil {
			t.Fatalf("IngredientLines failed: %v", err)
		}
		if len(lines) != 0 {
			t.Errorf("Expected no lines for empty plan, got %d", len(lines))
		}
	})
}
