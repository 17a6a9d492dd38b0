package mealplan

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"onlypans-backend/internal/recipe"
)

var (
	// ErrNotFound is returned when a plan or meal does not exist or is not
	// visible to the requesting user.
	ErrNotFound = errors.New("meal plan not found")

	// ErrSlotTaken is returned when a (plan, date, meal type) slot is already
	// occupied. Scheduling never overwrites silently.
	ErrSlotTaken = errors.New("meal slot already scheduled")
)

const dateLayout = "2006-01-02"

// Repository is a database-backed repository for meal plans and their meals.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// CreatePlan inserts a new meal plan for the given user.
func (r *Repository) CreatePlan(ctx context.Context, plan *MealPlan) error {
	now := time.Now().UTC()
	if plan.Name == "" {
		plan.Name = "My Meal Plan"
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meal_plans (user_id, name, start_date, end_date, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		plan.UserID, plan.Name, plan.StartDate.Format(dateLayout),
		plan.EndDate.Format(dateLayout), plan.IsActive, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert meal plan: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read meal plan id: %w", err)
	}
	plan.ID = id
	plan.CreatedAt = now
	plan.UpdatedAt = now
	return nil
}

// GetPlan retrieves one plan owned by userID.
func (r *Repository) GetPlan(ctx context.Context, planID int64, userID string) (*MealPlan, error) {
	var plan MealPlan
	var start, end string
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, start_date, end_date, is_active, created_at, updated_at
		FROM meal_plans WHERE id = ? AND user_id = ?`, planID, userID).Scan(
		&plan.ID, &plan.UserID, &plan.Name, &start, &end,
		&plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get meal plan: %w", err)
	}
	if plan.StartDate, err = time.Parse(dateLayout, start); err != nil {
		return nil, fmt.Errorf("failed to parse plan start date: %w", err)
	}
	if plan.EndDate, err = time.Parse(dateLayout, end); err != nil {
		return nil, fmt.Errorf("failed to parse plan end date: %w", err)
	}
	return &plan, nil
}

// ListPlans returns the user's plans, newest first.
func (r *Repository) ListPlans(ctx context.Context, userID string) ([]MealPlan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, name, start_date, end_date, is_active, created_at, updated_at
		FROM meal_plans WHERE user_id = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meal plans: %w", err)
	}
	defer rows.Close()

	var plans []MealPlan
	for rows.Next() {
		var plan MealPlan
		var start, end string
		if err := rows.Scan(&plan.ID, &plan.UserID, &plan.Name, &start, &end,
			&plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal plan row: %w", err)
		}
		if plan.StartDate, err = time.Parse(dateLayout, start); err != nil {
			return nil, fmt.Errorf("failed to parse plan start date: %w", err)
		}
		if plan.EndDate, err = time.Parse(dateLayout, end); err != nil {
			return nil, fmt.Errorf("failed to parse plan end date: %w", err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

// DeletePlan removes a plan; meals and the shopping list cascade away.
func (r *Repository) DeletePlan(ctx context.Context, planID int64, userID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM meal_plans WHERE id = ? AND user_id = ?`, planID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete meal plan: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ScheduleMeal adds a meal to a plan. The (plan, date, meal type) slot must be
// free; a second meal for an occupied slot fails with ErrSlotTaken.
func (r *Repository) ScheduleMeal(ctx context.Context, userID string, meal *Meal) error {
	if !ValidMealType(meal.MealType) {
		return fmt.Errorf("invalid meal type %q", meal.MealType)
	}
	if meal.Servings < 1 {
		return fmt.Errorf("servings must be at least 1, got %d", meal.Servings)
	}
	if _, err := r.GetPlan(ctx, meal.MealPlanID, userID); err != nil {
		return err
	}

	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO meals (meal_plan_id, recipe_id, date, meal_type, servings, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		meal.MealPlanID, meal.RecipeID, meal.Date.Format(dateLayout),
		string(meal.MealType), meal.Servings, meal.Notes, now)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrSlotTaken
		}
		return fmt.Errorf("failed to insert meal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read meal id: %w", err)
	}
	meal.ID = id
	meal.CreatedAt = now
	return nil
}

// Meals returns the meals of a plan in schedule order (date, then meal type).
func (r *Repository) Meals(ctx context.Context, planID int64, userID string) ([]Meal, error) {
	if _, err := r.GetPlan(ctx, planID, userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.meal_plan_id, m.recipe_id, r.title, m.date, m.meal_type,
			m.servings, m.notes, m.completed, m.completed_at, m.created_at
		FROM meals m JOIN recipes r ON r.id = m.recipe_id
		WHERE m.meal_plan_id = ?
		ORDER BY m.date, m.meal_type`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query meals: %w", err)
	}
	defer rows.Close()
	return scanMeals(rows)
}

// MealsByDateRange returns meals across the user's active plans in [start, end].
func (r *Repository) MealsByDateRange(ctx context.Context, userID string, start, end time.Time) ([]Meal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.meal_plan_id, m.recipe_id, r.title, m.date, m.meal_type,
			m.servings, m.notes, m.completed, m.completed_at, m.created_at
		FROM meals m
		JOIN meal_plans p ON p.id = m.meal_plan_id
		JOIN recipes r ON r.id = m.recipe_id
		WHERE p.user_id = ? AND p.is_active = 1
			AND m.date >= ? AND m.date <= ?
		ORDER BY m.date, m.meal_type`,
		userID, start.Format(dateLayout), end.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to query meals by date range: %w", err)
	}
	defer rows.Close()
	return scanMeals(rows)
}

// MarkCompleted marks a meal as cooked. Completing twice is a no-op.
func (r *Repository) MarkCompleted(ctx context.Context, mealID int64, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE meals SET completed = 1, completed_at = ?
		WHERE id = ? AND completed = 0
			AND meal_plan_id IN (SELECT id FROM meal_plans WHERE user_id = ?)`,
		time.Now().UTC(), mealID, userID)
	if err != nil {
		return fmt.Errorf("failed to mark meal completed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		// Distinguish "already completed" from "not yours / missing".
		var exists int
		err := r.db.QueryRowContext(ctx, `
			SELECT 1 FROM meals m JOIN meal_plans p ON p.id = m.meal_plan_id
			WHERE m.id = ? AND p.user_id = ?`, mealID, userID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to check meal: %w", err)
		}
	}
	return nil
}

// Stats computes totals for a plan's meals, including calorie estimates where
// recipes carry them.
func (r *Repository) Stats(ctx context.Context, planID int64, userID string) (*Stats, error) {
	meals, err := r.Meals(ctx, planID, userID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{MealTypeCounts: map[MealType]int{}}
	for _, m := range meals {
		stats.TotalMeals++
		if m.Completed {
			stats.CompletedMeals++
		}
		stats.MealTypeCounts[m.MealType]++

		var calories sql.NullInt64
		err := r.db.QueryRowContext(ctx,
			`SELECT calories_per_serving FROM recipes WHERE id = ?`, m.RecipeID).Scan(&calories)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to read recipe calories: %w", err)
		}
		if calories.Valid {
			stats.TotalCalories += int(calories.Int64) * m.Servings
		}
	}
	if stats.TotalMeals > 0 {
		stats.CompletionRate = float64(stats.CompletedMeals) / float64(stats.TotalMeals) * 100
	}
	return stats, nil
}

// IngredientLines is the ingredient source for shopping list generation: one
// line per (meal, recipe ingredient) pair, meals in schedule order, ingredient
// lines in their recipe-defined order. Plain query, restartable.
func (r *Repository) IngredientLines(ctx context.Context, planID int64, userID string) ([]IngredientLine, error) {
	if _, err := r.GetPlan(ctx, planID, userID); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.servings, i.name, i.quantity, i.unit
		FROM meals m
		JOIN ingredients i ON i.recipe_id = m.recipe_id
		WHERE m.meal_plan_id = ?
		ORDER BY m.date, m.meal_type, i.position, i.id`, planID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredient lines: %w", err)
	}
	defer rows.Close()

	var lines []IngredientLine
	for rows.Next() {
		var line IngredientLine
		var unit string
		if err := rows.Scan(&line.Servings, &line.Name, &line.Quantity, &unit); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient line: %w", err)
		}
		line.Unit = recipe.Unit(unit)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func scanMeals(rows *sql.Rows) ([]Meal, error) {
	var meals []Meal
	for rows.Next() {
		var m Meal
		var date string
		var mealType string
		var completedAt sql.NullTime
		if err := rows.Scan(&m.ID, &m.MealPlanID, &m.RecipeID, &m.RecipeTitle,
			&date, &mealType, &m.Servings, &m.Notes, &m.Completed,
			&completedAt, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meal row: %w", err)
		}
		parsed, err := time.Parse(dateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse meal date: %w", err)
		}
		m.Date = parsed
		m.MealType = MealType(mealType)
		if completedAt.Valid {
			m.CompletedAt = &completedAt.Time
		}
		meals = append(meals, m)
	}
	return meals, rows.Err()
}
