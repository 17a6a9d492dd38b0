package recipe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a recipe does not exist.
var ErrNotFound = errors.New("recipe not found")

// Repository is a database-backed repository for recipes.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new Repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Save inserts a recipe together with its ingredient lines and steps in one
// transaction. The assigned ID is written back into rec.
func (r *Repository) Save(ctx context.Context, rec *Recipe) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	var calories sql.NullInt64
	var protein, carbs, fat sql.NullFloat64
	if rec.Nutrition != nil {
		calories = sql.NullInt64{Int64: int64(rec.Nutrition.CaloriesPerServing), Valid: true}
		protein = sql.NullFloat64{Float64: rec.Nutrition.ProteinGrams, Valid: true}
		carbs = sql.NullFloat64{Float64: rec.Nutrition.CarbsGrams, Valid: true}
		fat = sql.NullFloat64{Float64: rec.Nutrition.FatGrams, Valid: true}
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO recipes (title, description, prep_time, cook_time, servings,
			difficulty, cuisine, created_by, ai_generated,
			calories_per_serving, protein_grams, carbs_grams, fat_grams,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Title, rec.Description, rec.PrepTime, rec.CookTime, rec.Servings,
		rec.Difficulty, rec.Cuisine, rec.CreatedBy, rec.AIGenerated,
		calories, protein, carbs, fat, now, now)
	if err != nil {
		return fmt.Errorf("failed to insert recipe: %w", err)
	}

	recipeID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read recipe id: %w", err)
	}

	for i, ing := range rec.Ingredients {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO ingredients (recipe_id, name, quantity, unit, notes, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			recipeID, ing.Name, ing.Quantity, string(ing.Unit), ing.Notes, i); err != nil {
			return fmt.Errorf("failed to insert ingredient %q: %w", ing.Name, err)
		}
	}

	for _, step := range rec.Steps {
		var minutes sql.NullInt64
		if step.TimeMinutes > 0 {
			minutes = sql.NullInt64{Int64: int64(step.TimeMinutes), Valid: true}
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO instructions (recipe_id, step_number, instruction, time_minutes)
			VALUES (?, ?, ?, ?)`,
			recipeID, step.StepNumber, step.Instruction, minutes); err != nil {
			return fmt.Errorf("failed to insert step %d: %w", step.StepNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit recipe: %w", err)
	}

	rec.ID = recipeID
	rec.CreatedAt = now
	rec.UpdatedAt = now
	return nil
}

// Get retrieves a recipe by its ID, including ingredient lines in their
// defined order.
func (r *Repository) Get(ctx context.Context, id int64) (*Recipe, error) {
	var rec Recipe
	var calories sql.NullInt64
	var protein, carbs, fat sql.NullFloat64

	err := r.db.QueryRowContext(ctx, `
		SELECT id, title, description, prep_time, cook_time, servings,
			difficulty, cuisine, created_by, ai_generated,
			calories_per_serving, protein_grams, carbs_grams, fat_grams,
			created_at, updated_at
		FROM recipes WHERE id = ?`, id).Scan(
		&rec.ID, &rec.Title, &rec.Description, &rec.PrepTime, &rec.CookTime,
		&rec.Servings, &rec.Difficulty, &rec.Cuisine, &rec.CreatedBy,
		&rec.AIGenerated, &calories, &protein, &carbs, &fat,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get recipe by ID: %w", err)
	}

	if calories.Valid {
		rec.Nutrition = &Nutrition{
			CaloriesPerServing: int(calories.Int64),
			ProteinGrams:       protein.Float64,
			CarbsGrams:         carbs.Float64,
			FatGrams:           fat.Float64,
		}
	}

	ingredients, err := r.ingredientsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Ingredients = ingredients

	steps, err := r.stepsFor(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Steps = steps

	return &rec, nil
}

// List returns all recipes created by the given user, newest first. Ingredient
// lines are not loaded; callers needing them should use Get.
func (r *Repository) List(ctx context.Context, userID string) ([]Recipe, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, description, prep_time, cook_time, servings,
			difficulty, cuisine, created_by, ai_generated, created_at, updated_at
		FROM recipes WHERE created_by = ?
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes: %w", err)
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		var rec Recipe
		if err := rows.Scan(&rec.ID, &rec.Title, &rec.Description, &rec.PrepTime,
			&rec.CookTime, &rec.Servings, &rec.Difficulty, &rec.Cuisine,
			&rec.CreatedBy, &rec.AIGenerated, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan recipe row: %w", err)
		}
		recipes = append(recipes, rec)
	}
	return recipes, rows.Err()
}

// Delete removes a recipe and, via cascade, its ingredient lines and steps.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recipes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
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

func (r *Repository) ingredientsFor(ctx context.Context, recipeID int64) ([]Ingredient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, quantity, unit, notes
		FROM ingredients WHERE recipe_id = ?
		ORDER BY position, id`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ingredients: %w", err)
	}
	defer rows.Close()

	var ingredients []Ingredient
	for rows.Next() {
		var ing Ingredient
		var unit string
		if err := rows.Scan(&ing.ID, &ing.Name, &ing.Quantity, &unit, &ing.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient row: %w", err)
		}
		ing.Unit = Unit(unit)
		ingredients = append(ingredients, ing)
	}
	return ingredients, rows.Err()
}

func (r *Repository) stepsFor(ctx context.Context, recipeID int64) ([]Instruction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT step_number, instruction, COALESCE(time_minutes, 0)
		FROM instructions WHERE recipe_id = ?
		ORDER BY step_number`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query instructions: %w", err)
	}
	defer rows.Close()

	var steps []Instruction
	for rows.Next() {
		var step Instruction
		if err := rows.Scan(&step.StepNumber, &step.Instruction, &step.TimeMinutes); err != nil {
			return nil, fmt.Errorf("failed to scan instruction row: %w", err)
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}
