package shopping

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
	// ErrNotFound is returned when an item does not exist or does not belong
	// to a list the caller owns.
	ErrNotFound = errors.New("shopping list item not found")

	// ErrConflict signals that a concurrent regeneration held the list. The
	// operation is retried once before being surfaced.
	ErrConflict = errors.New("shopping list regeneration conflict")
)

// Repository handles persistence of shopping lists. Plan IDs passed in are
// assumed already authorized by the caller; only item-level operations carry
// their own ownership check.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a new shopping list repository.
func NewRepository(d *sql.DB) *Repository {
	return &Repository{db: d}
}

// Regenerate atomically replaces the items of the plan's shopping list with
// the given consolidated set, creating the list on first generation. Readers
// observe either the old complete set or the new one, never a partial list.
//
// When preservePurchased is set, items whose (normalized name, unit) key
// survives the regeneration keep their purchased flag.
func (r *Repository) Regenerate(ctx context.Context, planID int64, items []ConsolidatedItem, preservePurchased bool) (*ShoppingList, error) {
	list, err := r.regenerateOnce(ctx, planID, items, preservePurchased)
	if errors.Is(err, ErrConflict) {
		list, err = r.regenerateOnce(ctx, planID, items, preservePurchased)
	}
	return list, err
}

func (r *Repository) regenerateOnce(ctx context.Context, planID int64, items []ConsolidatedItem, preservePurchased bool) (*ShoppingList, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err, "failed to begin regeneration")
	}
	defer tx.Rollback()

	listID, createdAt, err := getOrCreateList(ctx, tx, planID)
	if err != nil {
		return nil, err
	}

	purchased := map[mergeKey]bool{}
	if preservePurchased {
		rows, err := tx.QueryContext(ctx, `
			SELECT normalized_name, unit FROM shopping_list_items
			WHERE shopping_list_id = ? AND purchased = 1`, listID)
		if err != nil {
			return nil, classify(err, "failed to snapshot purchased items")
		}
		for rows.Next() {
			var name, unit string
			if err := rows.Scan(&name, &unit); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to scan purchased key: %w", err)
			}
			purchased[mergeKey{name: name, unit: recipe.Unit(unit)}] = true
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, classify(err, "failed to snapshot purchased items")
		}
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM shopping_list_items WHERE shopping_list_id = ?`, listID); err != nil {
		return nil, classify(err, "failed to clear shopping list items")
	}

	now := time.Now().UTC()
	for _, item := range items {
		keep := purchased[mergeKey{name: item.NormalizedName, unit: item.Unit}]
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shopping_list_items
				(shopping_list_id, ingredient_name, normalized_name, quantity,
				 unit, category, purchased, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			listID, item.Name, item.NormalizedName, item.Quantity,
			string(item.Unit), item.Category, keep, now); err != nil {
			return nil, classify(err, fmt.Sprintf("failed to insert item %q", item.Name))
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE shopping_lists SET updated_at = ? WHERE id = ?`, now, listID); err != nil {
		return nil, classify(err, "failed to touch shopping list")
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit regeneration")
	}

	storedItems, err := r.itemsFor(ctx, listID)
	if err != nil {
		return nil, err
	}
	return &ShoppingList{
		ID:         listID,
		MealPlanID: planID,
		Items:      storedItems,
		CreatedAt:  createdAt,
		UpdatedAt:  now,
	}, nil
}

// Get returns the plan's shopping list, lazily creating an empty one so reads
// never fail on an otherwise valid plan.
func (r *Repository) Get(ctx context.Context, planID int64) (*ShoppingList, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify(err, "failed to begin shopping list read")
	}
	defer tx.Rollback()

	listID, createdAt, err := getOrCreateList(ctx, tx, planID)
	if err != nil {
		return nil, err
	}

	var updatedAt time.Time
	if err := tx.QueryRowContext(ctx,
		`SELECT updated_at FROM shopping_lists WHERE id = ?`, listID).Scan(&updatedAt); err != nil {
		return nil, fmt.Errorf("failed to read shopping list: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify(err, "failed to commit shopping list read")
	}

	items, err := r.itemsFor(ctx, listID)
	if err != nil {
		return nil, err
	}
	return &ShoppingList{
		ID:         listID,
		MealPlanID: planID,
		Items:      items,
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}, nil
}

// TogglePurchased flips one item's purchased flag and returns the new state.
// The item must belong to a list whose plan is owned by userID.
func (r *Repository) TogglePurchased(ctx context.Context, itemID int64, userID string) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, classify(err, "failed to begin toggle")
	}
	defer tx.Rollback()

	var current bool
	err = tx.QueryRowContext(ctx, `
		SELECT i.purchased
		FROM shopping_list_items i
		JOIN shopping_lists l ON l.id = i.shopping_list_id
		JOIN meal_plans p ON p.id = l.meal_plan_id
		WHERE i.id = ? AND p.user_id = ?`, itemID, userID).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("failed to look up item: %w", err)
	}

	newState := !current
	if _, err := tx.ExecContext(ctx,
		`UPDATE shopping_list_items SET purchased = ? WHERE id = ?`, newState, itemID); err != nil {
		return false, classify(err, "failed to update item")
	}

	if err := tx.Commit(); err != nil {
		return false, classify(err, "failed to commit toggle")
	}
	return newState, nil
}

func getOrCreateList(ctx context.Context, tx *sql.Tx, planID int64) (int64, time.Time, error) {
	// Write-first: two racing first reads queue on the write lock instead of
	// deadlocking on a read-to-write upgrade, and the loser's insert is a
	// no-op rather than a unique violation.
	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO shopping_lists (meal_plan_id, created_at, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (meal_plan_id) DO NOTHING`, planID, now, now); err != nil {
		return 0, time.Time{}, classify(err, "failed to create shopping list")
	}

	var listID int64
	var createdAt time.Time
	if err := tx.QueryRowContext(ctx,
		`SELECT id, created_at FROM shopping_lists WHERE meal_plan_id = ?`, planID).
		Scan(&listID, &createdAt); err != nil {
		return 0, time.Time{}, fmt.Errorf("failed to look up shopping list: %w", err)
	}
	return listID, createdAt, nil
}

func (r *Repository) itemsFor(ctx context.Context, listID int64) ([]Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, ingredient_name, normalized_name, quantity, unit, category,
			purchased, notes, created_at
		FROM shopping_list_items
		WHERE shopping_list_id = ?
		ORDER BY category, ingredient_name`, listID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shopping list items: %w", err)
	}
	defer rows.Close()

	var items []Item
	for rows.Next() {
		var item Item
		var unit string
		if err := rows.Scan(&item.ID, &item.IngredientName, &item.NormalizedName,
			&item.Quantity, &unit, &item.Category, &item.Purchased,
			&item.Notes, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan shopping list item: %w", err)
		}
		item.Unit = recipe.Unit(unit)
		items = append(items, item)
	}
	return items, rows.Err()
}

// classify wraps storage errors, mapping lock contention onto ErrConflict so
// callers can retry.
func classify(err error, msg string) error {
	text := err.Error()
	if strings.Contains(text, "SQLITE_BUSY") || strings.Contains(text, "database is locked") {
		return fmt.Errorf("%s: %w", msg, ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
