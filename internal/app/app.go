package app

import (
	"context"
	"fmt"
	"log"

	"onlypans-backend/internal/assistant"
	"onlypans-backend/internal/config"
	"onlypans-backend/internal/mealplan"
	"onlypans-backend/internal/recipe"
	"onlypans-backend/internal/shopping"
)

// App holds the application's dependencies and exposes the operation surface
// consumed by the outer transports (CLI, Telegram bot).
type App struct {
	cfg          *config.Config
	taxonomy     shopping.Taxonomy
	recipeRepo   *recipe.Repository
	mealPlanRepo *mealplan.Repository
	shoppingRepo *shopping.Repository
	generator    *assistant.Generator
	importer     *assistant.Importer
}

// NewApp creates and initializes a new App instance. generator and importer
// may be nil when no AI provider is configured.
func NewApp(
	cfg *config.Config,
	taxonomy shopping.Taxonomy,
	recipeRepo *recipe.Repository,
	mealPlanRepo *mealplan.Repository,
	shoppingRepo *shopping.Repository,
	generator *assistant.Generator,
	importer *assistant.Importer,
) *App {
	return &App{
		cfg:          cfg,
		taxonomy:     taxonomy,
		recipeRepo:   recipeRepo,
		mealPlanRepo: mealPlanRepo,
		shoppingRepo: shoppingRepo,
		generator:    generator,
		importer:     importer,
	}
}

// GenerateShoppingList rebuilds the plan's shopping list from its scheduled
// meals. A plan with zero meals yields an empty list, not an error.
func (a *App) GenerateShoppingList(ctx context.Context, userID string, planID int64) (*shopping.ShoppingList, error) {
	lines, err := a.mealPlanRepo.IngredientLines(ctx, planID, userID)
	if err != nil {
		return nil, err
	}

	input := make([]shopping.Line, len(lines))
	for i, line := range lines {
		input[i] = shopping.Line{
			Servings: line.Servings,
			Name:     line.Name,
			Quantity: line.Quantity,
			Unit:     line.Unit,
		}
	}

	items, warnings := shopping.Aggregate(input, a.taxonomy)
	for _, w := range warnings {
		log.Printf("Warning: skipped ingredient %q during aggregation: %s", w.Name, w.Reason)
	}

	list, err := a.shoppingRepo.Regenerate(ctx, planID, items, a.cfg.PreservePurchased)
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate shopping list for plan %d: %w", planID, err)
	}
	return list, nil
}

// GetShoppingList returns the plan's list, lazily creating an empty one.
func (a *App) GetShoppingList(ctx context.Context, userID string, planID int64) (*shopping.ShoppingList, error) {
	if _, err := a.mealPlanRepo.GetPlan(ctx, planID, userID); err != nil {
		return nil, err
	}
	return a.shoppingRepo.Get(ctx, planID)
}

// ShoppingListView returns the category-grouped projection of the plan's list.
func (a *App) ShoppingListView(ctx context.Context, userID string, planID int64) (*shopping.View, error) {
	list, err := a.GetShoppingList(ctx, userID, planID)
	if err != nil {
		return nil, err
	}
	return shopping.NewView(list), nil
}

// ToggleItem flips one item's purchased flag and returns the new state.
func (a *App) ToggleItem(ctx context.Context, userID string, itemID int64) (bool, error) {
	return a.shoppingRepo.TogglePurchased(ctx, itemID, userID)
}

// GenerateRecipe asks the model for a recipe around the given ingredients and
// stores it for the user.
func (a *App) GenerateRecipe(ctx context.Context, userID string, req assistant.GenerateRequest) (*recipe.Recipe, error) {
	if a.generator == nil {
		return nil, fmt.Errorf("AI assistant is not configured")
	}
	return a.generator.GenerateRecipe(ctx, userID, req)
}

// ImportRecipe extracts a recipe from a web page and stores it for the user.
func (a *App) ImportRecipe(ctx context.Context, userID, url string) (*recipe.Recipe, error) {
	if a.importer == nil {
		return nil, fmt.Errorf("AI assistant is not configured")
	}
	return a.importer.ImportURL(ctx, userID, url)
}

// Plans lists the user's meal plans.
func (a *App) Plans(ctx context.Context, userID string) ([]mealplan.MealPlan, error) {
	return a.mealPlanRepo.ListPlans(ctx, userID)
}

// PlanStats summarizes a plan's meals.
func (a *App) PlanStats(ctx context.Context, userID string, planID int64) (*mealplan.Stats, error) {
	return a.mealPlanRepo.Stats(ctx, planID, userID)
}
