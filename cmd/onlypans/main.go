package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"onlypans-backend/internal/app"
	"onlypans-backend/internal/assistant"
	"onlypans-backend/internal/auth"
	"onlypans-backend/internal/config"
	"onlypans-backend/internal/database"
	"onlypans-backend/internal/llm"
	"onlypans-backend/internal/mealplan"
	"onlypans-backend/internal/metrics"
	"onlypans-backend/internal/recipe"
	"onlypans-backend/internal/shopping"

	"github.com/joho/godotenv"
)

const dateLayout = "2006-01-02"

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	recipeRepo := recipe.NewRepository(db.SQL)
	mealPlanRepo := mealplan.NewRepository(db.SQL)
	shoppingRepo := shopping.NewRepository(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	var generator *assistant.Generator
	var importer *assistant.Importer
	if cfg.GroqAPIKey != "" {
		textGen := llm.NewGroqClient(cfg)
		generator = assistant.NewGenerator(textGen, recipeRepo, metricsStore)
		importer = assistant.NewImporter(textGen, recipeRepo, metricsStore)
	} else if cfg.GeminiAPIKey != "" {
		textGen, closer, err := llm.NewGeminiClient(ctx, cfg)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini client: %v", err)
		}
		defer closer.Close()
		generator = assistant.NewGenerator(textGen, recipeRepo, metricsStore)
		importer = assistant.NewImporter(textGen, recipeRepo, metricsStore)
	} else {
		log.Println("No AI provider configured; assistant commands are disabled.")
	}

	application := app.NewApp(cfg, shopping.DefaultTaxonomy(),
		recipeRepo, mealPlanRepo, shoppingRepo, generator, importer)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "token":
		cmd := flag.NewFlagSet("token", flag.ExitOnError)
		user := cmd.String("user", "", "User ID to mint a token for")
		cmd.Parse(os.Args[2:])
		if *user == "" {
			log.Fatal("token: -user is required")
		}
		token, err := auth.NewTokens(cfg.JWTSecret).Generate(*user)
		if err != nil {
			log.Fatalf("Failed to generate token: %v", err)
		}
		fmt.Println(token)

	case "create-plan":
		cmd := flag.NewFlagSet("create-plan", flag.ExitOnError)
		user := cmd.String("user", "", "Owning user ID")
		name := cmd.String("name", "My Meal Plan", "Plan name")
		start := cmd.String("start", "", "Start date (YYYY-MM-DD)")
		end := cmd.String("end", "", "End date (YYYY-MM-DD)")
		cmd.Parse(os.Args[2:])
		startDate, endDate := mustParseDate(*start), mustParseDate(*end)
		plan := &mealplan.MealPlan{
			UserID: *user, Name: *name,
			StartDate: startDate, EndDate: endDate, IsActive: true,
		}
		if err := mealPlanRepo.CreatePlan(ctx, plan); err != nil {
			log.Fatalf("Failed to create plan: %v", err)
		}
		fmt.Printf("Created plan #%d\n", plan.ID)

	case "schedule":
		cmd := flag.NewFlagSet("schedule", flag.ExitOnError)
		user := cmd.String("user", "", "Owning user ID")
		planID := cmd.Int64("plan", 0, "Meal plan ID")
		recipeID := cmd.Int64("recipe", 0, "Recipe ID")
		date := cmd.String("date", "", "Meal date (YYYY-MM-DD)")
		mealType := cmd.String("type", "dinner", "breakfast|lunch|dinner|snack")
		servings := cmd.Int("servings", 1, "Serving count")
		cmd.Parse(os.Args[2:])
		meal := &mealplan.Meal{
			MealPlanID: *planID, RecipeID: *recipeID,
			Date: mustParseDate(*date), MealType: mealplan.MealType(*mealType),
			Servings: *servings,
		}
		if err := mealPlanRepo.ScheduleMeal(ctx, *user, meal); err != nil {
			log.Fatalf("Failed to schedule meal: %v", err)
		}
		fmt.Printf("Scheduled meal #%d\n", meal.ID)

	case "shop":
		cmd := flag.NewFlagSet("shop", flag.ExitOnError)
		user := cmd.String("user", "", "Owning user ID")
		planID := cmd.Int64("plan", 0, "Meal plan ID")
		cmd.Parse(os.Args[2:])
		list, err := application.GenerateShoppingList(ctx, *user, *planID)
		if err != nil {
			log.Fatalf("Failed to generate shopping list: %v", err)
		}
		printView(shopping.NewView(list))

	case "list":
		cmd := flag.NewFlagSet("list", flag.ExitOnError)
		user := cmd.String("user", "", "Owning user ID")
		planID := cmd.Int64("plan", 0, "Meal plan ID")
		asJSON := cmd.Bool("json", false, "Print raw JSON")
		cmd.Parse(os.Args[2:])
		view, err := application.ShoppingListView(ctx, *user, *planID)
		if err != nil {
			log.Fatalf("Failed to fetch shopping list: %v", err)
		}
		if *asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(view); err != nil {
				log.Fatalf("Failed to encode view: %v", err)
			}
			return
		}
		printView(view)

	case "toggle":
		cmd := flag.NewFlagSet("toggle", flag.ExitOnError)
		user := cmd.String("user", "", "Owning user ID")
		itemID := cmd.Int64("item", 0, "Shopping list item ID")
		cmd.Parse(os.Args[2:])
		purchased, err := application.ToggleItem(ctx, *user, *itemID)
		if err != nil {
			log.Fatalf("Failed to toggle item: %v", err)
		}
		fmt.Printf("Item #%d purchased=%v\n", *itemID, purchased)

	case "generate-recipe":
		cmd := flag.NewFlagSet("generate-recipe", flag.ExitOnError)
		user := cmd.String("user", "", "Owning user ID")
		ingredients := cmd.String("ingredients", "", "Comma-separated ingredients")
		servings := cmd.Int("servings", 4, "Desired servings")
		cmd.Parse(os.Args[2:])
		rec, err := application.GenerateRecipe(ctx, *user, assistant.GenerateRequest{
			Ingredients: *ingredients,
			Servings:    *servings,
		})
		if err != nil {
			log.Fatalf("Failed to generate recipe: %v", err)
		}
		fmt.Printf("Saved recipe #%d: %s\n", rec.ID, rec.Title)

	case "import-recipe":
		cmd := flag.NewFlagSet("import-recipe", flag.ExitOnError)
		user := cmd.String("user", "", "Owning user ID")
		url := cmd.String("url", "", "Recipe page URL")
		cmd.Parse(os.Args[2:])
		rec, err := application.ImportRecipe(ctx, *user, *url)
		if err != nil {
			log.Fatalf("Failed to import recipe: %v", err)
		}
		fmt.Printf("Saved recipe #%d: %s\n", rec.ID, rec.Title)

	case "stats":
		cmd := flag.NewFlagSet("stats", flag.ExitOnError)
		user := cmd.String("user", "", "Owning user ID")
		planID := cmd.Int64("plan", 0, "Meal plan ID")
		cmd.Parse(os.Args[2:])
		stats, err := application.PlanStats(ctx, *user, *planID)
		if err != nil {
			log.Fatalf("Failed to compute stats: %v", err)
		}
		fmt.Printf("Meals: %d total, %d completed (%.0f%%), ~%d kcal\n",
			stats.TotalMeals, stats.CompletedMeals, stats.CompletionRate, stats.TotalCalories)

	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func mustParseDate(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		log.Fatalf("Invalid date %q, expected YYYY-MM-DD", s)
	}
	return t
}

func printView(view *shopping.View) {
	if view.TotalItems == 0 {
		fmt.Println("Shopping list is empty.")
		return
	}
	fmt.Printf("Shopping list (%d items, %d purchased)\n", view.TotalItems, view.PurchasedItems)
	for _, category := range view.Categories {
		fmt.Printf("\n%s:\n", category)
		for _, item := range view.ItemsByGroup[category] {
			mark := " "
			if item.Purchased {
				mark = "x"
			}
			fmt.Printf("  [%s] #%-4d %g %s %s\n", mark, item.ID, item.Quantity, item.Unit, item.IngredientName)
		}
	}
}

func printUsage() {
	fmt.Println("Usage: onlypans <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  token             Mint a user token for bot login")
	fmt.Println("  create-plan       Create a meal plan")
	fmt.Println("  schedule          Schedule a meal into a plan slot")
	fmt.Println("  shop              Regenerate the shopping list for a plan")
	fmt.Println("  list              Show the stored shopping list")
	fmt.Println("  toggle            Toggle an item's purchased flag")
	fmt.Println("  generate-recipe   Generate a recipe from ingredients via AI")
	fmt.Println("  import-recipe     Import a recipe from a web page via AI")
	fmt.Println("  stats             Show plan statistics")
}
