package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"onlypans-backend/internal/llm"
	"onlypans-backend/internal/metrics"
	"onlypans-backend/internal/recipe"
	"onlypans-backend/internal/shared"
)

// GenerateRequest describes what the user wants cooked.
type GenerateRequest struct {
	Ingredients         string
	DietaryRestrictions string
	CuisinePreference   string
	Difficulty          string
	TimeConstraint      int
	Servings            int
}

// Generator turns free-form ingredient prompts into stored recipes.
type Generator struct {
	textGen      llm.TextGenerator
	recipeRepo   *recipe.Repository
	metricsStore *metrics.Store
}

// NewGenerator creates a Generator.
func NewGenerator(textGen llm.TextGenerator, recipeRepo *recipe.Repository, metricsStore *metrics.Store) *Generator {
	return &Generator{
		textGen:      textGen,
		recipeRepo:   recipeRepo,
		metricsStore: metricsStore,
	}
}

// aiRecipe is the JSON shape requested from the model.
type aiRecipe struct {
	Recipe struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		PrepTime    int    `json:"prep_time"`
		CookTime    int    `json:"cook_time"`
		Servings    int    `json:"servings"`
		Difficulty  string `json:"difficulty"`
		Cuisine     string `json:"cuisine"`
		Ingredients []struct {
			Name     string  `json:"name"`
			Quantity float64 `json:"quantity"`
			Unit     string  `json:"unit"`
			Notes    string  `json:"notes"`
		} `json:"ingredients"`
		Instructions []struct {
			StepNumber  int    `json:"step_number"`
			Instruction string `json:"instruction"`
			TimeMinutes int    `json:"time_minutes"`
		} `json:"instructions"`
		Nutrition struct {
			CaloriesPerServing int     `json:"calories_per_serving"`
			ProteinGrams       float64 `json:"protein_grams"`
			CarbsGrams         float64 `json:"carbs_grams"`
			FatGrams           float64 `json:"fat_grams"`
		} `json:"nutrition"`
	} `json:"recipe"`
	Confidence float64 `json:"confidence"`
	Notes      string  `json:"notes"`
}

// GenerateRecipe prompts the model for a recipe built around the requested
// ingredients, validates it, and persists it for the user.
func (g *Generator) GenerateRecipe(ctx context.Context, userID string, req GenerateRequest) (*recipe.Recipe, error) {
	if req.Servings < 1 {
		req.Servings = 4
	}
	if req.Difficulty == "" {
		req.Difficulty = "medium"
	}

	prompt := g.buildPrompt(req)

	start := time.Now()
	resp, err := g.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to get model response: %w", err)
	}
	if g.metricsStore != nil {
		if err := g.metricsStore.RecordMeta(ctx, shared.AgentMeta{
			AgentName: "recipe-generator",
			Usage:     resp.Usage,
			Latency:   time.Since(start),
		}); err != nil {
			log.Printf("Warning: failed to record generation metrics: %v", err)
		}
	}

	var parsed aiRecipe
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w. Response: %s", err, resp.Content)
	}

	rec := g.toRecipe(userID, parsed)
	if len(rec.Ingredients) == 0 {
		return nil, fmt.Errorf("model returned a recipe with no ingredients")
	}

	if err := g.recipeRepo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save generated recipe: %w", err)
	}
	return rec, nil
}

func (g *Generator) buildPrompt(req GenerateRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Create a detailed recipe using primarily these ingredients: %s\n\n", req.Ingredients)
	sb.WriteString("Requirements:\n")
	fmt.Fprintf(&sb, "- Servings: %d\n", req.Servings)
	fmt.Fprintf(&sb, "- Difficulty: %s\n", req.Difficulty)
	if req.DietaryRestrictions != "" {
		fmt.Fprintf(&sb, "- Dietary restrictions: %s\n", req.DietaryRestrictions)
	}
	if req.CuisinePreference != "" {
		fmt.Fprintf(&sb, "- Cuisine preference: %s\n", req.CuisinePreference)
	}
	if req.TimeConstraint > 0 {
		fmt.Fprintf(&sb, "- Maximum cooking time: %d minutes\n", req.TimeConstraint)
	}
	fmt.Fprintf(&sb, `
Return the result strictly as a JSON object with this structure:
{
  "recipe": {
    "title": "Recipe Name",
    "description": "Brief description of the dish",
    "prep_time": 15,
    "cook_time": 30,
    "servings": %d,
    "difficulty": "%s",
    "cuisine": "cuisine type",
    "ingredients": [
      {"name": "ingredient name", "quantity": 2, "unit": "cup", "notes": "optional"}
    ],
    "instructions": [
      {"step_number": 1, "instruction": "Detailed instruction", "time_minutes": 5}
    ],
    "nutrition": {
      "calories_per_serving": 350,
      "protein_grams": 25,
      "carbs_grams": 30,
      "fat_grams": 15
    }
  },
  "confidence": 0.9,
  "notes": "Any additional cooking tips"
}

Use only these units for ingredients: cup, tbsp, tsp, oz, lb, g, kg, ml, l,
piece, slice, clove, bunch, can, package, to_taste.
Return ONLY the raw JSON string. Do not wrap the response in markdown code blocks.
`, req.Servings, req.Difficulty)
	return sb.String()
}

func (g *Generator) toRecipe(userID string, parsed aiRecipe) *recipe.Recipe {
	src := parsed.Recipe
	rec := &recipe.Recipe{
		Title:       src.Title,
		Description: src.Description,
		PrepTime:    src.PrepTime,
		CookTime:    src.CookTime,
		Servings:    src.Servings,
		Difficulty:  src.Difficulty,
		Cuisine:     src.Cuisine,
		CreatedBy:   userID,
		AIGenerated: true,
	}
	if rec.Title == "" {
		rec.Title = "AI Generated Recipe"
	}
	if rec.Servings < 1 {
		rec.Servings = 4
	}
	if src.Nutrition.CaloriesPerServing > 0 {
		rec.Nutrition = &recipe.Nutrition{
			CaloriesPerServing: src.Nutrition.CaloriesPerServing,
			ProteinGrams:       src.Nutrition.ProteinGrams,
			CarbsGrams:         src.Nutrition.CarbsGrams,
			FatGrams:           src.Nutrition.FatGrams,
		}
	}

	for _, ing := range src.Ingredients {
		if ing.Name == "" {
			continue
		}
		unit := recipe.Unit(ing.Unit)
		if !recipe.ValidUnit(unit) {
			// Models occasionally invent units; fall back rather than reject
			// the whole recipe.
			log.Printf("Warning: replacing unknown unit %q for %q with piece", ing.Unit, ing.Name)
			unit = recipe.UnitPiece
		}
		quantity := ing.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		rec.Ingredients = append(rec.Ingredients, recipe.Ingredient{
			Name:     ing.Name,
			Quantity: quantity,
			Unit:     unit,
			Notes:    ing.Notes,
		})
	}

	for i, step := range src.Instructions {
		number := step.StepNumber
		if number < 1 {
			number = i + 1
		}
		rec.Steps = append(rec.Steps, recipe.Instruction{
			StepNumber:  number,
			Instruction: step.Instruction,
			TimeMinutes: step.TimeMinutes,
		})
	}
	return rec
}

// stripCodeFence removes a markdown code fence if the model ignored the
// raw-JSON instruction.
func stripCodeFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}
