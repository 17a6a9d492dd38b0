package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"onlypans-backend/internal/llm"
	"onlypans-backend/internal/metrics"
	"onlypans-backend/internal/recipe"
	"onlypans-backend/internal/shared"

	"github.com/PuerkitoBio/goquery"
)

// Importer fetches recipe pages from the web and turns them into stored
// recipes via the model.
type Importer struct {
	textGen      llm.TextGenerator
	recipeRepo   *recipe.Repository
	metricsStore *metrics.Store
	httpClient   *http.Client
}

// NewImporter creates an Importer.
func NewImporter(textGen llm.TextGenerator, recipeRepo *recipe.Repository, metricsStore *metrics.Store) *Importer {
	return &Importer{
		textGen:      textGen,
		recipeRepo:   recipeRepo,
		metricsStore: metricsStore,
		httpClient:   &http.Client{Timeout: 15 * time.Second},
	}
}

// ImportURL fetches the URL, extracts the recipe via the model, and saves it
// for the user.
func (im *Importer) ImportURL(ctx context.Context, userID, url string) (*recipe.Recipe, error) {
	content, err := im.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content: %w", err)
	}

	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe details from the following page content.
Return the result strictly as a JSON object with this structure:
{
  "recipe": {
    "title": "Recipe Title",
    "description": "One-line summary",
    "prep_time": 15,
    "cook_time": 30,
    "servings": 4,
    "difficulty": "easy|medium|hard",
    "cuisine": "cuisine type",
    "ingredients": [
      {"name": "ingredient name", "quantity": 2, "unit": "cup", "notes": ""}
    ],
    "instructions": [
      {"step_number": 1, "instruction": "Step description", "time_minutes": 5}
    ]
  },
  "confidence": 0.9
}

Use only these units for ingredients: cup, tbsp, tsp, oz, lb, g, kg, ml, l,
piece, slice, clove, bunch, can, package, to_taste.
Return ONLY the raw JSON string.

Page Content:
%s
`, content)

	start := time.Now()
	resp, err := im.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("ai extraction failed: %w", err)
	}
	if im.metricsStore != nil {
		if err := im.metricsStore.RecordMeta(ctx, shared.AgentMeta{
			AgentName: "recipe-importer",
			Usage:     resp.Usage,
			Latency:   time.Since(start),
		}); err != nil {
			log.Printf("Warning: failed to record import metrics: %v", err)
		}
	}

	var parsed aiRecipe
	if err := json.Unmarshal([]byte(stripCodeFence(resp.Content)), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse extraction response: %w. Response: %s", err, resp.Content)
	}

	gen := &Generator{recipeRepo: im.recipeRepo}
	rec := gen.toRecipe(userID, parsed)
	rec.Description = fmt.Sprintf("%s (imported from %s)", rec.Description, url)
	if len(rec.Ingredients) == 0 {
		return nil, fmt.Errorf("no ingredients extracted from %s", url)
	}

	if err := im.recipeRepo.Save(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save imported recipe: %w", err)
	}
	return rec, nil
}

func (im *Importer) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}

	resp, err := im.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save model tokens.
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}
