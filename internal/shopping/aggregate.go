package shopping

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"onlypans-backend/internal/recipe"
)

// Line is one (meal, ingredient) pair feeding the aggregation: the meal's
// serving count alongside the raw recipe ingredient line.
type Line struct {
	Servings int
	Name     string
	Quantity float64
	Unit     recipe.Unit
}

// ConsolidatedItem is one merged shopping list entry.
type ConsolidatedItem struct {
	Name           string
	NormalizedName string
	Quantity       float64
	Unit           recipe.Unit
	Category       string
}

// Warning records an ingredient line dropped during aggregation.
type Warning struct {
	Name   string
	Reason string
}

type mergeKey struct {
	name string
	unit recipe.Unit
}

// Aggregate folds ingredient lines into consolidated items. Each quantity is
// scaled by the meal's serving count, then summed under the
// (lowercased trimmed name, unit) merge key. Units are never converted, so
// the same ingredient in two units stays as two items. The first-seen
// original-case name is kept for display.
//
// Invalid lines (negative or non-finite quantity, non-positive servings) are
// dropped with a warning; a partial list beats no list.
func Aggregate(lines []Line, taxonomy Taxonomy) ([]ConsolidatedItem, []Warning) {
	totals := make(map[mergeKey]*ConsolidatedItem)
	var warnings []Warning

	for _, line := range lines {
		if line.Quantity < 0 || math.IsNaN(line.Quantity) || math.IsInf(line.Quantity, 0) {
			warnings = append(warnings, Warning{
				Name:   line.Name,
				Reason: fmt.Sprintf("invalid quantity %v", line.Quantity),
			})
			continue
		}
		if line.Servings < 1 {
			warnings = append(warnings, Warning{
				Name:   line.Name,
				Reason: fmt.Sprintf("invalid servings %d", line.Servings),
			})
			continue
		}

		scaled := line.Quantity * float64(line.Servings)
		key := mergeKey{
			name: strings.ToLower(strings.TrimSpace(line.Name)),
			unit: line.Unit,
		}

		if item, ok := totals[key]; ok {
			item.Quantity += scaled
			continue
		}
		totals[key] = &ConsolidatedItem{
			Name:           line.Name,
			NormalizedName: key.name,
			Quantity:       scaled,
			Unit:           line.Unit,
			Category:       taxonomy.Categorize(line.Name),
		}
	}

	items := make([]ConsolidatedItem, 0, len(totals))
	for _, item := range totals {
		items = append(items, *item)
	}
	// Stable output ordering: category, then name, then unit for same-name
	// entries that differ only in unit.
	sort.Slice(items, func(i, j int) bool {
		if items[i].Category != items[j].Category {
			return items[i].Category < items[j].Category
		}
		if items[i].NormalizedName != items[j].NormalizedName {
			return items[i].NormalizedName < items[j].NormalizedName
		}
		return items[i].Unit < items[j].Unit
	})
	return items, warnings
}
