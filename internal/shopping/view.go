package shopping

import "sort"

// View is the client-facing projection of a shopping list: items grouped by
// category plus summary counts. Derived on read, never persisted.
type View struct {
	List           *ShoppingList     `json:"list"`
	Categories     []string          `json:"categories"`
	ItemsByGroup   map[string][]Item `json:"items_by_category"`
	TotalItems     int               `json:"total_items"`
	PurchasedItems int               `json:"purchased_items"`
}

// NewView builds the grouped projection. Categories come out sorted by name,
// items within each category sorted by ingredient name.
func NewView(list *ShoppingList) *View {
	groups := make(map[string][]Item)
	purchased := 0
	for _, item := range list.Items {
		category := item.Category
		if category == "" {
			category = CategoryOther
		}
		groups[category] = append(groups[category], item)
		if item.Purchased {
			purchased++
		}
	}

	categories := make([]string, 0, len(groups))
	for category, items := range groups {
		sort.Slice(items, func(i, j int) bool {
			return items[i].IngredientName < items[j].IngredientName
		})
		categories = append(categories, category)
	}
	sort.Strings(categories)

	return &View{
		List:           list,
		Categories:     categories,
		ItemsByGroup:   groups,
		TotalItems:     len(list.Items),
		PurchasedItems: purchased,
	}
}
