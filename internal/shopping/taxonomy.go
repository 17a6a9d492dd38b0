package shopping

import "strings"

// CategoryOther is the fallback for ingredients no bucket matches.
const CategoryOther = "Other"

// Bucket is one shopping category with its matching keywords.
type Bucket struct {
	Category string
	Keywords []string
}

// Taxonomy is an ordered list of category buckets. Buckets are evaluated in
// order; the first bucket containing a substring match of the ingredient name
// wins.
type Taxonomy []Bucket

// DefaultTaxonomy returns the built-in shopping aisle taxonomy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{
			Category: "Produce",
			Keywords: []string{
				"tomato", "onion", "garlic", "potato", "carrot", "celery",
				"lettuce", "spinach", "bell pepper", "cucumber", "avocado",
				"banana", "apple", "lemon", "lime",
			},
		},
		{
			Category: "Meat & Seafood",
			Keywords: []string{
				"chicken", "beef", "pork", "fish", "salmon", "shrimp",
				"turkey", "lamb",
			},
		},
		{
			Category: "Dairy & Eggs",
			Keywords: []string{
				"milk", "cheese", "butter", "yogurt", "cream", "eggs",
			},
		},
		{
			Category: "Pantry",
			Keywords: []string{
				"rice", "pasta", "flour", "sugar", "salt", "pepper", "oil",
				"vinegar", "soy sauce", "garlic powder", "onion powder",
			},
		},
	}
}

// Categorize maps an ingredient name to its shopping category. Matching is
// case-insensitive substring containment with no stemming; identical input
// always yields the identical category.
func (t Taxonomy) Categorize(name string) string {
	lower := strings.ToLower(name)
	for _, bucket := range t {
		for _, keyword := range bucket.Keywords {
			if strings.Contains(lower, keyword) {
				return bucket.Category
			}
		}
	}
	return CategoryOther
}
