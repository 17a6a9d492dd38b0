package recipe

import "time"

// Unit is the fixed vocabulary for ingredient quantities.
type Unit string

const (
	UnitCup     Unit = "cup"
	UnitTbsp    Unit = "tbsp"
	UnitTsp     Unit = "tsp"
	UnitOz      Unit = "oz"
	UnitLb      Unit = "lb"
	UnitGram    Unit = "g"
	UnitKg      Unit = "kg"
	UnitMl      Unit = "ml"
	UnitLiter   Unit = "l"
	UnitPiece   Unit = "piece"
	UnitSlice   Unit = "slice"
	UnitClove   Unit = "clove"
	UnitBunch   Unit = "bunch"
	UnitCan     Unit = "can"
	UnitPackage Unit = "package"
	UnitToTaste Unit = "to_taste"
)

var validUnits = map[Unit]bool{
	UnitCup: true, UnitTbsp: true, UnitTsp: true, UnitOz: true,
	UnitLb: true, UnitGram: true, UnitKg: true, UnitMl: true,
	UnitLiter: true, UnitPiece: true, UnitSlice: true, UnitClove: true,
	UnitBunch: true, UnitCan: true, UnitPackage: true, UnitToTaste: true,
}

// ValidUnit reports whether u is part of the unit vocabulary.
func ValidUnit(u Unit) bool {
	return validUnits[u]
}

// Ingredient is one line in a recipe's ingredient list.
type Ingredient struct {
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Unit     Unit    `json:"unit"`
	Notes    string  `json:"notes,omitempty"`
}

// Instruction is one numbered preparation step.
type Instruction struct {
	StepNumber  int    `json:"step_number"`
	Instruction string `json:"instruction"`
	TimeMinutes int    `json:"time_minutes,omitempty"`
}

// Recipe is a stored recipe with its ingredient lines and steps.
type Recipe struct {
	ID          int64         `json:"id,omitempty"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	PrepTime    int           `json:"prep_time"`
	CookTime    int           `json:"cook_time"`
	Servings    int           `json:"servings"`
	Difficulty  string        `json:"difficulty"`
	Cuisine     string        `json:"cuisine"`
	CreatedBy   string        `json:"created_by"`
	AIGenerated bool          `json:"ai_generated"`
	Nutrition   *Nutrition    `json:"nutrition,omitempty"`
	Ingredients []Ingredient  `json:"ingredients"`
	Steps       []Instruction `json:"instructions"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Nutrition holds per-serving nutritional estimates.
type Nutrition struct {
	CaloriesPerServing int     `json:"calories_per_serving"`
	ProteinGrams       float64 `json:"protein_grams"`
	CarbsGrams         float64 `json:"carbs_grams"`
	FatGrams           float64 `json:"fat_grams"`
}

// TotalTime is prep plus cook time in minutes.
func (r *Recipe) TotalTime() int {
	return r.PrepTime + r.CookTime
}
