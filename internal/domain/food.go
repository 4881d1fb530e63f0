package domain

import "time"

// ServingSize is one named portion of a food, expressed in grams.
type ServingSize struct {
	Name  string  `json:"name"`
	Grams float64 `json:"grams"`
}

// Nutrients holds nutrient amounts per 100 g of food. The core macros are
// always present (providers default missing values to 0); fiber, sugar and
// sodium are optional because many sources simply do not report them, and
// 0 must stay distinguishable from "unknown".
type Nutrients struct {
	Calories float64  `json:"calories_kcal"`
	Protein  float64  `json:"protein_g"`
	Carbs    float64  `json:"carbs_g"`
	Fat      float64  `json:"fat_g"`
	Fiber    *float64 `json:"fiber_g,omitempty"`
	Sugar    *float64 `json:"sugar_g,omitempty"`
	Sodium   *float64 `json:"sodium_mg,omitempty"`
}

// NormalizedFood is the canonical shape every provider adapter maps its wire
// format into. It is transient: either cached or promoted into the catalog by
// the import pipeline, never persisted as-is.
type NormalizedFood struct {
	Name             string        `json:"name"`
	Brand            string        `json:"brand,omitempty"`
	Barcode          string        `json:"barcode,omitempty"`
	Category         string        `json:"category,omitempty"`
	ServingSizes     []ServingSize `json:"servingSizes"`
	NutrientsPer100g Nutrients     `json:"nutrientsPer100g"`
	Source           string        `json:"source"`
	ExternalID       string        `json:"externalId,omitempty"`
	Verified         bool          `json:"verified"`
}

// CatalogFood is a durable row in the food catalog: a NormalizedFood plus an
// internal id and nutrients derived for its first serving size.
type CatalogFood struct {
	ID                  string `json:"id"`
	NormalizedFood
	NutrientsPerServing *Nutrients `json:"nutrientsPerServing,omitempty"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// FoodResult is one entry in a merged search response. Local catalog rows
// carry their internal ID and IsExternal=false; provider results carry
// IsExternal=true and their source provider.
type FoodResult struct {
	NormalizedFood
	ID         string `json:"id,omitempty"`
	IsExternal bool   `json:"isExternal"`
}

// SearchRequest describes one food search as it enters the aggregator.
type SearchRequest struct {
	Query           string `json:"query"`
	Limit           int    `json:"limit"`
	Offset          int    `json:"offset"`
	IncludeExternal bool   `json:"includeExternal"`
	// Provider pins the candidate list to a single provider when set.
	Provider string `json:"provider,omitempty"`
}

// SearchResult is the merged local + external response. Local results always
// precede external ones; external results follow candidate order.
type SearchResult struct {
	Query    string       `json:"query"`
	Foods    []FoodResult `json:"foods"`
	Local    int          `json:"localCount"`
	External int          `json:"externalCount"`
}

// ImportReport summarizes one import batch. Candidates are processed
// independently; a failing candidate never aborts the batch.
type ImportReport struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Details  []ImportDetail `json:"details"`
}

// ImportDetail is the per-candidate outcome within an ImportReport.
type ImportDetail struct {
	Name    string `json:"name"`
	Barcode string `json:"barcode,omitempty"`
	Status  string `json:"status"` // "imported", "skipped" or "error"
	Reason  string `json:"reason,omitempty"`
}
