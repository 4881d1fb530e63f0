package openfoodfacts

import (
	"encoding/json"
	"strings"

	"github.com/nutrigate/backend/internal/domain"
)

type searchResponse struct {
	Products []offProduct `json:"products"`
	Count    int          `json:"count"`
}

type productResponse struct {
	Status  int        `json:"status"`
	Product offProduct `json:"product"`
}

// offProduct is the subset of the OFF product document we consume.
// ServingQuantity and the nutriment values arrive as numbers or strings
// depending on how the product was entered, hence the loose typing.
type offProduct struct {
	Code            string          `json:"code"`
	ProductName     string          `json:"product_name"`
	Brands          string          `json:"brands"`
	Categories      string          `json:"categories"`
	ServingSize     string          `json:"serving_size"`
	ServingQuantity json.RawMessage `json:"serving_quantity"`
	Nutriments      map[string]any  `json:"nutriments"`
}

// mapProduct converts one OFF product into the canonical schema. OFF reports
// nutrients per 100 g directly; sodium arrives in grams and is converted to
// milligrams.
func mapProduct(p *offProduct) domain.NormalizedFood {
	return domain.NormalizedFood{
		Name:             p.ProductName,
		Brand:            firstCSV(p.Brands),
		Barcode:          p.Code,
		Category:         firstCSV(p.Categories),
		ServingSizes:     servingSizesOf(p),
		NutrientsPer100g: extractNutriments(p.Nutriments),
		Source:           domain.ProviderOpenFoodFacts,
		ExternalID:       p.Code,
		// OFF is crowdsourced; nothing is verified.
		Verified: false,
	}
}

// firstCSV returns the first entry of an OFF comma-separated list field.
func firstCSV(s string) string {
	if idx := strings.Index(s, ","); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func servingSizesOf(p *offProduct) []domain.ServingSize {
	sizes := []domain.ServingSize{}

	if grams := rawNumber(p.ServingQuantity); grams > 0 {
		name := strings.TrimSpace(p.ServingSize)
		if name == "" {
			name = "1 serving"
		}
		sizes = append(sizes, domain.ServingSize{Name: name, Grams: grams})
	}

	return append(sizes, domain.ServingSize{Name: "100 g", Grams: 100})
}

func extractNutriments(n map[string]any) domain.Nutrients {
	out := domain.Nutrients{
		Calories: numField(n, "energy-kcal_100g"),
		Protein:  numField(n, "proteins_100g"),
		Carbs:    numField(n, "carbohydrates_100g"),
		Fat:      numField(n, "fat_100g"),
	}

	// Some products only report energy in kJ.
	if out.Calories == 0 {
		if kj := numField(n, "energy_100g"); kj > 0 {
			out.Calories = kj / 4.184
		}
	}

	if v, ok := optField(n, "fiber_100g"); ok {
		out.Fiber = &v
	}
	if v, ok := optField(n, "sugars_100g"); ok {
		out.Sugar = &v
	}
	if v, ok := optField(n, "sodium_100g"); ok {
		mg := v * 1000
		out.Sodium = &mg
	}
	return out
}

func numField(n map[string]any, key string) float64 {
	v, _ := optField(n, key)
	return v
}

// optField coerces an OFF nutriment value, which may be a JSON number or a
// numeric string, distinguishing "absent" from a measured 0.
func optField(n map[string]any, key string) (float64, bool) {
	raw, ok := n[key]
	if !ok {
		return 0, false
	}
	switch v := raw.(type) {
	case float64:
		return v, true
	case string:
		var f float64
		if err := json.Unmarshal([]byte(v), &f); err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// rawNumber parses a field that OFF serializes as either a bare number or a
// quoted numeric string.
func rawNumber(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := json.Unmarshal([]byte(s), &f); err == nil {
			return f
		}
	}
	return 0
}
