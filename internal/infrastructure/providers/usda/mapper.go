package usda

import (
	"strconv"
	"strings"

	"github.com/nutrigate/backend/internal/domain"
)

// FDC nutrient IDs for the nutrients we map.
const (
	nutrientIDEnergy       = 1008 // kcal
	nutrientIDProtein      = 1003 // g
	nutrientIDCarbohydrate = 1005 // g
	nutrientIDTotalFat     = 1004 // g
	nutrientIDFiber        = 1079 // g
	nutrientIDSugar        = 2000 // g
	nutrientIDSodium       = 1093 // mg
)

// searchResponse is the FDC /v1/foods/search payload.
type searchResponse struct {
	Foods     []fdcFood `json:"foods"`
	TotalHits int       `json:"totalHits"`
}

type fdcFood struct {
	FdcID                    int           `json:"fdcId"`
	Description              string        `json:"description"`
	DataType                 string        `json:"dataType"`
	BrandOwner               string        `json:"brandOwner,omitempty"`
	BrandName                string        `json:"brandName,omitempty"`
	GtinUPC                  string        `json:"gtinUpc,omitempty"`
	FoodCategory             string        `json:"foodCategory,omitempty"`
	ServingSize              float64       `json:"servingSize,omitempty"`
	ServingSizeUnit          string        `json:"servingSizeUnit,omitempty"`
	HouseholdServingFullText string        `json:"householdServingFullText,omitempty"`
	FoodNutrients            []fdcNutrient `json:"foodNutrients"`
}

type fdcNutrient struct {
	NutrientID int     `json:"nutrientId"`
	UnitName   string  `json:"unitName"`
	Value      float64 `json:"value"`
}

// mapFood converts one FDC search hit into the canonical schema. FDC search
// results report nutrients per 100 g, so no basis conversion is needed; the
// core macros default to 0 when absent, the optional nutrients stay nil.
func mapFood(f *fdcFood) domain.NormalizedFood {
	food := domain.NormalizedFood{
		Name:             f.Description,
		Brand:            brandOf(f),
		Barcode:          f.GtinUPC,
		Category:         f.FoodCategory,
		ServingSizes:     servingSizesOf(f),
		NutrientsPer100g: extractNutrients(f.FoodNutrients),
		Source:           domain.ProviderUSDA,
		ExternalID:       strconv.Itoa(f.FdcID),
		// Foundation and SR Legacy entries are lab-analyzed reference data.
		Verified: f.DataType == "Foundation" || f.DataType == "SR Legacy",
	}
	return food
}

func brandOf(f *fdcFood) string {
	if f.BrandName != "" {
		return f.BrandName
	}
	return f.BrandOwner
}

// servingSizesOf returns the branded serving when FDC reports one in grams,
// always followed by the standard 100 g reference serving.
func servingSizesOf(f *fdcFood) []domain.ServingSize {
	sizes := []domain.ServingSize{}

	if f.ServingSize > 0 && isGramUnit(f.ServingSizeUnit) {
		name := strings.TrimSpace(f.HouseholdServingFullText)
		if name == "" {
			name = "1 serving"
		}
		sizes = append(sizes, domain.ServingSize{Name: name, Grams: f.ServingSize})
	}

	return append(sizes, domain.ServingSize{Name: "100 g", Grams: 100})
}

func isGramUnit(unit string) bool {
	switch strings.ToUpper(unit) {
	case "G", "GRM", "GM":
		return true
	}
	return false
}

func extractNutrients(nutrients []fdcNutrient) domain.Nutrients {
	var out domain.Nutrients
	for _, n := range nutrients {
		switch n.NutrientID {
		case nutrientIDEnergy:
			out.Calories = n.Value
		case nutrientIDProtein:
			out.Protein = n.Value
		case nutrientIDCarbohydrate:
			out.Carbs = n.Value
		case nutrientIDTotalFat:
			out.Fat = n.Value
		case nutrientIDFiber:
			v := n.Value
			out.Fiber = &v
		case nutrientIDSugar:
			v := n.Value
			out.Sugar = &v
		case nutrientIDSodium:
			v := n.Value
			out.Sodium = &v
		}
	}
	return out
}
