package fatsecret

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/nutrigate/backend/internal/domain"
)

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type searchResponse struct {
	Foods struct {
		Food foodList `json:"food"`
	} `json:"foods"`
}

type barcodeResponse struct {
	FoodID struct {
		Value string `json:"value"`
	} `json:"food_id"`
}

type foodGetResponse struct {
	Food detailedFood `json:"food"`
}

// foodList absorbs FatSecret's habit of serializing a single element as an
// object instead of a one-element array.
type foodList []searchFood

func (l *foodList) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) > 0 && data[0] == '{' {
		var one searchFood
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = foodList{one}
		return nil
	}
	var many []searchFood
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

func (l foodList) items() []searchFood { return l }

// searchFood is a foods.search hit. The nutrition summary only exists as a
// human-readable description line.
type searchFood struct {
	FoodID          string `json:"food_id"`
	FoodName        string `json:"food_name"`
	FoodType        string `json:"food_type"`
	BrandName       string `json:"brand_name"`
	FoodDescription string `json:"food_description"`
}

// detailedFood is a food.get.v2 payload; all numerics are strings.
type detailedFood struct {
	FoodID    string `json:"food_id"`
	FoodName  string `json:"food_name"`
	FoodType  string `json:"food_type"`
	BrandName string `json:"brand_name"`
	Servings  struct {
		Serving servingList `json:"serving"`
	} `json:"servings"`
}

type serving struct {
	ServingDescription  string `json:"serving_description"`
	MetricServingAmount string `json:"metric_serving_amount"`
	MetricServingUnit   string `json:"metric_serving_unit"`
	Calories            string `json:"calories"`
	Protein             string `json:"protein"`
	Carbohydrate        string `json:"carbohydrate"`
	Fat                 string `json:"fat"`
	Fiber               string `json:"fiber"`
	Sugar               string `json:"sugar"`
	Sodium              string `json:"sodium"`
}

// servingList mirrors foodList for the servings array.
type servingList []serving

func (l *servingList) UnmarshalJSON(data []byte) error {
	data = []byte(strings.TrimSpace(string(data)))
	if len(data) > 0 && data[0] == '{' {
		var one serving
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*l = servingList{one}
		return nil
	}
	var many []serving
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// descriptionPattern parses summaries such as
// "Per 100g - Calories: 52kcal | Fat: 0.17g | Carbs: 13.81g | Protein: 0.26g".
var descriptionPattern = regexp.MustCompile(
	`^Per\s+([\d.]+)\s*g\s+-\s+Calories:\s*([\d.]+)kcal\s*\|\s*Fat:\s*([\d.]+)g\s*\|\s*Carbs:\s*([\d.]+)g\s*\|\s*Protein:\s*([\d.]+)g`)

// mapSearchFood converts one search hit. The second return is false when the
// description has no gram basis (e.g. "Per 1 cup"), in which case a per-100g
// shape cannot be derived honestly and the hit is dropped.
func mapSearchFood(f *searchFood) (domain.NormalizedFood, bool) {
	m := descriptionPattern.FindStringSubmatch(f.FoodDescription)
	if m == nil {
		return domain.NormalizedFood{}, false
	}

	basis := parseNum(m[1])
	if basis <= 0 {
		return domain.NormalizedFood{}, false
	}
	scale := 100 / basis

	return domain.NormalizedFood{
		Name:  f.FoodName,
		Brand: f.BrandName,
		ServingSizes: []domain.ServingSize{
			{Name: "100 g", Grams: 100},
		},
		NutrientsPer100g: domain.Nutrients{
			Calories: parseNum(m[2]) * scale,
			Fat:      parseNum(m[3]) * scale,
			Carbs:    parseNum(m[4]) * scale,
			Protein:  parseNum(m[5]) * scale,
		},
		Source:     domain.ProviderFatSecret,
		ExternalID: f.FoodID,
		Verified:   f.FoodType != "Brand",
	}, true
}

// mapDetailedFood converts a food.get.v2 payload using the first serving
// with a metric gram amount. False when no serving is scalable to 100 g.
func mapDetailedFood(f *detailedFood) (domain.NormalizedFood, bool) {
	var gramServing *serving
	for i := range f.Servings.Serving {
		s := &f.Servings.Serving[i]
		if strings.EqualFold(s.MetricServingUnit, "g") && parseNum(s.MetricServingAmount) > 0 {
			gramServing = s
			break
		}
	}
	if gramServing == nil {
		return domain.NormalizedFood{}, false
	}

	grams := parseNum(gramServing.MetricServingAmount)
	scale := 100 / grams

	nutrients := domain.Nutrients{
		Calories: parseNum(gramServing.Calories) * scale,
		Protein:  parseNum(gramServing.Protein) * scale,
		Carbs:    parseNum(gramServing.Carbohydrate) * scale,
		Fat:      parseNum(gramServing.Fat) * scale,
	}
	if v, ok := parseOptNum(gramServing.Fiber); ok {
		scaled := v * scale
		nutrients.Fiber = &scaled
	}
	if v, ok := parseOptNum(gramServing.Sugar); ok {
		scaled := v * scale
		nutrients.Sugar = &scaled
	}
	if v, ok := parseOptNum(gramServing.Sodium); ok {
		// Already mg in FatSecret payloads.
		scaled := v * scale
		nutrients.Sodium = &scaled
	}

	name := strings.TrimSpace(gramServing.ServingDescription)
	if name == "" {
		name = "1 serving"
	}

	return domain.NormalizedFood{
		Name:  f.FoodName,
		Brand: f.BrandName,
		ServingSizes: []domain.ServingSize{
			{Name: name, Grams: grams},
			{Name: "100 g", Grams: 100},
		},
		NutrientsPer100g: nutrients,
		Source:           domain.ProviderFatSecret,
		ExternalID:       f.FoodID,
		Verified:         f.FoodType != "Brand",
	}, true
}

func parseNum(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}

func parseOptNum(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
