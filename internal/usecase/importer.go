package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/nutrigate/backend/internal/domain"
)

// Importer promotes normalized external foods into the durable catalog.
// Candidates are processed independently; one bad record never aborts the
// batch. Dedup is a deliberate two-step heuristic (barcode, then name and
// source) because no single natural key is reliable across providers.
type Importer struct {
	catalog domain.CatalogRepository
	now     func() time.Time
}

// NewImporter creates an import pipeline over the catalog.
func NewImporter(catalog domain.CatalogRepository) *Importer {
	return &Importer{catalog: catalog, now: time.Now}
}

// Import runs the batch and reports the per-candidate outcome.
func (i *Importer) Import(ctx context.Context, candidates []domain.NormalizedFood) *domain.ImportReport {
	report := &domain.ImportReport{Details: make([]domain.ImportDetail, 0, len(candidates))}

	for c := range candidates {
		candidate := &candidates[c]
		detail := domain.ImportDetail{Name: candidate.Name, Barcode: candidate.Barcode}

		switch status, reason := i.importOne(ctx, candidate); status {
		case "imported":
			report.Imported++
			detail.Status = "imported"
		case "skipped":
			report.Skipped++
			detail.Status = "skipped"
			detail.Reason = reason
		default:
			report.Errors++
			detail.Status = "error"
			detail.Reason = reason
		}
		report.Details = append(report.Details, detail)
	}

	log.Printf("[import] batch done: %d imported, %d skipped, %d errors",
		report.Imported, report.Skipped, report.Errors)
	return report
}

func (i *Importer) importOne(ctx context.Context, candidate *domain.NormalizedFood) (status, reason string) {
	if candidate.Name == "" {
		return "error", "missing name"
	}

	exists, err := i.alreadyPresent(ctx, candidate)
	if err != nil {
		return "error", err.Error()
	}
	if exists {
		return "skipped", "already exists"
	}

	food := &domain.CatalogFood{
		ID:             uuid.NewString(),
		NormalizedFood: *candidate,
		CreatedAt:      i.now(),
	}
	if len(candidate.ServingSizes) > 0 {
		food.NutrientsPerServing = scaleToServing(candidate.NutrientsPer100g, candidate.ServingSizes[0].Grams)
	}

	if err := i.catalog.Insert(ctx, food); err != nil {
		return "error", fmt.Sprintf("insert failed: %v", err)
	}
	return "imported", ""
}

// alreadyPresent checks for an existing row by barcode first, then by the
// (name, source) pair when the candidate carries no barcode. A miss is
// signalled by ErrFoodNotFound and means the candidate is new, not broken.
func (i *Importer) alreadyPresent(ctx context.Context, candidate *domain.NormalizedFood) (bool, error) {
	var err error
	if candidate.Barcode != "" {
		_, err = i.catalog.FindByBarcode(ctx, candidate.Barcode)
	} else {
		_, err = i.catalog.FindByNameAndSource(ctx, candidate.Name, candidate.Source)
	}

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrFoodNotFound):
		return false, nil
	default:
		return false, err
	}
}

// scaleToServing derives per-serving nutrients by linear scaling from the
// per-100g values. Absent optional fields stay absent; a measured 0 scales
// to 0 and remains present.
func scaleToServing(per100g domain.Nutrients, grams float64) *domain.Nutrients {
	if grams <= 0 {
		return nil
	}
	factor := grams / 100

	out := &domain.Nutrients{
		Calories: per100g.Calories * factor,
		Protein:  per100g.Protein * factor,
		Carbs:    per100g.Carbs * factor,
		Fat:      per100g.Fat * factor,
	}
	if per100g.Fiber != nil {
		v := *per100g.Fiber * factor
		out.Fiber = &v
	}
	if per100g.Sugar != nil {
		v := *per100g.Sugar * factor
		out.Sugar = &v
	}
	if per100g.Sodium != nil {
		v := *per100g.Sodium * factor
		out.Sodium = &v
	}
	return out
}
