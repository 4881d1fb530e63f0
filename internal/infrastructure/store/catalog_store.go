package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nutrigate/backend/internal/domain"
)

// CatalogStore is the durable canonical food catalog.
type CatalogStore struct {
	db *sql.DB
}

const catalogColumns = `id, name, brand, barcode, category, serving_sizes,
	nutrients_per_100g, nutrients_per_serving, source, external_id, verified, created_at`

// Search runs a case-insensitive substring match over name and brand.
// Results order by name for stable pagination.
func (s *CatalogStore) Search(ctx context.Context, query string, limit, offset int) ([]domain.CatalogFood, error) {
	pattern := "%" + strings.ToLower(strings.TrimSpace(query)) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_foods
		WHERE lower(name) LIKE ? OR lower(brand) LIKE ?
		ORDER BY name
		LIMIT ? OFFSET ?`, pattern, pattern, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to search catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var foods []domain.CatalogFood
	for rows.Next() {
		food, err := scanCatalogFood(rows)
		if err != nil {
			return nil, err
		}
		foods = append(foods, *food)
	}
	return foods, rows.Err()
}

// FindByBarcode returns the catalog row with the given barcode, or
// ErrFoodNotFound.
func (s *CatalogStore) FindByBarcode(ctx context.Context, barcode string) (*domain.CatalogFood, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_foods
		WHERE barcode = ? AND barcode != ''
		LIMIT 1`, barcode)
	return oneCatalogFood(row)
}

// FindByNameAndSource returns the catalog row with an exact (name, source)
// match, or ErrFoodNotFound.
func (s *CatalogStore) FindByNameAndSource(ctx context.Context, name, source string) (*domain.CatalogFood, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+catalogColumns+`
		FROM catalog_foods
		WHERE name = ? AND source = ?
		LIMIT 1`, name, source)
	return oneCatalogFood(row)
}

// Insert adds a new catalog row.
func (s *CatalogStore) Insert(ctx context.Context, food *domain.CatalogFood) error {
	servings, err := json.Marshal(food.ServingSizes)
	if err != nil {
		return fmt.Errorf("failed to marshal serving sizes: %w", err)
	}
	per100, err := json.Marshal(food.NutrientsPer100g)
	if err != nil {
		return fmt.Errorf("failed to marshal nutrients: %w", err)
	}

	var perServing sql.NullString
	if food.NutrientsPerServing != nil {
		blob, err := json.Marshal(food.NutrientsPerServing)
		if err != nil {
			return fmt.Errorf("failed to marshal per-serving nutrients: %w", err)
		}
		perServing = sql.NullString{String: string(blob), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO catalog_foods (id, name, brand, barcode, category, serving_sizes,
			nutrients_per_100g, nutrients_per_serving, source, external_id, verified, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		food.ID,
		food.Name,
		food.Brand,
		food.Barcode,
		food.Category,
		string(servings),
		string(per100),
		perServing,
		food.Source,
		food.ExternalID,
		food.Verified,
		formatTime(food.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert catalog food: %w", err)
	}
	return nil
}

func oneCatalogFood(row rowScanner) (*domain.CatalogFood, error) {
	food, err := scanCatalogFood(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrFoodNotFound
	}
	if err != nil {
		return nil, err
	}
	return food, nil
}

func scanCatalogFood(row rowScanner) (*domain.CatalogFood, error) {
	var food domain.CatalogFood
	var servings, per100, createdAt string
	var perServing sql.NullString

	err := row.Scan(
		&food.ID,
		&food.Name,
		&food.Brand,
		&food.Barcode,
		&food.Category,
		&servings,
		&per100,
		&perServing,
		&food.Source,
		&food.ExternalID,
		&food.Verified,
		&createdAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan catalog food: %w", err)
	}

	if err := json.Unmarshal([]byte(servings), &food.ServingSizes); err != nil {
		return nil, fmt.Errorf("failed to decode serving sizes: %w", err)
	}
	if err := json.Unmarshal([]byte(per100), &food.NutrientsPer100g); err != nil {
		return nil, fmt.Errorf("failed to decode nutrients: %w", err)
	}
	if perServing.Valid {
		var n domain.Nutrients
		if err := json.Unmarshal([]byte(perServing.String), &n); err != nil {
			return nil, fmt.Errorf("failed to decode per-serving nutrients: %w", err)
		}
		food.NutrientsPerServing = &n
	}
	food.CreatedAt = parseTime(createdAt)
	return &food, nil
}
