// Package openfoodfacts adapts the Open Food Facts API to the canonical
// food schema. It is the only adapter that needs no credentials, which
// makes it the always-available fallback provider.
package openfoodfacts

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nutrigate/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Client is the Open Food Facts provider adapter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
}

// New creates an Open Food Facts adapter. timeout bounds each remote call.
func New(baseURL string, timeout time.Duration) *Client {
	// OFF asks for at most 10 req/min on the search API.
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		limiter:    rate.NewLimiter(rate.Limit(10.0/60.0), 5),
	}
}

// Name returns the provider name this adapter serves.
func (c *Client) Name() string {
	return domain.ProviderOpenFoodFacts
}

// Search runs a text search and maps the product page into normalized foods.
func (c *Client) Search(ctx context.Context, query string, limit, offset int) ([]domain.NormalizedFood, error) {
	if limit < 1 {
		limit = 1
	}
	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", strconv.Itoa(limit))
	params.Set("page", strconv.Itoa(offset/limit+1))

	var resp searchResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/cgi/search.pl?%s", c.baseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}

	foods := make([]domain.NormalizedFood, 0, len(resp.Products))
	for i := range resp.Products {
		if resp.Products[i].ProductName == "" {
			continue
		}
		foods = append(foods, mapProduct(&resp.Products[i]))
	}
	log.Printf("[OFF] query %q returned %d products", query, len(foods))
	return foods, nil
}

// LookupBarcode fetches one product by barcode; nil means not found.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (*domain.NormalizedFood, error) {
	var resp productResponse
	reqURL := fmt.Sprintf("%s/api/v2/product/%s.json", c.baseURL, url.PathEscape(barcode))
	if err := c.getJSON(ctx, reqURL, &resp); err != nil {
		return nil, err
	}

	if resp.Status != 1 || resp.Product.ProductName == "" {
		return nil, nil
	}
	food := mapProduct(&resp.Product)
	if food.Barcode == "" {
		food.Barcode = barcode
	}
	return &food, nil
}

func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("User-Agent", "NutriGate/1.0 (nutrigate.example.com)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	// OFF answers 404 for unknown barcodes with a JSON body; treat it as a
	// decodable response, not a transport failure.
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNotFound {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[OFF] status %d: %s", resp.StatusCode, body)
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}
