// Package usda adapts the USDA FoodData Central API to the canonical food
// schema.
package usda

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

// credentialField is the single credential the FDC API needs.
const credentialField = "api_key"

// Client is the USDA FoodData Central provider adapter.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      domain.CredentialSource
	// limiter keeps us polite toward the FDC endpoint independently of the
	// admission-control quota windows.
	limiter *rate.Limiter
}

// New creates a USDA adapter. timeout bounds each remote call.
func New(baseURL string, creds domain.CredentialSource, timeout time.Duration) *Client {
	// FDC allows 1000 requests/hour; 0.278 req/sec with a small burst.
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		creds:      creds,
		limiter:    rate.NewLimiter(rate.Limit(0.278), 10),
	}
}

// Name returns the provider name this adapter serves.
func (c *Client) Name() string {
	return domain.ProviderUSDA
}

// Search queries FDC and maps the response page into normalized foods.
// Missing credentials yield an empty result so the aggregator skips us.
func (c *Client) Search(ctx context.Context, query string, limit, offset int) ([]domain.NormalizedFood, error) {
	apiKey, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		log.Printf("[USDA] no api_key stored, skipping")
		return nil, nil
	}

	if limit < 1 {
		limit = 1
	}
	params := url.Values{}
	params.Set("query", query)
	params.Set("api_key", apiKey)
	params.Set("dataType", "Survey (FNDDS),Foundation,SR Legacy,Branded")
	params.Set("pageSize", strconv.Itoa(limit))
	params.Set("pageNumber", strconv.Itoa(offset/limit+1))

	var resp searchResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/foods/search?%s", c.baseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}

	foods := make([]domain.NormalizedFood, 0, len(resp.Foods))
	for i := range resp.Foods {
		foods = append(foods, mapFood(&resp.Foods[i]))
	}
	log.Printf("[USDA] query %q returned %d foods", query, len(foods))
	return foods, nil
}

// LookupBarcode searches FDC for a GTIN/UPC and returns the exact match, if
// any. FDC has no dedicated barcode endpoint; branded foods carry gtinUpc.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (*domain.NormalizedFood, error) {
	apiKey, err := c.apiKey(ctx)
	if err != nil {
		return nil, err
	}
	if apiKey == "" {
		log.Printf("[USDA] no api_key stored, skipping")
		return nil, nil
	}

	params := url.Values{}
	params.Set("query", barcode)
	params.Set("api_key", apiKey)
	params.Set("dataType", "Branded")
	params.Set("pageSize", "10")

	var resp searchResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/v1/foods/search?%s", c.baseURL, params.Encode()), &resp); err != nil {
		return nil, err
	}

	for i := range resp.Foods {
		if resp.Foods[i].GtinUPC == barcode {
			food := mapFood(&resp.Foods[i])
			return &food, nil
		}
	}
	return nil, nil
}

func (c *Client) apiKey(ctx context.Context) (string, error) {
	fields, err := c.creds.Credentials(ctx, domain.ProviderUSDA)
	if err != nil {
		return "", err
	}
	return fields[credentialField], nil
}

// getJSON executes a rate-limited GET and decodes the body. All transport
// and payload failures are wrapped in ErrProviderUnavailable so the caller
// can absorb them uniformly.
func (c *Client) getJSON(ctx context.Context, reqURL string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("User-Agent", "NutriGate/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[USDA] status %d: %s", resp.StatusCode, body)
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}
