// Package fatsecret adapts the FatSecret Platform API to the canonical food
// schema. The platform uses OAuth2 client-credentials tokens and a single
// method-dispatch endpoint.
package fatsecret

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nutrigate/backend/internal/domain"
	"golang.org/x/time/rate"
)

// Credential fields the platform needs.
const (
	credClientID     = "client_id"
	credClientSecret = "client_secret"
)

// Client is the FatSecret provider adapter.
type Client struct {
	httpClient *http.Client
	apiURL     string
	tokenURL   string
	creds      domain.CredentialSource
	limiter    *rate.Limiter

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

// New creates a FatSecret adapter. apiURL is the method-dispatch endpoint,
// tokenURL the OAuth2 token endpoint; timeout bounds each remote call.
func New(apiURL, tokenURL string, creds domain.CredentialSource, timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiURL:     apiURL,
		tokenURL:   tokenURL,
		creds:      creds,
		limiter:    rate.NewLimiter(rate.Limit(1), 5),
	}
}

// Name returns the provider name this adapter serves.
func (c *Client) Name() string {
	return domain.ProviderFatSecret
}

// Search runs foods.search and maps the page into normalized foods. Results
// whose nutrition summary has no gram basis are dropped rather than guessed
// into a per-100g shape.
func (c *Client) Search(ctx context.Context, query string, limit, offset int) ([]domain.NormalizedFood, error) {
	token, err := c.accessToken(ctx)
	if err != nil || token == "" {
		return nil, err
	}

	if limit < 1 {
		limit = 1
	}
	params := url.Values{}
	params.Set("method", "foods.search")
	params.Set("format", "json")
	params.Set("search_expression", query)
	params.Set("max_results", strconv.Itoa(limit))
	params.Set("page_number", strconv.Itoa(offset/limit))

	var resp searchResponse
	if err := c.callAPI(ctx, token, params, &resp); err != nil {
		return nil, err
	}

	items := resp.Foods.Food.items()
	foods := make([]domain.NormalizedFood, 0, len(items))
	for i := range items {
		if food, ok := mapSearchFood(&items[i]); ok {
			foods = append(foods, food)
		}
	}
	log.Printf("[FatSecret] query %q returned %d foods", query, len(foods))
	return foods, nil
}

// LookupBarcode resolves a barcode to a food id, then fetches the food with
// its full serving list. Nil means the platform does not know the barcode.
func (c *Client) LookupBarcode(ctx context.Context, barcode string) (*domain.NormalizedFood, error) {
	token, err := c.accessToken(ctx)
	if err != nil || token == "" {
		return nil, err
	}

	params := url.Values{}
	params.Set("method", "food.find_id_for_barcode")
	params.Set("format", "json")
	params.Set("barcode", barcode)

	var idResp barcodeResponse
	if err := c.callAPI(ctx, token, params, &idResp); err != nil {
		return nil, err
	}
	foodID := idResp.FoodID.Value
	if foodID == "" || foodID == "0" {
		return nil, nil
	}

	params = url.Values{}
	params.Set("method", "food.get.v2")
	params.Set("format", "json")
	params.Set("food_id", foodID)

	var foodResp foodGetResponse
	if err := c.callAPI(ctx, token, params, &foodResp); err != nil {
		return nil, err
	}

	food, ok := mapDetailedFood(&foodResp.Food)
	if !ok {
		return nil, nil
	}
	if food.Barcode == "" {
		food.Barcode = barcode
	}
	return &food, nil
}

// accessToken returns a cached OAuth2 token, fetching a fresh one when the
// cached token is missing or about to expire. An empty token with nil error
// means credentials are not configured and the adapter should be skipped.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	fields, err := c.creds.Credentials(ctx, domain.ProviderFatSecret)
	if err != nil {
		return "", err
	}
	clientID, clientSecret := fields[credClientID], fields[credClientSecret]
	if clientID == "" || clientSecret == "" {
		log.Printf("[FatSecret] no client credentials stored, skipping")
		return "", nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "basic barcode")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	req.SetBasicAuth(clientID, clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[FatSecret] token status %d: %s", resp.StatusCode, body)
		return "", fmt.Errorf("%w: token status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("%w: decoding token: %v", domain.ErrProviderUnavailable, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", domain.ErrProviderUnavailable)
	}

	c.token = tok.AccessToken
	// Refresh a minute early so in-flight calls never race expiry.
	c.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn)*time.Second - time.Minute)
	return c.token, nil
}

func (c *Client) callAPI(ctx context.Context, token string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, strings.NewReader(params.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("[FatSecret] status %d: %s", resp.StatusCode, body)
		return fmt.Errorf("%w: status %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", domain.ErrProviderUnavailable, err)
	}
	return nil
}
