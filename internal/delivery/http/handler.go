package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nutrigate/backend/internal/domain"
	"github.com/nutrigate/backend/internal/usecase"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	aggregator *usecase.Aggregator
	importer   *usecase.Importer
	config     *usecase.ConfigService
	quota      *usecase.QuotaService
	cache      domain.ResultCacheRepository
	analytics  domain.AnalyticsRepository
}

// NewHandler creates an HTTP handler over the service layer.
func NewHandler(
	aggregator *usecase.Aggregator,
	importer *usecase.Importer,
	config *usecase.ConfigService,
	quota *usecase.QuotaService,
	cache domain.ResultCacheRepository,
	analytics domain.AnalyticsRepository,
) *Handler {
	return &Handler{
		aggregator: aggregator,
		importer:   importer,
		config:     config,
		quota:      quota,
		cache:      cache,
		analytics:  analytics,
	}
}

// HealthCheck returns the health status of the API.
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "nutrigate-backend",
		"version": "1.0.0",
	})
}

// Search handles GET /api/v1/search.
func (h *Handler) Search(c *gin.Context) {
	req := &domain.SearchRequest{
		Query:           c.Query("q"),
		Limit:           intQuery(c, "limit", 0),
		Offset:          intQuery(c, "offset", 0),
		IncludeExternal: c.Query("includeExternal") == "true",
		Provider:        c.Query("provider"),
	}

	result, err := h.aggregator.Search(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// LookupBarcode handles GET /api/v1/foods/barcode/:code.
func (h *Handler) LookupBarcode(c *gin.Context) {
	food, err := h.aggregator.LookupBarcode(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, food)
}

// ListProviders handles GET /api/v1/providers.
func (h *Handler) ListProviders(c *gin.Context) {
	views, err := h.config.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"providers": views})
}

// GetProvider handles GET /api/v1/providers/:name.
func (h *Handler) GetProvider(c *gin.Context) {
	view, err := h.config.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateProvider handles PATCH /api/v1/providers/:name.
func (h *Handler) UpdateProvider(c *gin.Context) {
	var patch domain.ProviderPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	view, err := h.config.Update(c.Request.Context(), c.Param("name"), patch)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SetCredentials handles POST /api/v1/providers/:name/credentials.
func (h *Handler) SetCredentials(c *gin.Context) {
	var body struct {
		Credentials map[string]string `json:"credentials"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.config.SetCredentials(c.Request.Context(), c.Param("name"), body.Credentials); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "credentials stored"})
}

// GetCredentials handles GET /api/v1/providers/:name/credentials; values are
// masked for display, raw secrets never leave the server.
func (h *Handler) GetCredentials(c *gin.Context) {
	masked, err := h.config.MaskedCredentials(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": masked})
}

// ClearCredentials handles DELETE /api/v1/providers/:name/credentials.
func (h *Handler) ClearCredentials(c *gin.Context) {
	if err := h.config.ClearCredentials(c.Request.Context(), c.Param("name")); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "credentials cleared"})
}

// GetDefaultProvider handles GET /api/v1/providers/default.
func (h *Handler) GetDefaultProvider(c *gin.Context) {
	name, err := h.config.DefaultProvider(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"default": name})
}

// SetDefaultProvider handles POST /api/v1/providers/default.
func (h *Handler) SetDefaultProvider(c *gin.Context) {
	var body struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}

	if err := h.config.SetDefaultProvider(c.Request.Context(), body.Name); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"default": body.Name})
}

// ImportFoods handles POST /api/v1/import.
func (h *Handler) ImportFoods(c *gin.Context) {
	var body struct {
		Foods []domain.NormalizedFood `json:"foods" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "foods array is required"})
		return
	}

	report := h.importer.Import(c.Request.Context(), body.Foods)
	c.JSON(http.StatusOK, report)
}

// ClearCache handles DELETE /api/v1/cache. Stale usage counters are pruned
// in the same sweep since both are housekeeping.
func (h *Handler) ClearCache(c *gin.Context) {
	ctx := c.Request.Context()

	cleared, err := h.cache.Clear(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}

	pruned, err := h.quota.Prune(ctx, time.Now())
	if err != nil {
		log.Printf("[admin] counter prune failed: %v", err)
		pruned = 0
	}

	c.JSON(http.StatusOK, gin.H{
		"clearedEntries": cleared,
		"prunedCounters": pruned,
	})
}

// Analytics handles GET /api/v1/analytics: recent attempts, per-provider
// aggregates and lifetime usage stats.
func (h *Handler) Analytics(c *gin.Context) {
	ctx := c.Request.Context()

	recent, err := h.analytics.Recent(ctx, intQuery(c, "limit", 50))
	if err != nil {
		h.writeError(c, err)
		return
	}
	summary, err := h.analytics.SummaryByProvider(ctx)
	if err != nil {
		h.writeError(c, err)
		return
	}

	usage := make([]gin.H, 0)
	if configs, err := h.config.Configs(ctx); err == nil {
		for i := range configs {
			usage = append(usage, gin.H{
				"provider":   configs[i].Name,
				"totalCalls": configs[i].TotalCalls,
				"lastUsedAt": configs[i].LastUsedAt,
			})
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"recent":  recent,
		"summary": summary,
		"usage":   usage,
	})
}

// writeError maps a service error to an HTTP status with its reason. Admin
// mutations must fail loudly and specifically, never a bare 500.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrProviderUnknown), errors.Is(err, domain.ErrFoodNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrProviderDisabled):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrAdminRequired):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		log.Printf("[http] internal error: %v", err)
		// Operators need the datastore reason to act on a failed mutation.
		c.JSON(status, gin.H{"error": "persistence failure", "reason": err.Error()})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
