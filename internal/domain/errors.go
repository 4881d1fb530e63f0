package domain

import "errors"

var (
	// ErrProviderUnknown is returned when a provider name is not configured
	ErrProviderUnknown = errors.New("unknown provider")

	// ErrProviderDisabled is returned when an operation targets a disabled provider
	ErrProviderDisabled = errors.New("provider is disabled")

	// ErrProviderUnavailable is returned when a remote provider call fails
	// (transport error, timeout or malformed payload)
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrHourlyLimitExceeded is returned when the hourly call budget is exhausted
	ErrHourlyLimitExceeded = errors.New("hourly rate limit exceeded")

	// ErrDailyLimitExceeded is returned when the daily call budget is exhausted
	ErrDailyLimitExceeded = errors.New("daily rate limit exceeded")

	// ErrMonthlyLimitExceeded is returned when the monthly call budget is exhausted
	ErrMonthlyLimitExceeded = errors.New("monthly rate limit exceeded")

	// ErrCacheMiss is returned when data is not found in cache or has expired
	ErrCacheMiss = errors.New("cache miss")

	// ErrCredentialsMissing is returned when an adapter needs credentials
	// that are not stored for its provider
	ErrCredentialsMissing = errors.New("provider credentials missing")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrAdminRequired is returned when a non-admin caller hits an admin endpoint
	ErrAdminRequired = errors.New("administrator privileges required")

	// ErrFoodNotFound is returned when a catalog lookup finds no row
	ErrFoodNotFound = errors.New("food not found")

	// ErrDuplicateFood is returned when an import candidate already exists
	// in the catalog
	ErrDuplicateFood = errors.New("food already exists in catalog")
)

// IsQuotaExceeded reports whether err is one of the per-window limit errors.
func IsQuotaExceeded(err error) bool {
	return errors.Is(err, ErrHourlyLimitExceeded) ||
		errors.Is(err, ErrDailyLimitExceeded) ||
		errors.Is(err, ErrMonthlyLimitExceeded)
}
