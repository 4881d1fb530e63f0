package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/nutrigate/backend/internal/domain"
	"github.com/nutrigate/backend/internal/infrastructure/cache"
)

// ConfigService owns provider configuration: enablement, rate limits, the
// default-provider selection and credential storage. All credential fields
// pass through the vault cipher before persisting; raw or encrypted bytes
// never leave this service.
type ConfigService struct {
	repo   domain.ProviderConfigRepository
	cipher domain.Cipher
	cache  *cache.ConfigCache
}

// NewConfigService creates a configuration service. The snapshot cache keeps
// the aggregator from hitting the datastore once per candidate.
func NewConfigService(repo domain.ProviderConfigRepository, cipher domain.Cipher, snapshot *cache.ConfigCache) *ConfigService {
	return &ConfigService{repo: repo, cipher: cipher, cache: snapshot}
}

// Configs returns all provider configs, served from the snapshot cache while
// fresh. The returned slice is the caller's to reorder.
func (s *ConfigService) Configs(ctx context.Context) ([]domain.ProviderConfig, error) {
	now := time.Now()
	if configs, ok := s.cache.Get(now); ok {
		return configs, nil
	}

	configs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(configs, now)
	return configs, nil
}

// List returns the read-side projection of every provider.
func (s *ConfigService) List(ctx context.Context) ([]domain.ProviderView, error) {
	configs, err := s.Configs(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.ProviderView, 0, len(configs))
	for i := range configs {
		views = append(views, viewOf(&configs[i]))
	}
	return views, nil
}

// Get returns one provider's projection.
func (s *ConfigService) Get(ctx context.Context, name string) (*domain.ProviderView, error) {
	cfg, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	view := viewOf(cfg)
	return &view, nil
}

// Update applies a partial enabled/rate-limit patch. Credential fields are
// not patchable here; they go through SetCredentials so they are always
// encrypted. Disabling the current default provider also clears the default
// flag, since a disabled default would be unusable anyway.
func (s *ConfigService) Update(ctx context.Context, name string, patch domain.ProviderPatch) (*domain.ProviderView, error) {
	cfg, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	if patch.Enabled != nil {
		cfg.Enabled = *patch.Enabled
	}
	if patch.RateLimits != nil {
		if err := validateLimits(*patch.RateLimits); err != nil {
			return nil, err
		}
		cfg.RateLimits = *patch.RateLimits
	}

	if cfg.IsDefault && !cfg.Enabled {
		if err := s.repo.ClearDefault(ctx); err != nil {
			return nil, err
		}
		cfg.IsDefault = false
		log.Printf("[config] default provider %s disabled, default cleared", name)
	}

	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, err
	}
	s.cache.Invalidate()

	view := viewOf(cfg)
	return &view, nil
}

// SetCredentials encrypts each field through the vault and persists the
// cipher text. Empty field names or values are rejected.
func (s *ConfigService) SetCredentials(ctx context.Context, name string, fields map[string]string) error {
	if len(fields) == 0 {
		return fmt.Errorf("%w: no credential fields given", domain.ErrInvalidRequest)
	}

	if _, err := s.repo.Get(ctx, name); err != nil {
		return err
	}

	encrypted := make(map[string]string, len(fields))
	for field, value := range fields {
		field = strings.TrimSpace(field)
		if field == "" || value == "" {
			return fmt.Errorf("%w: empty credential field", domain.ErrInvalidRequest)
		}
		ct, err := s.cipher.Encrypt(value)
		if err != nil {
			return fmt.Errorf("encrypting credential %q: %w", field, err)
		}
		encrypted[field] = ct
	}

	if err := s.repo.SetCredentials(ctx, name, encrypted); err != nil {
		return err
	}
	s.cache.Invalidate()
	log.Printf("[config] credentials updated for %s (%d fields)", name, len(encrypted))
	return nil
}

// ClearCredentials removes all stored credential fields for a provider.
func (s *ConfigService) ClearCredentials(ctx context.Context, name string) error {
	if _, err := s.repo.Get(ctx, name); err != nil {
		return err
	}
	if err := s.repo.ClearCredentials(ctx, name); err != nil {
		return err
	}
	s.cache.Invalidate()
	log.Printf("[config] credentials cleared for %s", name)
	return nil
}

// MaskedCredentials returns the stored credential fields with their values
// masked for admin display.
func (s *ConfigService) MaskedCredentials(ctx context.Context, name string) (map[string]string, error) {
	cfg, err := s.repo.Get(ctx, name)
	if err != nil {
		return nil, err
	}

	masked := make(map[string]string, len(cfg.EncryptedCredentials))
	for field, ct := range cfg.EncryptedCredentials {
		masked[field] = s.cipher.Mask(s.cipher.Decrypt(ct))
	}
	return masked, nil
}

// DefaultProvider returns the name of the current default provider, or ""
// when none is set.
func (s *ConfigService) DefaultProvider(ctx context.Context) (string, error) {
	configs, err := s.Configs(ctx)
	if err != nil {
		return "", err
	}
	for i := range configs {
		if configs[i].IsDefault {
			return configs[i].Name, nil
		}
	}
	return "", nil
}

// SetDefaultProvider switches the default to the named provider. Unknown
// providers fail with ErrProviderUnknown, disabled ones with
// ErrProviderDisabled. Clear runs before set, so a crash between the two
// steps leaves the old default in place rather than zero defaults for good.
func (s *ConfigService) SetDefaultProvider(ctx context.Context, name string) error {
	cfg, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	if !cfg.Enabled {
		return fmt.Errorf("%w: %s", domain.ErrProviderDisabled, name)
	}

	if err := s.repo.ClearDefault(ctx); err != nil {
		return err
	}
	if err := s.repo.SetDefault(ctx, name); err != nil {
		return err
	}
	s.cache.Invalidate()
	log.Printf("[config] default provider set to %s", name)
	return nil
}

// Credentials implements domain.CredentialSource: it returns the decrypted
// credential fields for a provider. Fields that fail to decrypt are dropped,
// so a corrupted secret reads as absent and the adapter skips itself.
func (s *ConfigService) Credentials(ctx context.Context, provider string) (map[string]string, error) {
	configs, err := s.Configs(ctx)
	if err != nil {
		return nil, err
	}

	for i := range configs {
		if configs[i].Name != provider {
			continue
		}
		fields := make(map[string]string, len(configs[i].EncryptedCredentials))
		for field, ct := range configs[i].EncryptedCredentials {
			if plain := s.cipher.Decrypt(ct); plain != "" {
				fields[field] = plain
			}
		}
		return fields, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrProviderUnknown, provider)
}

// Seed inserts the known providers if absent. OpenFoodFacts needs no
// credentials and starts enabled as the default fallback; the credentialed
// providers start enabled but contribute nothing until keys are stored.
func (s *ConfigService) Seed(ctx context.Context) error {
	seeds := []domain.ProviderConfig{
		{Name: domain.ProviderOpenFoodFacts, Enabled: true, IsDefault: true},
		{Name: domain.ProviderUSDA, Enabled: true},
		{Name: domain.ProviderFatSecret, Enabled: true},
	}
	for i := range seeds {
		if err := s.repo.Seed(ctx, &seeds[i]); err != nil {
			return fmt.Errorf("seeding provider %s: %w", seeds[i].Name, err)
		}
	}
	s.cache.Invalidate()
	return nil
}

func viewOf(cfg *domain.ProviderConfig) domain.ProviderView {
	return domain.ProviderView{
		Name:           cfg.Name,
		Enabled:        cfg.Enabled,
		RateLimits:     cfg.RateLimits,
		HasCredentials: cfg.HasCredentials(),
		IsDefault:      cfg.IsDefault,
	}
}

func validateLimits(limits domain.RateLimits) error {
	for _, l := range []*int{limits.PerHour, limits.PerDay, limits.PerMonth} {
		if l != nil && *l < 1 {
			return fmt.Errorf("%w: rate limits must be positive", domain.ErrInvalidRequest)
		}
	}
	return nil
}

var _ domain.CredentialSource = (*ConfigService)(nil)
