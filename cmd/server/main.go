package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/nutrigate/backend/config"
	httpDelivery "github.com/nutrigate/backend/internal/delivery/http"
	"github.com/nutrigate/backend/internal/domain"
	"github.com/nutrigate/backend/internal/infrastructure/cache"
	"github.com/nutrigate/backend/internal/infrastructure/providers/fatsecret"
	"github.com/nutrigate/backend/internal/infrastructure/providers/openfoodfacts"
	"github.com/nutrigate/backend/internal/infrastructure/providers/usda"
	"github.com/nutrigate/backend/internal/infrastructure/store"
	"github.com/nutrigate/backend/internal/infrastructure/vault"
	"github.com/nutrigate/backend/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting NutriGate Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Database: %s", cfg.Database.Path)

	credentialVault, err := vault.New(cfg.Vault.MasterKey)
	if err != nil {
		log.Fatalf("Failed to initialize credential vault: %v", err)
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open datastore: %v", err)
	}
	defer db.Close()

	configCache := cache.NewConfigCache(cfg.Search.ConfigCacheTTL)
	configService := usecase.NewConfigService(db.Providers(), credentialVault, configCache)

	if err := configService.Seed(context.Background()); err != nil {
		log.Fatalf("Failed to seed providers: %v", err)
	}

	quotaService := usecase.NewQuotaService(db.Usage(), db.Providers())

	adapters := []domain.ProviderAdapter{
		usda.New(cfg.Providers.USDABaseURL, configService, cfg.Search.RemoteTimeout),
		openfoodfacts.New(cfg.Providers.OpenFoodFactsBaseURL, cfg.Search.RemoteTimeout),
		fatsecret.New(cfg.Providers.FatSecretAPIURL, cfg.Providers.FatSecretTokenURL, configService, cfg.Search.RemoteTimeout),
	}
	log.Printf("Providers registered: usda, openfoodfacts, fatsecret")

	aggregator := usecase.NewAggregator(
		db.Catalog(),
		db.Cache(),
		db.Analytics(),
		configService,
		quotaService,
		adapters,
		usecase.AggregatorConfig{
			CacheTTL:        cfg.Search.CacheTTL,
			MinLocalResults: cfg.Search.MinLocalResults,
			DefaultLimit:    cfg.Search.DefaultLimit,
		},
	)
	log.Printf("Search: cacheTTL=%s minLocal=%d limit=%d",
		cfg.Search.CacheTTL, cfg.Search.MinLocalResults, cfg.Search.DefaultLimit)

	importer := usecase.NewImporter(db.Catalog())

	handler := httpDelivery.NewHandler(aggregator, importer, configService, quotaService, db.Cache(), db.Analytics())
	router := httpDelivery.SetupRouter(cfg, handler)

	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
