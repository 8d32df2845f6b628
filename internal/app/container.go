// Package app assembles the backend: it registers every service in a container
// and builds the HTTP router from it.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"shopup-backend/configs"
	"shopup-backend/internal/models"
	"shopup-backend/internal/repositories"
	"shopup-backend/internal/services"
	"shopup-backend/pkg/auth"
	"shopup-backend/pkg/container"
	"shopup-backend/pkg/database"
	"shopup-backend/pkg/kvstore"
	"shopup-backend/pkg/messaging"
	"shopup-backend/pkg/metrics"
	"shopup-backend/pkg/supabase"
)

// Service names.
const (
	ServiceConfig          = "config"
	ServiceLogger          = "logger"
	ServiceStore           = "kvstore"
	ServiceSupabase        = "supabase"
	ServiceSupabaseService = "supabase.service"
	ServicePostgres        = "postgres"
	ServiceMongo           = "mongo"
	ServiceSessions        = "auth.sessions"
	ServicePublisher       = "messaging.publisher"
	ServiceAdminRepo       = "repo.admins"
	ServiceSellerRepo      = "repo.sellers"
	ServiceProductRepo     = "repo.products"
	ServiceAdminRoles      = "roles.admin"
	ServiceSellerRoles     = "roles.seller"
	ServiceCart            = "service.cart"
	ServiceProducts        = "service.products"
	ServiceAuth            = "service.auth"
	ServiceGuard           = "service.guard"
)

// NewContainer registers the backend's services. Nothing is constructed until
// it is first resolved, so a catalog on Mongo never opens Postgres and the
// other way round.
func NewContainer(cfg *configs.Config, logger *zap.Logger) (*container.Container, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := container.New(
		container.WithLogger(logger.Named("container")),
		container.WithObserver(metrics.ObserveConstruction),
	)

	registrations := []struct {
		name    string
		factory container.Factory
	}{
		{ServiceStore, storeFactory(cfg, logger)},
		{ServiceSupabase, supabaseFactory(cfg, cfg.Supabase.AnonKey)},
		{ServiceSupabaseService, supabaseFactory(cfg, serviceKey(cfg))},
		{ServicePostgres, func(ctx context.Context, _ container.Resolver) (any, error) {
			return database.NewPostgres(cfg.Database.PostgresURL, logger)
		}},
		{ServiceMongo, func(ctx context.Context, _ container.Resolver) (any, error) {
			return database.NewMongo(ctx, cfg.Database.MongoURL, cfg.Database.MongoDBName, logger)
		}},
		{ServiceSessions, sessionsFactory(cfg)},
		{ServicePublisher, publisherFactory(cfg, logger)},
		{ServiceAdminRepo, adminRepoFactory(cfg)},
		{ServiceSellerRepo, sellerRepoFactory(cfg)},
		{ServiceProductRepo, productRepoFactory(cfg)},
		{ServiceAdminRoles, func(ctx context.Context, r container.Resolver) (any, error) {
			repo, err := container.Get[repositories.AdminRepository](ctx, r, ServiceAdminRepo)
			if err != nil {
				return nil, err
			}
			return cachedRoles(ctx, r, cfg, logger, services.AreaAdmin, services.AdminRoles(repo), services.AdminPolicy(nil, "").Admits)
		}},
		{ServiceSellerRoles, func(ctx context.Context, r container.Resolver) (any, error) {
			repo, err := container.Get[repositories.SellerRepository](ctx, r, ServiceSellerRepo)
			if err != nil {
				return nil, err
			}
			return cachedRoles(ctx, r, cfg, logger, services.AreaSeller, services.SellerRoles(repo), services.SellerPolicy(nil, "", "").Admits)
		}},
		{ServiceCart, cartFactory(cfg, logger)},
		{ServiceProducts, productsFactory(cfg, logger)},
		{ServiceAuth, authFactory(logger)},
		{ServiceGuard, guardFactory(logger)},
	}

	if err := c.RegisterValue(ServiceConfig, cfg); err != nil {
		return nil, err
	}
	if err := c.RegisterValue(ServiceLogger, logger); err != nil {
		return nil, err
	}
	for _, reg := range registrations {
		if err := c.Register(reg.name, reg.factory); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func serviceKey(cfg *configs.Config) string {
	if cfg.Supabase.ServiceRoleKey != "" {
		return cfg.Supabase.ServiceRoleKey
	}
	return cfg.Supabase.AnonKey
}

func storeFactory(cfg *configs.Config, logger *zap.Logger) container.Factory {
	return func(context.Context, container.Resolver) (any, error) {
		if !cfg.Redis.Enabled {
			logger.Warn("redis disabled, carts are kept in process memory")
			return kvstore.NewMemory(), nil
		}
		return kvstore.NewRedis(cfg.Redis.URL, cfg.Redis.Password, cfg.Redis.DB)
	}
}

func supabaseFactory(cfg *configs.Config, apiKey string) container.Factory {
	return func(context.Context, container.Resolver) (any, error) {
		return supabase.New(supabase.Config{
			URL:     cfg.Supabase.URL,
			APIKey:  apiKey,
			Timeout: cfg.Supabase.Timeout,
		})
	}
}

func sessionsFactory(cfg *configs.Config) container.Factory {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		client, err := container.Get[*supabase.Client](ctx, r, ServiceSupabase)
		if err != nil {
			return nil, err
		}
		remote := auth.NewSupabaseSessions(client)

		switch cfg.Session.Verifier {
		case configs.VerifierJWT:
			issuer := ""
			if cfg.Supabase.URL != "" {
				issuer = cfg.Supabase.URL + "/auth/v1"
			}
			var provider auth.SessionProvider = auth.NewJWTVerifier(cfg.Supabase.JWTSecret, issuer, remote)
			return provider, nil
		default:
			var provider auth.SessionProvider = remote
			return provider, nil
		}
	}
}

func publisherFactory(cfg *configs.Config, logger *zap.Logger) container.Factory {
	return func(context.Context, container.Resolver) (any, error) {
		if !cfg.Kafka.Enabled {
			var p messaging.Publisher = messaging.NopPublisher{}
			return p, nil
		}
		logger.Info("publishing events to kafka", zap.Strings("brokers", cfg.Kafka.Brokers))
		var p messaging.Publisher = messaging.NewKafkaProducer(cfg.Kafka.Brokers)
		return p, nil
	}
}

func adminRepoFactory(cfg *configs.Config) container.Factory {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		if cfg.Database.RoleBackend == configs.BackendPostgres {
			pg, err := container.Get[*database.Postgres](ctx, r, ServicePostgres)
			if err != nil {
				return nil, err
			}
			return repositories.NewAdminRepository(pg.DB), nil
		}
		client, err := container.Get[*supabase.Client](ctx, r, ServiceSupabaseService)
		if err != nil {
			return nil, err
		}
		return repositories.NewSupabaseAdminRepository(client), nil
	}
}

func sellerRepoFactory(cfg *configs.Config) container.Factory {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		if cfg.Database.RoleBackend == configs.BackendPostgres {
			pg, err := container.Get[*database.Postgres](ctx, r, ServicePostgres)
			if err != nil {
				return nil, err
			}
			return repositories.NewSellerRepository(pg.DB), nil
		}
		client, err := container.Get[*supabase.Client](ctx, r, ServiceSupabaseService)
		if err != nil {
			return nil, err
		}
		return repositories.NewSupabaseSellerRepository(client), nil
	}
}

func productRepoFactory(cfg *configs.Config) container.Factory {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		if cfg.Database.CatalogBackend == configs.BackendMongo {
			m, err := container.Get[*database.Mongo](ctx, r, ServiceMongo)
			if err != nil {
				return nil, err
			}
			return repositories.NewMongoProductRepository(m.DB), nil
		}
		client, err := container.Get[*supabase.Client](ctx, r, ServiceSupabase)
		if err != nil {
			return nil, err
		}
		return repositories.NewSupabaseProductRepository(client), nil
	}
}

func cachedRoles(ctx context.Context, r container.Resolver, cfg *configs.Config, logger *zap.Logger, area string, inner services.RoleLookup, admit func(*models.RoleRecord) bool) (services.RoleLookup, error) {
	if cfg.Session.RoleCacheTTL <= 0 {
		return inner, nil
	}
	store, err := container.Get[kvstore.Store](ctx, r, ServiceStore)
	if err != nil {
		return nil, err
	}
	return services.NewCachedRoleLookup(inner, store, area, cfg.Session.RoleCacheTTL, admit, logger), nil
}

func cartFactory(cfg *configs.Config, logger *zap.Logger) container.Factory {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		store, err := container.Get[kvstore.Store](ctx, r, ServiceStore)
		if err != nil {
			return nil, err
		}
		products, err := container.Get[repositories.ProductRepository](ctx, r, ServiceProductRepo)
		if err != nil {
			return nil, err
		}
		client, err := container.Get[*supabase.Client](ctx, r, ServiceSupabase)
		if err != nil {
			return nil, err
		}
		publisher, err := container.Get[messaging.Publisher](ctx, r, ServicePublisher)
		if err != nil {
			return nil, err
		}
		return services.NewCartService(store, products, client.Storage(), publisher, logger.Named("cart"), services.CartConfig{
			KeyPrefix:   cfg.Cart.KeyPrefix,
			Currency:    cfg.Cart.Currency,
			ImageBucket: cfg.Supabase.ImageBucket,
		}), nil
	}
}

func productsFactory(cfg *configs.Config, logger *zap.Logger) container.Factory {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		repo, err := container.Get[repositories.ProductRepository](ctx, r, ServiceProductRepo)
		if err != nil {
			return nil, err
		}
		store, err := container.Get[kvstore.Store](ctx, r, ServiceStore)
		if err != nil {
			return nil, err
		}
		client, err := container.Get[*supabase.Client](ctx, r, ServiceSupabase)
		if err != nil {
			return nil, err
		}
		return services.NewProductService(repo, store, client.Storage(), cfg.Supabase.ImageBucket, logger.Named("products")), nil
	}
}

func authFactory(logger *zap.Logger) container.Factory {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		client, err := container.Get[*supabase.Client](ctx, r, ServiceSupabase)
		if err != nil {
			return nil, err
		}
		sessions, err := container.Get[auth.SessionProvider](ctx, r, ServiceSessions)
		if err != nil {
			return nil, err
		}
		cart, err := container.Get[*services.CartService](ctx, r, ServiceCart)
		if err != nil {
			return nil, err
		}
		return services.NewAuthService(client.Auth(), sessions, cart, logger.Named("auth")), nil
	}
}

func guardFactory(logger *zap.Logger) container.Factory {
	return func(ctx context.Context, r container.Resolver) (any, error) {
		sessions, err := container.Get[auth.SessionProvider](ctx, r, ServiceSessions)
		if err != nil {
			return nil, err
		}
		publisher, err := container.Get[messaging.Publisher](ctx, r, ServicePublisher)
		if err != nil {
			return nil, err
		}
		return services.NewSessionGuard(sessions, publisher, logger.Named("guard")), nil
	}
}

// Policies builds the three area policies from the resolved role lookups.
func Policies(ctx context.Context, r container.Resolver, cfg *configs.Config) (admin, seller, customer services.Policy, err error) {
	adminRoles, err := container.Get[services.RoleLookup](ctx, r, ServiceAdminRoles)
	if err != nil {
		return admin, seller, customer, fmt.Errorf("admin roles: %w", err)
	}
	sellerRoles, err := container.Get[services.RoleLookup](ctx, r, ServiceSellerRoles)
	if err != nil {
		return admin, seller, customer, fmt.Errorf("seller roles: %w", err)
	}

	admin = services.AdminPolicy(adminRoles, cfg.Guard.AdminLoginPath)
	seller = services.SellerPolicy(sellerRoles, cfg.Guard.SellerLoginPath, cfg.Guard.SellerVerificationPath)
	customer = services.CustomerPolicy(cfg.Guard.CustomerLoginPath)
	return admin, seller, customer, nil
}
