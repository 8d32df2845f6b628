package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Supabase SupabaseConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Session  SessionConfig
	Cart     CartConfig
	Guard    GuardConfig
	CORS     CORSConfig
	Login    LoginConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	Mode            string
	ShutdownTimeout time.Duration
}

type SupabaseConfig struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	JWTSecret      string
	ImageBucket    string
	Timeout        time.Duration
	ReadyAttempts  int
	ReadyDelay     time.Duration
}

// DatabaseConfig holds the optional direct connections. Empty backends mean the
// Supabase REST API is used.
type DatabaseConfig struct {
	RoleBackend    string
	CatalogBackend string
	PostgresURL    string
	MongoURL       string
	MongoDBName    string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	Enabled  bool
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
}

type SessionConfig struct {
	Verifier string
	// Admitting role records are cached this long; a revoked role keeps access
	// until it expires. Zero disables the cache.
	RoleCacheTTL time.Duration
	AccessCookie string
}

type CartConfig struct {
	KeyPrefix   string
	GuestCookie string
	CookieTTL   time.Duration
	Currency    string
}

// GuardConfig holds the redirect targets of the page areas.
type GuardConfig struct {
	AdminLoginPath         string
	SellerLoginPath        string
	SellerVerificationPath string
	CustomerLoginPath      string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LoginConfig struct {
	RequestsPerMinute int
	Burst             int
}

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"

	VerifierRemote = "remote"
	VerifierJWT    = "jwt"
)

// LoadConfig reads the environment, after loading .env files when present.
func LoadConfig(envFiles ...string) *Config {
	if len(envFiles) == 0 {
		_ = godotenv.Load()
	} else {
		_ = godotenv.Load(envFiles...)
	}

	return &Config{
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Mode:            getEnv("GIN_MODE", "debug"),
			ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Supabase: SupabaseConfig{
			URL:            getEnv("SUPABASE_URL", ""),
			AnonKey:        getEnv("SUPABASE_ANON_KEY", ""),
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			JWTSecret:      getEnv("SUPABASE_JWT_SECRET", ""),
			ImageBucket:    getEnv("SUPABASE_IMAGE_BUCKET", "product-images"),
			Timeout:        getEnvDuration("SUPABASE_TIMEOUT", 15*time.Second),
			ReadyAttempts:  getEnvInt("SUPABASE_READY_ATTEMPTS", 10),
			ReadyDelay:     getEnvDuration("SUPABASE_READY_DELAY", 500*time.Millisecond),
		},
		Database: DatabaseConfig{
			RoleBackend:    strings.ToLower(getEnv("ROLE_BACKEND", BackendSupabase)),
			CatalogBackend: strings.ToLower(getEnv("CATALOG_BACKEND", BackendSupabase)),
			PostgresURL:    getEnv("POSTGRES_URL", ""),
			MongoURL:       getEnv("MONGO_URL", "mongodb://localhost:27017"),
			MongoDBName:    getEnv("MONGO_DB_NAME", "shopup"),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Enabled:  getEnvBool("REDIS_ENABLED", true),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvList("KAFKA_BROKERS", []string{"localhost:9092"}),
			Enabled: getEnvBool("KAFKA_ENABLED", false),
		},
		Session: SessionConfig{
			Verifier:     strings.ToLower(getEnv("SESSION_VERIFIER", VerifierRemote)),
			RoleCacheTTL: getEnvDuration("ROLE_CACHE_TTL", 0),
			AccessCookie: getEnv("SESSION_ACCESS_COOKIE", "sb-access-token"),
		},
		Cart: CartConfig{
			KeyPrefix:   getEnv("CART_KEY_PREFIX", "cart"),
			GuestCookie: getEnv("CART_GUEST_COOKIE", "shopup_guest"),
			CookieTTL:   getEnvDuration("CART_GUEST_COOKIE_TTL", 30*24*time.Hour),
			Currency:    getEnv("CART_CURRENCY", "GHS"),
		},
		Guard: GuardConfig{
			AdminLoginPath:         getEnv("ADMIN_LOGIN_PATH", "/admin/login.html"),
			SellerLoginPath:        getEnv("SELLER_LOGIN_PATH", "/seller/login.html"),
			SellerVerificationPath: getEnv("SELLER_VERIFICATION_PATH", "/seller/verification.html"),
			CustomerLoginPath:      getEnv("CUSTOMER_LOGIN_PATH", "/login.html"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Login: LoginConfig{
			RequestsPerMinute: getEnvInt("LOGIN_RATE_PER_MINUTE", 10),
			Burst:             getEnvInt("LOGIN_RATE_BURST", 5),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate reports every missing or inconsistent setting at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Supabase.URL == "" {
		errs = append(errs, errors.New("SUPABASE_URL is required"))
	}
	if c.Supabase.AnonKey == "" {
		errs = append(errs, errors.New("SUPABASE_ANON_KEY is required"))
	}

	switch c.Session.Verifier {
	case VerifierRemote:
	case VerifierJWT:
		if c.Supabase.JWTSecret == "" {
			errs = append(errs, errors.New("SUPABASE_JWT_SECRET is required when SESSION_VERIFIER=jwt"))
		}
	default:
		errs = append(errs, fmt.Errorf("SESSION_VERIFIER must be %q or %q, got %q", VerifierRemote, VerifierJWT, c.Session.Verifier))
	}

	switch c.Database.RoleBackend {
	case BackendSupabase:
		if c.Supabase.ServiceRoleKey == "" {
			errs = append(errs, errors.New("SUPABASE_SERVICE_ROLE_KEY is required to read role records"))
		}
	case BackendPostgres:
		if c.Database.PostgresURL == "" {
			errs = append(errs, errors.New("POSTGRES_URL is required when ROLE_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("ROLE_BACKEND must be %q or %q, got %q", BackendSupabase, BackendPostgres, c.Database.RoleBackend))
	}

	switch c.Database.CatalogBackend {
	case BackendSupabase:
	case BackendMongo:
		if c.Database.MongoURL == "" {
			errs = append(errs, errors.New("MONGO_URL is required when CATALOG_BACKEND=mongo"))
		}
	default:
		errs = append(errs, fmt.Errorf("CATALOG_BACKEND must be %q or %q, got %q", BackendSupabase, BackendMongo, c.Database.CatalogBackend))
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED=true"))
	}
	if c.Login.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("LOGIN_RATE_PER_MINUTE must be positive"))
	}

	return errors.Join(errs...)
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return c.Server.Host + ":" + c.Server.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping empty items.
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
