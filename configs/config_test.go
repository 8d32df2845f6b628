package configs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SESSION_VERIFIER", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, VerifierRemote, cfg.Session.Verifier)
	assert.Equal(t, BackendSupabase, cfg.Database.RoleBackend)
	assert.Equal(t, "shopup_guest", cfg.Cart.GuestCookie)
	assert.Equal(t, "GHS", cfg.Cart.Currency)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Zero(t, cfg.Session.RoleCacheTTL)
	assert.Equal(t, "/seller/verification.html", cfg.Guard.SellerVerificationPath)
}

func TestLoadConfig_ReadsEnvironment(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co")
	t.Setenv("ROLE_CACHE_TTL", "90s")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,,")
	t.Setenv("KAFKA_ENABLED", "true")
	t.Setenv("REDIS_DB", "not-a-number")
	t.Setenv("ROLE_BACKEND", "Postgres")

	cfg := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	assert.Equal(t, "https://proj.supabase.co", cfg.Supabase.URL)
	assert.Equal(t, 90*time.Second, cfg.Session.RoleCacheTTL)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Enabled)
	assert.Equal(t, 0, cfg.Redis.DB)
	assert.Equal(t, BackendPostgres, cfg.Database.RoleBackend)
}

func TestLoadConfig_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SUPABASE_ANON_KEY=from-file\nSERVER_PORT=9090\n"), 0o600))
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("SUPABASE_ANON_KEY", "")
	os.Unsetenv("SUPABASE_ANON_KEY")

	cfg := LoadConfig(envFile)

	assert.Equal(t, "from-file", cfg.Supabase.AnonKey)
	assert.Equal(t, "7070", cfg.Server.Port)
}

func validConfig() *Config {
	return &Config{
		Supabase: SupabaseConfig{URL: "https://proj.supabase.co", AnonKey: "anon", ServiceRoleKey: "service"},
		Database: DatabaseConfig{RoleBackend: BackendSupabase, CatalogBackend: BackendSupabase},
		Session:  SessionConfig{Verifier: VerifierRemote},
		Login:    LoginConfig{RequestsPerMinute: 10, Burst: 5},
	}
}

func TestValidate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		message string
	}{
		{"missing url", func(c *Config) { c.Supabase.URL = "" }, "SUPABASE_URL"},
		{"jwt without secret", func(c *Config) { c.Session.Verifier = VerifierJWT }, "SUPABASE_JWT_SECRET"},
		{"unknown verifier", func(c *Config) { c.Session.Verifier = "cookie" }, "SESSION_VERIFIER"},
		{"postgres without url", func(c *Config) { c.Database.RoleBackend = BackendPostgres }, "POSTGRES_URL"},
		{"supabase roles without service key", func(c *Config) { c.Supabase.ServiceRoleKey = "" }, "SUPABASE_SERVICE_ROLE_KEY"},
		{"unknown catalog", func(c *Config) { c.Database.CatalogBackend = "sqlite" }, "CATALOG_BACKEND"},
		{"kafka without brokers", func(c *Config) { c.Kafka = KafkaConfig{Enabled: true} }, "KAFKA_BROKERS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestValidate_ReportsAllProblems(t *testing.T) {
	err := (&Config{}).Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SUPABASE_URL")
	assert.Contains(t, err.Error(), "SUPABASE_ANON_KEY")
	assert.Contains(t, err.Error(), "SESSION_VERIFIER")
}
