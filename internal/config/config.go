package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// EngineMode selects where worklist reads come from: "memory" for the
	// seeded in-process store, "rest" for a remote FHIR server, "postgres"
	// for the local projection tables.
	EngineMode  string `mapstructure:"ENGINE_MODE"`
	FHIRBaseURL string `mapstructure:"FHIR_BASE_URL"`
	FHIRToken   string `mapstructure:"FHIR_TOKEN"`

	DatabaseURL   string `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32  `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`

	PageSize       int           `mapstructure:"WORKLIST_PAGE_SIZE"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	AuthMode     string   `mapstructure:"AUTH_MODE"`
	AuthIssuer   string   `mapstructure:"AUTH_ISSUER"`
	AuthAudience string   `mapstructure:"AUTH_AUDIENCE"`
	JWTSecret    string   `mapstructure:"JWT_SECRET"`
	CORSOrigins  []string `mapstructure:"CORS_ORIGINS"`

	SeedOnStart  bool  `mapstructure:"SEED"`
	SeedPatients int   `mapstructure:"SEED_PATIENTS"`
	SeedValue    int64 `mapstructure:"SEED_VALUE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("ENGINE_MODE", "memory")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("WORKLIST_PAGE_SIZE", 100)
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("AUTH_MODE", "") // "" resolves from ENV
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("SEED", true)
	v.SetDefault("SEED_PATIENTS", 25)
	v.SetDefault("SEED_VALUE", 1)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("ENGINE_MODE")
	v.BindEnv("FHIR_BASE_URL")
	v.BindEnv("FHIR_TOKEN")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("MIGRATIONS_DIR")
	v.BindEnv("WORKLIST_PAGE_SIZE")
	v.BindEnv("REQUEST_TIMEOUT")
	v.BindEnv("AUTH_MODE")
	v.BindEnv("AUTH_ISSUER")
	v.BindEnv("AUTH_AUDIENCE")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("SEED")
	v.BindEnv("SEED_PATIENTS")
	v.BindEnv("SEED_VALUE")

	// Try reading .env, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.IsDev() && cfg.ResolvedAuthMode() == "none" {
		log.Println("WARNING: ============================================================")
		log.Println("WARNING: Server is running in DEVELOPMENT mode (ENV=development).")
		log.Println("WARNING: Authentication is disabled, every request is accepted.")
		log.Println("WARNING: Set ENV=production and JWT_SECRET before deploying.")
		log.Println("WARNING: ============================================================")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns the effective auth mode. An explicit AUTH_MODE
// wins; otherwise development runs without auth and everything else
// requires JWT bearer tokens.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "none"
	}
	return "jwt"
}

// Validate checks that the configuration is safe to run: the selected
// engine has its connection settings, the page size fits the worklist
// window, and non-development modes have a signing secret.
func (c *Config) Validate() error {
	switch c.EngineMode {
	case "memory":
	case "rest":
		if c.FHIRBaseURL == "" {
			return fmt.Errorf("FHIR_BASE_URL is required when ENGINE_MODE is \"rest\"")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when ENGINE_MODE is \"postgres\"")
		}
	default:
		return fmt.Errorf("ENGINE_MODE must be \"memory\", \"rest\", or \"postgres\", got %q", c.EngineMode)
	}

	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("WORKLIST_PAGE_SIZE must be between 1 and 100, got %d", c.PageSize)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive, got %v", c.RequestTimeout)
	}

	switch mode := c.ResolvedAuthMode(); mode {
	case "none":
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE \"none\" is not allowed in production")
		}
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE is \"jwt\" (current ENV=%q)", c.Env)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be \"none\" or \"jwt\", got %q", mode)
	}

	return nil
}
