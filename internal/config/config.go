package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string `mapstructure:"PORT"`
	Env         string `mapstructure:"ENV"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32  `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32  `mapstructure:"DB_MIN_CONNS"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	JWTExpiryMinutes int    `mapstructure:"JWT_EXPIRY_MINUTES"`

	// MasterSecret seeds the record encryption key (PBKDF2, see platform/crypto).
	// One static secret for the whole deployment; a managed KMS is the intended
	// replacement.
	MasterSecret string `mapstructure:"MASTER_SECRET"`

	ChainRPCURL          string `mapstructure:"CHAIN_RPC_URL"`
	RegistryAddress      string `mapstructure:"REGISTRY_CONTRACT_ADDRESS"`
	ChainPrivateKey      string `mapstructure:"CHAIN_SENDER_PRIVATE_KEY"`
	ChainID              int64  `mapstructure:"CHAIN_ID"`
	OracleTimeoutSeconds int    `mapstructure:"ORACLE_TIMEOUT_SECONDS"`

	CORSOrigins    []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int      `mapstructure:"RATE_LIMIT_BURST"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_EXPIRY_MINUTES", 30)
	v.SetDefault("CHAIN_RPC_URL", "http://127.0.0.1:8545")
	v.SetDefault("CHAIN_ID", 1337)
	v.SetDefault("ORACLE_TIMEOUT_SECONDS", 15)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"JWT_SECRET", "JWT_EXPIRY_MINUTES", "MASTER_SECRET",
		"CHAIN_RPC_URL", "REGISTRY_CONTRACT_ADDRESS", "CHAIN_SENDER_PRIVATE_KEY",
		"CHAIN_ID", "ORACLE_TIMEOUT_SECONDS",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	// Development gets well-known placeholder secrets so a bare checkout can
	// boot. Validate rejects empty secrets in every environment, so nothing
	// outside development can run on these.
	if cfg.IsDev() {
		if cfg.JWTSecret == "" {
			cfg.JWTSecret = devJWTSecret
		}
		if cfg.MasterSecret == "" {
			cfg.MasterSecret = devMasterSecret
		}
	}

	return cfg, nil
}

const (
	devJWTSecret    = "dev-only-jwt-secret-not-for-production-use"
	devMasterSecret = "dev-only-master-secret"
)

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// OracleTimeout bounds every blockchain call made while serving a request.
func (c *Config) OracleTimeout() time.Duration {
	return time.Duration(c.OracleTimeoutSeconds) * time.Second
}

// JWTExpiry is the lifetime of issued access tokens.
func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryMinutes) * time.Minute
}

// Validate refuses configurations that are unsafe to run. Secrets must be set
// in every environment; Load fills development placeholders, production and
// everything else must provide real ones.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.MasterSecret == "" {
		return fmt.Errorf("MASTER_SECRET is required")
	}
	if c.IsProduction() {
		if c.JWTSecret == devJWTSecret || c.MasterSecret == devMasterSecret {
			return fmt.Errorf("development placeholder secrets are not allowed in production")
		}
		if c.ChainPrivateKey == "" {
			return fmt.Errorf("CHAIN_SENDER_PRIVATE_KEY is required in production")
		}
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters, got %d", len(c.JWTSecret))
	}
	if c.RegistryAddress != "" {
		if !strings.HasPrefix(c.RegistryAddress, "0x") || len(c.RegistryAddress) != 42 {
			return fmt.Errorf("REGISTRY_CONTRACT_ADDRESS must be a 0x-prefixed 40-hex address")
		}
	}
	if c.OracleTimeoutSeconds <= 0 {
		return fmt.Errorf("ORACLE_TIMEOUT_SECONDS must be positive")
	}
	return nil
}
