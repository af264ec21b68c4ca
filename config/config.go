package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Token    TokenConfig    `mapstructure:"token"`
	Wallet   WalletConfig   `mapstructure:"wallet"`
	Scanner  ScannerConfig  `mapstructure:"scanner"`
	Upkeep   UpkeepConfig   `mapstructure:"upkeep"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"` // memory, postgres
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"` // empty = events are only logged
	Topic   string   `mapstructure:"topic"`
}

type JWTConfig struct {
	Secret   string        `mapstructure:"secret"`
	Expiry   time.Duration `mapstructure:"expiry"`
	Issuer   string        `mapstructure:"issuer"`
	DevLogin bool          `mapstructure:"dev_login"` // expose POST /api/v1/auth/token
}

// TokenConfig controls payment token issuance.
type TokenConfig struct {
	Secret          string        `mapstructure:"secret"`
	Validity        time.Duration `mapstructure:"validity"`
	RefreshInterval time.Duration `mapstructure:"refresh_interval"`
	EnforceLatest   bool          `mapstructure:"enforce_latest"`
}

// WalletConfig holds the defaults applied when an account is first opened.
type WalletConfig struct {
	SeedBalance    string `mapstructure:"seed_balance"` // decimal text, e.g. "50.00"
	DefaultName    string `mapstructure:"default_name"`
	DefaultFuel    string `mapstructure:"default_fuel"`
	DefaultVehicle string `mapstructure:"default_vehicle"`
}

type ScannerConfig struct {
	Mode           string        `mapstructure:"mode"` // manual, simulated
	CaptureTimeout time.Duration `mapstructure:"capture_timeout"`
	SimulatedDelay time.Duration `mapstructure:"simulated_delay"`
	DemoPayer      string        `mapstructure:"demo_payer"` // account presented by the simulated scanner
}

// UpkeepConfig schedules background housekeeping.
type UpkeepConfig struct {
	Schedule      string        `mapstructure:"schedule"`       // cron spec, e.g. "@every 1m"
	PresenterIdle time.Duration `mapstructure:"presenter_idle"` // stop payment codes not requested for this long
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: FWL_ (Fuel Wallet).
// Nested keys use underscore: FWL_DATABASE_HOST, FWL_TOKEN_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "fuel_wallet")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "wallet.events")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "fuel-wallet")
	v.SetDefault("jwt.dev_login", false)
	v.SetDefault("token.secret", "")
	v.SetDefault("token.validity", "30s")
	v.SetDefault("token.refresh_interval", "30s")
	v.SetDefault("token.enforce_latest", true)
	v.SetDefault("wallet.seed_balance", "50.00")
	v.SetDefault("wallet.default_name", "John Doe")
	v.SetDefault("wallet.default_fuel", "Petrol")
	v.SetDefault("wallet.default_vehicle", "SUV")
	v.SetDefault("scanner.mode", "manual")
	v.SetDefault("scanner.capture_timeout", "30s")
	v.SetDefault("scanner.simulated_delay", "2s")
	v.SetDefault("scanner.demo_payer", "")
	v.SetDefault("upkeep.schedule", "@every 1m")
	v.SetDefault("upkeep.presenter_idle", "10m")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: FWL_DATABASE_HOST -> database.host
	v.SetEnvPrefix("FWL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case "memory", "postgres":
	default:
		return fmt.Errorf("invalid storage.driver %q: must be memory or postgres", c.Storage.Driver)
	}
	switch c.Scanner.Mode {
	case "manual", "simulated":
	default:
		return fmt.Errorf("invalid scanner.mode %q: must be manual or simulated", c.Scanner.Mode)
	}
	if c.Token.Validity <= 0 {
		return fmt.Errorf("token.validity must be positive")
	}
	if c.Token.RefreshInterval <= 0 {
		return fmt.Errorf("token.refresh_interval must be positive")
	}
	if c.Scanner.CaptureTimeout <= 0 {
		return fmt.Errorf("scanner.capture_timeout must be positive")
	}
	if c.Scanner.SimulatedDelay <= 0 {
		return fmt.Errorf("scanner.simulated_delay must be positive")
	}
	if c.Upkeep.PresenterIdle <= 0 {
		return fmt.Errorf("upkeep.presenter_idle must be positive")
	}
	return nil
}
