package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Financing FinancingConfig `mapstructure:"financing"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
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
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// FinancingConfig holds the financing policy knobs.
// Rates and caps are expressed in basis points; amounts in minor units.
type FinancingConfig struct {
	MinRiskScore         int     `mapstructure:"min_risk_score"`
	BaseRateBps          int     `mapstructure:"base_rate_bps"`            // advance rate at risk score 0
	RateSlopeBpsPerPoint int     `mapstructure:"rate_slope_bps_per_point"` // added per risk score point
	FeeBps               int     `mapstructure:"fee_bps"`                  // platform fee on gross advance
	MaxSingleInvoiceBps  int     `mapstructure:"max_single_invoice_bps"`   // share of pool balance per invoice
	MaxUtilizationBps    int     `mapstructure:"max_utilization_bps"`      // share of pool balance in aggregate
	GracePeriodDays      int     `mapstructure:"grace_period_days"`        // past due date before default
	RepaymentScoreBonus  int     `mapstructure:"repayment_score_bonus"`    // business score bump per repayment
	BaseAPYPct           float64 `mapstructure:"base_apy_pct"`
	MaxAPYPct            float64 `mapstructure:"max_apy_pct"`
	SweepSchedule        string  `mapstructure:"sweep_schedule"` // cron expression for the default sweep
	PoolID               string  `mapstructure:"pool_id"`        // UUID of the pool this engine serves
}

// GracePeriod returns the configured grace period as a duration.
func (f FinancingConfig) GracePeriod() time.Duration {
	return time.Duration(f.GracePeriodDays) * 24 * time.Hour
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: IFE_ (Invoice Financing Engine).
// Nested keys use underscore: IFE_DATABASE_HOST, IFE_FINANCING_MIN_RISK_SCORE, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "invoice_financing")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("financing.min_risk_score", 30)
	v.SetDefault("financing.base_rate_bps", 7000)
	v.SetDefault("financing.rate_slope_bps_per_point", 10)
	v.SetDefault("financing.fee_bps", 150)
	v.SetDefault("financing.max_single_invoice_bps", 1000)
	v.SetDefault("financing.max_utilization_bps", 8000)
	v.SetDefault("financing.grace_period_days", 30)
	v.SetDefault("financing.repayment_score_bonus", 2)
	v.SetDefault("financing.base_apy_pct", 5.0)
	v.SetDefault("financing.max_apy_pct", 20.0)
	v.SetDefault("financing.sweep_schedule", "@hourly")
	v.SetDefault("financing.pool_id", "00000000-0000-0000-0000-000000000001")
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

	// Environment variables: IFE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("IFE")
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

	return &cfg, nil
}
