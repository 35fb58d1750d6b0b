// Package config reads application configuration from environment
// variables. Database settings are optional: the batch pipeline runs
// fine without persistence, only the API server requires a database.
package config

import (
	"os"
	"strconv"

	"ablab/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Paths    PathConfig
	Analysis AnalysisConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL     string
	SSLMode string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// PathConfig holds file system paths
type PathConfig struct {
	ManifestFile string
	DataDir      string
	OutputDir    string
}

// AnalysisConfig holds pipeline tuning knobs
type AnalysisConfig struct {
	SRMAlpha        float64
	BalanceWarnSMD  float64
	BalanceFailSMD  float64
	TemporalMaxCV   float64
	OutlierMaxShare float64
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL:     getEnvOrDefault("DATABASE_URL", ""),
			SSLMode: getEnvOrDefault("SSL_MODE", "disable"),
		},
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Paths: PathConfig{
			ManifestFile: getEnvOrDefault("MANIFEST_FILE", "experiments.yaml"),
			DataDir:      getEnvOrDefault("DATA_DIR", "."),
			OutputDir:    getEnvOrDefault("OUTPUT_DIR", "reports"),
		},
		Analysis: AnalysisConfig{
			SRMAlpha:        getEnvFloatOrDefault("SRM_ALPHA", 0.001),
			BalanceWarnSMD:  getEnvFloatOrDefault("BALANCE_WARN_SMD", 0.1),
			BalanceFailSMD:  getEnvFloatOrDefault("BALANCE_FAIL_SMD", 0.2),
			TemporalMaxCV:   getEnvFloatOrDefault("TEMPORAL_MAX_CV", 0.2),
			OutlierMaxShare: getEnvFloatOrDefault("OUTLIER_MAX_SHARE", 0.15),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

// RequireDatabase errors when no database is configured; used by the
// API server which cannot run without persistence.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	return nil
}

func validateConfig(config *Config) error {
	a := config.Analysis
	if a.SRMAlpha <= 0 || a.SRMAlpha >= 1 {
		return errors.ConfigInvalid("SRM_ALPHA must be in (0, 1)")
	}
	if a.BalanceWarnSMD <= 0 || a.BalanceFailSMD <= a.BalanceWarnSMD {
		return errors.ConfigInvalid("balance thresholds must satisfy 0 < warn < fail")
	}
	if a.TemporalMaxCV <= 0 || a.OutlierMaxShare <= 0 {
		return errors.ConfigInvalid("temporal and outlier thresholds must be positive")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
