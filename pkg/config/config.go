package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/opscart/node-placeholder-scaler/pkg/inventory"
)

// Config holds application configuration
type Config struct {
	// Calendar
	CalendarURL string

	// Cluster
	Kubeconfig           string
	PoolLabel            string
	PlaceholderNamespace string
	PlaceholderSelector  string

	// Placeholder deployments
	PoolsFile    string
	TemplateFile string
	DryRun       bool

	// Loop
	ReconcileInterval time.Duration
	MetricsAddr       string

	// Storage
	StorageEnabled bool
	DatabaseURL    string
}

// NewConfig creates a new configuration from the environment with defaults
func NewConfig() *Config {
	return &Config{
		CalendarURL:          getEnv("CALENDAR_URL", ""),
		Kubeconfig:           getEnv("KUBECONFIG", ""),
		PoolLabel:            getEnv("POOL_LABEL", inventory.DefaultPoolLabel),
		PlaceholderNamespace: getEnv("PLACEHOLDER_NAMESPACE", "node-placeholder"),
		PlaceholderSelector:  getEnv("PLACEHOLDER_SELECTOR", "app.kubernetes.io/component=placeholder"),
		PoolsFile:            getEnv("POOLS_FILE", "/etc/placeholder-scaler/pools.yaml"),
		TemplateFile:         getEnv("TEMPLATE_FILE", "/etc/placeholder-scaler/deployment.yaml"),
		DryRun:               getEnvBool("DRY_RUN", false),
		ReconcileInterval:    getEnvDuration("RECONCILE_INTERVAL", time.Minute),
		MetricsAddr:          getEnv("METRICS_ADDR", ":9090"),
		StorageEnabled:       getEnvBool("STORAGE_ENABLED", false),
		DatabaseURL:          getEnv("DATABASE_URL", "host=localhost port=5432 user=scaler password=devpassword dbname=placeholder sslmode=disable"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s", "5m") or a bare number of seconds
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		if n := getEnvInt(key, -1); n >= 0 {
			return time.Duration(n) * time.Second
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.CalendarURL == "" {
		return fmt.Errorf("CALENDAR_URL must be set")
	}
	if c.PlaceholderNamespace == "" {
		return fmt.Errorf("PLACEHOLDER_NAMESPACE must be set")
	}
	if c.PoolsFile == "" {
		return fmt.Errorf("POOLS_FILE must be set")
	}
	if c.TemplateFile == "" {
		return fmt.Errorf("TEMPLATE_FILE must be set")
	}
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	if c.ReconcileInterval < time.Second {
		return fmt.Errorf("reconcile interval must be at least 1s")
	}
	return nil
}
