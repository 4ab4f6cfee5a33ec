package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	App          AppConfig
	Sync         SyncConfig
	Cache        CacheConfig
	Storage      StorageConfig
	Remote       RemoteConfig
	Connectivity ConnectivityConfig
}

// AppConfig holds application configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
}

// SyncConfig holds operation queue configuration
type SyncConfig struct {
	MaxAttempts    int
	RetryBackoff   time.Duration // linear: delay = RetryBackoff * attemptCount
	HandlerTimeout time.Duration
	WorkerInterval time.Duration
}

// CacheConfig holds multi-layer cache configuration
type CacheConfig struct {
	LRUCapacity int
	// CompactSoftMax is the soft upper bound at which a per-tenant
	// collection is still cheap to scan linearly. It is a tunable
	// crossover point, not a hard limit.
	CompactSoftMax int
	TTL            time.Duration
}

// StorageConfig holds local persistence configuration
type StorageConfig struct {
	Driver string // memory | pebble | sqlite
	Path   string
}

// RemoteConfig holds remote document store configuration
type RemoteConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// ConnectivityConfig holds reachability probe configuration
type ConnectivityConfig struct {
	ProbeAddr     string
	ProbeTimeout  time.Duration
	ProbeInterval time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env file not found, continue with environment variables
		fmt.Println("No .env file found, using environment variables")
	}

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "ApotekGo"),
			Environment: getEnv("APP_ENV", "development"),
			Debug:       getEnvBool("APP_DEBUG", true),
		},
		Sync: SyncConfig{
			MaxAttempts:    getEnvInt("SYNC_MAX_ATTEMPTS", 3),
			RetryBackoff:   getEnvDuration("SYNC_RETRY_BACKOFF", 2*time.Second),
			HandlerTimeout: getEnvDuration("SYNC_HANDLER_TIMEOUT", 30*time.Second),
			WorkerInterval: getEnvDuration("SYNC_WORKER_INTERVAL", 5*time.Minute),
		},
		Cache: CacheConfig{
			LRUCapacity:    getEnvInt("CACHE_LRU_CAPACITY", 200),
			CompactSoftMax: getEnvInt("CACHE_COMPACT_SOFT_MAX", 100),
			TTL:            getEnvDuration("CACHE_TTL", 24*time.Hour),
		},
		Storage: StorageConfig{
			Driver: getEnv("STORAGE_DRIVER", "pebble"),
			Path:   getEnv("STORAGE_PATH", "./data/apotekgo"),
		},
		Remote: RemoteConfig{
			URI:      getEnv("REMOTE_URI", "mongodb://localhost:27017"),
			Database: getEnv("REMOTE_DATABASE", "apotekgo"),
			Timeout:  getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		},
		Connectivity: ConnectivityConfig{
			ProbeAddr:     getEnv("CONN_PROBE_ADDR", "1.1.1.1:443"),
			ProbeTimeout:  getEnvDuration("CONN_PROBE_TIMEOUT", 3*time.Second),
			ProbeInterval: getEnvDuration("CONN_PROBE_INTERVAL", 15*time.Second),
		},
	}

	return config, nil
}

// IsDevelopment returns true if environment is development
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if environment is production
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Helper functions

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
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates configuration
func (c *Config) Validate() error {
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync max attempts must be at least 1")
	}
	if c.Cache.LRUCapacity < 1 {
		return fmt.Errorf("cache LRU capacity must be at least 1")
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	switch c.Storage.Driver {
	case "memory", "pebble", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver: %s", c.Storage.Driver)
	}
	if c.Remote.URI == "" {
		return fmt.Errorf("remote URI is required")
	}

	return nil
}

// Print prints configuration (excluding sensitive data)
func (c *Config) Print() {
	fmt.Printf("=== Configuration ===\n")
	fmt.Printf("App Name: %s\n", c.App.Name)
	fmt.Printf("Environment: %s\n", c.App.Environment)
	fmt.Printf("Storage: %s (%s)\n", c.Storage.Driver, c.Storage.Path)
	fmt.Printf("Remote: %s/%s\n", c.Remote.URI, c.Remote.Database)
	fmt.Printf("Cache TTL: %v\n", c.Cache.TTL)
	fmt.Printf("Sync Max Attempts: %d\n", c.Sync.MaxAttempts)
	fmt.Printf("====================\n")
}
