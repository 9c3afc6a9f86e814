package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	DatabasePath   string
	DataDir        string // directory holding daily tick files (*.tks)
	ParamsFile     string // parameter space definition (JSON)
	BestConfigFile string // best configuration found so far (JSON)
	ReportDir      string // markdown session reports
	LogLevel       string
	Port           int
	DevMode        bool
	SimWorkers     int // parallel day simulations per evaluation (0 = NumCPU)

	// Optional S3 archive for results exports and reports
	ArchiveBucket string
	ArchivePrefix string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnvAsInt("PORT", 8090),
		DevMode:        getEnvAsBool("DEV_MODE", false),
		DatabasePath:   getEnv("DATABASE_PATH", "./data/trials.db"),
		DataDir:        getEnv("DATA_DIR", "./data/ticks"),
		ParamsFile:     getEnv("PARAMS_FILE", "./data/params.json"),
		BestConfigFile: getEnv("BEST_CONFIG_FILE", "./data/best_config.json"),
		ReportDir:      getEnv("REPORT_DIR", "./data/reports"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		SimWorkers:     getEnvAsInt("SIM_WORKERS", 0),
		ArchiveBucket:  getEnv("ARCHIVE_BUCKET", ""),
		ArchivePrefix:  getEnv("ARCHIVE_PREFIX", "breakaway"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return fmt.Errorf("DATABASE_PATH is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
