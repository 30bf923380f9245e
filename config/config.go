package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
// CLI flags override the crawl limits at startup.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxPages      int
	MaxProperties int

	OutputDir   string
	SitesConfig string
	ChromeBin   string
	Headless    bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "crawler"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "crawler123"),
		PostgresDB:       getEnv("POSTGRES_DB", "hk_housing"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		MaxPages:      getEnvInt("MAX_PAGES", 2),
		MaxProperties: getEnvInt("MAX_PROPERTIES", 50),

		OutputDir:   getEnv("OUTPUT_DIR", "./output"),
		SitesConfig: getEnv("SITES_CONFIG", "./configs/sites.yaml"),
		ChromeBin:   getEnv("CHROME_BIN", ""),
		Headless:    getEnvBool("HEADLESS", true),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
