package configs

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env  string
	Port int

	StoreDriver   string
	MongoURI      string
	MongoDatabase string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RedisHost          string
	RedisPort          int
	CacheTTL           time.Duration
	CacheEncryptionKey string

	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int

	CORSOrigins string
	LogDir      string
}

// IsDevelopment reports whether error responses may carry diagnostic detail.
func (c Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// CacheEnabled reports whether a Redis host was configured.
func (c Config) CacheEnabled() bool {
	return c.RedisHost != ""
}

func LoadConfig() (Config, error) {
	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil {
		if os.Getenv("APP_ENV") != EnvTest {
			log.Println("No .env file found, using environment")
		}
	}

	var errs []error

	cfg := Config{
		Env:                getEnv("APP_ENV", EnvProduction),
		StoreDriver:        getEnv("STORE_DRIVER", StoreMongo),
		MongoURI:           getEnv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "taskhub"),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBUser:             os.Getenv("DB_USER"),
		DBPassword:         os.Getenv("DB_PASSWORD"),
		DBName:             getEnv("DB_NAME", "taskhub"),
		RedisHost:          os.Getenv("REDIS_HOST"),
		CacheEncryptionKey: os.Getenv("CACHE_ENCRYPTION_KEY"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		CORSOrigins:        getEnv("CORS_ORIGINS", "*"),
		LogDir:             getEnv("LOG_DIR", "logs"),
	}

	cfg.Port = getInt("PORT", 5000, &errs)
	cfg.DBPort = getInt("DB_PORT", 5432, &errs)
	cfg.RedisPort = getInt("REDIS_PORT", 6379, &errs)
	cfg.BcryptCost = getInt("BCRYPT_COST", 12, &errs)
	cfg.CacheTTL = getDuration("CACHE_TTL", time.Hour, &errs)
	cfg.TokenTTL = getDuration("TOKEN_TTL", 24*time.Hour, &errs)

	if err := cfg.Validate(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return Config{}, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate checks the invariants LoadConfig cannot express as defaults.
func (c Config) Validate() error {
	var errs []error
	switch c.Env {
	case EnvDevelopment, EnvProduction, EnvTest:
	default:
		errs = append(errs, fmt.Errorf("APP_ENV: unknown environment %q", c.Env))
	}
	switch c.StoreDriver {
	case StoreMongo, StorePostgres, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER: unknown driver %q", c.StoreDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.TokenTTL < 0 {
		errs = append(errs, errors.New("TOKEN_TTL must not be negative"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST: %d out of range 4..31", c.BcryptCost))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}
