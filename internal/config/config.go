package config

import (
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Forecast ForecastConfig
	Anomaly  AnomalyConfig
	Cache    CacheConfig
	Archive  ArchiveConfig
	Sweep    SweepConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

// DatabaseConfig selects the SQL backend. Driver is "postgres" (lib/pq)
// or "sqlite3"; for sqlite only Path is consulted.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

// ForecastConfig carries the engine tunables. SafetyStockDays and
// ExtraCoverDays feed the stockout threshold and reorder quantity;
// FitTimeout bounds each adapter's fitting call, and the AR grid caps
// bound the autoregressive order search independently.
type ForecastConfig struct {
	LookbackDays    int
	SafetyStockDays int
	ExtraCoverDays  int
	WorkerCount     int
	FitTimeout      time.Duration
	MaxAROrder      int
	MaxMAOrder      int
	SeasonalEnabled bool
	ARIMAEnabled    bool
}

type AnomalyConfig struct {
	LookbackDays int
	WorkerCount  int
}

type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
}

// ArchiveConfig points report archival at an S3-compatible bucket.
type ArchiveConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// SweepConfig schedules the nightly catalog-wide anomaly scan.
type SweepConfig struct {
	Enabled  bool
	CronSpec string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 30)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 120)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

		viper.SetDefault("DB_DRIVER", "postgres")
		viper.SetDefault("DB_HOST", "localhost")
		viper.SetDefault("DB_PORT", "5432")
		viper.SetDefault("DB_USER", "postgres")
		viper.SetDefault("DB_PASSWORD", "postgres")
		viper.SetDefault("DB_NAME", "pharmacy")
		viper.SetDefault("DB_SSLMODE", "disable")
		viper.SetDefault("DB_PATH", "./data/pharmacy.db")

		viper.SetDefault("FORECAST_LOOKBACK_DAYS", 365)
		viper.SetDefault("FORECAST_SAFETY_STOCK_DAYS", 7)
		viper.SetDefault("FORECAST_EXTRA_COVER_DAYS", 30)
		viper.SetDefault("FORECAST_WORKER_COUNT", 4)
		viper.SetDefault("FORECAST_FIT_TIMEOUT_SECONDS", 30)
		viper.SetDefault("FORECAST_MAX_AR_ORDER", 3)
		viper.SetDefault("FORECAST_MAX_MA_ORDER", 3)
		viper.SetDefault("FORECAST_SEASONAL_ENABLED", true)
		viper.SetDefault("FORECAST_ARIMA_ENABLED", true)

		viper.SetDefault("ANOMALY_LOOKBACK_DAYS", 180)
		viper.SetDefault("ANOMALY_WORKER_COUNT", 4)

		viper.SetDefault("CACHE_ENABLED", false)
		viper.SetDefault("REDIS_URL", "")
		viper.SetDefault("REDIS_HOST", "127.0.0.1")
		viper.SetDefault("REDIS_PORT", "6379")
		viper.SetDefault("REDIS_PASSWORD", "")
		viper.SetDefault("REDIS_DB", 0)
		viper.SetDefault("CACHE_FORECAST_TTL_SECONDS", 300)

		viper.SetDefault("ARCHIVE_ENABLED", false)
		viper.SetDefault("ARCHIVE_ENDPOINT", "")
		viper.SetDefault("ARCHIVE_ACCESS_KEY", "")
		viper.SetDefault("ARCHIVE_SECRET_KEY", "")
		viper.SetDefault("ARCHIVE_BUCKET", "")
		viper.SetDefault("ARCHIVE_REGION", "us-east-1")
		viper.SetDefault("ARCHIVE_USE_SSL", true)

		viper.SetDefault("SWEEP_ENABLED", false)
		viper.SetDefault("SWEEP_CRON", "0 3 * * *")

		viper.AutomaticEnv()

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			Database: DatabaseConfig{
				Driver:   viper.GetString("DB_DRIVER"),
				Host:     viper.GetString("DB_HOST"),
				Port:     viper.GetString("DB_PORT"),
				User:     viper.GetString("DB_USER"),
				Password: viper.GetString("DB_PASSWORD"),
				DBName:   viper.GetString("DB_NAME"),
				SSLMode:  viper.GetString("DB_SSLMODE"),
				Path:     viper.GetString("DB_PATH"),
			},
			Forecast: ForecastConfig{
				LookbackDays:    viper.GetInt("FORECAST_LOOKBACK_DAYS"),
				SafetyStockDays: viper.GetInt("FORECAST_SAFETY_STOCK_DAYS"),
				ExtraCoverDays:  viper.GetInt("FORECAST_EXTRA_COVER_DAYS"),
				WorkerCount:     viper.GetInt("FORECAST_WORKER_COUNT"),
				FitTimeout:      time.Duration(viper.GetInt("FORECAST_FIT_TIMEOUT_SECONDS")) * time.Second,
				MaxAROrder:      viper.GetInt("FORECAST_MAX_AR_ORDER"),
				MaxMAOrder:      viper.GetInt("FORECAST_MAX_MA_ORDER"),
				SeasonalEnabled: viper.GetBool("FORECAST_SEASONAL_ENABLED"),
				ARIMAEnabled:    viper.GetBool("FORECAST_ARIMA_ENABLED"),
			},
			Anomaly: AnomalyConfig{
				LookbackDays: viper.GetInt("ANOMALY_LOOKBACK_DAYS"),
				WorkerCount:  viper.GetInt("ANOMALY_WORKER_COUNT"),
			},
			Cache: CacheConfig{
				Enabled:       viper.GetBool("CACHE_ENABLED"),
				RedisURL:      viper.GetString("REDIS_URL"),
				RedisHost:     viper.GetString("REDIS_HOST"),
				RedisPort:     viper.GetString("REDIS_PORT"),
				RedisPassword: viper.GetString("REDIS_PASSWORD"),
				RedisDB:       viper.GetInt("REDIS_DB"),
				TTLSeconds:    viper.GetInt("CACHE_FORECAST_TTL_SECONDS"),
			},
			Archive: ArchiveConfig{
				Enabled:   viper.GetBool("ARCHIVE_ENABLED"),
				Endpoint:  viper.GetString("ARCHIVE_ENDPOINT"),
				AccessKey: viper.GetString("ARCHIVE_ACCESS_KEY"),
				SecretKey: viper.GetString("ARCHIVE_SECRET_KEY"),
				Bucket:    viper.GetString("ARCHIVE_BUCKET"),
				Region:    viper.GetString("ARCHIVE_REGION"),
				UseSSL:    viper.GetBool("ARCHIVE_USE_SSL"),
			},
			Sweep: SweepConfig{
				Enabled:  viper.GetBool("SWEEP_ENABLED"),
				CronSpec: viper.GetString("SWEEP_CRON"),
			},
		}
	})

	return instance
}
