// internal/config/config.go
package config

import (
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/invintel/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Source   SourceConfig
	Tables   TableNames
	Pipeline PipelineConfig
	Storage  StorageConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	LogLevel       string
	LogJSON        bool
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AppConfig struct {
	DataDir   string
	ExportDir string
}

type CacheConfig struct {
	// Backend is one of memory, redis or none.
	Backend       string
	RedisURL      string
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	TTLSeconds    int
	MaxEntries    int
}

func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

type SourceConfig struct {
	// Kind is one of sheets, drive, xlsx, csv, object or memory.
	Kind            string
	SpreadsheetID   string
	DriveFileID     string
	CredentialsJSON string
	CredentialsFile string
	WorkbookPath    string
	CSVDir          string
	ObjectKey       string

	RetryAttempts     int
	RetryInitialDelay time.Duration
	RetryMaxDelay     time.Duration
	FetchConcurrency  int
}

// TableNames maps the logical planning tables to the worksheet names in the source.
type TableNames struct {
	ProductMaster     string
	Sales             string
	Rofo              string
	PO                string
	StockOnhand       string
	ForecastEcommerce string
	ForecastReseller  string
	FulfillmentCost   string
}

type PipelineConfig struct {
	// CoercionPolicy is "default_zero" or "strict".
	CoercionPolicy string

	AccuracyLower       float64
	AccuracyUpper       float64
	CoverLow            float64
	CoverHigh           float64
	CoverSentinel       float64
	TrailingMonths      int
	MarginHigh          float64
	MarginMedium        float64
	SeasonPeak          float64
	SeasonLow           float64
	EOQOrderCost        float64
	EOQHoldingRate      float64
	ChannelTopN         int
	RecentMonths        int
	MaxCoercionExamples int
}

// Thresholds converts the configured boundaries into the engine thresholds.
func (p PipelineConfig) Thresholds() domain.Thresholds {
	return domain.Thresholds{
		AccuracyLower:  p.AccuracyLower,
		AccuracyUpper:  p.AccuracyUpper,
		CoverLow:       p.CoverLow,
		CoverHigh:      p.CoverHigh,
		CoverSentinel:  p.CoverSentinel,
		TrailingMonths: p.TrailingMonths,
		MarginMedium:   p.MarginMedium,
		MarginHigh:     p.MarginHigh,
		SeasonLow:      p.SeasonLow,
		SeasonPeak:     p.SeasonPeak,
		EOQOrderCost:   p.EOQOrderCost,
		EOQHoldingRate: p.EOQHoldingRate,
	}
}

type StorageConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.GetViper()
		SetDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = FromViper(v)

		ensureDir(instance.App.DataDir)
		ensureDir(instance.App.ExportDir)
	})

	return instance
}

// SetDefaults registers every known key with its default value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_JSON", false)
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DB_ENABLED", false)
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "invintel")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("APP_DATA_DIR", "./data")
	v.SetDefault("APP_EXPORT_DIR", "./data/export")

	v.SetDefault("CACHE_BACKEND", "memory")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL_SECONDS", 300)
	v.SetDefault("CACHE_MAX_ENTRIES", 32)

	v.SetDefault("SOURCE_KIND", "sheets")
	v.SetDefault("SPREADSHEET_ID", "")
	v.SetDefault("DRIVE_FILE_ID", "")
	v.SetDefault("GOOGLE_SERVICE_ACCOUNT", "")
	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("GOOGLE_CREDENTIALS_FILE", "")
	v.SetDefault("SOURCE_WORKBOOK_PATH", "./data/inventory.xlsx")
	v.SetDefault("SOURCE_CSV_DIR", "./data/tables")
	v.SetDefault("SOURCE_OBJECT_KEY", "inventory.xlsx")
	v.SetDefault("SOURCE_RETRY_ATTEMPTS", 3)
	v.SetDefault("SOURCE_RETRY_INITIAL_DELAY", "4s")
	v.SetDefault("SOURCE_RETRY_MAX_DELAY", "10s")
	v.SetDefault("SOURCE_FETCH_CONCURRENCY", 4)

	v.SetDefault("TABLE_PRODUCT_MASTER", "Product_Master")
	v.SetDefault("TABLE_SALES", "Sales")
	v.SetDefault("TABLE_ROFO", "Rofo")
	v.SetDefault("TABLE_PO", "PO")
	v.SetDefault("TABLE_STOCK_ONHAND", "Stock_Onhand")
	v.SetDefault("TABLE_FORECAST_ECOMMERCE", "Forecast_Ecommerce")
	v.SetDefault("TABLE_FORECAST_RESELLER", "Forecast_Reseller")
	v.SetDefault("TABLE_FULFILLMENT_COST", "Fulfillment_Cost")

	v.SetDefault("PIPELINE_COERCION_POLICY", "default_zero")
	v.SetDefault("ACCURACY_LOWER", 80.0)
	v.SetDefault("ACCURACY_UPPER", 120.0)
	v.SetDefault("COVER_LOW", 0.8)
	v.SetDefault("COVER_HIGH", 1.5)
	v.SetDefault("COVER_SENTINEL", 999.0)
	v.SetDefault("TRAILING_MONTHS", 3)
	v.SetDefault("MARGIN_HIGH", 40.0)
	v.SetDefault("MARGIN_MEDIUM", 20.0)
	v.SetDefault("SEASON_PEAK", 1.2)
	v.SetDefault("SEASON_LOW", 0.9)
	v.SetDefault("EOQ_ORDER_COST", 50.0)
	v.SetDefault("EOQ_HOLDING_RATE", 0.2)
	v.SetDefault("CHANNEL_TOP_N", 10)
	v.SetDefault("RECENT_MONTHS", 3)
	v.SetDefault("MAX_COERCION_EXAMPLES", 20)

	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "invintel")
	v.SetDefault("STORAGE_REGION", "")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "exports")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	creds := v.GetString("GOOGLE_SERVICE_ACCOUNT")
	if creds == "" {
		creds = v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON")
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			LogJSON:        v.GetBool("LOG_JSON"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Enabled:  v.GetBool("DB_ENABLED"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		App: AppConfig{
			DataDir:   v.GetString("APP_DATA_DIR"),
			ExportDir: v.GetString("APP_EXPORT_DIR"),
		},
		Cache: CacheConfig{
			Backend:       strings.ToLower(v.GetString("CACHE_BACKEND")),
			RedisURL:      v.GetString("REDIS_URL"),
			RedisHost:     v.GetString("REDIS_HOST"),
			RedisPort:     v.GetString("REDIS_PORT"),
			RedisPassword: v.GetString("REDIS_PASSWORD"),
			RedisDB:       v.GetInt("REDIS_DB"),
			TTLSeconds:    v.GetInt("CACHE_TTL_SECONDS"),
			MaxEntries:    v.GetInt("CACHE_MAX_ENTRIES"),
		},
		Source: SourceConfig{
			Kind:              strings.ToLower(v.GetString("SOURCE_KIND")),
			SpreadsheetID:     v.GetString("SPREADSHEET_ID"),
			DriveFileID:       v.GetString("DRIVE_FILE_ID"),
			CredentialsJSON:   creds,
			CredentialsFile:   v.GetString("GOOGLE_CREDENTIALS_FILE"),
			WorkbookPath:      v.GetString("SOURCE_WORKBOOK_PATH"),
			CSVDir:            v.GetString("SOURCE_CSV_DIR"),
			ObjectKey:         v.GetString("SOURCE_OBJECT_KEY"),
			RetryAttempts:     v.GetInt("SOURCE_RETRY_ATTEMPTS"),
			RetryInitialDelay: v.GetDuration("SOURCE_RETRY_INITIAL_DELAY"),
			RetryMaxDelay:     v.GetDuration("SOURCE_RETRY_MAX_DELAY"),
			FetchConcurrency:  v.GetInt("SOURCE_FETCH_CONCURRENCY"),
		},
		Tables: TableNames{
			ProductMaster:     v.GetString("TABLE_PRODUCT_MASTER"),
			Sales:             v.GetString("TABLE_SALES"),
			Rofo:              v.GetString("TABLE_ROFO"),
			PO:                v.GetString("TABLE_PO"),
			StockOnhand:       v.GetString("TABLE_STOCK_ONHAND"),
			ForecastEcommerce: v.GetString("TABLE_FORECAST_ECOMMERCE"),
			ForecastReseller:  v.GetString("TABLE_FORECAST_RESELLER"),
			FulfillmentCost:   v.GetString("TABLE_FULFILLMENT_COST"),
		},
		Pipeline: PipelineConfig{
			CoercionPolicy:      strings.ToLower(v.GetString("PIPELINE_COERCION_POLICY")),
			AccuracyLower:       v.GetFloat64("ACCURACY_LOWER"),
			AccuracyUpper:       v.GetFloat64("ACCURACY_UPPER"),
			CoverLow:            v.GetFloat64("COVER_LOW"),
			CoverHigh:           v.GetFloat64("COVER_HIGH"),
			CoverSentinel:       v.GetFloat64("COVER_SENTINEL"),
			TrailingMonths:      v.GetInt("TRAILING_MONTHS"),
			MarginHigh:          v.GetFloat64("MARGIN_HIGH"),
			MarginMedium:        v.GetFloat64("MARGIN_MEDIUM"),
			SeasonPeak:          v.GetFloat64("SEASON_PEAK"),
			SeasonLow:           v.GetFloat64("SEASON_LOW"),
			EOQOrderCost:        v.GetFloat64("EOQ_ORDER_COST"),
			EOQHoldingRate:      v.GetFloat64("EOQ_HOLDING_RATE"),
			ChannelTopN:         v.GetInt("CHANNEL_TOP_N"),
			RecentMonths:        v.GetInt("RECENT_MONTHS"),
			MaxCoercionExamples: v.GetInt("MAX_COERCION_EXAMPLES"),
		},
		Storage: StorageConfig{
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    v.GetString("STORAGE_PREFIX"),
		},
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
