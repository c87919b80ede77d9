package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/phototranslate/constants"
)

// Config holds all application configuration
type Config struct {
	Database    DatabaseConfig  `yaml:"database"`
	Server      ServerConfig    `yaml:"server"`
	OCR         OCRConfig       `yaml:"ocr"`
	Language    LanguageConfig  `yaml:"language"`
	Translate   TranslateConfig `yaml:"translate"`
	Storage     StorageConfig   `yaml:"storage"`
	Queue       QueueConfig     `yaml:"queue"`
	Preferences Preferences     `yaml:"preferences"`
	Watch       WatchConfig     `yaml:"watch"`
}

// DatabaseConfig holds database-related configuration.
// Driver is "sqlite" or "postgres"; an empty DSN with sqlite means in-memory.
type DatabaseConfig struct {
	Driver           string        `yaml:"driver"`
	DSN              string        `yaml:"dsn"`
	MaxConns         int32         `yaml:"max_conns"`
	MinConns         int32         `yaml:"min_conns"`
	MaxConnLifetime  time.Duration `yaml:"max_conn_lifetime"`
	MaxConnIdleTime  time.Duration `yaml:"max_conn_idle_time"`
	DialTimeout      time.Duration `yaml:"dial_timeout"`
	StatementTimeout time.Duration `yaml:"statement_timeout"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr          string        `yaml:"http_addr"`
	GRPCAddr          string        `yaml:"grpc_addr"`
	JWTSecret         string        `yaml:"jwt_secret"`
	MaxUploadBytes    int64         `yaml:"max_upload_bytes"`
	MaxConcurrentScan int64         `yaml:"max_concurrent_scans"`
	RateLimitEvery    time.Duration `yaml:"rate_limit_every"`
	RateLimitBurst    int           `yaml:"rate_limit_burst"`
	RateLimitIdle     time.Duration `yaml:"rate_limit_idle"`
	TrustProxyHeaders bool          `yaml:"trust_proxy_headers"` // key clients on X-Forwarded-For / X-Real-IP
	ReadTimeout       time.Duration `yaml:"read_timeout"`
	WriteTimeout      time.Duration `yaml:"write_timeout"`
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Driver           string            `yaml:"driver"` // "cli" or "gosseract"
	Tesseract        string            `yaml:"tesseract"`
	TessdataDir      string            `yaml:"tessdata_dir"`
	HeicConverter    string            `yaml:"heic_converter"`
	ArtifactCacheDir string            `yaml:"artifact_cache_dir"`
	PSM              int               `yaml:"psm"`
	OEM              int               `yaml:"oem"`
	Timeout          time.Duration     `yaml:"timeout"`
	Languages        map[string]string `yaml:"languages"` // model -> tesseract -l value
}

// LanguageConfig controls language identification.
type LanguageConfig struct {
	DisplayLocale  string   `yaml:"display_locale"`
	Languages      []string `yaml:"languages"` // ISO 639-1 codes; empty means all
	LowAccuracy    bool     `yaml:"low_accuracy"`
	MinRelDistance float64  `yaml:"min_relative_distance"`
}

// TranslateConfig selects and configures the translation provider.
type TranslateConfig struct {
	Provider      string        `yaml:"provider"` // "openai" | "gemini" | "libre" | ""
	Timeout       time.Duration `yaml:"timeout"`
	OpenAIKey     string        `yaml:"openai_api_key"`
	OpenAIModel   string        `yaml:"openai_model"`
	OpenAIBaseURL string        `yaml:"openai_base_url"`
	GeminiKey     string        `yaml:"gemini_api_key"`
	GeminiModel   string        `yaml:"gemini_model"`
	LibreURL      string        `yaml:"libre_url"`
	LibreKey      string        `yaml:"libre_api_key"`
}

// StorageConfig holds the optional MinIO image archive settings.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// QueueConfig configures the in-process worker pool and the optional Redis backed queue.
type QueueConfig struct {
	Workers        int           `yaml:"workers"`
	Size           int           `yaml:"size"`
	ProcessTimeout time.Duration `yaml:"process_timeout"`
	RedisURL       string        `yaml:"redis_url"`
	RedisQueue     string        `yaml:"redis_queue"`
	CacheTTL       time.Duration `yaml:"cache_ttl"`
}

// Preferences are the user-facing settings that shape a scan.
type Preferences struct {
	PreferredModel        constants.OCRModel `yaml:"preferred_model"`
	DefaultTargetLanguage string             `yaml:"default_target_language"`
	AutoTranslate         bool               `yaml:"auto_translate"`
}

// WatchConfig enables the folder watcher in the daemon.
type WatchConfig struct {
	Roots    []string      `yaml:"roots"`
	Initial  bool          `yaml:"initial_scan"`
	Debounce time.Duration `yaml:"debounce"`
}

// LoadConfig loads configuration from environment variables, optionally layered
// over the YAML file named by CONFIG_FILE. Environment values win.
func LoadConfig() (*Config, error) {
	cfg := defaultConfig()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "file:phototranslate.db?_pragma=busy_timeout(5000)",
			MaxConns:        20,
			MinConns:        2,
			MaxConnLifetime: 30 * time.Minute,
			MaxConnIdleTime: 5 * time.Minute,
			DialTimeout:     3 * time.Second,
		},
		Server: ServerConfig{
			HTTPAddr:          ":8080",
			GRPCAddr:          ":9090",
			MaxUploadBytes:    20 << 20,
			MaxConcurrentScan: 4,
			RateLimitEvery:    500 * time.Millisecond,
			RateLimitBurst:    10,
			RateLimitIdle:     10 * time.Minute,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      2 * time.Minute,
		},
		OCR: OCRConfig{
			Driver:           "cli",
			Tesseract:        "tesseract",
			HeicConverter:    "magick",
			ArtifactCacheDir: "./tmp",
			Timeout:          45 * time.Second,
		},
		Language: LanguageConfig{
			DisplayLocale: "en",
		},
		Translate: TranslateConfig{
			Timeout:     45 * time.Second,
			OpenAIModel: "gpt-4o-mini",
			GeminiModel: "gemini-1.5-flash",
		},
		Storage: StorageConfig{
			Bucket: "phototranslate",
		},
		Queue: QueueConfig{
			Workers:        4,
			Size:           256,
			ProcessTimeout: 3 * time.Minute,
			RedisQueue:     "scans",
			CacheTTL:       24 * time.Hour,
		},
		Preferences: Preferences{
			PreferredModel:        constants.DefaultOCRModel,
			DefaultTargetLanguage: constants.DefaultTargetLanguage,
		},
		Watch: WatchConfig{
			Debounce: 750 * time.Millisecond,
		},
	}
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return NewAppError("CONFIG_ERROR", "read config file "+path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return NewAppError("CONFIG_ERROR", "parse config file "+path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Database.Driver = getEnv("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = getEnv("DB_URL", c.Database.DSN)
	c.Database.MaxConns = getEnvAsInt32("DB_MAX_CONNS", c.Database.MaxConns)
	c.Database.MinConns = getEnvAsInt32("DB_MIN_CONNS", c.Database.MinConns)
	c.Database.MaxConnLifetime = getEnvAsDuration("DB_MAX_CONN_LIFETIME", c.Database.MaxConnLifetime)
	c.Database.MaxConnIdleTime = getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", c.Database.MaxConnIdleTime)
	c.Database.DialTimeout = getEnvAsDuration("DB_DIAL_TIMEOUT", c.Database.DialTimeout)
	c.Database.StatementTimeout = getEnvAsDuration("DB_STATEMENT_TIMEOUT", c.Database.StatementTimeout)

	c.Server.HTTPAddr = getEnv("HTTP_ADDR", c.Server.HTTPAddr)
	c.Server.GRPCAddr = getEnv("GRPC_ADDR", c.Server.GRPCAddr)
	c.Server.JWTSecret = getEnv("JWT_SECRET", c.Server.JWTSecret)
	c.Server.MaxUploadBytes = getEnvAsInt64("MAX_UPLOAD_BYTES", c.Server.MaxUploadBytes)
	c.Server.MaxConcurrentScan = getEnvAsInt64("MAX_CONCURRENT_SCANS", c.Server.MaxConcurrentScan)
	c.Server.RateLimitEvery = getEnvAsDuration("RATE_LIMIT_EVERY", c.Server.RateLimitEvery)
	c.Server.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", c.Server.RateLimitBurst)
	c.Server.RateLimitIdle = getEnvAsDuration("RATE_LIMIT_IDLE", c.Server.RateLimitIdle)
	c.Server.TrustProxyHeaders = getEnvAsBool("TRUST_PROXY_HEADERS", c.Server.TrustProxyHeaders)

	c.OCR.Driver = getEnv("OCR_DRIVER", c.OCR.Driver)
	c.OCR.Tesseract = getEnv("TESSERACT_BIN", c.OCR.Tesseract)
	c.OCR.TessdataDir = getEnv("TESSDATA_PREFIX", c.OCR.TessdataDir)
	c.OCR.HeicConverter = getEnv("HEIC_CONVERTER", c.OCR.HeicConverter)
	c.OCR.ArtifactCacheDir = getEnv("ARTIFACT_CACHE_DIR", c.OCR.ArtifactCacheDir)
	c.OCR.PSM = getEnvAsInt("TESSERACT_PSM", c.OCR.PSM)
	c.OCR.OEM = getEnvAsInt("TESSERACT_OEM", c.OCR.OEM)
	c.OCR.Timeout = getEnvAsDuration("OCR_TIMEOUT", c.OCR.Timeout)
	for _, m := range constants.AllOCRModels() {
		key := "OCR_LANGS_" + strings.ToUpper(string(m))
		if v := os.Getenv(key); v != "" {
			if c.OCR.Languages == nil {
				c.OCR.Languages = map[string]string{}
			}
			c.OCR.Languages[string(m)] = v
		}
	}

	c.Language.DisplayLocale = getEnv("DISPLAY_LOCALE", c.Language.DisplayLocale)
	c.Language.Languages = getEnvAsList("LANGID_LANGUAGES", c.Language.Languages)
	c.Language.LowAccuracy = getEnvAsBool("LANGID_LOW_ACCURACY", c.Language.LowAccuracy)

	c.Translate.Provider = strings.ToLower(getEnv("TRANSLATE_PROVIDER", c.Translate.Provider))
	c.Translate.Timeout = getEnvAsDuration("TRANSLATE_TIMEOUT", c.Translate.Timeout)
	c.Translate.OpenAIKey = getEnv("OPENAI_API_KEY", c.Translate.OpenAIKey)
	c.Translate.OpenAIModel = getEnv("OPENAI_MODEL", c.Translate.OpenAIModel)
	c.Translate.OpenAIBaseURL = getEnv("OPENAI_BASE_URL", c.Translate.OpenAIBaseURL)
	c.Translate.GeminiKey = getEnv("GEMINI_API_KEY", c.Translate.GeminiKey)
	c.Translate.GeminiModel = getEnv("GEMINI_MODEL", c.Translate.GeminiModel)
	c.Translate.LibreURL = getEnv("LIBRETRANSLATE_URL", c.Translate.LibreURL)
	c.Translate.LibreKey = getEnv("LIBRETRANSLATE_API_KEY", c.Translate.LibreKey)

	c.Storage.Endpoint = getEnv("MINIO_ENDPOINT", c.Storage.Endpoint)
	c.Storage.AccessKey = getEnv("MINIO_ACCESS_KEY", c.Storage.AccessKey)
	c.Storage.SecretKey = getEnv("MINIO_SECRET_KEY", c.Storage.SecretKey)
	c.Storage.Bucket = getEnv("MINIO_BUCKET", c.Storage.Bucket)
	c.Storage.UseSSL = getEnvAsBool("MINIO_USE_SSL", c.Storage.UseSSL)

	c.Queue.Workers = getEnvAsInt("QUEUE_WORKERS", c.Queue.Workers)
	c.Queue.Size = getEnvAsInt("QUEUE_SIZE", c.Queue.Size)
	c.Queue.ProcessTimeout = getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", c.Queue.ProcessTimeout)
	c.Queue.RedisURL = getEnv("REDIS_URL", c.Queue.RedisURL)
	c.Queue.RedisQueue = getEnv("REDIS_QUEUE", c.Queue.RedisQueue)
	c.Queue.CacheTTL = getEnvAsDuration("RESULT_CACHE_TTL", c.Queue.CacheTTL)

	if v := os.Getenv("PREFERRED_OCR_MODEL"); v != "" {
		c.Preferences.PreferredModel = constants.OCRModel(strings.ToLower(strings.TrimSpace(v)))
	}
	c.Preferences.DefaultTargetLanguage = getEnv("DEFAULT_TARGET_LANGUAGE", c.Preferences.DefaultTargetLanguage)
	c.Preferences.AutoTranslate = getEnvAsBool("AUTO_TRANSLATE", c.Preferences.AutoTranslate)

	c.Watch.Roots = getEnvAsList("WATCH_DIRS", c.Watch.Roots)
	c.Watch.Initial = getEnvAsBool("WATCH_INITIAL_SCAN", c.Watch.Initial)
	c.Watch.Debounce = getEnvAsDuration("WATCH_DEBOUNCE", c.Watch.Debounce)
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			return NewAppError("CONFIG_ERROR", "DB_URL is required for postgres", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported DB_DRIVER %q", c.Database.Driver), ErrInvalidInput)
	}
	if !c.Preferences.PreferredModel.Valid() {
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unknown PREFERRED_OCR_MODEL %q", c.Preferences.PreferredModel), ErrInvalidInput)
	}
	switch c.OCR.Driver {
	case "cli", "gosseract":
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported OCR_DRIVER %q", c.OCR.Driver), ErrInvalidInput)
	}
	switch c.Translate.Provider {
	case "":
	case "openai":
		if c.Translate.OpenAIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	case "gemini":
		if c.Translate.GeminiKey == "" {
			return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
		}
	case "libre":
		if c.Translate.LibreURL == "" {
			return NewAppError("CONFIG_ERROR", "LIBRETRANSLATE_URL is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", fmt.Sprintf("unsupported TRANSLATE_PROVIDER %q", c.Translate.Provider), ErrInvalidInput)
	}
	if c.Server.HTTPAddr == "" && c.Server.GRPCAddr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR or GRPC_ADDR is required", ErrInvalidInput)
	}
	return nil
}
