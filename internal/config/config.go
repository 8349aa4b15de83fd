package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/text/language"
)

// Config 应用配置
type Config struct {
	Env           string
	Port          string
	LogLevel      string
	SessionSecret string
	SessionMaxAge time.Duration
	DatabaseURL   string
	EnvFile       string // 实际加载的 env 文件

	TMDB    TMDBConfig
	NZB     NZBConfig
	SABnzbd SABnzbdConfig
	Storage StorageConfig
}

// TMDBConfig 电影元数据服务配置
type TMDBConfig struct {
	APIKey    string
	BaseURL   string
	Language  string
	Region    string
	RateLimit float64 // 每秒请求数
}

// NZBConfig 版本索引服务配置
type NZBConfig struct {
	BaseURL  string
	Username string
	Password string
}

// SABnzbdConfig 下载队列配置
type SABnzbdConfig struct {
	BaseURL      string
	APIKey       string
	Category     string
	HistoryLimit int
}

// StorageConfig S3 兼容对象存储配置
type StorageConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	URLExpiry time.Duration
}

// Load 加载配置，envFile 存在时先读入（不覆盖已有环境变量），缺少必填项时返回 *ConfigError
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			envFile = ""
		}
	}

	cfg := &Config{
		EnvFile:       envFile,
		Env:           getEnv("APP_ENV", "development"),
		Port:          getEnv("PORT", "3089"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionMaxAge: 30 * 24 * time.Hour,
		DatabaseURL:   databaseURL(),
		TMDB: TMDBConfig{
			APIKey:    os.Getenv("TMDB_API_KEY"),
			BaseURL:   strings.TrimRight(getEnv("TMDB_BASE_URL", "https://api.themoviedb.org/3"), "/"),
			RateLimit: getEnvFloat("TMDB_RATE_LIMIT", 20),
		},
		NZB: NZBConfig{
			BaseURL:  strings.TrimRight(os.Getenv("NZB_API_URL"), "/"),
			Username: os.Getenv("NZB_USERNAME"),
			Password: os.Getenv("NZB_PASSWORD"),
		},
		SABnzbd: SABnzbdConfig{
			BaseURL:      strings.TrimRight(os.Getenv("SABNZBD_API_URL"), "/"),
			APIKey:       os.Getenv("SABNZBD_API_KEY"),
			Category:     getEnv("SABNZBD_CATEGORY", "movies"),
			HistoryLimit: getEnvInt("SABNZBD_HISTORY_LIMIT", 10),
		},
		Storage: StorageConfig{
			Region:    os.Getenv("S3_REGION"),
			Endpoint:  os.Getenv("S3_ENDPOINT"),
			AccessKey: os.Getenv("S3_ACCESS_KEY"),
			SecretKey: os.Getenv("S3_SECRET_KEY"),
			Bucket:    getEnv("S3_BUCKET", "media-storage01"),
			Prefix:    getEnv("S3_PREFIX", "Media/Movies/"),
			URLExpiry: 15 * time.Minute,
		},
	}

	cerr := &ConfigError{EnvFile: envFile}
	required := []struct {
		key   string
		value string
	}{
		{"SESSION_SECRET", cfg.SessionSecret},
		{"TMDB_API_KEY", cfg.TMDB.APIKey},
		{"NZB_API_URL", cfg.NZB.BaseURL},
		{"NZB_USERNAME", cfg.NZB.Username},
		{"NZB_PASSWORD", cfg.NZB.Password},
		{"SABNZBD_API_URL", cfg.SABnzbd.BaseURL},
		{"SABNZBD_API_KEY", cfg.SABnzbd.APIKey},
		{"S3_REGION", cfg.Storage.Region},
		{"S3_ENDPOINT", cfg.Storage.Endpoint},
		{"S3_ACCESS_KEY", cfg.Storage.AccessKey},
		{"S3_SECRET_KEY", cfg.Storage.SecretKey},
	}
	for _, r := range required {
		if r.value == "" {
			cerr.Missing = append(cerr.Missing, r.key)
		}
	}

	lang, region, err := parseLocale(getEnv("TMDB_LOCALE", "de-DE"))
	if err != nil {
		cerr.Errors = append(cerr.Errors, err.Error())
	}
	cfg.TMDB.Language = lang
	cfg.TMDB.Region = region

	if cfg.SABnzbd.HistoryLimit < 1 {
		cerr.Errors = append(cerr.Errors, fmt.Sprintf("SABNZBD_HISTORY_LIMIT: must be positive, got %d", cfg.SABnzbd.HistoryLimit))
	}

	if cerr.HasErrors() {
		return cfg, cerr
	}
	return cfg, nil
}

// IsProduction 是否生产环境
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// databaseURL 优先使用 DATABASE_URL，否则由 DB_* 变量拼接
func databaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "movienest")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)
}

// parseLocale 解析 BCP-47 标签，返回 TMDB 语言参数与地区代码
func parseLocale(raw string) (string, string, error) {
	tag, err := language.Parse(raw)
	if err != nil {
		return "", "", fmt.Errorf("TMDB_LOCALE: invalid language tag %q: %v", raw, err)
	}
	region, conf := tag.Region()
	if conf == language.No {
		return "", "", fmt.Errorf("TMDB_LOCALE: %q has no region", raw)
	}
	base, _ := tag.Base()
	return base.String() + "-" + region.String(), region.String(), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
