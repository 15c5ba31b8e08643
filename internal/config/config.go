package config

import (
	"os"
	"strconv"
	"time"
)

// Config hotelhub-linencount（HTTP API）配置
type Config struct {
	HTTP struct {
		Addr string
	}
	DBEnabled bool
	Database  DatabaseConfig
	Redis     struct {
		Addr     string
		Password string
		DB       int
	}
	Log struct {
		Level  string
		Format string
	}
	Hub      HubConfig
	Presence PresenceConfig
}

// DatabaseConfig PostgreSQL 连接配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 构建 lib/pq DSN
func (c *DatabaseConfig) GetDSN() string {
	return "host=" + c.Host +
		" port=" + strconv.Itoa(c.Port) +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Database +
		" sslmode=" + c.SSLMode
}

// HubConfig 宿主 Hotel Hub 应用配置（位置/房间目录与权限委托）
type HubConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// PresenceConfig 活跃用户集合配置
type PresenceConfig struct {
	// StaleAfter: entries older than this are pruned from poll responses.
	StaleAfter time.Duration
	// KeyTTL: redis key expiry, slightly longer than StaleAfter so the set
	// survives gaps between polls but not a dead location/date.
	KeyTTL time.Duration
}

func Load() *Config {
	cfg := &Config{}
	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	// Default to true for local dev; with DB disabled the service runs on
	// in-memory repositories (data is lost on restart).
	cfg.DBEnabled = getEnv("DB_ENABLED", "true") == "true"
	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = parseInt(getEnv("DB_PORT", "5432"), 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "hotelhub")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = parseInt(getEnv("DB_MAX_CONNS", "10"), 10)
	cfg.Database.MaxIdle = parseInt(getEnv("DB_MAX_IDLE", "5"), 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	cfg.Hub.BaseURL = getEnv("HUB_BASE_URL", "http://localhost:8090")
	cfg.Hub.APIKey = getEnv("HUB_API_KEY", "")
	cfg.Hub.Timeout = parseDuration(getEnv("HUB_TIMEOUT", "10s"), 10*time.Second)

	cfg.Presence.StaleAfter = parseDuration(getEnv("PRESENCE_STALE_AFTER", "2m"), 2*time.Minute)
	cfg.Presence.KeyTTL = parseDuration(getEnv("PRESENCE_KEY_TTL", "5m"), 5*time.Minute)

	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
