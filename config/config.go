package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the server-side configuration.
type Config struct {
	ServerAddr  string
	ResourceDir string // feed.json / playlists.json 所在目录
	SongsDir    string // 静态音频文件目录

	// Redis配置
	RedisEnabled     bool
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	PlaylistCacheTTL time.Duration

	// MinIO配置，Endpoint 为空时歌曲直接从 SongsDir 读取
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	LogLevel string
	LogFile  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}

	resourceDir := getEnv("RESOURCE_DIR", "resources")

	return &Config{
		ServerAddr:  getEnv("SERVER_ADDR", ":8080"),
		ResourceDir: resourceDir,
		SongsDir:    getEnv("SONGS_DIR", filepath.Join(resourceDir, "static", "songs")),

		RedisEnabled:     getEnvBool("REDIS_ENABLED", false),
		RedisHost:        getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:        getEnv("REDIS_PORT", "6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:          getEnvInt("REDIS_DB", 0),
		PlaylistCacheTTL: getEnvDuration("PLAYLIST_CACHE_TTL", 10*time.Minute),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "spotifm"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}
}

// MinioEnabled reports whether songs should be served from MinIO.
func (c *Config) MinioEnabled() bool {
	return c.MinioEndpoint != ""
}
