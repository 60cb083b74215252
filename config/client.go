package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// ClientConfig 客户端配置，从 TOML 文件读取
type ClientConfig struct {
	BaseURL       string `toml:"base_url"`
	TimeoutMS     int    `toml:"timeout_ms"`
	FavoritesPath string `toml:"favorites_path"`
	// FavoritesDriver 为 sqlite 或 mysql；mysql 时使用 FavoritesDSN
	FavoritesDriver string `toml:"favorites_driver"`
	FavoritesDSN    string `toml:"favorites_dsn"`
	MPVPath         string `toml:"mpv_path"`
	IPCPath         string `toml:"ipc_path"`
	PollIntervalMS  int    `toml:"poll_interval_ms"`
}

// DefaultClientConfig returns the settings used when no file is present.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:         "http://localhost:8080/",
		TimeoutMS:       10000,
		FavoritesPath:   "spotify_db.sqlite",
		FavoritesDriver: "sqlite",
		MPVPath:         "mpv",
		PollIntervalMS:  1000,
	}
}

// LoadClient reads a TOML client config. A missing file is not an error;
// zero-valued keys keep their defaults.
func LoadClient(path string) (ClientConfig, error) {
	cfg := DefaultClientConfig()
	if path == "" {
		cfg.applyEnv()
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg.applyEnv()
			return cfg, nil
		}
		return cfg, fmt.Errorf("read client config: %w", err)
	}

	var file ClientConfig
	if err := toml.Unmarshal(data, &file); err != nil {
		return cfg, fmt.Errorf("decode client config: %w", err)
	}
	if file.BaseURL != "" {
		cfg.BaseURL = file.BaseURL
	}
	if file.TimeoutMS > 0 {
		cfg.TimeoutMS = file.TimeoutMS
	}
	if file.FavoritesPath != "" {
		cfg.FavoritesPath = file.FavoritesPath
	}
	if file.FavoritesDriver != "" {
		cfg.FavoritesDriver = file.FavoritesDriver
	}
	if file.FavoritesDSN != "" {
		cfg.FavoritesDSN = file.FavoritesDSN
	}
	if file.MPVPath != "" {
		cfg.MPVPath = file.MPVPath
	}
	if file.IPCPath != "" {
		cfg.IPCPath = file.IPCPath
	}
	if file.PollIntervalMS > 0 {
		cfg.PollIntervalMS = file.PollIntervalMS
	}
	cfg.applyEnv()
	return cfg, nil
}

// applyEnv 环境变量 FAVORITES_DRIVER / FAVORITES_DSN 覆盖文件中的收藏库设置
func (c *ClientConfig) applyEnv() {
	c.FavoritesDriver = getEnv("FAVORITES_DRIVER", c.FavoritesDriver)
	c.FavoritesDSN = getEnv("FAVORITES_DSN", c.FavoritesDSN)
}

// FavoritesDatabase returns the driver and DSN for the favorites store.
// sqlite falls back to FavoritesPath when no DSN is set.
func (c ClientConfig) FavoritesDatabase() (driver, dsn string) {
	driver = c.FavoritesDriver
	if driver == "" {
		driver = "sqlite"
	}
	dsn = c.FavoritesDSN
	if dsn == "" && driver == "sqlite" {
		dsn = c.FavoritesPath
	}
	return driver, dsn
}

// Timeout returns the HTTP timeout as a duration.
func (c ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// PollInterval returns the player polling interval as a duration.
func (c ClientConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
