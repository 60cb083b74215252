package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("RESOURCE_DIR", "res")
	t.Setenv("PLAYLIST_CACHE_TTL", "30s")
	t.Setenv("REDIS_ENABLED", "true")

	cfg := Load()
	if cfg.ResourceDir != "res" {
		t.Errorf("expected resource dir res, got %q", cfg.ResourceDir)
	}
	if cfg.SongsDir != filepath.Join("res", "static", "songs") {
		t.Errorf("unexpected songs dir %q", cfg.SongsDir)
	}
	if cfg.PlaylistCacheTTL != 30*time.Second {
		t.Errorf("expected 30s ttl, got %v", cfg.PlaylistCacheTTL)
	}
	if !cfg.RedisEnabled {
		t.Error("expected redis enabled")
	}
	if cfg.MinioEnabled() {
		t.Error("minio should be disabled without endpoint")
	}
}

func TestLoadClient(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		want    ClientConfig
		wantErr bool
	}{
		{
			name: "missing file keeps defaults",
			want: DefaultClientConfig(),
		},
		{
			name:    "overrides",
			content: "base_url = \"http://10.0.2.2:8080/\"\npoll_interval_ms = 250\n",
			want: func() ClientConfig {
				c := DefaultClientConfig()
				c.BaseURL = "http://10.0.2.2:8080/"
				c.PollIntervalMS = 250
				return c
			}(),
		},
		{
			name:    "invalid toml",
			content: "base_url = ",
			wantErr: true,
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "missing.toml")
			if tt.content != "" {
				path = filepath.Join(dir, "client"+string(rune('a'+i))+".toml")
				if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
					t.Fatal(err)
				}
			}
			got, err := LoadClient(path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("LoadClient() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got != tt.want {
				t.Errorf("LoadClient() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestClientFavoritesDatabase(t *testing.T) {
	tests := []struct {
		name       string
		cfg        ClientConfig
		wantDriver string
		wantDSN    string
	}{
		{"defaults use sqlite path", DefaultClientConfig(), "sqlite", "spotify_db.sqlite"},
		{"empty driver means sqlite", ClientConfig{FavoritesPath: "fav.db"}, "sqlite", "fav.db"},
		{"sqlite dsn wins", ClientConfig{FavoritesDriver: "sqlite", FavoritesPath: "fav.db", FavoritesDSN: "other.db"}, "sqlite", "other.db"},
		{"mysql uses dsn", ClientConfig{FavoritesDriver: "mysql", FavoritesPath: "fav.db", FavoritesDSN: "u:p@tcp(db:3306)/spotifm"}, "mysql", "u:p@tcp(db:3306)/spotifm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn := tt.cfg.FavoritesDatabase()
			if driver != tt.wantDriver || dsn != tt.wantDSN {
				t.Errorf("FavoritesDatabase() = (%q, %q), want (%q, %q)", driver, dsn, tt.wantDriver, tt.wantDSN)
			}
		})
	}
}

func TestLoadClientFavoritesDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "client.toml")
	content := "favorites_driver = \"mysql\"\nfavorites_dsn = \"u:p@tcp(file:3306)/spotifm\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadClient(path)
	if err != nil {
		t.Fatal(err)
	}
	if driver, dsn := cfg.FavoritesDatabase(); driver != "mysql" || dsn != "u:p@tcp(file:3306)/spotifm" {
		t.Errorf("from file: got (%q, %q)", driver, dsn)
	}

	t.Setenv("FAVORITES_DRIVER", "mysql")
	t.Setenv("FAVORITES_DSN", "u:p@tcp(env:3306)/spotifm")
	cfg, err = LoadClient(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if driver, dsn := cfg.FavoritesDatabase(); driver != "mysql" || dsn != "u:p@tcp(env:3306)/spotifm" {
		t.Errorf("from env: got (%q, %q)", driver, dsn)
	}
}
