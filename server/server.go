package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SpotiFM/cache"
	"SpotiFM/config"
	"SpotiFM/core/content"
	"SpotiFM/logger"
	"SpotiFM/storage"

	"github.com/gorilla/mux"
)

// Deps 路由需要的组件。Cache 和 Watcher 可以为 nil
type Deps struct {
	Bundle  *content.Bundle
	Watcher *content.Watcher
	Cache   *cache.PlaylistCache
	Songs   storage.SongSource
}

// readMethods 每个路由都接受 OPTIONS，预检请求由 corsMiddleware 应答
var readMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}

// NewRouter 注册所有路由
func NewRouter(deps Deps) *mux.Router {
	contentHandler := NewContentHandler(deps.Bundle, deps.Cache)

	router := mux.NewRouter()
	router.Use(accessLogMiddleware)
	router.Use(corsMiddleware)

	router.HandleFunc("/", contentHandler.HelloHandler).Methods(readMethods...)
	router.HandleFunc("/feed", contentHandler.FeedHandler).Methods(readMethods...)
	router.HandleFunc("/playlists", contentHandler.PlaylistsHandler).Methods(readMethods...)
	router.HandleFunc("/playlist/{id}", contentHandler.PlaylistHandler).Methods(readMethods...)
	router.PathPrefix("/songs/").Handler(NewSongHandler(deps.Songs)).Methods(readMethods...)
	router.Handle("/ws/content", NewContentWSHandler(deps.Watcher)).Methods(http.MethodGet, http.MethodOptions)
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	}).Methods(readMethods...)

	return router
}

// Start initializes the dependencies and serves until SIGINT/SIGTERM.
func Start(cfg *config.Config) error {
	ctx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	bundle := content.NewBundle(cfg.ResourceDir)

	// Redis 只是 /playlist/{id} 的缓存，连接失败时降级为直接读文件
	var playlistCache *cache.PlaylistCache
	if cfg.RedisEnabled {
		if err := cache.ConnectRedis(cfg); err != nil {
			logger.Warn("Redis unavailable, playlist cache disabled", logger.ErrorField(err))
		} else {
			defer cache.CloseRedis()
			playlistCache = cache.NewPlaylistCache(cache.RedisClient, cfg.PlaylistCacheTTL)
			if err := playlistCache.Flush(ctx); err != nil {
				logger.Warn("failed to flush stale playlist cache", logger.ErrorField(err))
			}
		}
	}

	var songs storage.SongSource = storage.NewDirSource(cfg.SongsDir)
	if cfg.MinioEnabled() {
		src, err := storage.NewMinioSource(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize MinIO: %w", err)
		}
		songs = src
		logger.Info("serving songs from MinIO", logger.String("bucket", src.Bucket()))
	} else {
		logger.Info("serving songs from disk", logger.String("dir", cfg.SongsDir))
	}

	watcher, err := content.NewWatcher(bundle)
	if err != nil {
		logger.Warn("resource watcher disabled", logger.ErrorField(err))
		watcher = nil
	} else {
		go watcher.Run(ctx)
		go flushOnChange(ctx, watcher, playlistCache)
	}

	server := &http.Server{
		Addr: cfg.ServerAddr,
		Handler: NewRouter(Deps{
			Bundle:  bundle,
			Watcher: watcher,
			Cache:   playlistCache,
			Songs:   songs,
		}),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // 歌曲流可能很长
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting", logger.String("addr", cfg.ServerAddr), logger.String("resources", cfg.ResourceDir))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// flushOnChange 在 playlists.json 改变时清空播放列表缓存
func flushOnChange(ctx context.Context, watcher *content.Watcher, playlistCache *cache.PlaylistCache) {
	if !playlistCache.Enabled() {
		return
	}
	changes, cancel := watcher.Subscribe()
	defer cancel()
	for change := range changes {
		if change.Resource != content.PlaylistsFile {
			continue
		}
		if err := playlistCache.Flush(ctx); err != nil {
			logger.Warn("failed to flush playlist cache", logger.ErrorField(err))
		}
	}
}
