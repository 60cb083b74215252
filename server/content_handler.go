package server

import (
	"errors"
	"net/http"

	"SpotiFM/cache"
	"SpotiFM/core/content"
	"SpotiFM/logger"

	"github.com/gorilla/mux"
)

// nullBody 未找到播放列表时的响应体
const nullBody = "null"

// ContentHandler 处理 JSON 清单相关的请求
type ContentHandler struct {
	bundle *content.Bundle
	cache  *cache.PlaylistCache
}

// NewContentHandler 创建 ContentHandler，cache 可以为 nil
func NewContentHandler(bundle *content.Bundle, playlistCache *cache.PlaylistCache) *ContentHandler {
	return &ContentHandler{bundle: bundle, cache: playlistCache}
}

// HelloHandler GET /
func (h *ContentHandler) HelloHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("Hello World!"))
}

// FeedHandler GET /feed，原样返回 feed.json
func (h *ContentHandler) FeedHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONBytes(w, h.bundle.Read(content.FeedFile))
}

// PlaylistsHandler GET /playlists，原样返回 playlists.json
func (h *ContentHandler) PlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONBytes(w, h.bundle.Read(content.PlaylistsFile))
}

// PlaylistHandler GET /playlist/{id}
func (h *ContentHandler) PlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx := r.Context()

	if body, err := h.cache.Get(ctx, id); err == nil {
		writeJSONBytes(w, body)
		return
	} else if !errors.Is(err, cache.ErrMiss) {
		logger.Warn("playlist cache read failed", logger.String("id", id), logger.ErrorField(err))
	}

	entry, err := h.bundle.FindPlaylist(id)
	if err != nil {
		logger.Error("failed to look up playlist", logger.String("id", id), logger.ErrorField(err))
		http.Error(w, "failed to read playlists", http.StatusInternalServerError)
		return
	}
	if entry == nil {
		writeJSONBytes(w, []byte(nullBody))
		return
	}

	if err := h.cache.Set(ctx, id, entry); err != nil {
		logger.Warn("playlist cache write failed", logger.String("id", id), logger.ErrorField(err))
	}
	writeJSONBytes(w, entry)
}

func writeJSONBytes(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Warn("failed to write response", logger.ErrorField(err))
	}
}
