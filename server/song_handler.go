package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"SpotiFM/logger"
	"SpotiFM/storage"
)

// SongHandler 提供 /songs/* 下的音频文件
type SongHandler struct {
	source storage.SongSource
}

// NewSongHandler 创建 SongHandler
func NewSongHandler(source storage.SongSource) *SongHandler {
	return &SongHandler{source: source}
}

// ServeHTTP 实现 http.Handler 接口
func (h *SongHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/songs/")

	body, info, err := h.source.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		logger.Error("failed to open song", logger.String("name", name), logger.ErrorField(err))
		http.Error(w, "failed to open song", http.StatusInternalServerError)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", info.ContentType)
	w.Header().Set("Cache-Control", "public, max-age=86400")

	// 本地文件和 MinIO 对象都支持 Seek，用 ServeContent 处理 Range 请求
	if rs, ok := body.(io.ReadSeeker); ok {
		http.ServeContent(w, r, info.Name, info.ModTime, rs)
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	if _, err := io.Copy(w, body); err != nil {
		logger.Warn("error streaming song", logger.String("name", name), logger.ErrorField(err))
	}
}
