package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// ErrNotFound 歌曲文件不存在
var ErrNotFound = errors.New("song not found")

// SongInfo 描述一个音频文件
type SongInfo struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// SongSource 提供 /songs/* 下的音频文件
type SongSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, SongInfo, error)
}

// cleanName 规范化请求路径，拒绝包含 ".." 路径段的请求
func cleanName(name string) (string, error) {
	name = strings.TrimPrefix(name, "/")
	if name == "" || strings.Contains(name, "\\") {
		return "", ErrNotFound
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == ".." {
			return "", ErrNotFound
		}
	}
	cleaned := path.Clean(name)
	if cleaned == "." || strings.HasPrefix(cleaned, "/") {
		return "", ErrNotFound
	}
	return cleaned, nil
}

// ContentTypeFor 根据扩展名推断音频类型
func ContentTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".mp3":
		return "audio/mpeg"
	case ".m4a", ".aac":
		return "audio/mp4"
	case ".flac":
		return "audio/flac"
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// DirSource 从本地目录读取歌曲
type DirSource struct {
	root string
}

// NewDirSource 创建本地目录歌曲源
func NewDirSource(root string) *DirSource {
	return &DirSource{root: root}
}

// Open implements SongSource.
func (s *DirSource) Open(_ context.Context, name string) (io.ReadCloser, SongInfo, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return nil, SongInfo{}, err
	}

	f, err := os.Open(filepath.Join(s.root, filepath.FromSlash(cleaned)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, SongInfo{}, ErrNotFound
		}
		return nil, SongInfo{}, fmt.Errorf("open song %s: %w", cleaned, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, SongInfo{}, fmt.Errorf("stat song %s: %w", cleaned, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, SongInfo{}, ErrNotFound
	}

	return f, SongInfo{
		Name:        cleaned,
		Size:        st.Size(),
		ModTime:     st.ModTime(),
		ContentType: ContentTypeFor(cleaned),
	}, nil
}
