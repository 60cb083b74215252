package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"SpotiFM/logger"
)

const (
	FeedFile      = "feed.json"
	PlaylistsFile = "playlists.json"
)

// Bundle 读取打包在资源目录中的 JSON 清单文件，内容缓存在内存中，
// 由 Watcher 在文件变化时失效
type Bundle struct {
	dir string

	mu    sync.RWMutex
	files map[string][]byte
}

// NewBundle 创建资源目录读取器
func NewBundle(dir string) *Bundle {
	return &Bundle{
		dir:   dir,
		files: make(map[string][]byte),
	}
}

// Dir returns the resource directory.
func (b *Bundle) Dir() string {
	return b.dir
}

// Read 返回资源文件内容；文件不存在时返回空内容
func (b *Bundle) Read(name string) []byte {
	b.mu.RLock()
	data, ok := b.files[name]
	b.mu.RUnlock()
	if ok {
		return data
	}

	data, err := os.ReadFile(filepath.Join(b.dir, filepath.Base(name)))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to read bundled resource", logger.String("name", name), logger.ErrorField(err))
		}
		return []byte{}
	}

	b.mu.Lock()
	b.files[name] = data
	b.mu.Unlock()
	return data
}

// Invalidate drops the cached copy of name.
func (b *Bundle) Invalidate(name string) {
	b.mu.Lock()
	delete(b.files, name)
	b.mu.Unlock()
}

// FindPlaylist 在 playlists.json 中查找第一个 id 匹配的条目，返回其原始字节。
// 没有匹配或文件缺失时返回 nil
func (b *Bundle) FindPlaylist(id string) (json.RawMessage, error) {
	data := b.Read(PlaylistsFile)
	if len(data) == 0 {
		return nil, nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", PlaylistsFile, err)
	}

	for _, entry := range entries {
		var head map[string]json.RawMessage
		if err := json.Unmarshal(entry, &head); err != nil {
			return nil, fmt.Errorf("decode playlist entry: %w", err)
		}
		if rawID(head["id"]) == id {
			return entry, nil
		}
	}
	return nil, nil
}

// rawID renders a JSON id the way it reads in a URL path.
func rawID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if unquoted, err := unquote(s); err == nil {
		return unquoted
	}
	return s
}

func unquote(s string) (string, error) {
	if !strings.HasPrefix(s, `"`) {
		return "", errors.New("not a string")
	}
	var out string
	err := json.Unmarshal([]byte(s), &out)
	return out, err
}
