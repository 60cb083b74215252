package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"SpotiFM/cache"
	"SpotiFM/core/content"
	"SpotiFM/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

const (
	testFeed      = "[{\"section_title\":\"Top\",\"albums\":[{\"id\":1, \"album\":\"Dreams\"}]}]\n"
	testPlaylists = `[
  {"id": 1, "songs": [{"name": "Intro", "lyric": "", "src": "songs/intro.mp3", "length": "1:02"}]},
  {"id": 2, "songs": []},
  {"id": 2, "songs": [{"name": "dup"}]}
]`
)

func newTestResources(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func newTestServer(t *testing.T, dir string, watcher *content.Watcher, bundle *content.Bundle) *httptest.Server {
	t.Helper()
	if bundle == nil {
		bundle = content.NewBundle(dir)
	}
	srv := httptest.NewServer(NewRouter(Deps{
		Bundle:  bundle,
		Watcher: watcher,
		Songs:   storage.NewDirSource(filepath.Join(dir, "static", "songs")),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, string(body)
}

func TestContentRoutes(t *testing.T) {
	dir := newTestResources(t, map[string]string{
		content.FeedFile:      testFeed,
		content.PlaylistsFile: testPlaylists,
	})
	srv := newTestServer(t, dir, nil, nil)

	tests := []struct {
		path        string
		wantStatus  int
		wantBody    string
		contentType string
	}{
		{"/", http.StatusOK, "Hello World!", "text/plain"},
		{"/feed", http.StatusOK, testFeed, "application/json"},
		{"/playlists", http.StatusOK, testPlaylists, "application/json"},
		{"/playlist/1", http.StatusOK, `{"id": 1, "songs": [{"name": "Intro", "lyric": "", "src": "songs/intro.mp3", "length": "1:02"}]}`, "application/json"},
		{"/playlist/2", http.StatusOK, `{"id": 2, "songs": []}`, "application/json"},
		{"/playlist/99", http.StatusOK, "null", "application/json"},
		{"/playlist/abc", http.StatusOK, "null", "application/json"},
		{"/healthz", http.StatusOK, "ok", "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, body := get(t, srv.URL+tt.path)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, tt.contentType) {
				t.Errorf("Content-Type = %q, want %q", ct, tt.contentType)
			}
			if resp.Header.Get(requestIDHeader) == "" {
				t.Error("missing request id header")
			}
			if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
				t.Error("missing CORS header")
			}
		})
	}
}

func TestPreflightRequests(t *testing.T) {
	dir := newTestResources(t, map[string]string{
		content.FeedFile:         testFeed,
		"static/songs/intro.mp3": "ID3",
	})
	srv := newTestServer(t, dir, nil, nil)

	for _, path := range []string{"/", "/feed", "/playlists", "/playlist/1", "/songs/intro.mp3", "/ws/content", "/healthz"} {
		t.Run(path, func(t *testing.T) {
			req, _ := http.NewRequest(http.MethodOptions, srv.URL+path, nil)
			req.Header.Set("Origin", "http://example.com")
			req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status = %d, want 200", resp.StatusCode)
			}
			if len(body) != 0 {
				t.Errorf("preflight body = %q, want empty", body)
			}
			if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, OPTIONS, HEAD" {
				t.Errorf("Access-Control-Allow-Methods = %q", got)
			}
			if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
				t.Error("missing CORS origin header")
			}
		})
	}

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/feed", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /feed status = %d, want 405", resp.StatusCode)
	}
}

func TestMissingResources(t *testing.T) {
	srv := newTestServer(t, t.TempDir(), nil, nil)

	for _, path := range []string{"/feed", "/playlists"} {
		resp, body := get(t, srv.URL+path)
		if resp.StatusCode != http.StatusOK || body != "" {
			t.Errorf("%s: status %d body %q, want 200 with empty body", path, resp.StatusCode, body)
		}
	}
	resp, body := get(t, srv.URL+"/playlist/1")
	if resp.StatusCode != http.StatusOK || body != "null" {
		t.Errorf("/playlist/1: status %d body %q, want null", resp.StatusCode, body)
	}
}

func TestInvalidPlaylists(t *testing.T) {
	dir := newTestResources(t, map[string]string{content.PlaylistsFile: "{not json"})
	srv := newTestServer(t, dir, nil, nil)

	resp, _ := get(t, srv.URL+"/playlist/1")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
}

func TestSongs(t *testing.T) {
	dir := newTestResources(t, map[string]string{
		"static/songs/intro.mp3": "ID3fake-audio",
		"static/songs/live..mp3": "ID3live",
		"secret.txt":             "nope",
	})
	srv := newTestServer(t, dir, nil, nil)

	resp, body := get(t, srv.URL+"/songs/intro.mp3")
	if resp.StatusCode != http.StatusOK || body != "ID3fake-audio" {
		t.Fatalf("status %d body %q", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/mpeg" {
		t.Errorf("Content-Type = %q", ct)
	}

	if resp, body := get(t, srv.URL+"/songs/live..mp3"); resp.StatusCode != http.StatusOK || body != "ID3live" {
		t.Errorf("live..mp3: status %d body %q", resp.StatusCode, body)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/songs/intro.mp3", nil)
	req.Header.Set("Range", "bytes=0-2")
	rangeResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	partial, _ := io.ReadAll(rangeResp.Body)
	rangeResp.Body.Close()
	if rangeResp.StatusCode != http.StatusPartialContent || string(partial) != "ID3" {
		t.Errorf("range: status %d body %q", rangeResp.StatusCode, partial)
	}

	for _, path := range []string{"/songs/missing.mp3", "/songs/..%2Fsecret.txt"} {
		resp, _ := get(t, srv.URL+path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: status %d, want 404", path, resp.StatusCode)
		}
	}
}

func TestContentWebsocketDisabled(t *testing.T) {
	srv := newTestServer(t, t.TempDir(), nil, nil)
	resp, _ := get(t, srv.URL+"/ws/content")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", resp.StatusCode)
	}
}

func TestContentWebsocketPushesChanges(t *testing.T) {
	dir := newTestResources(t, map[string]string{content.FeedFile: "[]"})
	bundle := content.NewBundle(dir)
	watcher, err := content.NewWatcher(bundle)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)

	srv := newTestServer(t, dir, watcher, bundle)
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/content"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// 订阅在升级之后才注册，重复写入直到收到通知
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				os.WriteFile(filepath.Join(dir, content.FeedFile), []byte(`[{"section_title":"new"}]`), 0o644)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var change content.Change
	if err := conn.ReadJSON(&change); err != nil {
		t.Fatalf("read change: %v", err)
	}
	if change.Resource != content.FeedFile || change.Event != "changed" {
		t.Errorf("unexpected change %+v", change)
	}
}

func newTestCache(t *testing.T) (*cache.PlaylistCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewPlaylistCache(client, time.Minute), mr
}

func TestCachedPlaylistIsByteIdentical(t *testing.T) {
	dir := newTestResources(t, map[string]string{content.PlaylistsFile: testPlaylists})
	playlistCache, mr := newTestCache(t)
	srv := httptest.NewServer(NewRouter(Deps{
		Bundle: content.NewBundle(dir),
		Cache:  playlistCache,
		Songs:  storage.NewDirSource(dir),
	}))
	defer srv.Close()

	want := `{"id": 1, "songs": [{"name": "Intro", "lyric": "", "src": "songs/intro.mp3", "length": "1:02"}]}`
	_, first := get(t, srv.URL+"/playlist/1")
	if first != want {
		t.Fatalf("first body = %q, want %q", first, want)
	}
	if stored, err := mr.Get(cache.GetPlaylistKey("1")); err != nil || stored != want {
		t.Fatalf("cached value = %q, %v", stored, err)
	}

	resp, second := get(t, srv.URL+"/playlist/1")
	if second != first {
		t.Errorf("cached body = %q, want %q", second, first)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}

	// 未匹配的结果不写缓存
	if _, body := get(t, srv.URL+"/playlist/99"); body != "null" {
		t.Errorf("unmatched body = %q", body)
	}
	if mr.Exists(cache.GetPlaylistKey("99")) {
		t.Error("null result should not be cached")
	}
}

func TestPlaylistCacheFlushedWhenPlaylistsChange(t *testing.T) {
	dir := newTestResources(t, map[string]string{content.PlaylistsFile: testPlaylists})
	bundle := content.NewBundle(dir)
	watcher, err := content.NewWatcher(bundle)
	if err != nil {
		t.Fatal(err)
	}
	playlistCache, mr := newTestCache(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go watcher.Run(ctx)
	go flushOnChange(ctx, watcher, playlistCache)

	srv := httptest.NewServer(NewRouter(Deps{
		Bundle:  bundle,
		Watcher: watcher,
		Cache:   playlistCache,
		Songs:   storage.NewDirSource(dir),
	}))
	defer srv.Close()

	get(t, srv.URL+"/playlist/1")
	key := cache.GetPlaylistKey("1")
	if !mr.Exists(key) {
		t.Fatalf("%s should be cached after the first request", key)
	}

	updated := `[{"id": 1, "songs": [{"name": "Remastered"}]}]`
	deadline := time.Now().Add(5 * time.Second)
	for mr.Exists(key) {
		if time.Now().After(deadline) {
			t.Fatalf("%s was not flushed after %s changed", key, content.PlaylistsFile)
		}
		// 订阅在 goroutine 中注册，重复写入直到收到通知
		if err := os.WriteFile(filepath.Join(dir, content.PlaylistsFile), []byte(updated), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(50 * time.Millisecond)
	}

	if _, body := get(t, srv.URL+"/playlist/1"); body != `{"id": 1, "songs": [{"name": "Remastered"}]}` {
		t.Errorf("body after change = %q", body)
	}
}
