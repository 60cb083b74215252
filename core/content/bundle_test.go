package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testPlaylists = `[
  {"id": 1, "songs": [{"name": "Intro", "lyric": "", "src": "songs/intro.mp3", "length": "1:02"}]},
  {"id":2,"songs":[]},
  {"id": 2, "songs": [{"name": "dup"}]},
  {"id": "7", "songs": []}
]`

func writeResource(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestReadMissingResource(t *testing.T) {
	b := NewBundle(t.TempDir())
	data := b.Read(FeedFile)
	if data == nil || len(data) != 0 {
		t.Fatalf("expected empty non-nil body, got %q", data)
	}
}

func TestReadReturnsBytesVerbatim(t *testing.T) {
	dir := t.TempDir()
	feed := "[ {\"section_title\": \"Top\",  \"albums\": [] } ]\n"
	writeResource(t, dir, FeedFile, feed)

	b := NewBundle(dir)
	if got := string(b.Read(FeedFile)); got != feed {
		t.Fatalf("expected %q, got %q", feed, got)
	}
}

func TestFindPlaylist(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, PlaylistsFile, testPlaylists)
	b := NewBundle(dir)

	tests := []struct {
		id   string
		want string
	}{
		{"1", `{"id": 1, "songs": [{"name": "Intro", "lyric": "", "src": "songs/intro.mp3", "length": "1:02"}]}`},
		{"2", `{"id":2,"songs":[]}`},
		{"7", `{"id": "7", "songs": []}`},
		{"3", ""},
		{"01", ""},
	}
	for _, tt := range tests {
		got, err := b.FindPlaylist(tt.id)
		if err != nil {
			t.Fatalf("FindPlaylist(%s): %v", tt.id, err)
		}
		if string(got) != tt.want {
			t.Errorf("FindPlaylist(%s) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestFindPlaylistMissingFile(t *testing.T) {
	b := NewBundle(t.TempDir())
	got, err := b.FindPlaylist("1")
	if err != nil || got != nil {
		t.Fatalf("expected nil, nil; got %q, %v", got, err)
	}
}

func TestFindPlaylistInvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, PlaylistsFile, `{"not": "a list"}`)
	if _, err := NewBundle(dir).FindPlaylist("1"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestInvalidate(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, FeedFile, "old")
	b := NewBundle(dir)
	_ = b.Read(FeedFile)

	writeResource(t, dir, FeedFile, "new")
	if got := string(b.Read(FeedFile)); got != "old" {
		t.Fatalf("expected cached value, got %q", got)
	}
	b.Invalidate(FeedFile)
	if got := string(b.Read(FeedFile)); got != "new" {
		t.Fatalf("expected refreshed value, got %q", got)
	}
}

func TestWatcherInvalidatesAndNotifies(t *testing.T) {
	dir := t.TempDir()
	writeResource(t, dir, FeedFile, "old")
	b := NewBundle(dir)
	_ = b.Read(FeedFile)

	w, err := NewWatcher(b)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, unsubscribe := w.Subscribe()
	defer unsubscribe()
	go w.Run(ctx)

	writeResource(t, dir, FeedFile, "new")

	timeout := time.After(3 * time.Second)
	for {
		select {
		case c := <-changes:
			if c.Resource != FeedFile {
				continue
			}
			// truncate and write may arrive as separate events
			if string(b.Read(FeedFile)) == "new" {
				return
			}
		case <-timeout:
			t.Fatal("timeout waiting for change notification")
		}
	}
}
