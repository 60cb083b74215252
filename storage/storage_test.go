package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestDirSourceOpen(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "intro.mp3"), []byte("ID3fake"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Mkdir(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatal(err)
	}
	src := NewDirSource(root)
	ctx := context.Background()

	rc, info, err := src.Open(ctx, "intro.mp3")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	if string(data) != "ID3fake" {
		t.Errorf("unexpected body %q", data)
	}
	if info.ContentType != "audio/mpeg" || info.Size != 7 {
		t.Errorf("unexpected info %+v", info)
	}

	for _, name := range []string{"missing.mp3", "../secret", "sub", "", "a/../../b"} {
		if _, _, err := src.Open(ctx, name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q): expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestDirSourceAllowsDotsInNames(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "live..set"), 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"live..mp3", "live..set/encore...mp3"} {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte("ID3"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	src := NewDirSource(root)
	ctx := context.Background()

	for _, name := range []string{"live..mp3", "live..set/encore...mp3", "/live..mp3"} {
		rc, _, err := src.Open(ctx, name)
		if err != nil {
			t.Errorf("Open(%q): %v", name, err)
			continue
		}
		rc.Close()
	}
	for _, name := range []string{"..", "../live..mp3", "live..set/../live..mp3", "live..set/.."} {
		if _, _, err := src.Open(ctx, name); !errors.Is(err, ErrNotFound) {
			t.Errorf("Open(%q): expected ErrNotFound, got %v", name, err)
		}
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.mp3":  "audio/mpeg",
		"B.MP3":  "audio/mpeg",
		"c.flac": "audio/flac",
		"d.m4a":  "audio/mp4",
		"e.bin":  "application/octet-stream",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}

type fakeUploader struct {
	names  []string
	bodies map[string]string
}

func (f *fakeUploader) PutSong(_ context.Context, name string, r io.Reader, size int64, meta map[string]string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	f.names = append(f.names, name)
	f.bodies[name] = string(data)
	return nil
}

func TestSyncDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "album1"), 0o755); err != nil {
		t.Fatal(err)
	}
	files := map[string]string{
		"one.mp3":        "not really audio",
		"album1/two.ogg": "also fake",
		"cover.bin":      "skip me",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(root, filepath.FromSlash(name)), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	up := &fakeUploader{bodies: map[string]string{}}
	res, err := SyncDir(context.Background(), up, root)
	if err != nil {
		t.Fatalf("SyncDir: %v", err)
	}
	if res.Uploaded != 2 || res.Skipped != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	sort.Strings(up.names)
	if up.names[0] != "album1/two.ogg" || up.names[1] != "one.mp3" {
		t.Fatalf("unexpected uploads %v", up.names)
	}
	if up.bodies["one.mp3"] != "not really audio" {
		t.Errorf("body not rewound after tag read: %q", up.bodies["one.mp3"])
	}
}
