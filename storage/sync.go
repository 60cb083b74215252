package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"SpotiFM/logger"

	"github.com/dhowden/tag"
)

// SongUploader 接收本地歌曲文件
type SongUploader interface {
	PutSong(ctx context.Context, name string, r io.Reader, size int64, meta map[string]string) error
}

// SyncResult 同步统计
type SyncResult struct {
	Uploaded int
	Skipped  int
}

// SyncDir 把本地歌曲目录上传到存储桶，歌曲标签写入对象元数据
func SyncDir(ctx context.Context, dst SongUploader, root string) (SyncResult, error) {
	var res SyncResult
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if ContentTypeFor(p) == "application/octet-stream" {
			res.Skipped++
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if err := uploadOne(ctx, dst, p, filepath.ToSlash(rel)); err != nil {
			return err
		}
		res.Uploaded++
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("sync %s: %w", root, err)
	}
	return res, nil
}

func uploadOne(ctx context.Context, dst SongUploader, p, name string) error {
	f, err := os.Open(p)
	if err != nil {
		return err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	meta := readTagMeta(f)
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return err
	}

	logger.Info("uploading song", logger.String("name", name), logger.Int64("size", st.Size()))
	return dst.PutSong(ctx, name, f, st.Size(), meta)
}

// readTagMeta 读取 ID3/MP4/FLAC 标签；没有标签时返回空 map
func readTagMeta(r io.ReadSeeker) map[string]string {
	meta := map[string]string{}
	m, err := tag.ReadFrom(r)
	if err != nil {
		return meta
	}
	for k, v := range map[string]string{
		"title":  m.Title(),
		"artist": m.Artist(),
		"album":  m.Album(),
	} {
		if v = strings.TrimSpace(v); v != "" {
			meta[k] = v
		}
	}
	return meta
}
