package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"SpotiFM/config"
	"SpotiFM/logger"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// SongsPrefix 歌曲在存储桶中的前缀
const SongsPrefix = "songs/"

// ObjectInfo 文件信息
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// MinioSource 封装了 MinIO 客户端，从存储桶提供歌曲
type MinioSource struct {
	client     *minio.Client
	bucketName string
}

// NewMinioSource 根据配置创建 MinIO 客户端并确保存储桶存在
func NewMinioSource(ctx context.Context, cfg *config.Config) (*MinioSource, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
		Region: cfg.MinioRegion,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 MinIO 客户端失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("检查存储桶失败: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{Region: cfg.MinioRegion}); err != nil {
			return nil, fmt.Errorf("创建存储桶失败: %w", err)
		}
		logger.Info("created minio bucket", logger.String("bucket", cfg.MinioBucket))
	}

	return &MinioSource{client: client, bucketName: cfg.MinioBucket}, nil
}

// Bucket returns the bucket name.
func (m *MinioSource) Bucket() string {
	return m.bucketName
}

// Open implements SongSource.
func (m *MinioSource) Open(ctx context.Context, name string) (io.ReadCloser, SongInfo, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return nil, SongInfo{}, err
	}
	key := SongsPrefix + cleaned

	st, err := m.client.StatObject(ctx, m.bucketName, key, minio.StatObjectOptions{})
	if err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, SongInfo{}, ErrNotFound
		}
		return nil, SongInfo{}, fmt.Errorf("stat object %s: %w", key, err)
	}

	object, err := m.client.GetObject(ctx, m.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, SongInfo{}, fmt.Errorf("get object %s: %w", key, err)
	}

	contentType := st.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeFor(cleaned)
	}
	return object, SongInfo{
		Name:        cleaned,
		Size:        st.Size,
		ModTime:     st.LastModified,
		ContentType: contentType,
	}, nil
}

// ListSongs 列出存储桶中 songs/ 前缀下的所有对象
func (m *MinioSource) ListSongs(ctx context.Context) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{
		Prefix:    SongsPrefix,
		Recursive: true,
	}) {
		if object.Err != nil {
			return nil, fmt.Errorf("列出对象时出错: %w", object.Err)
		}
		objects = append(objects, ObjectInfo{
			Key:          object.Key,
			Size:         object.Size,
			LastModified: object.LastModified,
			ContentType:  object.ContentType,
		})
	}
	return objects, nil
}

// PutSong 上传一首歌到 songs/ 前缀下
func (m *MinioSource) PutSong(ctx context.Context, name string, r io.Reader, size int64, meta map[string]string) error {
	cleaned, err := cleanName(name)
	if err != nil {
		return fmt.Errorf("invalid song name %q", name)
	}
	_, err = m.client.PutObject(ctx, m.bucketName, SongsPrefix+cleaned, r, size, minio.PutObjectOptions{
		ContentType:  ContentTypeFor(cleaned),
		UserMetadata: meta,
	})
	if err != nil {
		return fmt.Errorf("上传文件失败 %s: %w", cleaned, err)
	}
	return nil
}
