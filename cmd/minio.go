package cmd

import (
	"fmt"

	"SpotiFM/config"
	"SpotiFM/storage"

	"github.com/spf13/cobra"
)

var minioCmd = &cobra.Command{
	Use:   "minio",
	Short: "MinIO歌曲存储管理",
	Long:  `查看和同步MinIO存储桶中 songs/ 前缀下的歌曲文件。`,
}

var minioLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "列出存储桶中的歌曲",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openMinio(cmd)
		if err != nil {
			return err
		}
		objects, err := src.ListSongs(cmd.Context())
		if err != nil {
			return fmt.Errorf("列出文件失败: %w", err)
		}
		var total int64
		for _, obj := range objects {
			fmt.Printf("%-48s %10d  %s  %s\n", obj.Key, obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"), obj.ContentType)
			total += obj.Size
		}
		fmt.Printf("\n共 %d 个文件, %d 字节\n", len(objects), total)
		return nil
	},
}

var minioSyncCmd = &cobra.Command{
	Use:   "sync [dir]",
	Short: "把本地歌曲目录上传到存储桶",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openMinio(cmd)
		if err != nil {
			return err
		}
		dir := config.Load().SongsDir
		if len(args) == 1 {
			dir = args[0]
		}
		fmt.Printf("同步 %s -> %s/%s\n", dir, src.Bucket(), storage.SongsPrefix)
		result, err := storage.SyncDir(cmd.Context(), src, dir)
		if err != nil {
			return fmt.Errorf("同步失败: %w", err)
		}
		fmt.Printf("上传 %d 个文件, 跳过 %d 个\n", result.Uploaded, result.Skipped)
		return nil
	},
}

func openMinio(cmd *cobra.Command) (*storage.MinioSource, error) {
	cfg := config.Load()
	if !cfg.MinioEnabled() {
		return nil, fmt.Errorf("MINIO_ENDPOINT 未配置")
	}
	fmt.Printf("MinIO配置: %s, Bucket: %s\n", cfg.MinioEndpoint, cfg.MinioBucket)
	src, err := storage.NewMinioSource(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("无法连接到MinIO: %w", err)
	}
	return src, nil
}

func init() {
	rootCmd.AddCommand(minioCmd)
	minioCmd.AddCommand(minioLsCmd, minioSyncCmd)

	minioCmd.Example = `  # 列出所有歌曲
  spotifm minio ls

  # 上传 resources/static/songs
  spotifm minio sync

  # 上传指定目录
  spotifm minio sync ./music`
}
