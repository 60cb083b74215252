package cmd

import (
	"context"
	"fmt"
	"time"

	"SpotiFM/cache"
	"SpotiFM/config"

	"github.com/spf13/cobra"
)

var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Redis连接测试",
	Long:  `测试播放列表缓存使用的Redis连接是否成功，并进行基本读写操作。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("开始测试Redis连接...")

		cfg := config.Load()
		fmt.Printf("Redis配置: %s:%s, DB: %d\n", cfg.RedisHost, cfg.RedisPort, cfg.RedisDB)

		if err := cache.ConnectRedis(cfg); err != nil {
			return fmt.Errorf("无法连接到Redis: %w", err)
		}
		defer func() {
			if err := cache.CloseRedis(); err != nil {
				fmt.Printf("关闭Redis连接时发生错误: %v\n", err)
			}
		}()
		fmt.Println("Redis连接成功！")

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()
		if err := cache.TestRedis(ctx); err != nil {
			return fmt.Errorf("Redis操作测试失败: %w", err)
		}
		fmt.Println("Redis基本操作测试成功！")

		if flushCache {
			if err := cache.NewPlaylistCache(cache.RedisClient, cfg.PlaylistCacheTTL).Flush(ctx); err != nil {
				return err
			}
			fmt.Println("播放列表缓存已清空")
		}
		return nil
	},
}

var flushCache bool

func init() {
	rootCmd.AddCommand(redisCmd)
	redisCmd.Flags().BoolVar(&flushCache, "flush", false, "清空 playlist:* 缓存")
}
