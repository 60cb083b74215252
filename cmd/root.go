package cmd

import (
	"fmt"
	"os"

	"SpotiFM/config"
	"SpotiFM/logger"
	"SpotiFM/server"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "spotifm",
	Short: "SpotiFM serves album feeds, playlists and songs.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
	SilenceUsage: true,
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer() error {
	cfg := config.Load()
	initLogger(cfg)
	defer logger.Sync()
	return server.Start(cfg)
}

// initLogger 根据服务端配置初始化全局日志
func initLogger(cfg *config.Config) {
	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    100,
		MaxBackups: 3,
		MaxAge:     28,
		Compress:   true,
	})
}
