package cmd

import (
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "启动SpotiFM服务器",
	Long:  `启动HTTP服务器，提供 /feed、/playlists、/playlist/{id} 和 /songs/* 接口`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)
}
