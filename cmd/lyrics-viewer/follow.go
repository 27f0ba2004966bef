package main

import (
	"time"

	"github.com/spf13/cobra"

	"lyrics-viewer/internal/app"
)

var followOpts app.FollowOptions

var followCmd = &cobra.Command{
	Use:   "follow",
	Short: "跟随桌面播放器显示当前歌词",
	Long:  `通过 playerctl 读取 MPRIS 播放器，把当前歌词行输出到终端，可选写入 i3blocks 状态文件。`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop, a, err := setup(cmd)
		if err != nil {
			return err
		}
		defer stop()
		defer a.Close()
		return a.Follow(ctx, followOpts)
	},
}

func init() {
	followCmd.Flags().StringVarP(&followOpts.Language, "lang", "l", "", "translation language, empty for original lyrics")
	followCmd.Flags().StringVar(&followOpts.StatusFile, "status-file", "", "file read by the i3blocks lyrics block")
	followCmd.Flags().IntVar(&followOpts.Signal, "signal", 0, "i3blocks signal number (SIGRTMIN+N)")
	followCmd.Flags().DurationVar(&followOpts.CheckInterval, "interval", 2*time.Second, "player check interval")
	rootCmd.AddCommand(followCmd)
}
