package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"lyrics-viewer/internal/app"
	"lyrics-viewer/internal/config"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "lyrics-viewer",
	Short: "同步歌词查看器",
	Long:  `按播放时间高亮歌词，支持翻译、离线缓存和多窗口同步。默认启动 HTTP 服务。`,
	RunE:  runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default $XDG_CONFIG_HOME/lyrics-viewer/config.toml)")
}

// setup 加载配置并创建 App，ctx 在收到 SIGINT/SIGTERM 时取消
func setup(cmd *cobra.Command) (context.Context, context.CancelFunc, *app.App, error) {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	cfg := config.Load(configPath)
	a, err := app.New(ctx, cfg, nil)
	if err != nil {
		stop()
		return nil, nil, nil, err
	}
	return ctx, stop, a, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
