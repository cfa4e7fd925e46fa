package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"moodmusic-server-go/src/configs"
	"moodmusic-server-go/src/core/utils"

	// 导入所有分类器以确保init函数被调用
	_ "moodmusic-server-go/src/core/providers/classifier/anthropic"
	_ "moodmusic-server-go/src/core/providers/classifier/deepface"
	_ "moodmusic-server-go/src/core/providers/classifier/ollama"
	_ "moodmusic-server-go/src/core/providers/classifier/openai"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version 程序版本
const Version = "0.1.0"

var configPath string

var rootCmd = &cobra.Command{
	Use:          "moodmusic",
	Short:        "Emotion-based music recommender",
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// 加载 .env 文件，不存在时使用系统环境变量
		_ = godotenv.Load()
	},
}

// Execute 执行命令行，收到 SIGINT/SIGTERM 时取消上下文
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default .config.yaml, then config.yaml)")
	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

// LoadConfigAndLogger 加载配置并初始化日志系统
func LoadConfigAndLogger() (*configs.Config, *utils.Logger, error) {
	config, path, err := configs.LoadConfig(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置文件 %s 失败: %w", path, err)
	}

	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(fmt.Sprintf("日志系统初始化成功, 配置文件路径: %s", path))
	return config, logger, nil
}
