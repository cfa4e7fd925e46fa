package cli

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"moodmusic-server-go/src/configs"
	"moodmusic-server-go/src/core/pipeline"
	"moodmusic-server-go/src/core/utils"
	"moodmusic-server-go/src/mood"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web UI and the mood analysis API",
	RunE: func(cmd *cobra.Command, args []string) error {
		config, logger, err := LoadConfigAndLogger()
		if err != nil {
			return err
		}
		defer logger.Close()
		return serve(cmd.Context(), config, logger)
	},
}

func serve(ctx context.Context, config *configs.Config, logger *utils.Logger) error {
	analyzer := pipeline.New(config, logger)
	defer func() {
		if err := analyzer.Cleanup(); err != nil {
			logger.Warn(fmt.Sprintf("分类器清理失败: %v", err))
		}
	}()

	g, groupCtx := errgroup.WithContext(ctx)

	// 后台预热分类器，失败时第一次拍照会重试；收到关闭信号时中断预热
	g.Go(func() error {
		if err := analyzer.Warmup(groupCtx); err != nil {
			logger.Warn(fmt.Sprintf("情绪分类器预热失败，将在首次拍照时重试: %v", err))
		}
		return nil
	})

	if _, err := StartHttpServer(config, logger, analyzer, g, groupCtx); err != nil {
		return fmt.Errorf("启动 Http 服务失败: %w", err)
	}

	if err := g.Wait(); err != nil {
		logger.Error("服务运行出现错误", err.Error())
		return err
	}
	logger.Info("所有服务已优雅关闭")
	return nil
}

// StartHttpServer 注册路由并在errgroup中启动HTTP服务，groupCtx结束时优雅关闭
func StartHttpServer(config *configs.Config, logger *utils.Logger, analyzer mood.Analyzer, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	if utils.ParseLevel(config.Log.LogLevel) == utils.DebugLevel {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// API路由全部挂载到/api前缀下
	apiGroup := router.Group("/api")
	moodService := mood.NewDefaultMoodService(analyzer, config.Security.MaxFileSize, logger)
	if err := moodService.Start(groupCtx, router, apiGroup); err != nil {
		logger.Error("Mood 服务启动失败", err.Error())
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              net.JoinHostPort(config.Web.IP, strconv.Itoa(config.Web.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Gin 服务已启动，访问地址: http://%s", httpServer.Addr))

		// 在单独的 goroutine 中监听关闭信号
		go func() {
			<-groupCtx.Done()
			logger.Info("收到关闭信号，开始关闭HTTP服务...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP服务关闭失败", err.Error())
			} else {
				logger.Info("HTTP服务已优雅关闭")
			}
		}()

		// ListenAndServe 返回 ErrServerClosed 时表示正常关闭
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务启动失败", err.Error())
			return err
		}
		return nil
	})

	return httpServer, nil
}
