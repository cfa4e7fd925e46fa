package mood

import (
	"context"

	"moodmusic-server-go/src/core/image"
	"moodmusic-server-go/src/core/pipeline"

	"github.com/gin-gonic/gin"
)

// MoodService 定义 Mood 服务接口
type MoodService interface {
	// 将 Mood 的路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

// Analyzer 对一帧图片做完整分析
type Analyzer interface {
	Analyze(ctx context.Context, data []byte) (*pipeline.Outcome, error)
	Ready() bool
	Metrics() image.ImageMetrics
}
