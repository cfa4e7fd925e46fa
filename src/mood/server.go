package mood

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"moodmusic-server-go/src/core/pipeline"
	"moodmusic-server-go/src/core/recommend"
	"moodmusic-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	// 默认最大文件大小为5MB
	defaultMaxFileSize = 5 * 1024 * 1024

	msgNoCapture = "No image captured yet. Click 'Analyze My Mood' to take a photo."
	msgNoFace    = "❌ No face detected. Please ensure your face is clearly visible and centered in the frame, and try again."
	msgFailure   = "An unexpected error occurred during analysis. Error: "
)

//go:embed static/index.html
var indexHTML []byte

type DefaultMoodService struct {
	logger      *utils.Logger
	analyzer    Analyzer
	maxFileSize int64
	upgrader    websocket.Upgrader
}

// NewDefaultMoodService 构造函数
func NewDefaultMoodService(analyzer Analyzer, maxFileSize int64, logger *utils.Logger) *DefaultMoodService {
	if maxFileSize <= 0 {
		maxFileSize = defaultMaxFileSize
	}
	return &DefaultMoodService{
		logger:      logger,
		analyzer:    analyzer,
		maxFileSize: maxFileSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Start 实现 MoodService 接口，注册所有 Mood 相关路由
func (s *DefaultMoodService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	engine.GET("/", s.handleIndex)
	engine.GET("/ws/mood", s.handleWebSocket)

	// Mood 主接口（GET用于状态检查，POST用于图片分析）
	apiGroup.GET("/mood", s.handleGet)
	apiGroup.POST("/mood", s.handlePost)
	apiGroup.OPTIONS("/mood", s.handleOptions)
	apiGroup.GET("/recommendations", s.handleRecommendations)

	s.logger.Info("Mood HTTP服务路由注册完成")
	return nil
}

func (s *DefaultMoodService) handleIndex(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}

// handleOptions 处理OPTIONS请求（CORS）
func (s *DefaultMoodService) handleOptions(c *gin.Context) {
	s.addCORSHeaders(c)
	c.Status(http.StatusOK)
}

// handleGet 处理GET请求（状态检查）
func (s *DefaultMoodService) handleGet(c *gin.Context) {
	s.addCORSHeaders(c)

	ready := s.analyzer.Ready()
	message := "Mood interface is running, classifier will load on first capture"
	if ready {
		message = "Mood interface is running, classifier loaded"
	}
	c.JSON(http.StatusOK, StatusResponse{
		Message: message,
		Ready:   ready,
		Metrics: s.analyzer.Metrics(),
	})
}

func (s *DefaultMoodService) handleRecommendations(c *gin.Context) {
	s.addCORSHeaders(c)
	c.JSON(http.StatusOK, RecommendationsResponse{Recommendations: recommend.All()})
}

// handlePost 处理POST请求（图片分析）
func (s *DefaultMoodService) handlePost(c *gin.Context) {
	s.addCORSHeaders(c)

	data, err := s.readFrame(c)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("Mood请求解析失败: %v", err))
		s.respondError(c, http.StatusBadRequest, KindNoCapture, err.Error())
		return
	}

	status, response := s.analyze(c.Request.Context(), data)
	c.JSON(status, response)
}

// readFrame 从multipart表单的file字段或原始请求体读取图片
func (s *DefaultMoodService) readFrame(c *gin.Context) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxFileSize+1024*1024)

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		file, header, err := c.Request.FormFile("file")
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) {
				return nil, nil
			}
			return nil, fmt.Errorf("invalid multipart form: %v", err)
		}
		defer file.Close()
		if header.Size > s.maxFileSize {
			return nil, fmt.Errorf("image too large, max %dMB", s.maxFileSize/1024/1024)
		}
		return io.ReadAll(file)
	}

	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("read request body: %v", err)
	}
	if int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("image too large, max %dMB", s.maxFileSize/1024/1024)
	}
	return data, nil
}

// analyze 执行分析并转换为HTTP状态码与响应
func (s *DefaultMoodService) analyze(ctx context.Context, data []byte) (int, MoodResponse) {
	outcome, err := s.analyzer.Analyze(ctx, data)
	if err == nil {
		return http.StatusOK, MoodResponse{Success: true, Result: outcome}
	}

	var ae *pipeline.AnalysisError
	switch {
	case errors.Is(err, pipeline.ErrNoCapture):
		return http.StatusBadRequest, MoodResponse{Kind: KindNoCapture, Message: msgNoCapture}
	case errors.Is(err, pipeline.ErrNoFaceDetected):
		return http.StatusUnprocessableEntity, MoodResponse{Kind: KindNoFace, Message: msgNoFace}
	case errors.As(err, &ae) && ae.Stage == pipeline.StageDecode:
		return http.StatusBadRequest, MoodResponse{Kind: KindAnalysisFailure, Message: msgFailure + ae.Err.Error()}
	case errors.As(err, &ae):
		return http.StatusInternalServerError, MoodResponse{Kind: KindAnalysisFailure, Message: msgFailure + ae.Err.Error()}
	default:
		s.logger.Warn(fmt.Sprintf("Mood分析中断: %v", err))
		return http.StatusServiceUnavailable, MoodResponse{Kind: KindAnalysisFailure, Message: msgFailure + err.Error()}
	}
}

// addCORSHeaders 添加CORS头
func (s *DefaultMoodService) addCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Headers", "content-type")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

// respondError 返回错误响应
func (s *DefaultMoodService) respondError(c *gin.Context, statusCode int, kind, message string) {
	c.JSON(statusCode, MoodResponse{
		Success: false,
		Kind:    kind,
		Message: message,
	})
}
