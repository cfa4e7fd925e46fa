package mood

import (
	"moodmusic-server-go/src/core/image"
	"moodmusic-server-go/src/core/pipeline"
	"moodmusic-server-go/src/core/recommend"
)

// 失败类型，前端据此区分提示样式
const (
	KindNoCapture       = "no_capture"
	KindNoFace          = "no_face"
	KindAnalysisFailure = "analysis_failure"
)

// MoodResponse 分析接口的标准响应结构
type MoodResponse struct {
	Success bool              `json:"success"`           // 是否成功
	Result  *pipeline.Outcome `json:"result,omitempty"`  // 分析结果（成功时）
	Message string            `json:"message,omitempty"` // 错误信息（失败时）
	Kind    string            `json:"kind,omitempty"`    // 失败类型（失败时）
}

// StatusResponse 状态检查响应
type StatusResponse struct {
	Message string             `json:"message"`
	Ready   bool               `json:"classifier_ready"`
	Metrics image.ImageMetrics `json:"metrics"`
}

// RecommendationsResponse 完整推荐表
type RecommendationsResponse struct {
	Recommendations []recommend.Item `json:"recommendations"`
}
