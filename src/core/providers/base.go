package providers

import (
	"context"

	"moodmusic-server-go/src/core/emotion"
	"moodmusic-server-go/src/core/image"
)

// Provider 所有提供者的基础接口
type Provider interface {
	// Initialize 加载或预热模型，ctx结束时应尽快返回
	Initialize(ctx context.Context) error
	Cleanup() error
}

// EmotionClassifier 情绪分类提供者接口
type EmotionClassifier interface {
	Provider

	// Classify 对一张解码后的图片做情绪分类。
	// 没有检测到人脸时返回nil结果或主情绪为空的结果，而不是错误。
	Classify(ctx context.Context, img *image.DecodedImage) (*emotion.Analysis, error)
}
