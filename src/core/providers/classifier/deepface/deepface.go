package deepface

import (
	"context"
	"fmt"

	"moodmusic-server-go/src/core/emotion"
	"moodmusic-server-go/src/core/image"
	"moodmusic-server-go/src/core/providers"
	"moodmusic-server-go/src/core/providers/classifier"
	"moodmusic-server-go/src/core/utils"

	"github.com/go-resty/resty/v2"
)

// AnalyzeRequest DeepFace REST API /analyze 请求
type AnalyzeRequest struct {
	Img              string   `json:"img"`
	Actions          []string `json:"actions"`
	EnforceDetection bool     `json:"enforce_detection"`
	DetectorBackend  string   `json:"detector_backend,omitempty"`
}

// FaceResult 单张人脸的分析结果
type FaceResult struct {
	DominantEmotion string              `json:"dominant_emotion"`
	Emotion         map[string]float64  `json:"emotion"`
	Region          *emotion.FaceRegion `json:"region"`
	FaceConfidence  float64             `json:"face_confidence"`
}

// AnalyzeResponse DeepFace REST API /analyze 响应
type AnalyzeResponse struct {
	Results []FaceResult `json:"results"`
	Error   string       `json:"error"`
}

// Provider 调用DeepFace服务的情绪分类器
type Provider struct {
	config *classifier.Config
	logger *utils.Logger
	client *resty.Client
}

// NewProvider 创建DeepFace分类器
func NewProvider(config *classifier.Config, logger *utils.Logger) (providers.EmotionClassifier, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:5005"
	}
	if config.Detector == "" {
		config.Detector = "opencv"
	}
	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json")
	return &Provider{config: config, logger: logger, client: client}, nil
}

// Initialize 用一张空白图片预热模型，使首次拍照不必等待模型加载
func (p *Provider) Initialize(ctx context.Context) error {
	blank := &image.DecodedImage{Width: 48, Height: 48, Pix: make([]uint8, 48*48*3)}
	if _, err := p.analyze(ctx, blank); err != nil {
		return fmt.Errorf("deepface warmup: %w", err)
	}
	p.logger.Info("DeepFace模型预热完成", map[string]interface{}{
		"base_url": p.config.BaseURL,
		"detector": p.config.Detector,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Classify 情绪分类，只取第一张人脸
func (p *Provider) Classify(ctx context.Context, img *image.DecodedImage) (*emotion.Analysis, error) {
	resp, err := p.analyze(ctx, img)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, nil
	}
	face := resp.Results[0]
	p.logger.Debug("DeepFace分析结果", map[string]interface{}{
		"faces":           len(resp.Results),
		"dominant":        face.DominantEmotion,
		"face_confidence": face.FaceConfidence,
	})
	return &emotion.Analysis{
		Dominant:       face.DominantEmotion,
		Scores:         face.Emotion,
		Region:         face.Region,
		FaceConfidence: face.FaceConfidence,
	}, nil
}

func (p *Provider) analyze(ctx context.Context, img *image.DecodedImage) (*AnalyzeResponse, error) {
	uri, err := classifier.DataURI(img)
	if err != nil {
		return nil, err
	}

	var result AnalyzeResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(AnalyzeRequest{
			Img:              uri,
			Actions:          []string{"emotion"},
			EnforceDetection: false,
			DetectorBackend:  p.config.Detector,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/analyze")
	if err != nil {
		return nil, fmt.Errorf("deepface request: %w", err)
	}
	if resp.IsError() {
		if result.Error != "" {
			return nil, fmt.Errorf("deepface returned %d: %s", resp.StatusCode(), result.Error)
		}
		return nil, fmt.Errorf("deepface returned %d", resp.StatusCode())
	}
	return &result, nil
}

func init() {
	classifier.Register("deepface", NewProvider)
}
