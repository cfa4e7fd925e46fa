package ollama

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

// ChatRequest Ollama API请求结构
type ChatRequest struct {
	Model    string                 `json:"model"`
	Messages []Message              `json:"messages"`
	Stream   bool                   `json:"stream"`
	Format   string                 `json:"format,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// Message Ollama消息结构
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // 纯base64，不需要data URL前缀
}

// ChatResponse Ollama API响应结构
type ChatResponse struct {
	Model   string  `json:"model"`
	Message Message `json:"message"`
	Done    bool    `json:"done"`
	Error   string  `json:"error,omitempty"`
}

// Provider Ollama视觉模型分类器
type Provider struct {
	config *classifier.Config
	logger *utils.Logger
	client *resty.Client
}

// NewProvider 创建Ollama分类器
func NewProvider(config *classifier.Config, logger *utils.Logger) (providers.EmotionClassifier, error) {
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434" // 默认Ollama地址
	}
	if config.ModelName == "" {
		return nil, fmt.Errorf("ollama model_name is required")
	}
	client := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout)
	return &Provider{config: config, logger: logger, client: client}, nil
}

// Initialize 确认模型已经拉取到本地
func (p *Provider) Initialize(ctx context.Context) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(map[string]string{"model": p.config.ModelName}).
		Post("/api/show")
	if err != nil {
		return fmt.Errorf("ollama unreachable: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("ollama model %s not available: %d %s", p.config.ModelName, resp.StatusCode(), resp.String())
	}
	p.logger.Debug("Ollama分类器初始化成功", map[string]interface{}{
		"base_url": p.config.BaseURL,
		"model":    p.config.ModelName,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Classify 调用 /api/chat 做情绪分类
func (p *Provider) Classify(ctx context.Context, img *image.DecodedImage) (*emotion.Analysis, error) {
	b64, _, err := classifier.EncodeBase64JPEG(img)
	if err != nil {
		return nil, err
	}

	var result ChatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(ChatRequest{
			Model: p.config.ModelName,
			Messages: []Message{{
				Role:    "user",
				Content: classifier.Prompt,
				Images:  []string{b64},
			}},
			Stream: false,
			Format: "json",
			Options: map[string]interface{}{
				"temperature": p.config.Temperature,
			},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/api/chat")
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("ollama returned %d: %s", resp.StatusCode(), result.Error)
	}

	p.logger.Debug("Ollama分类回复", map[string]interface{}{
		"model":   result.Model,
		"content": result.Message.Content,
	})
	return classifier.ParseReply(result.Message.Content)
}

func init() {
	classifier.Register("ollama", NewProvider)
}
