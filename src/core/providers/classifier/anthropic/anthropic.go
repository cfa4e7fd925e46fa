package anthropic

import (
	"context"
	"fmt"

	"moodmusic-server-go/src/core/emotion"
	"moodmusic-server-go/src/core/image"
	"moodmusic-server-go/src/core/providers"
	"moodmusic-server-go/src/core/providers/classifier"
	"moodmusic-server-go/src/core/utils"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Provider Claude视觉模型分类器
type Provider struct {
	config *classifier.Config
	logger *utils.Logger
	client anthropic.Client
}

// NewProvider 创建Anthropic分类器
func NewProvider(config *classifier.Config, logger *utils.Logger) (providers.EmotionClassifier, error) {
	if config.ModelName == "" {
		config.ModelName = "claude-sonnet-4-5"
	}
	return &Provider{config: config, logger: logger}, nil
}

// Initialize 初始化客户端
func (p *Provider) Initialize(ctx context.Context) error {
	if p.config.APIKey == "" {
		return fmt.Errorf("Anthropic API key is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(p.config.APIKey),
		option.WithRequestTimeout(p.config.Timeout),
	}
	if p.config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(p.config.BaseURL))
	}
	p.client = anthropic.NewClient(opts...)
	p.logger.Debug("Anthropic分类器初始化成功", map[string]interface{}{
		"model_name": p.config.ModelName,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Classify 发送图片与提示词，解析文本回复
func (p *Provider) Classify(ctx context.Context, img *image.DecodedImage) (*emotion.Analysis, error) {
	b64, mediaType, err := classifier.EncodeBase64JPEG(img)
	if err != nil {
		return nil, err
	}

	message, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.config.ModelName),
		MaxTokens: int64(p.config.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, b64),
				anthropic.NewTextBlock(classifier.Prompt),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic messages: %w", err)
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			p.logger.Debug("Anthropic分类回复", map[string]interface{}{
				"content":    block.Text,
				"tokens_in":  message.Usage.InputTokens,
				"tokens_out": message.Usage.OutputTokens,
			})
			return classifier.ParseReply(block.Text)
		}
	}
	return nil, fmt.Errorf("no text content in Anthropic response")
}

func init() {
	classifier.Register("anthropic", NewProvider)
}
