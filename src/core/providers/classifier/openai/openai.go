package openai

import (
	"context"
	"fmt"
	"net/http"

	"moodmusic-server-go/src/core/emotion"
	"moodmusic-server-go/src/core/image"
	"moodmusic-server-go/src/core/providers"
	"moodmusic-server-go/src/core/providers/classifier"
	"moodmusic-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI兼容接口的视觉大模型分类器
type Provider struct {
	config *classifier.Config
	logger *utils.Logger
	client *openai.Client
}

// NewProvider 创建OpenAI分类器
func NewProvider(config *classifier.Config, logger *utils.Logger) (providers.EmotionClassifier, error) {
	if config.ModelName == "" {
		config.ModelName = "gpt-4o-mini"
	}
	return &Provider{config: config, logger: logger}, nil
}

// Initialize 初始化客户端
func (p *Provider) Initialize(ctx context.Context) error {
	if p.config.APIKey == "" {
		return fmt.Errorf("OpenAI API key is required")
	}
	clientConfig := openai.DefaultConfig(p.config.APIKey)
	if p.config.BaseURL != "" {
		clientConfig.BaseURL = p.config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: p.config.Timeout}
	p.client = openai.NewClientWithConfig(clientConfig)

	p.logger.Debug("OpenAI分类器初始化成功", map[string]interface{}{
		"model_name": p.config.ModelName,
		"base_url":   clientConfig.BaseURL,
	})
	return nil
}

// Cleanup 清理资源
func (p *Provider) Cleanup() error {
	return nil
}

// Classify 把图片和分类提示词一起发给视觉模型
func (p *Provider) Classify(ctx context.Context, img *image.DecodedImage) (*emotion.Analysis, error) {
	uri, err := classifier.DataURI(img)
	if err != nil {
		return nil, err
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.config.ModelName,
		MaxTokens:   p.config.MaxTokens,
		Temperature: float32(p.config.Temperature),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: classifier.Prompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    uri,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	content := resp.Choices[0].Message.Content
	p.logger.Debug("OpenAI分类回复", map[string]interface{}{
		"model":   resp.Model,
		"content": content,
	})
	return classifier.ParseReply(content)
}

func init() {
	classifier.Register("openai", NewProvider)
}
