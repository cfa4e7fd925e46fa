package classifier

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"moodmusic-server-go/src/configs"
	"moodmusic-server-go/src/core/providers"
	"moodmusic-server-go/src/core/utils"
)

// Factory 分类器工厂函数类型
type Factory func(config *Config, logger *utils.Logger) (providers.EmotionClassifier, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// Register 注册分类器工厂
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[strings.ToLower(name)] = factory
}

// Create 根据配置创建并初始化分类器
func Create(ctx context.Context, cc configs.ClassifierConfig, logger *utils.Logger) (providers.EmotionClassifier, error) {
	factoriesMu.RLock()
	factory, ok := factories[strings.ToLower(cc.Type)]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown classifier type %q (registered: %s)", cc.Type, strings.Join(GetRegisteredProviders(), ", "))
	}

	config := NewConfig(cc)
	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("create classifier %s: %w", cc.Type, err)
	}

	// 初始化提供者（加载或预热模型）
	if err := provider.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("initialize classifier %s: %w", cc.Type, err)
	}

	logger.Info("情绪分类器创建成功", map[string]interface{}{
		"type":       config.Type,
		"model_name": config.ModelName,
		"base_url":   config.BaseURL,
	})
	return provider, nil
}

// GetRegisteredProviders 获取已注册的提供者列表
func GetRegisteredProviders() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
