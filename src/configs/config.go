package configs

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 主配置结构
type Config struct {
	Log struct {
		LogFormat string `yaml:"log_format"`
		LogLevel  string `yaml:"log_level"`
		LogDir    string `yaml:"log_dir"`
		LogFile   string `yaml:"log_file"`
	} `yaml:"log"`

	Web struct {
		IP   string `yaml:"ip"`
		Port int    `yaml:"port"`
	} `yaml:"web"`

	Pipeline PipelineConfig `yaml:"pipeline"`
	Security SecurityConfig `yaml:"security"`

	SelectedModule map[string]string `yaml:"selected_module"`

	Classifier map[string]ClassifierConfig `yaml:"Classifier"`
}

// PipelineConfig 单次分析流程配置
type PipelineConfig struct {
	MaxConcurrent   int    `yaml:"max_concurrent"`   // 同时进行的分析数量
	AnalysisTimeout string `yaml:"analysis_timeout"` // 单次分类超时时间
	MaxEdge         int    `yaml:"max_edge"`         // 解码后图片最长边
}

// Timeout 解析分析超时时间，解析失败时返回默认值
func (p PipelineConfig) Timeout() time.Duration {
	d, err := time.ParseDuration(p.AnalysisTimeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// SecurityConfig 图片安全配置结构
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`    // 最大文件大小（字节）
	MaxPixels      int64    `yaml:"max_pixels"`       // 最大像素数量
	MaxWidth       int      `yaml:"max_width"`        // 最大宽度
	MaxHeight      int      `yaml:"max_height"`       // 最大高度
	AllowedFormats []string `yaml:"allowed_formats"`  // 允许的图片格式
	EnableDeepScan bool     `yaml:"enable_deep_scan"` // 启用深度安全扫描
}

// ClassifierConfig 情绪分类模型配置
type ClassifierConfig struct {
	Type        string                 `yaml:"type"`        // deepface / openai / ollama / anthropic
	ModelName   string                 `yaml:"model_name"`  // 模型名称
	BaseURL     string                 `yaml:"url"`         // API地址
	APIKey      string                 `yaml:"api_key"`     // API密钥
	Temperature float64                `yaml:"temperature"` // 温度参数
	MaxTokens   int                    `yaml:"max_tokens"`  // 最大令牌数
	Timeout     string                 `yaml:"timeout"`     // HTTP超时
	Detector    string                 `yaml:"detector"`    // DeepFace人脸检测后端
	Extra       map[string]interface{} `yaml:",inline"`
}

// LoadConfig 从文件加载配置，path为空时依次尝试 .config.yaml 与 config.yaml
func LoadConfig(path string) (*Config, string, error) {
	if path == "" {
		path = ".config.yaml"
		if _, err := os.Stat(path); os.IsNotExist(err) {
			path = "config.yaml"
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}

	config, err := ParseConfig(data)
	if err != nil {
		return nil, path, err
	}
	return config, path, nil
}

// ParseConfig 解析YAML配置并补齐默认值
func ParseConfig(data []byte) (*Config, error) {
	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	config.applyDefaults()
	return config, nil
}

// SelectedClassifier 返回当前选中的分类器名称与配置，API密钥中的 ${ENV} 会被展开
func (c *Config) SelectedClassifier() (string, ClassifierConfig, error) {
	name := c.SelectedModule["Classifier"]
	if name == "" {
		return "", ClassifierConfig{}, fmt.Errorf("未设置 selected_module.Classifier")
	}
	cfg, ok := c.Classifier[name]
	if !ok {
		return name, ClassifierConfig{}, fmt.Errorf("找不到分类器配置: %s", name)
	}
	if cfg.Type == "" {
		cfg.Type = name
	}
	cfg.APIKey = os.ExpandEnv(cfg.APIKey)
	cfg.BaseURL = os.ExpandEnv(cfg.BaseURL)
	return name, cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Log.LogLevel == "" {
		c.Log.LogLevel = "INFO"
	}
	if c.Log.LogDir == "" {
		c.Log.LogDir = "logs"
	}
	if c.Log.LogFile == "" {
		c.Log.LogFile = "server.log"
	}
	if c.Web.Port == 0 {
		c.Web.Port = 8000
	}
	if c.Pipeline.MaxConcurrent <= 0 {
		c.Pipeline.MaxConcurrent = 1
	}
	if c.Pipeline.MaxEdge <= 0 {
		c.Pipeline.MaxEdge = 1024
	}
	if c.Security.MaxFileSize <= 0 {
		c.Security.MaxFileSize = 5 * 1024 * 1024
	}
	if c.Security.MaxWidth <= 0 {
		c.Security.MaxWidth = 4096
	}
	if c.Security.MaxHeight <= 0 {
		c.Security.MaxHeight = 4096
	}
	if c.Security.MaxPixels <= 0 {
		c.Security.MaxPixels = int64(c.Security.MaxWidth) * int64(c.Security.MaxHeight)
	}
	if len(c.Security.AllowedFormats) == 0 {
		c.Security.AllowedFormats = []string{"jpeg", "png", "gif", "bmp", "webp"}
	}
	for i, f := range c.Security.AllowedFormats {
		c.Security.AllowedFormats[i] = strings.ToLower(f)
	}
	if c.SelectedModule == nil {
		c.SelectedModule = map[string]string{}
	}
}
