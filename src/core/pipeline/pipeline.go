package pipeline

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"moodmusic-server-go/src/configs"
	"moodmusic-server-go/src/core/emotion"
	"moodmusic-server-go/src/core/image"
	"moodmusic-server-go/src/core/providers"
	"moodmusic-server-go/src/core/providers/classifier"
	"moodmusic-server-go/src/core/recommend"
	"moodmusic-server-go/src/core/utils"

	"golang.org/x/sync/semaphore"
)

// Loader 创建并初始化分类器
type Loader func(ctx context.Context) (providers.EmotionClassifier, error)

// Outcome 一次拍照的分析结果
type Outcome struct {
	CaptureID      string              `json:"capture_id"`
	Emotion        emotion.Label       `json:"emotion"`
	Emoji          string              `json:"emoji"`
	Recommendation recommend.Entry     `json:"recommendation"`
	Fallback       bool                `json:"fallback"`
	Scores         []emotion.Score     `json:"scores,omitempty"`
	Region         *emotion.FaceRegion `json:"region,omitempty"`
	ElapsedMs      int64               `json:"elapsed_ms"`
}

// Options 流程参数
type Options struct {
	MaxConcurrent int
	Timeout       time.Duration
}

// Pipeline 解码 → 分类 → 推荐，每次拍照走一遍，互不影响
type Pipeline struct {
	processor *image.ImageProcessor
	loader    Loader
	opts      Options
	sem       *semaphore.Weighted
	logger    *utils.TaggedLogger

	// 分类器只创建一次，进程内复用；创建失败不缓存
	mu         sync.Mutex
	classifier providers.EmotionClassifier
	loads      int
	// ready 不经过mu读取，加载期间状态查询不阻塞
	ready atomic.Bool
}

// New 根据配置创建流程，分类器在第一次使用时才加载
func New(config *configs.Config, logger *utils.Logger) *Pipeline {
	loader := func(ctx context.Context) (providers.EmotionClassifier, error) {
		name, cc, err := config.SelectedClassifier()
		if err != nil {
			return nil, err
		}
		logger.Info(fmt.Sprintf("加载情绪分类器: %s (%s)", name, cc.Type))
		return classifier.Create(ctx, cc, logger)
	}
	processor := image.NewImageProcessor(&config.Security, config.Pipeline.MaxEdge, logger)
	return NewWithLoader(processor, loader, Options{
		MaxConcurrent: config.Pipeline.MaxConcurrent,
		Timeout:       config.Pipeline.Timeout(),
	}, logger)
}

// NewWithLoader 使用自定义的分类器加载函数创建流程
func NewWithLoader(processor *image.ImageProcessor, loader Loader, opts Options, logger *utils.Logger) *Pipeline {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	return &Pipeline{
		processor: processor,
		loader:    loader,
		opts:      opts,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		logger:    logger.WithTag("pipeline"),
	}
}

// Warmup 提前加载分类器，失败时下一次拍照会重试
func (p *Pipeline) Warmup(ctx context.Context) error {
	_, err := p.getClassifier(ctx)
	return err
}

// Ready 分类器是否已经加载
func (p *Pipeline) Ready() bool {
	return p.ready.Load()
}

// Metrics 图片处理统计
func (p *Pipeline) Metrics() image.ImageMetrics {
	return p.processor.GetMetrics()
}

func (p *Pipeline) getClassifier(ctx context.Context) (providers.EmotionClassifier, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.classifier != nil {
		return p.classifier, nil
	}
	start := time.Now()
	c, err := p.loader(ctx)
	if err != nil {
		return nil, err
	}
	p.classifier = c
	p.loads++
	p.ready.Store(true)
	p.logger.Info(fmt.Sprintf("情绪分类器加载完成，耗时 %v", time.Since(start)))
	return c, nil
}

// Analyze 分析一帧图片。
// 数据为空返回 ErrNoCapture；没有主情绪返回 ErrNoFaceDetected；
// 解码或分类失败返回 *AnalysisError（errors.Is(err, ErrAnalysisFailure) 为真）。
func (p *Pipeline) Analyze(ctx context.Context, data []byte) (*Outcome, error) {
	frame, ok := image.FrameFromBytes(data)
	if !ok {
		return nil, ErrNoCapture
	}

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for analysis slot: %w", err)
	}
	defer p.sem.Release(1)

	start := time.Now()
	decoded, err := p.processor.Decode(frame)
	if err != nil {
		p.logger.Warn("图片解码失败", map[string]interface{}{"capture_id": frame.ID, "error": err.Error()})
		return nil, &AnalysisError{CaptureID: frame.ID, Stage: StageDecode, Err: err}
	}

	c, err := p.getClassifier(ctx)
	if err != nil {
		p.logger.Error("情绪分类器加载失败", map[string]interface{}{"capture_id": frame.ID, "error": err.Error()})
		return nil, &AnalysisError{CaptureID: frame.ID, Stage: StageInit, Err: err}
	}

	cctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()
	analysis, err := c.Classify(cctx, decoded)
	if err != nil {
		p.logger.Error("情绪分类失败", map[string]interface{}{"capture_id": frame.ID, "error": err.Error()})
		return nil, &AnalysisError{CaptureID: frame.ID, Stage: StageClassify, Err: err}
	}

	label, ok := analysis.DominantLabel()
	if !ok {
		p.logger.Info("未检测到人脸", map[string]interface{}{"capture_id": frame.ID})
		return nil, ErrNoFaceDetected
	}

	entry, fallback := recommend.Lookup(string(label))
	if fallback {
		p.logger.Warn(fmt.Sprintf("未知情绪标签 %q，使用neutral推荐", label), map[string]interface{}{"capture_id": frame.ID})
	}

	outcome := &Outcome{
		CaptureID:      frame.ID,
		Emotion:        label,
		Emoji:          label.Emoji(),
		Recommendation: entry,
		Fallback:       fallback,
		Scores:         analysis.Ranked(),
		Region:         analysis.Region,
		ElapsedMs:      time.Since(start).Milliseconds(),
	}
	p.logger.Info(fmt.Sprintf("情绪分析完成: %s", label), map[string]interface{}{
		"capture_id": frame.ID,
		"fallback":   fallback,
		"elapsed_ms": outcome.ElapsedMs,
	})
	return outcome, nil
}

// Cleanup 释放分类器
func (p *Pipeline) Cleanup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.classifier == nil {
		return nil
	}
	err := p.classifier.Cleanup()
	p.classifier = nil
	p.ready.Store(false)
	return err
}
