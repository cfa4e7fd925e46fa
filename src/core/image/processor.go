package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"image/jpeg"
	"sync/atomic"

	"moodmusic-server-go/src/configs"
	"moodmusic-server-go/src/core/utils"

	"golang.org/x/image/draw"
)

// ImageProcessor 校验并解码拍照得到的图片
type ImageProcessor struct {
	validator *ImageSecurityValidator
	logger    *utils.Logger
	maxEdge   int
	metrics   *ImageMetrics
}

// NewImageProcessor 创建新的图片处理器，maxEdge<=0时不缩放
func NewImageProcessor(security *configs.SecurityConfig, maxEdge int, logger *utils.Logger) *ImageProcessor {
	return &ImageProcessor{
		validator: NewImageSecurityValidator(security, logger),
		logger:    logger,
		maxEdge:   maxEdge,
		metrics:   &ImageMetrics{},
	}
}

// Decode 验证并解码一帧图片，转换为RGB像素数组
func (p *ImageProcessor) Decode(frame *CapturedFrame) (*DecodedImage, error) {
	atomic.AddInt64(&p.metrics.FramesReceived, 1)

	validation := p.validator.Validate(frame.Data)
	if !validation.IsValid {
		atomic.AddInt64(&p.metrics.FailedValidations, 1)
		if validation.SecurityRisk != "" {
			atomic.AddInt64(&p.metrics.SecurityIncidents, 1)
			p.logger.Warn("图片验证失败", map[string]interface{}{
				"capture_id":    frame.ID,
				"error":         validation.Error.Error(),
				"security_risk": validation.SecurityRisk,
			})
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, validation.Error)
	}

	src, format, err := stdimage.Decode(bytes.NewReader(frame.Data))
	if err != nil {
		atomic.AddInt64(&p.metrics.FailedValidations, 1)
		return nil, fmt.Errorf("%w: decode %s: %v", ErrInvalidImage, validation.Format, err)
	}

	decoded := toRGB(p.scale(src))
	decoded.SourceFormat = format
	atomic.AddInt64(&p.metrics.FramesDecoded, 1)

	p.logger.Debug("图片解码完成", map[string]interface{}{
		"capture_id": frame.ID,
		"format":     format,
		"src_width":  validation.Width,
		"src_height": validation.Height,
		"width":      decoded.Width,
		"height":     decoded.Height,
	})
	return decoded, nil
}

// scale 等比缩放到最长边不超过maxEdge
func (p *ImageProcessor) scale(src stdimage.Image) stdimage.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if p.maxEdge <= 0 || longest <= p.maxEdge {
		return src
	}
	nw := max(1, w*p.maxEdge/longest)
	nh := max(1, h*p.maxEdge/longest)
	dst := stdimage.NewRGBA(stdimage.Rect(0, 0, nw, nh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// toRGB 将任意颜色模型的图片转换为RGB顺序的像素数组
func toRGB(src stdimage.Image) *DecodedImage {
	b := src.Bounds()
	rgba, ok := src.(*stdimage.RGBA)
	if !ok || rgba.Rect.Min != (stdimage.Point{}) {
		rgba = stdimage.NewRGBA(stdimage.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}

	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()
	pix := make([]uint8, 0, w*h*3)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride : y*rgba.Stride+w*4]
		for x := 0; x < len(row); x += 4 {
			pix = append(pix, row[x], row[x+1], row[x+2])
		}
	}
	return &DecodedImage{Width: w, Height: h, Pix: pix}
}

// EncodeJPEG 将解码后的图片重新编码为JPEG，供需要编码图片的分类器使用
func EncodeJPEG(img *DecodedImage, quality int) ([]byte, error) {
	if img == nil || img.Width == 0 || img.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrInvalidImage)
	}
	if quality <= 0 || quality > 100 {
		quality = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img.ToRGBA(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// GetMetrics 获取处理统计信息
func (p *ImageProcessor) GetMetrics() ImageMetrics {
	return ImageMetrics{
		FramesReceived:    atomic.LoadInt64(&p.metrics.FramesReceived),
		FramesDecoded:     atomic.LoadInt64(&p.metrics.FramesDecoded),
		FailedValidations: atomic.LoadInt64(&p.metrics.FailedValidations),
		SecurityIncidents: atomic.LoadInt64(&p.metrics.SecurityIncidents),
	}
}
