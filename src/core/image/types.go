package image

import (
	"errors"
	stdimage "image"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidImage 图片无法通过校验或无法解码
var ErrInvalidImage = errors.New("invalid image")

// CapturedFrame 一次拍照得到的已编码图片
type CapturedFrame struct {
	ID         string    // 拍照事件ID
	Data       []byte    // 编码后的图片字节
	ReceivedAt time.Time // 接收时间
}

// FrameFromBytes 包装一次拍照结果；数据为空表示还没有拍照，返回false
func FrameFromBytes(data []byte) (*CapturedFrame, bool) {
	if len(data) == 0 {
		return nil, false
	}
	return &CapturedFrame{
		ID:         uuid.New().String(),
		Data:       data,
		ReceivedAt: time.Now(),
	}, true
}

// DecodedImage 解码后的RGB像素数组，按行存储，每像素3字节
type DecodedImage struct {
	Width        int
	Height       int
	Pix          []uint8
	SourceFormat string
}

// RGBAt 返回(x, y)处的像素
func (d *DecodedImage) RGBAt(x, y int) (r, g, b uint8) {
	i := (y*d.Width + x) * 3
	return d.Pix[i], d.Pix[i+1], d.Pix[i+2]
}

// ToRGBA 转换为标准库图片，用于重新编码
func (d *DecodedImage) ToRGBA() *stdimage.RGBA {
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, d.Width, d.Height))
	for p, q := 0, 0; p < len(d.Pix); p, q = p+3, q+4 {
		img.Pix[q] = d.Pix[p]
		img.Pix[q+1] = d.Pix[p+1]
		img.Pix[q+2] = d.Pix[p+2]
		img.Pix[q+3] = 0xFF
	}
	return img
}

// ValidationResult 图片验证结果
type ValidationResult struct {
	IsValid      bool   // 是否有效
	Format       string // 实际格式
	Width        int    // 图片宽度
	Height       int    // 图片高度
	FileSize     int64  // 文件大小
	Error        error  // 错误信息
	SecurityRisk string // 安全风险描述
}

// ImageMetrics 图片处理统计信息
type ImageMetrics struct {
	FramesReceived    int64 `json:"frames_received"`    // 收到的帧数
	FramesDecoded     int64 `json:"frames_decoded"`     // 成功解码的帧数
	FailedValidations int64 `json:"failed_validations"` // 验证失败次数
	SecurityIncidents int64 `json:"security_incidents"` // 安全事件次数
}
