package image

import (
	"bytes"
	"fmt"
	stdimage "image"
	"strings"

	"moodmusic-server-go/src/configs"
	"moodmusic-server-go/src/core/utils"

	_ "image/gif"  // 注册GIF解码器
	_ "image/jpeg" // 注册JPEG解码器
	_ "image/png"  // 注册PNG解码器

	_ "golang.org/x/image/bmp"  // 注册BMP解码器
	_ "golang.org/x/image/webp" // 注册WEBP解码器
)

// ImageSecurityValidator 图片安全验证器
type ImageSecurityValidator struct {
	config *configs.SecurityConfig
	logger *utils.Logger
}

// NewImageSecurityValidator 创建新的图片安全验证器
func NewImageSecurityValidator(config *configs.SecurityConfig, logger *utils.Logger) *ImageSecurityValidator {
	return &ImageSecurityValidator{
		config: config,
		logger: logger,
	}
}

// 图片格式魔数签名
var imageSignatures = []struct {
	format    string
	signature []byte
}{
	{"jpeg", []byte{0xFF, 0xD8}},
	{"png", []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}},
	{"gif", []byte("GIF87a")},
	{"gif", []byte("GIF89a")},
	{"bmp", []byte{0x42, 0x4D}},
}

// DetectFormat 根据文件头判断图片格式，无法识别时返回空字符串
func DetectFormat(data []byte) string {
	for _, s := range imageSignatures {
		if bytes.HasPrefix(data, s.signature) {
			return s.format
		}
	}
	// WEBP: RIFF....WEBP
	if len(data) >= 12 && bytes.HasPrefix(data, []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WEBP")) {
		return "webp"
	}
	return ""
}

// Validate 验证一帧图片的原始字节
func (v *ImageSecurityValidator) Validate(data []byte) ValidationResult {
	result := ValidationResult{IsValid: false, FileSize: int64(len(data))}

	// 1. 基础大小检查
	if int64(len(data)) > v.config.MaxFileSize {
		result.Error = fmt.Errorf("file too large: %d bytes, max %d bytes", len(data), v.config.MaxFileSize)
		result.SecurityRisk = "文件过大，可能是DoS攻击"
		return result
	}

	// 2. 恶意内容检测，只在文件头无法识别时进行
	format := DetectFormat(data)
	if format == "" {
		if v.config.EnableDeepScan {
			if risk := scanForMaliciousContent(data); risk != "" {
				result.Error = fmt.Errorf("suspicious content detected")
				result.SecurityRisk = risk
				v.logger.Warn("检测到可疑内容", map[string]interface{}{
					"risk": risk,
					"size": len(data),
				})
				return result
			}
		}
		result.Error = fmt.Errorf("unrecognized image format")
		return result
	}

	// 3. 格式支持检查
	if !v.isFormatAllowed(format) {
		result.Error = fmt.Errorf("image format %s is not allowed", format)
		result.SecurityRisk = "使用了不被允许的格式"
		return result
	}

	// 4. 解码图片头获取尺寸
	config, actualFormat, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		result.Error = fmt.Errorf("decode image header: %v", err)
		result.SecurityRisk = "可能包含恶意载荷或损坏的图片数据"
		return result
	}
	result.Format = actualFormat

	if config.Width <= 0 || config.Height <= 0 {
		result.Error = fmt.Errorf("image has no pixels: %dx%d", config.Width, config.Height)
		return result
	}
	if config.Width > v.config.MaxWidth || config.Height > v.config.MaxHeight {
		result.Error = fmt.Errorf("image too large: %dx%d, max %dx%d",
			config.Width, config.Height, v.config.MaxWidth, v.config.MaxHeight)
		result.SecurityRisk = "图片过大，可能消耗过多资源"
		return result
	}
	totalPixels := int64(config.Width) * int64(config.Height)
	if totalPixels > v.config.MaxPixels {
		result.Error = fmt.Errorf("too many pixels: %d, max %d", totalPixels, v.config.MaxPixels)
		result.SecurityRisk = "像素过多，可能导致内存耗尽"
		return result
	}

	result.IsValid = true
	result.Width = config.Width
	result.Height = config.Height

	v.logger.Debug("图片验证成功", map[string]interface{}{
		"format": result.Format,
		"width":  result.Width,
		"height": result.Height,
		"size":   result.FileSize,
	})
	return result
}

// isFormatAllowed 检查格式是否被允许
func (v *ImageSecurityValidator) isFormatAllowed(format string) bool {
	for _, allowed := range v.config.AllowedFormats {
		if strings.EqualFold(allowed, format) || (format == "jpeg" && strings.EqualFold(allowed, "jpg")) {
			return true
		}
	}
	return false
}

// scanForMaliciousContent 对无法识别的文件做安全检查，返回风险描述
func scanForMaliciousContent(data []byte) string {
	signatures := []struct {
		name      string
		signature []byte
	}{
		{"PE", []byte{0x4D, 0x5A}},
		{"ELF", []byte{0x7F, 0x45, 0x4C, 0x46}},
		{"Mach-O", []byte{0xCA, 0xFE, 0xBA, 0xBE}},
		{"ZIP", []byte{0x50, 0x4B, 0x03, 0x04}},
		{"GZIP", []byte{0x1F, 0x8B, 0x08}},
	}
	for _, s := range signatures {
		if bytes.HasPrefix(data, s.signature) {
			return "文件开头检测到" + s.name + "签名"
		}
	}

	lower := strings.ToLower(string(data))
	if strings.Contains(lower, "<svg") {
		for _, suspicious := range []string{"<script", "javascript:", "onload=", "onerror=", "<iframe"} {
			if strings.Contains(lower, suspicious) {
				return "SVG中包含脚本内容: " + suspicious
			}
		}
	}
	return ""
}
