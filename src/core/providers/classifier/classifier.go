package classifier

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"moodmusic-server-go/src/configs"
	"moodmusic-server-go/src/core/emotion"
	"moodmusic-server-go/src/core/image"
)

// Config 分类器配置
type Config struct {
	Type        string
	ModelName   string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Detector    string
	Data        map[string]interface{}
}

// NewConfig 由YAML配置转换
func NewConfig(cc configs.ClassifierConfig) *Config {
	timeout, err := time.ParseDuration(cc.Timeout)
	if err != nil || timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxTokens := cc.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 300
	}
	return &Config{
		Type:        strings.ToLower(cc.Type),
		ModelName:   cc.ModelName,
		BaseURL:     strings.TrimSuffix(cc.BaseURL, "/"),
		APIKey:      cc.APIKey,
		Temperature: cc.Temperature,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
		Detector:    cc.Detector,
		Data:        cc.Extra,
	}
}

// Prompt 视觉大模型使用的分类提示词
const Prompt = `You are a facial expression classifier. Look at the person's face in the image and classify their emotion into exactly one of: happy, sad, angry, surprise, fear, neutral, disgust.
If the face is small, blurry or partially hidden, still give your best guess from the whole frame.
Only if there is no person at all, set "face_detected" to false and "dominant_emotion" to "".
Reply with a single JSON object and nothing else:
{"dominant_emotion": "<label>", "emotion": {"happy": 0-100, "sad": 0-100, "angry": 0-100, "surprise": 0-100, "fear": 0-100, "neutral": 0-100, "disgust": 0-100}, "face_detected": true}`

// labelAliases 大模型常见的同义词
var labelAliases = map[string]emotion.Label{
	"surprised": emotion.Surprise,
	"shocked":   emotion.Surprise,
	"afraid":    emotion.Fear,
	"scared":    emotion.Fear,
	"fearful":   emotion.Fear,
	"disgusted": emotion.Disgust,
	"sadness":   emotion.Sad,
	"anger":     emotion.Angry,
	"joy":       emotion.Happy,
	"calm":      emotion.Neutral,
}

// CanonicalLabel 将同义词映射为标准标签，其他值只做大小写规范化
func CanonicalLabel(s string) string {
	l := emotion.Normalize(s)
	if alias, ok := labelAliases[string(l)]; ok {
		return string(alias)
	}
	return string(l)
}

type llmReply struct {
	DominantEmotion string             `json:"dominant_emotion"`
	Emotion         map[string]float64 `json:"emotion"`
	FaceDetected    *bool              `json:"face_detected"`
}

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	errNoJSON  = errors.New("no JSON object in model reply")
)

// ParseReply 解析大模型的JSON回复；没有人脸时返回nil结果
func ParseReply(text string) (*emotion.Analysis, error) {
	// 去掉思考标签
	text = thinkBlock.ReplaceAllString(text, "")
	start := strings.Index(text, "{")
	if start < 0 {
		return nil, errNoJSON
	}

	// 只解码第一个JSON对象，忽略其后的说明文字
	var reply llmReply
	if err := json.NewDecoder(strings.NewReader(text[start:])).Decode(&reply); err != nil {
		return nil, fmt.Errorf("parse model reply: %w", err)
	}

	if reply.FaceDetected != nil && !*reply.FaceDetected {
		return nil, nil
	}

	analysis := &emotion.Analysis{
		Dominant: CanonicalLabel(reply.DominantEmotion),
	}
	if len(reply.Emotion) > 0 {
		analysis.Scores = make(map[string]float64, len(reply.Emotion))
		for label, score := range reply.Emotion {
			analysis.Scores[CanonicalLabel(label)] += score
		}
	}
	return analysis, nil
}

// EncodeBase64JPEG 将图片编码为base64 JPEG，返回数据与MIME类型
func EncodeBase64JPEG(img *image.DecodedImage) (string, string, error) {
	data, err := image.EncodeJPEG(img, 90)
	if err != nil {
		return "", "", err
	}
	return base64.StdEncoding.EncodeToString(data), "image/jpeg", nil
}

// DataURI 以data URI形式编码图片
func DataURI(img *image.DecodedImage) (string, error) {
	b64, mime, err := EncodeBase64JPEG(img)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", mime, b64), nil
}
