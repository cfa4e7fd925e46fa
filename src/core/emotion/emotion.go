package emotion

import (
	"sort"
	"strings"
)

// Label 情绪标签
type Label string

const (
	Happy    Label = "happy"
	Sad      Label = "sad"
	Angry    Label = "angry"
	Surprise Label = "surprise"
	Fear     Label = "fear"
	Neutral  Label = "neutral"
	Disgust  Label = "disgust"
)

// Labels 分类器支持的全部情绪，顺序固定
var Labels = []Label{Happy, Sad, Angry, Surprise, Fear, Neutral, Disgust}

// labelEmoji 定义情绪到表情的映射
var labelEmoji = map[Label]string{
	Happy:    "😊",
	Sad:      "😢",
	Angry:    "😠",
	Surprise: "😮",
	Fear:     "😱",
	Neutral:  "😐",
	Disgust:  "🤢",
}

// Normalize 去除空白并转为小写，不做其他校验
func Normalize(s string) Label {
	return Label(strings.ToLower(strings.TrimSpace(s)))
}

// Known 是否属于固定的七种情绪
func (l Label) Known() bool {
	_, ok := labelEmoji[l]
	return ok
}

// Emoji 根据情绪返回对应的表情
func (l Label) Emoji() string {
	if emoji, ok := labelEmoji[l]; ok {
		return emoji
	}
	return labelEmoji[Neutral] // 默认返回中性表情
}

func (l Label) String() string {
	return string(l)
}

// FaceRegion 人脸位置
type FaceRegion struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Score 单个情绪的置信度（0-100）
type Score struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Analysis 分类器对一帧图片的输出
type Analysis struct {
	Dominant       string             `json:"dominant_emotion"`
	Scores         map[string]float64 `json:"emotion,omitempty"`
	Region         *FaceRegion        `json:"region,omitempty"`
	FaceConfidence float64            `json:"face_confidence,omitempty"`
}

// DominantLabel 返回规范化后的主情绪；结果为空或缺少主情绪时ok为false
func (a *Analysis) DominantLabel() (Label, bool) {
	if a == nil {
		return "", false
	}
	l := Normalize(a.Dominant)
	if l == "" {
		return "", false
	}
	return l, true
}

// Ranked 按置信度从高到低排序，置信度相同时按标签排序
func (a *Analysis) Ranked() []Score {
	if a == nil || len(a.Scores) == 0 {
		return nil
	}
	ranked := make([]Score, 0, len(a.Scores))
	for label, conf := range a.Scores {
		ranked = append(ranked, Score{Label: string(Normalize(label)), Confidence: conf})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		return ranked[i].Label < ranked[j].Label
	})
	return ranked
}
