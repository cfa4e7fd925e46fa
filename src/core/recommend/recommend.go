package recommend

import (
	"moodmusic-server-go/src/core/emotion"
)

// Entry 一条音乐推荐
type Entry struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// table 情绪到泰卢固语音乐推荐的固定映射，进程启动后不再修改
var table = map[emotion.Label]Entry{
	emotion.Happy: {
		Text: "😄 High-Energy Telugu Pop & Dance Hits",
		URL:  "https://www.youtube.com/results?search_query=latest+telugu+party+songs+bounce",
	},
	emotion.Sad: {
		Text: "😌 Soothing Telugu Melody Songs (Comforting)",
		URL:  "https://www.youtube.com/results?search_query=best+telugu+melody+songs+for+sad+mood",
	},
	emotion.Angry: {
		Text: "🧘 Peaceful Telugu Instrumental Music (Calm Down)",
		URL:  "https://www.youtube.com/results?search_query=telugu+instrumental+meditation+music+relax",
	},
	emotion.Surprise: {
		Text: "🤯 Upbeat Telugu Title Tracks & Mashups",
		URL:  "https://www.youtube.com/results?search_query=hit+telugu+title+songs+mashup",
	},
	emotion.Fear: {
		Text: "🛡️ Classic Telugu Devotional or Motivational Songs",
		URL:  "https://www.youtube.com/results?search_query=telugu+motivational+songs+jukebox",
	},
	emotion.Neutral: {
		Text: "☕ Background Telugu Instrumental Tracks",
		URL:  "https://www.youtube.com/results?search_query=telugu+instrumental+bgm+for+concentration",
	},
	emotion.Disgust: {
		Text: "🌟 Ultimate Telugu Feel-Good Romantic Jams",
		URL:  "https://www.youtube.com/results?search_query=evergreen+telugu+romantic+hits+feel+good",
	},
}

// Lookup 规范化标签后查表，未命中时回退到neutral；fallback表示是否发生了回退
func Lookup(label string) (entry Entry, fallback bool) {
	if e, ok := table[emotion.Normalize(label)]; ok {
		return e, false
	}
	return table[emotion.Neutral], true
}

// Item 推荐列表中的一项
type Item struct {
	Emotion emotion.Label `json:"emotion"`
	Entry
}

// All 按固定情绪顺序返回完整推荐表
func All() []Item {
	items := make([]Item, 0, len(emotion.Labels))
	for _, l := range emotion.Labels {
		items = append(items, Item{Emotion: l, Entry: table[l]})
	}
	return items
}
