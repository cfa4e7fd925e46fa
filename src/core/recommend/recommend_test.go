package recommend

import (
	"testing"

	"moodmusic-server-go/src/core/emotion"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookupHappy(t *testing.T) {
	entry, fallback := Lookup("happy")
	assert.False(t, fallback)
	assert.Equal(t, "😄 High-Energy Telugu Pop & Dance Hits", entry.Text)
	assert.Equal(t, "https://www.youtube.com/results?search_query=latest+telugu+party+songs+bounce", entry.URL)
}

func TestLookupEveryLabel(t *testing.T) {
	want := map[string]string{
		"happy":    "https://www.youtube.com/results?search_query=latest+telugu+party+songs+bounce",
		"sad":      "https://www.youtube.com/results?search_query=best+telugu+melody+songs+for+sad+mood",
		"angry":    "https://www.youtube.com/results?search_query=telugu+instrumental+meditation+music+relax",
		"surprise": "https://www.youtube.com/results?search_query=hit+telugu+title+songs+mashup",
		"fear":     "https://www.youtube.com/results?search_query=telugu+motivational+songs+jukebox",
		"neutral":  "https://www.youtube.com/results?search_query=telugu+instrumental+bgm+for+concentration",
		"disgust":  "https://www.youtube.com/results?search_query=evergreen+telugu+romantic+hits+feel+good",
	}
	require.Len(t, want, len(emotion.Labels))
	for _, l := range emotion.Labels {
		entry, fallback := Lookup(string(l))
		assert.False(t, fallback, l)
		assert.Equal(t, want[string(l)], entry.URL, l)
		assert.NotEmpty(t, entry.Text, l)
	}
}

func TestLookupNormalizesCase(t *testing.T) {
	upper, fallback := Lookup(" ANGRY ")
	assert.False(t, fallback)
	lower, _ := Lookup("angry")
	assert.Equal(t, lower, upper)
}

func TestLookupFallsBackToNeutral(t *testing.T) {
	neutral, _ := Lookup("neutral")
	for _, label := range []string{"", "contempt", "surprised", "Bored", "😀"} {
		entry, fallback := Lookup(label)
		assert.True(t, fallback, label)
		assert.Equal(t, neutral, entry, label)
	}
}

func TestAllCoversEveryLabelInOrder(t *testing.T) {
	items := All()
	require.Len(t, items, len(emotion.Labels))
	for i, l := range emotion.Labels {
		assert.Equal(t, l, items[i].Emotion)
		entry, _ := Lookup(string(l))
		assert.Equal(t, entry, items[i].Entry)
	}
}
