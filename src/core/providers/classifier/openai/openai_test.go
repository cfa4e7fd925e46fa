package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"moodmusic-server-go/src/core/image"
	"moodmusic-server-go/src/core/providers/classifier"
	"moodmusic-server-go/src/core/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completion(content string) string {
	body, _ := json.Marshal(map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			},
		},
	})
	return string(body)
}

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewProvider(&classifier.Config{
		APIKey:    "sk-test",
		BaseURL:   srv.URL + "/v1",
		MaxTokens: 100,
		Timeout:   5 * time.Second,
	}, utils.NewWriterLogger("error", io.Discard))
	require.NoError(t, err)
	require.NoError(t, p.Initialize(context.Background()))
	return p.(*Provider)
}

func testImage() *image.DecodedImage {
	return &image.DecodedImage{Width: 2, Height: 2, Pix: make([]uint8, 12)}
}

func TestClassify(t *testing.T) {
	var req map[string]interface{}
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion(`{"dominant_emotion":"Angry","emotion":{"angry":80,"neutral":20},"face_detected":true}`))
	})

	analysis, err := p.Classify(context.Background(), testImage())
	require.NoError(t, err)
	assert.Equal(t, "angry", analysis.Dominant)
	assert.Equal(t, 80.0, analysis.Scores["angry"])
	assert.Equal(t, "gpt-4o-mini", req["model"])
}

func TestClassifyNoFace(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, completion(`{"dominant_emotion":"","face_detected":false}`))
	})
	analysis, err := p.Classify(context.Background(), testImage())
	require.NoError(t, err)
	assert.Nil(t, analysis)
}

func TestClassifyAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"error":{"message":"boom","type":"server_error"}}`)
	})
	_, err := p.Classify(context.Background(), testImage())
	require.Error(t, err)
}

func TestInitializeRequiresKey(t *testing.T) {
	p, err := NewProvider(&classifier.Config{}, utils.NewWriterLogger("error", io.Discard))
	require.NoError(t, err)
	assert.Error(t, p.Initialize(context.Background()))
}
