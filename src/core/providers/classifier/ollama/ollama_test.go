package ollama

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

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p, err := NewProvider(&classifier.Config{
		BaseURL:   srv.URL,
		ModelName: "llava:7b",
		Timeout:   5 * time.Second,
	}, utils.NewWriterLogger("error", io.Discard))
	require.NoError(t, err)
	return p.(*Provider)
}

func TestClassify(t *testing.T) {
	var got ChatRequest
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"model":"llava:7b","message":{"role":"assistant","content":"{\"dominant_emotion\":\"fear\"}"},"done":true}`)
	})

	img := &image.DecodedImage{Width: 2, Height: 2, Pix: make([]uint8, 12)}
	analysis, err := p.Classify(context.Background(), img)
	require.NoError(t, err)
	assert.Equal(t, "fear", analysis.Dominant)

	assert.Equal(t, "llava:7b", got.Model)
	assert.False(t, got.Stream)
	assert.Equal(t, "json", got.Format)
	require.Len(t, got.Messages, 1)
	assert.Len(t, got.Messages[0].Images, 1)
}

func TestClassifyError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"error":"model \"llava:7b\" not found"}`)
	})
	img := &image.DecodedImage{Width: 2, Height: 2, Pix: make([]uint8, 12)}
	_, err := p.Classify(context.Background(), img)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestInitialize(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/show", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"modelfile":"..."}`)
	})
	assert.NoError(t, p.Initialize(context.Background()))

	missing := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	assert.Error(t, missing.Initialize(context.Background()))
}

func TestNewProviderRequiresModel(t *testing.T) {
	_, err := NewProvider(&classifier.Config{}, utils.NewWriterLogger("error", io.Discard))
	assert.Error(t, err)
}
