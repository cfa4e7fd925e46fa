package mood

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"moodmusic-server-go/src/core/emotion"
	"moodmusic-server-go/src/core/image"
	"moodmusic-server-go/src/core/pipeline"
	"moodmusic-server-go/src/core/recommend"
	"moodmusic-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAnalyzer struct {
	err      error
	received [][]byte
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, data []byte) (*pipeline.Outcome, error) {
	f.received = append(f.received, data)
	if len(data) == 0 {
		return nil, pipeline.ErrNoCapture
	}
	if f.err != nil {
		return nil, f.err
	}
	entry, _ := recommend.Lookup("happy")
	return &pipeline.Outcome{CaptureID: "c1", Emotion: emotion.Happy, Emoji: emotion.Happy.Emoji(), Recommendation: entry}, nil
}

func (f *fakeAnalyzer) Ready() bool                 { return true }
func (f *fakeAnalyzer) Metrics() image.ImageMetrics { return image.ImageMetrics{FramesReceived: 3} }

func newTestRouter(t *testing.T, analyzer Analyzer) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	svc := NewDefaultMoodService(analyzer, 1024, utils.NewWriterLogger("error", io.Discard))
	require.NoError(t, svc.Start(context.Background(), router, router.Group("/api")))
	return router
}

func multipartBody(t *testing.T, field string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile(field, "capture.jpg")
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) MoodResponse {
	t.Helper()
	var resp MoodResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestPostMultipartSuccess(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	router := newTestRouter(t, analyzer)

	body, ctype := multipartBody(t, "file", []byte("jpeg-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/mood", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, emotion.Happy, resp.Result.Emotion)
	assert.Equal(t, "https://www.youtube.com/results?search_query=latest+telugu+party+songs+bounce", resp.Result.Recommendation.URL)
	assert.Equal(t, [][]byte{[]byte("jpeg-bytes")}, analyzer.received)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestPostRawBody(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	router := newTestRouter(t, analyzer)

	req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader("raw"))
	req.Header.Set("Content-Type", "image/jpeg")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, [][]byte{[]byte("raw")}, analyzer.received)
}

func TestPostErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
		msg    string
	}{
		{"no face", pipeline.ErrNoFaceDetected, http.StatusUnprocessableEntity, KindNoFace, "No face detected"},
		{"undecodable", &pipeline.AnalysisError{Stage: pipeline.StageDecode, Err: errors.New("bad bytes")}, http.StatusBadRequest, KindAnalysisFailure, "bad bytes"},
		{"classifier", &pipeline.AnalysisError{Stage: pipeline.StageClassify, Err: errors.New("model down")}, http.StatusInternalServerError, KindAnalysisFailure, "model down"},
		{"cancelled", context.Canceled, http.StatusServiceUnavailable, KindAnalysisFailure, "canceled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newTestRouter(t, &fakeAnalyzer{err: tt.err})
			req := httptest.NewRequest(http.MethodPost, "/api/mood", strings.NewReader("frame"))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			assert.Nil(t, resp.Result, "no recommendation on failure")
			assert.Equal(t, tt.kind, resp.Kind)
			assert.Contains(t, resp.Message, tt.msg)
		})
	}
}

func TestPostWithoutImage(t *testing.T) {
	router := newTestRouter(t, &fakeAnalyzer{})

	body, ctype := multipartBody(t, "other", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/mood", body)
	req.Header.Set("Content-Type", ctype)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, KindNoCapture, decode(t, rec).Kind)
}

func TestPostTooLarge(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	router := newTestRouter(t, analyzer)

	req := httptest.NewRequest(http.MethodPost, "/api/mood", bytes.NewReader(make([]byte, 2048)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, analyzer.received)
}

func TestStatusAndRecommendations(t *testing.T) {
	router := newTestRouter(t, &fakeAnalyzer{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/mood", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.True(t, status.Ready)
	assert.Equal(t, int64(3), status.Metrics.FramesReceived)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/recommendations", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list RecommendationsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list.Recommendations, len(emotion.Labels))

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/mood", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), "POST")
}

func TestIndexPage(t *testing.T) {
	router := newTestRouter(t, &fakeAnalyzer{})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Analyze My Mood")
	assert.Contains(t, rec.Body.String(), "Open YouTube Playlist Now")
}

func TestWebSocketFrames(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	srv := httptest.NewServer(newTestRouter(t, analyzer))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/mood"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("frame-1")))
	var resp MoodResponse
	require.NoError(t, conn.ReadJSON(&resp))
	assert.True(t, resp.Success)

	uri := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString([]byte("frame-2"))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(uri)))
	resp = MoodResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.True(t, resp.Success)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("%%%")))
	resp = MoodResponse{}
	require.NoError(t, conn.ReadJSON(&resp))
	assert.False(t, resp.Success)
	assert.Equal(t, KindNoCapture, resp.Kind)

	assert.Equal(t, [][]byte{[]byte("frame-1"), []byte("frame-2")}, analyzer.received)
}

func TestDecodeDataURI(t *testing.T) {
	data, err := decodeDataURI("data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("abc")))
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), data)

	data, err = decodeDataURI("")
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = decodeDataURI("data:image/png,abc")
	assert.Error(t, err)
}
