package handler

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"cartoonify/internal/capture"
	"cartoonify/internal/dto"
	"cartoonify/internal/filter"
	"cartoonify/internal/model"
	"cartoonify/internal/service"

	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (ts *testServer) mux() *http.ServeMux {
	upgrader := NewUpgrader(ts.cfg)
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", IndexHandler())
	mux.HandleFunc("POST /process-image", ProcessImageHandler(ts.manager, ts.cfg, ts.logger))
	mux.HandleFunc("POST /process-video", ProcessVideoHandler(ts.manager, ts.cfg, ts.logger))
	mux.HandleFunc("GET /webcam-feed", WebcamFeedHandler(ts.manager, ts.logger))
	mux.HandleFunc("GET /ws/webcam-feed", WebcamSocketHandler(ts.manager, upgrader, ts.logger))
	mux.HandleFunc("GET /videos", ListVideosHandler(ts.manager, ts.logger))
	mux.HandleFunc("GET /videos/{id}", GetVideoHandler(ts.manager, ts.logger))
	mux.HandleFunc("GET /videos/{id}/download", DownloadVideoHandler(ts.manager, ts.logger))
	mux.HandleFunc("DELETE /videos/{id}", DeleteVideoHandler(ts.manager, ts.logger))
	mux.HandleFunc("GET /ws/progress", ProgressSocketHandler(ts.manager, upgrader, ts.logger))
	mux.HandleFunc("GET /logs/{level}", ShowLogsHandler(ts.cfg))
	return mux
}

func (ts *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ts.mux().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

// ========================================
// Index
// ========================================

func TestIndexHandler(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Cartoonify API is running!", rec.Body.String())
}

// ========================================
// Image Endpoint
// ========================================

func TestProcessImage_MissingField(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(multipartRequest(t, "/process-image", "", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "No image provided"}`, rec.Body.String())
}

func TestProcessImage_NotMultipart(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodPost, "/process-image", strings.NewReader("raw")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgNoImage, decodeError(t, rec))
}

func TestProcessImage_Undecodable(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(multipartRequest(t, "/process-image", "image", "x.jpg", []byte("not an image")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgDecodeImage, decodeError(t, rec))
}

func TestProcessImage_TooLarge(t *testing.T) {
	ts := newTestServer(t)
	ts.cfg.MaxUploadSize = 64

	rec := ts.do(multipartRequest(t, "/process-image", "image", "big.jpg", make([]byte, 4096)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, MsgUploadTooLarge, decodeError(t, rec))
}

func TestProcessImage_Success(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(multipartRequest(t, "/process-image", "image", "photo.jpg", jpegBytes(t, 48, 64)))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var pair dto.FramePair
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pair))

	raw, err := base64.StdEncoding.DecodeString(pair.Original)
	require.NoError(t, err)
	original, err := filter.Decode(raw)
	require.NoError(t, err)
	defer original.Close()
	assert.Equal(t, 48, original.Rows())
	assert.Equal(t, 64, original.Cols())

	raw, err = base64.StdEncoding.DecodeString(pair.Cartoon)
	require.NoError(t, err)
	cartoon, err := filter.Decode(raw)
	require.NoError(t, err)
	defer cartoon.Close()
	assert.Equal(t, 48, cartoon.Rows())
	assert.Equal(t, 64, cartoon.Cols())
}

// ========================================
// Stream Endpoint
// ========================================

func TestWebcamFeed_SSE(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/webcam-feed", nil))

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))

	var events []string
	scanner := bufio.NewScanner(rec.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		if line := scanner.Text(); strings.HasPrefix(line, "data: ") {
			events = append(events, strings.TrimPrefix(line, "data: "))
		}
	}

	// Two frames, then the camera runs dry.
	require.Len(t, events, 3)
	var pair dto.FramePair
	require.NoError(t, json.Unmarshal([]byte(events[0]), &pair))
	assert.NotEmpty(t, pair.Original)
	assert.NotEmpty(t, pair.Cartoon)
	assert.JSONEq(t, `{"error": "Could not read frame from webcam"}`, events[2])
}

func TestWebcamFeed_OpenFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.manager.OpenCamera = func() (capture.Source, error) {
		return nil, capture.ErrOpen
	}

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/webcam-feed", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "data: {\"error\":\"Could not open webcam\"}\n\n", rec.Body.String())
}

func TestWebcamSocket(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.mux())
	defer server.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/webcam-feed", nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for i := 0; i < 2; i++ {
		var pair dto.FramePair
		require.NoError(t, conn.ReadJSON(&pair))
		assert.NotEmpty(t, pair.Cartoon)
	}

	var last dto.ErrorResponse
	require.NoError(t, conn.ReadJSON(&last))
	assert.Equal(t, service.MsgFrameRead, last.Error)
}

// ========================================
// Video Endpoint
// ========================================

func TestProcessVideo_MissingField(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(multipartRequest(t, "/process-video", "", "", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error": "No video provided"}`, rec.Body.String())
}

func TestProcessVideo_OpenFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.manager.OpenVideo = func(string) (capture.Source, capture.Properties, error) {
		return nil, capture.Properties{}, capture.ErrOpen
	}

	rec := ts.do(multipartRequest(t, "/process-video", "video", "clip.mp4", []byte("garbage")))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, MsgOpenVideo, decodeError(t, rec))
}

func TestProcessVideo_CreateFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.manager.CreateVideo = func(string, string, capture.Properties) (capture.Sink, error) {
		return nil, capture.ErrCreate
	}

	rec := ts.do(multipartRequest(t, "/process-video", "video", "clip.mp4", []byte("bytes")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, MsgCreateVideo, decodeError(t, rec))
}

func TestProcessVideo_Success(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(multipartRequest(t, "/process-video", "video", "clip.mp4", []byte("bytes")))
	require.Equal(t, http.StatusOK, rec.Code)

	var result dto.VideoResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "Video processed successfully", result.Message)
	assert.Equal(t, 100, result.Progress)
	assert.Equal(t, 4, result.Frames)
	assert.Equal(t, model.StatusCompleted, result.Status)
	assert.Equal(t, "/videos/"+result.JobID+"/download", result.DownloadURL)

	job, err := ts.repo.GetByID(result.JobID)
	require.NoError(t, err)
	assert.Equal(t, "clip.mp4", job.SourceName)
}

// ========================================
// Video Jobs
// ========================================

func TestVideoJobs_GetAndList(t *testing.T) {
	ts := newTestServer(t)
	now := time.Now().UTC()
	require.NoError(t, ts.repo.Insert(&model.VideoJob{ID: "a", SourceName: "a.mp4", Status: model.StatusCompleted, TotalFrames: 10, ProcessedFrames: 10, CreatedAt: now}))
	require.NoError(t, ts.repo.Insert(&model.VideoJob{ID: "b", SourceName: "b.mp4", Status: model.StatusFailed, CreatedAt: now.Add(time.Second)}))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/videos/a", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var view map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "a", view["id"])
	assert.Equal(t, float64(100), view["progress"])
	assert.Equal(t, "/videos/a/download", view["download_url"])
	assert.NotContains(t, view, "OutputPath")

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/videos?status=failed", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list dto.VideoJobList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Total)
	require.Len(t, list.Jobs, 1)
	assert.Equal(t, "b", list.Jobs[0].ID)
	assert.Equal(t, 20, list.Limit)

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/videos?status=bogus", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestVideoJobs_NotFound(t *testing.T) {
	ts := newTestServer(t)

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/videos/nope", nil),
		httptest.NewRequest(http.MethodGet, "/videos/nope/download", nil),
		httptest.NewRequest(http.MethodDelete, "/videos/nope", nil),
	} {
		rec := ts.do(req)
		assert.Equal(t, http.StatusNotFound, rec.Code, req.Method+" "+req.URL.Path)
		assert.Equal(t, MsgJobNotFound, decodeError(t, rec))
	}
}

func TestVideoJobs_DownloadAndDelete(t *testing.T) {
	ts := newTestServer(t)

	require.NoError(t, os.MkdirAll(ts.cfg.OutputDirectory, 0755))
	output := ts.cfg.OutputDirectory + "/done.mp4"
	require.NoError(t, os.WriteFile(output, []byte("fake mp4"), 0644))
	require.NoError(t, ts.repo.Insert(&model.VideoJob{ID: "done", Status: model.StatusCompleted, OutputPath: output, CreatedAt: time.Now()}))
	require.NoError(t, ts.repo.Insert(&model.VideoJob{ID: "running", Status: model.StatusProcessing, CreatedAt: time.Now()}))

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/videos/done/download", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fake mp4", rec.Body.String())
	assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/videos/running/download", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, MsgVideoNotReady, decodeError(t, rec))

	rec = ts.do(httptest.NewRequest(http.MethodDelete, "/videos/running", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = ts.do(httptest.NewRequest(http.MethodDelete, "/videos/done", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "deleted", "id": "done"}`, rec.Body.String())
	_, err := os.Stat(output)
	assert.True(t, os.IsNotExist(err))
}

// ========================================
// Progress
// ========================================

func TestProgressSocket_ReceivesBroadcast(t *testing.T) {
	ts := newTestServer(t)
	server := httptest.NewServer(ts.mux())
	defer server.Close()

	conn, _, err := gorilla.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws/progress", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return ts.hub.GetClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	ts.hub.Broadcast([]byte(`{"job_id":"x","frames":10,"total_frames":20,"progress":50}`))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event dto.ProgressEvent
	require.NoError(t, conn.ReadJSON(&event))
	assert.Equal(t, "x", event.JobID)
	assert.Equal(t, 50, event.Progress)
}

// ========================================
// Logs
// ========================================

func TestShowLogsHandler(t *testing.T) {
	ts := newTestServer(t)
	ts.logger.Info("hello from test")

	rec := ts.do(httptest.NewRequest(http.MethodGet, "/logs/info", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "hello from test")

	rec = ts.do(httptest.NewRequest(http.MethodGet, "/logs/debug", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
