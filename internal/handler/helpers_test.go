package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"cartoonify/internal/capture"
	"cartoonify/internal/config"
	"cartoonify/internal/filter"
	"cartoonify/internal/logger"
	"cartoonify/internal/repository/sqlite"
	"cartoonify/internal/service"
	"cartoonify/internal/service/websocket"
	"cartoonify/internal/storage"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// frameSource serves limit copies of a solid frame.
type frameSource struct {
	frame gocv.Mat
	limit int
	reads int
}

func (s *frameSource) Read(dst *gocv.Mat) bool {
	if s.reads >= s.limit {
		return false
	}
	s.reads++
	s.frame.CopyTo(dst)
	return true
}

func (s *frameSource) Close() error { return nil }

type discardSink struct{ written int }

func (s *discardSink) Write(gocv.Mat) error {
	s.written++
	return nil
}

func (s *discardSink) Close() error { return nil }

type testServer struct {
	manager *service.Manager
	cfg     *config.Config
	logger  *logger.Logger
	repo    *sqlite.VideoJobRepository
	hub     *websocket.HubService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		LogDirectory:    filepath.Join(root, "logs"),
		UploadDirectory: filepath.Join(root, "uploads"),
		OutputDirectory: filepath.Join(root, "output"),
		StreamInterval:  time.Millisecond,
		MaxUploadSize:   1 << 20,
		VideoCodec:      "mp4v",
		ProgressEvery:   10,
		AllowedOrigins:  []string{"*"},
		Filter:          filter.DefaultParams(),
	}

	log := logger.NewLogger(cfg)
	t.Cleanup(func() { log.Close() })

	db, err := sqlite.New(filepath.Join(root, "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := websocket.NewHubService(log)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(cancel)

	repo := sqlite.NewVideoJobRepository(db)
	manager := service.NewManager(cfg, log, repo, storage.NewVideoStore(cfg, log), hub, nil)

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(30, 90, 160, 0), 24, 32, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })

	manager.OpenCamera = func() (capture.Source, error) {
		return &frameSource{frame: frame, limit: 2}, nil
	}
	manager.OpenVideo = func(string) (capture.Source, capture.Properties, error) {
		return &frameSource{frame: frame, limit: 4}, capture.Properties{Width: 32, Height: 24, FPS: 25, FrameCount: 4}, nil
	}
	manager.CreateVideo = func(string, string, capture.Properties) (capture.Sink, error) {
		return &discardSink{}, nil
	}

	return &testServer{manager: manager, cfg: cfg, logger: log, repo: repo, hub: hub}
}

// multipartRequest builds a POST with one file field, or no field when field is empty.
func multipartRequest(t *testing.T, path, field, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if field != "" {
		part, err := writer.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, writer.WriteField("note", "nothing here"))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func jpegBytes(t *testing.T, rows, cols int) []byte {
	t.Helper()

	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(200, 100, 50, 0), rows, cols, gocv.MatTypeCV8UC3)
	defer frame.Close()

	data, err := filter.EncodeJPEG(frame)
	require.NoError(t, err)
	return data
}
