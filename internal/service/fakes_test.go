package service

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cartoonify/internal/capture"
	"cartoonify/internal/config"
	"cartoonify/internal/filter"
	"cartoonify/internal/logger"
	"cartoonify/internal/repository/sqlite"
	"cartoonify/internal/storage"

	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// fakeSource yields copies of one synthetic frame. limit < 0 means endless.
type fakeSource struct {
	frame  gocv.Mat
	limit  int
	reads  int
	closed bool
}

func newFakeSource(t *testing.T, limit, rows, cols int) *fakeSource {
	t.Helper()
	frame := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(40, 120, 200, 0), rows, cols, gocv.MatTypeCV8UC3)
	t.Cleanup(func() { frame.Close() })
	return &fakeSource{frame: frame, limit: limit}
}

func (s *fakeSource) Read(dst *gocv.Mat) bool {
	if s.closed || (s.limit >= 0 && s.reads >= s.limit) {
		return false
	}
	s.reads++
	s.frame.CopyTo(dst)
	return true
}

func (s *fakeSource) Close() error {
	s.closed = true
	return nil
}

// fakeSink counts written frames and fails on write number failAt (1-based) when set.
type fakeSink struct {
	mu      sync.Mutex
	written int
	rows    int
	cols    int
	failAt  int
	closed  bool
}

func (s *fakeSink) Write(img gocv.Mat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAt > 0 && s.written+1 == s.failAt {
		return errors.New("disk full")
	}
	s.written++
	s.rows, s.cols = img.Rows(), img.Cols()
	return nil
}

func (s *fakeSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

type testEnv struct {
	manager *Manager
	cfg     *config.Config
	repo    *sqlite.VideoJobRepository
	sink    *fakeSink
	props   capture.Properties
	created capture.Properties
}

// newTestEnv builds a Manager backed by a temp SQLite file and temp directories,
// with capture replaced by fakes that serve frames of the given size.
func newTestEnv(t *testing.T, source func() capture.Source, props capture.Properties) *testEnv {
	t.Helper()

	root := t.TempDir()
	cfg := &config.Config{
		LogDirectory:    filepath.Join(root, "logs"),
		UploadDirectory: filepath.Join(root, "uploads"),
		OutputDirectory: filepath.Join(root, "output"),
		StreamInterval:  time.Millisecond,
		VideoCodec:      "mp4v",
		ProgressEvery:   5,
		Filter:          filter.DefaultParams(),
	}

	log := logger.NewLogger(cfg)
	t.Cleanup(func() { log.Close() })

	db, err := sqlite.New(filepath.Join(root, "jobs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		cfg:   cfg,
		repo:  sqlite.NewVideoJobRepository(db),
		sink:  &fakeSink{},
		props: props,
	}
	env.manager = NewManager(cfg, log, env.repo, storage.NewVideoStore(cfg, log), nil, nil)
	env.manager.OpenCamera = func() (capture.Source, error) {
		return source(), nil
	}
	env.manager.OpenVideo = func(string) (capture.Source, capture.Properties, error) {
		return source(), env.props, nil
	}
	env.manager.CreateVideo = func(_, _ string, p capture.Properties) (capture.Sink, error) {
		env.created = p
		return env.sink, nil
	}
	return env
}
