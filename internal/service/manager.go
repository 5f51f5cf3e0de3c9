package service

import (
	"errors"
	"fmt"
	"time"

	"cartoonify/internal/capture"
	"cartoonify/internal/config"
	"cartoonify/internal/dto"
	"cartoonify/internal/filter"
	"cartoonify/internal/logger"
	"cartoonify/internal/metrics"
	"cartoonify/internal/model"
	"cartoonify/internal/repository"
	"cartoonify/internal/service/websocket"
	"cartoonify/internal/storage"
)

var (
	// ErrFrameRead is returned when the webcam stops delivering frames.
	ErrFrameRead = errors.New("could not read frame from webcam")
	// ErrVideoProcessing wraps failures that happen after the output video was opened.
	ErrVideoProcessing = errors.New("video processing failed")
	// ErrNotReady is returned when a job has no downloadable output.
	ErrNotReady = errors.New("video not ready")
	// ErrJobBusy is returned when deleting a job that is still being processed.
	ErrJobBusy = errors.New("video job is still processing")
)

// MsgInterrupted is stored on jobs that were still running when the server stopped.
const MsgInterrupted = "interrupted: server stopped before the video finished"

// Manager ties the frame filter to its three delivery modes and owns the video job lifecycle.
type Manager struct {
	config  *config.Config
	logger  *logger.Logger
	jobs    repository.VideoJobRepository
	store   *storage.VideoStore
	hub     *websocket.HubService
	metrics *metrics.Collector

	// Capture constructors, replaceable in tests.
	OpenCamera  func() (capture.Source, error)
	OpenVideo   func(path string) (capture.Source, capture.Properties, error)
	CreateVideo func(path, codec string, props capture.Properties) (capture.Sink, error)
}

// NewManager wires the processing services. jobs, store, hub and metrics may be
// nil for offline use, in which case only ProcessImage, StreamWebcam and
// ConvertVideo are available.
func NewManager(cfg *config.Config, logger *logger.Logger, jobs repository.VideoJobRepository, store *storage.VideoStore, hub *websocket.HubService, collector *metrics.Collector) *Manager {
	return &Manager{
		config:  cfg,
		logger:  logger,
		jobs:    jobs,
		store:   store,
		hub:     hub,
		metrics: collector,

		OpenCamera: func() (capture.Source, error) {
			return capture.OpenCamera(cfg.CameraDevice)
		},
		OpenVideo:   capture.OpenVideo,
		CreateVideo: capture.CreateVideo,
	}
}

func (m *Manager) GetHubService() *websocket.HubService {
	return m.hub
}

// ProcessImage decodes an uploaded image and returns it with its cartoon version.
func (m *Manager) ProcessImage(data []byte) (dto.FramePair, error) {
	frame, err := filter.Decode(data)
	if err != nil {
		return dto.FramePair{}, err
	}
	defer frame.Close()

	start := time.Now()
	pair, err := filter.Pair(frame, m.config.Filter)
	m.metrics.ObserveFrame(metrics.ModeImage, time.Since(start), err)
	if err != nil {
		m.logger.Error("Failed to cartoonify image: %v", err)
		return dto.FramePair{}, fmt.Errorf("failed to process image: %w", err)
	}

	return pair, nil
}

// GetJob returns a single video job.
func (m *Manager) GetJob(id string) (*model.VideoJob, error) {
	return m.jobs.GetByID(id)
}

// ListJobs returns a page of jobs and the total number matching the filter.
func (m *Manager) ListJobs(f *model.VideoJobFilter) ([]model.VideoJob, int, error) {
	jobs, err := m.jobs.GetAll(f)
	if err != nil {
		return nil, 0, err
	}
	total, err := m.jobs.GetTotalCount(f)
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// DownloadPath returns the output file of a finished job.
func (m *Manager) DownloadPath(id string) (*model.VideoJob, error) {
	job, err := m.jobs.GetByID(id)
	if err != nil {
		return nil, err
	}
	if !job.Downloadable() || job.OutputPath == "" {
		return job, ErrNotReady
	}
	return job, nil
}

// FailInterruptedJobs marks jobs left in processing by a previous run as failed,
// so they can be listed and deleted. It must run before any new video is accepted.
func (m *Manager) FailInterruptedJobs() (int64, error) {
	if m.jobs == nil {
		return 0, nil
	}
	n, err := m.jobs.FailInterrupted(MsgInterrupted, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < n; i++ {
		m.metrics.VideoJobFinished(model.StatusFailed)
	}
	if n > 0 {
		m.logger.Warning("Marked %d interrupted video jobs as failed", n)
	}
	return n, nil
}

// DeleteJob removes a finished job and its output file.
func (m *Manager) DeleteJob(id string) error {
	job, err := m.jobs.GetByID(id)
	if err != nil {
		return err
	}
	if job.Status == model.StatusProcessing {
		return ErrJobBusy
	}

	if err := m.store.Remove(job.OutputPath); err != nil {
		m.logger.Warning("Could not remove output of job %s: %v", id, err)
	}
	if err := m.jobs.Delete(id); err != nil {
		return err
	}

	m.logger.Info("Deleted video job %s", id)
	return nil
}
