package service

import (
	"context"
	"fmt"
	"time"

	"cartoonify/internal/dto"
	"cartoonify/internal/filter"
	"cartoonify/internal/metrics"

	"gocv.io/x/gocv"
	"golang.org/x/time/rate"
)

// Terminal stream event messages.
const (
	MsgWebcamOpen   = "Could not open webcam"
	MsgFrameRead    = "Could not read frame from webcam"
	MsgFrameProcess = "Could not process frame"
)

// EmitFunc delivers one stream event (a dto.FramePair or dto.ErrorResponse) to the client.
type EmitFunc func(event interface{}) error

// StreamWebcam opens the camera and emits original/cartoon pairs paced by the
// configured interval until ctx is cancelled or a frame cannot be read or processed.
// Every failure ends the stream with one error event. A cancelled ctx returns nil.
func (m *Manager) StreamWebcam(ctx context.Context, emit EmitFunc) error {
	src, err := m.OpenCamera()
	if err != nil {
		m.logger.Error("Failed to open webcam: %v", err)
		emit(dto.ErrorResponse{Error: MsgWebcamOpen})
		return err
	}
	defer src.Close()

	m.metrics.StreamOpened()
	defer m.metrics.StreamClosed()
	m.logger.Info("Webcam stream started")

	limiter := rate.NewLimiter(rate.Every(m.config.StreamInterval), 1)
	frame := gocv.NewMat()
	defer frame.Close()

	frames := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			m.logger.Info("Webcam stream closed by client after %d frames", frames)
			return nil
		}

		if ok := src.Read(&frame); !ok || frame.Empty() {
			m.logger.Error("Failed to read frame from webcam after %d frames", frames)
			emit(dto.ErrorResponse{Error: MsgFrameRead})
			return ErrFrameRead
		}

		start := time.Now()
		pair, err := filter.Pair(frame, m.config.Filter)
		m.metrics.ObserveFrame(metrics.ModeStream, time.Since(start), err)
		if err != nil {
			m.logger.Error("Failed to process webcam frame: %v", err)
			emit(dto.ErrorResponse{Error: MsgFrameProcess})
			return fmt.Errorf("failed to process frame: %w", err)
		}

		if err := emit(pair); err != nil {
			// Klient rozłączony
			m.logger.Info("Webcam stream ended, client write failed: %v", err)
			return nil
		}
		frames++
	}
}
