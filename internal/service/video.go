package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"cartoonify/internal/capture"
	"cartoonify/internal/dto"
	"cartoonify/internal/filter"
	"cartoonify/internal/metrics"
	"cartoonify/internal/model"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// ProgressFunc is called every few frames while a video is converted.
type ProgressFunc func(frames, total int)

// ConvertResult describes a finished (or interrupted) conversion.
type ConvertResult struct {
	Props  capture.Properties
	Frames int
}

// Partial reports whether the source ended before its reported frame count.
// The count comes from the container header, which OpenCV only estimates for
// some formats, so partial means "fewer frames than announced" and not
// necessarily a damaged file. An unknown count (0) never yields partial.
func (r ConvertResult) Partial() bool {
	return r.Props.FrameCount > 0 && r.Frames < r.Props.FrameCount
}

// ConvertVideo cartoonifies every frame of inPath into outPath at the same size and rate.
// Open failures wrap capture.ErrOpen or capture.ErrCreate; anything that goes wrong
// after the output was opened wraps ErrVideoProcessing and Frames holds the number
// of frames written so far.
func (m *Manager) ConvertVideo(ctx context.Context, inPath, outPath string, progress ProgressFunc) (ConvertResult, error) {
	var result ConvertResult

	src, props, err := m.OpenVideo(inPath)
	if err != nil {
		return result, err
	}
	defer src.Close()
	result.Props = props

	sink, err := m.CreateVideo(outPath, m.config.VideoCodec, props)
	if err != nil {
		return result, err
	}

	frames, err := m.processFrames(ctx, src, sink, props.FrameCount, progress)
	result.Frames = frames

	if closeErr := sink.Close(); closeErr != nil && err == nil {
		err = fmt.Errorf("failed to finalize output: %w", closeErr)
	}
	if err == nil && frames == 0 {
		err = errors.New("no frames could be read")
	}
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrVideoProcessing, err)
	}
	return result, nil
}

// processFrames reads src until it is exhausted, writing the filtered frames to sink.
func (m *Manager) processFrames(ctx context.Context, src capture.Source, sink capture.Sink, total int, progress ProgressFunc) (int, error) {
	frame := gocv.NewMat()
	defer frame.Close()

	every := m.config.ProgressEvery
	frames := 0
	for {
		if err := ctx.Err(); err != nil {
			return frames, err
		}

		if ok := src.Read(&frame); !ok || frame.Empty() {
			return frames, nil
		}

		start := time.Now()
		cartoon, err := filter.Cartoonify(frame, m.config.Filter)
		m.metrics.ObserveFrame(metrics.ModeVideo, time.Since(start), err)
		if err != nil {
			return frames, fmt.Errorf("failed to filter frame %d: %w", frames+1, err)
		}

		err = sink.Write(cartoon)
		cartoon.Close()
		if err != nil {
			return frames, fmt.Errorf("failed to write frame %d: %w", frames+1, err)
		}

		frames++
		if progress != nil && every > 0 && frames%every == 0 {
			progress(frames, total)
		}
	}
}

// ProcessVideo stores an uploaded video, converts it and records the job.
// The returned job is non-nil whenever the upload was stored.
func (m *Manager) ProcessVideo(ctx context.Context, upload io.Reader, name string) (*model.VideoJob, error) {
	job := &model.VideoJob{
		ID:         uuid.NewString(),
		SourceName: filepath.Base(name),
		Status:     model.StatusProcessing,
		CreatedAt:  time.Now().UTC(),
	}

	inputPath, err := m.store.SaveUpload(job.ID, name, upload)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := m.store.Remove(inputPath); err != nil {
			m.logger.Warning("Could not remove upload of job %s: %v", job.ID, err)
		}
	}()

	outputPath, err := m.store.OutputPath(job.ID)
	if err != nil {
		return nil, err
	}
	job.OutputPath = outputPath

	if err := m.jobs.Insert(job); err != nil {
		return nil, fmt.Errorf("failed to record video job: %w", err)
	}
	m.logger.Info("Processing video %s as job %s", job.SourceName, job.ID)

	result, err := m.ConvertVideo(ctx, inputPath, outputPath, func(frames, total int) {
		m.reportProgress(job, frames, total)
	})

	job.Width = result.Props.Width
	job.Height = result.Props.Height
	job.FPS = result.Props.FPS
	job.TotalFrames = result.Props.FrameCount
	job.ProcessedFrames = result.Frames
	completedAt := time.Now().UTC()
	job.CompletedAt = &completedAt

	switch {
	case err != nil:
		job.Status = model.StatusFailed
		job.Error = err.Error()
		if removeErr := m.store.Remove(outputPath); removeErr != nil {
			m.logger.Warning("Could not remove output of job %s: %v", job.ID, removeErr)
		}
		m.logger.Error("Video job %s failed after %d frames: %v", job.ID, result.Frames, err)
	case result.Partial():
		job.Status = model.StatusPartial
		m.logger.Warning("Video job %s ended early: %d/%d frames", job.ID, result.Frames, result.Props.FrameCount)
	default:
		job.Status = model.StatusCompleted
		m.logger.Info("Video job %s completed: %d frames", job.ID, result.Frames)
	}

	if updateErr := m.jobs.Update(job); updateErr != nil {
		m.logger.Error("Failed to update video job %s: %v", job.ID, updateErr)
	}
	m.metrics.VideoJobFinished(job.Status)
	m.broadcast(dto.ProgressEvent{
		JobID:       job.ID,
		Frames:      job.ProcessedFrames,
		TotalFrames: job.TotalFrames,
		Progress:    job.Progress(),
		Status:      job.Status,
	})

	return job, err
}

// reportProgress logs, persists and broadcasts the frame count of a running job.
func (m *Manager) reportProgress(job *model.VideoJob, frames, total int) {
	if total > 0 {
		m.logger.Info("Processed %d/%d frames", frames, total)
	} else {
		m.logger.Info("Processed %d frames", frames)
	}

	job.ProcessedFrames = frames
	job.TotalFrames = total
	if err := m.jobs.Update(job); err != nil {
		m.logger.Warning("Failed to save progress of job %s: %v", job.ID, err)
	}

	m.broadcast(dto.ProgressEvent{
		JobID:       job.ID,
		Frames:      frames,
		TotalFrames: total,
		Progress:    job.Progress(),
		Status:      job.Status,
	})
}

func (m *Manager) broadcast(event dto.ProgressEvent) {
	if m.hub == nil {
		return
	}
	msg, err := json.Marshal(event)
	if err != nil {
		m.logger.Error("Failed to encode progress event: %v", err)
		return
	}
	m.hub.Broadcast(msg)
}
