package handler

import (
	"errors"
	"net/http"
	"strconv"

	"cartoonify/internal/capture"
	"cartoonify/internal/config"
	"cartoonify/internal/dto"
	"cartoonify/internal/logger"
	"cartoonify/internal/model"
	"cartoonify/internal/repository"
	"cartoonify/internal/service"
)

const (
	defaultJobLimit = 20
	maxJobLimit     = 100
)

// ProcessVideoHandler converts the multipart field "video" synchronously and
// answers with the job id and where to download the result.
func ProcessVideoHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)

		file, header, err := r.FormFile("video")
		if err != nil {
			writeUploadError(w, err, MsgNoVideo, logger)
			return
		}
		defer file.Close()

		job, err := manager.ProcessVideo(r.Context(), file, header.Filename)
		switch {
		case err == nil:
			writeJSON(w, http.StatusOK, dto.VideoResult{
				Message:     "Video processed successfully",
				Progress:    100,
				JobID:       job.ID,
				Frames:      job.ProcessedFrames,
				Status:      job.Status,
				DownloadURL: dto.DownloadURL(job.ID),
			}, logger)
		case errors.Is(err, capture.ErrOpen):
			writeError(w, http.StatusBadRequest, MsgOpenVideo, logger)
		case errors.Is(err, capture.ErrCreate):
			writeError(w, http.StatusInternalServerError, MsgCreateVideo, logger)
		case errors.Is(err, service.ErrVideoProcessing):
			writeJSON(w, http.StatusInternalServerError, dto.VideoFailure{
				Error:  MsgVideoFailed,
				JobID:  job.ID,
				Frames: job.ProcessedFrames,
			}, logger)
		case job == nil:
			logger.Error("Failed to store video upload: %v", err)
			writeError(w, http.StatusInternalServerError, MsgStoreUpload, logger)
		default:
			logger.Error("Video job %s failed: %v", job.ID, err)
			writeError(w, http.StatusInternalServerError, MsgInternal, logger)
		}
	}
}

// ListVideosHandler lists video jobs, newest first. Query: limit, offset, status.
func ListVideosHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()

		limit, err := strconv.Atoi(query.Get("limit"))
		if limit <= 0 || err != nil {
			limit = defaultJobLimit
		}
		if limit > maxJobLimit {
			limit = maxJobLimit
		}
		offset, err := strconv.Atoi(query.Get("offset"))
		if offset < 0 || err != nil {
			offset = 0
		}

		status := query.Get("status")
		switch status {
		case "", model.StatusProcessing, model.StatusCompleted, model.StatusPartial, model.StatusFailed:
		default:
			writeError(w, http.StatusBadRequest, MsgInvalidStatus, logger)
			return
		}

		jobs, total, err := manager.ListJobs(&model.VideoJobFilter{Status: status, Limit: limit, Offset: offset})
		if err != nil {
			logger.Error("Failed to list video jobs: %v", err)
			writeError(w, http.StatusInternalServerError, MsgInternal, logger)
			return
		}

		views := make([]dto.VideoJobView, 0, len(jobs))
		for _, job := range jobs {
			views = append(views, dto.NewVideoJobView(job))
		}

		writeJSON(w, http.StatusOK, dto.VideoJobList{Jobs: views, Total: total, Limit: limit, Offset: offset}, logger)
	}
}

// GetVideoHandler returns a single job.
func GetVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := manager.GetJob(r.PathValue("id"))
		if err != nil {
			writeJobError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, dto.NewVideoJobView(*job), logger)
	}
}

// DownloadVideoHandler serves the processed file of a completed or partial job.
func DownloadVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := manager.DownloadPath(r.PathValue("id"))
		if err != nil {
			writeJobError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "video/mp4")
		w.Header().Set("Content-Disposition", `attachment; filename="`+job.ID+`.mp4"`)
		http.ServeFile(w, r, job.OutputPath)
	}
}

// DeleteVideoHandler removes a finished job and its output.
func DeleteVideoHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if err := manager.DeleteJob(id); err != nil {
			writeJobError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted", "id": id}, logger)
	}
}

func writeJobError(w http.ResponseWriter, err error, logger *logger.Logger) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, MsgJobNotFound, logger)
	case errors.Is(err, service.ErrNotReady):
		writeError(w, http.StatusConflict, MsgVideoNotReady, logger)
	case errors.Is(err, service.ErrJobBusy):
		writeError(w, http.StatusConflict, MsgVideoProcessing, logger)
	default:
		logger.Error("Video job request failed: %v", err)
		writeError(w, http.StatusInternalServerError, MsgInternal, logger)
	}
}
