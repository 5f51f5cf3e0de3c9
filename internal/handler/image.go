package handler

import (
	"errors"
	"io"
	"net/http"

	"cartoonify/internal/config"
	"cartoonify/internal/filter"
	"cartoonify/internal/logger"
	"cartoonify/internal/service"
)

// IndexHandler answers the liveness check.
func IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Cartoonify API is running!"))
	}
}

// ProcessImageHandler cartoonifies the multipart field "image" and returns both
// versions as base64 JPEG.
func ProcessImageHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxUploadSize)

		file, _, err := r.FormFile("image")
		if err != nil {
			writeUploadError(w, err, MsgNoImage, logger)
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			writeUploadError(w, err, MsgNoImage, logger)
			return
		}

		pair, err := manager.ProcessImage(data)
		if errors.Is(err, filter.ErrDecode) {
			logger.Warning("Rejected undecodable image (%d bytes)", len(data))
			writeError(w, http.StatusBadRequest, MsgDecodeImage, logger)
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, MsgProcessImage, logger)
			return
		}

		writeJSON(w, http.StatusOK, pair, logger)
	}
}
