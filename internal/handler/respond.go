package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"cartoonify/internal/dto"
	"cartoonify/internal/logger"
)

// Error messages returned to clients.
const (
	MsgNoImage         = "No image provided"
	MsgNoVideo         = "No video provided"
	MsgDecodeImage     = "Could not decode image"
	MsgUploadTooLarge  = "Upload too large"
	MsgProcessImage    = "Could not process image"
	MsgOpenVideo       = "Could not open video file"
	MsgCreateVideo     = "Could not create output video"
	MsgStoreUpload     = "Could not store upload"
	MsgVideoFailed     = "Video processing failed"
	MsgJobNotFound     = "Video job not found"
	MsgVideoNotReady   = "Video not ready"
	MsgVideoProcessing = "Video is still processing"
	MsgInvalidStatus   = "Invalid status filter"
	MsgInternal        = "Internal server error"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, logger *logger.Logger) {
	writeJSON(w, status, dto.ErrorResponse{Error: message}, logger)
}

// writeUploadError maps a failed multipart lookup to 413 for oversize bodies
// and to 400 with the field-specific message otherwise.
func writeUploadError(w http.ResponseWriter, err error, missingMessage string, logger *logger.Logger) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		logger.Warning("Upload rejected, limit is %d bytes", tooLarge.Limit)
		writeError(w, http.StatusRequestEntityTooLarge, MsgUploadTooLarge, logger)
		return
	}
	writeError(w, http.StatusBadRequest, missingMessage, logger)
}
