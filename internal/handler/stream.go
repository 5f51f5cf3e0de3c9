package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"cartoonify/internal/config"
	"cartoonify/internal/logger"
	"cartoonify/internal/middleware"
	"cartoonify/internal/service"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// NewUpgrader builds a websocket upgrader that honors the configured origins.
func NewUpgrader(cfg *config.Config) *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return middleware.OriginAllowed(cfg.AllowedOrigins, r.Header.Get("Origin"))
		},
	}
}

// WebcamFeedHandler streams original/cartoon frame pairs as server-sent events.
func WebcamFeedHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			writeError(w, http.StatusInternalServerError, "Streaming unsupported", logger)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		err := manager.StreamWebcam(r.Context(), func(event interface{}) error {
			data, err := json.Marshal(event)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		})
		if err != nil {
			logger.Warning("Webcam feed ended: %v", err)
		}
	}
}

// WebcamSocketHandler delivers the same stream as WebcamFeedHandler over a websocket,
// one JSON text message per event.
func WebcamSocketHandler(manager *service.Manager, upgrader *websocket.Upgrader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		defer connection.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Czytamy tylko po to, żeby wykryć zamknięcie połączenia przez klienta
		go func() {
			defer cancel()
			for {
				if _, _, err := connection.ReadMessage(); err != nil {
					return
				}
			}
		}()

		err = manager.StreamWebcam(ctx, func(event interface{}) error {
			connection.SetWriteDeadline(time.Now().Add(writeWait))
			return connection.WriteJSON(event)
		})
		if err != nil {
			logger.Warning("Webcam socket ended: %v", err)
		}

		connection.SetWriteDeadline(time.Now().Add(writeWait))
		connection.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
}

// ProgressSocketHandler subscribes a websocket client to video progress events.
func ProgressSocketHandler(manager *service.Manager, upgrader *websocket.Upgrader, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		hub := manager.GetHubService()
		if hub == nil {
			writeError(w, http.StatusServiceUnavailable, "Progress updates unavailable", logger)
			return
		}

		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		defer connection.Close()

		if !hub.Register(connection) {
			return
		}
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				logger.Info("Progress subscriber disconnected: %v", err)
				return
			}
		}
	}
}
