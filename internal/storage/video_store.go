package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cartoonify/internal/config"
	"cartoonify/internal/logger"
)

const (
	// OutputExtension is the container extension of processed videos.
	OutputExtension = ".mp4"
	// UploadMaxAge defines how long a leftover upload may stay before the sweep removes it.
	UploadMaxAge = time.Hour
)

// VideoStore keeps uploaded source videos and processed outputs on disk.
type VideoStore struct {
	uploadDir string
	outputDir string
	logger    *logger.Logger
	mu        sync.Mutex
}

// NewVideoStore creates a VideoStore for the configured upload and output directories.
func NewVideoStore(cfg *config.Config, logger *logger.Logger) *VideoStore {
	return &VideoStore{
		uploadDir: cfg.UploadDirectory,
		outputDir: cfg.OutputDirectory,
		logger:    logger,
	}
}

// SaveUpload streams r into the upload directory as <id><ext> and returns the path.
// The extension is taken from the client's file name so the decoder can sniff the container.
func (s *VideoStore) SaveUpload(id, name string, r io.Reader) (string, error) {
	if err := s.ensureDir(s.uploadDir); err != nil {
		return "", err
	}

	path := filepath.Join(s.uploadDir, id+uploadExtension(name))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}

	written, err := io.Copy(file, r)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save upload: %w", err)
	}

	s.logger.Info("Saved upload %s (%d bytes)", filepath.Base(path), written)
	return path, nil
}

// OutputPath returns the path of the processed video for a job, creating the directory.
func (s *VideoStore) OutputPath(id string) (string, error) {
	if err := s.ensureDir(s.outputDir); err != nil {
		return "", err
	}
	return filepath.Join(s.outputDir, id+OutputExtension), nil
}

// Remove deletes a stored file. Missing files are not an error.
func (s *VideoStore) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SweepUploads removes uploads older than maxAge left behind by interrupted requests.
func (s *VideoStore) SweepUploads(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.uploadDir)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.uploadDir, entry.Name())); err != nil {
			s.logger.Warning("Could not remove stale upload %s: %v", entry.Name(), err)
			continue
		}
		removed++
	}

	if removed > 0 {
		s.logger.Info("Removed %d stale uploads", removed)
	}
	return removed, nil
}

func (s *VideoStore) ensureDir(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// uploadExtension keeps a short alphanumeric extension, anything else becomes ".bin".
func uploadExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(name)))
	if len(ext) < 2 || len(ext) > 6 {
		return ".bin"
	}
	for _, c := range ext[1:] {
		if (c < 'a' || c > 'z') && (c < '0' || c > '9') {
			return ".bin"
		}
	}
	return ext
}
