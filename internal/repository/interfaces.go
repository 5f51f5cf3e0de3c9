package repository

import (
	"errors"
	"time"

	"cartoonify/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// VideoJobRepository defines the interface for video job data operations.
type VideoJobRepository interface {
	// Create operations
	Insert(job *model.VideoJob) error

	// Update operations
	Update(job *model.VideoJob) error
	FailInterrupted(reason string, at time.Time) (int64, error)

	// Read operations
	GetByID(id string) (*model.VideoJob, error)
	GetAll(filter *model.VideoJobFilter) ([]model.VideoJob, error)
	GetTotalCount(filter *model.VideoJobFilter) (int, error)

	// Delete operations
	Delete(id string) error
}
