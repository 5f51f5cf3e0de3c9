package model

import "time"

// Video job statuses.
const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusPartial    = "partial" // Fewer frames than the container announced (the count may be an estimate)
	StatusFailed     = "failed"
)

// VideoJob represents one processed (or attempted) video upload.
type VideoJob struct {
	ID              string     `json:"id"`
	SourceName      string     `json:"source_name"`
	OutputPath      string     `json:"-"`
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	FPS             float64    `json:"fps"`
	TotalFrames     int        `json:"total_frames"`
	ProcessedFrames int        `json:"processed_frames"`
	Status          string     `json:"status"`
	Error           string     `json:"error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// Progress returns the completion percentage. Completed jobs are always 100.
func (j *VideoJob) Progress() int {
	if j.Status == StatusCompleted {
		return 100
	}
	if j.TotalFrames <= 0 {
		return 0
	}
	p := j.ProcessedFrames * 100 / j.TotalFrames
	if p > 100 {
		p = 100
	}
	return p
}

// Downloadable reports whether the job produced an output file.
func (j *VideoJob) Downloadable() bool {
	return j.Status == StatusCompleted || j.Status == StatusPartial
}

// VideoJobFilter contains filtering options for listing video jobs.
type VideoJobFilter struct {
	Status string
	Limit  int
	Offset int
}
