package dto

// ProgressEvent is broadcast to progress subscribers while a video is processed.
type ProgressEvent struct {
	JobID       string `json:"job_id"`
	Frames      int    `json:"frames"`
	TotalFrames int    `json:"total_frames"`
	Progress    int    `json:"progress"`
	Status      string `json:"status"`
}
