package dto

import "cartoonify/internal/model"

// VideoResult is the body of a successful POST /process-video.
type VideoResult struct {
	Message     string `json:"message"`
	Progress    int    `json:"progress"`
	JobID       string `json:"job_id"`
	Frames      int    `json:"frames"`
	Status      string `json:"status"`
	DownloadURL string `json:"download_url"`
}

// VideoFailure is the body returned when processing stopped after the output was opened.
type VideoFailure struct {
	Error  string `json:"error"`
	JobID  string `json:"job_id"`
	Frames int    `json:"frames"`
}

// VideoJobView is a job as returned by the /videos endpoints.
type VideoJobView struct {
	model.VideoJob
	Progress    int    `json:"progress"`
	DownloadURL string `json:"download_url,omitempty"`
}

// NewVideoJobView adds the derived progress and, for finished jobs, the download link.
func NewVideoJobView(job model.VideoJob) VideoJobView {
	view := VideoJobView{VideoJob: job, Progress: job.Progress()}
	if job.Downloadable() {
		view.DownloadURL = DownloadURL(job.ID)
	}
	return view
}

// DownloadURL is the path a processed video is served from.
func DownloadURL(id string) string {
	return "/videos/" + id + "/download"
}

// VideoJobList is a page of video jobs.
type VideoJobList struct {
	Jobs   []VideoJobView `json:"jobs"`
	Total  int            `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}
