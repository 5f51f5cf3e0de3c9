package dto

// FramePair carries an original frame and its cartoon version as base64 JPEG.
type FramePair struct {
	Original string `json:"original"`
	Cartoon  string `json:"cartoon"`
}

// ErrorResponse is the JSON body of every failed request and terminal stream event.
type ErrorResponse struct {
	Error string `json:"error"`
}
