package server

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	UptimeS int64  `json:"uptime_s"`
}

type GenerateImageRequest struct {
	Prompt string `json:"prompt"`
	Model  string `json:"model,omitempty"`
}

type ImagePayload struct {
	ImageBytes string `json:"imageBytes"`
	MIMEType   string `json:"mimeType"`
}

type GenerateImageResponse struct {
	Image ImagePayload `json:"image"`
}

type GenerateVideoResponse struct {
	Name string `json:"name"`
}

type OperationRequest struct {
	Name string `json:"name"`
}

type DownloadRequest struct {
	URI string `json:"uri"`
}
