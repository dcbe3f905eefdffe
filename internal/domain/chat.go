package domain

// Status values carried in the /api/chat response body.
const (
	StatusSuccess = "success"
	StatusError   = "error"
	StatusOK      = "ok"
)

// ChatRequest is the /api/chat request body.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is the /api/chat response body. Reply is a pointer so a
// success status without a reply can be told apart from an empty reply.
type ChatResponse struct {
	Status string  `json:"status"`
	Reply  *string `json:"reply,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// HealthResponse is the /api/health response body.
type HealthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model,omitempty"`
}
