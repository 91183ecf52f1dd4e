// Package api defines the HTTP wire types shared by the server and the
// Go client: request/response payloads and the structured error body.
package api

// UserInput is the request body for the invoke and stream endpoints.
// ThreadID is optional; the server generates one when absent.
type UserInput struct {
	Message  string `json:"message"`
	ThreadID string `json:"thread_id,omitempty"`
}

// AgentResponse is the invoke endpoint's response body.
type AgentResponse struct {
	Content  string `json:"content"`
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id"`
}

// AgentInfo describes one registered agent in the list endpoint.
type AgentInfo struct {
	Key         string `json:"key"`
	Description string `json:"description"`
}

// HealthResponse is the health endpoint's response body.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the structured error body returned by all endpoints.
// Error carries the error category name, Path the request path.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Path    string `json:"path"`
}
