package server

import "net/http"

// Error categories surfaced in the error body's "error" field.
const (
	kindAgentError          = "AgentError"
	kindAgentExecutionError = "AgentExecutionError"
	kindNotFoundError       = "NotFoundError"
)

// genericErrorMessage is the only text a client sees for failures whose
// details belong in the logs.
const genericErrorMessage = "An unexpected error occurred"

// apiError is a handler failure with a category, an HTTP status and a
// client-safe message.
type apiError struct {
	Kind    string
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return e.Message
}

func agentError(message string, status int) *apiError {
	return &apiError{Kind: kindAgentError, Status: status, Message: message}
}

func executionError(message string) *apiError {
	return &apiError{Kind: kindAgentExecutionError, Status: http.StatusBadRequest, Message: message}
}

func notFoundError(message string) *apiError {
	return &apiError{Kind: kindNotFoundError, Status: http.StatusNotFound, Message: message}
}
