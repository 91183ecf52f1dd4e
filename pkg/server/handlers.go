package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	agent "github.com/MagnusDot/Agent"
	"github.com/MagnusDot/Agent/pkg/api"
	"github.com/MagnusDot/Agent/pkg/runtime"
	"github.com/MagnusDot/Agent/pkg/stream"
)

const healthMessage = "Stateless agent service, ready for jokes and weather"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:  "ok",
		Version: agent.Version,
		Message: healthMessage,
	})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents := s.agents.Agents()
	infos := make([]api.AgentInfo, 0, len(agents))
	for _, a := range agents {
		infos = append(infos, api.AgentInfo{Key: a.Key(), Description: a.Description()})
	}
	s.writeJSON(w, http.StatusOK, infos)
}

// prepareRun resolves the agent and parses the request body into a run
// input. The unknown-agent case must fail here, before any response
// bytes go out.
func (s *Server) prepareRun(r *http.Request) (runtime.Runner, runtime.RunInput, error) {
	agentID := chi.URLParam(r, "agent")
	target, err := s.agents.GetAgent(agentID)
	if err != nil {
		return nil, runtime.RunInput{}, notFoundError(fmt.Sprintf("agent %q not found", agentID))
	}

	var input api.UserInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		return nil, runtime.RunInput{}, agentError("Failed to process input: invalid request body", http.StatusBadRequest)
	}
	if input.Message == "" {
		return nil, runtime.RunInput{}, agentError("Failed to process input: message is required", http.StatusBadRequest)
	}

	return target, s.buildRunInput(input), nil
}

func (s *Server) buildRunInput(input api.UserInput) runtime.RunInput {
	threadID := input.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}
	return runtime.RunInput{
		RunID:    uuid.NewString(),
		ThreadID: threadID,
		Message:  input.Message,
		UserInfo: s.userInfo(),
		Date:     s.now().UTC().Format(runtime.DateFormat),
	}
}

func (s *Server) handleInvoke(w http.ResponseWriter, r *http.Request) {
	target, input, err := s.prepareRun(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	final, err := target.Invoke(r.Context(), input)
	switch {
	case errors.Is(err, context.Canceled):
		s.writeJSON(w, http.StatusOK, api.AgentResponse{
			Content:  "Generation was stopped.",
			ThreadID: input.ThreadID,
			RunID:    input.RunID,
		})
		return
	case err != nil:
		s.log.Error("agent invoke failed", "run_id", input.RunID, "error", err)
		s.writeError(w, r, agentError(genericErrorMessage, http.StatusInternalServerError))
		return
	}

	content, err := responseContent(final)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.AgentResponse{
		Content:  content,
		ThreadID: input.ThreadID,
		RunID:    input.RunID,
	})
}

// responseContent extracts the invoke response from the run's final
// event: the last message for a completed run, the prompt for an
// interrupted one.
func responseContent(final *runtime.FinalEvent) (string, error) {
	if final == nil {
		return "", executionError("No response received from agent")
	}
	switch final.Type {
	case runtime.FinalTypeValues:
		msg, ok := final.LastMessage()
		if !ok {
			return "", executionError("No response received from agent")
		}
		return msg.Content, nil
	case runtime.FinalTypeInterrupt:
		if final.Interrupt == nil {
			return "", executionError(fmt.Sprintf("Unexpected response type: %s", final.Type))
		}
		return final.Interrupt.Value, nil
	default:
		return "", executionError(fmt.Sprintf("Unexpected response type: %s", final.Type))
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	target, input, err := s.prepareRun(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, r, agentError("Streaming is not supported by this connection", http.StatusInternalServerError))
		return
	}

	events, err := target.Stream(r.Context(), input)
	if err != nil {
		s.log.Error("agent stream failed to start", "run_id", input.RunID, "error", err)
		s.writeError(w, r, agentError(genericErrorMessage, http.StatusInternalServerError))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	emit := func(frame stream.Frame) error {
		if _, err := w.Write(frame.Encode()); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}

	driver := stream.NewDriver(input, emit, s.log)
	if err := driver.Run(r.Context(), events); err != nil {
		s.log.Debug("stream ended early", "run_id", input.RunID, "error", err)
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *apiError
	if !errors.As(err, &apiErr) {
		apiErr = agentError(genericErrorMessage, http.StatusInternalServerError)
	}
	if apiErr.Status >= http.StatusInternalServerError {
		s.log.Error("request failed", "path", r.URL.Path, "error", err)
	}
	s.writeJSON(w, apiErr.Status, api.ErrorResponse{
		Error:   apiErr.Kind,
		Message: apiErr.Message,
		Path:    r.URL.Path,
	})
}
