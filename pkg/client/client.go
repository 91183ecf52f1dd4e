// Package client provides a Go client for the agent service API: the
// synchronous invoke endpoint, the SSE streaming endpoint decoded into
// typed frames, and the health and agent listing endpoints.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/MagnusDot/Agent/pkg/api"
	"github.com/MagnusDot/Agent/pkg/stream"
)

// DefaultAPIURL is the service address used when nothing else is
// configured.
const DefaultAPIURL = "http://localhost:8080"

// configFileName is looked up in the working directory when the
// API_URL environment variable is not set.
const configFileName = "agents_config.json"

// Config holds client connection settings. Agents is an optional static
// agent list used as a fallback when the listing endpoint is
// unreachable.
type Config struct {
	APIURL      string          `json:"api_url"`
	BearerToken string          `json:"bearer_token,omitempty"`
	Agents      []api.AgentInfo `json:"agents,omitempty"`
}

// LoadConfig resolves the client configuration. The API_URL environment
// variable wins, then agents_config.json in the working directory, then
// the default localhost URL. BEARER_TOKEN from the environment fills
// the token whenever the resolved configuration carries none.
func LoadConfig() Config {
	cfg := Config{APIURL: DefaultAPIURL}

	if url := os.Getenv("API_URL"); url != "" {
		cfg.APIURL = url
	} else if raw, err := os.ReadFile(configFileName); err == nil {
		var fileCfg Config
		if err := json.Unmarshal(raw, &fileCfg); err == nil {
			if fileCfg.APIURL == "" {
				fileCfg.APIURL = DefaultAPIURL
			}
			cfg = fileCfg
		}
	}

	if cfg.BearerToken == "" {
		cfg.BearerToken = os.Getenv("BEARER_TOKEN")
	}
	return cfg
}

// APIError is a structured error response from the service.
type APIError struct {
	Status  int
	Kind    string
	Message string
	Path    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

// Client talks to a running agent service.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New returns a client for the configured service.
func New(cfg Config) *Client {
	baseURL := cfg.APIURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   cfg.BearerToken,
		// No client-wide timeout: it would sever open SSE streams. The
		// caller's context bounds each request.
		http: &http.Client{},
	}
}

// Health pings the service health endpoint.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var health api.HealthResponse
	err := c.get(ctx, "/health", &health)
	return health, err
}

// ListAgents fetches the registered agents.
func (c *Client) ListAgents(ctx context.Context) ([]api.AgentInfo, error) {
	var agents []api.AgentInfo
	err := c.get(ctx, "/agents", &agents)
	return agents, err
}

// Invoke runs the agent to completion and returns the final response.
func (c *Client) Invoke(ctx context.Context, agentKey string, input api.UserInput) (api.AgentResponse, error) {
	var response api.AgentResponse

	resp, err := c.post(ctx, "/"+agentKey+"/invoke", input, "")
	if err != nil {
		return response, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return response, decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return response, fmt.Errorf("failed to decode agent response: %w", err)
	}
	return response, nil
}

// Stream runs the agent on the streaming endpoint and delivers decoded
// SSE frames on the returned channel. The channel closes after the
// closing stream_end frame, on a decode failure, or when ctx ends.
func (c *Client) Stream(ctx context.Context, agentKey string, input api.UserInput) (<-chan stream.Frame, error) {
	resp, err := c.post(ctx, "/"+agentKey+"/stream", input, "text/event-stream")
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeAPIError(resp)
	}

	frames := make(chan stream.Frame, 10)
	go func() {
		defer close(frames)
		defer resp.Body.Close()

		decoder := stream.NewDecoder(resp.Body)
		for {
			frame, err := decoder.Next()
			if err != nil {
				return
			}
			select {
			case frames <- frame:
			case <-ctx.Done():
				return
			}
			if frame.Type == stream.FrameStreamEnd {
				return
			}
		}
	}()
	return frames, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, input api.UserInput, accept string) (*http.Response, error) {
	body, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	c.setAuthHeader(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	return resp, nil
}

func (c *Client) setAuthHeader(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// decodeAPIError turns a non-200 response into an APIError, falling
// back to the raw body when it is not the structured error shape.
func decodeAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload api.ErrorResponse
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return &APIError{
			Status:  resp.StatusCode,
			Kind:    payload.Error,
			Message: payload.Message,
			Path:    payload.Path,
		}
	}

	message := strings.TrimSpace(string(body))
	if message == "" {
		message = resp.Status
	}
	return &APIError{Status: resp.StatusCode, Kind: "HTTPError", Message: message}
}
