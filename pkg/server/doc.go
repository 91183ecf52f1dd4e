// Package server exposes the agent runtime over HTTP: a synchronous
// invoke endpoint, an SSE streaming endpoint driven by pkg/stream, and
// the health, agent listing and metrics endpoints.
package server
