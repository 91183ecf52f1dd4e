// Package agent provides an LLM agent service with a streaming SSE API.
//
// The service exposes configured agents over HTTP: a synchronous invoke
// endpoint returning the final answer, and a streaming endpoint that
// translates the agent's event stream into typed SSE frames (stream_start,
// stream_token, tool_execution_start, tool_execution_complete,
// tool_execution_error, error, stream_end).
//
// # Quick Start
//
// Install the binaries:
//
//	go install github.com/MagnusDot/Agent/cmd/agentd@latest
//	go install github.com/MagnusDot/Agent/cmd/agentctl@latest
//
// Create a configuration:
//
//	llms:
//	  local:
//	    type: "openai"
//	    base_url: "http://localhost:1234/v1"
//	    model: "dolphin3.0-llama3.1-8b"
//	    temperature: 0.5
//
//	agents:
//	  Agent-AI:
//	    description: "An AI agent that can help users"
//	    llm: "local"
//	    tools: ["add", "subtract", "multiply", "divide", "get_weather"]
//
// Start the server and talk to it:
//
//	agentd serve --config agent.yaml
//	agentctl chat
//
// # Using as a Go Library
//
// Import specific packages:
//
//	import (
//	    "github.com/MagnusDot/Agent/pkg/client"
//	    "github.com/MagnusDot/Agent/pkg/runtime"
//	    "github.com/MagnusDot/Agent/pkg/stream"
//	)
package agent
