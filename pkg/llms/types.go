package llms

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a model conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`

	// ToolCalls carries the tool invocations requested by an assistant
	// message.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links a tool message to the call it answers.
	ToolCallID string `json:"tool_call_id,omitempty"`

	// IsError marks a tool message whose content is an error description.
	IsError bool `json:"is_error,omitempty"`
}

// ToolCall is a model-requested tool invocation.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"arguments"`
}

// ToolDefinition describes a callable tool advertised to the model.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// StreamChunk kinds emitted by GenerateStreaming.
const (
	ChunkTypeText = "text"

	// ChunkTypeToolCallDelta carries a raw fragment of tool-call argument
	// text as the model streams it. Consumers that render visible output
	// discard these.
	ChunkTypeToolCallDelta = "tool_call_delta"

	// ChunkTypeToolCall carries one fully accumulated tool call, emitted
	// when the model finishes a tool-calling turn.
	ChunkTypeToolCall = "tool_call"

	ChunkTypeDone  = "done"
	ChunkTypeError = "error"
)

// StreamChunk is one unit of streamed model output.
type StreamChunk struct {
	Type     string
	Text     string
	ToolCall *ToolCall
	Tokens   int
	Error    error
}

// NewSystemMessage returns a system-role message.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// NewUserMessage returns a user-role message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantMessage returns an assistant-role message.
func NewAssistantMessage(text string, toolCalls ...ToolCall) Message {
	return Message{Role: RoleAssistant, Content: text, ToolCalls: toolCalls}
}

// NewToolMessage returns a tool-role message answering callID.
func NewToolMessage(callID, content string, isError bool) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID, IsError: isError}
}
