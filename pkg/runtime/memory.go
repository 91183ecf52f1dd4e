package runtime

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/MagnusDot/Agent/pkg/llms"
)

// MemoryStore keeps per-thread conversation history in process memory.
// History does not survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	threads map[string][]llms.Message
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		threads: make(map[string][]llms.Message),
	}
}

// History returns a copy of the thread's messages.
func (s *MemoryStore) History(threadID string) []llms.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := s.threads[threadID]
	out := make([]llms.Message, len(history))
	copy(out, history)
	return out
}

// Append adds messages to the thread.
func (s *MemoryStore) Append(threadID string, messages ...llms.Message) {
	if threadID == "" || len(messages) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.threads[threadID] = append(s.threads[threadID], messages...)
}

// Clear drops the thread's history.
func (s *MemoryStore) Clear(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
}

// Threads returns the number of threads holding history.
func (s *MemoryStore) Threads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.threads)
}

var (
	encodingCache = make(map[string]*tiktoken.Tiktoken)
	encodingMu    sync.RWMutex
)

// tokensPerMessage is the per-message role overhead of the OpenAI chat
// format, and 3 more tokens prime the assistant reply.
const (
	tokensPerMessage  = 3
	tokensReplyPrimer = 3
)

// TokenCounter counts tokens with the encoding of a specific model.
type TokenCounter struct {
	encoding *tiktoken.Tiktoken
	model    string
}

// NewTokenCounter builds a counter for the model, falling back to the
// cl100k_base encoding for models tiktoken does not know (Gemini, local
// models served over the OpenAI API).
func NewTokenCounter(model string) (*TokenCounter, error) {
	encodingMu.RLock()
	cached, exists := encodingCache[model]
	encodingMu.RUnlock()

	if exists {
		return &TokenCounter{encoding: cached, model: model}, nil
	}

	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("loading token encoding: %w", err)
		}
	}

	encodingMu.Lock()
	encodingCache[model] = encoding
	encodingMu.Unlock()

	return &TokenCounter{encoding: encoding, model: model}, nil
}

// Count returns the token count of text.
func (tc *TokenCounter) Count(text string) int {
	return len(tc.encoding.Encode(text, nil, nil))
}

// CountMessages counts tokens in a message list including the per-message
// role overhead and the reply priming, per OpenAI's counting recipe.
func (tc *TokenCounter) CountMessages(messages []llms.Message) int {
	total := tokensReplyPrimer
	for _, msg := range messages {
		total += tc.countMessage(msg)
	}
	return total
}

func (tc *TokenCounter) countMessage(msg llms.Message) int {
	return tokensPerMessage +
		len(tc.encoding.Encode(msg.Role, nil, nil)) +
		len(tc.encoding.Encode(msg.Content, nil, nil))
}

// FitWithinLimit returns the suffix of messages that fits within the
// token budget, selected from most recent backwards.
func (tc *TokenCounter) FitWithinLimit(messages []llms.Message, maxTokens int) []llms.Message {
	if len(messages) == 0 {
		return messages
	}

	fitted := make([]llms.Message, 0, len(messages))
	current := tokensReplyPrimer

	for i := len(messages) - 1; i >= 0; i-- {
		msgTokens := tc.countMessage(messages[i])
		if current+msgTokens > maxTokens {
			break
		}
		fitted = append([]llms.Message{messages[i]}, fitted...)
		current += msgTokens
	}

	return fitted
}

// Model returns the model name the counter was built for.
func (tc *TokenCounter) Model() string {
	return tc.model
}
