package runtime

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/MagnusDot/Agent/pkg/llms"
)

// DateFormat renders timestamps the way the system prompt expects them,
// e.g. "Monday, August 25, 2025 09:41 AM".
const DateFormat = "Monday, January 02, 2006 03:04 PM"

// defaultPromptTemplate is used when an agent has no configured prompt.
// Templates receive UserInfo, Date and History.
const defaultPromptTemplate = `You are a helpful AI assistant. Use the tools available to you when they
help answer the question, and keep answers short and direct.

You are currently assisting: {{.UserInfo}}
Today's date is: {{.Date}}

Recent conversation:
{{.History}}`

// noHistoryLine stands in for the history block on a fresh thread.
const noHistoryLine = "No conversation history available."

type promptData struct {
	UserInfo string
	Date     string
	History  string
}

func parsePromptTemplate(text string) (*template.Template, error) {
	if text == "" {
		text = defaultPromptTemplate
	}
	tmpl, err := template.New("system_prompt").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parsing prompt template: %w", err)
	}
	return tmpl, nil
}

// formatHistory renders recent user/assistant exchanges as "Role: content"
// lines. Tool traffic and empty messages are left out; the model sees a
// plain transcript.
func formatHistory(history []llms.Message) string {
	var lines []string
	for _, msg := range history {
		if msg.Content == "" {
			continue
		}
		switch msg.Role {
		case llms.RoleUser:
			lines = append(lines, "User: "+msg.Content)
		case llms.RoleAssistant:
			lines = append(lines, "Assistant: "+msg.Content)
		}
	}
	if len(lines) == 0 {
		return noHistoryLine
	}
	return strings.Join(lines, "\n")
}

// renderSystemPrompt fills the agent's template. Empty userInfo or date
// fall back to the agent's configured identity and the current time.
func (a *Agent) renderSystemPrompt(userInfo, date string, history []llms.Message) (string, error) {
	if userInfo == "" {
		userInfo = a.userInfo
	}
	if date == "" {
		date = a.now().UTC().Format(DateFormat)
	}

	var sb strings.Builder
	err := a.promptTmpl.Execute(&sb, promptData{
		UserInfo: userInfo,
		Date:     date,
		History:  formatHistory(history),
	})
	if err != nil {
		return "", fmt.Errorf("rendering prompt: %w", err)
	}
	return sb.String(), nil
}
