// Copyright 2025 MagnusDot
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"golang.org/x/term"

	"github.com/MagnusDot/Agent/pkg/api"
	"github.com/MagnusDot/Agent/pkg/client"
	"github.com/MagnusDot/Agent/pkg/stream"
)

// ChatCmd starts an interactive chat session with an agent.
type ChatCmd struct {
	Agent     string `help:"Agent key to chat with (skips the picker)."`
	ThreadID  string `name:"thread-id" help:"Resume an existing conversation thread."`
	Invoke    bool   `help:"Use the synchronous invoke endpoint instead of streaming."`
	NoContext bool   `name:"no-context" help:"Send every message on a fresh thread."`
	Debug     bool   `help:"Print raw frames alongside rendered output."`
}

func (c *ChatCmd) Run(cli *CLI) error {
	cl, cfg := buildClient(cli)
	reader := bufio.NewReader(os.Stdin)

	agentKey, err := c.pickAgent(cl, cfg, reader)
	if err != nil {
		return err
	}

	session := &chatSession{
		client:    cl,
		reader:    reader,
		agentKey:  agentKey,
		threadID:  c.ThreadID,
		invoke:    c.Invoke,
		noContext: c.NoContext,
		debug:     c.Debug,
		colors:    newPalette(term.IsTerminal(int(os.Stdout.Fd()))),
	}
	return session.loop()
}

// pickAgent resolves which agent to chat with: the --agent flag, the only
// agent available, or an interactive numbered picker.
func (c *ChatCmd) pickAgent(cl *client.Client, cfg client.Config, reader *bufio.Reader) (string, error) {
	ctx := context.Background()

	agents, err := cl.ListAgents(ctx)
	if err != nil {
		// The service may be unreachable right now; fall back to the
		// agents pinned in the local config file.
		agents = cfg.Agents
	}

	if c.Agent != "" {
		for _, info := range agents {
			if info.Key == c.Agent {
				return c.Agent, nil
			}
		}
		if len(agents) == 0 {
			return c.Agent, nil
		}
		return "", fmt.Errorf("agent %q not found on %s", c.Agent, cfg.APIURL)
	}

	switch len(agents) {
	case 0:
		return "", fmt.Errorf("no agents available on %s", cfg.APIURL)
	case 1:
		return agents[0].Key, nil
	}

	fmt.Println("Available agents:")
	for i, info := range agents {
		desc := info.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Printf("  %d. %s: %s\n", i+1, info.Key, desc)
	}

	for {
		fmt.Printf("Select an agent (1-%d): ", len(agents))
		line, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read selection: %w", err)
		}
		choice, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && choice >= 1 && choice <= len(agents) {
			return agents[choice-1].Key, nil
		}
		fmt.Println("Invalid selection.")
	}
}

// chatSession holds the state of one interactive conversation.
type chatSession struct {
	client    *client.Client
	reader    *bufio.Reader
	agentKey  string
	threadID  string
	invoke    bool
	noContext bool
	debug     bool
	colors    palette
}

func (s *chatSession) loop() error {
	fmt.Printf("\nChatting with %s%s%s\n", s.colors.agent, s.agentKey, s.colors.reset)
	fmt.Println("Type your messages below. Commands:")
	fmt.Println("  exit    - End the session")
	fmt.Println("  !clear  - Reset the conversation thread")
	fmt.Println("  !debug  - Toggle raw frame output")

	for {
		fmt.Printf("\n%sYou:%s ", s.colors.user, s.colors.reset)

		line, err := s.reader.ReadString('\n')
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Println()
				return nil
			}
			return fmt.Errorf("failed to read input: %w", err)
		}
		line = strings.TrimSpace(line)

		switch line {
		case "":
			continue
		case "exit", "quit":
			fmt.Println("Goodbye!")
			return nil
		case "!clear":
			s.threadID = ""
			fmt.Println("Conversation cleared.")
			continue
		case "!debug":
			s.debug = !s.debug
			fmt.Printf("Debug output %s.\n", onOff(s.debug))
			continue
		}

		input := api.UserInput{Message: line}
		if !s.noContext {
			input.ThreadID = s.threadID
		}

		if s.invoke {
			err = s.runInvoke(input)
		} else {
			err = s.runStream(input)
		}
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				fmt.Printf("\n%sError:%s %s\n", s.colors.err, s.colors.reset, apiErr.Message)
				continue
			}
			fmt.Printf("\n%sError:%s %v\n", s.colors.err, s.colors.reset, err)
		}
	}
}

func (s *chatSession) runInvoke(input api.UserInput) error {
	resp, err := s.client.Invoke(context.Background(), s.agentKey, input)
	if err != nil {
		return err
	}
	if !s.noContext {
		s.threadID = resp.ThreadID
	}
	fmt.Printf("\n%sAgent:%s %s\n", s.colors.agent, s.colors.reset, resp.Content)
	return nil
}

func (s *chatSession) runStream(input api.UserInput) error {
	frames, err := s.client.Stream(context.Background(), s.agentKey, input)
	if err != nil {
		return err
	}

	fmt.Printf("\n%sAgent:%s ", s.colors.agent, s.colors.reset)
	for frame := range frames {
		s.renderFrame(frame)
	}
	fmt.Println()
	return nil
}

// Payload shapes for the frames the renderer cares about.
type tokenPayload struct {
	Token string `json:"token"`
}

type toolPayload struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

type toolErrorPayload struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

type endPayload struct {
	ThreadID string `json:"thread_id"`
}

func (s *chatSession) renderFrame(frame stream.Frame) {
	if s.debug {
		fmt.Printf("\n[%s] %s\n", frame.Type, frame.Content)
	}

	switch frame.Type {
	case stream.FrameStreamToken:
		var p tokenPayload
		if json.Unmarshal(frame.Content, &p) == nil {
			fmt.Print(p.Token)
		}
	case stream.FrameToolExecutionStart:
		var p toolPayload
		if json.Unmarshal(frame.Content, &p) != nil {
			return
		}
		fmt.Printf("\n%sUsing tool:%s %s", s.colors.tool, s.colors.reset, p.Name)
		if len(p.Params) > 0 {
			if args, err := json.Marshal(p.Params); err == nil {
				fmt.Printf(" %s", args)
			}
		}
	case stream.FrameToolExecutionComplete:
		var p toolPayload
		if json.Unmarshal(frame.Content, &p) != nil {
			return
		}
		fmt.Printf("\n%sTool complete:%s %s\n", s.colors.tool, s.colors.reset, p.Name)
		fmt.Printf("%sAgent:%s ", s.colors.agent, s.colors.reset)
	case stream.FrameToolExecutionError:
		var p toolErrorPayload
		if json.Unmarshal(frame.Content, &p) != nil {
			return
		}
		fmt.Printf("\n%sTool Error:%s %s: %s\n", s.colors.err, s.colors.reset, p.Name, p.Error)
		fmt.Printf("%sAgent:%s ", s.colors.agent, s.colors.reset)
	case stream.FrameError:
		var message string
		if json.Unmarshal(frame.Content, &message) == nil {
			fmt.Printf("\n%sError:%s %s", s.colors.err, s.colors.reset, message)
		}
	case stream.FrameStreamEnd:
		var p endPayload
		if json.Unmarshal(frame.Content, &p) == nil && !s.noContext {
			s.threadID = p.ThreadID
		}
	}
}

// palette holds the ANSI color prefixes for the session, all empty when
// stdout is not a terminal.
type palette struct {
	agent string
	user  string
	tool  string
	err   string
	reset string
}

func newPalette(enabled bool) palette {
	if !enabled {
		return palette{}
	}
	return palette{
		agent: "\033[38;2;16;185;129m",
		user:  "\033[36m",
		tool:  "\033[33m",
		err:   "\033[31m",
		reset: "\033[0m",
	}
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
