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
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"

	"github.com/MagnusDot/Agent/pkg/config"
)

// SchemaCmd generates a JSON Schema from the config structs, suitable for
// editor validation of agent.yaml files. Output is written to stdout.
type SchemaCmd struct {
	Compact bool `short:"c" help:"Compact JSON output (no indentation)."`
}

func (c *SchemaCmd) Run(cli *CLI) error {
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		// Inline all definitions (no $ref) so single-file validators work.
		DoNotReference: true,
	}

	schema := reflector.Reflect(&config.Config{})

	schema.ID = "https://github.com/MagnusDot/Agent/schemas/config.json"
	schema.Title = "Agent Configuration Schema"
	schema.Description = "Configuration schema for the agent service"
	schema.Version = "http://json-schema.org/draft-07/schema#"
	schema.Examples = []interface{}{
		map[string]interface{}{
			"name": "my-agent-service",
			"llms": map[string]interface{}{
				"local": map[string]interface{}{
					"type":     "openai",
					"base_url": "http://localhost:1234/v1",
					"model":    "dolphin3.0-llama3.1-8b",
				},
			},
			"agents": map[string]interface{}{
				"Agent-AI": map[string]interface{}{
					"description": "Answers questions, tells jokes and reports the weather",
					"llm":         "local",
					"tools":       []string{"add", "get_weather"},
				},
			},
		},
	}

	encoder := json.NewEncoder(os.Stdout)
	if !c.Compact {
		encoder.SetIndent("", "  ")
	}
	if err := encoder.Encode(schema); err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	return nil
}
