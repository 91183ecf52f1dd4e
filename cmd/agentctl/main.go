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

// Command agentctl is the terminal client for the agent service.
//
// Usage:
//
//	agentctl check
//	agentctl chat
//	agentctl chat --agent Agent-AI --invoke
package main

import (
	"fmt"

	"github.com/alecthomas/kong"

	agent "github.com/MagnusDot/Agent"
	"github.com/MagnusDot/Agent/pkg/client"
	"github.com/MagnusDot/Agent/pkg/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Version VersionCmd `cmd:"" help:"Show version information."`
	Check   CheckCmd   `cmd:"" help:"Ping the service and list its agents."`
	Chat    ChatCmd    `cmd:"" help:"Chat with an agent."`

	APIURL      string `name:"api-url" help:"Service base URL (overrides agents_config.json and API_URL)."`
	BearerToken string `name:"bearer-token" help:"Bearer token sent with every request."`
}

// VersionCmd shows version information.
type VersionCmd struct{}

func (c *VersionCmd) Run() error {
	fmt.Println(agent.GetVersion().String())
	return nil
}

// buildClient resolves the client configuration and applies CLI overrides.
func buildClient(cli *CLI) (*client.Client, client.Config) {
	cfg := client.LoadConfig()
	if cli.APIURL != "" {
		cfg.APIURL = cli.APIURL
	}
	if cli.BearerToken != "" {
		cfg.BearerToken = cli.BearerToken
	}
	return client.New(cfg), cfg
}

func main() {
	_ = config.LoadEnvFiles()

	cli := CLI{}
	ctx := kong.Parse(&cli,
		kong.Name("agentctl"),
		kong.Description("Terminal client for the agent service"),
		kong.UsageOnError(),
	)
	ctx.FatalIfErrorf(ctx.Run(&cli))
}
