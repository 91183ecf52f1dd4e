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
	"context"
	"fmt"
	"time"
)

// CheckCmd pings the service and lists the agents it serves.
type CheckCmd struct {
	Timeout time.Duration `help:"Request timeout." default:"10s"`
}

func (c *CheckCmd) Run(cli *CLI) error {
	cl, cfg := buildClient(cli)

	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	health, err := cl.Health(ctx)
	if err != nil {
		return fmt.Errorf("service at %s is unreachable: %w", cfg.APIURL, err)
	}
	fmt.Printf("Service at %s is %s (version %s)\n", cfg.APIURL, health.Status, health.Version)

	agents, err := cl.ListAgents(ctx)
	if err != nil {
		return fmt.Errorf("failed to list agents: %w", err)
	}
	if len(agents) == 0 {
		fmt.Println("No agents registered.")
		return nil
	}

	fmt.Println("\nAvailable agents:")
	for _, info := range agents {
		desc := info.Description
		if desc == "" {
			desc = "(no description)"
		}
		fmt.Printf("  - %s: %s\n", info.Key, desc)
	}
	return nil
}
