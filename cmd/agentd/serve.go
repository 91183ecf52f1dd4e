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
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MagnusDot/Agent/pkg/config"
	"github.com/MagnusDot/Agent/pkg/llms"
	"github.com/MagnusDot/Agent/pkg/observability"
	"github.com/MagnusDot/Agent/pkg/runtime"
	"github.com/MagnusDot/Agent/pkg/server"
	"github.com/MagnusDot/Agent/pkg/tools"
)

// Green color: #10b981 = RGB(16, 185, 129), written as ANSI RGB escapes.
const (
	greenColor = "\033[38;2;16;185;129m"
	resetColor = "\033[0m"
)

// ServeCmd starts the agent HTTP server.
type ServeCmd struct {
	// Zero-config options
	BaseURL string `name:"base-url" help:"OpenAI-compatible API base URL."`
	Model   string `help:"Model name."`
	APIKey  string `name:"api-key" help:"API key (defaults to environment variables)."`

	// Server options
	Port  int  `help:"Port to listen on (overrides config)."`
	Watch bool `help:"Watch config file for changes."`
}

func (c *ServeCmd) Run(cli *CLI) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, loader, err := c.loadConfig(ctx, cli.Config)
	if err != nil {
		return err
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	obs := observability.NoopManager()
	if cfg.Server.Observability != nil {
		obs = observability.NewManager(*cfg.Server.Observability)
		if err := obs.Initialize(ctx); err != nil {
			return fmt.Errorf("failed to initialize observability: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := obs.Shutdown(shutdownCtx); err != nil {
				slog.Warn("Observability shutdown failed", "error", err)
			}
		}()
	}

	llmRegistry := llms.NewLLMRegistry()
	defer llmRegistry.Close()
	for name, llmCfg := range cfg.LLMs {
		if _, err := llmRegistry.CreateFromConfig(name, llmCfg); err != nil {
			return fmt.Errorf("failed to create LLM %q: %w", name, err)
		}
	}

	toolRegistry, err := tools.NewRegistryFromConfig(ctx, cfg,
		tools.WithObservability(obs.GetTracer("tools"), obs.GetMetrics()))
	if err != nil {
		return fmt.Errorf("failed to build tool registry: %w", err)
	}
	defer toolRegistry.Close()

	agents, err := runtime.NewRegistryFromConfig(cfg, llmRegistry, toolRegistry,
		runtime.WithObservability(obs.GetTracer("runtime"), obs.GetMetrics()))
	if err != nil {
		return fmt.Errorf("failed to build agents: %w", err)
	}

	srv := server.New(cfg.Server, agents,
		server.WithObservability(obs),
		server.WithLogger(slog.Default()),
	)

	printServeInfo(cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	if c.Watch && loader != nil {
		g.Go(func() error {
			if err := loader.Watch(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("config watch failed: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// loadConfig loads configuration from file or builds a zero-config setup
// from the serve flags and environment.
func (c *ServeCmd) loadConfig(ctx context.Context, configPath string) (*config.Config, *config.Loader, error) {
	if configPath != "" {
		if c.BaseURL != "" || c.Model != "" || c.APIKey != "" {
			return nil, nil, fmt.Errorf("--base-url, --model and --api-key cannot be combined with --config")
		}
		loader := config.NewLoader(configPath, config.WithOnChange(func(*config.Config) {
			slog.Info("Configuration changed on disk; restart to apply", "path", configPath)
		}))
		cfg, err := loader.Load(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load config: %w", err)
		}
		slog.Info("Loaded configuration", "path", configPath)
		return cfg, loader, nil
	}

	if c.Watch {
		return nil, nil, fmt.Errorf("--watch requires --config")
	}
	slog.Info("Using zero-config mode")
	return config.ZeroConfig(c.BaseURL, c.Model, c.APIKey), nil, nil
}

// printServeInfo prints the startup summary with reachable endpoints.
func printServeInfo(cfg *config.Config) {
	host := cfg.Server.Host
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	addr := fmt.Sprintf("%s:%d", host, cfg.Server.Port)

	fmt.Printf("\n%sAgent service ready!%s\n", greenColor, resetColor)
	fmt.Printf("   Health:      http://%s/health\n", addr)
	fmt.Printf("   Discovery:   http://%s/agents\n", addr)

	if obsCfg := cfg.Server.Observability; obsCfg != nil {
		if obsCfg.Tracing.Enabled {
			fmt.Printf("   Tracing:     otlp (%s)\n", obsCfg.Tracing.Endpoint)
		}
		if obsCfg.Metrics.Enabled {
			fmt.Printf("   Metrics:     http://%s/metrics\n", addr)
		}
	}

	keys := make([]string, 0, len(cfg.Agents))
	for key := range cfg.Agents {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Println("\n   Agents (invoke and stream endpoints):")
	for _, key := range keys {
		fmt.Printf("     - http://%s/%s/invoke\n", addr, key)
		fmt.Printf("       http://%s/%s/stream\n", addr, key)
	}
	fmt.Println("\nPress Ctrl+C to stop")
}
