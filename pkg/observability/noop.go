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

package observability

import (
	"context"
	"time"
)

// NoopMetrics is a Metrics implementation that does nothing. It stands
// in whenever metrics are disabled.
type NoopMetrics struct{}

func (NoopMetrics) RecordAgentRun(_ context.Context, _ string, _ time.Duration, _ int, _ error) {}

func (NoopMetrics) RecordToolExecution(_ context.Context, _ string, _ time.Duration, _ error) {}

func (NoopMetrics) RecordLLMCall(_ context.Context, _ string, _ time.Duration, _ int, _ error) {}

func (NoopMetrics) RecordHTTPRequest(_ context.Context, _, _ string, _ int, _ time.Duration) {}

var (
	_ Metrics = (*otelMetrics)(nil)
	_ Metrics = NoopMetrics{}
)
