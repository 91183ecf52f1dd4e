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

const (
	DefaultServiceName  = "agent"
	DefaultNamespace    = "agent"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"

	SpanHTTPRequest   = "http.request"
	SpanAgentRun      = "agent.run"
	SpanLLMCall       = "agent.llm_call"
	SpanToolExecution = "agent.tool_execution"

	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.path"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"
	AttrErrorType        = "error.type"
	AttrAgentKey         = "agent.key"
	AttrThreadID         = "agent.thread_id"
	AttrRunID            = "agent.run_id"
	AttrToolName         = "tool.name"
	AttrLLMModel         = "llm.model"
)
