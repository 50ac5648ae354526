package metricskey

import "github.com/effective-security/metrics"

// Stats
var (
	// StatsLLMMessagesSent is base for counter metric for total messages sent to LLM
	StatsLLMMessagesSent = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_messages_sent",
		Help:         "stats_llm_messages_sent provides total messages sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMInputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_input_tokens",
		Help:         "stats_llm_input_tokens provides total input tokens sent to LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMOutputTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_output_tokens",
		Help:         "stats_llm_output_tokens provides total output tokens received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsLLMTotalTokens = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_llm_total_tokens",
		Help:         "stats_llm_total_tokens provides total tokens sent and received from LLM",
		RequiredTags: []string{"agent", "model"},
	}

	StatsAssistantCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_assistant_calls_succeeded",
		Help:         "stats_assistant_calls_succeeded provides total assistant calls succeeded",
		RequiredTags: []string{"agent"},
	}

	StatsAssistantCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_assistant_calls_failed",
		Help:         "stats_assistant_calls_failed provides total assistant calls failed",
		RequiredTags: []string{"agent"},
	}

	StatsAssistantToolRounds = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_assistant_tool_rounds",
		Help:         "stats_assistant_tool_rounds provides total tool dispatch rounds",
		RequiredTags: []string{"agent"},
	}

	StatsToolCallsSucceeded = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_succeeded",
		Help:         "stats_tool_calls_succeeded provides total tool calls succeeded",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_failed",
		Help:         "stats_tool_calls_failed provides total tool calls failed",
		RequiredTags: []string{"tool"},
	}

	StatsToolCallsNotFound = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_calls_not_found",
		Help:         "stats_tool_calls_not_found provides total tool calls not found",
		RequiredTags: []string{"tool"},
	}

	StatsToolArgsInjected = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_tool_args_injected",
		Help:         "stats_tool_args_injected provides total tool calls with injected arguments",
		RequiredTags: []string{"tool"},
	}

	StatsCacheHits = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_cache_hits",
		Help:         "stats_cache_hits provides total dataset cache hits",
		RequiredTags: []string{"tool"},
	}

	StatsCacheMisses = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_cache_misses",
		Help:         "stats_cache_misses provides total dataset cache misses",
		RequiredTags: []string{"tool"},
	}

	StatsMCPHandshakes = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_handshakes",
		Help:         "stats_mcp_handshakes provides total MCP sessions established",
		RequiredTags: []string{"host"},
	}

	StatsMCPHandshakesFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_handshakes_failed",
		Help:         "stats_mcp_handshakes_failed provides total MCP handshakes failed",
		RequiredTags: []string{"host"},
	}

	StatsMCPRequestsFailed = metrics.Describe{
		Type:         metrics.TypeCounter,
		Name:         "stats_mcp_requests_failed",
		Help:         "stats_mcp_requests_failed provides total MCP requests failed",
		RequiredTags: []string{"method"},
	}
)

// Perf
var (
	PerfAssistantCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_assistant_call",
		Help:         "perf_assistant_call provides duration of assistant call",
		RequiredTags: []string{"agent"},
	}

	PerfMCPHandshake = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_mcp_handshake",
		Help:         "perf_mcp_handshake provides duration of MCP handshake",
		RequiredTags: []string{"host"},
	}

	PerfToolCall = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_tool_call",
		Help:         "perf_tool_call provides duration of tool call",
		RequiredTags: []string{"tool"},
	}
)

// Metrics returns slice of metrics from this repo
// keep sorted by name
var Metrics = []*metrics.Describe{
	&PerfAssistantCall,
	&PerfMCPHandshake,
	&PerfToolCall,
	&StatsAssistantCallsFailed,
	&StatsAssistantCallsSucceeded,
	&StatsAssistantToolRounds,
	&StatsCacheHits,
	&StatsCacheMisses,
	&StatsLLMInputTokens,
	&StatsLLMMessagesSent,
	&StatsLLMOutputTokens,
	&StatsLLMTotalTokens,
	&StatsMCPHandshakes,
	&StatsMCPHandshakesFailed,
	&StatsMCPRequestsFailed,
	&StatsToolArgsInjected,
	&StatsToolCallsFailed,
	&StatsToolCallsNotFound,
	&StatsToolCallsSucceeded,
}
