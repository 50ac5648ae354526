package assistants

import (
	"context"
	"fmt"
	"io"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

// NoopCallback does nothing.
type NoopCallback struct{}

func NewNoopCallback() *NoopCallback {
	return &NoopCallback{}
}

var _ Callback = (*NoopCallback)(nil)

func (l *NoopCallback) OnAssistantStart(ctx context.Context, assistant IAssistant, input string) {}
func (l *NoopCallback) OnAssistantEnd(ctx context.Context, assistant IAssistant, input string, res *Result) {
}
func (l *NoopCallback) OnAssistantError(ctx context.Context, assistant IAssistant, input string, err error) {
}
func (l *NoopCallback) OnLLMCallStart(ctx context.Context, assistant IAssistant, messages []llms.Message) {
}
func (l *NoopCallback) OnLLMCallEnd(ctx context.Context, assistant IAssistant, resp *llms.ContentResponse) {
}
func (l *NoopCallback) OnToolStart(ctx context.Context, tool tools.ITool, args string) {}
func (l *NoopCallback) OnToolEnd(ctx context.Context, tool tools.ITool, args string, output string) {
}
func (l *NoopCallback) OnToolError(ctx context.Context, tool tools.ITool, args string, err error) {}

// PrinterCallback is a callback handler that prints to the Writer.
type PrinterCallback struct {
	Out io.Writer
}

func NewPrinterCallback(out io.Writer) *PrinterCallback {
	return &PrinterCallback{Out: out}
}

var _ Callback = (*PrinterCallback)(nil)

func (l *PrinterCallback) OnAssistantStart(ctx context.Context, assistant IAssistant, input string) {
	fmt.Fprintf(l.Out, "Assistant Start: %s\n", assistant.Name())
	fmt.Fprintf(l.Out, "Input: %s\n", input)
}

func (l *PrinterCallback) OnAssistantEnd(ctx context.Context, assistant IAssistant, input string, res *Result) {
	fmt.Fprintf(l.Out, "Assistant End: %s, rounds: %d, tool calls: %d\n", assistant.Name(), res.Rounds, len(res.ToolCalls))
}

func (l *PrinterCallback) OnAssistantError(ctx context.Context, assistant IAssistant, input string, err error) {
	fmt.Fprintf(l.Out, "Assistant Error: %s: %s\n", assistant.Name(), err.Error())
}

func (l *PrinterCallback) OnLLMCallStart(ctx context.Context, assistant IAssistant, messages []llms.Message) {
	fmt.Fprintf(l.Out, "LLM Call: %s, messages: %d\n", assistant.Name(), len(messages))
}

func (l *PrinterCallback) OnLLMCallEnd(ctx context.Context, assistant IAssistant, resp *llms.ContentResponse) {
	for _, choice := range resp.Choices {
		for _, tc := range choice.ToolCalls {
			if tc.FunctionCall != nil {
				fmt.Fprintf(l.Out, "LLM Tool Call: %s\n", tc.FunctionCall.Name)
			}
		}
	}
}

func (l *PrinterCallback) OnToolStart(ctx context.Context, tool tools.ITool, args string) {
	fmt.Fprintf(l.Out, "[📡 MCP 호출] %s %s\n", tool.Name(), args)
}

func (l *PrinterCallback) OnToolEnd(ctx context.Context, tool tools.ITool, args string, output string) {
	fmt.Fprintf(l.Out, "[📦 body ] %s\n", output)
}

func (l *PrinterCallback) OnToolError(ctx context.Context, tool tools.ITool, args string, err error) {
	fmt.Fprintf(l.Out, "Tool Error: %s: %s\n", tool.Name(), err.Error())
}

// PackageLoggerCallback is a callback handler that prints to the logger.
type PackageLoggerCallback struct {
	logger *xlog.PackageLogger
}

func NewPackageLoggerCallback(logger *xlog.PackageLogger) *PackageLoggerCallback {
	return &PackageLoggerCallback{logger: logger}
}

var _ Callback = (*PackageLoggerCallback)(nil)

func (l *PackageLoggerCallback) OnAssistantStart(ctx context.Context, assistant IAssistant, input string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "assistant_start",
		"assistant", assistant.Name(),
		"input", slices.StringUpto(input, 256),
	)
}

func (l *PackageLoggerCallback) OnAssistantEnd(ctx context.Context, assistant IAssistant, input string, res *Result) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "assistant_end",
		"assistant", assistant.Name(),
		"rounds", res.Rounds,
		"tool_calls", len(res.ToolCalls),
		"result", slices.StringUpto(res.Answer, 256),
	)
}

func (l *PackageLoggerCallback) OnAssistantError(ctx context.Context, assistant IAssistant, input string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "assistant_error",
		"assistant", assistant.Name(),
		"err", err.Error(),
	)
}

func (l *PackageLoggerCallback) OnLLMCallStart(ctx context.Context, assistant IAssistant, messages []llms.Message) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_start",
		"assistant", assistant.Name(),
		"messages", len(messages),
	)
}

func (l *PackageLoggerCallback) OnLLMCallEnd(ctx context.Context, assistant IAssistant, resp *llms.ContentResponse) {
	in, out, total := llms.CountTokens(resp)
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "llm_call_end",
		"assistant", assistant.Name(),
		"choices", len(resp.Choices),
		"tokens_in", in,
		"tokens_out", out,
		"tokens_total", total,
	)
}

func (l *PackageLoggerCallback) OnToolStart(ctx context.Context, tool tools.ITool, args string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_start",
		"tool", tool.Name(),
		"args", slices.StringUpto(args, 256),
	)
}

func (l *PackageLoggerCallback) OnToolEnd(ctx context.Context, tool tools.ITool, args string, output string) {
	l.logger.ContextKV(ctx, xlog.DEBUG,
		"event", "tool_end",
		"tool", tool.Name(),
		"output", slices.StringUpto(output, 256),
	)
}

func (l *PackageLoggerCallback) OnToolError(ctx context.Context, tool tools.ITool, args string, err error) {
	l.logger.ContextKV(ctx, xlog.ERROR,
		"event", "tool_error",
		"tool", tool.Name(),
		"err", err.Error(),
	)
}
