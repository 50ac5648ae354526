package assistants

import (
	"context"
	"time"

	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat", "assistants")

//go:generate mockgen -destination=../mocks/mockllms/llm_mock.gen.go -package mockllms github.com/effective-security/mcpchat/pkg/llms Model

const (
	// DefaultName is the name of the assistant in logs and metrics
	DefaultName = "mcpchat"
	// DefaultMaxToolRounds is the number of tool dispatch rounds allowed per turn
	DefaultMaxToolRounds = 10
	// DefaultLLMTimeout bounds one model call
	DefaultLLMTimeout = 60 * time.Second
	// DefaultToolChoice lets the model decide whether to call tools
	DefaultToolChoice = "auto"
	// DefaultSystemPrompt instructs the model to answer in conversation
	// and call the Notion tools when projects or databases are mentioned.
	DefaultSystemPrompt = "당신은 사용자의 일반 대화에 답변하다가, ‘프로젝트’·‘데이터베이스’ " +
		"같은 키워드가 포함되면 MCP 도구(search_databases 등)를 호출해야 합니다."
)

type IAssistant interface {
	// Name returns the name of the Assistant.
	Name() string
	// Description returns the description of the Assistant.
	Description() string
}

type Callback interface {
	tools.Callback

	OnAssistantStart(ctx context.Context, assistant IAssistant, input string)
	OnAssistantEnd(ctx context.Context, assistant IAssistant, input string, res *Result)
	OnAssistantError(ctx context.Context, assistant IAssistant, input string, err error)

	OnLLMCallStart(ctx context.Context, assistant IAssistant, messages []llms.Message)
	OnLLMCallEnd(ctx context.Context, assistant IAssistant, resp *llms.ContentResponse)
}
