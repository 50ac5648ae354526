package assistants_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/assistants"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/client"
	"github.com/effective-security/mcpchat/mocks/mockllms"
	"github.com/effective-security/mcpchat/mocks/mocktools"
	"github.com/effective-security/mcpchat/pkg/llms"
	"github.com/effective-security/mcpchat/pkg/llms/openai"
	"github.com/effective-security/mcpchat/tools"
	"github.com/effective-security/mcpchat/tools/notion"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: text}},
	}
}

func toolResponse(calls ...llms.ToolCall) *llms.ContentResponse {
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{ToolCalls: calls}},
	}
}

func toolCall(id, name, args string) llms.ToolCall {
	return llms.ToolCall{
		ID:           id,
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: name, Arguments: args},
	}
}

func newMockLLM(ctrl *gomock.Controller) *mockllms.MockModel {
	m := mockllms.NewMockModel(ctrl)
	m.EXPECT().GetName().Return("gpt-4o-mini").AnyTimes()
	m.EXPECT().GetProviderType().Return(llms.ProviderOpenAI).AnyTimes()
	return m
}

func newRegistry(t *testing.T) *tools.Registry {
	reg, err := notion.NewRegistry()
	require.NoError(t, err)
	return reg
}

func Test_Assistant_PlainAnswer(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			require.Len(t, messages, 2)
			assert.Equal(t, llms.RoleSystem, messages[0].Role)
			assert.Equal(t, assistants.DefaultSystemPrompt, messages[0].Text())
			assert.Equal(t, llms.RoleHuman, messages[1].Role)
			assert.Equal(t, "안녕", messages[1].Text())

			opts := llms.NewCallOptions(options...)
			assert.Len(t, opts.Tools, 5)
			assert.Equal(t, "auto", opts.ToolChoice)
			return textResponse("안녕하세요! 무엇을 도와드릴까요?"), nil
		}).Times(1)

	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t))
	res, err := a.Run(context.Background(), "안녕")
	require.NoError(t, err)
	assert.Equal(t, "안녕하세요! 무엇을 도와드릴까요?", res.Answer)
	assert.Equal(t, 0, res.Rounds)
	assert.Empty(t, res.ToolCalls)
	require.Len(t, res.Messages, 3)
	assert.Equal(t, llms.RoleAI, res.Messages[2].Role)
}

func Test_Assistant_InjectFromProducerChain(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(toolCall("call_1", notion.ToolAnalyzeProjects, "{}")), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
				require.Len(t, messages, 4)
				tcs := messages[2].ToolCalls()
				require.Len(t, tcs, 1)
				assert.Equal(t, "call_1", tcs[0].ID)
				assert.Equal(t, `{"analyze":[{"id":"p1"}]}`, tcs[0].FunctionCall.Arguments)

				require.Len(t, messages[3].Parts, 1)
				resp, ok := messages[3].Parts[0].(llms.ToolCallResponse)
				require.True(t, ok)
				assert.Equal(t, "call_1", resp.ToolCallID)
				assert.Equal(t, notion.ToolAnalyzeProjects, resp.Name)
				assert.Equal(t, `{"summary":"총 프로젝트 수: 1개"}`, resp.Content)
				return textResponse("총 프로젝트 수: 1개"), nil
			}),
	)

	gomock.InOrder(
		mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolSearchDatabases, map[string]any{"query": "프로젝트"}).
			Return([]any{map[string]any{"id": "db1", "title": "프로젝트"}}, nil),
		mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolGetProjects, map[string]any{"database_id": "db1"}).
			Return(map[string]any{"projects": []any{map[string]any{"id": "p1"}}}, nil),
		mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolAnalyzeProjects, gomock.Any()).
			DoAndReturn(func(ctx context.Context, name string, args map[string]any) (any, error) {
				assert.Equal(t, []any{map[string]any{"id": "p1"}}, args["analyze"])
				return map[string]any{"summary": "총 프로젝트 수: 1개"}, nil
			}),
	)

	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t))
	res, err := a.Run(context.Background(), "프로젝트 분석해줘")
	require.NoError(t, err)
	assert.Equal(t, "총 프로젝트 수: 1개", res.Answer)
	assert.Equal(t, 1, res.Rounds)
	require.Len(t, res.ToolCalls, 1)
	assert.True(t, res.ToolCalls[0].Injected)
	assert.Equal(t, notion.ToolAnalyzeProjects, res.ToolCalls[0].Name)
}

func Test_Assistant_InjectFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	projects := []any{
		map[string]any{"id": "p1", "status": "완료"},
		map[string]any{"id": "p2", "status": "진행"},
	}

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(toolCall("call_1", notion.ToolGetProjects, `{"database_id":"db1"}`)), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(toolCall("call_2", notion.ToolAnalyzeProjects, "")), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("done"), nil),
	)

	// no producer calls: search_databases is never expected
	gomock.InOrder(
		mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolGetProjects, map[string]any{"database_id": "db1"}).
			Return(map[string]any{"projects": projects}, nil),
		mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolAnalyzeProjects, gomock.Any()).
			DoAndReturn(func(ctx context.Context, name string, args map[string]any) (any, error) {
				assert.Equal(t, projects, args["analyze"])
				return map[string]any{"summary": "ok"}, nil
			}),
	)

	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t))
	res, err := a.Run(context.Background(), "프로젝트 분석해줘")
	require.NoError(t, err)
	assert.Equal(t, "done", res.Answer)
	assert.Equal(t, 2, res.Rounds)
	require.Len(t, res.ToolCalls, 2)
	assert.False(t, res.ToolCalls[0].Injected)
	assert.True(t, res.ToolCalls[1].Injected)
	assert.Equal(t, `{"projects":[{"id":"p1","status":"완료"},{"id":"p2","status":"진행"}]}`, res.ToolCalls[0].Output)
}

func Test_Assistant_ExplicitAnalyzeNotInjected(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(toolCall("call_1", notion.ToolAnalyzeProjects, `{"analyze":[{"id":"p9"}]}`)), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("empty"), nil),
	)
	mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolAnalyzeProjects, map[string]any{"analyze": []any{map[string]any{"id": "p9"}}}).
		Return(map[string]any{"summary": "none"}, nil)

	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t))
	res, err := a.Run(context.Background(), "분석")
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 1)
	assert.False(t, res.ToolCalls[0].Injected)
}

func Test_Assistant_DatabaseNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolResponse(toolCall("call_1", notion.ToolAnalyzeProjects, "{}")), nil).
		Times(1)
	mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolSearchDatabases, gomock.Any()).
		Return([]any{}, nil).
		Times(1)

	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t))
	answer := a.Chat(context.Background(), "프로젝트 분석해줘")
	assert.Equal(t, notion.MsgDatabaseNotFound, answer)
}

func Test_Assistant_TransportFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     string `json:"id"`
			Method string `json:"method"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		switch req.Method {
		case "initialize":
			w.Header().Set("Mcp-Session-Id", "sess-1")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":"` + req.ID + `","result":{}}`))
		case "notifications/initialized":
			w.WriteHeader(http.StatusAccepted)
		default:
			http.Error(w, "boom", http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	mcp := client.New(&client.Config{
		URL:              srv.URL + "/mcp",
		HandshakeTimeout: "2s",
		NotifyTimeout:    "2s",
		CallTimeout:      "2s",
	}, client.WithHTTPClient(srv.Client()))

	mockLLM := newMockLLM(ctrl)
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolResponse(toolCall("call_1", notion.ToolSearchDatabases, `{"query":"프로젝트"}`)), nil).
		Times(1)

	a := assistants.NewAssistant(mockLLM, mcp, newRegistry(t))
	_, err := a.Run(context.Background(), "데이터베이스 찾아줘")
	require.Error(t, err)
	assert.True(t, errors.Is(err, chatmodel.ErrTransport))
	assert.Contains(t, err.Error(), "500")

	msg := chatmodel.UserMessage(err)
	assert.True(t, strings.HasPrefix(msg, "⚠️ TransportError: "), msg)
}

func Test_Assistant_MaxToolRounds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolResponse(toolCall("", notion.ToolGetPageSummary, `{"page_id":"p1"}`)), nil).
		Times(3)
	mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolGetPageSummary, map[string]any{"page_id": "p1"}).
		Return(map[string]any{"title": "t"}, nil).
		Times(2)

	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t), assistants.WithMaxToolRounds(2))
	res, err := a.Run(context.Background(), "요약")
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, chatmodel.ErrMaxToolRounds))
	assert.Equal(t, "MaxToolRoundsError", chatmodel.Kind(err))
}

func Test_Assistant_LLMErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockInvoker := mocktools.NewMockInvoker(ctrl)

	t.Run("error", func(t *testing.T) {
		mockLLM := newMockLLM(ctrl)
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(nil, errors.New("API returned unexpected status code: 401")).
			Times(2)

		a := assistants.NewAssistant(mockLLM, mockInvoker, nil)
		_, err := a.Run(context.Background(), "안녕")
		require.Error(t, err)
		assert.True(t, errors.Is(err, chatmodel.ErrLLM))
		assert.Equal(t, "⚠️ LLMError: failed to generate content: API returned unexpected status code: 401", a.Chat(context.Background(), "안녕"))
	})

	t.Run("no_choices", func(t *testing.T) {
		mockLLM := newMockLLM(ctrl)
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(&llms.ContentResponse{}, nil)

		a := assistants.NewAssistant(mockLLM, mockInvoker, nil)
		_, err := a.Run(context.Background(), "안녕")
		require.Error(t, err)
		assert.True(t, errors.Is(err, chatmodel.ErrLLM))
	})
}

func Test_Assistant_UnknownTool(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(llms.ToolCall{FunctionCall: &llms.FunctionCall{Name: "list_users"}}), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("ok"), nil),
	)
	mockInvoker.EXPECT().CallTool(gomock.Any(), "list_users", map[string]any{}).
		Return("no users", nil)

	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t))
	res, err := a.Run(context.Background(), "사용자 목록")
	require.NoError(t, err)
	require.Len(t, res.ToolCalls, 1)
	assert.Equal(t, "list_users_0", res.ToolCalls[0].ID)
	assert.Equal(t, "{}", res.ToolCalls[0].Arguments)
	assert.Equal(t, `"no users"`, res.ToolCalls[0].Output)

	tcs := res.Messages[2].ToolCalls()
	require.Len(t, tcs, 1)
	assert.Equal(t, "function", tcs[0].Type)
}

func Test_Assistant_ToolError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(toolResponse(toolCall("call_1", notion.ToolGetDatabaseSchema, `{"get_schema":"db1"}`)), nil).
		Times(1)
	mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolGetDatabaseSchema, gomock.Any()).
		Return(nil, chatmodel.Mark(errors.New("invalid JSON"), chatmodel.ErrDecode))

	var out strings.Builder
	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t),
		assistants.WithCallback(assistants.NewPrinterCallback(&out)))
	assert.Equal(t, "⚠️ DecodeError: invalid JSON", a.Chat(context.Background(), "스키마"))
	assert.Contains(t, out.String(), "Tool Error: get_database_schema: invalid JSON")
	assert.Contains(t, out.String(), "Assistant Error: mcpchat: invalid JSON")
}

func Test_Assistant_PrinterCallback(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockInvoker := mocktools.NewMockInvoker(ctrl)

	gomock.InOrder(
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(toolResponse(toolCall("call_1", notion.ToolGetPageSummary, "```json\n{\"page_id\": \"p1\"}\n```")), nil),
		mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(textResponse("요약입니다"), nil),
	)
	mockInvoker.EXPECT().CallTool(gomock.Any(), notion.ToolGetPageSummary, map[string]any{"page_id": "p1"}).
		Return(map[string]any{"title": "<주간 회의>"}, nil)

	var out strings.Builder
	a := assistants.NewAssistant(mockLLM, mockInvoker, newRegistry(t),
		assistants.WithName("notion"),
		assistants.WithCallback(assistants.NewPrinterCallback(&out)))
	assert.Equal(t, "notion", a.Name())
	assert.NotEmpty(t, a.Description())

	assert.Equal(t, "요약입니다", a.Chat(context.Background(), "페이지 요약"))

	printed := out.String()
	assert.Contains(t, printed, "Assistant Start: notion\n")
	assert.Contains(t, printed, "[📡 MCP 호출] get_page_summary {\"page_id\":\"p1\"}\n")
	assert.Contains(t, printed, "[📦 body ] {\"title\":\"<주간 회의>\"}\n")
	assert.Contains(t, printed, "LLM Tool Call: get_page_summary\n")
	assert.Contains(t, printed, "Assistant End: notion, rounds: 1, tool calls: 1\n")
}

func Test_Assistant_ChatContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			assert.Equal(t, "chat-1", chatmodel.GetChatID(ctx))
			return textResponse("hi"), nil
		})

	a := assistants.NewAssistant(mockLLM, mocktools.NewMockInvoker(ctrl), nil)
	ctx := chatmodel.WithChatContext(context.Background(), chatmodel.NewChatContext("chat-1"))
	assert.Equal(t, "hi", a.Chat(ctx, "hello"))
}

func Test_NormalizeArguments(t *testing.T) {
	tcases := []struct {
		in  string
		exp string
	}{
		{"", "{}"},
		{"  ", "{}"},
		{"{}", "{}"},
		{`{"query": "프로젝트"}`, `{"query":"프로젝트"}`},
		{"```json\n{\"database_id\": \"db1\"}\n```", `{"database_id":"db1"}`},
		{`Sure: {"page_id":"p1"}`, `{"page_id":"p1"}`},
	}
	for _, tc := range tcases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := assistants.NormalizeArguments(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.exp, got)
		})
	}
}

func Test_Assistant_LLMTimeout(t *testing.T) {
	stop := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// never replies
		select {
		case <-r.Context().Done():
		case <-stop:
		}
	}))
	defer srv.Close()
	defer close(stop)

	model, err := openai.New(openai.WithToken("tok"), openai.WithBaseURL(srv.URL))
	require.NoError(t, err)

	a := assistants.NewAssistant(model, nil, nil, assistants.WithLLMTimeout(200*time.Millisecond))
	started := time.Now()
	_, err = a.Run(context.Background(), "안녕")
	require.Error(t, err)
	assert.Less(t, time.Since(started), 5*time.Second)
	assert.True(t, errors.Is(err, chatmodel.ErrTransport))
	assert.False(t, errors.Is(err, chatmodel.ErrLLM))

	msg := a.Chat(context.Background(), "안녕")
	assert.True(t, strings.HasPrefix(msg, "⚠️ TransportError: model call timed out after 200ms"), msg)
}

func Test_Assistant_LLMTimeoutFromMock(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := newMockLLM(ctrl)
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			assert.WithinDuration(t, time.Now().Add(time.Second), deadline, 500*time.Millisecond)
			<-ctx.Done()
			return nil, ctx.Err()
		})

	a := assistants.NewAssistant(mockLLM, mocktools.NewMockInvoker(ctrl), nil, assistants.WithLLMTimeout(time.Second))
	_, err := a.Run(context.Background(), "안녕")
	require.Error(t, err)
	assert.Equal(t, "TransportError", chatmodel.Kind(err))
}

func Test_Assistant_FunctionCallingNotSupported(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockLLM := mockllms.NewMockModel(ctrl)
	mockLLM.EXPECT().GetName().Return("local").AnyTimes()
	mockLLM.EXPECT().GetProviderType().Return(llms.ProviderType("LOCAL")).AnyTimes()
	mockLLM.EXPECT().GenerateContent(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, messages []llms.Message, options ...llms.CallOption) (*llms.ContentResponse, error) {
			opts := llms.NewCallOptions(options...)
			assert.Empty(t, opts.Tools)
			assert.Nil(t, opts.ToolChoice)
			return textResponse("hi"), nil
		})

	a := assistants.NewAssistant(mockLLM, mocktools.NewMockInvoker(ctrl), newRegistry(t))
	assert.Equal(t, "hi", a.Chat(context.Background(), "안녕"))
}
