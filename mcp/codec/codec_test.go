package codec_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/codec"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamForm(js string, crlf bool) string {
	nl := "\n"
	if crlf {
		nl = "\r\n"
	}
	return "event: message" + nl + "data: " + js + nl + nl
}

func TestEncode(t *testing.T) {
	msg, err := transport.NewRequest("abc", transport.MethodToolsCall, transport.CallToolParams{
		Name:      "search_databases",
		Arguments: map[string]any{"query": "<프로젝트>"},
	})
	require.NoError(t, err)
	js, err := codec.Encode(msg)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"jsonrpc":"2.0","id":"abc","method":"tools/call","params":{"name":"search_databases","arguments":{"query":"<프로젝트>"}}}`,
		string(js))
}

func TestIsEventStream(t *testing.T) {
	assert.True(t, codec.IsEventStream("text/event-stream"))
	assert.True(t, codec.IsEventStream("text/event-stream; charset=utf-8"))
	assert.True(t, codec.IsEventStream("Text/Event-Stream"))
	assert.False(t, codec.IsEventStream("application/json"))
	assert.False(t, codec.IsEventStream(""))
	assert.False(t, codec.IsEventStream("text/plain"))
}

func TestDecode_StreamEqualsJSON(t *testing.T) {
	docs := []string{
		`{"jsonrpc":"2.0","id":"1","result":{"content":[{"type":"text","text":"[{\"id\":\"db1\",\"title\":\"프로젝트\"}]"}]}}`,
		`{"jsonrpc":"2.0","id":"1","result":{"content":[{"type":"text","text":"hello"}]}}`,
		`{"jsonrpc":"2.0","id":"1","result":{"tools":[{"name":"a"}]}}`,
		`[{"id":"p1"},{"id":"p2"}]`,
		`{"projects":[{"id":"p1"}]}`,
		`"plain"`,
		`42`,
	}
	for i, doc := range docs {
		t.Run(fmt.Sprintf("doc%d", i), func(t *testing.T) {
			fromJSON, err := codec.Decode("application/json", []byte(doc))
			require.NoError(t, err)

			for _, crlf := range []bool{false, true} {
				fromStream, err := codec.Decode("text/event-stream", []byte(streamForm(doc, crlf)))
				require.NoError(t, err)
				assert.Equal(t, fromJSON, fromStream)
			}
		})
	}
}

func TestDecode_Stream(t *testing.T) {
	t.Run("multi_line_data", func(t *testing.T) {
		body := "data: {\"result\":\ndata: {\"ok\":true}}\n\n"
		v, err := codec.Decode("text/event-stream", []byte(body))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"ok": true}, v)
	})
	t.Run("no_trailing_blank_line", func(t *testing.T) {
		v, err := codec.Decode("text/event-stream", []byte(`data: {"a":1}`))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, v)
	})
	t.Run("first_event_only", func(t *testing.T) {
		body := "data: {\"a\":1}\n\ndata: {\"a\":2}\n\n"
		v, err := codec.Decode("text/event-stream", []byte(body))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, v)
	})
	t.Run("comments_and_ids", func(t *testing.T) {
		body := ": ping\nid: 5\nevent: message\ndata:{\"a\":1}\n\n"
		v, err := codec.Decode("text/event-stream; charset=utf-8", []byte(body))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"a": float64(1)}, v)
	})
	t.Run("empty", func(t *testing.T) {
		_, err := codec.Decode("text/event-stream", []byte("\n\n"))
		require.Error(t, err)
		assert.ErrorIs(t, err, chatmodel.ErrDecode)
	})
}

func TestDecode_Unwrap(t *testing.T) {
	tcs := []struct {
		name string
		body string
		exp  any
	}{
		{
			name: "nested_json",
			body: `{"result":{"content":[{"type":"text","text":"{\"projects\":[{\"id\":\"p1\"}]}"}]}}`,
			exp:  map[string]any{"projects": []any{map[string]any{"id": "p1"}}},
		},
		{
			name: "nested_text",
			body: `{"result":{"content":[{"type":"text","text":"요약: 진행 중"}]}}`,
			exp:  "요약: 진행 중",
		},
		{
			name: "nested_number_overflow",
			body: `{"result":{"content":[{"text":"{\"n\":1e999}"}]}}`,
			exp:  `{"n":1e999}`,
		},
		{
			name: "empty_text",
			body: `{"result":{"content":[{"type":"text","text":""}]}}`,
			exp:  map[string]any{"content": []any{map[string]any{"type": "text", "text": ""}}},
		},
		{
			name: "no_content",
			body: `{"result":{"schema":{"Name":"title"}}}`,
			exp:  map[string]any{"schema": map[string]any{"Name": "title"}},
		},
		{
			name: "empty_content",
			body: `{"result":{"content":[]}}`,
			exp:  map[string]any{"content": []any{}},
		},
		{
			name: "result_not_object",
			body: `{"result":[1,2]}`,
			exp:  []any{float64(1), float64(2)},
		},
		{
			name: "no_result",
			body: `{"projects":[]}`,
			exp:  map[string]any{"projects": []any{}},
		},
		{
			name: "array",
			body: `[{"id":"db1","title":"프로젝트"}]`,
			exp:  []any{map[string]any{"id": "db1", "title": "프로젝트"}},
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			v, err := codec.Decode("application/json", []byte(tc.body))
			require.NoError(t, err)
			assert.Equal(t, tc.exp, v)
		})
	}
}

func TestUnwrapKinds(t *testing.T) {
	u, err := codec.UnwrapJSON([]byte(`{"result":{"content":[{"text":"[1]"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, codec.KindNested, u.Kind)
	assert.Equal(t, "nested", u.Kind.String())

	u, err = codec.UnwrapJSON([]byte(`{"result":{"content":[{"text":"[1e999]"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, codec.KindText, u.Kind)
	assert.Equal(t, "[1e999]", u.Value)

	u, err = codec.UnwrapJSON([]byte(`{"result":{"content":[{"text":"hi"}]}}`))
	require.NoError(t, err)
	assert.Equal(t, codec.KindText, u.Kind)
	assert.Equal(t, "text", u.Kind.String())

	u, err = codec.UnwrapJSON([]byte(`{"result":{}}`))
	require.NoError(t, err)
	assert.Equal(t, codec.KindResult, u.Kind)
	assert.Equal(t, "result", u.Kind.String())

	u, err = codec.UnwrapJSON([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, codec.KindPassThrough, u.Kind)
	assert.Equal(t, "pass_through", u.Kind.String())
}

func TestDecode_Idempotent(t *testing.T) {
	bodies := []string{
		`{"result":{"content":[{"text":"{\"projects\":[{\"id\":\"p1\"}]}"}]}}`,
		`{"result":{"content":[{"text":"not json"}]}}`,
		`[{"id":"db1"}]`,
		`{"analysis":"ok"}`,
	}
	for _, body := range bodies {
		once, err := codec.Decode("application/json", []byte(body))
		require.NoError(t, err)
		twice, err := codec.DecodeValue(once)
		require.NoError(t, err)
		assert.Equal(t, once, twice)
	}
}

func TestDecode_Errors(t *testing.T) {
	for _, body := range []string{"", "not json", `{"result":`, "<html></html>"} {
		_, err := codec.Decode("application/json", []byte(body))
		require.Error(t, err, body)
		assert.ErrorIs(t, err, chatmodel.ErrDecode)
	}

	_, err := codec.Decode("text/event-stream", []byte("data: {broken\n\n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, chatmodel.ErrDecode)
}

func TestCompact(t *testing.T) {
	s, err := codec.Compact(map[string]any{"title": "프로젝트 <A&B>", "n": 1})
	require.NoError(t, err)
	assert.Equal(t, `{"n":1,"title":"프로젝트 <A&B>"}`, s)
	assert.False(t, strings.HasSuffix(s, "\n"))

	_, err = codec.Compact(func() {})
	assert.Error(t, err)
}
