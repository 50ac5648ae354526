package chatmodel

import (
	goerr "errors"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestMark(t *testing.T) {
	assert.Nil(t, Mark(nil, ErrTransport))

	err := Mark(errors.New("connection refused"), ErrTransport)
	assert.Equal(t, "connection refused", err.Error())
	assert.True(t, goerr.Is(err, ErrTransport))
	assert.True(t, goerr.Is(errors.WithMessage(err, "tools/call"), ErrTransport))
	assert.False(t, goerr.Is(err, ErrDecode))
}

func TestKind(t *testing.T) {
	tcs := []struct {
		err  error
		kind string
	}{
		{Mark(errors.New("x"), ErrHandshake), "HandshakeError"},
		{Mark(errors.New("x"), ErrTransport), "TransportError"},
		{Mark(errors.New("x"), ErrDecode), "DecodeError"},
		{NewMissingUpstreamData("x"), "MissingUpstreamDataError"},
		{errors.Wrap(ErrMaxToolRounds, "assistant"), "MaxToolRoundsError"},
		{Mark(errors.New("x"), ErrLLM), "LLMError"},
		{errors.New("x"), "Error"},
	}
	for _, tc := range tcs {
		assert.Equal(t, tc.kind, Kind(tc.err))
	}
}

func TestUserMessage(t *testing.T) {
	assert.Empty(t, UserMessage(nil))

	msg := "⚠️ 조회된 프로젝트가 없습니다."
	assert.Equal(t, msg, UserMessage(NewMissingUpstreamData(msg)))

	err := Mark(errors.New("status 502"), ErrTransport)
	assert.Equal(t, "⚠️ TransportError: status 502", UserMessage(err))
}
