// Package codec converts MCP envelopes to wire bytes and decodes
// tool host replies, plain JSON or SSE, into a single result value.
package codec

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/openai/openai-go/v3/packages/ssestream"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat/mcp", "codec")

// Encode returns the compact JSON of the message
func Encode(msg *transport.BaseJsonRpcMessage) ([]byte, error) {
	js, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode message")
	}
	return js, nil
}

// IsEventStream returns true for text/event-stream content type
func IsEventStream(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	return strings.EqualFold(mt, transport.ContentTypeStream)
}

// Payload returns the JSON document carried by the body.
// For event streams it is the data of the first event, otherwise the body itself.
func Payload(contentType string, body []byte) ([]byte, error) {
	if !IsEventStream(contentType) {
		return bytes.TrimSpace(body), nil
	}
	return firstEventData(body)
}

func firstEventData(body []byte) ([]byte, error) {
	// the last event must be terminated by a blank line to be dispatched
	buf := make([]byte, 0, len(body)+2)
	buf = append(buf, body...)
	buf = append(buf, '\n', '\n')

	dec := ssestream.NewDecoder(&http.Response{
		Header: http.Header{},
		Body:   io.NopCloser(bytes.NewReader(buf)),
	})
	defer func() { _ = dec.Close() }()

	for dec.Next() {
		data := bytes.TrimSpace(dec.Event().Data)
		if len(data) > 0 {
			return data, nil
		}
	}
	if err := dec.Err(); err != nil {
		return nil, chatmodel.Mark(errors.Wrap(err, "failed to read event stream"), chatmodel.ErrDecode)
	}
	return nil, chatmodel.Mark(errors.New("event stream has no data"), chatmodel.ErrDecode)
}

// Decode parses the reply body and unwraps the tool result.
func Decode(contentType string, body []byte) (any, error) {
	raw, err := Payload(contentType, body)
	if err != nil {
		return nil, err
	}
	u, err := UnwrapJSON(raw)
	if err != nil {
		logger.KV(xlog.DEBUG,
			"status", "decode_failed",
			"content_type", contentType,
			"body", slices.StringUpto(string(body), 256),
		)
		return nil, err
	}
	return u.Value, nil
}

// DecodeValue unwraps a value that was already parsed.
// A value without a result envelope is returned unchanged.
func DecodeValue(v any) (any, error) {
	u, err := Unwrap(v)
	if err != nil {
		return nil, err
	}
	return u.Value, nil
}
