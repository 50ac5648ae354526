package codec

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/x/slices"
	"github.com/tidwall/gjson"
)

// Kind tells which branch of the unwrap produced the value
type Kind int

const (
	// KindPassThrough is a value without result envelope, returned as is
	KindPassThrough Kind = iota
	// KindResult is the result member, no text content block was found
	KindResult
	// KindNested is the JSON parsed from result.content[0].text
	KindNested
	// KindText is result.content[0].text that is not JSON
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindNested:
		return "nested"
	case KindText:
		return "text"
	default:
		return "pass_through"
	}
}

// Unwrapped is the decoded tool result
type Unwrapped struct {
	Kind  Kind
	Value any
}

const textPath = "content.0.text"

// UnwrapJSON decodes raw JSON and unwraps the result envelope:
// result.content[0].text is parsed as JSON when possible,
// otherwise the text, or the result itself, is returned.
func UnwrapJSON(raw []byte) (*Unwrapped, error) {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return nil, chatmodel.Mark(errors.Newf("invalid JSON payload: %q", slices.StringUpto(string(raw), 64)), chatmodel.ErrDecode)
	}

	doc := gjson.ParseBytes(raw)
	result := doc.Get("result")
	if !doc.IsObject() || !result.Exists() {
		v, err := unmarshal(raw)
		if err != nil {
			return nil, err
		}
		return &Unwrapped{Kind: KindPassThrough, Value: v}, nil
	}

	text := result.Get(textPath)
	if text.Type == gjson.String && text.Str != "" {
		if gjson.Valid(text.Str) {
			// the text is returned as is when it does not fit a Go value, like 1e999
			if v, err := unmarshal([]byte(text.Str)); err == nil {
				return &Unwrapped{Kind: KindNested, Value: v}, nil
			}
		}
		return &Unwrapped{Kind: KindText, Value: text.Str}, nil
	}

	v, err := unmarshal([]byte(result.Raw))
	if err != nil {
		return nil, err
	}
	return &Unwrapped{Kind: KindResult, Value: v}, nil
}

// Unwrap applies UnwrapJSON to an already parsed value
func Unwrap(v any) (*Unwrapped, error) {
	if s, ok := v.(string); ok {
		// plain text results are final
		return &Unwrapped{Kind: KindPassThrough, Value: s}, nil
	}
	js, err := json.Marshal(v)
	if err != nil {
		return nil, chatmodel.Mark(errors.Wrap(err, "failed to encode value"), chatmodel.ErrDecode)
	}
	return UnwrapJSON(js)
}

func unmarshal(raw []byte) (any, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, chatmodel.Mark(errors.Wrap(err, "failed to parse JSON"), chatmodel.ErrDecode)
	}
	return v, nil
}
