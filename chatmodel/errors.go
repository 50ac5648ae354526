package chatmodel

import (
	"github.com/cockroachdb/errors"
)

// Error kinds. Use errors.Is to check the kind of a returned error.
var (
	// ErrHandshake is returned when the tool host completed the handshake
	// without issuing a session token.
	ErrHandshake = errors.New("handshake failed")
	// ErrTransport is returned on network failure, timeout or non-success status.
	ErrTransport = errors.New("transport error")
	// ErrDecode is returned when a response body cannot be parsed.
	ErrDecode = errors.New("decode error")
	// ErrMissingUpstreamData is returned when a dependent tool cannot be
	// satisfied because its producer returned nothing usable.
	ErrMissingUpstreamData = errors.New("missing upstream data")
	// ErrMaxToolRounds is returned when the model keeps requesting tools
	// after the configured number of rounds.
	ErrMaxToolRounds = errors.New("max tool rounds exceeded")
	// ErrLLM is returned when the model endpoint fails.
	ErrLLM = errors.New("model error")

	ErrInvalidChatContext = errors.New("invalid chat context")
	// ErrFailedUnmarshalInput is returned when a tool fails to parse its arguments.
	ErrFailedUnmarshalInput = errors.New("failed to unmarshal input: check the schema and try again")
)

var kinds = []struct {
	err  error
	name string
}{
	{ErrHandshake, "HandshakeError"},
	{ErrTransport, "TransportError"},
	{ErrDecode, "DecodeError"},
	{ErrMissingUpstreamData, "MissingUpstreamDataError"},
	{ErrMaxToolRounds, "MaxToolRoundsError"},
	{ErrLLM, "LLMError"},
}

// Mark returns err marked with the kind,
// the message of err is preserved.
func Mark(err error, kind error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, kind)
}

// NewMissingUpstreamData returns an error of ErrMissingUpstreamData kind,
// the message is shown to the user as is.
func NewMissingUpstreamData(msg string) error {
	return errors.Mark(errors.New(msg), ErrMissingUpstreamData)
}

// Kind returns the name of the error kind, or "Error" for unknown errors.
func Kind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return "Error"
}

// UserMessage returns the message displayed to the user for the failed turn.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrMissingUpstreamData) {
		return err.Error()
	}
	return "⚠️ " + Kind(err) + ": " + err.Error()
}
