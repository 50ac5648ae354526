package transport

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// JSON-RPC version used in all envelopes
const JSONRPCVersion = "2.0"

// MCP methods used by the client
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodToolsCall   = "tools/call"
	MethodToolsList   = "tools/list"
)

// HTTP headers of the streamable HTTP transport
const (
	HeaderSessionID   = "Mcp-Session-Id"
	HeaderAccept      = "Accept"
	HeaderContentType = "Content-Type"

	AcceptValue       = "application/json, text/event-stream"
	ContentTypeJSON   = "application/json"
	ContentTypeStream = "text/event-stream"
)

// RequestId is the JSON-RPC request identifier.
// The client issues string IDs, numeric IDs from the host are accepted.
type RequestId string

// UnmarshalJSON accepts string or number
func (r *RequestId) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errors.WithStack(err)
		}
		*r = RequestId(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrapf(err, "invalid request id: %s", string(data))
	}
	*r = RequestId(n.String())
	return nil
}

// NewRequestId returns a new random ID with optional prefix
func NewRequestId(prefix string) RequestId {
	id := uuid.NewString()
	if prefix != "" {
		id = prefix + "-" + id
	}
	return RequestId(id)
}

// BaseJSONRPCRequest is a request that expects a response
type BaseJSONRPCRequest struct {
	// Jsonrpc corresponds to the JSON schema field "jsonrpc".
	Jsonrpc string `json:"jsonrpc" yaml:"jsonrpc"`
	// Id corresponds to the JSON schema field "id".
	Id RequestId `json:"id" yaml:"id"`
	// Method corresponds to the JSON schema field "method".
	Method string `json:"method" yaml:"method"`
	// Params corresponds to the JSON schema field "params".
	Params json.RawMessage `json:"params,omitempty" yaml:"params,omitempty"`
}

// BaseJSONRPCNotification is a notification which does not expect a response
type BaseJSONRPCNotification struct {
	Jsonrpc string          `json:"jsonrpc" yaml:"jsonrpc"`
	Method  string          `json:"method" yaml:"method"`
	Params  json.RawMessage `json:"params,omitempty" yaml:"params,omitempty"`
}

// BaseJSONRPCResponse is a successful response to a request
type BaseJSONRPCResponse struct {
	Jsonrpc string          `json:"jsonrpc" yaml:"jsonrpc"`
	Id      RequestId       `json:"id" yaml:"id"`
	Result  json.RawMessage `json:"result" yaml:"result"`
}

// BaseJSONRPCErrorInner is the error member of BaseJSONRPCError
type BaseJSONRPCErrorInner struct {
	// The error type that occurred.
	Code int `json:"code" yaml:"code"`
	// Additional information about the error.
	Data any `json:"data,omitempty" yaml:"data,omitempty"`
	// A short description of the error.
	Message string `json:"message" yaml:"message"`
}

// BaseJSONRPCError is a response to a request that indicates an error occurred
type BaseJSONRPCError struct {
	Jsonrpc string                `json:"jsonrpc" yaml:"jsonrpc"`
	Id      RequestId             `json:"id" yaml:"id"`
	Error   BaseJSONRPCErrorInner `json:"error" yaml:"error"`
}

// BaseMessageType is the kind of BaseJsonRpcMessage
type BaseMessageType string

const (
	BaseMessageTypeJSONRPCRequestType      BaseMessageType = "request"
	BaseMessageTypeJSONRPCNotificationType BaseMessageType = "notification"
	BaseMessageTypeJSONRPCResponseType     BaseMessageType = "response"
	BaseMessageTypeJSONRPCErrorType        BaseMessageType = "error"
)

// BaseJsonRpcMessage holds one of the JSON-RPC envelopes,
// Type tells which one is set.
type BaseJsonRpcMessage struct {
	Type                BaseMessageType
	JsonRpcRequest      *BaseJSONRPCRequest
	JsonRpcNotification *BaseJSONRPCNotification
	JsonRpcResponse     *BaseJSONRPCResponse
	JsonRpcError        *BaseJSONRPCError
}

// MarshalJSON encodes the envelope that is set
func (m *BaseJsonRpcMessage) MarshalJSON() ([]byte, error) {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return json.Marshal(m.JsonRpcRequest)
	case BaseMessageTypeJSONRPCNotificationType:
		return json.Marshal(m.JsonRpcNotification)
	case BaseMessageTypeJSONRPCResponseType:
		return json.Marshal(m.JsonRpcResponse)
	case BaseMessageTypeJSONRPCErrorType:
		return json.Marshal(m.JsonRpcError)
	default:
		return nil, errors.Newf("unknown message type: %q", m.Type)
	}
}

// Method returns the method of a request or notification
func (m *BaseJsonRpcMessage) Method() string {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return m.JsonRpcRequest.Method
	case BaseMessageTypeJSONRPCNotificationType:
		return m.JsonRpcNotification.Method
	}
	return ""
}

// MessageID returns the ID of the message, empty for notifications
func (m *BaseJsonRpcMessage) MessageID() RequestId {
	switch m.Type {
	case BaseMessageTypeJSONRPCRequestType:
		return m.JsonRpcRequest.Id
	case BaseMessageTypeJSONRPCResponseType:
		return m.JsonRpcResponse.Id
	case BaseMessageTypeJSONRPCErrorType:
		return m.JsonRpcError.Id
	}
	return ""
}

func NewBaseMessageRequest(request *BaseJSONRPCRequest) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:           BaseMessageTypeJSONRPCRequestType,
		JsonRpcRequest: request,
	}
}

func NewBaseMessageNotification(notification *BaseJSONRPCNotification) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:                BaseMessageTypeJSONRPCNotificationType,
		JsonRpcNotification: notification,
	}
}

func NewBaseMessageResponse(response *BaseJSONRPCResponse) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:            BaseMessageTypeJSONRPCResponseType,
		JsonRpcResponse: response,
	}
}

func NewBaseMessageError(response *BaseJSONRPCError) *BaseJsonRpcMessage {
	return &BaseJsonRpcMessage{
		Type:         BaseMessageTypeJSONRPCErrorType,
		JsonRpcError: response,
	}
}

// NewRequest returns a request message with params encoded as JSON
func NewRequest(id RequestId, method string, params any) (*BaseJsonRpcMessage, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return NewBaseMessageRequest(&BaseJSONRPCRequest{
		Jsonrpc: JSONRPCVersion,
		Id:      id,
		Method:  method,
		Params:  raw,
	}), nil
}

// NewNotification returns a notification message with params encoded as JSON
func NewNotification(method string, params any) (*BaseJsonRpcMessage, error) {
	raw, err := marshalParams(params)
	if err != nil {
		return nil, err
	}
	return NewBaseMessageNotification(&BaseJSONRPCNotification{
		Jsonrpc: JSONRPCVersion,
		Method:  method,
		Params:  raw,
	}), nil
}

func marshalParams(params any) (json.RawMessage, error) {
	if params == nil {
		return nil, nil
	}
	if raw, ok := params.(json.RawMessage); ok {
		return raw, nil
	}
	js, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal params")
	}
	return js, nil
}

// ClientInfo describes the client in the initialize request
type ClientInfo struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// InitializeParams are the params of the initialize request
type InitializeParams struct {
	// ProtocolVersion is a number or a date string
	ProtocolVersion any            `json:"protocolVersion" yaml:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities" yaml:"capabilities"`
	ClientInfo      ClientInfo     `json:"clientInfo" yaml:"clientInfo"`
}

// CallToolParams are the params of the tools/call request
type CallToolParams struct {
	Name      string `json:"name" yaml:"name"`
	Arguments any    `json:"arguments" yaml:"arguments"`
}

// Error returns a formatted error
func (e *BaseJSONRPCErrorInner) Error() string {
	return "jsonrpc error " + strconv.Itoa(e.Code) + ": " + e.Message
}
