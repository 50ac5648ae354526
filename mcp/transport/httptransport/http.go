package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat/mcp/transport", "httptransport")

// Doer performs a HTTP request.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is the raw reply of the tool host
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// ContentType returns the Content-Type header of the reply
func (r *Response) ContentType() string {
	return r.Header.Get(transport.HeaderContentType)
}

// SessionID returns the session token issued by the tool host
func (r *Response) SessionID() string {
	return strings.TrimSpace(r.Header.Get(transport.HeaderSessionID))
}

// HTTPClientTransport posts JSON-RPC messages to the MCP endpoint
// of a streamable HTTP tool host.
type HTTPClientTransport struct {
	endpoint string
	client   Doer
	mu       sync.RWMutex
	headers  map[string]string
}

// NewHTTPClientTransport creates a new transport that posts to the endpoint
func NewHTTPClientTransport(endpoint string) *HTTPClientTransport {
	return &HTTPClientTransport{
		endpoint: endpoint,
		client:   http.DefaultClient,
		headers:  make(map[string]string),
	}
}

// WithClient sets the HTTP client
func (t *HTTPClientTransport) WithClient(client Doer) *HTTPClientTransport {
	if client != nil {
		t.client = client
	}
	return t
}

// WithHeader adds a header to every request
func (t *HTTPClientTransport) WithHeader(key, value string) *HTTPClientTransport {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.headers[key] = value
	return t
}

// Endpoint returns the URL of the tool host
func (t *HTTPClientTransport) Endpoint() string {
	return t.endpoint
}

// Send posts the message and returns the raw reply.
// The headers are added to the request, empty values are skipped.
// A non-2xx status, network failure or timeout returns chatmodel.ErrTransport.
func (t *HTTPClientTransport) Send(ctx context.Context, message *transport.BaseJsonRpcMessage, timeout time.Duration, headers map[string]string) (*Response, error) {
	jsonData, err := json.Marshal(message)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := message.Method()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	req.Header.Set(transport.HeaderAccept, transport.AcceptValue)
	req.Header.Set(transport.HeaderContentType, transport.ContentTypeJSON)

	t.mu.RLock()
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	t.mu.RUnlock()
	for k, v := range headers {
		if v != "" {
			req.Header.Set(k, v)
		}
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"method", method,
		"id", message.MessageID(),
		"url", t.endpoint,
	)

	started := time.Now()
	r, err := t.client.Do(req)
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR,
			"method", method,
			"status", "send_failed",
			"elapsed", time.Since(started).String(),
			"err", err.Error(),
		)
		return nil, chatmodel.Mark(errors.WithMessagef(err, "%s: send request", method), chatmodel.ErrTransport)
	}
	defer func() { _ = r.Body.Close() }()

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, chatmodel.Mark(errors.WithMessagef(err, "%s: read body", method), chatmodel.ErrTransport)
	}

	res := &Response{
		Status: r.StatusCode,
		Header: r.Header,
		Body:   body,
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"method", method,
		"status", r.StatusCode,
		"content_type", res.ContentType(),
		"body", slices.StringUpto(string(body), 256),
	)

	if r.StatusCode < 200 || r.StatusCode > 299 {
		return res, chatmodel.Mark(
			errors.Newf("%s: tool host returned unexpected status code: %d: %s",
				method, r.StatusCode, slices.StringUpto(strings.TrimSpace(string(body)), 128)),
			chatmodel.ErrTransport)
	}
	return res, nil
}
