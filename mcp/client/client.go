// Package client implements the MCP client of a streamable HTTP tool host:
// the session handshake and the tool invocations.
package client

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/codec"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/effective-security/mcpchat/mcp/transport/httptransport"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/x/slices"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/mcpchat/mcp", "client")

// Client calls the tools of a remote tool host
type Client struct {
	cfg     *Config
	tr      *httptransport.HTTPClientTransport
	session *Session
}

// Option configures the Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client
func WithHTTPClient(doer httptransport.Doer) Option {
	return func(c *Client) {
		c.tr.WithClient(doer)
	}
}

// WithHeader adds a header to all requests
func WithHeader(key, value string) Option {
	return func(c *Client) {
		c.tr.WithHeader(key, value)
	}
}

// New returns a new Client, the session is established on the first call.
func New(cfg *Config, opts ...Option) *Client {
	if cfg == nil {
		cfg = &Config{}
	}
	tr := httptransport.NewHTTPClientTransport(cfg.GetURL())
	c := &Client{
		cfg:     cfg,
		tr:      tr,
		session: NewSession(cfg, tr),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the protocol session
func (c *Client) Session() *Session {
	return c.session
}

// URL returns the endpoint of the tool host
func (c *Client) URL() string {
	return c.tr.Endpoint()
}

// CallTool invokes the named tool with the arguments,
// and returns the decoded result.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	started := time.Now()
	res, err := c.request(ctx, transport.MethodToolsCall, transport.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "tool %s", name)
	}

	u, err := codec.UnwrapJSON(res)
	if err != nil {
		metricskey.StatsMCPRequestsFailed.IncrCounter(1, transport.MethodToolsCall)
		return nil, errors.WithMessagef(err, "tool %s", name)
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"tool", name,
		"kind", u.Kind.String(),
		"elapsed", time.Since(started).String(),
	)
	return u.Value, nil
}

// ToolInfo describes a tool published by the tool host
type ToolInfo struct {
	Name        string
	Description string
}

// ListTools returns the tools published by the tool host
func (c *Client) ListTools(ctx context.Context) ([]ToolInfo, error) {
	res, err := c.request(ctx, transport.MethodToolsList, map[string]any{})
	if err != nil {
		return nil, err
	}
	var list []ToolInfo
	gjson.GetBytes(res, "result.tools").ForEach(func(_, t gjson.Result) bool {
		list = append(list, ToolInfo{
			Name:        t.Get("name").String(),
			Description: t.Get("description").String(),
		})
		return true
	})
	return list, nil
}

// request sends the request with the session token,
// and returns the JSON payload of the reply.
func (c *Client) request(ctx context.Context, method string, params any) ([]byte, error) {
	token, err := c.session.Ensure(ctx)
	if err != nil {
		return nil, err
	}

	msg, err := transport.NewRequest(transport.NewRequestId(""), method, params)
	if err != nil {
		return nil, err
	}

	logger.ContextKV(ctx, xlog.DEBUG,
		"method", method,
		"id", msg.MessageID(),
		"params", slices.StringUpto(string(msg.JsonRpcRequest.Params), 256),
	)

	res, err := c.tr.Send(ctx, msg, c.cfg.GetCallTimeout(), map[string]string{
		transport.HeaderSessionID: token,
	})
	if err != nil {
		metricskey.StatsMCPRequestsFailed.IncrCounter(1, method)
		return nil, err
	}

	raw, err := codec.Payload(res.ContentType(), res.Body)
	if err != nil {
		metricskey.StatsMCPRequestsFailed.IncrCounter(1, method)
		return nil, err
	}

	if rpcErr := gjson.GetBytes(raw, "error"); rpcErr.IsObject() && !gjson.GetBytes(raw, "result").Exists() {
		metricskey.StatsMCPRequestsFailed.IncrCounter(1, method)
		return nil, chatmodel.Mark(
			errors.Newf("%s: jsonrpc error %d: %s", method, rpcErr.Get("code").Int(), rpcErr.Get("message").String()),
			chatmodel.ErrTransport)
	}
	return raw, nil
}
