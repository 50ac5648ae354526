package client

import (
	"strconv"
	"time"

	"github.com/effective-security/x/values"
	"github.com/effective-security/xlog"
)

// Defaults of the tool host connection
const (
	DefaultURL              = "http://localhost:8000/mcp"
	DefaultProtocolVersion  = "1"
	DefaultClientName       = "gradio-client"
	DefaultClientVersion    = "0.1"
	DefaultHandshakeTimeout = 10 * time.Second
	DefaultNotifyTimeout    = 5 * time.Second
	DefaultCallTimeout      = 30 * time.Second
)

// Config of the tool host connection
type Config struct {
	// URL of the MCP endpoint
	URL             string `json:"url,omitempty" yaml:"url,omitempty" validate:"omitempty,url"`
	ProtocolVersion string `json:"protocol_version,omitempty" yaml:"protocol_version,omitempty"`
	ClientName      string `json:"client_name,omitempty" yaml:"client_name,omitempty"`
	ClientVersion   string `json:"client_version,omitempty" yaml:"client_version,omitempty"`
	// Timeouts are durations like "10s"
	HandshakeTimeout string `json:"handshake_timeout,omitempty" yaml:"handshake_timeout,omitempty"`
	NotifyTimeout    string `json:"notify_timeout,omitempty" yaml:"notify_timeout,omitempty"`
	CallTimeout      string `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
}

// GetURL returns the endpoint, or the default
func (c *Config) GetURL() string {
	return values.StringsCoalesce(c.URL, DefaultURL)
}

// GetProtocolVersion returns the protocol version, or the default.
// An integer version is returned as int to be sent as JSON number.
func (c *Config) GetProtocolVersion() any {
	v := values.StringsCoalesce(c.ProtocolVersion, DefaultProtocolVersion)
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return v
}

// GetClientName returns the client name, or the default
func (c *Config) GetClientName() string {
	return values.StringsCoalesce(c.ClientName, DefaultClientName)
}

// GetClientVersion returns the client version, or the default
func (c *Config) GetClientVersion() string {
	return values.StringsCoalesce(c.ClientVersion, DefaultClientVersion)
}

func (c *Config) GetHandshakeTimeout() time.Duration {
	return parseDuration(c.HandshakeTimeout, DefaultHandshakeTimeout)
}

func (c *Config) GetNotifyTimeout() time.Duration {
	return parseDuration(c.NotifyTimeout, DefaultNotifyTimeout)
}

func (c *Config) GetCallTimeout() time.Duration {
	return parseDuration(c.CallTimeout, DefaultCallTimeout)
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		logger.KV(xlog.WARNING, "status", "invalid_duration", "value", s, "default", def.String())
		return def
	}
	return d
}
