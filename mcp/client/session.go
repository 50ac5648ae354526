package client

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/mcpchat/chatmodel"
	"github.com/effective-security/mcpchat/mcp/codec"
	"github.com/effective-security/mcpchat/mcp/transport"
	"github.com/effective-security/mcpchat/mcp/transport/httptransport"
	"github.com/effective-security/mcpchat/pkg/metricskey"
	"github.com/effective-security/xlog"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
)

// State of the Session
type State int32

const (
	// StateUninitialized is the initial state, and the state after a failed handshake
	StateUninitialized State = iota
	// StateHandshaking is set while the handshake is in flight
	StateHandshaking
	// StateReady is set after the tool host issued the token
	// and the initialized notification was delivered
	StateReady
)

func (s State) String() string {
	switch s {
	case StateHandshaking:
		return "handshaking"
	case StateReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

// Session is the protocol session with the tool host.
// The handshake runs on the first Ensure call, concurrent callers
// share the in-flight handshake. A failed handshake leaves the session
// uninitialized so a later call retries it.
type Session struct {
	cfg *Config
	tr  *httptransport.HTTPClientTransport

	lock  sync.RWMutex
	state State
	token string

	group singleflight.Group
}

// NewSession returns uninitialized Session
func NewSession(cfg *Config, tr *httptransport.HTTPClientTransport) *Session {
	return &Session{
		cfg: cfg,
		tr:  tr,
	}
}

// State returns the current state
func (s *Session) State() State {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.state
}

// Token returns the session token, empty if the session is not ready
func (s *Session) Token() string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.token
}

// Reset drops the session, the next Ensure call performs a new handshake
func (s *Session) Reset() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.state = StateUninitialized
	s.token = ""
}

// Ensure returns the session token, performing the handshake if needed.
func (s *Session) Ensure(ctx context.Context) (string, error) {
	s.lock.RLock()
	if s.state == StateReady {
		token := s.token
		s.lock.RUnlock()
		return token, nil
	}
	s.lock.RUnlock()

	v, err, shared := s.group.Do("handshake", func() (any, error) {
		s.lock.Lock()
		if s.state == StateReady {
			token := s.token
			s.lock.Unlock()
			return token, nil
		}
		s.state = StateHandshaking
		s.lock.Unlock()

		token, err := s.handshake(ctx)

		s.lock.Lock()
		defer s.lock.Unlock()
		if err != nil {
			s.state = StateUninitialized
			s.token = ""
			return "", err
		}
		s.state = StateReady
		s.token = token
		return token, nil
	})
	if err != nil {
		return "", err
	}
	if shared {
		logger.ContextKV(ctx, xlog.DEBUG, "status", "shared_handshake")
	}
	return v.(string), nil
}

func (s *Session) handshake(ctx context.Context) (string, error) {
	host := s.tr.Endpoint()
	started := time.Now()
	defer metricskey.PerfMCPHandshake.MeasureSince(started, host)

	token, err := s.initialize(ctx)
	if err == nil {
		err = s.notifyInitialized(ctx, token)
	}
	if err != nil {
		metricskey.StatsMCPHandshakesFailed.IncrCounter(1, host)
		logger.ContextKV(ctx, xlog.ERROR,
			"host", host,
			"status", "handshake_failed",
			"err", err.Error(),
		)
		return "", err
	}

	metricskey.StatsMCPHandshakes.IncrCounter(1, host)
	logger.ContextKV(ctx, xlog.DEBUG,
		"host", host,
		"status", "session_ready",
		"elapsed", time.Since(started).String(),
	)
	return token, nil
}

func (s *Session) initialize(ctx context.Context) (string, error) {
	msg, err := transport.NewRequest(transport.NewRequestId("init"), transport.MethodInitialize, transport.InitializeParams{
		ProtocolVersion: s.cfg.GetProtocolVersion(),
		Capabilities:    map[string]any{"tools": true},
		ClientInfo: transport.ClientInfo{
			Name:    s.cfg.GetClientName(),
			Version: s.cfg.GetClientVersion(),
		},
	})
	if err != nil {
		return "", err
	}

	res, err := s.tr.Send(ctx, msg, s.cfg.GetHandshakeTimeout(), nil)
	if err != nil {
		return "", errors.WithMessage(err, "initialize")
	}

	token := res.SessionID()
	if token == "" {
		reason := "tool host did not return " + transport.HeaderSessionID + " header"
		if msg := rpcErrorMessage(res); msg != "" {
			reason += ": " + msg
		}
		return "", chatmodel.Mark(errors.New(reason), chatmodel.ErrHandshake)
	}
	return token, nil
}

func (s *Session) notifyInitialized(ctx context.Context, token string) error {
	msg, err := transport.NewNotification(transport.MethodInitialized, map[string]any{})
	if err != nil {
		return err
	}
	_, err = s.tr.Send(ctx, msg, s.cfg.GetNotifyTimeout(), map[string]string{
		transport.HeaderSessionID: token,
	})
	if err != nil {
		return errors.WithMessage(err, "initialized notification")
	}
	return nil
}

// rpcErrorMessage returns error.message of a JSON-RPC error reply, if any
func rpcErrorMessage(res *httptransport.Response) string {
	if len(res.Body) == 0 {
		return ""
	}
	raw, err := codec.Payload(res.ContentType(), res.Body)
	if err != nil || !gjson.ValidBytes(raw) {
		return ""
	}
	return gjson.GetBytes(raw, "error.message").String()
}
