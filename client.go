package voiceagent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"
)

// readLimit bounds a single inbound message. Agent audio arrives in frames
// well below this.
const readLimit = 1 << 20

// Conn is a WebSocket connection to the agent service. Writes are
// serialised; a single reader is expected. Close runs at most once.
type Conn struct {
	ws          *websocket.Conn
	url         string
	sendTimeout time.Duration
	closeWait   time.Duration
	log         *Logger

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
	closedCh  chan struct{}
}

// Dial validates cfg and performs the authenticated WebSocket handshake.
func Dial(ctx context.Context, cfg Config) (*Conn, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	u, err := endpointURL(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	h := http.Header{}
	for k, vals := range cfg.HandshakeHeaders {
		for _, v := range vals {
			h.Add(k, v)
		}
	}
	cfg.Credential.apply(h)

	dialCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}

	ws, resp, err := websocket.Dial(dialCtx, u, &websocket.DialOptions{HTTPHeader: h})
	if err != nil {
		if resp != nil {
			err = fmt.Errorf("%w (status %d)", err, resp.StatusCode)
		}
		return nil, NewConnectionError(u, "dial", err)
	}
	ws.SetReadLimit(readLimit)

	c := &Conn{
		ws:          ws,
		url:         u,
		sendTimeout: cfg.SendTimeout,
		closeWait:   cfg.CloseTimeout,
		log:         cfg.Logger,
		closedCh:    make(chan struct{}),
	}
	c.log.Info("ws_connected", map[string]any{"url": u})
	return c, nil
}

func endpointURL(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", NewConfigError("Endpoint", endpoint, "invalid URL format")
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u.String(), nil
}

// URL returns the dialled endpoint.
func (c *Conn) URL() string { return c.url }

// SendJSON writes v as a text frame.
func (c *Conn) SendJSON(ctx context.Context, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return NewSendError("unknown", fmt.Errorf("marshal payload: %w", err))
	}
	var env envelope
	_ = json.Unmarshal(b, &env)
	return c.write(ctx, env.Type, websocket.MessageText, b)
}

// SendAudio writes a binary audio frame.
func (c *Conn) SendAudio(ctx context.Context, frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	return c.write(ctx, "audio", websocket.MessageBinary, frame)
}

func (c *Conn) write(ctx context.Context, eventType string, typ websocket.MessageType, b []byte) error {
	select {
	case <-c.closedCh:
		return NewSendError(eventType, ErrClosed)
	default:
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.sendTimeout)
	defer cancel()

	if err := c.ws.Write(ctx, typ, b); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return NewSendError(eventType, ErrSendTimeout)
		}
		return NewSendError(eventType, err)
	}
	return nil
}

// Read returns the next message. binary reports whether it is an audio frame.
func (c *Conn) Read(ctx context.Context) (binary bool, data []byte, err error) {
	typ, data, err := c.ws.Read(ctx)
	if err != nil {
		return false, nil, err
	}
	return typ == websocket.MessageBinary, data, nil
}

// Ping sends a WebSocket ping and waits for the pong. A concurrent Read
// must be in progress for the pong to be observed.
func (c *Conn) Ping(ctx context.Context) error {
	return c.ws.Ping(ctx)
}

// Close performs the close handshake, bounded by the configured close
// timeout. Only the first call does any work; later calls return its result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.closedCh)
		done := make(chan error, 1)
		go func() { done <- c.ws.Close(websocket.StatusNormalClosure, "closing") }()
		t := time.NewTimer(c.closeWait)
		defer t.Stop()
		select {
		case err := <-done:
			if err != nil && !isClosedErr(err) {
				c.closeErr = err
			}
		case <-t.C:
			c.closeErr = ErrCloseTimeout
		}
		c.log.Info("ws_closed", map[string]any{"url": c.url, "err": c.closeErr})
	})
	return c.closeErr
}

// Closed is closed once Close has been called.
func (c *Conn) Closed() <-chan struct{} { return c.closedCh }

func isClosedErr(err error) bool {
	if err == nil {
		return false
	}
	status := websocket.CloseStatus(err)
	return status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway
}
