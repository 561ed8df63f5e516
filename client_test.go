package voiceagent

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func TestDial_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		config Config
	}{
		{
			name:   "empty config",
			config: Config{},
		},
		{
			name: "missing credential",
			config: Config{
				Endpoint: DefaultEndpoint,
				Audio:    DefaultConfig().Audio,
			},
		},
		{
			name: "invalid endpoint",
			config: Config{
				Endpoint:   "invalid-url",
				Credential: APIKey("test-key"),
				Audio:      DefaultConfig().Audio,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := Dial(ctx, tt.config)
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
				if conn != nil {
					conn.Close()
				}
			}
		})
	}
}

func TestEndpointURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"https://agent.deepgram.com/v1/agent/converse", "wss://agent.deepgram.com/v1/agent/converse"},
		{"http://localhost:8080/agent", "ws://localhost:8080/agent"},
		{"wss://agent.deepgram.com/agent", "wss://agent.deepgram.com/agent"},
		{"ws://127.0.0.1:1/x?y=1", "ws://127.0.0.1:1/x?y=1"},
	}
	for _, tt := range tests {
		got, err := endpointURL(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("endpointURL(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestConn_WithMockAgent(t *testing.T) {
	agent := NewMockAgent(t)
	cfg := testConfig(agent.URL())
	cfg.HandshakeHeaders = http.Header{"X-Client": []string{"voiceagent-test"}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := Dial(ctx, cfg)
	if err != nil {
		t.Fatalf("failed to dial mock agent: %v", err)
	}
	defer conn.Close()

	if h := agent.Header(); h.Get("X-Client") != "voiceagent-test" || h.Get("Authorization") != "Token test-key" {
		t.Errorf("handshake headers = %v", h)
	}
	if conn.URL()[:5] != "ws://" {
		t.Errorf("URL() = %q, want ws scheme", conn.URL())
	}

	if err := conn.SendJSON(ctx, NewInjectAgentMessage("hello")); err != nil {
		t.Fatalf("SendJSON() error = %v", err)
	}
	if msg := agent.Expect(t, TypeInjectAgentMessage); msg["message"] != "hello" {
		t.Errorf("server got %v", msg)
	}

	if err := conn.SendAudio(ctx, nil); err != nil {
		t.Errorf("SendAudio(nil) error = %v", err)
	}
	if err := conn.SendAudio(ctx, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("SendAudio() error = %v", err)
	}
	if frame := agent.NextAudio(t); len(frame) != 4 {
		t.Errorf("server got %d audio bytes", len(frame))
	}

	agent.Send(ctx, map[string]any{"type": TypeWelcome, "request_id": "abc"})
	agent.SendAudio(ctx, []byte{5, 6})

	binary, data, err := conn.Read(ctx)
	if err != nil || binary || string(data) != `{"request_id":"abc","type":"Welcome"}` {
		t.Errorf("Read() = %v %s %v", binary, data, err)
	}
	binary, data, err = conn.Read(ctx)
	if err != nil || !binary || len(data) != 2 {
		t.Errorf("Read() = %v %v %v, want binary frame", binary, data, err)
	}
}

func TestConn_Close(t *testing.T) {
	agent := NewMockAgent(t)
	ctx := context.Background()

	conn, err := Dial(ctx, testConfig(agent.URL()))
	if err != nil {
		t.Fatalf("failed to dial: %v", err)
	}

	// The close handshake needs a reader for the peer's close frame.
	go func() {
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	if err := conn.Close(); err != nil {
		t.Errorf("unexpected error closing conn: %v", err)
	}
	if err := conn.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	select {
	case <-conn.Closed():
	default:
		t.Error("Closed() not closed after Close")
	}

	// Try to use closed conn - should return ErrClosed
	err = conn.SendJSON(ctx, NewCloseMessage())
	if !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	var sendErr *SendError
	if !errors.As(err, &sendErr) || sendErr.EventType != TypeClose {
		t.Errorf("expected SendError for %q, got %#v", TypeClose, err)
	}
}

func TestDial_Rejected(t *testing.T) {
	agent := NewMockAgent(t)
	cfg := testConfig(agent.URL())
	cfg.Credential = rawCredential{}

	_, err := Dial(context.Background(), cfg)
	var connErr *ConnectionError
	if !errors.As(err, &connErr) {
		t.Fatalf("expected *ConnectionError, got %v", err)
	}
	if connErr.Operation != "dial" {
		t.Errorf("Operation = %q", connErr.Operation)
	}
}

// rawCredential is non-empty but sends no Authorization header.
type rawCredential struct{}

func (rawCredential) apply(h http.Header) { h.Set("X-Api-Key", "k") }
func (rawCredential) empty() bool { return false }
