package voiceagent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
)

const testWait = 3 * time.Second

// MockAgent is a test WebSocket server that plays the remote agent. Every
// inbound text message is queued for Next; binary frames are queued for
// NextAudio. Script runs once per connection after the upgrade and may write
// with Send.
type MockAgent struct {
	t      *testing.T
	server *httptest.Server
	Script func(ctx context.Context, a *MockAgent)

	text  chan map[string]any
	audio chan []byte

	mu      sync.Mutex
	conn    *websocket.Conn
	headers http.Header
	dials   int
}

// NewMockAgent starts a mock agent server.
func NewMockAgent(t *testing.T) *MockAgent {
	t.Helper()
	a := &MockAgent{
		t:     t,
		text:  make(chan map[string]any, 256),
		audio: make(chan []byte, 1024),
	}
	a.server = httptest.NewServer(http.HandlerFunc(a.handle))
	t.Cleanup(a.server.Close)
	return a
}

// URL returns the endpoint to dial. It is http, which Dial maps to ws.
func (a *MockAgent) URL() string {
	return a.server.URL + "/v1/agent/converse"
}

// Dials returns how many handshakes reached the server.
func (a *MockAgent) Dials() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.dials
}

// Header returns the handshake headers of the last connection.
func (a *MockAgent) Header() http.Header {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.headers
}

func (a *MockAgent) handle(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.Header.Get("Authorization"), "Token ") &&
		!strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
		http.Error(w, "Missing authentication", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // For testing only
	})
	if err != nil {
		a.t.Errorf("failed to upgrade to websocket: %v", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	a.mu.Lock()
	a.conn = conn
	a.headers = r.Header.Clone()
	a.dials++
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			typ, data, err := conn.Read(ctx)
			if err != nil {
				return
			}
			if typ == websocket.MessageBinary {
				a.audio <- data
				continue
			}
			var msg map[string]any
			if err := json.Unmarshal(data, &msg); err != nil {
				a.t.Errorf("client sent invalid JSON: %s", data)
				continue
			}
			a.text <- msg
		}
	}()

	if a.Script != nil {
		a.Script(ctx, a)
	}
	<-readDone
}

// Send writes v as a JSON text frame to the current connection.
func (a *MockAgent) Send(ctx context.Context, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		a.t.Errorf("failed to marshal message: %v", err)
		return
	}
	a.write(ctx, websocket.MessageText, data)
}

// SendRaw writes data as a text frame without encoding it.
func (a *MockAgent) SendRaw(ctx context.Context, data string) {
	a.write(ctx, websocket.MessageText, []byte(data))
}

// SendAudio writes a binary frame.
func (a *MockAgent) SendAudio(ctx context.Context, frame []byte) {
	a.write(ctx, websocket.MessageBinary, frame)
}

func (a *MockAgent) write(ctx context.Context, typ websocket.MessageType, data []byte) {
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if err := conn.Write(ctx, typ, data); err != nil {
		a.t.Logf("mock write failed: %v", err)
	}
}

// Next returns the next text message from the client.
func (a *MockAgent) Next(t *testing.T) map[string]any {
	t.Helper()
	select {
	case msg := <-a.text:
		return msg
	case <-time.After(testWait):
		t.Fatal("timed out waiting for a client message")
		return nil
	}
}

// Expect returns the next text message and fails unless it has type typ.
func (a *MockAgent) Expect(t *testing.T, typ string) map[string]any {
	t.Helper()
	msg := a.Next(t)
	if msg["type"] != typ {
		t.Fatalf("client sent %v, want type %q", msg, typ)
	}
	return msg
}

// NextAudio returns the next binary frame from the client.
func (a *MockAgent) NextAudio(t *testing.T) []byte {
	t.Helper()
	select {
	case frame := <-a.audio:
		return frame
	case <-time.After(testWait):
		t.Fatal("timed out waiting for client audio")
		return nil
	}
}

// testConfig returns a quiet, fast configuration pointed at url.
func testConfig(url string) Config {
	cfg := DefaultConfig()
	cfg.Endpoint = url
	cfg.Credential = APIKey("test-key")
	cfg.DialTimeout = testWait
	cfg.KeepAliveInterval = 0
	cfg.FarewellSettle = 20 * time.Millisecond
	cfg.CloseTimeout = time.Second
	cfg.PlaybackPollInterval = 5 * time.Millisecond
	cfg.Logger = NewLogger(LogLevelOff)
	return cfg
}

// eventRecorder is an EventSink that keeps everything it receives.
type eventRecorder struct {
	mu     sync.Mutex
	events []recordedEvent
	ch     chan recordedEvent
}

type recordedEvent struct {
	name    string
	payload any
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{ch: make(chan recordedEvent, 256)}
}

func (r *eventRecorder) Emit(event string, payload any) {
	e := recordedEvent{event, payload}
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	select {
	case r.ch <- e:
	default:
	}
}

// states returns every session_state value in order.
func (r *eventRecorder) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if u, ok := e.payload.(StateUpdate); ok && e.name == EventSessionState {
			out = append(out, u.State)
		}
	}
	return out
}

// waitFor returns the first event named name, failing after testWait.
func (r *eventRecorder) waitFor(t *testing.T, name string) recordedEvent {
	t.Helper()
	deadline := time.After(testWait)
	for {
		select {
		case e := <-r.ch:
			if e.name == name {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s event", name)
			return recordedEvent{}
		}
	}
}

// frameRecorder is a FrameSink collecting rendered frames.
type frameRecorder struct {
	mu     sync.Mutex
	frames [][]byte
}

func (f *frameRecorder) sink(frame []byte, _ int) error {
	f.mu.Lock()
	f.frames = append(f.frames, frame)
	f.mu.Unlock()
	return nil
}

func (f *frameRecorder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.frames)
}

// runSession starts sess.Run in the background and returns its result channel.
func runSession(sess *Session) <-chan error {
	errc := make(chan error, 1)
	go func() { errc <- sess.Run(context.Background()) }()
	return errc
}

func waitRun(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(2 * testWait):
		t.Fatal("session did not end")
		return nil
	}
}
