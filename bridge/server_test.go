package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/enesunal-m/voiceagent"
	"github.com/enesunal-m/voiceagent/business"
	"github.com/enesunal-m/voiceagent/functions"
)

const testWait = 3 * time.Second

// mockAgent is a minimal voice agent endpoint.
type mockAgent struct {
	server *httptest.Server
	text   chan map[string]any
	audio  chan []byte

	mu   sync.Mutex
	conn *websocket.Conn
}

func newMockAgent(t *testing.T) *mockAgent {
	t.Helper()
	m := &mockAgent{text: make(chan map[string]any, 64), audio: make(chan []byte, 256)}
	upgrader := websocket.Upgrader{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Token ") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		m.mu.Lock()
		m.conn = conn
		m.mu.Unlock()
		defer conn.Close()
		for {
			typ, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if typ == websocket.BinaryMessage {
				m.audio <- data
				continue
			}
			var msg map[string]any
			if json.Unmarshal(data, &msg) == nil {
				m.text <- msg
			}
		}
	}))
	t.Cleanup(m.server.Close)
	return m
}

func (m *mockAgent) send(t *testing.T, typ int, data []byte) {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn == nil {
		t.Fatal("agent not connected")
	}
	if err := m.conn.WriteMessage(typ, data); err != nil {
		t.Fatalf("agent write: %v", err)
	}
}

func (m *mockAgent) expectText(t *testing.T) map[string]any {
	t.Helper()
	select {
	case msg := <-m.text:
		return msg
	case <-time.After(testWait):
		t.Fatal("agent received no message")
		return nil
	}
}

func testConfig(endpoint string) voiceagent.Config {
	cfg := voiceagent.DefaultConfig()
	cfg.Endpoint = endpoint
	cfg.Credential = voiceagent.APIKey("test-key")
	cfg.KeepAliveInterval = 0
	cfg.CloseTimeout = time.Second
	cfg.PlaybackPollInterval = 5 * time.Millisecond
	cfg.Logger = voiceagent.NewLogger(voiceagent.LogLevelInfo)
	cfg.Logger.SetOutput(io.Discard)
	return cfg
}

type sampleOnly struct {
	business.Service
	sample []business.SampleCustomer
}

func (s sampleOnly) SampleData(context.Context) ([]business.SampleCustomer, error) {
	return s.sample, nil
}

// browser is a test client of the control endpoint.
type browser struct {
	t  *testing.T
	ws *websocket.Conn
}

func startBridge(t *testing.T, opts Options) (*Server, *httptest.Server) {
	t.Helper()
	srv := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		srv.Run(ctx)
	}()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-done
	})
	return srv, ts
}

func dialBrowser(t *testing.T, ts *httptest.Server, srv *Server) *browser {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial bridge: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	deadline := time.Now().Add(testWait)
	for srv.Hub().Len() == 0 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	return &browser{t: t, ws: ws}
}

func (b *browser) send(typ MessageType, data any) {
	b.t.Helper()
	if err := b.ws.WriteJSON(map[string]any{"type": typ, "data": data}); err != nil {
		b.t.Fatalf("browser write: %v", err)
	}
}

// waitFor reads until a message of typ arrives and returns its data.
func (b *browser) waitFor(typ MessageType) json.RawMessage {
	b.t.Helper()
	_ = b.ws.SetReadDeadline(time.Now().Add(testWait))
	for {
		var msg struct {
			Type MessageType     `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := b.ws.ReadJSON(&msg); err != nil {
			b.t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg.Data
		}
	}
}

func TestBridge_Catalogues(t *testing.T) {
	srv, ts := startBridge(t, Options{Config: testConfig("ws://unused")})
	b := dialBrowser(t, ts, srv)

	b.send(MsgGetIndustries, nil)
	var industries map[string]string
	if err := json.Unmarshal(b.waitFor(MsgIndustries), &industries); err != nil {
		t.Fatal(err)
	}
	if industries["healthcare"] == "" || len(industries) != 6 {
		t.Errorf("industries = %v", industries)
	}

	b.send(MsgGetVoices, nil)
	var voices []map[string]string
	if err := json.Unmarshal(b.waitFor(MsgVoices), &voices); err != nil {
		t.Fatal(err)
	}
	if len(voices) == 0 {
		t.Error("no voices listed")
	}

	b.send(MsgGetAudioDevices, nil)
	var devices AudioDevices
	if err := json.Unmarshal(b.waitFor(MsgAudioDevices), &devices); err != nil {
		t.Fatal(err)
	}
	if len(devices.Input) != 0 || len(devices.Output) != 0 {
		t.Errorf("devices without a driver = %+v", devices)
	}

	b.send(MsgStopVoiceAgent, nil)
	b.waitFor(MsgSessionStopped)
}

func TestBridge_HTTPRoutes(t *testing.T) {
	svc := sampleOnly{sample: []business.SampleCustomer{{ID: "CUST0001", Customer: "Ada"}}}
	_, ts := startBridge(t, Options{Config: testConfig("ws://unused"), Business: svc})

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/sample-data")
	if err != nil {
		t.Fatal(err)
	}
	var got []business.SampleCustomer
	err = json.NewDecoder(resp.Body).Decode(&got)
	resp.Body.Close()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "CUST0001" {
		t.Errorf("sample data = %+v", got)
	}
}

func TestBridge_BrowserSession(t *testing.T) {
	agent := newMockAgent(t)
	srv, ts := startBridge(t, Options{
		Config:    testConfig(agent.server.URL),
		Functions: functions.NewRegistry(),
	})
	b := dialBrowser(t, ts, srv)

	b.send(MsgStartVoiceAgent, StartRequest{Industry: "healthcare", BrowserAudio: true, BrowserOutput: true})
	var info SessionInfo
	if err := json.Unmarshal(b.waitFor(MsgSessionStarted), &info); err != nil {
		t.Fatal(err)
	}
	if info.SessionID == "" || info.Industry != "healthcare" || info.Company != "HealthFirst" {
		t.Errorf("session_started = %+v", info)
	}

	settings := agent.expectText(t)
	if settings["type"] != voiceagent.TypeSettings {
		t.Fatalf("first message = %v", settings["type"])
	}
	greeting, _ := settings["agent"].(map[string]any)["greeting"].(string)
	if !strings.Contains(greeting, "HealthFirst") {
		t.Errorf("greeting = %q", greeting)
	}

	b.send(MsgAudioData, AudioData{Data: base64.StdEncoding.EncodeToString([]byte{1, 2, 3, 4}), SampleRate: 48000})
	select {
	case frame := <-agent.audio:
		if string(frame) != string([]byte{1, 2, 3, 4}) {
			t.Errorf("agent got frame %v", frame)
		}
	case <-time.After(testWait):
		t.Fatal("browser audio never reached the agent")
	}

	agent.send(t, websocket.BinaryMessage, []byte{9, 0, 8, 0})
	var out AudioOutput
	if err := json.Unmarshal(b.waitFor(MsgAudioOutput), &out); err != nil {
		t.Fatal(err)
	}
	if out.Audio != base64.StdEncoding.EncodeToString([]byte{9, 0, 8, 0}) || out.SampleRate != 16000 {
		t.Errorf("audio_output = %+v", out)
	}

	agent.send(t, websocket.TextMessage, []byte(`{"type":"ConversationText","role":"user","content":"hi there"}`))
	var update voiceagent.ConversationUpdate
	if err := json.Unmarshal(b.waitFor(voiceagent.EventConversationUpdate), &update); err != nil {
		t.Fatal(err)
	}
	if update.Role != "user" || update.Content != "hi there" {
		t.Errorf("conversation_update = %+v", update)
	}

	b.send(MsgStopVoiceAgent, nil)
	var stopped SessionInfo
	if err := json.Unmarshal(b.waitFor(MsgSessionStopped), &stopped); err != nil {
		t.Fatal(err)
	}
	if stopped.SessionID != info.SessionID {
		t.Errorf("stopped %q, started %q", stopped.SessionID, info.SessionID)
	}
	if srv.Controller().Current() != nil {
		t.Error("controller still holds a session")
	}
}

func TestBridge_DeclaredSampleRateIsChecked(t *testing.T) {
	agent := newMockAgent(t)
	srv, ts := startBridge(t, Options{Config: testConfig(agent.server.URL)})
	b := dialBrowser(t, ts, srv)

	b.send(MsgStartVoiceAgent, StartRequest{BrowserAudio: true, BrowserOutput: true, SampleRate: 44100})
	b.waitFor(MsgSessionStarted)
	agent.expectText(t)

	b.send(MsgAudioData, AudioData{Data: base64.StdEncoding.EncodeToString([]byte{1, 2})})
	for {
		var line LogMessage
		if err := json.Unmarshal(b.waitFor(MsgLogMessage), &line); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(line.Message, "capture_rate_mismatch") && strings.Contains(line.Message, "44100") {
			break
		}
	}

	b.send(MsgStopVoiceAgent, nil)
	b.waitFor(MsgSessionStopped)
}

func TestBridge_StartErrorIsReported(t *testing.T) {
	cfg := testConfig("ws://unused")
	cfg.Credential = voiceagent.APIKey("")
	srv, ts := startBridge(t, Options{Config: cfg})
	b := dialBrowser(t, ts, srv)

	b.send(MsgStartVoiceAgent, StartRequest{BrowserAudio: true, BrowserOutput: true})
	var e SessionError
	if err := json.Unmarshal(b.waitFor(MsgSessionError), &e); err != nil {
		t.Fatal(err)
	}
	if e.Message != "Failed to start voice agent" || !strings.Contains(e.Details, "Credential") {
		t.Errorf("session_error = %+v", e)
	}
}

func TestBridge_LogLinesAreMirrored(t *testing.T) {
	cfg := testConfig("ws://unused")
	srv, ts := startBridge(t, Options{Config: cfg})
	b := dialBrowser(t, ts, srv)

	cfg.Logger.Info("hello_browser", map[string]any{"n": 1})
	for {
		var line LogMessage
		if err := json.Unmarshal(b.waitFor(MsgLogMessage), &line); err != nil {
			t.Fatal(err)
		}
		if strings.Contains(line.Message, "hello_browser n=1") {
			break
		}
	}
}

func TestBridge_RejectsDisallowedOrigin(t *testing.T) {
	_, ts := startBridge(t, Options{Config: testConfig("ws://unused"), AllowedOrigins: []string{"https://app.example"}})
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"https://evil.example"}})
	if err == nil {
		t.Fatal("upgrade from a disallowed origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v", resp)
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/healthz", nil)
	req.Header.Set("Origin", "https://app.example")
	pre, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	pre.Body.Close()
	if pre.StatusCode != http.StatusNoContent || pre.Header.Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Errorf("preflight = %d %v", pre.StatusCode, pre.Header)
	}
}
