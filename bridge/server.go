// Package bridge exposes the voice agent to a browser over a WebSocket
// control channel: commands in, conversation events, log lines and agent
// audio out.
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/enesunal-m/voiceagent"
	"github.com/enesunal-m/voiceagent/business"
	"github.com/enesunal-m/voiceagent/functions"
	"github.com/enesunal-m/voiceagent/persona"
)

// Options configures a Server.
type Options struct {
	// Config is the base session configuration. Its Logger is mirrored to
	// every browser as log_message events.
	Config voiceagent.Config
	// Functions served to the agent.
	Functions *functions.Registry
	// Driver opens local devices. Nil restricts sessions to browser audio.
	Driver voiceagent.AudioDriver
	// Business backs /sample-data. Nil serves an empty list.
	Business business.Service
	// DocTopics is passed to the product documentation persona.
	DocTopics []string
	// StaticDir, when set, is served at /.
	StaticDir string
	// RemoteOutput always relays agent audio to the browser instead of a
	// local speaker.
	RemoteOutput bool
	// AllowedOrigins restricts CORS and WebSocket origins. Empty allows all.
	AllowedOrigins []string
	// Auth protects /ws and /sample-data. Nil disables authentication.
	Auth *Authenticator
}

// Server owns the hub and the session controller.
type Server struct {
	opts     Options
	log      *voiceagent.Logger
	hub      *Hub
	ctrl     *voiceagent.Controller
	upgrader websocket.Upgrader
}

// New returns a Server. Run must be called for clients to be served.
func New(opts Options) *Server {
	log := opts.Config.Logger
	if log == nil {
		log = voiceagent.DefaultLogger
		opts.Config.Logger = log
	}
	s := &Server{opts: opts, log: log, hub: NewHub(log)}
	s.ctrl = voiceagent.NewController(opts.Config, opts.Functions, opts.Driver, s)
	s.upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || originAllowed(opts.AllowedOrigins, origin)
		},
	}
	return s
}

// Controller returns the session controller driven by browser commands.
func (s *Server) Controller() *voiceagent.Controller { return s.ctrl }

// Hub returns the broadcast hub.
func (s *Server) Hub() *Hub { return s.hub }

// Run mirrors log lines to browsers and serves the hub until ctx ends. The
// running session, if any, is stopped on the way out.
func (s *Server) Run(ctx context.Context) {
	remove := s.log.OnLine(func(l voiceagent.LogLine) {
		s.hub.Broadcast(Message{Type: MsgLogMessage, Data: LogMessage{Message: l.Text, Timestamp: l.Time}})
	})
	defer remove()
	s.hub.Run(ctx)
	if err := s.ctrl.Stop(); err != nil {
		s.log.Warn("session_stop_failed", map[string]any{"err": err})
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.opts.Auth.Middleware(http.HandlerFunc(s.handleWebSocket)))
	mux.Handle("/sample-data", s.opts.Auth.Middleware(http.HandlerFunc(s.handleSampleData)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			s.log.Warn("healthz_write_failed", map[string]any{"err": err})
		}
	})
	if s.opts.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
	return cors(s.opts.AllowedOrigins, mux)
}

// ListenAndServe runs the server on addr until ctx ends.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}

	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		s.Run(ctx)
	}()

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("bridge_listening", map[string]any{"addr": addr})

	var err error
	select {
	case err = <-errc:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err = srv.Shutdown(shutdownCtx)
	}
	<-hubDone
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Emit forwards session events to every browser. A terminal state also
// announces session_stopped.
func (s *Server) Emit(event string, payload any) {
	s.hub.Broadcast(Message{Type: MessageType(event), Data: payload})
	if u, ok := payload.(voiceagent.StateUpdate); ok && event == voiceagent.EventSessionState {
		if u.State == voiceagent.StateClosed.String() || u.State == voiceagent.StateFailed.String() {
			s.hub.Broadcast(Message{Type: MsgSessionStopped, Data: SessionInfo{SessionID: u.SessionID}})
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("upgrade_failed", map[string]any{"err": err})
		return
	}
	c := newClient(s.hub, ws)
	if !s.hub.add(c) {
		ws.Close()
		return
	}
	go c.writePump()
	go c.readPump(s.handleCommand)
}

func (s *Server) handleSampleData(w http.ResponseWriter, r *http.Request) {
	data := []business.SampleCustomer{}
	if s.opts.Business != nil {
		var err error
		if data, err = s.opts.Business.SampleData(r.Context()); err != nil {
			s.log.Error("sample_data_failed", map[string]any{"err": err})
			http.Error(w, "sample data unavailable", http.StatusInternalServerError)
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Warn("sample_data_write_failed", map[string]any{"err": err})
	}
}

func (s *Server) handleCommand(c *client, cmd command) {
	switch cmd.Type {
	case MsgStartVoiceAgent:
		s.startAgent(c, cmd.Data)
	case MsgStopVoiceAgent:
		s.stopAgent(c)
	case MsgAudioData:
		s.pushAudio(c, cmd.Data)
	case MsgGetAudioDevices:
		s.listDevices(c)
	case MsgGetIndustries:
		c.reply(Message{Type: MsgIndustries, Data: persona.Industries()})
	case MsgGetVoices:
		c.reply(Message{Type: MsgVoices, Data: persona.Voices()})
	default:
		s.log.Debug("unknown_command", map[string]any{"client": c.id, "type": cmd.Type})
	}
}

func (s *Server) startAgent(c *client, data json.RawMessage) {
	var req StartRequest
	if len(data) > 0 && string(data) != "null" {
		if err := json.Unmarshal(data, &req); err != nil {
			c.reply(sessionError("Invalid start request", err))
			return
		}
	}

	profile := persona.Build(req.Industry, req.VoiceModel, persona.Options{DocTopics: s.opts.DocTopics})
	agent := s.opts.Config.Agent
	agent.Prompt = profile.Prompt
	agent.Greeting = profile.Greeting
	agent.Voice = profile.Voice

	opts := voiceagent.StartOptions{
		InputDevice:      req.InputDeviceID,
		OutputDevice:     req.OutputDeviceID,
		RemoteInput:      req.BrowserAudio,
		RemoteSampleRate: req.SampleRate,
		RemoteOutput:     req.BrowserOutput || s.opts.RemoteOutput,
		Agent:            &agent,
	}
	if opts.RemoteOutput {
		opts.OutputSink = s.relayAudio
	}

	if err := s.ctrl.Start(context.Background(), opts); err != nil {
		s.log.Error("session_start_failed", map[string]any{"client": c.id, "err": err})
		s.hub.Broadcast(sessionError("Failed to start voice agent", err))
		return
	}
	info := SessionInfo{Industry: profile.Industry, Voice: profile.Voice, Company: profile.Company}
	if sess := s.ctrl.Current(); sess != nil {
		info.SessionID = sess.ID()
	}
	s.hub.Broadcast(Message{Type: MsgSessionStarted, Data: info})
}

func (s *Server) stopAgent(c *client) {
	if s.ctrl.Current() == nil {
		c.reply(Message{Type: MsgSessionStopped, Data: SessionInfo{}})
		return
	}
	if err := s.ctrl.Stop(); err != nil {
		s.log.Warn("session_ended_with_error", map[string]any{"client": c.id, "err": err})
	}
}

func (s *Server) pushAudio(c *client, data json.RawMessage) {
	var a AudioData
	if err := json.Unmarshal(data, &a); err != nil {
		c.reply(sessionError("Invalid audio data", err))
		return
	}
	pcm, err := base64.StdEncoding.DecodeString(a.Data)
	if err != nil {
		c.reply(sessionError("Failed to decode audio data", err))
		return
	}
	switch err := s.ctrl.PushAudio(pcm, a.SampleRate); {
	case err == nil, errors.Is(err, voiceagent.ErrNoSession):
		// audio racing a start or stop is expected
	default:
		s.log.Debug("audio_push_failed", map[string]any{"client": c.id, "err": err})
	}
}

func (s *Server) listDevices(c *client) {
	out := AudioDevices{Input: []DeviceEntry{}, Output: []DeviceEntry{}}
	if s.opts.Driver != nil {
		devices, err := s.opts.Driver.Devices()
		if err != nil {
			c.reply(sessionError("Failed to list audio devices", err))
			return
		}
		for _, d := range devices {
			if d.MaxInputChannels > 0 {
				out.Input = append(out.Input, DeviceEntry{Index: d.Index, Name: d.Name, IsDefault: d.DefaultInput})
			}
			if d.MaxOutputChannels > 0 {
				out.Output = append(out.Output, DeviceEntry{Index: d.Index, Name: d.Name, IsDefault: d.DefaultOutput})
			}
		}
	}
	c.reply(Message{Type: MsgAudioDevices, Data: out})
}

// relayAudio is the session's FrameSink for browser playback.
func (s *Server) relayAudio(frame []byte, sampleRate int) error {
	s.hub.Broadcast(Message{Type: MsgAudioOutput, Data: AudioOutput{
		Audio:      base64.StdEncoding.EncodeToString(frame),
		SampleRate: sampleRate,
	}})
	return nil
}

func sessionError(message string, err error) Message {
	e := SessionError{Message: message}
	if err != nil {
		e.Details = err.Error()
	}
	return Message{Type: MsgSessionError, Data: e}
}
