package voiceagent

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/enesunal-m/voiceagent/functions"
)

// State is a session lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateConnecting
	StateConfiguring
	StateActive
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConfiguring:
		return "configuring"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions can happen.
func (s State) Terminal() bool { return s == StateClosed || s == StateFailed }

// SessionOptions supplies the audio endpoints and collaborators of a session.
// The session takes ownership of Capture and Output and releases them when
// it ends.
type SessionOptions struct {
	// Capture produces the caller's audio. Required.
	Capture Capture
	// Output renders agent audio locally. Nil means no local rendering.
	Output OutputStream
	// Sink additionally receives every rendered agent frame.
	Sink FrameSink
	// Events receives conversation and state notifications.
	Events EventSink
	// Functions answers the agent's function calls. Nil means none are declared.
	Functions *functions.Registry
}

// Session is one conversation with the remote agent. It is created by
// NewSession, driven by Run and ended by Stop, by the agent, or by a
// transport failure. A Session is never restarted.
type Session struct {
	id       string
	cfg      Config
	log      *contextualLogger
	capture  Capture
	output   OutputStream
	sink     FrameSink
	events   EventSink
	registry *functions.Registry

	state atomic.Int32

	mu      sync.Mutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	err     error
	done    chan struct{}

	// Owned by Run and the duties it starts.
	conn     *Conn
	playback *Playback
	latency  *latencyTracker
	inbound  chan inbound
}

// NewSession validates cfg and the settings it produces, then prepares a
// session. Nothing is dialled or opened until Run.
func NewSession(cfg Config, opts SessionOptions) (*Session, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if opts.Capture == nil {
		return nil, NewConfigError("Capture", "", "cannot be nil")
	}
	cfg = cfg.withDefaults()
	if opts.Events == nil {
		opts.Events = discardSink{}
	}
	if opts.Functions == nil {
		opts.Functions = functions.NewRegistry()
	}
	if err := checkSettings(cfg, opts.Functions.Definitions()); err != nil {
		return nil, err
	}
	id := uuid.NewString()
	return &Session{
		id:       id,
		cfg:      cfg,
		log:      cfg.Logger.WithContext(map[string]any{"session": id}),
		capture:  opts.Capture,
		output:   opts.Output,
		sink:     opts.Sink,
		events:   opts.Events,
		registry: opts.Functions,
		done:     make(chan struct{}),
		latency:  newLatencyTracker(nil),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// Done is closed when Run has returned and every resource is released.
func (s *Session) Done() <-chan struct{} { return s.done }

// Err returns what Run returned. Only meaningful after Done is closed.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop asks the session to end. It does not wait; use Done for that.
// Stopping before Run makes Run end immediately. Safe to call repeatedly.
func (s *Session) Stop() {
	s.mu.Lock()
	s.stopped = true
	cancel := s.cancel
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run connects, configures the agent and streams audio until the session
// ends. A requested stop, the agent closing the conversation or a completed
// farewell end in StateClosed with a nil error. A transport failure ends in
// StateFailed and is returned. There is no automatic reconnect.
func (s *Session) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrSessionStarted
	}
	s.started = true
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel
	if s.stopped {
		cancel()
	}
	s.mu.Unlock()

	err := s.run(ctx)

	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	close(s.done)
	return err
}

func (s *Session) run(ctx context.Context) error {
	err := s.establish(ctx)
	if err == nil {
		s.setState(StateActive, nil)
		err = s.supervise(ctx)
	}

	s.setState(StateClosing, nil)
	s.teardown()

	if ctx.Err() != nil || err == nil {
		s.setState(StateClosed, nil)
		return nil
	}
	s.setState(StateFailed, err)
	return err
}

// establish dials, sends the settings and starts both audio directions.
func (s *Session) establish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.setState(StateConnecting, nil)
	conn, err := Dial(ctx, s.cfg)
	if err != nil {
		return err
	}
	s.conn = conn

	s.setState(StateConfiguring, nil)
	settings := BuildSettings(s.cfg, s.registry.Definitions())
	if err := conn.SendJSON(ctx, settings); err != nil {
		return err
	}
	s.log.Info("settings_sent", map[string]any{
		"protocol":  s.cfg.Protocol.String(),
		"functions": len(s.registry.Definitions()),
		"voice":     s.cfg.Agent.Voice,
	})

	s.playback = OpenPlayback(s.output, PlaybackOptions{
		SampleRate:   s.cfg.Audio.OutputSampleRate,
		PollInterval: s.cfg.PlaybackPollInterval,
		Sink:         s.sink,
		Logger:       s.cfg.Logger,
	})
	return s.capture.Start(ctx)
}

type duty struct {
	name string
	run  func(ctx context.Context) error
}

// supervise runs the duties until the first one returns, then cancels and
// joins the rest. The first result decides the outcome.
func (s *Session) supervise(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.inbound = make(chan inbound, captureBuffer)
	pumpCtx, stopPump := context.WithCancel(context.Background())
	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		s.pump(pumpCtx)
	}()
	defer func() {
		// Closing the connection first lets the pending read finish cleanly.
		_ = s.conn.Close()
		stopPump()
		<-pumpDone
	}()

	duties := []duty{{"sender", s.send}, {"receiver", s.receive}}
	if s.cfg.KeepAliveInterval > 0 {
		duties = append(duties, duty{"keepalive", s.keepAlive})
	}

	type result struct {
		name string
		err  error
	}
	results := make(chan result, len(duties))
	var wg sync.WaitGroup
	for _, d := range duties {
		wg.Add(1)
		go func(d duty) {
			defer wg.Done()
			results <- result{d.name, d.run(ctx)}
		}(d)
	}

	first := <-results
	cancel()
	wg.Wait()

	s.log.Debug("duty_exited", map[string]any{"duty": first.name, "err": first.err})
	return first.err
}

// teardown releases every resource exactly once, logging failures.
func (s *Session) teardown() {
	if err := s.capture.Close(); err != nil {
		s.log.Warn("capture_release_failed", map[string]any{"err": err})
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.log.Warn("connection_release_failed", map[string]any{"err": err})
		}
	}
	if s.playback != nil {
		_ = s.playback.Close()
	} else if s.output != nil {
		if err := s.output.Close(); err != nil {
			s.log.Warn("output_release_failed", map[string]any{"err": err})
		}
	}
}

func (s *Session) setState(st State, err error) {
	prev := State(s.state.Swap(int32(st)))
	if prev == st {
		return
	}
	fields := map[string]any{"from": prev.String(), "to": st.String()}
	update := StateUpdate{SessionID: s.id, State: st.String()}
	if err != nil {
		fields["err"] = err
		update.Error = err.Error()
	}
	if st == StateFailed {
		s.log.Error("session_state", fields)
	} else {
		s.log.Info("session_state", fields)
	}
	s.events.Emit(EventSessionState, update)
}

// send streams captured frames in capture order.
func (s *Session) send(ctx context.Context) error {
	frames := s.capture.Frames()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-frames:
			if err := s.conn.SendAudio(ctx, frame); err != nil {
				if errors.Is(err, ErrClosed) {
					return nil
				}
				return err
			}
		}
	}
}

func (s *Session) keepAlive(ctx context.Context) error {
	t := time.NewTicker(s.cfg.KeepAliveInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
			err := s.conn.Ping(pctx)
			cancel()
			if err == nil {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-s.conn.Closed():
				return nil
			default:
			}
			return NewConnectionError(s.conn.URL(), "ping", err)
		}
	}
}
