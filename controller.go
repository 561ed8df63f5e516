package voiceagent

import (
	"context"
	"sync"

	"github.com/enesunal-m/voiceagent/functions"
)

// StartOptions selects the audio endpoints for a new session.
type StartOptions struct {
	// InputDevice and OutputDevice pick local devices by index. Nil uses the
	// system default.
	InputDevice  *int
	OutputDevice *int

	// RemoteInput takes caller audio from PushAudio instead of a device.
	RemoteInput bool
	// RemoteSampleRate is the rate the caller declared for its audio. It
	// applies to frames pushed without a rate. Zero means unknown.
	RemoteSampleRate int
	// RemoteOutput skips the local output device; agent audio only goes to
	// OutputSink.
	RemoteOutput bool
	// OutputSink receives every rendered agent frame.
	OutputSink FrameSink

	// Agent overrides the controller's agent settings for this session.
	Agent *AgentConfig
}

// Controller owns at most one session at a time.
type Controller struct {
	cfg      Config
	registry *functions.Registry
	driver   AudioDriver
	events   EventSink
	log      *Logger

	mu      sync.Mutex
	session *Session
	remote  *RemoteCapture
}

// NewController returns a controller that starts sessions from cfg. driver
// may be nil when only remote audio is used.
func NewController(cfg Config, registry *functions.Registry, driver AudioDriver, events EventSink) *Controller {
	cfg = cfg.withDefaults()
	if events == nil {
		events = discardSink{}
	}
	return &Controller{
		cfg:      cfg,
		registry: registry,
		driver:   driver,
		events:   events,
		log:      cfg.Logger,
	}
}

// Start opens the audio endpoints and starts a session in the background.
// It is a no-op while a session is running. Configuration and device errors
// are returned before anything is dialled.
func (c *Controller) Start(ctx context.Context, opts StartOptions) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		c.log.Info("session_already_running", map[string]any{"session": c.session.ID()})
		return nil
	}

	cfg := c.cfg
	if opts.Agent != nil {
		cfg.Agent = *opts.Agent
	}
	if err := ValidateConfig(cfg); err != nil {
		return err
	}

	var devices []DeviceInfo
	if !opts.RemoteInput || !opts.RemoteOutput {
		if c.driver == nil {
			if !opts.RemoteInput {
				return noDeviceError("InputDevice", ErrNoInputDevice)
			}
			return noDeviceError("OutputDevice", ErrNoOutputDevice)
		}
		var err error
		if devices, err = c.driver.Devices(); err != nil {
			return err
		}
	}

	var (
		capture Capture
		remote  *RemoteCapture
	)
	if opts.RemoteInput {
		remote = NewRemoteCapture(cfg.Audio, cfg.CaptureEnqueueTimeout, cfg.Logger)
		remote.declared = opts.RemoteSampleRate
		capture = remote
	} else {
		in, err := SelectInputDevice(devices, opts.InputDevice)
		if err != nil {
			return err
		}
		capture = NewDeviceCapture(c.driver, in, cfg.Audio, cfg.CaptureEnqueueTimeout, cfg.Logger)
	}

	var output OutputStream
	if !opts.RemoteOutput {
		dev, err := SelectOutputDevice(devices, opts.OutputDevice)
		if err != nil {
			return err
		}
		if output, err = c.driver.OpenOutput(dev, cfg.Audio.OutputSampleRate); err != nil {
			return err
		}
	}

	sess, err := NewSession(cfg, SessionOptions{
		Capture:   capture,
		Output:    output,
		Sink:      opts.OutputSink,
		Events:    c.events,
		Functions: c.registry,
	})
	if err != nil {
		if output != nil {
			_ = output.Close()
		}
		return err
	}

	c.session = sess
	c.remote = remote
	c.log.Info("session_starting", map[string]any{
		"session":       sess.ID(),
		"remote_input":  opts.RemoteInput,
		"remote_output": opts.RemoteOutput,
	})

	runCtx := context.WithoutCancel(ctx)
	go func() {
		if err := sess.Run(runCtx); err != nil {
			c.log.Error("session_failed", map[string]any{"session": sess.ID(), "err": err})
		}
		c.release(sess)
	}()
	return nil
}

func (c *Controller) release(sess *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == sess {
		c.session = nil
		c.remote = nil
	}
}

// Stop ends the current session and waits until its resources are released.
// It is a no-op without a session.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sess := c.session
	if sess == nil {
		return nil
	}
	c.session = nil
	c.remote = nil

	sess.Stop()
	<-sess.Done()
	c.log.Info("session_stopped", map[string]any{"session": sess.ID()})
	return sess.Err()
}

// Current returns the running session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// PushAudio forwards a browser frame to the running session. It returns
// ErrNoSession when no session takes remote input.
func (c *Controller) PushAudio(frame []byte, sampleRate int) error {
	c.mu.Lock()
	remote := c.remote
	c.mu.Unlock()
	if remote == nil {
		return ErrNoSession
	}
	return remote.Push(frame, sampleRate)
}
