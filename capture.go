package voiceagent

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Capture produces microphone frames in arrival order.
type Capture interface {
	// Start begins producing frames. It does not block.
	Start(ctx context.Context) error
	// Frames yields captured frames. The channel is never closed; consumers
	// stop on their own context.
	Frames() <-chan []byte
	// Close stops capture. Safe to call more than once, and before Start.
	Close() error
}

const captureBuffer = 64

// frameGate hands frames from a producer that must not block for long to
// the session's sender.
type frameGate struct {
	frames  chan []byte
	done    chan struct{}
	once    sync.Once
	timeout time.Duration
	log     *Logger
	dropped atomic.Int64
}

func newFrameGate(timeout time.Duration, log *Logger) *frameGate {
	if timeout <= 0 {
		timeout = time.Second
	}
	if log == nil {
		log = DefaultLogger
	}
	return &frameGate{
		frames:  make(chan []byte, captureBuffer),
		done:    make(chan struct{}),
		timeout: timeout,
		log:     log,
	}
}

// offer blocks at most g.timeout. A frame that cannot be handed over is dropped.
func (g *frameGate) offer(frame []byte) error {
	select {
	case <-g.done:
		return ErrClosed
	default:
	}
	select {
	case g.frames <- frame:
		return nil
	default:
	}
	t := time.NewTimer(g.timeout)
	defer t.Stop()
	select {
	case g.frames <- frame:
		return nil
	case <-g.done:
		return ErrClosed
	case <-t.C:
		n := g.dropped.Add(1)
		g.log.Warn("capture_frame_dropped", map[string]any{"bytes": len(frame), "total_dropped": n})
		return nil
	}
}

func (g *frameGate) close() {
	g.once.Do(func() { close(g.done) })
}

func (g *frameGate) isClosed() bool {
	select {
	case <-g.done:
		return true
	default:
		return false
	}
}

// DeviceCapture captures from a local input device through an AudioDriver.
type DeviceCapture struct {
	driver AudioDriver
	device DeviceInfo
	rate   int
	chunk  int
	gate   *frameGate

	mu     sync.Mutex
	stream InputStream
}

// NewDeviceCapture prepares capture from device at the configured input rate.
func NewDeviceCapture(driver AudioDriver, device DeviceInfo, audio AudioConfig, enqueueTimeout time.Duration, log *Logger) *DeviceCapture {
	return &DeviceCapture{
		driver: driver,
		device: device,
		rate:   audio.InputSampleRate,
		chunk:  audio.SamplesPerChunk(),
		gate:   newFrameGate(enqueueTimeout, log),
	}
}

// Start opens and starts the device stream.
func (c *DeviceCapture) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gate.isClosed() {
		return ErrClosed
	}
	if c.stream != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	stream, err := c.driver.OpenInput(c.device, c.rate, c.chunk, c.deliver)
	if err != nil {
		return err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return err
	}
	c.stream = stream
	c.gate.log.Info("capture_started", map[string]any{"device": c.device.Name, "rate": c.rate, "chunk": c.chunk})
	return nil
}

// deliver runs on the driver's thread. The buffer may be reused by the
// driver, so it is copied first.
func (c *DeviceCapture) deliver(frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)
	_ = c.gate.offer(buf)
}

// Frames implements Capture.
func (c *DeviceCapture) Frames() <-chan []byte { return c.gate.frames }

// Close stops the device stream. Frames delivered afterwards are discarded.
func (c *DeviceCapture) Close() error {
	c.gate.close()
	c.mu.Lock()
	stream := c.stream
	c.stream = nil
	c.mu.Unlock()
	if stream == nil {
		return nil
	}
	if err := stream.Close(); err != nil {
		c.gate.log.Warn("capture_close_failed", map[string]any{"err": err})
		return err
	}
	return nil
}

// RemoteCapture receives frames pushed from a browser.
type RemoteCapture struct {
	rate       int
	declared   int
	gate       *frameGate
	warnedRate atomic.Bool
}

// NewRemoteCapture returns a capture fed by Push.
func NewRemoteCapture(audio AudioConfig, enqueueTimeout time.Duration, log *Logger) *RemoteCapture {
	return &RemoteCapture{rate: audio.InputSampleRate, gate: newFrameGate(enqueueTimeout, log)}
}

// Start implements Capture. Remote frames need no device.
func (c *RemoteCapture) Start(context.Context) error {
	if c.gate.isClosed() {
		return ErrClosed
	}
	return nil
}

// Push hands a frame to the session. sampleRate is the rate the browser
// declared; zero falls back to the rate declared at start, if any. Frames are
// never resampled, so a mismatch is logged once. Returns ErrClosed after Close.
func (c *RemoteCapture) Push(frame []byte, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = c.declared
	}
	if sampleRate > 0 && sampleRate != c.rate && c.warnedRate.CompareAndSwap(false, true) {
		c.gate.log.Warn("capture_rate_mismatch", map[string]any{"declared": sampleRate, "expected": c.rate})
	}
	return c.gate.offer(frame)
}

// Frames implements Capture.
func (c *RemoteCapture) Frames() <-chan []byte { return c.gate.frames }

// Close implements Capture.
func (c *RemoteCapture) Close() error {
	c.gate.close()
	return nil
}
