package voiceagent

import (
	"sync"
	"sync/atomic"
	"time"
)

// OutputStream renders PCM16 frames on a device. Write may block for
// roughly the frame's duration.
type OutputStream interface {
	Write(frame []byte) error
	Close() error
}

// FrameSink receives every rendered frame, for example to relay agent audio
// to a browser. Errors are logged and never stop local rendering.
type FrameSink func(frame []byte, sampleRate int) error

// PlaybackOptions configures OpenPlayback.
type PlaybackOptions struct {
	SampleRate   int
	PollInterval time.Duration
	Sink         FrameSink
	Logger       *Logger
}

// Playback renders agent audio from a FrameQueue on its own goroutine.
// The output stream and the worker are acquired and released together.
type Playback struct {
	queue *FrameQueue
	out   OutputStream
	sink  FrameSink
	rate  int
	poll  time.Duration
	log   *Logger

	rendered atomic.Int64

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// OpenPlayback starts the render worker. out may be nil when frames only go
// to the sink.
func OpenPlayback(out OutputStream, opts PlaybackOptions) *Playback {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 50 * time.Millisecond
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = DefaultOutputSampleRate
	}
	if opts.Logger == nil {
		opts.Logger = DefaultLogger
	}
	p := &Playback{
		queue: NewFrameQueue(),
		out:   out,
		sink:  opts.Sink,
		rate:  opts.SampleRate,
		poll:  opts.PollInterval,
		log:   opts.Logger,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go p.render()
	return p
}

// Play queues a frame for rendering. Frames queued after Close are ignored.
func (p *Playback) Play(frame []byte) {
	select {
	case <-p.stop:
		return
	default:
	}
	p.queue.Push(frame)
}

// Interrupt discards every frame not yet handed to the device and returns
// how many were dropped. A frame already being written finishes.
func (p *Playback) Interrupt() int {
	return p.queue.Drain()
}

// Pending reports the number of queued frames.
func (p *Playback) Pending() int { return p.queue.Len() }

// Close stops the worker, waits for it and closes the output stream.
// Safe to call more than once.
func (p *Playback) Close() error {
	p.closeOnce.Do(func() {
		close(p.stop)
		<-p.done
		dropped := p.queue.Drain()
		if p.out != nil {
			if err := p.out.Close(); err != nil {
				p.log.Warn("playback_close_failed", map[string]any{"err": err})
				p.closeErr = err
			}
		}
		p.log.Debug("playback_closed", map[string]any{"dropped": dropped, "rendered": p.Rendered().String()})
	})
	return p.closeErr
}

// Rendered returns how much audio has been handed to the device or sink.
func (p *Playback) Rendered() time.Duration { return time.Duration(p.rendered.Load()) }

func (p *Playback) render() {
	defer close(p.done)
	t := time.NewTicker(p.poll)
	defer t.Stop()
	for {
		select {
		case <-p.stop:
			return
		case <-p.queue.Ready():
		case <-t.C:
		}
		for {
			select {
			case <-p.stop:
				return
			default:
			}
			frame, ok := p.queue.Pop()
			if !ok {
				break
			}
			p.write(frame)
		}
	}
}

func (p *Playback) write(frame []byte) {
	p.rendered.Add(int64(FrameDuration(frame, p.rate)))
	if p.out != nil {
		if err := p.out.Write(frame); err != nil {
			p.log.Warn("playback_write_failed", map[string]any{"err": err, "bytes": len(frame)})
		}
	}
	if p.sink != nil {
		if err := p.sink(frame, p.rate); err != nil {
			p.log.Warn("playback_sink_failed", map[string]any{"err": err})
		}
	}
}
