// Package portaudio adapts the PortAudio host API to voiceagent.AudioDriver.
//
// Initialize must be called once before the driver is used and Terminate
// once after every stream is closed.
package portaudio

import (
	"fmt"
	"sync"

	pa "github.com/gordonklaus/portaudio"

	"github.com/enesunal-m/voiceagent"
)

// Initialize starts the PortAudio library.
func Initialize() error { return pa.Initialize() }

// Terminate releases the PortAudio library.
func Terminate() error { return pa.Terminate() }

// Driver enumerates and opens PortAudio devices. Device indexes are
// positions in PortAudio's device list.
type Driver struct{}

// NewDriver returns a Driver. PortAudio must already be initialised.
func NewDriver() *Driver { return &Driver{} }

var _ voiceagent.AudioDriver = (*Driver)(nil)

// Devices lists every host device with the default flags set.
func (d *Driver) Devices() ([]voiceagent.DeviceInfo, error) {
	devs, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	defIn, _ := pa.DefaultInputDevice()
	defOut, _ := pa.DefaultOutputDevice()

	out := make([]voiceagent.DeviceInfo, 0, len(devs))
	for i, dev := range devs {
		out = append(out, voiceagent.DeviceInfo{
			Index:             i,
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			DefaultInput:      defIn != nil && dev == defIn,
			DefaultOutput:     defOut != nil && dev == defOut,
		})
	}
	return out, nil
}

func (d *Driver) device(info voiceagent.DeviceInfo) (*pa.DeviceInfo, error) {
	devs, err := pa.Devices()
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if info.Index < 0 || info.Index >= len(devs) {
		return nil, fmt.Errorf("device %s no longer present", info)
	}
	return devs[info.Index], nil
}

// OpenInput opens a mono callback stream. onFrame runs on the PortAudio
// thread with a fresh PCM16 buffer per callback.
func (d *Driver) OpenInput(info voiceagent.DeviceInfo, sampleRate, framesPerBuffer int, onFrame func([]byte)) (voiceagent.InputStream, error) {
	dev, err := d.device(info)
	if err != nil {
		return nil, err
	}
	p := pa.LowLatencyParameters(dev, nil)
	p.Input.Channels = 1
	p.SampleRate = float64(sampleRate)
	p.FramesPerBuffer = framesPerBuffer

	stream, err := pa.OpenStream(p, func(in []int16) {
		onFrame(voiceagent.Int16ToBytes(in))
	})
	if err != nil {
		return nil, fmt.Errorf("open input %s: %w", info, err)
	}
	return &inputStream{stream: stream}, nil
}

// OpenOutput opens a mono blocking stream.
func (d *Driver) OpenOutput(info voiceagent.DeviceInfo, sampleRate int) (voiceagent.OutputStream, error) {
	dev, err := d.device(info)
	if err != nil {
		return nil, err
	}
	p := pa.HighLatencyParameters(nil, dev)
	p.Output.Channels = 1
	p.SampleRate = float64(sampleRate)

	o := &outputStream{}
	o.stream, err = pa.OpenStream(p, &o.buf)
	if err != nil {
		return nil, fmt.Errorf("open output %s: %w", info, err)
	}
	if err := o.stream.Start(); err != nil {
		_ = o.stream.Close()
		return nil, fmt.Errorf("start output %s: %w", info, err)
	}
	return o, nil
}

type inputStream struct {
	stream *pa.Stream
	once   sync.Once
	err    error
}

func (s *inputStream) Start() error { return s.stream.Start() }

func (s *inputStream) Close() error {
	s.once.Do(func() {
		_ = s.stream.Stop()
		s.err = s.stream.Close()
	})
	return s.err
}

// outputStream writes through buf, the slice PortAudio was opened with.
type outputStream struct {
	mu     sync.Mutex
	stream *pa.Stream
	buf    []int16
	closed bool
}

func (o *outputStream) Write(frame []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return voiceagent.ErrClosed
	}
	o.buf = voiceagent.BytesToInt16(frame)
	if len(o.buf) == 0 {
		return nil
	}
	err := o.stream.Write()
	if err == pa.OutputUnderflowed {
		return nil
	}
	return err
}

func (o *outputStream) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	_ = o.stream.Stop()
	return o.stream.Close()
}
