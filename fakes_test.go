package voiceagent

import (
	"errors"
	"io"
	"sync"
	"time"
)

// fakeDriver is an in-memory AudioDriver.
type fakeDriver struct {
	mu      sync.Mutex
	devices []DeviceInfo
	inputs  []*fakeInput
	outputs []*fakeOutput
	openErr error

	inputRate, inputChunk, outputRate int
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{devices: []DeviceInfo{
		{Index: 0, Name: "Speakers", MaxOutputChannels: 2, DefaultOutput: true},
		{Index: 1, Name: "Built-in Mic", MaxInputChannels: 1, DefaultInput: true},
		{Index: 2, Name: "USB Headset", MaxInputChannels: 1, MaxOutputChannels: 2},
	}}
}

func (d *fakeDriver) Devices() ([]DeviceInfo, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]DeviceInfo(nil), d.devices...), nil
}

func (d *fakeDriver) OpenInput(dev DeviceInfo, sampleRate, framesPerBuffer int, onFrame func([]byte)) (InputStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	in := &fakeInput{dev: dev, onFrame: onFrame}
	d.inputs = append(d.inputs, in)
	d.inputRate, d.inputChunk = sampleRate, framesPerBuffer
	return in, nil
}

func (d *fakeDriver) OpenOutput(dev DeviceInfo, sampleRate int) (OutputStream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	out := &fakeOutput{dev: dev}
	d.outputs = append(d.outputs, out)
	d.outputRate = sampleRate
	return out, nil
}

func (d *fakeDriver) opened() (inputs, outputs int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.inputs), len(d.outputs)
}

type fakeInput struct {
	dev     DeviceInfo
	onFrame func([]byte)

	mu      sync.Mutex
	started bool
	closed  int
}

func (i *fakeInput) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed > 0 {
		return errors.New("stream closed")
	}
	i.started = true
	return nil
}

func (i *fakeInput) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed++
	return nil
}

func (i *fakeInput) closeCount() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.closed
}

// fakeOutput records written frames. With release set, every Write blocks
// until release is closed.
type fakeOutput struct {
	dev     DeviceInfo
	entered chan struct{}
	release chan struct{}

	mu     sync.Mutex
	frames [][]byte
	closed int
}

func (o *fakeOutput) Write(frame []byte) error {
	if o.entered != nil {
		select {
		case o.entered <- struct{}{}:
		default:
		}
	}
	if o.release != nil {
		<-o.release
	}
	o.mu.Lock()
	o.frames = append(o.frames, frame)
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed++
	return nil
}

func (o *fakeOutput) written() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.frames)
}

func (o *fakeOutput) closeCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

// quietLogger returns a debug-level logger that writes nowhere, so hooks
// still see every line.
func quietLogger() *Logger {
	l := NewLogger(LogLevelDebug)
	l.SetOutput(io.Discard)
	return l
}

// eventually polls cond until it holds or testWait passes.
func eventually(cond func() bool) bool {
	deadline := time.Now().Add(testWait)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}
