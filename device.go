package voiceagent

import "fmt"

// DeviceInfo describes an audio device reported by a driver.
type DeviceInfo struct {
	Index             int     `json:"index"`
	Name              string  `json:"name"`
	MaxInputChannels  int     `json:"maxInputChannels"`
	MaxOutputChannels int     `json:"maxOutputChannels"`
	DefaultSampleRate float64 `json:"defaultSampleRate"`
	DefaultInput      bool    `json:"defaultInput"`
	DefaultOutput     bool    `json:"defaultOutput"`
}

// InputStream is an open capture stream. The driver invokes the callback
// given to OpenInput on its own thread once started.
type InputStream interface {
	Start() error
	Close() error
}

// AudioDriver abstracts the host audio API.
type AudioDriver interface {
	Devices() ([]DeviceInfo, error)
	// OpenInput opens a mono PCM16 capture stream delivering framesPerBuffer
	// samples per callback.
	OpenInput(dev DeviceInfo, sampleRate, framesPerBuffer int, onFrame func(frame []byte)) (InputStream, error)
	// OpenOutput opens a mono PCM16 playback stream.
	OpenOutput(dev DeviceInfo, sampleRate int) (OutputStream, error)
}

// SelectInputDevice picks a capture device: the requested index if it is an
// input device, else the system default input, else the first input device.
func SelectInputDevice(devices []DeviceInfo, requested *int) (DeviceInfo, error) {
	return selectDevice(devices, requested,
		func(d DeviceInfo) bool { return d.MaxInputChannels > 0 },
		func(d DeviceInfo) bool { return d.DefaultInput },
		noDeviceError("InputDevice", ErrNoInputDevice))
}

// SelectOutputDevice mirrors SelectInputDevice for playback devices.
func SelectOutputDevice(devices []DeviceInfo, requested *int) (DeviceInfo, error) {
	return selectDevice(devices, requested,
		func(d DeviceInfo) bool { return d.MaxOutputChannels > 0 },
		func(d DeviceInfo) bool { return d.DefaultOutput },
		noDeviceError("OutputDevice", ErrNoOutputDevice))
}

func selectDevice(devices []DeviceInfo, requested *int, usable, isDefault func(DeviceInfo) bool, none error) (DeviceInfo, error) {
	var candidates []DeviceInfo
	for _, d := range devices {
		if usable(d) {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return DeviceInfo{}, none
	}
	if requested != nil {
		for _, d := range candidates {
			if d.Index == *requested {
				return d, nil
			}
		}
	}
	for _, d := range candidates {
		if isDefault(d) {
			return d, nil
		}
	}
	return candidates[0], nil
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("#%d %s (in=%d out=%d)", d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels)
}
