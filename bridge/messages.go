package bridge

import (
	"encoding/json"
	"time"
)

// MessageType names a control message exchanged with the browser.
type MessageType string

const (
	// Client to server
	MsgStartVoiceAgent MessageType = "start_voice_agent"
	MsgStopVoiceAgent  MessageType = "stop_voice_agent"
	MsgAudioData       MessageType = "audio_data"
	MsgGetAudioDevices MessageType = "get_audio_devices"
	MsgGetIndustries   MessageType = "get_industries"
	MsgGetVoices       MessageType = "get_voices"

	// Server to client
	MsgLogMessage     MessageType = "log_message"
	MsgAudioOutput    MessageType = "audio_output"
	MsgSessionStarted MessageType = "session_started"
	MsgSessionStopped MessageType = "session_stopped"
	MsgSessionError   MessageType = "session_error"
	MsgAudioDevices   MessageType = "audio_devices"
	MsgIndustries     MessageType = "industries"
	MsgVoices         MessageType = "voices"
)

// Message is the envelope for every frame sent to a browser.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data,omitempty"`
}

// command is an inbound envelope; Data is decoded per type.
type command struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// StartRequest is the payload of start_voice_agent. Every field is optional.
type StartRequest struct {
	InputDeviceID  *int   `json:"inputDeviceId,omitempty"`
	OutputDeviceID *int   `json:"outputDeviceId,omitempty"`
	Industry       string `json:"industry,omitempty"`
	VoiceModel     string `json:"voiceModel,omitempty"`
	BrowserAudio   bool   `json:"browserAudio,omitempty"`
	BrowserOutput  bool   `json:"browserOutput,omitempty"`
	SampleRate     int    `json:"sampleRate,omitempty"`
}

// AudioData carries one base64 PCM16 frame captured in the browser.
type AudioData struct {
	Data       string `json:"data"`
	SampleRate int    `json:"sampleRate,omitempty"`
}

// AudioOutput carries one base64 PCM16 frame of agent speech.
type AudioOutput struct {
	Audio      string `json:"audio"`
	SampleRate int    `json:"sampleRate"`
}

// LogMessage mirrors one formatted log line.
type LogMessage struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionInfo describes a started or stopped session.
type SessionInfo struct {
	SessionID string `json:"session_id,omitempty"`
	Industry  string `json:"industry,omitempty"`
	Voice     string `json:"voice,omitempty"`
	Company   string `json:"company,omitempty"`
}

// SessionError reports a failed command.
type SessionError struct {
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// AudioDevices splits the driver's devices by direction.
type AudioDevices struct {
	Input  []DeviceEntry `json:"input"`
	Output []DeviceEntry `json:"output"`
}

// DeviceEntry is a device as shown in the browser's pickers.
type DeviceEntry struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	IsDefault bool   `json:"isDefault"`
}
