package voiceagent

import (
	"net/http"
	"os"
	"strings"
	"time"
)

// Credential represents an authentication method for the agent service.
// Implementations must apply the appropriate authentication headers to the handshake.
type Credential interface {
	apply(h http.Header)
	empty() bool
}

// APIKey implements Credential using a service API key.
// It is sent as "Authorization: Token <key>".
type APIKey string

func (k APIKey) apply(h http.Header) {
	if k != "" {
		h.Set("Authorization", "Token "+string(k))
	}
}

func (k APIKey) empty() bool { return strings.TrimSpace(string(k)) == "" }

// Bearer implements Credential using a short-lived bearer token.
type Bearer string

func (b Bearer) apply(h http.Header) {
	if b != "" {
		h.Set("Authorization", "Bearer "+string(b))
	}
}

func (b Bearer) empty() bool { return strings.TrimSpace(string(b)) == "" }

// Protocol selects the shape of the outbound settings message.
type Protocol int

const (
	// ProtocolV1 sends a "Settings" message with provider blocks.
	ProtocolV1 Protocol = iota
	// ProtocolLegacy sends a "SettingsConfiguration" message.
	ProtocolLegacy
)

func (p Protocol) String() string {
	switch p {
	case ProtocolV1:
		return "v1"
	case ProtocolLegacy:
		return "legacy"
	default:
		return "unknown"
	}
}

// ParseProtocol maps "v1" and "legacy" to a Protocol. Anything else is v1.
func ParseProtocol(s string) Protocol {
	if strings.EqualFold(strings.TrimSpace(s), "legacy") {
		return ProtocolLegacy
	}
	return ProtocolV1
}

const (
	// DefaultEndpoint is the agent converse endpoint.
	DefaultEndpoint = "wss://agent.deepgram.com/v1/agent/converse"
	// LegacyEndpoint is the endpoint paired with ProtocolLegacy.
	LegacyEndpoint = "wss://agent.deepgram.com/agent"

	// DefaultInputSampleRate is the capture rate sent to the agent.
	DefaultInputSampleRate = 48000
	// DefaultOutputSampleRate is the rate of agent speech audio.
	DefaultOutputSampleRate = 16000
	// DefaultChunkDuration is the capture buffer length.
	DefaultChunkDuration = 50 * time.Millisecond

	// DefaultVoice is the speak model used when none is configured.
	DefaultVoice = "aura-2-thalia-en"
)

// AudioConfig describes the fixed PCM formats in both directions.
// Both directions are 16-bit little-endian mono.
type AudioConfig struct {
	InputSampleRate  int
	ChunkDuration    time.Duration
	OutputSampleRate int
}

// SamplesPerChunk returns the number of capture samples per buffer.
func (a AudioConfig) SamplesPerChunk() int {
	return SamplesFor(a.ChunkDuration, a.InputSampleRate)
}

// AgentConfig holds what the agent is told in the settings message.
type AgentConfig struct {
	Language      string
	ListenModel   string
	ThinkProvider string
	ThinkModel    string
	Temperature   float64
	Prompt        string
	Greeting      string
	Voice         string
}

// Config holds all configuration options for a voice agent session.
// Only the credential has no usable default; start from DefaultConfig or ConfigFromEnv.
type Config struct {
	// Endpoint is the agent WebSocket URL. http(s) schemes are mapped to ws(s).
	// Required: Yes
	Endpoint string

	// Credential authenticates the handshake. Use APIKey or Bearer.
	// Required: Yes
	Credential Credential

	// Protocol selects the settings message shape.
	Protocol Protocol

	// DialTimeout bounds the WebSocket handshake. Zero means no bound.
	DialTimeout time.Duration

	// HandshakeHeaders are added to the WebSocket handshake request.
	HandshakeHeaders http.Header

	// Audio fixes the PCM formats for capture and playback.
	Audio AudioConfig

	// Agent is sent to the service in the settings message.
	Agent AgentConfig

	// SendTimeout bounds a single outbound write.
	SendTimeout time.Duration

	// KeepAliveInterval is the WebSocket ping period. Zero disables pings.
	KeepAliveInterval time.Duration

	// FunctionTimeout bounds a single function handler invocation.
	FunctionTimeout time.Duration

	// FarewellSettle is how long the session waits after AgentAudioDone
	// before closing, so buffered farewell audio finishes playing.
	FarewellSettle time.Duration

	// FarewellTimeout bounds the wait for the farewell speech signals.
	FarewellTimeout time.Duration

	// CloseTimeout bounds the WebSocket close handshake.
	CloseTimeout time.Duration

	// CaptureEnqueueTimeout is how long a capture callback may block handing
	// a frame over before the frame is dropped.
	CaptureEnqueueTimeout time.Duration

	// PlaybackPollInterval is how often the render worker checks for stop.
	PlaybackPollInterval time.Duration

	// Logger receives structured session logs. Nil falls back to DefaultLogger.
	Logger *Logger
}

// DefaultConfig returns a Config with every tunable set. Credential is left empty.
func DefaultConfig() Config {
	return Config{
		Endpoint:    DefaultEndpoint,
		Protocol:    ProtocolV1,
		DialTimeout: 15 * time.Second,
		Audio: AudioConfig{
			InputSampleRate:  DefaultInputSampleRate,
			ChunkDuration:    DefaultChunkDuration,
			OutputSampleRate: DefaultOutputSampleRate,
		},
		Agent: AgentConfig{
			Language:      "en",
			ListenModel:   "nova-3",
			ThinkProvider: "open_ai",
			ThinkModel:    "gpt-4o-mini",
			Temperature:   0.7,
			Voice:         DefaultVoice,
		},
		SendTimeout:           15 * time.Second,
		KeepAliveInterval:     20 * time.Second,
		FunctionTimeout:       10 * time.Second,
		FarewellSettle:        3500 * time.Millisecond,
		FarewellTimeout:       30 * time.Second,
		CloseTimeout:          5 * time.Second,
		CaptureEnqueueTimeout: time.Second,
		PlaybackPollInterval:  50 * time.Millisecond,
	}
}

// ConfigFromEnv returns DefaultConfig with DEEPGRAM_API_KEY as credential
// and VOICE_AGENT_URL, when set, as endpoint.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if key := os.Getenv("DEEPGRAM_API_KEY"); key != "" {
		cfg.Credential = APIKey(key)
	}
	if u := os.Getenv("VOICE_AGENT_URL"); u != "" {
		cfg.Endpoint = u
	}
	return cfg
}

// withDefaults fills zero-valued tunables so a partially built Config still
// behaves. Explicit zero KeepAliveInterval is kept since it disables pings.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SendTimeout <= 0 {
		c.SendTimeout = d.SendTimeout
	}
	if c.FunctionTimeout <= 0 {
		c.FunctionTimeout = d.FunctionTimeout
	}
	if c.FarewellSettle < 0 {
		c.FarewellSettle = 0
	}
	if c.FarewellTimeout <= 0 {
		c.FarewellTimeout = d.FarewellTimeout
	}
	if c.CloseTimeout <= 0 {
		c.CloseTimeout = d.CloseTimeout
	}
	if c.CaptureEnqueueTimeout <= 0 {
		c.CaptureEnqueueTimeout = d.CaptureEnqueueTimeout
	}
	if c.PlaybackPollInterval <= 0 {
		c.PlaybackPollInterval = d.PlaybackPollInterval
	}
	if c.Agent.Voice == "" {
		c.Agent.Voice = d.Agent.Voice
	}
	if c.Agent.Language == "" {
		c.Agent.Language = d.Agent.Language
	}
	if c.Logger == nil {
		c.Logger = DefaultLogger
	}
	return c
}
