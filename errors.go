package voiceagent

import (
	"errors"
	"fmt"
	"net/url"
)

// Common error variables
var (
	// ErrClosed is returned when using a connection or pipeline that has been closed.
	// A closed session cannot be restarted; create a new one instead.
	ErrClosed = errors.New("voiceagent: connection is closed")

	// ErrInvalidConfig is returned when required configuration fields are missing.
	ErrInvalidConfig = errors.New("voiceagent: invalid configuration")

	// ErrConnectionFailed is returned when the WebSocket connection cannot be established.
	ErrConnectionFailed = errors.New("voiceagent: connection failed")

	// ErrSendTimeout is returned when sending a message times out.
	ErrSendTimeout = errors.New("voiceagent: send timeout")

	// ErrInvalidEventData is returned when an inbound message cannot be parsed.
	ErrInvalidEventData = errors.New("voiceagent: invalid event data")

	// ErrMultipleFunctions is returned for a function call request naming more
	// than one function. The request is skipped.
	ErrMultipleFunctions = errors.New("voiceagent: multiple functions in one request")

	// ErrNoInputDevice is matched by the error returned when no capture device exists.
	ErrNoInputDevice = errors.New("voiceagent: no input device available")

	// ErrNoOutputDevice is matched by the error returned when no playback device exists.
	ErrNoOutputDevice = errors.New("voiceagent: no output device available")

	// ErrCloseTimeout is returned when the close handshake does not finish in time.
	ErrCloseTimeout = errors.New("voiceagent: close timeout")

	// ErrSessionStarted is returned by Session.Run when called more than once.
	ErrSessionStarted = errors.New("voiceagent: session already started")

	// ErrNoSession is returned by Controller.PushAudio when no remote session is active.
	ErrNoSession = errors.New("voiceagent: no active session")
)

// ConfigError represents a configuration validation error.
// It provides detailed information about which configuration field is invalid.
type ConfigError struct {
	Field   string // The configuration field that is invalid
	Value   string // The invalid value (if safe to log)
	Message string // Detailed error message
	cause   error
}

func (e *ConfigError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("voiceagent: invalid config field %q (value: %q): %s", e.Field, e.Value, e.Message)
	}
	return fmt.Sprintf("voiceagent: invalid config field %q: %s", e.Field, e.Message)
}

// Is implements error matching for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidConfig || (e.cause != nil && target == e.cause)
}

// Unwrap returns the sentinel this error was derived from, if any.
func (e *ConfigError) Unwrap() error {
	return e.cause
}

// ConnectionError represents a WebSocket connection error.
// It wraps underlying network errors with additional context.
type ConnectionError struct {
	URL       string // The WebSocket URL that failed to connect
	Cause     error  // The underlying error
	Operation string // The operation that failed (e.g., "dial", "handshake")
}

func (e *ConnectionError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("voiceagent: %s failed for %q: %v", e.Operation, e.URL, e.Cause)
	}
	return fmt.Sprintf("voiceagent: %s failed for %q", e.Operation, e.URL)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *ConnectionError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for ConnectionError.
func (e *ConnectionError) Is(target error) bool {
	return target == ErrConnectionFailed
}

// SendError represents an error that occurred while sending data to the agent.
type SendError struct {
	EventType string // The type of message being sent ("audio" for binary frames)
	Cause     error  // The underlying error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("voiceagent: failed to send %s message: %v", e.EventType, e.Cause)
}

// Unwrap returns the underlying error.
func (e *SendError) Unwrap() error {
	return e.Cause
}

// IsTimeout returns true if the error was caused by a timeout.
func (e *SendError) IsTimeout() bool {
	return errors.Is(e.Cause, ErrSendTimeout)
}

// EventError represents an error in processing a message from the agent.
type EventError struct {
	EventType string // The type of message that caused the error
	RawData   []byte // The raw JSON data (if available)
	Cause     error  // The underlying parsing error
}

func (e *EventError) Error() string {
	return fmt.Sprintf("voiceagent: failed to process %s message: %v", e.EventType, e.Cause)
}

// Unwrap returns the underlying error.
func (e *EventError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for EventError.
func (e *EventError) Is(target error) bool {
	return target == ErrInvalidEventData
}

// NewConfigError creates a new configuration error.
func NewConfigError(field, value, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// NewConnectionError creates a new connection error.
func NewConnectionError(url, operation string, cause error) *ConnectionError {
	return &ConnectionError{
		URL:       url,
		Operation: operation,
		Cause:     cause,
	}
}

// NewSendError creates a new send error.
func NewSendError(eventType string, cause error) *SendError {
	return &SendError{
		EventType: eventType,
		Cause:     cause,
	}
}

// NewEventError creates a new event processing error.
func NewEventError(eventType string, rawData []byte, cause error) *EventError {
	return &EventError{
		EventType: eventType,
		RawData:   rawData,
		Cause:     cause,
	}
}

func noDeviceError(field string, sentinel error) *ConfigError {
	return &ConfigError{Field: field, Message: sentinel.Error(), cause: sentinel}
}

// ValidateConfig checks everything a session needs before any connection is attempted.
func ValidateConfig(cfg Config) error {
	if cfg.Endpoint == "" {
		return NewConfigError("Endpoint", "", "cannot be empty")
	}

	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return NewConfigError("Endpoint", cfg.Endpoint, "invalid URL format")
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return NewConfigError("Endpoint", cfg.Endpoint, "scheme must be ws, wss, http or https")
	}

	if cfg.Credential == nil || cfg.Credential.empty() {
		return NewConfigError("Credential", "", "cannot be empty")
	}

	if cfg.DialTimeout < 0 {
		return NewConfigError("DialTimeout", cfg.DialTimeout.String(), "cannot be negative")
	}

	if cfg.Audio.InputSampleRate <= 0 {
		return NewConfigError("Audio.InputSampleRate", fmt.Sprint(cfg.Audio.InputSampleRate), "must be positive")
	}
	if cfg.Audio.OutputSampleRate <= 0 {
		return NewConfigError("Audio.OutputSampleRate", fmt.Sprint(cfg.Audio.OutputSampleRate), "must be positive")
	}
	if cfg.Audio.ChunkDuration <= 0 {
		return NewConfigError("Audio.ChunkDuration", cfg.Audio.ChunkDuration.String(), "must be positive")
	}

	if cfg.Protocol != ProtocolV1 && cfg.Protocol != ProtocolLegacy {
		return NewConfigError("Protocol", cfg.Protocol.String(), "unknown protocol version")
	}

	return nil
}
