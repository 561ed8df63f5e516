package voiceagent

import "time"

// Inbound message types.
const (
	TypeWelcome              = "Welcome"
	TypeSettingsApplied      = "SettingsApplied"
	TypeUserStartedSpeaking  = "UserStartedSpeaking"
	TypeConversationText     = "ConversationText"
	TypeFunctionCalling      = "FunctionCalling"
	TypeFunctionCallRequest  = "FunctionCallRequest"
	TypeAgentThinking        = "AgentThinking"
	TypeAgentStartedSpeaking = "AgentStartedSpeaking"
	TypeAgentAudioDone       = "AgentAudioDone"
	TypeCloseConnection      = "CloseConnection"
	TypeError                = "Error"
	TypeWarning              = "Warning"
)

// Outbound message types.
const (
	TypeSettings              = "Settings"
	TypeSettingsConfiguration = "SettingsConfiguration"
	TypeInjectAgentMessage    = "InjectAgentMessage"
	TypeFunctionCallResponse  = "FunctionCallResponse"
	TypeClose                 = "close"
)

// Conversation roles carried by ConversationText.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// envelope is decoded first to route a text frame by its type.
type envelope struct {
	Type string `json:"type"`
}

// Welcome is the first message after the handshake.
type Welcome struct {
	Type      string `json:"type"`
	RequestID string `json:"request_id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// ConversationText is a finalised utterance from either side.
type ConversationText struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// AgentError is an error reported by the service.
type AgentError struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Message     string `json:"message,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Text returns whichever of description or message is set.
func (e AgentError) Text() string {
	if e.Description != "" {
		return e.Description
	}
	return e.Message
}

// AgentWarning is a non-fatal notice from the service.
type AgentWarning struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	Code        string `json:"code,omitempty"`
}

// ConversationUpdate is emitted to the event sink for every utterance.
type ConversationUpdate struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// StateUpdate is emitted to the event sink on every state transition.
type StateUpdate struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Error     string `json:"error,omitempty"`
}

// Events emitted to an EventSink.
const (
	EventConversationUpdate = "conversation_update"
	EventSessionState       = "session_state"
	EventAgentError         = "agent_error"
	EventAgentWarning       = "agent_warning"
)

// EventSink receives session notifications. Emit must not block for long:
// it is called from the session's receive loop.
type EventSink interface {
	Emit(event string, payload any)
}

// EventSinkFunc adapts a function to EventSink.
type EventSinkFunc func(event string, payload any)

// Emit calls f.
func (f EventSinkFunc) Emit(event string, payload any) { f(event, payload) }

type discardSink struct{}

func (discardSink) Emit(string, any) {}
