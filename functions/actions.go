package functions

// Filler is returned by agent_filler. The session answers the call with
// Response, then has the agent speak Message.
type Filler struct {
	MessageType string
	Message     string
}

// Response is the function result sent before the message is injected.
func (f *Filler) Response() map[string]any {
	return map[string]any{"status": "queued", "message_type": f.MessageType}
}

// Farewell is returned by end_call. The session answers the call, has the
// agent speak Message, waits for it to be played and ends the conversation.
type Farewell struct {
	FarewellType string
	Message      string
}

// Response is the function result sent before the farewell is injected.
func (f *Farewell) Response() map[string]any {
	return map[string]any{"status": "closing", "message": f.Message}
}

// NewFiller maps a message type to its spoken filler.
func NewFiller(messageType string) *Filler {
	msg := "One moment please..."
	if messageType == "lookup" {
		msg = "Let me look that up for you..."
	}
	return &Filler{MessageType: messageType, Message: msg}
}

// NewFarewell maps a farewell type to its spoken message.
func NewFarewell(farewellType string) *Farewell {
	var msg string
	switch farewellType {
	case "thanks":
		msg = "Thank you for calling! Have a great day!"
	case "help":
		msg = "I'm glad I could help! Have a wonderful day!"
	default:
		farewellType = "general"
		msg = "Goodbye! Have a nice day!"
	}
	return &Farewell{FarewellType: farewellType, Message: msg}
}
