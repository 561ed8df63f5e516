package voiceagent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kaptinlin/jsonrepair"
)

// WireShape identifies which function-call message layout the service used.
type WireShape int

const (
	// ShapeV1 carries a functions array with id, name and string arguments.
	ShapeV1 WireShape = iota
	// ShapeLegacy carries function_name, function_call_id and an input object.
	ShapeLegacy
)

func (s WireShape) String() string {
	if s == ShapeLegacy {
		return "legacy"
	}
	return "v1"
}

// FunctionCall is the canonical form of a function call request, independent
// of the wire shape it arrived in.
type FunctionCall struct {
	ID        string
	Name      string
	Arguments map[string]any
	Shape     WireShape
}

type wireFunction struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Arguments  json.RawMessage `json:"arguments"`
	ClientSide *bool           `json:"client_side,omitempty"`
}

type wireFunctionCallRequest struct {
	Type           string          `json:"type"`
	Functions      []wireFunction  `json:"functions"`
	FunctionName   string          `json:"function_name"`
	FunctionCallID string          `json:"function_call_id"`
	Input          json.RawMessage `json:"input"`
}

// ParseFunctionCallRequest decodes either wire shape of a FunctionCallRequest.
// A request naming more than one function fails with ErrMultipleFunctions.
// When the function is identified but its arguments cannot be decoded, the
// returned call still carries its ID, Name and Shape so it can be answered.
func ParseFunctionCallRequest(raw []byte) (FunctionCall, error) {
	var req wireFunctionCallRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return FunctionCall{}, NewEventError(TypeFunctionCallRequest, raw, err)
	}

	var (
		call FunctionCall
		args json.RawMessage
	)
	switch {
	case len(req.Functions) > 1:
		return FunctionCall{}, NewEventError(TypeFunctionCallRequest, raw,
			fmt.Errorf("%w: got %d", ErrMultipleFunctions, len(req.Functions)))
	case len(req.Functions) == 1:
		fn := req.Functions[0]
		call = FunctionCall{ID: fn.ID, Name: fn.Name, Shape: ShapeV1}
		if fn.Name == "" {
			return call, NewEventError(TypeFunctionCallRequest, raw, errors.New("function name is empty"))
		}
		args = fn.Arguments
	case req.FunctionName != "":
		call = FunctionCall{ID: req.FunctionCallID, Name: req.FunctionName, Shape: ShapeLegacy}
		args = req.Input
	default:
		return FunctionCall{}, NewEventError(TypeFunctionCallRequest, raw, errors.New("no function named in request"))
	}

	decoded, err := decodeArguments(args)
	if err != nil {
		return call, NewEventError(TypeFunctionCallRequest, raw, err)
	}
	call.Arguments = decoded
	return call, nil
}

// decodeArguments accepts an object, a JSON string holding an object, or nothing.
func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("arguments: %w", err)
		}
		if len(bytes.TrimSpace([]byte(s))) == 0 {
			return map[string]any{}, nil
		}
		raw = []byte(s)
	}
	args := map[string]any{}
	if err := unmarshalLenient(raw, &args); err != nil {
		return nil, fmt.Errorf("arguments: %w", err)
	}
	return args, nil
}

// unmarshalLenient retries a syntactically broken document after repair.
// Models occasionally emit truncated or single-quoted argument strings.
func unmarshalLenient(data []byte, v any) error {
	err := json.Unmarshal(data, v)
	if err == nil {
		return nil
	}
	var syntaxErr *json.SyntaxError
	if !errors.As(err, &syntaxErr) {
		return err
	}
	fixed, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return err
	}
	return json.Unmarshal([]byte(fixed), v)
}

// LegacyFunctionCallResponse answers a legacy-shape request.
type LegacyFunctionCallResponse struct {
	Type           string `json:"type"`
	FunctionCallID string `json:"function_call_id"`
	Output         string `json:"output"`
}

// V1FunctionCallResponse answers a v1-shape request.
type V1FunctionCallResponse struct {
	Type    string `json:"type"`
	ID      string `json:"id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// NewFunctionCallResponse serialises result and wraps it in the response
// shape matching the request.
func NewFunctionCallResponse(call FunctionCall, result any) (any, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal %s result: %w", call.Name, err)
	}
	if call.Shape == ShapeLegacy {
		return LegacyFunctionCallResponse{
			Type:           TypeFunctionCallResponse,
			FunctionCallID: call.ID,
			Output:         string(b),
		}, nil
	}
	return V1FunctionCallResponse{
		Type:    TypeFunctionCallResponse,
		ID:      call.ID,
		Name:    call.Name,
		Content: string(b),
	}, nil
}

// InjectAgentMessage makes the agent speak the given text.
type InjectAgentMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// NewInjectAgentMessage builds an InjectAgentMessage.
func NewInjectAgentMessage(text string) InjectAgentMessage {
	return InjectAgentMessage{Type: TypeInjectAgentMessage, Message: text}
}

// CloseMessage asks the service to end the conversation.
type CloseMessage struct {
	Type string `json:"type"`
}

// NewCloseMessage builds the close request.
func NewCloseMessage() CloseMessage { return CloseMessage{Type: TypeClose} }
