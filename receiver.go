package voiceagent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/enesunal-m/voiceagent/functions"
)

type inbound struct {
	binary bool
	data   []byte
	err    error
}

// pump is the connection's only reader. It stops after the first read error
// or when ctx ends.
func (s *Session) pump(ctx context.Context) {
	for {
		binary, data, err := s.conn.Read(ctx)
		select {
		case s.inbound <- inbound{binary: binary, data: data, err: err}:
		case <-ctx.Done():
			return
		}
		if err != nil {
			return
		}
	}
}

type farewellPhase int

const (
	farewellAwaitStart farewellPhase = iota
	farewellAwaitDone
	farewellSettling
)

func (p farewellPhase) String() string {
	switch p {
	case farewellAwaitStart:
		return "await_start"
	case farewellAwaitDone:
		return "await_done"
	default:
		return "settling"
	}
}

// farewell tracks the goodbye the agent was told to speak. The conversation
// is closed once the agent has finished it and the settle delay has passed,
// or when the deadline fires first.
type farewell struct {
	message  string
	phase    farewellPhase
	settle   *time.Timer
	deadline *time.Timer
}

func (f *farewell) settleC() <-chan time.Time {
	if f == nil || f.settle == nil {
		return nil
	}
	return f.settle.C
}

func (f *farewell) deadlineC() <-chan time.Time {
	if f == nil {
		return nil
	}
	return f.deadline.C
}

func (f *farewell) stop() {
	if f == nil {
		return
	}
	f.deadline.Stop()
	if f.settle != nil {
		f.settle.Stop()
	}
}

// receive handles everything the agent sends, in arrival order. Function
// calls run inline, so their responses go out before later messages are read.
func (s *Session) receive(ctx context.Context) error {
	var fw *farewell
	defer func() { fw.stop() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-s.inbound:
			if msg.err != nil {
				return s.readFailed(msg.err)
			}
			if msg.binary {
				s.playback.Play(msg.data)
				continue
			}
			end, err := s.handleText(ctx, msg.data, &fw)
			if err != nil || end {
				return err
			}

		case <-fw.settleC():
			return s.closeConversation(ctx, "farewell")

		case <-fw.deadlineC():
			s.log.Warn("farewell_timeout", map[string]any{"phase": fw.phase.String()})
			return s.closeConversation(ctx, "farewell_timeout")
		}
	}
}

func (s *Session) readFailed(err error) error {
	select {
	case <-s.conn.Closed():
		return nil
	default:
	}
	if isClosedErr(err) {
		s.log.Info("agent_disconnected", map[string]any{"err": err})
		return nil
	}
	return NewConnectionError(s.conn.URL(), "read", err)
}

// handleText dispatches one JSON message. end reports that the agent ended
// the conversation.
func (s *Session) handleText(ctx context.Context, raw []byte, fw **farewell) (end bool, err error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.log.Warn("bad_event_json", map[string]any{"err": err, "raw_data": string(raw)})
		return false, nil
	}

	switch env.Type {
	case TypeWelcome:
		var w Welcome
		_ = json.Unmarshal(raw, &w)
		s.log.Info("agent_welcome", map[string]any{"request_id": w.RequestID, "agent_session": w.SessionID})

	case TypeSettingsApplied:
		s.log.Debug("settings_applied", nil)

	case TypeUserStartedSpeaking:
		dropped := s.playback.Interrupt()
		s.log.Debug("barge_in", map[string]any{"dropped_frames": dropped})

	case TypeConversationText:
		var ct ConversationText
		if err := json.Unmarshal(raw, &ct); err != nil {
			s.log.Warn("bad_event_data", map[string]any{"err": NewEventError(env.Type, raw, err)})
			return false, nil
		}
		s.onConversationText(ct, *fw)

	case TypeFunctionCalling:
		if kind, d, ok := s.latency.decided(); ok {
			s.log.Tagged(CategoryLatency, "function_decision_latency", map[string]any{
				"kind": string(kind),
				"ms":   d.Milliseconds(),
			})
		}

	case TypeFunctionCallRequest:
		return false, s.onFunctionCallRequest(ctx, raw, fw)

	case TypeAgentThinking:
		s.log.Debug("agent_thinking", nil)

	case TypeAgentStartedSpeaking:
		if f := *fw; f != nil && f.phase == farewellAwaitStart {
			f.phase = farewellAwaitDone
			s.log.Debug("farewell_speaking", nil)
		}

	case TypeAgentAudioDone:
		if f := *fw; f != nil && f.phase == farewellAwaitDone {
			f.phase = farewellSettling
			f.settle = time.NewTimer(s.cfg.FarewellSettle)
			s.log.Debug("farewell_audio_done", map[string]any{"settle": s.cfg.FarewellSettle.String()})
		}

	case TypeCloseConnection:
		s.log.Info("conversation_ended", map[string]any{"reason": "agent"})
		return true, nil

	case TypeError:
		var e AgentError
		_ = json.Unmarshal(raw, &e)
		s.log.Error("agent_error", map[string]any{"code": e.Code, "description": e.Text()})
		s.events.Emit(EventAgentError, e)

	case TypeWarning:
		var w AgentWarning
		_ = json.Unmarshal(raw, &w)
		s.log.Warn("agent_warning", map[string]any{"code": w.Code, "description": w.Description})
		s.events.Emit(EventAgentWarning, w)

	default:
		s.log.Debug("unhandled_event", map[string]any{"type": env.Type})
	}
	return false, nil
}

func (s *Session) onConversationText(ct ConversationText, fw *farewell) {
	switch ct.Role {
	case RoleUser:
		s.latency.userSpoke()
		s.log.Tagged(CategoryUser, "user_said", map[string]any{"text": ct.Content})
	case RoleAssistant:
		s.latency.agentSpoke()
		s.log.Tagged(CategoryAgent, "agent_said", map[string]any{"text": ct.Content})
		if fw != nil && fw.phase == farewellAwaitStart && strings.TrimSpace(ct.Content) == fw.message {
			fw.phase = farewellAwaitDone
		}
	}
	s.events.Emit(EventConversationUpdate, ConversationUpdate{
		Role:      ct.Role,
		Content:   ct.Content,
		Timestamp: time.Now(),
	})
}

func (s *Session) onFunctionCallRequest(ctx context.Context, raw []byte, fw **farewell) error {
	call, err := ParseFunctionCallRequest(raw)
	if err != nil {
		if call.ID == "" {
			s.log.Warn("function_call_skipped", map[string]any{"err": err})
			return nil
		}
		s.log.Warn("function_call_rejected", map[string]any{"id": call.ID, "name": call.Name, "err": err})
		return s.respond(ctx, call, functions.ErrorResult(err.Error()))
	}
	s.log.Tagged(CategoryFunction, "function_call", map[string]any{
		"name": call.Name,
		"id":   call.ID,
		"args": call.Arguments,
	})

	fctx, cancel := context.WithTimeout(ctx, s.cfg.FunctionTimeout)
	result := s.registry.Call(fctx, call.Name, call.Arguments)
	cancel()

	switch r := result.(type) {
	case *functions.Filler:
		if err := s.respond(ctx, call, r.Response()); err != nil {
			return err
		}
		return s.inject(ctx, r.Message)

	case *functions.Farewell:
		if err := s.respond(ctx, call, r.Response()); err != nil {
			return err
		}
		if *fw != nil {
			s.log.Debug("farewell_already_pending", nil)
			return nil
		}
		if err := s.inject(ctx, r.Message); err != nil {
			return err
		}
		*fw = &farewell{
			message:  r.Message,
			deadline: time.NewTimer(s.cfg.FarewellTimeout),
		}
		s.log.Info("farewell_started", map[string]any{"type": r.FarewellType})
		return nil

	default:
		return s.respond(ctx, call, result)
	}
}

// respond answers call in the shape it arrived in.
func (s *Session) respond(ctx context.Context, call FunctionCall, result any) error {
	resp, err := NewFunctionCallResponse(call, result)
	if err != nil {
		result = functions.ErrorResult(err.Error())
		resp, _ = NewFunctionCallResponse(call, result)
	}
	if err := s.conn.SendJSON(ctx, resp); err != nil {
		return err
	}
	s.latency.responded()

	fields := map[string]any{"name": call.Name, "id": call.ID}
	if functions.IsError(result) {
		fields["error"] = result.(map[string]any)["error"]
	} else {
		fields["result"] = result
	}
	s.log.Tagged(CategoryFunction, "function_result", fields)
	return nil
}

func (s *Session) inject(ctx context.Context, text string) error {
	if err := s.conn.SendJSON(ctx, NewInjectAgentMessage(text)); err != nil {
		return err
	}
	s.log.Debug("agent_message_injected", map[string]any{"message": text})
	return nil
}

// closeConversation asks the agent to end the conversation and closes the
// connection. A failed close request is logged; the connection is closed anyway.
func (s *Session) closeConversation(ctx context.Context, reason string) error {
	if err := s.conn.SendJSON(ctx, NewCloseMessage()); err != nil {
		s.log.Warn("close_request_failed", map[string]any{"err": err})
	}
	if err := s.conn.Close(); err != nil {
		s.log.Warn("connection_close_failed", map[string]any{"err": err})
	}
	s.log.Info("conversation_ended", map[string]any{"reason": reason})
	return nil
}
