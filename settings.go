package voiceagent

import (
	"errors"
	"fmt"

	"github.com/enesunal-m/voiceagent/functions"
)

// AudioFormat describes one direction of the PCM stream.
type AudioFormat struct {
	Encoding   string `json:"encoding"`
	SampleRate int    `json:"sample_rate"`
	Container  string `json:"container,omitempty"`
}

// AudioSettings pairs capture and playback formats.
type AudioSettings struct {
	Input  AudioFormat `json:"input"`
	Output AudioFormat `json:"output"`
}

// Provider names a model backend.
type Provider struct {
	Type        string   `json:"type"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ListenSettings configures speech recognition.
type ListenSettings struct {
	Provider Provider `json:"provider"`
}

// ThinkSettings configures the language model.
type ThinkSettings struct {
	Provider  Provider               `json:"provider"`
	Prompt    string                 `json:"prompt,omitempty"`
	Functions []functions.Definition `json:"functions,omitempty"`
}

// SpeakSettings configures speech synthesis.
type SpeakSettings struct {
	Provider Provider `json:"provider"`
}

// AgentSettings is the agent block of a v1 Settings message.
type AgentSettings struct {
	Language string         `json:"language,omitempty"`
	Listen   ListenSettings `json:"listen"`
	Think    ThinkSettings  `json:"think"`
	Speak    SpeakSettings  `json:"speak"`
	Greeting string         `json:"greeting,omitempty"`
}

// Settings is the v1 settings message.
type Settings struct {
	Type  string        `json:"type"`
	Audio AudioSettings `json:"audio"`
	Agent AgentSettings `json:"agent"`
}

// LegacyModel names a model in the legacy settings shape.
type LegacyModel struct {
	Model string `json:"model"`
}

// LegacyThink is the think block of a legacy settings message.
type LegacyThink struct {
	Provider     Provider               `json:"provider"`
	Model        string                 `json:"model"`
	Instructions string                 `json:"instructions,omitempty"`
	Functions    []functions.Definition `json:"functions,omitempty"`
}

// LegacyAgent is the agent block of a legacy settings message.
type LegacyAgent struct {
	Listen LegacyModel `json:"listen"`
	Think  LegacyThink `json:"think"`
	Speak  LegacyModel `json:"speak"`
}

// ContextMessage is a prior conversation turn replayed to the agent.
type ContextMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LegacyContext seeds the conversation in the legacy shape.
type LegacyContext struct {
	Messages []ContextMessage `json:"messages"`
	Replay   bool             `json:"replay"`
}

// LegacySettings is the SettingsConfiguration message.
type LegacySettings struct {
	Type    string         `json:"type"`
	Audio   AudioSettings  `json:"audio"`
	Agent   LegacyAgent    `json:"agent"`
	Context *LegacyContext `json:"context,omitempty"`
}

func audioSettings(a AudioConfig) AudioSettings {
	return AudioSettings{
		Input:  AudioFormat{Encoding: "linear16", SampleRate: a.InputSampleRate},
		Output: AudioFormat{Encoding: "linear16", SampleRate: a.OutputSampleRate, Container: "none"},
	}
}

// BuildSettings returns the settings message for cfg.Protocol.
func BuildSettings(cfg Config, defs []functions.Definition) any {
	if cfg.Protocol == ProtocolLegacy {
		return BuildLegacySettings(cfg, defs)
	}
	return BuildV1Settings(cfg, defs)
}

// BuildV1Settings returns a "Settings" message.
func BuildV1Settings(cfg Config, defs []functions.Definition) Settings {
	a := cfg.Agent
	think := Provider{Type: a.ThinkProvider, Model: a.ThinkModel}
	if a.Temperature != 0 {
		t := a.Temperature
		think.Temperature = &t
	}
	return Settings{
		Type:  TypeSettings,
		Audio: audioSettings(cfg.Audio),
		Agent: AgentSettings{
			Language: a.Language,
			Listen:   ListenSettings{Provider: Provider{Type: "deepgram", Model: a.ListenModel}},
			Think:    ThinkSettings{Provider: think, Prompt: a.Prompt, Functions: defs},
			Speak:    SpeakSettings{Provider: Provider{Type: "deepgram", Model: a.Voice}},
			Greeting: a.Greeting,
		},
	}
}

// BuildLegacySettings returns a "SettingsConfiguration" message. The greeting
// is replayed as the first assistant turn.
func BuildLegacySettings(cfg Config, defs []functions.Definition) LegacySettings {
	a := cfg.Agent
	s := LegacySettings{
		Type:  TypeSettingsConfiguration,
		Audio: audioSettings(cfg.Audio),
		Agent: LegacyAgent{
			Listen: LegacyModel{Model: a.ListenModel},
			Think: LegacyThink{
				Provider:     Provider{Type: a.ThinkProvider},
				Model:        a.ThinkModel,
				Instructions: a.Prompt,
				Functions:    defs,
			},
			Speak: LegacyModel{Model: a.Voice},
		},
	}
	if a.Greeting != "" {
		s.Context = &LegacyContext{
			Messages: []ContextMessage{{Role: RoleAssistant, Content: a.Greeting}},
			Replay:   true,
		}
	}
	return s
}

// checkSettings validates the settings message cfg would produce. Only the
// v1 shape is checked; the legacy service validates on its side.
func checkSettings(cfg Config, defs []functions.Definition) error {
	if cfg.Protocol == ProtocolLegacy {
		return nil
	}
	if err := ValidateSettings(BuildV1Settings(cfg, defs)); err != nil {
		return NewConfigError("Agent", "", err.Error())
	}
	return nil
}

// ValidateSettings performs validation on a v1 settings message.
func ValidateSettings(s Settings) error {
	if s.Type != TypeSettings {
		return fmt.Errorf("settings type must be %q, got %q", TypeSettings, s.Type)
	}
	if err := validateAudio(s.Audio); err != nil {
		return err
	}
	if s.Agent.Speak.Provider.Model == "" {
		return errors.New("speak model cannot be empty")
	}
	if s.Agent.Listen.Provider.Type == "" {
		return errors.New("listen provider cannot be empty")
	}
	if s.Agent.Think.Provider.Type == "" {
		return errors.New("think provider cannot be empty")
	}
	if t := s.Agent.Think.Provider.Temperature; t != nil && (*t < 0 || *t > 2) {
		return fmt.Errorf("think temperature must be between 0 and 2, got %f", *t)
	}
	return validateFunctions(s.Agent.Think.Functions)
}

func validateAudio(a AudioSettings) error {
	for _, f := range []AudioFormat{a.Input, a.Output} {
		if f.Encoding != "linear16" {
			return fmt.Errorf("unsupported encoding %q, only linear16", f.Encoding)
		}
		if f.SampleRate <= 0 {
			return fmt.Errorf("sample rate must be positive, got %d", f.SampleRate)
		}
	}
	return nil
}

func validateFunctions(defs []functions.Definition) error {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d.Name == "" {
			return errors.New("function name cannot be empty")
		}
		if seen[d.Name] {
			return fmt.Errorf("duplicate function %q", d.Name)
		}
		seen[d.Name] = true
	}
	return nil
}
