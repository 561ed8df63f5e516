// Package persona holds the industry personas and voices a session can be
// started with, and builds the prompt and greeting for each.
package persona

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultIndustry is used when none is requested.
const DefaultIndustry = "deepgram"

// Persona is one industry configuration. Templates take the voice name.
type Persona struct {
	Industry     string `json:"industry"`
	DisplayName  string `json:"displayName"`
	Company      string `json:"company"`
	personality  string
	capabilities string
	docsPrompt   bool
}

var personas = map[string]Persona{
	"deepgram": {
		Industry:     "deepgram",
		DisplayName:  "Deepgram",
		Company:      "Deepgram",
		personality:  "You are %s, a friendly and professional customer service representative for %s, a Voice API company who provides STT and TTS capabilities via API. Your role is to assist potential customers with general inquiries about Deepgram.",
		capabilities: "I can help you answer questions about Deepgram.",
		docsPrompt:   true,
	},
	"healthcare": {
		Industry:     "healthcare",
		DisplayName:  "Healthcare",
		Company:      "HealthFirst",
		personality:  "You are %s, a compassionate and knowledgeable healthcare assistant for %s, a leading healthcare provider. Your role is to assist patients with general information about their appointments and orders.",
		capabilities: "I can help you answer questions about healthcare.",
	},
	"banking": {
		Industry:     "banking",
		DisplayName:  "Banking",
		Company:      "SecureBank",
		personality:  "You are %s, a professional and trustworthy banking representative for %s, a secure financial institution. Your role is to assist customers with general information about their accounts and transactions.",
		capabilities: "I can help you answer questions about banking.",
	},
	"pharmaceuticals": {
		Industry:     "pharmaceuticals",
		DisplayName:  "Pharmaceuticals",
		Company:      "MedLine",
		personality:  "You are %s, a professional and trustworthy pharmaceutical representative for %s, a secure pharmaceutical company. Your role is to assist customers with general information about their prescriptions and orders.",
		capabilities: "I can help you answer questions about pharmaceuticals.",
	},
	"retail": {
		Industry:     "retail",
		DisplayName:  "Retail",
		Company:      "StyleMart",
		personality:  "You are %s, a friendly and attentive retail associate for %s, a trendy clothing and accessories store. Your role is to assist customers with general information about their orders and transactions.",
		capabilities: "I can help you answer questions about retail.",
	},
	"travel": {
		Industry:     "travel",
		DisplayName:  "Travel",
		Company:      "TravelTech",
		personality:  "You are %s, a friendly and professional customer service representative for %s, a tech-forward travel agency. Your role is to assist customers with general information about their travel plans and orders.",
		capabilities: "I can help you answer questions about travel.",
	},
}

// Lookup returns the persona for an industry.
func Lookup(industry string) (Persona, bool) {
	p, ok := personas[strings.ToLower(strings.TrimSpace(industry))]
	return p, ok
}

// All returns every persona sorted by industry key.
func All() []Persona {
	out := make([]Persona, 0, len(personas))
	for _, p := range personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Industry < out[j].Industry })
	return out
}

// Industries maps industry keys to display names.
func Industries() map[string]string {
	out := make(map[string]string, len(personas))
	for k, p := range personas {
		out[k] = p.DisplayName
	}
	return out
}

// VoiceName derives a speaker name from a voice model id,
// e.g. "aura-2-thalia-en" gives "Thalia".
func VoiceName(model string) string {
	name := strings.TrimPrefix(model, "aura-2-")
	name = strings.TrimPrefix(name, "aura-")
	name, _, _ = strings.Cut(name, "-")
	if name == "" {
		return ""
	}
	return strings.ToUpper(name[:1]) + strings.ToLower(name[1:])
}

// Personality is the persona's self-description for the given speaker.
func (p Persona) Personality(voiceName string) string {
	return fmt.Sprintf(p.personality, voiceName, p.Company)
}

// Capabilities is the one-line summary spoken in the greeting.
func (p Persona) Capabilities() string { return p.capabilities }

// Greeting is the agent's first utterance.
func (p Persona) Greeting(voiceName string) string {
	return fmt.Sprintf("Hello! I'm %s from %s customer service. %s How can I help you today?",
		voiceName, p.Company, p.capabilities)
}

// Prompt is the full system prompt: personality, then instructions. Dates
// in the instructions are relative to now.
func (p Persona) Prompt(voiceName, docTopics string, now time.Time) string {
	var body string
	if p.docsPrompt {
		body = productPrompt(docTopics)
	} else {
		body = customerServicePrompt(now)
	}
	return p.Personality(voiceName) + "\n\n" + body
}

// Profile is everything a session needs from a persona.
type Profile struct {
	Industry  string
	Company   string
	Voice     string
	VoiceName string
	Prompt    string
	Greeting  string
}

// Options tunes Build.
type Options struct {
	// VoiceName overrides the name derived from the voice model.
	VoiceName string
	// DocTopics lists product documentation topics for the deepgram persona.
	DocTopics []string
	// Now is the date the prompt refers to. Zero uses time.Now.
	Now time.Time
}

// Build resolves industry and voice into a Profile. Unknown industries fall
// back to DefaultIndustry and an empty voice to DefaultVoice.
func Build(industry, voice string, opts Options) Profile {
	p, ok := Lookup(industry)
	if !ok {
		p = personas[DefaultIndustry]
	}
	if voice == "" {
		voice = DefaultVoice
	}
	name := opts.VoiceName
	if name == "" {
		name = VoiceName(voice)
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	topics := ""
	if len(opts.DocTopics) > 0 {
		topics = "Available documentation topics: " + strings.Join(opts.DocTopics, ", ")
	}
	return Profile{
		Industry:  p.Industry,
		Company:   p.Company,
		Voice:     voice,
		VoiceName: name,
		Prompt:    p.Prompt(name, topics, now),
		Greeting:  p.Greeting(name),
	}
}
