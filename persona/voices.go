package persona

// DefaultVoice is the speak model used when none is requested.
const DefaultVoice = "aura-2-thalia-en"

// Voice is a selectable speak model.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

var voiceIDs = []string{
	"aura-2-thalia-en",
	"aura-2-andromeda-en",
	"aura-2-helena-en",
	"aura-2-apollo-en",
	"aura-2-arcas-en",
	"aura-2-aries-en",
	"aura-2-asteria-en",
	"aura-2-athena-en",
	"aura-2-atlas-en",
	"aura-2-aurora-en",
	"aura-2-callista-en",
	"aura-2-cora-en",
	"aura-2-delia-en",
	"aura-2-draco-en",
	"aura-2-electra-en",
	"aura-2-harmonia-en",
	"aura-2-hera-en",
	"aura-2-hermes-en",
	"aura-2-iris-en",
	"aura-2-juno-en",
	"aura-2-luna-en",
	"aura-2-minerva-en",
	"aura-2-odysseus-en",
	"aura-2-orion-en",
	"aura-2-orpheus-en",
	"aura-2-pandora-en",
	"aura-2-phoebe-en",
	"aura-2-selene-en",
	"aura-2-theia-en",
	"aura-2-zeus-en",
}

// Voices lists the selectable voices, default first.
func Voices() []Voice {
	out := make([]Voice, len(voiceIDs))
	for i, id := range voiceIDs {
		out[i] = Voice{ID: id, Name: VoiceName(id)}
	}
	return out
}

// KnownVoice reports whether id is in the catalogue.
func KnownVoice(id string) bool {
	for _, v := range voiceIDs {
		if v == id {
			return true
		}
	}
	return false
}
