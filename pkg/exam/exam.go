// Package exam builds the examiner persona handed to the realtime speech
// service at connect time. The engine never interprets exam content itself;
// the persona instruction is the only place exam structure lives.
package exam

import (
	"fmt"
	"strings"
)

// Voices the realtime service accepts for spoken responses.
var Voices = []string{"Puck", "Charon", "Kore", "Fenrir", "Aoede"}

const DefaultVoice = "Aoede"

// Persona describes the examiner the candidate will speak with.
type Persona struct {
	Language string   `mapstructure:"language"`
	Level    string   `mapstructure:"level"`
	Examiner string   `mapstructure:"examiner"`
	Sections []string `mapstructure:"sections"`
	// Extra is appended verbatim to the instruction for custom behaviors.
	Extra string `mapstructure:"extra"`
}

// DefaultPersona is a general conversational speaking exam.
func DefaultPersona() Persona {
	return Persona{
		Language: "English",
		Level:    "B2",
		Examiner: "a calm, encouraging oral examiner",
		Sections: []string{
			"a short warm-up interview about the candidate's background",
			"a picture or topic description task with follow-up questions",
			"a two-way discussion on an abstract topic",
		},
	}
}

// Instruction renders the system instruction sent at session setup.
func (p Persona) Instruction() string {
	if p.Language == "" {
		p.Language = "English"
	}
	if p.Examiner == "" {
		p.Examiner = "a calm, encouraging oral examiner"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You are %s conducting a spoken %s exam practice session.", p.Examiner, p.Language)
	if p.Level != "" {
		fmt.Fprintf(&b, " Target level: %s.", p.Level)
	}
	b.WriteString(" Speak only, keep your turns short, and always wait for the candidate to finish before replying.")
	if len(p.Sections) > 0 {
		b.WriteString(" The exam has the following parts, in order:")
		for i, s := range p.Sections {
			fmt.Fprintf(&b, " %d) %s.", i+1, s)
		}
		b.WriteString(" Move to the next part when the current one is done, announcing the transition briefly.")
	}
	b.WriteString(" If the candidate asks to repeat a question, repeat it once without rephrasing. Do not grade or give scores; give brief, constructive feedback only at the very end.")
	if p.Extra != "" {
		b.WriteString(" ")
		b.WriteString(p.Extra)
	}
	return b.String()
}

// ResolveVoice maps a configured voice to one the service accepts,
// falling back to the default.
func ResolveVoice(name string) string {
	for _, v := range Voices {
		if strings.EqualFold(v, name) {
			return v
		}
	}
	return DefaultVoice
}
