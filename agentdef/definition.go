// Package agentdef resolves external agent configuration into normalized,
// immutable agent definitions. Definitions are cached by agent id for the
// process lifetime; the cache is refreshed only by explicit invalidation or
// re-registration, never by TTL.
package agentdef

import (
	"github.com/agentloom/loom"
)

// Defaults applied to absent configuration fields.
const (
	DefaultModel       = "gpt-4o"
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
)

// Payload is the wire shape of an agent configuration fetch. Every field
// may be absent; Normalize fills in the defaults.
type Payload struct {
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description,omitempty"`
	SystemPrompt   string            `json:"systemPrompt,omitempty"`
	Tools          []loom.Tool       `json:"tools,omitempty"`
	Model          string            `json:"model,omitempty"`
	Temperature    *float64          `json:"temperature,omitempty"`
	MaxTokens      int               `json:"maxTokens,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"`
	WelcomeMessage string            `json:"welcomeMessage,omitempty"`
}

// Definition is a normalized agent definition. It is immutable once
// constructed: the resolver hands out defensive copies, and callers must
// treat the contents as read-only.
type Definition struct {
	AgentID        string
	Name           string
	Description    string
	Instructions   string
	Tools          []loom.Tool
	Model          string
	Temperature    float64
	MaxTokens      int
	Variables      map[string]string
	WelcomeMessage string
}

// Normalize converts a raw configuration payload into a Definition,
// defaulting the model, temperature, max-token budget, and tool list when
// the payload leaves them out.
func Normalize(agentID string, p Payload) Definition {
	d := Definition{
		AgentID:        agentID,
		Name:           p.Name,
		Description:    p.Description,
		Instructions:   p.SystemPrompt,
		Model:          p.Model,
		Temperature:    DefaultTemperature,
		MaxTokens:      p.MaxTokens,
		WelcomeMessage: p.WelcomeMessage,
	}
	if d.Name == "" {
		d.Name = agentID
	}
	if d.Model == "" {
		d.Model = DefaultModel
	}
	if p.Temperature != nil {
		d.Temperature = *p.Temperature
	}
	if d.MaxTokens <= 0 {
		d.MaxTokens = DefaultMaxTokens
	}
	d.Tools = make([]loom.Tool, len(p.Tools))
	copy(d.Tools, p.Tools)
	d.Variables = make(map[string]string, len(p.Variables))
	for k, v := range p.Variables {
		d.Variables[k] = v
	}
	return d
}

// clone returns a copy whose slice and map fields do not alias the
// receiver's, so a cached definition cannot be mutated through a returned
// value.
func (d Definition) clone() Definition {
	out := d
	out.Tools = make([]loom.Tool, len(d.Tools))
	copy(out.Tools, d.Tools)
	out.Variables = make(map[string]string, len(d.Variables))
	for k, v := range d.Variables {
		out.Variables[k] = v
	}
	return out
}
