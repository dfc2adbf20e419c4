// Package routing holds the routing decision value objects consumed by the
// orchestration layer.
package routing

import "encoding/json"

// Kind is the routing outcome variant.
type Kind string

// Routing outcome constants.
const (
	// KindExecute auto-runs the best tool.
	KindExecute Kind = "execute"
	// KindDisambiguate asks the user to pick among candidate tools.
	KindDisambiguate Kind = "disambiguate"
	// KindNone means no tool cleared the rank threshold.
	KindNone Kind = "none"
)

// Option is one disambiguation candidate shown to the user. SyntheticQuery
// embeds both the tool name and the original raw query so a follow-up call
// can bypass re-routing entirely.
type Option struct {
	Label          string `json:"label"`
	ToolName       string `json:"tool_name"`
	SyntheticQuery string `json:"synthetic_query"`
}

// Decision is the single routing outcome produced per query. Exactly one
// variant is ever set: execute carries tool+score, disambiguate carries
// options, none carries nothing.
type Decision struct {
	kind    Kind
	tool    string
	score   float64
	options []Option
}

// Execute creates an auto-run decision for the best-scoring tool.
func Execute(tool string, score float64) Decision {
	return Decision{kind: KindExecute, tool: tool, score: score}
}

// Disambiguate creates a decision asking the user to choose among options.
func Disambiguate(options []Option) Decision {
	return Decision{kind: KindDisambiguate, options: options}
}

// NoMatch creates the "no tool matched" decision. A normal value, not an error.
func NoMatch() Decision {
	return Decision{kind: KindNone}
}

// Kind returns the outcome variant.
func (d Decision) Kind() Kind { return d.kind }

// Tool returns the selected tool name (execute only).
func (d Decision) Tool() string { return d.tool }

// Score returns the similarity of the selected tool (execute only).
func (d Decision) Score() float64 { return d.score }

// Options returns the disambiguation candidates (disambiguate only).
func (d Decision) Options() []Option { return d.options }

// MarshalJSON serializes the decision in the shape consumed by the
// orchestration layer: {kind, tool?, score?, options?}.
func (d Decision) MarshalJSON() ([]byte, error) {
	out := struct {
		Kind    Kind     `json:"kind"`
		Tool    string   `json:"tool,omitempty"`
		Score   *float64 `json:"score,omitempty"`
		Options []Option `json:"options,omitempty"`
	}{Kind: d.kind}

	switch d.kind {
	case KindExecute:
		out.Tool = d.tool
		score := d.score
		out.Score = &score
	case KindDisambiguate:
		out.Options = d.options
	case KindNone:
	}

	return json.Marshal(out)
}
