package domain

// Tool is a registered handler that answers one category of deck question.
// The registry is fixed at process start and never mutated afterwards.
type Tool interface {
	Name() string
	Description() string
}

// CapabilityChecker is the optional capability of a Tool: a cheap predicate
// deciding whether the tool can even attempt a raw query. Only some routing
// callers consult it.
type CapabilityChecker interface {
	CanHandle(rawQuery string) bool
}

// Labeler is the optional capability of a Tool: a short human-readable label
// shown in disambiguation prompts instead of the tool name.
type Labeler interface {
	Label() string
}
