// Package tools holds the fixed tool registry: every handler that can answer
// one category of deck question, registered once at process start and
// immutable for the process lifetime.
package tools

import (
	"fmt"
	"strings"

	"github.com/hugomontan/newave-agent-sub004/internal/domain"
	"github.com/hugomontan/newave-agent-sub004/internal/domain/textnorm"
)

// Descriptor is the registry's tool implementation: a name, the description
// text its embedding is built from, a short disambiguation label, and an
// optional capability predicate.
type Descriptor struct {
	name        string
	description string
	label       string
	canHandle   func(rawQuery string) bool
}

// NewDescriptor creates a tool descriptor without a capability predicate.
func NewDescriptor(name, description, label string) Descriptor {
	return Descriptor{name: name, description: description, label: label}
}

// WithCapability attaches a predicate deciding whether the tool can attempt
// a raw query.
func (d Descriptor) WithCapability(canHandle func(rawQuery string) bool) Descriptor {
	d.canHandle = canHandle
	return d
}

// Name returns the unique tool name.
func (d Descriptor) Name() string { return d.name }

// Description returns the natural-language text embedded for routing.
func (d Descriptor) Description() string { return d.description }

// Label returns the short label shown in disambiguation prompts.
func (d Descriptor) Label() string { return d.label }

// CanHandle reports whether the tool can attempt the query. Descriptors
// without a predicate accept everything.
func (d Descriptor) CanHandle(rawQuery string) bool {
	if d.canHandle == nil {
		return true
	}
	return d.canHandle(rawQuery)
}

// Registry is the ordered, name-unique tool set.
type Registry struct {
	tools  []domain.Tool
	labels map[string]string
}

// NewRegistry builds a registry. Order is preserved: it is the tie-break
// order for equal similarity scores.
func NewRegistry(ts ...domain.Tool) (*Registry, error) {
	if len(ts) == 0 {
		return nil, domain.ErrNoTools
	}

	labels := make(map[string]string, len(ts))
	seen := make(map[string]struct{}, len(ts))
	for _, t := range ts {
		if _, dup := seen[t.Name()]; dup {
			return nil, fmt.Errorf("duplicate tool name %q", t.Name())
		}
		seen[t.Name()] = struct{}{}

		if l, ok := t.(domain.Labeler); ok && l.Label() != "" {
			labels[t.Name()] = l.Label()
		} else {
			labels[t.Name()] = t.Name()
		}
	}

	return &Registry{tools: ts, labels: labels}, nil
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []domain.Tool { return r.tools }

// Labels returns the tool-name to disambiguation-label table.
func (r *Registry) Labels() map[string]string { return r.labels }

// Len returns the number of registered tools.
func (r *Registry) Len() int { return len(r.tools) }

// keywordPredicate builds a capability predicate that accepts queries whose
// normalized form contains any of the given whole words.
func keywordPredicate(words ...string) func(string) bool {
	return func(rawQuery string) bool {
		norm := " " + textnorm.Normalize(rawQuery) + " "
		for _, w := range words {
			if strings.Contains(norm, " "+w+" ") {
				return true
			}
		}
		return false
	}
}
