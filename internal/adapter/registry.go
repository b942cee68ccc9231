package adapter

import (
	"fmt"
	"strings"
)

// Attempt records one adapter's rejection during detection.
type Attempt struct {
	AdapterID string `json:"adapter_id"`
	Reason    string `json:"reason"`
}

// NoMatchError reports that no registered adapter accepted a file, with
// per-adapter reasons for user-facing diagnostics.
type NoMatchError struct {
	Attempts []Attempt
}

func (e *NoMatchError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.AdapterID, a.Reason))
	}
	return "no compatible adapter: " + strings.Join(parts, "; ")
}

// Registry dispatches uploaded files to the matching adapter. Detection
// tries adapters in registration order; each format has structurally
// distinct markers, so the first success wins.
type Registry struct {
	adapters []Adapter
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register appends an adapter. Duplicate IDs are rejected.
func (r *Registry) Register(a Adapter) error {
	id := a.Metadata().ID
	for _, existing := range r.adapters {
		if existing.Metadata().ID == id {
			return fmt.Errorf("adapter %q already registered", id)
		}
	}
	r.adapters = append(r.adapters, a)
	return nil
}

// Detect returns the first adapter accepting the file, or a *NoMatchError.
func (r *Registry) Detect(f File) (Adapter, error) {
	attempts := make([]Attempt, 0, len(r.adapters))
	for _, a := range r.adapters {
		ok, reason := a.ValidateCompatibility(f)
		if ok {
			return a, nil
		}
		attempts = append(attempts, Attempt{AdapterID: a.Metadata().ID, Reason: reason})
	}
	return nil, &NoMatchError{Attempts: attempts}
}

// Get returns the adapter with the given ID, or nil.
func (r *Registry) Get(id string) Adapter {
	for _, a := range r.adapters {
		if a.Metadata().ID == id {
			return a
		}
	}
	return nil
}

// ListAvailable returns metadata for every registered adapter.
func (r *Registry) ListAvailable() []Metadata {
	list := make([]Metadata, 0, len(r.adapters))
	for _, a := range r.adapters {
		list = append(list, a.Metadata())
	}
	return list
}
