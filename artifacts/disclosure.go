package artifacts

import (
	"sync"

	"go.vocdoni.io/guardians/types"
)

// DisclosureKey identifies one artifact field of one guardian.
type DisclosureKey struct {
	Guardian types.GuardianID
	Field    types.ArtifactField
}

// Disclosure holds the expanded/collapsed flag of every artifact field shown
// to the user. Entries are created on first toggle; an absent entry means
// collapsed. The state lives only in memory. Safe for concurrent use.
type Disclosure struct {
	mu       sync.RWMutex
	expanded map[DisclosureKey]bool
}

// NewDisclosure returns an empty disclosure store.
func NewDisclosure() *Disclosure {
	return &Disclosure{expanded: make(map[DisclosureKey]bool)}
}

// Toggle flips the flag of the given field and returns the new value.
func (d *Disclosure) Toggle(guardian types.GuardianID, field types.ArtifactField) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := DisclosureKey{Guardian: guardian, Field: field}
	d.expanded[k] = !d.expanded[k]
	return d.expanded[k]
}

// IsExpanded reports whether the given field is expanded.
func (d *Disclosure) IsExpanded(guardian types.GuardianID, field types.ArtifactField) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.expanded[DisclosureKey{Guardian: guardian, Field: field}]
}

// Reset collapses every field.
func (d *Disclosure) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.expanded = make(map[DisclosureKey]bool)
}

// Len returns the number of fields toggled at least once.
func (d *Disclosure) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.expanded)
}
