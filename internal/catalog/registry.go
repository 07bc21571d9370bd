package catalog

import (
	"sync"

	"github.com/shehryarbajwa/deckard-mini/pkg/models"
)

// Registry holds the built-in locale list and the translations uploaded in
// the current session, per module. The visible locale list of a module is
// always the base entries followed by that module's uploads, oldest first.
type Registry struct {
	mu     sync.RWMutex
	base   []models.LocaleEntry
	custom map[string][]string
}

// NewRegistry creates a registry over a fixed base list
func NewRegistry(base []models.LocaleEntry) *Registry {
	return &Registry{
		base:   append([]models.LocaleEntry(nil), base...),
		custom: make(map[string][]string),
	}
}

// BaseLen is the length the locale list is reset to
func (r *Registry) BaseLen() int {
	return len(r.base)
}

// Replace swaps the whole custom index for the one the upstream returned
func (r *Registry) Replace(index map[string][]string) {
	custom := make(map[string][]string, len(index))
	for module, names := range index {
		if len(names) > 0 {
			custom[module] = append([]string(nil), names...)
		}
	}

	r.mu.Lock()
	r.custom = custom
	r.mu.Unlock()
}

// Clear drops every uploaded translation
func (r *Registry) Clear() {
	r.mu.Lock()
	r.custom = make(map[string][]string)
	r.mu.Unlock()
}

// Empty reports whether no module has an uploaded translation
func (r *Registry) Empty() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.custom) == 0
}

// Custom returns the uploaded translation names of module, oldest first
func (r *Registry) Custom(module string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.custom[module]...)
}

// Locales rebuilds the visible locale list of module
func (r *Registry) Locales(module string) []models.LocaleEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]models.LocaleEntry, 0, len(r.base)+len(r.custom[module]))
	entries = append(entries, r.base...)
	for _, name := range r.custom[module] {
		entries = append(entries, CustomEntry(name))
	}
	return entries
}
