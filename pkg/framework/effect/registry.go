package effect

import (
	"fmt"
	"sync"
)

// Info contains effect metadata.
type Info struct {
	ID       string // Unique effect identifier (e.g., "com.example.myeffect")
	Name     string // Display name
	Version  string // Semantic version (e.g., "1.0.0")
	Vendor   string // Company/developer name
	Category string // Effect category (e.g., "Fx|Delay")
}

// Registry resolves effect identifiers to their settings managers. An
// owning orchestrator passes a registry handle into each hosting engine
// explicitly; there is no process-wide registry.
type Registry struct {
	mu      sync.RWMutex
	effects map[string]registration
	order   []string // Maintain registration order for enumeration
}

type registration struct {
	info    Info
	manager SettingsManager
}

// NewRegistry creates an empty effect registry.
func NewRegistry() *Registry {
	return &Registry{
		effects: make(map[string]registration),
	}
}

// Register adds an effect under its Info.ID.
func (r *Registry) Register(info Info, manager SettingsManager) error {
	if info.ID == "" {
		return fmt.Errorf("effect registration requires a non-empty ID")
	}
	if manager == nil {
		return fmt.Errorf("effect %q registration requires a settings manager", info.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.effects[info.ID]; exists {
		return fmt.Errorf("effect %q is already registered", info.ID)
	}
	r.effects[info.ID] = registration{info: info, manager: manager}
	r.order = append(r.order, info.ID)
	return nil
}

// Resolve returns the settings manager for id, or nil if no effect with
// that identifier is registered.
func (r *Registry) Resolve(id string) SettingsManager {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.effects[id].manager
}

// InfoFor returns the metadata registered for id.
func (r *Registry) InfoFor(id string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.effects[id]
	return reg.info, ok
}

// IDs returns the registered effect identifiers in registration order.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}
