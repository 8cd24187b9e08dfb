package spa

// DefaultAdapterID is the fallback model bound to a device until a
// telemetry payload proves otherwise.
const DefaultAdapterID = "Airjet"

// Registry is an ordered list of adapters. Registration order matters:
// it is the tie-break for signature selection, so selection must never
// depend on iteration over an unordered structure. A Registry is built
// once at startup and read-only afterwards.
type Registry struct {
	adapters []*Adapter
}

// NewRegistry creates a registry with the adapters in the given order.
func NewRegistry(adapters ...*Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// DefaultRegistry returns the registry of all known spa models. Adding
// a model means appending its adapter here; selection and the
// reconciliation loop are independent of how many models exist.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewAirjetAdapter(),
		NewHydrojetAdapter(),
	)
}

// ByID returns the adapter with the given id, or nil.
func (r *Registry) ByID(id string) *Adapter {
	for _, a := range r.adapters {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// Default returns the fallback adapter.
func (r *Registry) Default() *Adapter {
	return r.ByID(DefaultAdapterID)
}

// SelectByName returns the first adapter claiming the exact (trimmed)
// product name, or nil when no adapter claims it.
func (r *Registry) SelectByName(productName string) *Adapter {
	for _, a := range r.adapters {
		if a.MatchesName(productName) {
			return a
		}
	}
	return nil
}

// SelectBySignature evaluates every adapter's structural predicate
// against the raw payload and returns the highest-priority match.
// Equal priorities resolve to the earliest-registered adapter, so the
// result is stable for a given payload. Returns nil when nothing
// matches.
func (r *Registry) SelectBySignature(raw RawTelemetry) *Adapter {
	var best *Adapter
	for _, a := range r.adapters {
		if a.Matches == nil || !a.Matches(raw) {
			continue
		}
		// Strictly greater only: the first registrant wins ties.
		if best == nil || a.Priority > best.Priority {
			best = a
		}
	}
	return best
}

// IDs returns the adapter ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		ids = append(ids, a.ID)
	}
	return ids
}
