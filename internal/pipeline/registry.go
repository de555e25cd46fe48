package pipeline

// Registry maps each phase to the unit that implements it. A registry is
// populated during the registration window before Run is called and must not
// be mutated afterwards; it is not safe for concurrent registration.
type Registry struct {
	units map[Phase]Unit
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{units: make(map[Phase]Unit, len(phaseOrder))}
}

// Register stores the unit under its declared phase. Registering a second
// unit for the same phase silently overwrites the first: last registration
// wins. This is an overwrite, not a merge.
func (r *Registry) Register(u Unit) {
	r.units[u.Phase()] = u
}

// Discover bulk-registers every candidate unit under its declared phase.
// Candidates are registered in slice order, so two candidates tagged for the
// same phase resolve last-wins; callers are expected to avoid that conflict.
func (r *Registry) Discover(candidates []Unit) {
	for _, u := range candidates {
		r.Register(u)
	}
}

// Registered reports whether a unit is present for the phase.
func (r *Registry) Registered(p Phase) bool {
	_, ok := r.units[p]
	return ok
}

// unit returns the registered unit for the phase.
func (r *Registry) unit(p Phase) (Unit, bool) {
	u, ok := r.units[p]
	return u, ok
}
