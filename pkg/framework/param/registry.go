package param

// Registry holds an effect's parameters. Parameters are added while the
// effect is being built, before any other goroutine sees the registry;
// after that the set is fixed and only the atomic parameter values change.
// That makes every read path here lock-free.
type Registry struct {
	params map[uint32]*Parameter
	order  []uint32 // Maintain order for indexed access
}

// NewRegistry creates an empty parameter registry.
func NewRegistry() *Registry {
	return &Registry{
		params: make(map[uint32]*Parameter),
	}
}

// Add registers parameters, skipping IDs already present.
func (r *Registry) Add(params ...*Parameter) *Registry {
	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			continue
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
	return r
}

// Get retrieves a parameter by ID, or nil.
func (r *Registry) Get(id uint32) *Parameter {
	return r.params[id]
}

// Value returns the normalized value of a parameter, or 0 if absent.
func (r *Registry) Value(id uint32) float64 {
	if p := r.params[id]; p != nil {
		return p.GetValue()
	}
	return 0
}

// PlainValue returns the plain value of a parameter, or 0 if absent.
func (r *Registry) PlainValue(id uint32) float64 {
	if p := r.params[id]; p != nil {
		return p.GetPlainValue()
	}
	return 0
}

// Count returns the number of parameters.
func (r *Registry) Count() int {
	return len(r.order)
}

// ForEach visits every parameter in registration order. It does not
// allocate, so it is usable from the worker thread.
func (r *Registry) ForEach(fn func(*Parameter)) {
	for _, id := range r.order {
		fn(r.params[id])
	}
}

// CopyValuesFrom stores src's parameter values into the receiver's
// parameters, matched by ID. Only atomic value stores happen; no storage
// relocates and nothing allocates.
func (r *Registry) CopyValuesFrom(src *Registry) {
	for _, id := range r.order {
		if sp := src.params[id]; sp != nil {
			r.params[id].SetValue(sp.GetValue())
		}
	}
}
