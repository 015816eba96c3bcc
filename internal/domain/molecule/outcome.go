package molecule

// Outcome is the result of one descriptor computation: a value or a failure.
type Outcome struct {
	Name  string
	Value float64
	Err   error
}

// Failed reports whether the computation failed.
func (o Outcome) Failed() bool { return o.Err != nil }

// Vector holds one outcome per registry descriptor, in registry order.
// Failed entries read back as the sentinel.
type Vector struct {
	outcomes []Outcome
	index    map[string]int
	sentinel interface{}
}

// NewVector wraps outcomes.  A nil sentinel renders failures as null.
func NewVector(outcomes []Outcome, sentinel interface{}) Vector {
	idx := make(map[string]int, len(outcomes))
	for i, o := range outcomes {
		idx[o.Name] = i
	}
	return Vector{outcomes: outcomes, index: idx, sentinel: sentinel}
}

// Len returns the number of entries.
func (v Vector) Len() int { return len(v.outcomes) }

// Names returns the descriptor names in order.
func (v Vector) Names() []string {
	out := make([]string, len(v.outcomes))
	for i, o := range v.outcomes {
		out[i] = o.Name
	}
	return out
}

// Outcome returns the raw outcome for name.
func (v Vector) Outcome(name string) (Outcome, bool) {
	i, ok := v.index[name]
	if !ok {
		return Outcome{}, false
	}
	return v.outcomes[i], true
}

// Value returns the value for name, or the sentinel if it failed.
func (v Vector) Value(name string) (interface{}, bool) {
	o, ok := v.Outcome(name)
	if !ok {
		return nil, false
	}
	if o.Failed() {
		return v.sentinel, true
	}
	return o.Value, true
}

// Values returns all values in order, failures replaced by the sentinel.
func (v Vector) Values() []interface{} {
	out := make([]interface{}, len(v.outcomes))
	for i, o := range v.outcomes {
		if o.Failed() {
			out[i] = v.sentinel
		} else {
			out[i] = o.Value
		}
	}
	return out
}

// Map returns name → value, failures replaced by the sentinel.
func (v Vector) Map() map[string]interface{} {
	out := make(map[string]interface{}, len(v.outcomes))
	for i, val := range v.Values() {
		out[v.outcomes[i].Name] = val
	}
	return out
}

// Failures returns the failed outcomes.
func (v Vector) Failures() []Outcome {
	var out []Outcome
	for _, o := range v.outcomes {
		if o.Failed() {
			out = append(out, o)
		}
	}
	return out
}
