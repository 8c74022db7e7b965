package holder

// State is the lifecycle state of a Holder.
type State string

const (
	// StateUninitialized means the job has not been created yet.
	StateUninitialized State = "uninitialized"

	// StateIdle means the job exists and is not executing.
	StateIdle State = "idle"

	// StateRunning means an execution is in flight.
	StateRunning State = "running"
)

func (s State) String() string { return string(s) }

// Snapshot is a point-in-time view of a Holder, suitable for encoding.
type Snapshot[R any] struct {
	Name      string `json:"name"`
	State     State  `json:"state"`
	HasResult bool   `json:"has_result"`
	Result    R      `json:"result,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Snapshot returns the current cached state of h.
func (h *Holder[P, R]) Snapshot() Snapshot[R] {
	result, ok := h.LastResult()
	snap := Snapshot[R]{
		Name:      h.name,
		State:     h.State(),
		HasResult: ok,
		Result:    result,
	}
	if err := h.LastError(); err != nil {
		snap.Error = err.Error()
	}
	return snap
}

// Listeners returns the number of registered result and error listeners.
func (h *Holder[P, R]) Listeners() (results, errors int) {
	return h.results.len(), h.errors.len()
}
