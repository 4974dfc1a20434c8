package engine

// State is the lifecycle state of the recognition engine.
type State int

const (
	StateUninitialized State = iota
	StateProvisioning
	StateReady
	StateBusy
	StateFailed
	StateCleaned
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateProvisioning:
		return "provisioning"
	case StateReady:
		return "ready"
	case StateBusy:
		return "busy"
	case StateFailed:
		return "failed"
	case StateCleaned:
		return "cleaned"
	}
	return "unknown"
}

// Usable reports whether Recognize may be called in this state.
func (s State) Usable() bool { return s == StateReady }
