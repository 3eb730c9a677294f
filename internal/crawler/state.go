package crawler

// State is the lifecycle position of a run.
type State int32

const (
	Idle State = iota
	Collecting
	Fetching
	Completed
	Stopped
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Collecting:
		return "collecting"
	case Fetching:
		return "fetching"
	case Completed:
		return "completed"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether s ends a run.
func (s State) Terminal() bool {
	return s == Completed || s == Stopped || s == Failed
}
