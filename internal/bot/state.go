package bot

// State tracks the connection lifecycle: Start moves Idle to Starting and the
// ready event moves Starting to Running.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return "unknown"
	}
}
