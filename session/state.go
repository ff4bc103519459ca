package session

// State is the lifecycle stage of a Session
type State int32

const (
	// StateIdle is before Run and after the loop exits
	StateIdle State = iota
	// StateWaitingForPermission is while camera access is being requested
	StateWaitingForPermission
	// StateWaitingForModel is while the pose model loads
	StateWaitingForModel
	// StateRunning is the frame loop between scores
	StateRunning
	// StateScoring is while a candidate pose is compared to the reference
	StateScoring
)

// String returns a readable name of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingForPermission:
		return "waiting_for_permission"
	case StateWaitingForModel:
		return "waiting_for_model"
	case StateRunning:
		return "running"
	case StateScoring:
		return "scoring"
	default:
		return "unknown"
	}
}

// MarshalText encodes the state by name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
