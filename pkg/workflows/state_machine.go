package workflows

// State is a position in the listing wizard.
type State string

const (
	StateEditingUnlocked      State = "editing_unlocked"
	StateEditingLocked        State = "editing_locked"
	StateAwaitingVerification State = "awaiting_verification"
	StateVerified             State = "verified"
	StateRejected             State = "rejected"
)

// StateMachine enforces wizard state transitions
type StateMachine struct {
	allowedTransitions map[State][]State
}

// NewStateMachine creates a new state machine with allowed transitions.
// There is no terminal state: a verified listing can always be edited again.
func NewStateMachine() *StateMachine {
	return &StateMachine{
		allowedTransitions: map[State][]State{
			StateEditingUnlocked:      {StateAwaitingVerification, StateVerified},
			StateEditingLocked:        {StateAwaitingVerification},
			StateAwaitingVerification: {StateVerified, StateRejected, StateEditingLocked},
			StateVerified:             {StateEditingUnlocked},
			StateRejected:             {StateAwaitingVerification, StateEditingLocked},
		},
	}
}

// CanTransition checks if a state transition is allowed
func (sm *StateMachine) CanTransition(from, to State) bool {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return false
	}
	for _, allowedTo := range allowed {
		if allowedTo == to {
			return true
		}
	}
	return false
}

// GetAllowedTransitions returns the allowed next states for a given state
func (sm *StateMachine) GetAllowedTransitions(from State) []State {
	allowed, exists := sm.allowedTransitions[from]
	if !exists {
		return []State{}
	}
	return allowed
}
