package storybook

// Direction is the visual direction of a page turn.
type Direction string

const (
	Forward  Direction = "forward"
	Backward Direction = "backward"
)

// EventType names a navigator event.
type EventType string

const (
	// EventTransitionStarted fires when a page turn is accepted.
	EventTransitionStarted EventType = "transition_started"
	// EventTransitionFinished fires when the turn's delay elapses and the
	// index has moved.
	EventTransitionFinished EventType = "transition_finished"
	// EventJumped fires after an accepted direct jump.
	EventJumped EventType = "jumped"
	// EventUnlocked fires exactly once per session, on the rising edge of
	// ReadingCompleted.
	EventUnlocked EventType = "unlocked"
	// EventJumpRejected fires when a jump targets an inaccessible spread.
	EventJumpRejected EventType = "jump_rejected"
)

// Event describes one state change. State is the snapshot taken right after
// the change.
type Event struct {
	Type      EventType `json:"type"`
	From      int       `json:"from"`
	To        int       `json:"to"`
	Direction Direction `json:"direction,omitempty"`
	State     State     `json:"state"`
}

// Observer receives navigator events. Observers run outside the state lock
// but in event order; they may read State but must not call GoNext, GoPrev
// or JumpTo synchronously.
type Observer func(Event)
