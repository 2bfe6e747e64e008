package workflow

import "fmt"

type State int

const (
	Idle State = iota
	HiddenAwaitingCapture
	Capturing
	Recognizing
	PresentingResult
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case HiddenAwaitingCapture:
		return "HiddenAwaitingCapture"
	case Capturing:
		return "Capturing"
	case Recognizing:
		return "Recognizing"
	case PresentingResult:
		return "PresentingResult"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Event int

const (
	EventTap Event = iota
	EventAuthorized
	EventDenied
	EventFrameCaptured
	EventCaptureFailed
	EventRecognized
	EventRecognitionFailed
	EventCopy
	EventCancel
	EventDismiss
	EventTeardown
)

var eventNames = [...]string{
	EventTap:               "Tap",
	EventAuthorized:        "Authorized",
	EventDenied:            "Denied",
	EventFrameCaptured:     "FrameCaptured",
	EventCaptureFailed:     "CaptureFailed",
	EventRecognized:        "Recognized",
	EventRecognitionFailed: "RecognitionFailed",
	EventCopy:              "Copy",
	EventCancel:            "Cancel",
	EventDismiss:           "Dismiss",
	EventTeardown:          "Teardown",
}

func (e Event) String() string {
	if e >= 0 && int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// transitions lists every legal move. Teardown is handled separately since it
// is legal from every state.
var transitions = map[State]map[Event]State{
	Idle: {
		EventTap: HiddenAwaitingCapture,
	},
	HiddenAwaitingCapture: {
		EventAuthorized: Capturing,
		EventDenied:     Idle,
	},
	Capturing: {
		EventFrameCaptured: Recognizing,
		EventCaptureFailed: Idle,
	},
	Recognizing: {
		EventRecognized:        PresentingResult,
		EventRecognitionFailed: PresentingResult,
	},
	PresentingResult: {
		EventCopy:    Idle,
		EventCancel:  Idle,
		EventDismiss: Idle,
	},
}

// Next returns the state reached from s on e.
func Next(s State, e Event) (State, error) {
	if e == EventTeardown {
		return Idle, nil
	}
	if next, ok := transitions[s][e]; ok {
		return next, nil
	}
	return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, e)
}
