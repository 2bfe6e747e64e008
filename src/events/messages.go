package events

// Message is anything that can travel on the bus.
type Message interface {
	Type() string
}

const (
	TypeCaptureCompleted = "CaptureCompleted"
	TypeRunFinished      = "RunFinished"
	TypeOverlayToggled   = "OverlayToggled"
)

// CaptureCompleted is announced once a frame has been handed off for
// recognition.
type CaptureCompleted struct {
	RunID       string
	FromOverlay bool // false when the hotkey or a delegated client triggered it
}

func (m CaptureCompleted) Type() string { return TypeCaptureCompleted }

// RunFinished marks the end of a workflow run, whichever path it took.
type RunFinished struct {
	RunID   string
	Outcome string
}

func (m RunFinished) Type() string { return TypeRunFinished }

// OverlayToggled is sent after the persisted overlay flag changes.
type OverlayToggled struct {
	Enabled bool
}

func (m OverlayToggled) Type() string { return TypeOverlayToggled }
