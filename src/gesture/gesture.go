// Package gesture tells a tap on the floating button apart from a drag and
// tracks where the button currently sits.
package gesture

import "sync"

const DefaultThreshold = 10

// DefaultAnchor is where the button appears on every process start.
var DefaultAnchor = Point{X: 24, Y: 160}

type Point struct {
	X, Y float32
}

type Kind int

const (
	None Kind = iota
	Click
	Drag
)

func (k Kind) String() string {
	switch k {
	case Click:
		return "click"
	case Drag:
		return "drag"
	default:
		return "none"
	}
}

// Tracker follows one pointer at a time. Positions are kept in memory only.
type Tracker struct {
	Threshold float32

	mu       sync.Mutex
	pos      Point
	startPos Point
	down     Point
	pressed  bool
}

func NewTracker(threshold float32) *Tracker {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Tracker{Threshold: threshold, pos: DefaultAnchor}
}

// Down records the pointer-down location in screen coordinates.
func (t *Tracker) Down(p Point) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.down = p
	t.startPos = t.pos
	t.pressed = true
}

// Move returns the new button position so the view can follow the pointer.
func (t *Tracker) Move(p Point) Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pressed {
		return t.pos
	}
	t.pos = Point{
		X: t.startPos.X + (p.X - t.down.X),
		Y: t.startPos.Y + (p.Y - t.down.Y),
	}
	return t.pos
}

// Up classifies the finished gesture. A click leaves the button where it was.
func (t *Tracker) Up(p Point) Kind {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pressed {
		return None
	}
	t.pressed = false
	dx, dy := abs(p.X-t.down.X), abs(p.Y-t.down.Y)
	if dx < t.Threshold && dy < t.Threshold {
		t.pos = t.startPos
		return Click
	}
	t.pos = Point{
		X: t.startPos.X + (p.X - t.down.X),
		Y: t.startPos.Y + (p.Y - t.down.Y),
	}
	return Drag
}

func (t *Tracker) Position() Point {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pos
}

func abs(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
