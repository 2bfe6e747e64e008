package overlay

import (
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"screen-ocr-overlay/src/gesture"
)

const knobSize = 48

// dockSize is the area the button can be dragged around in. fyne windows
// cannot be positioned, so the button moves inside its own borderless window.
var dockSize = fyne.NewSize(240, 480)

// FloatingButton is the always-on-top capture button. It implements
// workflow.ButtonView.
type FloatingButton struct {
	win  fyne.Window
	knob *knob

	mu      sync.Mutex
	enabled bool
	wanted  bool
}

func NewFloatingButton(a fyne.App, tracker *gesture.Tracker, onTap func()) *FloatingButton {
	k := newKnob(tracker, onTap)
	w := newWindow(a, defaultTitle, true)
	w.SetContent(container.NewWithoutLayout(k))
	w.Resize(dockSize)
	w.SetFixedSize(true)
	w.SetPadded(false)
	k.place(tracker.Position())
	return &FloatingButton{win: w, knob: k, enabled: true}
}

// Show makes the button visible unless the user switched the overlay off.
func (b *FloatingButton) Show() {
	b.mu.Lock()
	b.wanted = true
	visible := b.enabled
	b.mu.Unlock()
	if visible {
		do("button show", b.win.Show)
	}
}

// Hide waits until the window is gone so a capture that follows cannot
// include it.
func (b *FloatingButton) Hide() {
	b.mu.Lock()
	b.wanted = false
	b.mu.Unlock()
	doAndWait("button hide", b.win.Hide)
}

// SetEnabled applies the persisted overlay flag. A disabled button stays
// hidden even when the workflow asks for it.
func (b *FloatingButton) SetEnabled(on bool) {
	b.mu.Lock()
	b.enabled = on
	show := on && b.wanted
	b.mu.Unlock()
	if show {
		do("button enable", b.win.Show)
		return
	}
	do("button disable", b.win.Hide)
}

func (b *FloatingButton) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// knob is the round button face. It classifies pointer gestures itself
// instead of relying on Tapped, so a drag never counts as a tap.
type knob struct {
	widget.BaseWidget
	tracker *gesture.Tracker
	onTap   func()
	last    gesture.Point
}

var (
	_ desktop.Mouseable  = (*knob)(nil)
	_ desktop.Cursorable = (*knob)(nil)
	_ fyne.Draggable     = (*knob)(nil)
)

func newKnob(tracker *gesture.Tracker, onTap func()) *knob {
	k := &knob{tracker: tracker, onTap: onTap}
	k.ExtendBaseWidget(k)
	return k
}

func (k *knob) CreateRenderer() fyne.WidgetRenderer {
	face := canvas.NewCircle(theme.Color(theme.ColorNamePrimary))
	icon := widget.NewIcon(theme.SearchIcon())
	return widget.NewSimpleRenderer(container.NewStack(face, container.NewPadded(icon)))
}

func (k *knob) MinSize() fyne.Size { return fyne.NewSquareSize(knobSize) }

func (k *knob) Cursor() desktop.Cursor { return desktop.PointerCursor }

func (k *knob) MouseDown(ev *desktop.MouseEvent) {
	p := toPoint(ev.AbsolutePosition)
	k.last = p
	k.tracker.Down(p)
}

func (k *knob) MouseUp(ev *desktop.MouseEvent) {
	k.finish(toPoint(ev.AbsolutePosition))
}

func (k *knob) Dragged(ev *fyne.DragEvent) {
	p := toPoint(ev.AbsolutePosition)
	k.last = p
	k.place(k.tracker.Move(p))
}

// DragEnd can arrive before or after MouseUp; the tracker ignores whichever
// comes second.
func (k *knob) DragEnd() {
	k.finish(k.last)
}

func (k *knob) finish(p gesture.Point) {
	kind := k.tracker.Up(p)
	if kind == gesture.None {
		return
	}
	k.place(k.tracker.Position())
	if kind == gesture.Click && k.onTap != nil {
		k.onTap()
	}
}

// place moves the knob, keeping it inside the dock.
func (k *knob) place(p gesture.Point) {
	x := clamp(p.X, 0, dockSize.Width-knobSize)
	y := clamp(p.Y, 0, dockSize.Height-knobSize)
	k.Resize(k.MinSize())
	k.Move(fyne.NewPos(x, y))
}

func toPoint(p fyne.Position) gesture.Point { return gesture.Point{X: p.X, Y: p.Y} }

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
