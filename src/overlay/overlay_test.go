package overlay

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/test"

	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/gesture"
	"screen-ocr-overlay/src/history"
	"screen-ocr-overlay/src/recognizer"
	"screen-ocr-overlay/src/workflow"
)

func mouse(x, y float32) *desktop.MouseEvent {
	return &desktop.MouseEvent{PointEvent: fyne.PointEvent{AbsolutePosition: fyne.NewPos(x, y)}}
}

func TestKnobClickTaps(t *testing.T) {
	test.NewTempApp(t)
	taps := 0
	tr := gesture.NewTracker(10)
	k := newKnob(tr, func() { taps++ })

	k.MouseDown(mouse(30, 170))
	k.MouseUp(mouse(34, 172))
	k.DragEnd()

	if taps != 1 {
		t.Fatalf("taps = %d, want 1", taps)
	}
	if tr.Position() != gesture.DefaultAnchor {
		t.Errorf("click moved the button to %+v", tr.Position())
	}
}

func TestKnobDragMovesWithoutTap(t *testing.T) {
	test.NewTempApp(t)
	taps := 0
	tr := gesture.NewTracker(10)
	k := newKnob(tr, func() { taps++ })

	k.MouseDown(mouse(30, 170))
	k.Dragged(&fyne.DragEvent{PointEvent: fyne.PointEvent{AbsolutePosition: fyne.NewPos(70, 200)}})
	k.DragEnd()
	k.MouseUp(mouse(70, 200))

	if taps != 0 {
		t.Fatalf("drag produced %d taps", taps)
	}
	want := gesture.Point{X: gesture.DefaultAnchor.X + 40, Y: gesture.DefaultAnchor.Y + 30}
	if tr.Position() != want {
		t.Errorf("position = %+v, want %+v", tr.Position(), want)
	}
	if k.Position() != fyne.NewPos(want.X, want.Y) {
		t.Errorf("knob at %v", k.Position())
	}
}

func TestKnobStaysInsideDock(t *testing.T) {
	test.NewTempApp(t)
	k := newKnob(gesture.NewTracker(10), nil)
	k.place(gesture.Point{X: -50, Y: 10000})
	if got := k.Position(); got.X != 0 || got.Y != dockSize.Height-knobSize {
		t.Errorf("knob at %v", got)
	}
}

func TestButtonRespectsEnabledFlag(t *testing.T) {
	a := test.NewTempApp(t)
	b := NewFloatingButton(a, gesture.NewTracker(10), nil)

	b.Show()
	b.SetEnabled(false)
	if b.Enabled() {
		t.Error("SetEnabled(false) not recorded")
	}
	b.Hide()
	b.Show()
	if !b.wanted || b.Enabled() {
		t.Errorf("wanted=%v enabled=%v, the workflow request must not re-enable the overlay", b.wanted, b.Enabled())
	}
	b.SetEnabled(true)
	if !b.Enabled() {
		t.Error("SetEnabled(true) not recorded")
	}
}

func TestPanelDecisions(t *testing.T) {
	a := test.NewTempApp(t)
	var got []workflow.Decision
	p := NewPanel(a, "test", func(d workflow.Decision) { got = append(got, d) })

	p.ShowProgress()
	if !p.copyBtn.Disabled() {
		t.Error("Copy should be disabled while recognizing")
	}
	p.ShowResult(recognizer.Result{Text: "hello", Confidence: 0.9, Script: recognizer.ScriptLatin})
	if p.text.Text != "hello" {
		t.Errorf("panel text = %q", p.text.Text)
	}
	if p.copyBtn.Disabled() {
		t.Fatal("Copy should be enabled for a result")
	}
	test.Tap(p.copyBtn)
	if len(got) != 1 || got[0] != workflow.Copy {
		t.Errorf("decisions = %v", got)
	}
}

func TestPanelEmptyAndError(t *testing.T) {
	a := test.NewTempApp(t)
	p := NewPanel(a, "test", nil)

	p.ShowEmpty()
	if p.status.Text != "No text found" || !p.copyBtn.Disabled() {
		t.Errorf("empty panel: status %q, copy disabled %v", p.status.Text, p.copyBtn.Disabled())
	}
	p.ShowError(errors.New("engine crashed"))
	if p.text.Text != "engine crashed" || !p.copyBtn.Disabled() {
		t.Errorf("error panel: text %q", p.text.Text)
	}
	p.Close()
}

func TestConsentAuto(t *testing.T) {
	c := NewConsent(config.ConsentAuto, nil)
	tok, err := c.RequestCapture(context.Background())
	if err != nil || tok == nil {
		t.Fatalf("RequestCapture() = %v, %v", tok, err)
	}
}

func TestConsentPrompt(t *testing.T) {
	for _, tc := range []struct {
		name    string
		answer  bool
		wantErr error
	}{
		{"granted", true, nil},
		{"declined", false, workflow.ErrAuthorizationDenied},
	} {
		t.Run(tc.name, func(t *testing.T) {
			c := NewConsentWithConfirm(func(_, _ string, answer func(bool)) {
				go answer(tc.answer)
			})
			tok, err := c.RequestCapture(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("RequestCapture() error = %v, want %v", err, tc.wantErr)
			}
			if (tok != nil) != tc.answer {
				t.Errorf("token = %v", tok)
			}
		})
	}
}

func TestConsentPromptCancelled(t *testing.T) {
	c := NewConsentWithConfirm(func(string, string, func(bool)) {})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.RequestCapture(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("RequestCapture() error = %v, want deadline exceeded", err)
	}
}

type recordingClipboard struct{ text string }

func (c *recordingClipboard) Write(text string) error {
	c.text = text
	return nil
}

func TestHistoryWindowCopyAndDelete(t *testing.T) {
	a := test.NewTempApp(t)
	ctx := context.Background()
	store, err := history.Open(filepath.Join(t.TempDir(), history.FileName))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer store.Close()
	for _, text := range []string{"first", "second", "third"} {
		if _, err := store.Insert(ctx, text); err != nil {
			t.Fatal(err)
		}
	}

	clip := &recordingClipboard{}
	w := NewHistoryWindow(a, "test", store, clip, 2)
	if err := w.Show(ctx); err != nil {
		t.Fatalf("Show: %v", err)
	}
	if len(w.entries) != 2 || w.entries[0].Content != "third" || w.entries[1].Content != "second" {
		t.Fatalf("entries = %+v, want the two newest", w.entries)
	}
	if !w.copyBtn.Disabled() || !w.deleteBtn.Disabled() {
		t.Fatal("actions should wait for a selection")
	}

	w.list.Select(1)
	test.Tap(w.copyBtn)
	if clip.text != "second" {
		t.Errorf("clipboard = %q, want %q", clip.text, "second")
	}

	test.Tap(w.deleteBtn)
	if len(w.entries) != 2 || w.entries[0].Content != "third" || w.entries[1].Content != "first" {
		t.Errorf("after delete entries = %+v", w.entries)
	}
	if n, err := store.Count(ctx); err != nil || n != 2 {
		t.Errorf("Count() = %d, %v", n, err)
	}
	if !w.deleteBtn.Disabled() {
		t.Error("selection should reset after a delete")
	}
}

func TestHistoryWindowDefaultLimit(t *testing.T) {
	a := test.NewTempApp(t)
	w := NewHistoryWindow(a, "test", nil, nil, 0)
	if w.limit != history.DefaultLimit {
		t.Errorf("limit = %d, want %d", w.limit, history.DefaultLimit)
	}
}
