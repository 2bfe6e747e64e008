package overlay

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"screen-ocr-overlay/src/recognizer"
	"screen-ocr-overlay/src/workflow"
)

// Panel shows recognition progress and then the result with Copy and Cancel.
// Closing the window counts as Dismiss. It implements workflow.ResultPanel.
type Panel struct {
	win      fyne.Window
	status   *widget.Label
	text     *widget.Label
	progress *widget.ProgressBarInfinite
	copyBtn  *widget.Button
	onDecide func(workflow.Decision)
}

func NewPanel(a fyne.App, title string, onDecide func(workflow.Decision)) *Panel {
	p := &Panel{
		win:      newWindow(a, title, false),
		status:   widget.NewLabel(""),
		text:     widget.NewLabel(""),
		progress: widget.NewProgressBarInfinite(),
		onDecide: onDecide,
	}
	p.text.Wrapping = fyne.TextWrapWord
	p.copyBtn = widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), func() { p.decide(workflow.Copy) })
	p.copyBtn.Importance = widget.HighImportance
	cancelBtn := widget.NewButtonWithIcon("Cancel", theme.CancelIcon(), func() { p.decide(workflow.Cancel) })

	top := container.NewVBox(p.status, p.progress)
	bottom := container.NewHBox(layout.NewSpacer(), cancelBtn, p.copyBtn)
	p.win.SetContent(container.NewBorder(top, bottom, nil, nil, container.NewVScroll(p.text)))
	p.win.Resize(fyne.NewSize(420, 300))
	p.win.SetCloseIntercept(func() { p.decide(workflow.Dismiss) })
	return p
}

func (p *Panel) decide(d workflow.Decision) {
	if p.onDecide != nil {
		p.onDecide(d)
	}
}

func (p *Panel) ShowProgress() {
	do("panel progress", func() {
		p.status.SetText("Recognizing text...")
		p.text.SetText("")
		p.copyBtn.Disable()
		p.progress.Show()
		p.progress.Start()
		p.win.Show()
	})
}

func (p *Panel) ShowResult(res recognizer.Result) {
	do("panel result", func() {
		p.stopProgress()
		p.status.SetText(fmt.Sprintf("%d characters (%s, %.0f%% confidence)", len([]rune(res.Text)), res.Script, res.Confidence*100))
		p.text.SetText(res.Text)
		p.copyBtn.Enable()
	})
}

func (p *Panel) ShowEmpty() {
	do("panel empty", func() {
		p.stopProgress()
		p.status.SetText("No text found")
		p.text.SetText("")
		p.copyBtn.Disable()
	})
}

func (p *Panel) ShowError(err error) {
	do("panel error", func() {
		p.stopProgress()
		p.status.SetText("Recognition failed")
		p.text.SetText(err.Error())
		p.copyBtn.Disable()
	})
}

func (p *Panel) Close() {
	do("panel close", func() {
		p.stopProgress()
		p.win.Hide()
	})
}

func (p *Panel) stopProgress() {
	p.progress.Stop()
	p.progress.Hide()
}
