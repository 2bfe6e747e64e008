package overlay

import (
	"context"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"

	"screen-ocr-overlay/src/capture"
	"screen-ocr-overlay/src/config"
	"screen-ocr-overlay/src/workflow"
)

const consentMessage = "Allow Screen OCR to capture your screen once?"

// ConfirmFunc asks the user a yes/no question and reports the answer once.
type ConfirmFunc func(title, message string, answer func(bool))

// Consent issues single-use capture tokens, asking the user first unless
// automatic consent is configured. It implements workflow.Authorizer.
type Consent struct {
	auto    bool
	confirm ConfirmFunc
	dismiss func()
}

func NewConsent(mode string, prompt fyne.Window) *Consent {
	c := &Consent{auto: mode == config.ConsentAuto}
	c.confirm = func(title, message string, answer func(bool)) {
		do("consent prompt", func() {
			dialog.ShowConfirm(title, message, func(ok bool) {
				// Off screen before the answer lets the capture start.
				prompt.Hide()
				answer(ok)
			}, prompt)
			prompt.Show()
			prompt.RequestFocus()
		})
	}
	c.dismiss = func() { do("consent dismiss", prompt.Hide) }
	return c
}

// NewConsentWithConfirm builds a prompting Consent around confirm.
func NewConsentWithConfirm(confirm ConfirmFunc) *Consent {
	return &Consent{confirm: confirm, dismiss: func() {}}
}

func (c *Consent) RequestCapture(ctx context.Context) (*capture.Token, error) {
	if c.auto {
		return capture.NewToken(), nil
	}
	answer := make(chan bool, 1)
	c.confirm(defaultTitle, consentMessage, func(ok bool) {
		select {
		case answer <- ok:
		default:
		}
	})
	select {
	case ok := <-answer:
		if !ok {
			slog.Info("Consent: user declined capture")
			return nil, workflow.ErrAuthorizationDenied
		}
		return capture.NewToken(), nil
	case <-ctx.Done():
		c.dismiss()
		return nil, ctx.Err()
	}
}
