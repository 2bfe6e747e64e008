package overlay

import (
	"errors"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
)

// Notifier implements workflow.Notifier with desktop notifications for
// transient notices and a modal dialog for errors the user must acknowledge.
type Notifier struct {
	app    fyne.App
	title  string
	parent fyne.Window
}

func NewNotifier(a fyne.App, title string, parent fyne.Window) *Notifier {
	return &Notifier{app: a, title: title, parent: parent}
}

func (n *Notifier) Notice(msg string) {
	slog.Info("Notice", "message", msg)
	n.app.SendNotification(fyne.NewNotification(n.title, msg))
}

func (n *Notifier) Blocking(title, msg string) {
	slog.Error(title, "message", msg)
	do("blocking notice", func() {
		d := dialog.NewError(errors.New(msg), n.parent)
		d.SetOnClosed(n.parent.Hide)
		n.parent.SetTitle(title)
		n.parent.Show()
		d.Show()
	})
}
