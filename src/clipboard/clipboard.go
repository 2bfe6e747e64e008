package clipboard

import (
	"errors"
	"log/slog"
	"sync"

	"golang.design/x/clipboard"
)

// Label names the copied text in logs and notices.
const Label = "OCR Text"

var ErrNotInitialized = errors.New("clipboard not initialized")

var (
	writeMu sync.Mutex
	ready   bool
)

func Init() error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if err := clipboard.Init(); err != nil {
		return err
	}
	ready = true
	return nil
}

// Write performs a mutex-guarded clipboard write to prevent corruption under parallel writes.
func Write(text string) error {
	writeMu.Lock()
	defer writeMu.Unlock()
	if !ready {
		return ErrNotInitialized
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	slog.Debug("Clipboard: wrote text", "label", Label, "chars", len([]rune(text)))
	return nil
}

// System adapts the package functions to the workflow's Clipboard seam.
type System struct{}

func (System) Write(text string) error { return Write(text) }
