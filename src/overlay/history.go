package overlay

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"screen-ocr-overlay/src/history"
	"screen-ocr-overlay/src/logutil"
	"screen-ocr-overlay/src/workflow"
)

// HistoryEntries is the part of history.Store the window reads and edits.
type HistoryEntries interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
	Delete(ctx context.Context, id int64) error
}

// HistoryWindow lists recent copies newest first. The selected entry can be
// copied again or deleted.
type HistoryWindow struct {
	win   fyne.Window
	store HistoryEntries
	clip  workflow.Clipboard
	limit int

	// Owned by the fyne main thread.
	entries   []history.Entry
	selected  int
	list      *widget.List
	status    *widget.Label
	copyBtn   *widget.Button
	deleteBtn *widget.Button
}

func NewHistoryWindow(a fyne.App, title string, store HistoryEntries, clip workflow.Clipboard, limit int) *HistoryWindow {
	if limit <= 0 {
		limit = history.DefaultLimit
	}
	h := &HistoryWindow{
		win:      newWindow(a, title+" - History", false),
		store:    store,
		clip:     clip,
		limit:    limit,
		selected: -1,
		status:   widget.NewLabel(""),
	}
	h.list = widget.NewList(
		func() int { return len(h.entries) },
		func() fyne.CanvasObject {
			l := widget.NewLabel("")
			l.Truncation = fyne.TextTruncateEllipsis
			return l
		},
		func(id widget.ListItemID, o fyne.CanvasObject) {
			if id < 0 || id >= len(h.entries) {
				return
			}
			e := h.entries[id]
			o.(*widget.Label).SetText(fmt.Sprintf("%s  %s", e.CreatedAt.Format("Jan 02 15:04"), logutil.Preview(e.Content)))
		},
	)
	h.list.OnSelected = func(id widget.ListItemID) {
		h.selected = id
		h.copyBtn.Enable()
		h.deleteBtn.Enable()
	}
	h.list.OnUnselected = func(widget.ListItemID) {
		h.selected = -1
		h.copyBtn.Disable()
		h.deleteBtn.Disable()
	}

	h.copyBtn = widget.NewButtonWithIcon("Copy", theme.ContentCopyIcon(), func() {
		if err := h.copySelected(); err != nil {
			slog.Error("History: copy failed", "error", err)
		}
	})
	h.copyBtn.Importance = widget.HighImportance
	h.deleteBtn = widget.NewButtonWithIcon("Delete", theme.DeleteIcon(), func() {
		if err := h.deleteSelected(context.Background()); err != nil {
			slog.Error("History: delete failed", "error", err)
		}
	})
	h.copyBtn.Disable()
	h.deleteBtn.Disable()

	bottom := container.NewHBox(h.status, layout.NewSpacer(), h.deleteBtn, h.copyBtn)
	h.win.SetContent(container.NewBorder(nil, bottom, nil, nil, h.list))
	h.win.Resize(fyne.NewSize(460, 360))
	h.win.SetCloseIntercept(h.win.Hide)
	return h
}

// Show reloads the newest entries and brings the window up. Safe from any
// goroutine.
func (h *HistoryWindow) Show(ctx context.Context) error {
	entries, err := h.store.List(ctx, h.limit)
	if err != nil {
		return err
	}
	do("history show", func() {
		h.setEntries(entries)
		h.win.Show()
		h.win.RequestFocus()
	})
	return nil
}

func (h *HistoryWindow) setEntries(entries []history.Entry) {
	h.list.UnselectAll()
	h.entries = entries
	h.selected = -1
	h.copyBtn.Disable()
	h.deleteBtn.Disable()
	h.status.SetText(fmt.Sprintf("%d recent copies", len(entries)))
	h.list.Refresh()
}

func (h *HistoryWindow) current() (history.Entry, bool) {
	if h.selected < 0 || h.selected >= len(h.entries) {
		return history.Entry{}, false
	}
	return h.entries[h.selected], true
}

func (h *HistoryWindow) copySelected() error {
	e, ok := h.current()
	if !ok {
		return nil
	}
	if err := h.clip.Write(e.Content); err != nil {
		h.status.SetText("Clipboard error")
		return err
	}
	slog.Info("History: entry copied", "id", e.ID)
	h.status.SetText("Copied")
	return nil
}

func (h *HistoryWindow) deleteSelected(ctx context.Context) error {
	e, ok := h.current()
	if !ok {
		return nil
	}
	if err := h.store.Delete(ctx, e.ID); err != nil {
		return err
	}
	slog.Info("History: entry deleted", "id", e.ID)
	entries, err := h.store.List(ctx, h.limit)
	if err != nil {
		return err
	}
	h.setEntries(entries)
	return nil
}
