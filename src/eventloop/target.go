package eventloop

import (
	"errors"
	"log/slog"

	"screen-ocr-overlay/src/singleinstance"
)

// delegatedTarget answers a --capture client once its run ends and closes the
// connection. The coordinator has already written the clipboard.
type delegatedTarget struct {
	conn singleinstance.Conn
}

func (t delegatedTarget) OnSuccess(text string) error {
	if t.conn == nil {
		return errors.New("delegated target missing connection")
	}
	defer t.close()
	return t.conn.RespondSuccess(text)
}

func (t delegatedTarget) OnFailure(err error) error {
	if t.conn == nil {
		return nil
	}
	defer t.close()
	if err == nil {
		return t.conn.RespondError("unknown session error")
	}
	return t.conn.RespondError(err.Error())
}

func (t delegatedTarget) close() {
	if err := t.conn.Close(); err != nil {
		slog.Debug("Event loop: closing delegated connection", "error", err)
	}
}
