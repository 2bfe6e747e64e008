// Package notification shows errors that must be acknowledged before the
// resident can continue, such as a missing screen capture permission.
package notification

import "log/slog"

// ShowBlockingError shows title and message and returns once the user has
// dismissed them.
func ShowBlockingError(title, message string) {
	slog.Error(title, "message", message)
	if err := showBlocking(title, message); err != nil {
		slog.Error("Notification: blocking dialog failed", "error", err)
	}
}
