package workflow

import (
	"errors"
	"fmt"

	"screen-ocr-overlay/src/capture"
)

var (
	ErrAuthorizationDenied      = errors.New("capture authorization denied")
	ErrCaptureTimeout           = errors.New("screen capture timed out")
	ErrRecognitionFailure       = errors.New("text recognition failed")
	ErrOverlayPermissionMissing = errors.New("screen capture permission missing")
	ErrBusy                     = errors.New("busy, please retry")
	ErrInvalidTransition        = errors.New("invalid workflow transition")

	ErrCancelled = errors.New("capture cancelled")
	ErrDismissed = errors.New("result dismissed")
	ErrTornDown  = errors.New("workflow torn down")
)

func classifyAuthorization(err error) error {
	if errors.Is(err, ErrAuthorizationDenied) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrAuthorizationDenied, err)
}

func classifyCapture(err error) error {
	switch {
	case errors.Is(err, capture.ErrFrameUnavailable):
		return fmt.Errorf("%w: %v", ErrCaptureTimeout, err)
	case errors.Is(err, capture.ErrAuthorization):
		return fmt.Errorf("%w: %v", ErrAuthorizationDenied, err)
	case errors.Is(err, capture.ErrNoDisplay):
		return fmt.Errorf("%w: %v", ErrOverlayPermissionMissing, err)
	default:
		return fmt.Errorf("capture failed: %w", err)
	}
}

// noticeFor is the short text shown to the user when a run fails before a
// result panel exists.
func noticeFor(err error) string {
	switch {
	case errors.Is(err, ErrCaptureTimeout):
		return "Screen capture timed out, please retry"
	case errors.Is(err, ErrOverlayPermissionMissing):
		return "Screen capture is not available"
	default:
		return "Screen capture failed"
	}
}
