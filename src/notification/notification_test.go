//go:build !windows

package notification

import (
	"bytes"
	"strings"
	"testing"
)

func TestShowBlockingErrorWritesToTerminal(t *testing.T) {
	var buf bytes.Buffer
	old := stderr
	stderr = &buf
	defer func() { stderr = old }()

	ShowBlockingError("Screen OCR", "capture permission missing")
	out := buf.String()
	if !strings.Contains(out, "Screen OCR") || !strings.Contains(out, "capture permission missing") {
		t.Errorf("output = %q", out)
	}
}
