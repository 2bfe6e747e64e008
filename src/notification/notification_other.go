//go:build !windows

package notification

import (
	"io"
	"os"

	"github.com/fatih/color"
)

var stderr io.Writer = os.Stderr

// showBlocking prints to the terminal; there is no native modal outside
// Windows before the window toolkit starts.
func showBlocking(title, message string) error {
	_, err := color.New(color.FgRed, color.Bold).Fprintf(stderr, "%s: ", title)
	if err != nil {
		return err
	}
	_, err = io.WriteString(stderr, message+"\n")
	return err
}
