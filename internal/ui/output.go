package ui

import (
	"fmt"

	"github.com/fatih/color"
)

// ShowAnswer prints the assistant's reply
func ShowAnswer(answer string) {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(color.Output, "\nEDU Bot:")
	fmt.Fprintf(color.Output, "%s\n\n", answer)
}

// ShowSection prints a bold heading followed by body
func ShowSection(title, body string) {
	bold := color.New(color.Bold)
	bold.Fprintf(color.Output, "\n%s\n", title)
	fmt.Fprintln(color.Output, body)
}

// ShowSuccess displays a success message
func ShowSuccess(message string) {
	green := color.New(color.FgGreen, color.Bold)
	green.Fprintf(color.Output, "✓ %s\n", message)
}

// ShowError displays an error message
func ShowError(message string) {
	red := color.New(color.FgRed, color.Bold)
	red.Fprintf(color.Output, "✗ %s\n", message)
}

// ShowWarning displays a warning
func ShowWarning(message string) {
	yellow := color.New(color.FgYellow)
	yellow.Fprintf(color.Output, "! %s\n", message)
}

// ShowInfo displays an info message
func ShowInfo(message string) {
	blue := color.New(color.FgBlue)
	blue.Fprintln(color.Output, message)
}
