package evaluator

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var failureStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("196"))

// failure prints a distinguishable marker line to the operator console
func (e *Evaluator) failure(format string, args ...any) {
	fmt.Fprintln(e.console, failureStyle.Render("###### "+fmt.Sprintf(format, args...)))
}
