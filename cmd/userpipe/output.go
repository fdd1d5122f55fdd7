package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F57"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFBD2E"))
	stepStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	labelStyle   = lipgloss.NewStyle().Bold(true)
)

func styled(style lipgloss.Style, text string) string {
	if noColor {
		return text
	}
	return style.Render(text)
}

// sentimentStyle colors a sentiment label.
func sentimentStyle(sentiment string) lipgloss.Style {
	switch sentiment {
	case "optimistic":
		return successStyle
	case "pessimistic":
		return errorStyle
	default:
		return mutedStyle
	}
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, styled(successStyle, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, styled(errorStyle, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, styled(warningStyle, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := styled(labelStyle, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, styled(stepStyle, "→ "+msg))
}
