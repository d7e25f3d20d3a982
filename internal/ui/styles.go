// Package ui renders terminal output for the sheetsync CLI.
package ui

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	accentColor = lipgloss.AdaptiveColor{Light: "#0366d6", Dark: "#58a6ff"}
	passColor   = lipgloss.AdaptiveColor{Light: "#1a7f37", Dark: "#3fb950"}
	warnColor   = lipgloss.AdaptiveColor{Light: "#9a6700", Dark: "#d29922"}
	failColor   = lipgloss.AdaptiveColor{Light: "#cf222e", Dark: "#f85149"}
	mutedColor  = lipgloss.AdaptiveColor{Light: "#6e7781", Dark: "#8b949e"}

	accentStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	passStyle   = lipgloss.NewStyle().Foreground(passColor).Bold(true)
	warnStyle   = lipgloss.NewStyle().Foreground(warnColor).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(failColor).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(mutedColor)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

func init() {
	if !ShouldUseColor() {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// ShouldUseColor honours NO_COLOR and CLICOLOR_FORCE, then falls back to
// whether stdout is a terminal.
func ShouldUseColor() bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if os.Getenv("CLICOLOR_FORCE") != "" {
		return true
	}
	return IsTerminal(os.Stdout)
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func RenderAccent(s string) string { return accentStyle.Render(s) }
func RenderPass(s string) string   { return passStyle.Render(s) }
func RenderWarn(s string) string   { return warnStyle.Render(s) }
func RenderFail(s string) string   { return failStyle.Render(s) }
func RenderMuted(s string) string  { return mutedStyle.Render(s) }
func RenderHeader(s string) string { return headerStyle.Render(s) }

// RenderStatus colours a pass status: success, skipped or error.
func RenderStatus(status string) string {
	switch status {
	case "success":
		return RenderPass(status)
	case "skipped":
		return RenderWarn(status)
	case "error":
		return RenderFail(status)
	default:
		return status
	}
}
