// Package tui provides the interactive operator console for multifocus.
// It uses Charmbracelet's Bubble Tea, Lip Gloss, and Bubbles.
package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jamesainslie/multifocus/pkg/multifocus/logging"
	"github.com/jamesainslie/multifocus/pkg/multifocus/output"
)

// The console shares the pretty formatter's palette.
var (
	primaryColor = output.ColorPrimary
	successColor = output.ColorSuccess
	warningColor = output.ColorWarning
	dangerColor  = output.ColorDanger
	mutedColor   = output.ColorMuted
	borderColor  = lipgloss.Color("238")
)

// Box styles for containers.
var (
	// outerBoxStyle is the main container style.
	outerBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	// dividerStyle creates horizontal dividers.
	dividerStyle = lipgloss.NewStyle().
			Foreground(borderColor)
)

// Text styles.
var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	labelStyle       = lipgloss.NewStyle().Foreground(mutedColor).Width(12)
	mutedTextStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	errorTextStyle   = lipgloss.NewStyle().Foreground(dangerColor)
	successTextStyle = lipgloss.NewStyle().Foreground(successColor)
	warningTextStyle = lipgloss.NewStyle().Foreground(warningColor)

	// currentPlanStyle marks the plane being shown.
	currentPlanStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("0")).
				Background(successColor).
				Padding(0, 1)

	// planStyle is every other plane.
	planStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Padding(0, 1)

	// candidateStyle marks sweep positions that became plans.
	candidateStyle = lipgloss.NewStyle().Foreground(successColor)
	sampleStyle    = lipgloss.NewStyle().Foreground(primaryColor)
)

// Help bar styles.
var (
	helpKeyStyle  = lipgloss.NewStyle().Foreground(primaryColor).Bold(true)
	helpDescStyle = lipgloss.NewStyle().Foreground(mutedColor)
)

// Log pane styles.
var (
	logDebugStyle = lipgloss.NewStyle().Foreground(mutedColor)
	logInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	logWarnStyle  = lipgloss.NewStyle().Foreground(warningColor)
	logErrorStyle = lipgloss.NewStyle().Foreground(dangerColor)
)

// logLevelStyle returns the style for a log level.
func logLevelStyle(level logging.Level) lipgloss.Style {
	switch level {
	case logging.LevelDebug:
		return logDebugStyle
	case logging.LevelWarn:
		return logWarnStyle
	case logging.LevelError:
		return logErrorStyle
	default:
		return logInfoStyle
	}
}

// logLevelChar returns a single character for the log level.
func logLevelChar(level logging.Level) string {
	switch level {
	case logging.LevelDebug:
		return "D"
	case logging.LevelWarn:
		return "W"
	case logging.LevelError:
		return "E"
	default:
		return "I"
	}
}
