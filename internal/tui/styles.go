package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/tanko-dl/tanko/internal/tui/colors"
)

var (
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colors.Border).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Foreground(colors.Cyan).
			Bold(true)

	tabStyle = lipgloss.NewStyle().
			Foreground(colors.Subtle).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(colors.Pink).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(colors.Pink).
			Padding(0, 1).
			Bold(true)

	cursorStyle = lipgloss.NewStyle().
			Foreground(colors.Pink).
			Bold(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(colors.Subtle)

	statusStyle = lipgloss.NewStyle().
			Foreground(colors.Cyan)

	errorStyle = lipgloss.NewStyle().
			Foreground(colors.StateFailed)

	helpStyle = lipgloss.NewStyle().
			Foreground(colors.Subtle).
			MarginTop(1)
)

// stateStyles maps a rendered task state to its color.
var stateStyles = map[string]lipgloss.Style{
	"pending":   lipgloss.NewStyle().Foreground(colors.Subtle),
	"running":   lipgloss.NewStyle().Foreground(colors.StateRunning),
	"paused":    lipgloss.NewStyle().Foreground(colors.StatePaused),
	"cancelled": lipgloss.NewStyle().Foreground(colors.Subtle),
	"completed": lipgloss.NewStyle().Foreground(colors.StateCompleted),
	"failed":    lipgloss.NewStyle().Foreground(colors.StateFailed),
}
