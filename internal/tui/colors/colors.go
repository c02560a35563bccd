// Package colors holds the terminal palette shared by the TUI styles.
package colors

import "github.com/charmbracelet/lipgloss"

var (
	Accent = lipgloss.AdaptiveColor{Light: "#5d40c9", Dark: "#bd93f9"}
	Pink   = lipgloss.AdaptiveColor{Light: "#d10074", Dark: "#ff79c6"}
	Cyan   = lipgloss.AdaptiveColor{Light: "#0073a8", Dark: "#8be9fd"}
	Border = lipgloss.AdaptiveColor{Light: "#d0d0d0", Dark: "#44475a"}
	Subtle = lipgloss.AdaptiveColor{Light: "#4a4a4a", Dark: "#a9b1d6"}
	Text   = lipgloss.AdaptiveColor{Light: "#1a1a1a", Dark: "#f8f8f2"}
)

// Task state colors
var (
	StateFailed    = lipgloss.AdaptiveColor{Light: "#d32f2f", Dark: "#ff5555"}
	StatePaused    = lipgloss.AdaptiveColor{Light: "#f57c00", Dark: "#ffb86c"}
	StateRunning   = lipgloss.AdaptiveColor{Light: "#2e7d32", Dark: "#50fa7b"}
	StateCompleted = lipgloss.AdaptiveColor{Light: "#7b1fa2", Dark: "#bd93f9"}
)

// Logo gradient endpoints
const (
	LogoStart = "#ff79c6"
	LogoEnd   = "#bd93f9"
)
