package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tanko-dl/tanko/internal/download"
	"github.com/tanko-dl/tanko/internal/tui/colors"
)

var logo = strings.Join([]string{
	"  _              _         ",
	" | |_ __ _ _ __ | | _____  ",
	" | __/ _` | '_ \\| |/ / _ \\ ",
	" | || (_| | | | |   < (_) |",
	"  \\__\\__,_|_| |_|_|\\_\\___/ ",
}, "\n")

// View renders the whole screen.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(applyGradient(logo, colors.LogoStart, colors.LogoEnd))
	b.WriteString(subtleStyle.Render("  v" + m.version))
	b.WriteString("\n\n")
	b.WriteString(m.tabBar())
	b.WriteString("\n\n")

	switch m.state {
	case tasksView:
		b.WriteString(m.tasksContent())
	case libraryView:
		b.WriteString(m.libraryContent())
	case searchInputView:
		b.WriteString(titleStyle.Render("Search the shelf"))
		b.WriteString("\n")
		b.WriteString(paneStyle.Render(m.searchInput.View()))
	case searchResultsView:
		b.WriteString(m.searchContent())
	}
	b.WriteString("\n")

	if m.syncing {
		b.WriteString("\n" + statusStyle.Render(m.spin.View()+"Syncing favorites: "+m.syncMsg))
	}
	if m.errMsg != "" {
		b.WriteString("\n" + errorStyle.Render(m.errMsg))
	} else if m.status != "" {
		b.WriteString("\n" + statusStyle.Render(m.status))
	}

	b.WriteString(helpStyle.Render("\n" + m.helpLine()))
	return b.String()
}

func (m Model) tabBar() string {
	names := []string{"tasks", "library", "search"}
	active := 0
	switch m.state {
	case libraryView:
		active = 1
	case searchInputView, searchResultsView:
		active = 2
	}

	tabs := make([]string, len(names))
	for i, name := range names {
		if i == active {
			tabs[i] = activeTabStyle.Render(name)
		} else {
			tabs[i] = tabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)
}

func (m Model) tasksContent() string {
	if len(m.tasks) == 0 {
		return subtleStyle.Render("No tasks. Press / to search the shelf or s to sync favorites.")
	}

	var rows []string
	for i, t := range m.tasks {
		rows = append(rows, m.taskRow(i, t))
	}
	return strings.Join(rows, "\n")
}

func (m Model) taskRow(i int, t download.TaskView) string {
	marker := "  "
	if i == m.cursor {
		marker = cursorStyle.Render("> ")
	}

	state := t.State.String()
	label := fmt.Sprintf("%-9s", state)
	if style, ok := stateStyles[state]; ok {
		label = style.Render(label)
	}

	title := truncate(t.ComicTitle+": "+t.ChapterTitle, 38)

	pct := 0.0
	switch {
	case t.State == download.StateCompleted:
		pct = 1.0
	case t.Total > 0:
		pct = float64(t.Completed) / float64(t.Total)
	}

	counts := fmt.Sprintf("%3d/%-3d", t.Completed, t.Total)
	if t.Total == 0 {
		counts = "  -/-  "
	}

	row := fmt.Sprintf("%s%s %-38s %s %s", marker, label, title, m.bar.ViewAs(pct), counts)
	if t.State == download.StateFailed && t.Reason != "" {
		row += "\n    " + errorStyle.Render(truncate(t.Reason, 70))
	}
	return row
}

func (m Model) libraryContent() string {
	if len(m.library) == 0 {
		return subtleStyle.Render("Library is empty. Download something first.")
	}

	var rows []string
	for i, c := range m.library {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}

		have := 0
		for _, ch := range c.Chapters {
			if ch.Downloaded {
				have++
			}
		}
		check := "  "
		if c.Downloaded {
			check = statusStyle.Render("ok")
		}
		rows = append(rows, fmt.Sprintf("%s%-40s %3d/%-3d chapters %s", marker, truncate(c.Title, 40), have, len(c.Chapters), check))
	}
	return strings.Join(rows, "\n")
}

func (m Model) searchContent() string {
	if len(m.hits) == 0 {
		return subtleStyle.Render("No results yet.")
	}

	var rows []string
	for i, hit := range m.hits {
		marker := "  "
		if i == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		author := hit.Author
		if author == "" {
			author = "-"
		}
		rows = append(rows, fmt.Sprintf("%s%-40s %-20s #%d", marker, truncate(hit.Title, 40), truncate(author, 20), hit.ID))
	}
	return strings.Join(rows, "\n")
}

func (m Model) helpLine() string {
	switch m.state {
	case tasksView:
		return "up/down move | p pause/resume | x cancel | c clear | s sync | / search | tab library | q quit"
	case libraryView:
		return "up/down move | d download missing | r reload | tab tasks | q quit"
	case searchInputView:
		return "enter search | esc back"
	case searchResultsView:
		return "up/down move | d download | esc back | q quit"
	}
	return ""
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
