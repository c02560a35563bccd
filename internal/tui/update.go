package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tanko-dl/tanko/internal/download"
	"github.com/tanko-dl/tanko/internal/events"
	shelf "github.com/tanko-dl/tanko/internal/model"
)

func (m *Model) setStatus(s string) {
	m.status = s
	m.errMsg = ""
}

func (m *Model) setError(s string) {
	m.errMsg = s
	m.status = ""
}

func (m *Model) refreshTasks() {
	m.tasks = m.svc.Tasks()
	m.clampCursor()
}

func (m *Model) clampCursor() {
	last := 0
	switch m.state {
	case tasksView:
		last = len(m.tasks) - 1
	case libraryView:
		last = len(m.library) - 1
	case searchResultsView:
		last = len(m.hits) - 1
	}
	if m.cursor > last {
		m.cursor = last
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// Update handles messages and advances the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case engineEventMsg:
		m.applyEvent(msg.ev)
		cmds = append(cmds, listenForEvents(m.events))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		cmds = append(cmds, cmd)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := msg.Width - 46
		if barWidth > 40 {
			barWidth = 40
		}
		if barWidth < 10 {
			barWidth = 10
		}
		m.bar.Width = barWidth

	case searchDoneMsg:
		if msg.err != nil {
			m.setError("Search failed: " + msg.err.Error())
			break
		}
		switch {
		case msg.result.Comic != nil:
			c := msg.result.Comic
			author := ""
			if len(c.Authors) > 0 {
				author = c.Authors[0]
			}
			m.hits = []shelf.SearchHit{{ID: c.ID, Title: c.Title, Author: author}}
			m.setStatus("Resolved comic " + c.Title)
		case msg.result.Page != nil:
			m.hits = msg.result.Page.Hits
			if len(m.hits) == 0 {
				m.setStatus("No results")
			} else {
				m.setStatus(fmt.Sprintf("%d of %d results", len(m.hits), msg.result.Page.Total))
			}
		}
		m.cursor = 0

	case libraryLoadedMsg:
		if msg.err != nil {
			m.setError("Library scan failed: " + msg.err.Error())
			break
		}
		m.library = msg.comics
		m.clampCursor()

	case downloadQueuedMsg:
		switch {
		case errors.Is(msg.err, download.ErrNothingToDownload):
			m.setStatus("Library already has every chapter")
		case msg.err != nil:
			m.setError("Download failed: " + msg.err.Error())
		default:
			m.setStatus(fmt.Sprintf("Queued %d chapters", msg.created))
			m.state = tasksView
			m.cursor = 0
			m.refreshTasks()
		}

	case syncDoneMsg:
		m.syncing = false
		if msg.err != nil {
			m.setError("Sync failed: " + msg.err.Error())
		} else {
			m.setStatus(fmt.Sprintf("Sync queued %d chapters", msg.created))
		}
		m.refreshTasks()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, tea.Batch(cmds...)
}

// applyEvent folds one engine event into the model.
func (m *Model) applyEvent(ev any) {
	switch ev := ev.(type) {
	case events.TaskQueuedMsg:
		m.setStatus("Queued " + ev.ChapterTitle + " of " + ev.ComicTitle)
	case events.TaskStartedMsg:
		m.setStatus(fmt.Sprintf("Downloading %s (%d pages)", ev.ComicTitle, ev.TotalPages))
	case events.TaskCompletedMsg:
		m.setStatus(fmt.Sprintf("Completed %s (%d pages in %s)", ev.ComicTitle, ev.Pages, ev.Elapsed.Round(10*time.Millisecond)))
	case events.TaskFailedMsg:
		m.setError(fmt.Sprintf("Failed %s: %v", ev.ComicTitle, ev.Err))
	case events.TaskPausedMsg:
		m.setStatus(fmt.Sprintf("Paused chapter %d", ev.ChapterID))
	case events.TaskResumedMsg:
		m.setStatus(fmt.Sprintf("Resumed chapter %d", ev.ChapterID))
	case events.TaskCancelledMsg:
		m.setStatus(fmt.Sprintf("Cancelled chapter %d", ev.ChapterID))
	case events.SyncStartedMsg:
		m.syncing = true
		m.syncMsg = "enumerating favorites"
	case events.SyncFetchingComicsMsg:
		m.syncMsg = fmt.Sprintf("fetching %d comics", ev.Total)
	case events.SyncComicFetchedMsg:
		m.syncMsg = fmt.Sprintf("comic %d of %d", ev.Current, ev.Total)
	case events.SyncTasksCreatedMsg:
		m.syncing = false
	}
	m.refreshTasks()
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case tasksView:
		keys := Keys.Tasks
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.tasks)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.PauseResume):
			if m.cursor < len(m.tasks) {
				t := m.tasks[m.cursor]
				var err error
				if t.State == download.StatePaused {
					err = m.svc.Resume(t.ChapterID)
				} else {
					err = m.svc.Pause(t.ChapterID)
				}
				if err != nil {
					m.setError(err.Error())
				}
			}
		case key.Matches(msg, keys.Cancel):
			if m.cursor < len(m.tasks) {
				if err := m.svc.Cancel(m.tasks[m.cursor].ChapterID); err != nil {
					m.setError(err.Error())
				}
			}
		case key.Matches(msg, keys.Clear):
			cleared := m.svc.ClearFinished()
			m.refreshTasks()
			m.setStatus(fmt.Sprintf("Cleared %d finished tasks", cleared))
		case key.Matches(msg, keys.Sync):
			if !m.syncing {
				m.syncing = true
				m.syncMsg = "starting"
				return m, m.syncCmd()
			}
		case key.Matches(msg, keys.Search):
			m.state = searchInputView
			m.searchInput.SetValue("")
			m.searchInput.Focus()
			return m, textinput.Blink
		case key.Matches(msg, keys.NextTab):
			m.state = libraryView
			m.cursor = 0
			return m, m.loadLibraryCmd()
		}

	case libraryView:
		keys := Keys.Library
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.library)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Download):
			if m.cursor < len(m.library) {
				c := m.library[m.cursor]
				m.setStatus("Fetching " + c.Title)
				return m, m.downloadComicCmd(c.ID)
			}
		case key.Matches(msg, keys.Reload):
			return m, m.loadLibraryCmd()
		case key.Matches(msg, keys.NextTab):
			m.state = tasksView
			m.cursor = 0
			m.refreshTasks()
		}

	case searchInputView:
		keys := Keys.Input
		switch {
		case key.Matches(msg, keys.Cancel):
			m.state = tasksView
			m.searchInput.Blur()
		case key.Matches(msg, keys.Confirm):
			keyword := strings.TrimSpace(m.searchInput.Value())
			if keyword == "" {
				return m, nil
			}
			m.searchInput.Blur()
			m.state = searchResultsView
			m.hits = nil
			m.cursor = 0
			m.setStatus("Searching " + keyword)
			return m, m.searchCmd(keyword)
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			return m, cmd
		}

	case searchResultsView:
		keys := Keys.Search
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Back):
			m.state = tasksView
			m.cursor = 0
			m.refreshTasks()
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.hits)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Download):
			if m.cursor < len(m.hits) {
				hit := m.hits[m.cursor]
				m.setStatus("Fetching " + hit.Title)
				return m, m.downloadComicCmd(hit.ID)
			}
		}
	}

	return m, nil
}
