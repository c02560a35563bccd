// Package tui is the interactive dashboard: live download tasks, the
// local library, and shelf search, backed by a core.Service.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/tanko-dl/tanko/internal/core"
	"github.com/tanko-dl/tanko/internal/download"
	shelf "github.com/tanko-dl/tanko/internal/model"
)

type viewState int

const (
	tasksView viewState = iota
	libraryView
	searchInputView
	searchResultsView
)

// Model is the bubbletea root model.
type Model struct {
	svc     core.Service
	version string

	state  viewState
	width  int
	height int
	cursor int

	tasks   []download.TaskView
	library []*shelf.Comic
	hits    []shelf.SearchHit

	searchInput textinput.Model
	bar         progress.Model
	spin        spinner.Model

	syncing bool
	syncMsg string

	events <-chan any
	status string
	errMsg string
}

// New builds the root model over a running service.
func New(svc core.Service, version string) Model {
	input := textinput.New()
	input.Placeholder = "title or comic id"
	input.Width = 40
	input.Prompt = "/ "

	spin := spinner.New()
	spin.Spinner = spinner.Dot

	return Model{
		svc:         svc,
		version:     version,
		state:       tasksView,
		tasks:       svc.Tasks(),
		searchInput: input,
		bar:         progress.New(progress.WithDefaultGradient()),
		spin:        spin,
		events:      svc.StreamEvents(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(listenForEvents(m.events), m.spin.Tick)
}

// engineEventMsg wraps one event from the service stream.
type engineEventMsg struct {
	ev any
}

// listenForEvents waits for the next engine event. Update re-arms it
// after each delivery.
func listenForEvents(sub <-chan any) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub
		if !ok {
			return nil
		}
		return engineEventMsg{ev: ev}
	}
}

type searchDoneMsg struct {
	result *shelf.SearchResult
	err    error
}

func (m Model) searchCmd(keyword string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.svc.Search(context.Background(), keyword, 1, shelf.SearchSortLatest)
		return searchDoneMsg{result: result, err: err}
	}
}

type libraryLoadedMsg struct {
	comics []*shelf.Comic
	err    error
}

func (m Model) loadLibraryCmd() tea.Cmd {
	return func() tea.Msg {
		comics, err := m.svc.DownloadedComics()
		return libraryLoadedMsg{comics: comics, err: err}
	}
}

type downloadQueuedMsg struct {
	comicID int64
	created int
	err     error
}

func (m Model) downloadComicCmd(comicID int64) tea.Cmd {
	return func() tea.Msg {
		created, err := m.svc.DownloadComic(context.Background(), comicID)
		return downloadQueuedMsg{comicID: comicID, created: created, err: err}
	}
}

type syncDoneMsg struct {
	created int
	err     error
}

func (m Model) syncCmd() tea.Cmd {
	return func() tea.Msg {
		created, err := m.svc.UpdateDownloadedFavorites(context.Background())
		return syncDoneMsg{created: created, err: err}
	}
}
