package download

import (
	"sort"
	"sync"

	"github.com/tanko-dl/tanko/internal/model"
)

// registry is the authoritative map from chapter ID to task. All access
// goes through its mutex; nothing blocking happens while it is held.
type registry struct {
	mu    sync.Mutex
	tasks map[int64]*task
}

func newRegistry() *registry {
	return &registry{tasks: make(map[int64]*task)}
}

// upsert returns the live task for a chapter, creating one when the
// chapter is unknown or its previous task reached a terminal state.
// fresh reports whether a new runner must be spawned.
func (r *registry) upsert(comic *model.Comic, ch model.ChapterInfo) (t *task, fresh bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.tasks[ch.ChapterID]; ok && !existing.currentState().Terminal() {
		return existing, false
	}

	t = &task{
		chapterID:    ch.ChapterID,
		comicID:      comic.ID,
		comicTitle:   comic.Title,
		chapterTitle: ch.Title,
		chapterOrder: ch.Order,
		control:      make(chan signal, 1),
		state:        StatePending,
	}
	r.tasks[ch.ChapterID] = t
	return t, true
}

func (r *registry) get(chapterID int64) (*task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[chapterID]
	return t, ok
}

// signal relays intent to a task's runner. Unknown chapters fail with
// ErrTaskNotFound; signaling a terminal task is a no-op.
func (r *registry) signal(chapterID int64, s signal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[chapterID]
	if !ok {
		return ErrTaskNotFound
	}
	if t.currentState().Terminal() {
		return nil
	}
	t.send(s)
	return nil
}

// list snapshots every task, ordered by comic title then reading order.
func (r *registry) list() []TaskView {
	r.mu.Lock()
	views := make([]TaskView, 0, len(r.tasks))
	for _, t := range r.tasks {
		views = append(views, t.view())
	}
	r.mu.Unlock()

	sort.Slice(views, func(i, j int) bool {
		if views[i].ComicTitle != views[j].ComicTitle {
			return views[i].ComicTitle < views[j].ComicTitle
		}
		return views[i].ChapterOrder < views[j].ChapterOrder
	})
	return views
}

// clearFinished drops terminal tasks and returns how many went.
func (r *registry) clearFinished() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cleared := 0
	for id, t := range r.tasks {
		if t.currentState().Terminal() {
			delete(r.tasks, id)
			cleared++
		}
	}
	return cleared
}
