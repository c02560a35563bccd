package download

import "sync"

// signal is one control intent relayed from the Manager to a runner.
type signal int

const (
	signalPause signal = iota
	signalResume
	signalCancel
)

// task is one registry entry. The runner owns state and progress; the
// Manager only writes into the control channel.
type task struct {
	chapterID    int64
	comicID      int64
	comicTitle   string
	chapterTitle string
	chapterOrder int

	// control carries the latest pending signal. Capacity one: a newer
	// signal replaces an unconsumed older one.
	control chan signal

	mu        sync.Mutex
	state     State
	completed int
	total     int
	reason    string
}

// TaskView is a consistent snapshot of one task.
type TaskView struct {
	ChapterID    int64
	ComicID      int64
	ComicTitle   string
	ChapterTitle string
	ChapterOrder int
	State        State
	Completed    int
	Total        int
	Reason       string
}

func (t *task) view() TaskView {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TaskView{
		ChapterID:    t.chapterID,
		ComicID:      t.comicID,
		ComicTitle:   t.comicTitle,
		ChapterTitle: t.chapterTitle,
		ChapterOrder: t.chapterOrder,
		State:        t.state,
		Completed:    t.completed,
		Total:        t.total,
		Reason:       t.reason,
	}
}

func (t *task) currentState() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// setState moves to next when the edge is legal; illegal moves are
// dropped, so a terminal state never changes again.
func (t *task) setState(next State) {
	t.mu.Lock()
	if t.state.CanTransition(next) {
		t.state = next
	}
	t.mu.Unlock()
}

func (t *task) fail(reason string) {
	t.mu.Lock()
	if t.state.CanTransition(StateFailed) {
		t.state = StateFailed
		t.reason = reason
	}
	t.mu.Unlock()
}

func (t *task) setTotal(total int) {
	t.mu.Lock()
	t.total = total
	t.mu.Unlock()
}

func (t *task) setProgress(completed, total int) {
	t.mu.Lock()
	t.completed = completed
	t.total = total
	t.mu.Unlock()
}

// advance bumps the completed counter, never past the total.
func (t *task) advance() (completed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.total == 0 || t.completed < t.total {
		t.completed++
	}
	return t.completed, t.total
}

func (t *task) progress() (completed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completed, t.total
}

// send delivers a signal latest-wins: a stale unconsumed signal is
// dropped rather than queued behind.
func (t *task) send(s signal) {
	for {
		select {
		case t.control <- s:
			return
		default:
		}
		select {
		case <-t.control:
		default:
		}
	}
}
