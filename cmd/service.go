package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tanko-dl/tanko/internal/client"
	"github.com/tanko-dl/tanko/internal/config"
	"github.com/tanko-dl/tanko/internal/core"
	"github.com/tanko-dl/tanko/internal/events"
	"github.com/tanko-dl/tanko/internal/utils"
)

// newService builds a LocalService from the saved settings and session.
// Without a configured base URL the service comes up offline: library,
// history and export still work, shelf operations report
// core.ErrNotConfigured.
func newService() (*core.LocalService, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	var cli *client.Client
	if settings.Network.BaseURL != "" {
		session, err := config.LoadSession()
		if err != nil {
			utils.Debug("Load session: %v", err)
			session = &config.Session{}
		}
		cli, err = client.New(client.Config{
			BaseURL:   settings.Network.BaseURL,
			UserAgent: settings.Network.UserAgent,
			ProxyURL:  settings.Network.ProxyURL,
			Timeout:   settings.Network.RequestTimeout,
			Token:     session.Token,
		})
		if err != nil {
			return nil, fmt.Errorf("build shelf client: %w", err)
		}
	}

	return core.NewLocalService(cli, settings), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// printEvent logs one engine event and reports whether it queued or
// finished a task.
func printEvent(msg any) (queued, done int) {
	switch ev := msg.(type) {
	case events.TaskQueuedMsg:
		fmt.Printf("Queued: %s - %s\n", ev.ComicTitle, ev.ChapterTitle)
		return 1, 0
	case events.TaskStartedMsg:
		fmt.Printf("Started: %s (%d pages)\n", ev.ComicTitle, ev.TotalPages)
	case events.TaskCompletedMsg:
		fmt.Printf("Completed: %s (%d pages in %s)\n", ev.ComicTitle, ev.Pages, ev.Elapsed.Round(10*time.Millisecond))
		return 0, 1
	case events.TaskFailedMsg:
		fmt.Printf("Error: %s: %v\n", ev.ComicTitle, ev.Err)
		return 0, 1
	case events.TaskCancelledMsg:
		fmt.Printf("Cancelled: chapter %d\n", ev.ChapterID)
		return 0, 1
	case events.TaskPausedMsg:
		fmt.Printf("Paused: chapter %d\n", ev.ChapterID)
	case events.TaskResumedMsg:
		fmt.Printf("Resumed: chapter %d\n", ev.ChapterID)
	case events.SyncStartedMsg:
		fmt.Println("Sync: enumerating favorites")
	case events.SyncFetchingComicsMsg:
		fmt.Printf("Sync: fetching %d comics\n", ev.Total)
	case events.SyncTasksCreatedMsg:
		fmt.Printf("Sync: queued %d chapters\n", ev.Created)
	}
	return 0, 0
}

// consumeEvents prints engine events until the context ends or the
// stream closes.
func consumeEvents(ctx context.Context, stream <-chan any) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-stream:
			if !ok {
				return
			}
			printEvent(msg)
		}
	}
}

// queueAndConsume runs the queue function in the background while
// draining events live, so the listener buffer cannot overflow during a
// slow enumeration. It returns once everything the queue function
// created (plus anything queued meanwhile) has reached a terminal
// state. The subscription must predate the call or the count never
// settles.
func queueAndConsume(ctx context.Context, stream <-chan any, queue func() (int, error)) (int, error) {
	type result struct {
		created int
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		created, err := queue()
		resCh <- result{created, err}
	}()

	seenQueued, seenDone := 0, 0
	waitFor := -1
	for {
		select {
		case <-ctx.Done():
			return seenQueued, ctx.Err()
		case res := <-resCh:
			if res.err != nil {
				return res.created, res.err
			}
			waitFor = res.created
			resCh = nil
		case msg, ok := <-stream:
			if !ok {
				return seenQueued, nil
			}
			q, d := printEvent(msg)
			seenQueued += q
			seenDone += d
		}
		if waitFor >= 0 && seenQueued >= waitFor && seenDone >= seenQueued {
			return waitFor, nil
		}
	}
}
