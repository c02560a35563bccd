package download

import "errors"

var (
	// ErrTaskNotFound is returned by signal operations on an unknown chapter.
	ErrTaskNotFound = errors.New("download task not found")

	// ErrInvalidPayload is returned when a task is created from a comic
	// missing the identifiers the runner needs.
	ErrInvalidPayload = errors.New("invalid download payload")

	// ErrNothingToDownload is returned when every chapter of a comic is
	// already in the library.
	ErrNothingToDownload = errors.New("all chapters already downloaded")
)
