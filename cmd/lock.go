package cmd

import (
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/tanko-dl/tanko/internal/config"
)

var instanceLock *flock.Flock

// AcquireLock takes the single-instance lock. A false return means
// another tanko process holds it.
func AcquireLock() (bool, error) {
	instanceLock = flock.New(filepath.Join(config.GetStateDir(), "tanko.lock"))
	return instanceLock.TryLock()
}

// ReleaseLock frees the single-instance lock.
func ReleaseLock() error {
	if instanceLock == nil {
		return nil
	}
	return instanceLock.Unlock()
}
