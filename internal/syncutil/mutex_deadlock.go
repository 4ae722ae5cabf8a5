//go:build deadlock

// Package syncutil switches the module's locks to go-deadlock when built
// with -tags=deadlock.
package syncutil

import (
	"time"

	deadlock "github.com/sasha-s/go-deadlock"
)

// LockReportTimeout is how long a lock may be held or waited on before
// go-deadlock reports it. Device holds its lock for a whole discovery
// window, which callers may set to many seconds.
const LockReportTimeout = 2 * time.Minute

func init() {
	deadlock.Opts.DeadlockTimeout = LockReportTimeout
}

// Mutex is a deadlock-detecting mutex.
type Mutex struct {
	deadlock.Mutex
}

// RWMutex is a deadlock-detecting read/write mutex.
type RWMutex struct {
	deadlock.RWMutex
}
