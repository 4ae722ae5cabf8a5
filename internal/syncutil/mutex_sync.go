//go:build !deadlock

// Package syncutil switches the module's locks to go-deadlock when built
// with -tags=deadlock. Without the tag the types are plain sync locks.
package syncutil

import (
	"sync"
	"time"
)

// LockReportTimeout mirrors the deadlock build. It has no effect here.
const LockReportTimeout = 2 * time.Minute

// Mutex is sync.Mutex.
//
//nolint:gocritic // embedding exposes Lock and Unlock
type Mutex struct {
	sync.Mutex
}

// RWMutex is sync.RWMutex.
//
//nolint:gocritic // embedding exposes the full RWMutex API
type RWMutex struct {
	sync.RWMutex
}
