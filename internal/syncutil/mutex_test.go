package syncutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMutex_SerializesWriters(t *testing.T) {
	t.Parallel()

	var (
		mu    Mutex
		wg    sync.WaitGroup
		count int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mu.Lock()
			count++
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, count)
}

func TestRWMutex_ConcurrentReaders(t *testing.T) {
	t.Parallel()

	var mu RWMutex
	mu.RLock()
	mu.RLock()
	mu.RUnlock()
	mu.RUnlock()

	mu.Lock()
	mu.Unlock()
	assert.Positive(t, LockReportTimeout)
}
