package handlers

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestSessionLocks_WaitersShareOneLock(t *testing.T) {
	var locks sessionLocks
	id := uuid.New()

	release := locks.acquire(id)
	acquired := make(chan func())
	go func() { acquired <- locks.acquire(id) }()

	select {
	case <-acquired:
		t.Fatal("second request entered while the session was locked")
	case <-time.After(20 * time.Millisecond):
	}

	// Releasing the holder must not drop the entry the waiter is queued on.
	release()
	assert.Equal(t, 1, locks.len())

	var releaseWaiter func()
	select {
	case releaseWaiter = <-acquired:
	case <-time.After(time.Second):
		t.Fatal("waiter never acquired the lock")
	}

	third := make(chan func())
	go func() { third <- locks.acquire(id) }()
	select {
	case <-third:
		t.Fatal("a new request bypassed the held lock")
	case <-time.After(20 * time.Millisecond):
	}
	releaseWaiter()
	(<-third)()

	assert.Equal(t, 0, locks.len(), "idle sessions hold no lock entry")
}

func TestSessionLocks_Concurrent(t *testing.T) {
	var locks sessionLocks
	id := uuid.New()
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.acquire(id)
			defer release()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Equal(t, 0, locks.len())
}
