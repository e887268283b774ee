// Package dispatcher runs a step function repeatedly on its own goroutine
// with cooperative cancellation.
package dispatcher

import (
	"sync"
	"sync/atomic"
	"time"
)

// CancellableTimer is handed to each step. TrySleep is the only point at
// which cancellation is observed.
type CancellableTimer struct {
	cancel <-chan struct{}
}

// TrySleep waits for d. It returns true when the full interval elapsed and
// false when cancellation was requested first.
func (t CancellableTimer) TrySleep(d time.Duration) bool {
	select {
	case <-t.cancel:
		return false
	default:
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-t.cancel:
		return false
	case <-timer.C:
		return true
	}
}

// Cancelled reports whether stop has been requested.
func (t CancellableTimer) Cancelled() bool {
	select {
	case <-t.cancel:
		return true
	default:
		return false
	}
}

// ActiveObject repeatedly calls step on a dedicated goroutine between
// Start and Stop.
type ActiveObject struct {
	step func(CancellableTimer)

	// running turns false as soon as Stop begins, without waiting for mu.
	running atomic.Bool

	// mu serializes Start and Stop.
	mu           sync.Mutex
	shutdownChan chan struct{}
	doneChan     chan struct{}
}

func NewActiveObject(step func(CancellableTimer)) *ActiveObject {
	return &ActiveObject{step: step}
}

// Start launches the loop. It is a no-op while the loop is running.
func (a *ActiveObject) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.shutdownChan != nil {
		return
	}

	a.shutdownChan = make(chan struct{})
	a.doneChan = make(chan struct{})
	a.running.Store(true)
	go a.run(CancellableTimer{cancel: a.shutdownChan}, a.doneChan)
}

// Stop requests cancellation and blocks until the loop goroutine has
// exited. It returns false if the loop was not running.
//
// Stop must not be called from inside step.
func (a *ActiveObject) Stop() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.shutdownChan == nil {
		return false
	}

	a.running.Store(false)
	close(a.shutdownChan)
	<-a.doneChan

	a.shutdownChan = nil
	a.doneChan = nil

	return true
}

// IsActive reports whether the loop is running. It never blocks, so step
// and anything step calls may use it while Stop is waiting.
func (a *ActiveObject) IsActive() bool {
	return a.running.Load()
}

func (a *ActiveObject) run(timer CancellableTimer, done chan<- struct{}) {
	defer close(done)

	for !timer.Cancelled() {
		a.step(timer)
	}
}
