package device

import "sync"

// TransferProgress reports incremental movement of one transfer.
type TransferProgress struct {
	// ID identifies the transfer, normally the pack UUID.
	ID string
	// Transferred and Total are cumulative byte counts across every
	// file in the transfer.
	Transferred int64
	Total       int64
	// Speed is the average transfer rate in bytes per second since the
	// transfer started.
	Speed float64
}

// Fraction reports transfer completion in [0, 1].
func (p TransferProgress) Fraction() float64 {
	if p.Total <= 0 {
		return 0
	}
	return float64(p.Transferred) / float64(p.Total)
}

// TransferComplete is published exactly once per transfer, after the
// final progress event.
type TransferComplete struct {
	ID      string
	Success bool
	Err     error
}

// ProgressFunc receives progress callbacks during a transfer.
type ProgressFunc func(TransferProgress)

// Events fans transfer events out to registered subscribers. Callbacks
// run on the transfer goroutine, so subscribers must not block.
type Events struct {
	mu         sync.RWMutex
	onProgress []ProgressFunc
	onComplete []func(TransferComplete)
}

// NewEvents constructs an empty hub.
func NewEvents() *Events {
	return &Events{}
}

// SubscribeProgress registers a callback for progress events.
func (e *Events) SubscribeProgress(fn ProgressFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onProgress = append(e.onProgress, fn)
}

// SubscribeComplete registers a callback for completion events.
func (e *Events) SubscribeComplete(fn func(TransferComplete)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onComplete = append(e.onComplete, fn)
}

func (e *Events) publishProgress(p TransferProgress) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.onProgress {
		fn(p)
	}
}

func (e *Events) publishComplete(c TransferComplete) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, fn := range e.onComplete {
		fn(c)
	}
}
