package analysis

import (
	"log/slog"
	"sync"
)

// Observer receives short status strings at fixed pipeline checkpoints.
type Observer interface {
	Progress(status string)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(status string)

// Progress implements Observer.
func (f ObserverFunc) Progress(status string) { f(status) }

const progressQueueSize = 8

// Progress forwards status updates to an Observer without letting it block or
// break the pipeline. Updates are queued and delivered in order by a single
// goroutine; when the queue is full the update is dropped.
type Progress struct {
	mu     sync.Mutex
	ch     chan string
	closed bool
}

// NewProgress starts delivering updates to obs. A nil observer yields a
// Progress that discards everything. Call Close when the analysis is done.
func NewProgress(obs Observer) *Progress {
	p := &Progress{}
	if obs == nil {
		return p
	}
	p.ch = make(chan string, progressQueueSize)
	go func() {
		for status := range p.ch {
			deliver(obs, status)
		}
	}()
	return p
}

func deliver(obs Observer, status string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("progress observer panicked", "status", status, "panic", r)
		}
	}()
	obs.Progress(status)
}

// Notify queues a status update. It never blocks.
func (p *Progress) Notify(status string) {
	if p == nil || p.ch == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	select {
	case p.ch <- status:
	default:
		slog.Debug("progress update dropped", "status", status)
	}
}

// Close stops accepting updates. Already queued updates are still delivered.
func (p *Progress) Close() {
	if p == nil || p.ch == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.ch)
	}
}
