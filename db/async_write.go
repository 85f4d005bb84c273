package db

import (
	"context"
	"sync"
	"time"
)

// DefaultChannelCapacity is the default buffer size for the async write queue.
const DefaultChannelCapacity = 100

// WriteOperation is one queued database write.
type WriteOperation struct {
	// Data holds the write payload
	Data any
	// Timestamp when the operation was queued
	Timestamp time.Time
}

// WriteHandler processes one write operation. Implementations handle their
// own error logging; a failed audit write never propagates to the request
// path.
type WriteHandler func(op WriteOperation) error

// AsyncWriter decouples audit writes from the request path using a buffered
// channel and a single background goroutine. Enqueueing never blocks: when
// the buffer is full the write is dropped (the audit log is best-effort).
type AsyncWriter struct {
	writeChan chan WriteOperation
	handler   WriteHandler
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	started   bool
	mu        sync.Mutex
}

// NewAsyncWriter creates an AsyncWriter with the given queue capacity.
// Zero or negative capacity uses DefaultChannelCapacity.
func NewAsyncWriter(handler WriteHandler, capacity int) *AsyncWriter {
	if capacity <= 0 {
		capacity = DefaultChannelCapacity
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &AsyncWriter{
		writeChan: make(chan WriteOperation, capacity),
		handler:   handler,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start begins background processing. Idempotent.
func (w *AsyncWriter) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}
	w.started = true
	w.wg.Add(1)
	go w.processWrites()
}

func (w *AsyncWriter) processWrites() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			w.drain()
			return
		case op := <-w.writeChan:
			_ = w.handler(op)
		}
	}
}

// drain processes whatever is still buffered at shutdown.
func (w *AsyncWriter) drain() {
	for {
		select {
		case op := <-w.writeChan:
			_ = w.handler(op)
		default:
			return
		}
	}
}

// Write queues an operation. Returns false when the buffer is full; the
// caller decides whether to fall back to a synchronous write.
func (w *AsyncWriter) Write(data any) bool {
	select {
	case w.writeChan <- WriteOperation{Data: data, Timestamp: time.Now()}:
		return true
	default:
		return false
	}
}

// Pending returns the number of operations waiting in the buffer.
func (w *AsyncWriter) Pending() int {
	return len(w.writeChan)
}

// IsStarted reports whether the background processor is running.
func (w *AsyncWriter) IsStarted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.started
}

// Stop cancels processing and waits for the queue to drain.
func (w *AsyncWriter) Stop() {
	w.cancel()
	w.wg.Wait()
}

// StopWithTimeout stops the writer, giving the drain at most the timeout.
// Returns false when the drain did not finish in time.
func (w *AsyncWriter) StopWithTimeout(timeout time.Duration) bool {
	w.cancel()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
