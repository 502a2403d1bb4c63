package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// defaultQueueSize bounds the number of entries waiting to be written.
	defaultQueueSize = 1024

	// writeTimeout bounds a single insert.
	writeTimeout = 5 * time.Second
)

// Logger is the logging interface used by the recorder.
type Logger interface {
	Error(msg string, args ...any)
}

// Recorder queues entries and writes them on a single background goroutine,
// so callers on the forwarding path never wait on the database.
type Recorder struct {
	repo  Repository
	queue chan Entry

	dropped atomic.Uint64

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once

	logger Logger
}

// NewRecorder creates a recorder. queueSize <= 0 selects the default.
// Call Start before recording.
func NewRecorder(repo Repository, queueSize int, logger Logger) *Recorder {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		queue:  make(chan Entry, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Start launches the writer goroutine.
func (r *Recorder) Start() {
	r.wg.Add(1)
	go r.writeLoop()
}

// Record enqueues entry. When the queue is full the entry is dropped and
// counted instead of blocking.
func (r *Recorder) Record(entry Entry) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	select {
	case <-r.done:
		r.dropped.Add(1)
		return
	default:
	}

	select {
	case r.queue <- entry:
	default:
		r.dropped.Add(1)
	}
}

// Dropped returns how many entries were discarded.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Stop drains queued entries and stops the writer. Safe to call multiple times.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
		r.wg.Wait()
	})
}

func (r *Recorder) writeLoop() {
	defer r.wg.Done()

	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		case <-r.done:
			r.drain()
			return
		}
	}
}

// drain writes whatever is still queued at shutdown.
func (r *Recorder) drain() {
	for {
		select {
		case entry := <-r.queue:
			r.write(entry)
		default:
			return
		}
	}
}

func (r *Recorder) write(entry Entry) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := r.repo.Create(ctx, &entry); err != nil && r.logger != nil {
		r.logger.Error("failed to write forward log", "source", entry.SourceID, "error", err)
	}
}
