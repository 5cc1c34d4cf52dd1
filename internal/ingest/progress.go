package ingest

import "sync"

// Stage identifies a phase of an ingestion job.
type Stage string

const (
	// StageScanning is emitted while the directory walk discovers files.
	StageScanning Stage = "scanning"
	// StageEmbedding is emitted when a worker starts processing a file.
	StageEmbedding Stage = "embedding"
	// StageIndexing is emitted exactly once per file that finished,
	// whether it succeeded or failed, with Processed incremented.
	StageIndexing Stage = "indexing"
	// StageDone is the final event of a job that ran to completion.
	StageDone Stage = "done"
	// StageFailed is the final event of a cancelled or aborted job.
	StageFailed Stage = "failed"
)

// ProgressEvent reports job progress. Total may grow while scanning is
// still discovering files; Processed is strictly increasing across
// StageIndexing events.
type ProgressEvent struct {
	Stage     Stage  `json:"stage"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Path      string `json:"path,omitempty"`
}

// eventQueue is an unbounded FIFO between the job and an optional
// observer. The job never blocks on it: events pile up in memory until
// someone reads the progress channel, and a job whose progress is never
// observed still completes.
type eventQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	events []ProgressEvent
	closed bool
}

func newEventQueue() *eventQueue {
	q := &eventQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

func (q *eventQueue) push(ev ProgressEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.events = append(q.events, ev)
	q.cond.Signal()
}

// close marks the queue finished. Queued events remain readable.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// pop blocks until an event is available or the queue is closed and
// drained. The second return is false only in the latter case.
func (q *eventQueue) pop() (ProgressEvent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.events) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.events) == 0 {
		return ProgressEvent{}, false
	}
	ev := q.events[0]
	q.events = q.events[1:]
	return ev, true
}
