package server

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hyperjump/tansaku/internal/ingest"
)

// JobStatus is the API view of an ingestion job.
type JobStatus struct {
	ID        string             `json:"id"`
	Stage     ingest.Stage       `json:"stage"`
	Processed int                `json:"processed"`
	Total     int                `json:"total"`
	Attempted int                `json:"attempted,omitempty"`
	Succeeded int                `json:"succeeded,omitempty"`
	Failures  []JobFailureStatus `json:"failures,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// JobFailureStatus is one failed file in a job.
type JobFailureStatus struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// jobRegistry tracks running and finished ingestion jobs by ID.
type jobRegistry struct {
	mu   sync.RWMutex
	jobs map[string]*trackedJob
}

type trackedJob struct {
	mu     sync.Mutex
	status JobStatus
}

func newJobRegistry() *jobRegistry {
	return &jobRegistry{jobs: make(map[string]*trackedJob)}
}

// track registers job under a fresh ID and follows its progress stream
// in the background.
func (r *jobRegistry) track(job *ingest.Job) string {
	id := uuid.NewString()
	t := &trackedJob{status: JobStatus{ID: id, Stage: ingest.StageScanning}}
	r.mu.Lock()
	r.jobs[id] = t
	r.mu.Unlock()

	go func() {
		for ev := range job.Progress() {
			t.mu.Lock()
			t.status.Stage = ev.Stage
			if ev.Processed > t.status.Processed {
				t.status.Processed = ev.Processed
			}
			if ev.Total > t.status.Total {
				t.status.Total = ev.Total
			}
			t.mu.Unlock()
		}
		outcome, err := job.Wait(context.Background())
		t.mu.Lock()
		t.status.Attempted = outcome.Attempted
		t.status.Succeeded = outcome.Succeeded
		for _, f := range outcome.Failures {
			t.status.Failures = append(t.status.Failures, JobFailureStatus{Path: f.Path, Error: f.Err.Error()})
		}
		if err != nil {
			t.status.Error = err.Error()
		}
		t.mu.Unlock()
	}()
	return id
}

func (r *jobRegistry) get(id string) (JobStatus, bool) {
	r.mu.RLock()
	t, ok := r.jobs[id]
	r.mu.RUnlock()
	if !ok {
		return JobStatus{}, false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status, true
}
