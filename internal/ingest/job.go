// Package ingest walks a directory tree and indexes its documents into
// a store using a pool of concurrent workers, reporting progress as a
// finite event stream.
package ingest

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/hyperjump/tansaku/internal/extract"
	"github.com/hyperjump/tansaku/internal/fileid"
	"github.com/hyperjump/tansaku/internal/models"
	"github.com/hyperjump/tansaku/internal/store"
)

// FileError records a single file that could not be ingested. The job
// keeps going; these accumulate in the Outcome.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error {
	return e.Err
}

// Outcome summarizes a finished ingestion job.
type Outcome struct {
	Attempted int
	Succeeded int
	Failures  []FileError
}

// Job is a running directory ingestion. Observe it through Progress()
// or just Wait() for the outcome; neither is required for the job to
// run to completion.
type Job struct {
	queue *eventQueue
	done  chan struct{}

	progressOnce sync.Once
	progressCh   chan ProgressEvent

	mu      sync.Mutex
	outcome Outcome
	err     error
}

// Start begins ingesting the directory tree rooted at root into st.
// The job runs in the background; cancel ctx to stop it early. Files
// already being processed when ctx is cancelled are finished
// best-effort.
func Start(ctx context.Context, st *store.Store, root string, opts ...Option) *Job {
	o := buildOptions(opts)
	if o.extractor == nil {
		o.extractor = extract.New()
	}
	j := &Job{
		queue: newEventQueue(),
		done:  make(chan struct{}),
	}
	go j.run(ctx, st, root, o)
	return j
}

// Progress returns the job's event stream. The channel is closed once
// the job has finished and all events are delivered. Events queue
// internally, so calling Progress late (or never) cannot stall the job
// and loses nothing.
func (j *Job) Progress() <-chan ProgressEvent {
	j.progressOnce.Do(func() {
		j.progressCh = make(chan ProgressEvent)
		go func() {
			defer close(j.progressCh)
			for {
				ev, ok := j.queue.pop()
				if !ok {
					return
				}
				j.progressCh <- ev
			}
		}()
	})
	return j.progressCh
}

// Wait blocks until the job finishes or ctx is cancelled. On job
// completion it returns the outcome and the job's terminal error (nil
// for a completed job even when individual files failed; the context
// error for a cancelled job). If ctx expires first, the job keeps
// running and Wait returns the partial outcome with ctx's error.
func (j *Job) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-j.done:
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.outcome, j.err
	case <-ctx.Done():
		j.mu.Lock()
		defer j.mu.Unlock()
		return j.outcome, ctx.Err()
	}
}

func (j *Job) run(ctx context.Context, st *store.Store, root string, o options) {
	defer close(j.done)
	defer j.queue.close()

	files, walkErrs, err := j.scan(ctx, root, o)
	if err != nil {
		j.mu.Lock()
		j.err = err
		j.mu.Unlock()
		j.queue.push(ProgressEvent{Stage: StageFailed, Total: len(files)})
		return
	}

	total := len(files) + len(walkErrs)
	workers := o.workers
	if workers > len(files) {
		workers = len(files)
	}

	var (
		wg        sync.WaitGroup
		processed int
		seen      = make(map[uint64]string)
		seenMu    sync.Mutex
	)
	paths := make(chan string)

	finish := func(path string, ferr error) {
		j.mu.Lock()
		j.outcome.Attempted++
		if ferr != nil {
			j.outcome.Failures = append(j.outcome.Failures, FileError{Path: path, Err: ferr})
		} else {
			j.outcome.Succeeded++
		}
		processed++
		// Push before unlocking so events from racing workers reach the
		// queue in Processed order. push never blocks.
		j.queue.push(ProgressEvent{Stage: StageIndexing, Processed: processed, Total: total, Path: path})
		j.mu.Unlock()
	}

	// Paths the walk could not read count as attempted-and-failed.
	for _, fe := range walkErrs {
		finish(fe.Path, fe.Err)
	}

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range paths {
				j.queue.push(ProgressEvent{Stage: StageEmbedding, Processed: j.processedCount(), Total: total, Path: path})
				ferr := j.ingestFile(ctx, st, path, o, seen, &seenMu)
				if ferr != nil {
					o.logger.Warn("file ingestion failed",
						zap.String("path", path),
						zap.Error(ferr))
				}
				finish(path, ferr)
			}
		}()
	}

dispatch:
	for _, path := range files {
		select {
		case <-ctx.Done():
			break dispatch
		case paths <- path:
		}
	}
	close(paths)
	wg.Wait()

	j.mu.Lock()
	p := processed
	if ctx.Err() != nil {
		j.err = ctx.Err()
	}
	terminalErr := j.err
	succeeded := j.outcome.Succeeded
	failed := len(j.outcome.Failures)
	j.mu.Unlock()

	if terminalErr != nil {
		j.queue.push(ProgressEvent{Stage: StageFailed, Processed: p, Total: total})
		return
	}
	o.logger.Info("ingestion complete",
		zap.Int("files", total),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed))
	j.queue.push(ProgressEvent{Stage: StageDone, Processed: p, Total: total})
}

func (j *Job) processedCount() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.outcome.Attempted
}

// scan walks root and collects matching files. Total is revised upward
// in the scanning events as files are discovered. A per-path walk error
// (an unreadable subdirectory, a file vanishing mid-walk) does not
// abort the walk; the path is returned as a failure and the walk
// continues. Only a root that cannot be walked at all is fatal.
func (j *Job) scan(ctx context.Context, root string, o options) ([]string, []FileError, error) {
	var (
		files    []string
		failures []FileError
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			failures = append(failures, FileError{Path: path, Err: err})
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !o.extensions[normalizeExt(filepath.Ext(path))] {
			return nil
		}
		files = append(files, path)
		j.queue.push(ProgressEvent{Stage: StageScanning, Total: len(files), Path: path})
		return nil
	})
	if err != nil {
		return files, failures, fmt.Errorf("scan %s: %w", root, err)
	}
	return files, failures, nil
}

// ingestFile extracts, optionally deduplicates and chunks, then
// indexes one file.
func (j *Job) ingestFile(ctx context.Context, st *store.Store, path string, o options, seen map[uint64]string, seenMu *sync.Mutex) error {
	text, err := o.extractor.Extract(path)
	if err != nil {
		return fmt.Errorf("extract: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil
	}

	if o.dedup {
		h := xxhash.Sum64String(text)
		seenMu.Lock()
		first, dup := seen[h]
		if !dup {
			seen[h] = path
		}
		seenMu.Unlock()
		if dup {
			o.logger.Debug("duplicate content skipped",
				zap.String("path", path),
				zap.String("first", first))
			return nil
		}
	}

	id := fileid.ForPath(path)
	meta := map[string]string{"source": path}

	if o.chunker == nil {
		return st.Insert(ctx, models.Document{ID: id, Content: text, Metadata: meta})
	}

	chunks := o.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks) == 1 {
		return st.Insert(ctx, models.Document{ID: id, Content: chunks[0], Metadata: meta})
	}
	for n, piece := range chunks {
		cm := map[string]string{"source": path, "chunk": strconv.Itoa(n)}
		doc := models.Document{ID: id + "#chunk_" + strconv.Itoa(n), Content: piece, Metadata: cm}
		if err := st.Insert(ctx, doc); err != nil {
			return fmt.Errorf("chunk %d: %w", n, err)
		}
	}
	return nil
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
