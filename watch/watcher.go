package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/jiulngdjso/poofpop-web/api"
)

const (
	// DefaultFallbackAfter is how long the watcher waits for a first live
	// event before abandoning the stream for polling.
	DefaultFallbackAfter = 5 * time.Second
	// DefaultPollInterval is the period between status queries in polling
	// mode.
	DefaultPollInterval = 3 * time.Second
)

// JobAPI is the part of the API client the watcher needs: one call per
// transport mode.
type JobAPI interface {
	OpenJobEvents(ctx context.Context, jobID string) (io.ReadCloser, error)
	GetJobStatus(ctx context.Context, jobID string) (api.JobStatus, error)
}

// Opts ...
type Opts struct {
	FallbackAfter time.Duration
	PollInterval  time.Duration
}

// Watcher tracks one submitted job to exactly one terminal outcome. It opens
// the live event stream and arms a fallback timer at the same time; the first
// live event commits it to streaming, while timer expiry or any stream-level
// error abandons the stream permanently and switches to polling. The stream
// is never reopened once abandoned.
//
// A Watcher instance watches a single job and is not reused.
type Watcher struct {
	api           JobAPI
	logger        log.Logger
	fallbackAfter time.Duration
	pollInterval  time.Duration

	closeOnce sync.Once
	closed    chan struct{}
}

// NewWatcher ...
func NewWatcher(jobAPI JobAPI, logger log.Logger, opts Opts) *Watcher {
	if opts.FallbackAfter <= 0 {
		opts.FallbackAfter = DefaultFallbackAfter
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Watcher{
		api:           jobAPI,
		logger:        logger,
		fallbackAfter: opts.FallbackAfter,
		pollInterval:  opts.PollInterval,
		closed:        make(chan struct{}),
	}
}

// Close releases the watcher's transport and timers. It is idempotent and
// safe from any state, including after Watch has returned. It does not notify
// the server; server-side cancellation is a separate explicit operation.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.closed)
	})
}

// Watch blocks until the job reaches a terminal state or ctx is cancelled.
// onProgress receives every non-terminal snapshot, last-received-wins; it is
// never invoked after Watch returns. The terminal snapshot is returned, with
// a JobFailedError or JobCancelledError for the negative outcomes.
func (w *Watcher) Watch(ctx context.Context, jobID string, onProgress func(Snapshot)) (Snapshot, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	streamCtx, cancelStream := context.WithCancel(ctx)
	defer cancelStream()

	events := make(chan streamEvent)
	streamErrs := make(chan error, 1)
	go w.runStream(streamCtx, jobID, events, streamErrs)

	fallback := time.NewTimer(w.fallbackAfter)
	defer fallback.Stop()

	streaming := false
	for {
		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()

		case ev := <-events:
			if !streaming {
				streaming = true
				fallback.Stop()
				w.logger.Debugf("Live event stream active for job %s", jobID)
			}

			snapshot, verdict, err := w.applyEvent(jobID, ev)
			switch verdict {
			case verdictTerminal:
				return w.resolve(jobID, snapshot)
			case verdictAbandon:
				// A structured error event is treated as a transport
				// unreliability signal, not a terminal failure. Logged
				// distinctly so suppressed failures stay observable.
				w.logger.Warnf("Live stream reported an error for job %s, switching to polling: %s", jobID, err)
				cancelStream()
				return w.poll(ctx, jobID, onProgress)
			case verdictIgnore:
			default:
				if onProgress != nil {
					onProgress(snapshot)
				}
			}

		case err := <-streamErrs:
			// Connection-level failure, or the server ended the stream
			// without a terminal event. The stream gets no second chance.
			w.logger.Warnf("Live stream unavailable for job %s, switching to polling: %s", jobID, err)
			cancelStream()
			fallback.Stop()
			return w.poll(ctx, jobID, onProgress)

		case <-fallback.C:
			if streaming {
				continue
			}
			w.logger.Debugf("No live event for job %s within %s, switching to polling", jobID, w.fallbackAfter)
			cancelStream()
			return w.poll(ctx, jobID, onProgress)
		}
	}
}

// runStream owns the live subscription: it is the only place that closes the
// stream body, so the close happens exactly once no matter how the watch
// ends.
func (w *Watcher) runStream(ctx context.Context, jobID string, events chan<- streamEvent, errs chan<- error) {
	body, err := w.api.OpenJobEvents(ctx, jobID)
	if err != nil {
		select {
		case errs <- err:
		case <-ctx.Done():
		}
		return
	}
	defer func() {
		if err := body.Close(); err != nil {
			w.logger.Debugf("close event stream: %s", err)
		}
	}()

	err = decodeEvents(body, func(ev streamEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	})
	if ctx.Err() != nil {
		return
	}
	if err == nil {
		err = io.EOF
	}
	select {
	case errs <- err:
	case <-ctx.Done():
	}
}

type verdict int

const (
	verdictProgress verdict = iota
	verdictTerminal
	verdictAbandon
	verdictIgnore
)

type progressEvent struct {
	Progress        int        `json:"progress"`
	ProgressMessage string     `json:"progress_message"`
	Status          api.Status `json:"status"`
}

type completeEvent struct {
	Status    api.Status `json:"status"`
	OutputKey string     `json:"output_key"`
	Error     string     `json:"error"`
}

type errorEvent struct {
	Message string `json:"message"`
}

func (w *Watcher) applyEvent(jobID string, ev streamEvent) (Snapshot, verdict, error) {
	switch ev.name {
	case eventProgress:
		var payload progressEvent
		if err := json.Unmarshal(ev.data, &payload); err != nil {
			return Snapshot{}, verdictAbandon, fmt.Errorf("malformed progress event: %w", err)
		}
		status := payload.Status
		if status == "" {
			status = api.StatusProcessing
		}
		snapshot := Snapshot{
			Status:   status,
			Progress: payload.Progress,
			Message:  payload.ProgressMessage,
		}
		if status.IsTerminal() {
			return snapshot, verdictTerminal, nil
		}
		return snapshot, verdictProgress, nil

	case eventComplete:
		var payload completeEvent
		if err := json.Unmarshal(ev.data, &payload); err != nil {
			return Snapshot{}, verdictAbandon, fmt.Errorf("malformed complete event: %w", err)
		}
		status := payload.Status
		if status == "" {
			status = api.StatusCompleted
		}
		return Snapshot{
			Status:      status,
			Progress:    100,
			OutputKey:   payload.OutputKey,
			ErrorDetail: payload.Error,
		}, verdictTerminal, nil

	case eventError:
		var payload errorEvent
		if err := json.Unmarshal(ev.data, &payload); err == nil && payload.Message != "" {
			return Snapshot{}, verdictAbandon, fmt.Errorf("%s", payload.Message)
		}
		return Snapshot{}, verdictAbandon, fmt.Errorf("stream error event without message")

	default:
		w.logger.Debugf("Ignoring unknown stream event %q for job %s", ev.name, jobID)
		return Snapshot{}, verdictIgnore, nil
	}
}

// poll queries the status endpoint until a terminal status shows up. The
// first query is issued immediately on entry, then once per interval.
func (w *Watcher) poll(ctx context.Context, jobID string, onProgress func(Snapshot)) (Snapshot, error) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		status, err := w.api.GetJobStatus(ctx, jobID)
		if err != nil {
			return Snapshot{}, err
		}
		snapshot := snapshotFromStatus(status)
		if snapshot.Status.IsTerminal() {
			return w.resolve(jobID, snapshot)
		}
		if onProgress != nil {
			onProgress(snapshot)
		}

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *Watcher) resolve(jobID string, snapshot Snapshot) (Snapshot, error) {
	switch snapshot.Status {
	case api.StatusFailed:
		return snapshot, &JobFailedError{JobID: jobID, Detail: snapshot.ErrorDetail}
	case api.StatusCancelled:
		return snapshot, &JobCancelledError{JobID: jobID, Detail: snapshot.ErrorDetail}
	default:
		return snapshot, nil
	}
}
