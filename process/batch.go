package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/jiulngdjso/poofpop-web/api"
	"github.com/jiulngdjso/poofpop-web/task"
	"github.com/jiulngdjso/poofpop-web/upload"
	"github.com/jiulngdjso/poofpop-web/watch"
)

// BatchInput ...
type BatchInput struct {
	// Patterns are file paths, optionally with doublestar globs.
	Patterns    []string
	ContentType string
	Task        task.Params
	S3          upload.S3Options
	// OnStatus receives non-terminal snapshots for each job, keyed by the
	// item's client-side ref.
	OnStatus func(ref string, snapshot watch.Snapshot)
}

// BatchJobResult is the outcome of one item of a batch. Ref is the
// client-side correlation ID assigned before the server issued a job ID.
type BatchJobResult struct {
	Ref         string
	Path        string
	JobID       string
	Snapshot    watch.Snapshot
	DownloadURL string
	Err         error
}

// BatchResult ...
type BatchResult struct {
	BatchID string
	Jobs    []BatchJobResult
}

type batchItem struct {
	ref      string
	path     string
	fileID   string
	inputKey string
	size     int64
}

// RunBatch uploads every matched file, submits them as one batch and tracks
// each job with its own independent watcher. Uploads run sequentially; the
// watchers run concurrently, sharing nothing.
func (r *Runner) RunBatch(ctx context.Context, input BatchInput) (BatchResult, error) {
	if input.Task == nil {
		return BatchResult{}, fmt.Errorf("task params are required")
	}
	if err := input.Task.Validate(); err != nil {
		return BatchResult{}, fmt.Errorf("invalid task params: %w", err)
	}

	paths, err := r.expandPatterns(input.Patterns)
	if err != nil {
		return BatchResult{}, err
	}
	if len(paths) == 0 {
		return BatchResult{}, fmt.Errorf("no files matched the provided patterns")
	}

	items, err := r.uploadBatchItems(ctx, input, paths)
	if err != nil {
		return BatchResult{}, err
	}

	requests := make([]api.SubmitRequest, 0, len(items))
	for _, item := range items {
		requests = append(requests, api.SubmitRequest{
			TaskType: string(input.Task.Type()),
			FileID:   item.fileID,
			InputKey: item.inputKey,
			Params:   input.Task.Fields(),
			FileSize: item.size,
		})
	}

	r.logger.Println()
	r.logger.Infof("Submitting batch of %d jobs...", len(requests))
	handle, err := r.api.SubmitBatch(ctx, api.BatchSubmitRequest{Jobs: requests})
	if err != nil {
		return BatchResult{}, err
	}
	if len(handle.Jobs) != len(items) {
		return BatchResult{}, fmt.Errorf("batch response job count mismatch: submitted %d, got %d", len(items), len(handle.Jobs))
	}
	r.logger.Donef("Batch submitted: %s", handle.BatchID)

	results := make([]BatchJobResult, len(items))
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = r.watchBatchJob(ctx, input, items[i], handle.Jobs[i].JobID)
		}(i)
	}
	wg.Wait()

	return BatchResult{BatchID: handle.BatchID, Jobs: results}, nil
}

func (r *Runner) watchBatchJob(ctx context.Context, input BatchInput, item batchItem, jobID string) BatchJobResult {
	jobResult := BatchJobResult{Ref: item.ref, Path: item.path, JobID: jobID}

	watcher := watch.NewWatcher(r.api, r.logger, r.watchOpts)
	defer watcher.Close()

	var onStatus func(watch.Snapshot)
	if input.OnStatus != nil {
		onStatus = func(snapshot watch.Snapshot) {
			input.OnStatus(item.ref, snapshot)
		}
	}

	snapshot, err := watcher.Watch(ctx, jobID, onStatus)
	jobResult.Snapshot = snapshot
	if err != nil {
		jobResult.Err = err
		return jobResult
	}

	grant, err := r.resolver.Resolve(ctx, jobID)
	if err != nil {
		jobResult.Err = err
		return jobResult
	}
	jobResult.DownloadURL = grant.URL
	return jobResult
}

func (r *Runner) uploadBatchItems(ctx context.Context, input BatchInput, paths []string) ([]batchItem, error) {
	items := make([]batchItem, 0, len(paths))
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("stat file %s: %w", path, err)
		}
		if err := task.ValidateFile(input.ContentType, info.Size()); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		ref := uuid.NewString()
		target, err := r.api.UploadInit(ctx, api.UploadInitRequest{
			TaskType:      string(input.Task.Type()),
			FileName:      filepath.Base(path),
			ContentType:   input.ContentType,
			ContentLength: info.Size(),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to get upload URL for %s: %w", path, err)
		}

		r.logger.Infof("Uploading %s...", filepath.Base(path))
		err = r.uploader.Upload(ctx, upload.Params{
			DestinationURL: target.UploadURL,
			ContentType:    input.ContentType,
			Path:           path,
			Size:           info.Size(),
			S3:             input.S3,
		}, nil, r.logger)
		if err != nil {
			return nil, fmt.Errorf("upload %s: %w", path, err)
		}

		items = append(items, batchItem{
			ref:      ref,
			path:     path,
			fileID:   target.FileID,
			inputKey: target.InputKey,
			size:     info.Size(),
		})
	}
	return items, nil
}

func (r *Runner) expandPatterns(patterns []string) ([]string, error) {
	var paths []string
	for _, pattern := range patterns {
		if !strings.Contains(pattern, "*") {
			paths = append(paths, pattern)
			continue
		}

		base, glob := doublestar.SplitPattern(pattern)
		matches, err := doublestar.Glob(os.DirFS(base), glob, doublestar.WithNoFollow())
		if err != nil {
			r.logger.Warnf("Error in path pattern '%s': %s", pattern, err)
			continue
		}
		if matches == nil {
			r.logger.Warnf("No match for path pattern: %s", pattern)
			continue
		}
		for _, match := range matches {
			paths = append(paths, filepath.Join(base, match))
		}
	}
	return paths, nil
}
