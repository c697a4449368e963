// Package process sequences the end-to-end flow: validate, upload, submit,
// watch, resolve. Each stage's success is a precondition for the next; the
// first failure aborts the pipeline and surfaces as a typed error.
package process

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"

	"github.com/jiulngdjso/poofpop-web/api"
	"github.com/jiulngdjso/poofpop-web/credits"
	"github.com/jiulngdjso/poofpop-web/result"
	"github.com/jiulngdjso/poofpop-web/task"
	"github.com/jiulngdjso/poofpop-web/upload"
	"github.com/jiulngdjso/poofpop-web/watch"
)

// PipelineAPI is everything the orchestrator needs from the API client.
// *api.Client satisfies it.
type PipelineAPI interface {
	UploadInit(ctx context.Context, req api.UploadInitRequest) (api.UploadTarget, error)
	SubmitBatch(ctx context.Context, req api.BatchSubmitRequest) (api.BatchHandle, error)
	SubmissionAPI
	watch.JobAPI
	result.GrantAPI
}

// RunInput ...
type RunInput struct {
	Path        string
	ContentType string
	Task        task.Params
	// S3 is only consulted when the init call hands back an s3:// target.
	S3 upload.S3Options
	// OnUploadProgress receives byte-transfer progress in [0,100].
	OnUploadProgress upload.ProgressFunc
	// OnStatus receives every non-terminal job snapshot.
	OnStatus func(watch.Snapshot)
}

// RunResult ...
type RunResult struct {
	JobID       string
	OutputKey   string
	DownloadURL string
}

// Runner owns one user-visible operation at a time. Cancelling the context
// abandons the operation client-side: open transports and timers are
// released, but the server is not notified.
type Runner struct {
	api       PipelineAPI
	uploader  upload.Uploader
	resolver  *result.Resolver
	credits   *credits.Store
	logger    log.Logger
	watchOpts watch.Opts
}

// NewRunner creates a pipeline runner. `uploader` can be nil, unless you want
// to provide a custom Uploader implementation.
func NewRunner(pipelineAPI PipelineAPI, creditStore *credits.Store, uploader upload.Uploader, logger log.Logger) *Runner {
	var uploaderImpl upload.Uploader = uploader
	if uploader == nil {
		uploaderImpl = upload.DefaultUploader{}
	}
	return &Runner{
		api:      pipelineAPI,
		uploader: uploaderImpl,
		resolver: result.NewResolver(pipelineAPI, nil, logger),
		credits:  creditStore,
		logger:   logger,
	}
}

// SetWatchOpts overrides the watcher's fallback and polling timings.
func (r *Runner) SetWatchOpts(opts watch.Opts) {
	r.watchOpts = opts
}

// Run executes the full flow for one file and blocks until the job reaches a
// terminal state.
func (r *Runner) Run(ctx context.Context, input RunInput) (RunResult, error) {
	if input.Task == nil {
		return RunResult{}, fmt.Errorf("task params are required")
	}
	if err := input.Task.Validate(); err != nil {
		return RunResult{}, fmt.Errorf("invalid task params: %w", err)
	}

	info, err := os.Stat(input.Path)
	if err != nil {
		return RunResult{}, fmt.Errorf("stat file: %w", err)
	}
	if err := task.ValidateFile(input.ContentType, info.Size()); err != nil {
		return RunResult{}, err
	}

	target, err := r.initAndUpload(ctx, input, info.Size())
	if err != nil {
		return RunResult{}, err
	}

	r.logger.Println()
	r.logger.Infof("Submitting job...")
	gate := NewGate(r.api, r.credits, r.logger)
	handle, err := gate.Submit(ctx, SubmitInput{
		Task:         input.Task,
		FileID:       target.FileID,
		InputKey:     target.InputKey,
		FileSize:     info.Size(),
		ExpectedType: "video",
	})
	if err != nil {
		return RunResult{}, err
	}
	r.logger.Donef("Job submitted: %s (%s)", handle.JobID, handle.Status)

	watcher := watch.NewWatcher(r.api, r.logger, r.watchOpts)
	defer watcher.Close()

	snapshot, err := watcher.Watch(ctx, handle.JobID, input.OnStatus)
	if err != nil {
		return RunResult{}, err
	}

	grant, err := r.resolver.Resolve(ctx, handle.JobID)
	if err != nil {
		return RunResult{}, err
	}

	return RunResult{
		JobID:       handle.JobID,
		OutputKey:   snapshot.OutputKey,
		DownloadURL: grant.URL,
	}, nil
}

// SaveResult downloads a finished job's output to dest.
func (r *Runner) SaveResult(ctx context.Context, runResult RunResult, dest string) error {
	return r.resolver.SaveTo(ctx, api.DownloadGrant{URL: runResult.DownloadURL}, dest)
}

func (r *Runner) initAndUpload(ctx context.Context, input RunInput, size int64) (api.UploadTarget, error) {
	r.logger.Infof("Requesting upload target...")
	target, err := r.api.UploadInit(ctx, api.UploadInitRequest{
		TaskType:      string(input.Task.Type()),
		FileName:      filepath.Base(input.Path),
		ContentType:   input.ContentType,
		ContentLength: size,
	})
	if err != nil {
		return api.UploadTarget{}, fmt.Errorf("failed to get upload URL: %w", err)
	}
	if target.Expired() {
		return api.UploadTarget{}, fmt.Errorf("upload target expired before use, restart the upload")
	}

	r.logger.Infof("Uploading %s (%s)...", filepath.Base(input.Path), units.HumanSizeWithPrecision(float64(size), 3))
	uploadStartTime := time.Now()
	err = r.uploader.Upload(ctx, upload.Params{
		DestinationURL: target.UploadURL,
		ContentType:    input.ContentType,
		Path:           input.Path,
		Size:           size,
		S3:             input.S3,
	}, input.OnUploadProgress, r.logger)
	if err != nil {
		return api.UploadTarget{}, err
	}
	r.logger.Donef("Uploaded in %s", time.Since(uploadStartTime).Round(time.Second))

	return target, nil
}
