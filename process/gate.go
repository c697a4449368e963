package process

import (
	"context"
	"fmt"

	"github.com/bitrise-io/go-utils/v2/log"

	"github.com/jiulngdjso/poofpop-web/api"
	"github.com/jiulngdjso/poofpop-web/credits"
	"github.com/jiulngdjso/poofpop-web/task"
)

// SafetyRejectedError means the content-safety check refused the file. This
// is a policy decision carried back from the server, not a transport fault:
// retrying the same file cannot succeed.
type SafetyRejectedError struct {
	Message string
}

func (e *SafetyRejectedError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("content check rejected the file: %s", e.Message)
	}
	return "content check rejected the file"
}

// SubmissionAPI ...
type SubmissionAPI interface {
	ContentCheck(ctx context.Context, fileID, inputKey, expectedType string) (api.ContentCheckResult, error)
	SubmitJob(ctx context.Context, req api.SubmitRequest) (api.JobHandle, error)
}

// SubmitInput ...
type SubmitInput struct {
	Task     task.Params
	FileID   string
	InputKey string
	// FileSize is an optional hint forwarded to the server.
	FileSize int64
	// ExpectedType narrows the content check, e.g. "video".
	ExpectedType string
}

// Gate validates submission preconditions and submits the processing request.
// The safety check always runs first; a rejected file never reaches the
// submit endpoint.
type Gate struct {
	api     SubmissionAPI
	credits *credits.Store
	logger  log.Logger
}

// NewGate ...
func NewGate(submissionAPI SubmissionAPI, creditStore *credits.Store, logger log.Logger) *Gate {
	return &Gate{
		api:     submissionAPI,
		credits: creditStore,
		logger:  logger,
	}
}

// Submit runs the safety check and submits the job. A balance-insufficiency
// response surfaces as *api.InsufficientCreditsError so callers can offer a
// top-up instead of a retry. When the response carries an updated balance it
// overwrites the cached one.
func (g *Gate) Submit(ctx context.Context, input SubmitInput) (api.JobHandle, error) {
	check, err := g.api.ContentCheck(ctx, input.FileID, input.InputKey, input.ExpectedType)
	if err != nil {
		return api.JobHandle{}, fmt.Errorf("content check failed: %w", err)
	}
	if !check.Safe {
		return api.JobHandle{}, &SafetyRejectedError{Message: check.Message}
	}

	handle, err := g.api.SubmitJob(ctx, api.SubmitRequest{
		TaskType: string(input.Task.Type()),
		FileID:   input.FileID,
		InputKey: input.InputKey,
		Params:   input.Task.Fields(),
		FileSize: input.FileSize,
	})
	if err != nil {
		return api.JobHandle{}, err
	}

	if handle.CreditsRemaining != nil && g.credits != nil {
		g.credits.Set(*handle.CreditsRemaining)
		g.logger.Debugf("Credit balance updated: %d", *handle.CreditsRemaining)
	}

	return handle, nil
}
