package errormsg

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiulngdjso/poofpop-web/api"
	"github.com/jiulngdjso/poofpop-web/process"
	"github.com/jiulngdjso/poofpop-web/task"
	"github.com/jiulngdjso/poofpop-web/upload"
	"github.com/jiulngdjso/poofpop-web/watch"
)

func Test_typedErrorsMapToCatalogue(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTitle string
	}{
		{
			name:      "file too large",
			err:       &task.TooLargeError{Size: 300 * 1000 * 1000},
			wantTitle: "File Too Large",
		},
		{
			name:      "invalid file type",
			err:       &task.InvalidTypeError{ContentType: "image/png"},
			wantTitle: "Unsupported Format",
		},
		{
			name:      "insufficient credits",
			err:       &api.InsufficientCreditsError{APIError: api.APIError{StatusCode: 402, Message: "need 5 more"}},
			wantTitle: "Not Enough Credits",
		},
		{
			name:      "connection failure",
			err:       &api.ConnectionError{Cause: errors.New("dial tcp: connection refused")},
			wantTitle: "Connection Problem",
		},
		{
			name:      "upload failure",
			err:       &upload.Error{StatusCode: 403},
			wantTitle: "Upload Failed",
		},
		{
			name:      "content rejected",
			err:       &process.SafetyRejectedError{Message: "prohibited"},
			wantTitle: "Content Not Allowed",
		},
		{
			name:      "job failed",
			err:       &watch.JobFailedError{JobID: "j1", Detail: "inpainting crashed"},
			wantTitle: "Processing Failed",
		},
		{
			name:      "job failed on a worker timeout",
			err:       &watch.JobFailedError{JobID: "j1", Detail: "worker timeout after 600s"},
			wantTitle: "Processing Timed Out",
		},
		{
			name:      "job cancelled",
			err:       &watch.JobCancelledError{JobID: "j1"},
			wantTitle: "Processing Cancelled",
		},
		{
			name:      "deadline exceeded",
			err:       context.DeadlineExceeded,
			wantTitle: "Processing Timed Out",
		},
		{
			name:      "wrapped typed error still matches",
			err:       fmt.Errorf("stat file: %w", &task.TooLargeError{Size: 1}),
			wantTitle: "File Too Large",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := For(tt.err)
			assert.Equal(t, tt.wantTitle, msg.Title)
			assert.NotEmpty(t, msg.Message)
			assert.NotEmpty(t, msg.Guidance)
		})
	}
}

func Test_apiErrorCodeAndStatusMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantTitle string
	}{
		{
			name:      "structured server code",
			err:       &api.APIError{StatusCode: 500, Code: "RUNPOD_SUBMIT_ERROR", Message: "submit failed"},
			wantTitle: "Processing Failed to Start",
		},
		{
			name:      "rate limited by status",
			err:       &api.APIError{StatusCode: 429, Message: "slow down"},
			wantTitle: "Too Many Requests",
		},
		{
			name:      "bad key by status",
			err:       &api.APIError{StatusCode: 401, Message: "who are you"},
			wantTitle: "Authentication Failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.wantTitle, For(tt.err).Title)
		})
	}
}

func Test_textFallbackMatching(t *testing.T) {
	tests := []struct {
		text      string
		wantTitle string
	}{
		{"HTTP 429: Too Many Requests", "Too Many Requests"},
		{"request unauthorized", "Authentication Failed"},
		{"insufficient credits for this job", "Not Enough Credits"},
		{"read timeout while waiting", "Processing Timed Out"},
		{"could not connect to host", "Connection Problem"},
		{"upload interrupted", "Upload Failed"},
		{"file is too large for plan", "File Too Large"},
		{"file type not allowed", "Unsupported Format"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.wantTitle, For(errors.New(tt.text)).Title)
		})
	}
}

func Test_unknownErrorsKeepTheirText(t *testing.T) {
	msg := For(errors.New("flux capacitor misaligned"))
	assert.Equal(t, "Something Went Wrong", msg.Title)
	assert.Equal(t, "flux capacitor misaligned", msg.Message)
	assert.NotEmpty(t, msg.Guidance)
}

func Test_insufficientCreditsCarriesAction(t *testing.T) {
	msg := For(&api.InsufficientCreditsError{APIError: api.APIError{StatusCode: 402}})
	require.NotNil(t, msg.Action)
	assert.Equal(t, "Get Credits", msg.Action.Label)
	assert.NotEmpty(t, msg.Action.URL)
}
