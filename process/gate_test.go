package process

import (
	"context"
	"errors"
	"testing"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jiulngdjso/poofpop-web/api"
	"github.com/jiulngdjso/poofpop-web/credits"
	"github.com/jiulngdjso/poofpop-web/task"
)

type fakeSubmissionAPI struct {
	checkResult api.ContentCheckResult
	checkErr    error
	handle      api.JobHandle
	submitErr   error

	checkCalls  int
	submitCalls int
	lastSubmit  api.SubmitRequest
}

func (f *fakeSubmissionAPI) ContentCheck(ctx context.Context, fileID, inputKey, expectedType string) (api.ContentCheckResult, error) {
	f.checkCalls++
	return f.checkResult, f.checkErr
}

func (f *fakeSubmissionAPI) SubmitJob(ctx context.Context, req api.SubmitRequest) (api.JobHandle, error) {
	f.submitCalls++
	f.lastSubmit = req
	return f.handle, f.submitErr
}

func Test_gateRejectedContentNeverReachesSubmit(t *testing.T) {
	submissionAPI := &fakeSubmissionAPI{
		checkResult: api.ContentCheckResult{Safe: false, Message: "prohibited content"},
	}
	gate := NewGate(submissionAPI, nil, log.NewLogger())

	_, err := gate.Submit(context.Background(), SubmitInput{
		Task:   task.WatermarkRemovalParams{},
		FileID: "f1",
	})

	var rejectedErr *SafetyRejectedError
	require.ErrorAs(t, err, &rejectedErr)
	assert.Equal(t, "prohibited content", rejectedErr.Message)
	assert.Equal(t, 1, submissionAPI.checkCalls)
	assert.Zero(t, submissionAPI.submitCalls, "rejected file never reaches the submit endpoint")
}

func Test_gateSubmitsAfterPassingCheck(t *testing.T) {
	remaining := 9
	submissionAPI := &fakeSubmissionAPI{
		checkResult: api.ContentCheckResult{Safe: true, FileExists: true},
		handle:      api.JobHandle{JobID: "j1", Status: api.StatusQueued, CreditsRemaining: &remaining},
	}
	store := credits.NewStore()
	gate := NewGate(submissionAPI, store, log.NewLogger())

	handle, err := gate.Submit(context.Background(), SubmitInput{
		Task:         task.ObjectRemovalParams{RemoveText: "person"},
		FileID:       "f1",
		InputKey:     "k1",
		FileSize:     2048,
		ExpectedType: "video",
	})

	require.NoError(t, err)
	assert.Equal(t, "j1", handle.JobID)
	assert.Equal(t, "video-object-removal", submissionAPI.lastSubmit.TaskType)
	assert.Equal(t, "f1", submissionAPI.lastSubmit.FileID)
	assert.Equal(t, "k1", submissionAPI.lastSubmit.InputKey)
	assert.Equal(t, int64(2048), submissionAPI.lastSubmit.FileSize)
	assert.Equal(t, map[string]interface{}{"remove_text": "person"}, submissionAPI.lastSubmit.Params)

	balance, known := store.Get()
	assert.True(t, known)
	assert.Equal(t, 9, balance, "submit response balance overwrites the cache")
}

func Test_gateInsufficientCreditsSurfaces(t *testing.T) {
	submissionAPI := &fakeSubmissionAPI{
		checkResult: api.ContentCheckResult{Safe: true},
		submitErr:   &api.InsufficientCreditsError{APIError: api.APIError{StatusCode: 402, Message: "need 5 more"}},
	}
	gate := NewGate(submissionAPI, credits.NewStore(), log.NewLogger())

	_, err := gate.Submit(context.Background(), SubmitInput{Task: task.WatermarkRemovalParams{}})

	var creditsErr *api.InsufficientCreditsError
	require.ErrorAs(t, err, &creditsErr)
	assert.Equal(t, "need 5 more", creditsErr.Message)
}

func Test_gateCheckFailureAborts(t *testing.T) {
	submissionAPI := &fakeSubmissionAPI{
		checkErr: errors.New("boom"),
	}
	gate := NewGate(submissionAPI, nil, log.NewLogger())

	_, err := gate.Submit(context.Background(), SubmitInput{Task: task.WatermarkRemovalParams{}})

	require.Error(t, err)
	assert.Zero(t, submissionAPI.submitCalls)
}
