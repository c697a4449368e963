package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// UploadInitRequest ...
type UploadInitRequest struct {
	TaskType      string `json:"task_type"`
	FileName      string `json:"file_name"`
	ContentType   string `json:"content_type"`
	ContentLength int64  `json:"content_length"`
}

// UploadTarget is a pre-signed upload destination. It is valid for a single
// upload attempt; once ExpiresIn has elapsed the caller must restart from
// UploadInit instead of reusing the URL.
type UploadTarget struct {
	UploadURL string `json:"upload_url"`
	FileID    string `json:"file_id"`
	InputKey  string `json:"input_key"`
	ExpiresIn int64  `json:"expires_in"`

	issuedAt time.Time
}

// Expired reports whether the pre-signed URL is already known to be invalid.
func (t UploadTarget) Expired() bool {
	if t.ExpiresIn <= 0 || t.issuedAt.IsZero() {
		return false
	}
	return time.Since(t.issuedAt) > time.Duration(t.ExpiresIn)*time.Second
}

// UploadInit requests a pre-signed PUT target for a file about to be uploaded.
func (c *Client) UploadInit(ctx context.Context, req UploadInitRequest) (UploadTarget, error) {
	var target UploadTarget
	if err := c.do(ctx, http.MethodPost, "/upload-init", req, authAPIKey, &target); err != nil {
		return UploadTarget{}, err
	}
	target.issuedAt = time.Now()
	return target, nil
}

// ContentCheckResult ...
type ContentCheckResult struct {
	Safe       bool   `json:"safe"`
	FileExists bool   `json:"file_exists"`
	Message    string `json:"message"`
}

type contentCheckRequest struct {
	FileID       string `json:"file_id"`
	InputKey     string `json:"input_key"`
	ExpectedType string `json:"expected_type,omitempty"`
}

// ContentCheck runs the server-side content-safety verification for an
// uploaded file. A false Safe value is a policy decision, not an error.
func (c *Client) ContentCheck(ctx context.Context, fileID, inputKey, expectedType string) (ContentCheckResult, error) {
	var result ContentCheckResult
	err := c.do(ctx, http.MethodPost, "/content-check", contentCheckRequest{
		FileID:       fileID,
		InputKey:     inputKey,
		ExpectedType: expectedType,
	}, authAPIKey, &result)
	return result, err
}

// SubmitRequest ...
type SubmitRequest struct {
	TaskType   string                 `json:"task_type"`
	FileID     string                 `json:"file_id"`
	InputKey   string                 `json:"input_key"`
	Params     map[string]interface{} `json:"params"`
	FileSize   int64                  `json:"file_size,omitempty"`
	WebhookURL string                 `json:"webhook_url,omitempty"`
}

// JobHandle identifies a submitted job. Status is the server's immediate
// answer (queued or pending); CreditsRemaining, when present, is the
// authoritative balance after the submission was charged.
type JobHandle struct {
	JobID            string `json:"job_id"`
	Status           Status `json:"status"`
	CreditsRemaining *int   `json:"credits_remaining,omitempty"`
}

// SubmitJob submits a processing request for an uploaded file.
func (c *Client) SubmitJob(ctx context.Context, req SubmitRequest) (JobHandle, error) {
	var handle JobHandle
	err := c.do(ctx, http.MethodPost, "/process", req, authAPIKey, &handle)
	return handle, err
}

// BatchSubmitRequest ...
type BatchSubmitRequest struct {
	Jobs       []SubmitRequest `json:"jobs"`
	WebhookURL string          `json:"webhook_url,omitempty"`
}

// BatchHandle ...
type BatchHandle struct {
	BatchID string      `json:"batch_id"`
	Jobs    []JobHandle `json:"jobs"`
	Total   int         `json:"total"`
}

// SubmitBatch submits multiple processing requests in one call.
func (c *Client) SubmitBatch(ctx context.Context, req BatchSubmitRequest) (BatchHandle, error) {
	var handle BatchHandle
	err := c.do(ctx, http.MethodPost, "/batch/process", req, authAPIKey, &handle)
	return handle, err
}

// JobStatus ...
type JobStatus struct {
	JobID           string `json:"job_id"`
	Status          Status `json:"status"`
	Progress        int    `json:"progress,omitempty"`
	ProgressMessage string `json:"progress_message,omitempty"`
	OutputKey       string `json:"output_key,omitempty"`
	Error           string `json:"error,omitempty"`
}

// GetJobStatus fetches the current status of a single job.
func (c *Client) GetJobStatus(ctx context.Context, jobID string) (JobStatus, error) {
	var status JobStatus
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/jobs/%s", url.PathEscape(jobID)), nil, authAPIKey, &status)
	return status, err
}

// BatchStatus ...
type BatchStatus struct {
	BatchID       string      `json:"batch_id"`
	Status        Status      `json:"status"`
	TotalJobs     int         `json:"total_jobs"`
	CompletedJobs int         `json:"completed_jobs"`
	Jobs          []JobStatus `json:"jobs"`
}

// GetBatchStatus fetches the aggregated status of a batch submission.
func (c *Client) GetBatchStatus(ctx context.Context, batchID string) (BatchStatus, error) {
	var status BatchStatus
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/batch/%s", url.PathEscape(batchID)), nil, authAPIKey, &status)
	return status, err
}

// CancelResult ...
type CancelResult struct {
	JobID   string `json:"job_id"`
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// CancelJob asks the server to cancel a job. Abandoning a watch client-side
// does not imply this call; cancellation is always explicit.
func (c *Client) CancelJob(ctx context.Context, jobID string) (CancelResult, error) {
	var result CancelResult
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/jobs/%s", url.PathEscape(jobID)), nil, authAPIKey, &result)
	return result, err
}

// DownloadGrant is a time-limited retrieval URL for a completed job's output.
// Its validity is server-enforced: re-fetch rather than cache across sessions.
type DownloadGrant struct {
	URL string `json:"download_url"`
}

// GetDownloadGrant exchanges a completed job ID for a download URL. Calling it
// before the job reached the completed state is a caller error; the server's
// behavior in that case is undefined.
func (c *Client) GetDownloadGrant(ctx context.Context, jobID string) (DownloadGrant, error) {
	var grant DownloadGrant
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/download/%s", url.PathEscape(jobID)), nil, authAPIKey, &grant)
	return grant, err
}

type creditsResponse struct {
	Credits int `json:"credits"`
}

// GetCredits fetches the authoritative credit balance.
func (c *Client) GetCredits(ctx context.Context) (int, error) {
	var resp creditsResponse
	if err := c.do(ctx, http.MethodGet, "/credits", nil, authAPIKey, &resp); err != nil {
		return 0, err
	}
	return resp.Credits, nil
}

type redeemRequest struct {
	LicenseKey string `json:"license_key"`
}

// RedeemResult ...
type RedeemResult struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	CreditsAdded int    `json:"credits_added"`
	NewBalance   int    `json:"new_balance"`
}

// Redeem exchanges a license key for credits. This is an account-management
// operation and authenticates with the bearer session token.
func (c *Client) Redeem(ctx context.Context, licenseKey string) (RedeemResult, error) {
	var result RedeemResult
	err := c.do(ctx, http.MethodPost, "/redeem", redeemRequest{LicenseKey: licenseKey}, authBearer, &result)
	return result, err
}
