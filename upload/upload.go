package upload

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/docker/go-units"
)

// Params ...
type Params struct {
	// DestinationURL is the pre-signed PUT target from the upload init call,
	// or an s3:// URL for direct bucket access.
	DestinationURL string
	ContentType    string
	Path           string
	Size           int64
	// S3 holds credentials for s3:// destinations; ignored otherwise.
	S3 S3Options
}

// Error is a failed byte transfer. StatusCode is zero when the failure
// happened below the HTTP layer.
type Error struct {
	StatusCode int
	Cause      error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed with status %d: %s", e.StatusCode, e.Cause)
	}
	return fmt.Sprintf("upload failed: %s", e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Uploader ...
type Uploader interface {
	Upload(ctx context.Context, params Params, onProgress ProgressFunc, logger log.Logger) error
}

// DefaultUploader issues a single PUT of the full payload. Multi-part and
// resume are server-protocol details hidden behind the destination URL, so
// there is no client-side chunking and no retry: a failure surfaces
// immediately and the caller restarts from upload init.
type DefaultUploader struct {
	// HTTPClient can be injected for tests. When nil a client tuned for large
	// uploads is used.
	HTTPClient *http.Client
}

// Upload ...
func (u DefaultUploader) Upload(ctx context.Context, params Params, onProgress ProgressFunc, logger log.Logger) error {
	if params.DestinationURL == "" {
		return fmt.Errorf("destination URL is empty")
	}

	if strings.HasPrefix(params.DestinationURL, "s3://") {
		return uploadToS3(ctx, params, onProgress, logger)
	}

	file, err := os.Open(params.Path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer func(file *os.File) {
		if err := file.Close(); err != nil {
			logger.Errorf("failed to close file: %s", err)
		}
	}(file)

	size := params.Size
	if size == 0 {
		info, err := file.Stat()
		if err != nil {
			return fmt.Errorf("stat file: %w", err)
		}
		size = info.Size()
	}

	logger.Debugf("Uploading %s to %s", units.HumanSizeWithPrecision(float64(size), 3), params.DestinationURL)

	progress := newProgressReader(file, size, onProgress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, params.DestinationURL, progress)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", params.ContentType)
	req.ContentLength = size

	httpClient := u.HTTPClient
	if httpClient == nil {
		httpClient = defaultHTTPClient()
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		return &Error{Cause: err}
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logger.Printf(err.Error())
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		errorBody := make([]byte, 1024)
		n, _ := io.ReadAtLeast(resp.Body, errorBody, 1)
		return &Error{
			StatusCode: resp.StatusCode,
			Cause:      fmt.Errorf("%s", string(errorBody[:n])),
		}
	}

	progress.finish()
	logger.Debugf("Uploaded in %s", time.Since(start).Round(time.Second))

	return nil
}

// defaultHTTPClient is tuned for long-running single-connection uploads.
// Request lifetimes are bounded by the caller's context, not a client timeout.
func defaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			MaxIdleConns:        50,
			MaxConnsPerHost:     20,
			IdleConnTimeout:     10 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			Proxy:               http.ProxyFromEnvironment,
		},
	}
}
