// Package result exchanges a completed job for its downloadable output.
package result

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bitrise-io/go-utils/v2/log"
	"github.com/melbahja/got"

	"github.com/jiulngdjso/poofpop-web/api"
)

// GrantAPI ...
type GrantAPI interface {
	GetDownloadGrant(ctx context.Context, jobID string) (api.DownloadGrant, error)
}

// Resolver fetches time-limited download URLs for completed jobs and can
// save the output to disk. The grant must only be requested after a
// completed terminal state was observed.
type Resolver struct {
	api        GrantAPI
	httpClient *http.Client
	logger     log.Logger
}

// NewResolver creates a resolver. httpClient may be nil, in which case the
// default client is used for downloads.
func NewResolver(grantAPI GrantAPI, httpClient *http.Client, logger log.Logger) *Resolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Resolver{
		api:        grantAPI,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Resolve exchanges a completed job ID for a download grant. Grants are not
// cached: their validity is server-enforced, so callers re-fetch rather than
// reuse across sessions.
func (r *Resolver) Resolve(ctx context.Context, jobID string) (api.DownloadGrant, error) {
	grant, err := r.api.GetDownloadGrant(ctx, jobID)
	if err != nil {
		return api.DownloadGrant{}, fmt.Errorf("failed to get download URL: %w", err)
	}
	if grant.URL == "" {
		return api.DownloadGrant{}, fmt.Errorf("server returned an empty download URL")
	}
	return grant, nil
}

// SaveTo downloads the granted output to dest.
func (r *Resolver) SaveTo(ctx context.Context, grant api.DownloadGrant, dest string) error {
	r.logger.Debugf("Downloading result to %s", dest)

	downloader := got.New()
	downloader.Client = r.httpClient

	if err := downloader.Do(got.NewDownload(ctx, grant.URL, dest)); err != nil {
		return fmt.Errorf("failed to download result: %w", err)
	}
	return nil
}
