// Package errormsg maps pipeline errors to human-readable guidance. Typed
// errors are matched first; unstructured ones fall back to best-effort text
// matching. Unrecognized errors always map to a generic retry-or-support
// message, never a raw technical string.
package errormsg

import (
	"context"
	"errors"
	"strings"

	"github.com/jiulngdjso/poofpop-web/api"
	"github.com/jiulngdjso/poofpop-web/process"
	"github.com/jiulngdjso/poofpop-web/task"
	"github.com/jiulngdjso/poofpop-web/upload"
	"github.com/jiulngdjso/poofpop-web/watch"
)

// Action is an optional remedial link attached to a message.
type Action struct {
	Label string
	URL   string
}

// Message is the title/message/guidance triple shown to the user.
type Message struct {
	Title    string
	Message  string
	Guidance string
	Action   *Action
}

const (
	codeFileTooLarge        = "FILE_TOO_LARGE"
	codeInvalidFileType     = "INVALID_FILE_TYPE"
	codeInsufficientCredits = "INSUFFICIENT_CREDITS"
	codeSubmitError         = "RUNPOD_SUBMIT_ERROR"
	codeTimeout             = "RUNPOD_TIMEOUT"
	codeProcessingFailed    = "PROCESSING_FAILED"
	codeContentRejected     = "CONTENT_REJECTED"
	codeNetworkError        = "NETWORK_ERROR"
	codeUploadFailed        = "UPLOAD_FAILED"
	codeRateLimited         = "RATE_LIMITED"
	codeInvalidAPIKey       = "INVALID_API_KEY"
	codeCancelled           = "JOB_CANCELLED"
	codeUnknown             = "UNKNOWN_ERROR"
)

var catalogue = map[string]Message{
	codeFileTooLarge: {
		Title:    "File Too Large",
		Message:  "Your video exceeds the 200MB size limit.",
		Guidance: "Try compressing your video or trimming it to a shorter length.",
	},
	codeInvalidFileType: {
		Title:    "Unsupported Format",
		Message:  "This file type is not supported.",
		Guidance: "Please upload a video in MP4, MOV, or WebM format.",
	},
	codeInsufficientCredits: {
		Title:    "Not Enough Credits",
		Message:  "You need more credits to process this video.",
		Guidance: "Purchase more credits from Gumroad to continue.",
		Action:   &Action{Label: "Get Credits", URL: "https://poofpop.gumroad.com/l/100Credits"},
	},
	codeSubmitError: {
		Title:    "Processing Failed to Start",
		Message:  "We couldn't start processing your video.",
		Guidance: "This is usually temporary. Please try again in a few minutes.",
	},
	codeTimeout: {
		Title:    "Processing Timed Out",
		Message:  "Your video took too long to process.",
		Guidance: "Try uploading a shorter video (under 2 minutes works best).",
	},
	codeProcessingFailed: {
		Title:    "Processing Failed",
		Message:  "Something went wrong while processing your video.",
		Guidance: "Make sure your video is not corrupted. If the issue persists, try a different video.",
	},
	codeContentRejected: {
		Title:    "Content Not Allowed",
		Message:  "This video can't be processed.",
		Guidance: "The file didn't pass our content check. Try a different video.",
	},
	codeNetworkError: {
		Title:    "Connection Problem",
		Message:  "We couldn't connect to our servers.",
		Guidance: "Check your internet connection and try again.",
	},
	codeUploadFailed: {
		Title:    "Upload Failed",
		Message:  "Your video failed to upload.",
		Guidance: "Check your internet connection and try uploading again.",
	},
	codeRateLimited: {
		Title:    "Too Many Requests",
		Message:  "You've made too many requests.",
		Guidance: "Please wait a minute before trying again.",
	},
	codeInvalidAPIKey: {
		Title:    "Authentication Failed",
		Message:  "Your API key is invalid or expired.",
		Guidance: "Contact support to get a new API key.",
	},
	codeCancelled: {
		Title:    "Processing Cancelled",
		Message:  "This job was cancelled before it finished.",
		Guidance: "Start the upload again to process the video.",
	},
	codeUnknown: {
		Title:    "Something Went Wrong",
		Message:  "An unexpected error occurred.",
		Guidance: "Please try again. If the issue persists, contact support.",
	},
}

// For resolves the user-facing message for err.
func For(err error) Message {
	if code, ok := codeForTypedError(err); ok {
		return catalogue[code]
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		if msg, ok := catalogue[apiErr.Code]; ok {
			return msg
		}
		switch apiErr.StatusCode {
		case 429:
			return catalogue[codeRateLimited]
		case 401, 403:
			return catalogue[codeInvalidAPIKey]
		}
	}

	return matchText(err.Error())
}

func codeForTypedError(err error) (string, bool) {
	var (
		tooLarge     *task.TooLargeError
		invalidType  *task.InvalidTypeError
		noCredits    *api.InsufficientCreditsError
		connErr      *api.ConnectionError
		uploadErr    *upload.Error
		safetyErr    *process.SafetyRejectedError
		jobFailed    *watch.JobFailedError
		jobCancelled *watch.JobCancelledError
	)
	switch {
	case errors.As(err, &tooLarge):
		return codeFileTooLarge, true
	case errors.As(err, &invalidType):
		return codeInvalidFileType, true
	case errors.As(err, &noCredits):
		return codeInsufficientCredits, true
	case errors.As(err, &connErr):
		return codeNetworkError, true
	case errors.As(err, &uploadErr):
		return codeUploadFailed, true
	case errors.As(err, &safetyErr):
		return codeContentRejected, true
	case errors.As(err, &jobCancelled):
		return codeCancelled, true
	case errors.As(err, &jobFailed):
		if strings.Contains(strings.ToLower(jobFailed.Detail), "timeout") {
			return codeTimeout, true
		}
		return codeProcessingFailed, true
	case errors.Is(err, context.DeadlineExceeded):
		return codeTimeout, true
	}
	return "", false
}

// matchText is the last resort for errors that carry neither a type nor a
// structured code.
func matchText(text string) Message {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "429") || strings.Contains(lower, "rate limit"):
		return catalogue[codeRateLimited]
	case strings.Contains(text, "401") || strings.Contains(text, "403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "api key") ||
		strings.Contains(lower, "api_key"):
		return catalogue[codeInvalidAPIKey]
	case strings.Contains(lower, "insufficient credits") || strings.Contains(lower, "not enough credits"):
		return catalogue[codeInsufficientCredits]
	case strings.Contains(lower, "timeout"):
		return catalogue[codeTimeout]
	case strings.Contains(lower, "network") || strings.Contains(lower, "connect"):
		return catalogue[codeNetworkError]
	case strings.Contains(lower, "upload"):
		return catalogue[codeUploadFailed]
	case strings.Contains(lower, "file") && strings.Contains(lower, "large"):
		return catalogue[codeFileTooLarge]
	case strings.Contains(lower, "file") && strings.Contains(lower, "type"):
		return catalogue[codeInvalidFileType]
	}

	msg := catalogue[codeUnknown]
	if text != "" {
		msg.Message = text
	}
	return msg
}
