package task

import (
	"fmt"
	"strings"

	"github.com/docker/go-units"
)

// MaxFileSize is the upload size cap enforced before any network call.
const MaxFileSize = 200 * units.MB

// InvalidTypeError means the declared content type is not a video.
type InvalidTypeError struct {
	ContentType string
}

func (e *InvalidTypeError) Error() string {
	return fmt.Sprintf("unsupported file type %q: only video files can be processed", e.ContentType)
}

// TooLargeError means the file exceeds MaxFileSize.
type TooLargeError struct {
	Size int64
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("file is too large: %s exceeds the %s limit",
		units.HumanSize(float64(e.Size)), units.HumanSize(float64(MaxFileSize)))
}

// ValidateFile rejects files that can never be processed, before a single
// byte leaves the machine.
func ValidateFile(contentType string, size int64) error {
	if !strings.HasPrefix(contentType, "video/") {
		return &InvalidTypeError{ContentType: contentType}
	}
	if size <= 0 {
		return fmt.Errorf("file is empty")
	}
	if size > MaxFileSize {
		return &TooLargeError{Size: size}
	}
	return nil
}
