package extract

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey means no API key was configured.
	ErrMissingAPIKey = errors.New("extraction api key is not set")
	// ErrRateLimited is returned for HTTP 429 responses.
	ErrRateLimited = errors.New("extraction service rate limit exceeded")
	// ErrUnauthorized is returned for HTTP 401 and 403 responses.
	ErrUnauthorized = errors.New("extraction service rejected the api key")
	// ErrNoRecords means the answer held no usable entries.
	ErrNoRecords = errors.New("no game data detected")
	// ErrImageTooLarge means the image exceeds MaxImageBytes.
	ErrImageTooLarge = errors.New("image is too large")
)

// APIError is a non-success response from the service.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, e.Body)
}

// Unwrap maps well-known status codes to sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 429:
		return ErrRateLimited
	case 401, 403:
		return ErrUnauthorized
	default:
		return nil
	}
}

// UserMessage renders err for display. Errors in the chain that provide
// their own UserMessage method take precedence.
func UserMessage(err error) string {
	var custom interface{ UserMessage() string }
	switch {
	case err == nil:
		return ""
	case errors.As(err, &custom):
		return custom.UserMessage()
	case errors.Is(err, ErrRateLimited):
		return "API rate limit exceeded. Please wait and try again."
	case errors.Is(err, ErrMissingAPIKey), errors.Is(err, ErrUnauthorized):
		return "Invalid API key. Please check the configured API key environment variable."
	case errors.Is(err, ErrNoRecords):
		return "AI could not detect any game data. Please try a clearer image."
	case errors.Is(err, ErrImageTooLarge):
		return "画像サイズは4MBまでです。"
	default:
		return "Failed to process image with AI: " + err.Error()
	}
}

// Metered reports whether an extraction that ended with err counts against
// the usage allowance. Completed calls count even when nothing was detected.
func Metered(err error) bool {
	return err == nil || errors.Is(err, ErrNoRecords)
}
