package storage

import (
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// Sentinel errors for classified transport failures.
var (
	ErrNotFound     = errors.New("object not found")
	ErrAccessDenied = errors.New("access denied")
	ErrThrottled    = errors.New("request throttled")
)

// StoreError wraps an S3 operation failure with its context.
type StoreError struct {
	Op     string // "List", "Download", "Upload"
	Bucket string
	Key    string
	Err    error
}

func (e *StoreError) Error() string {
	msg := e.Op + " " + e.Bucket
	if e.Key != "" {
		msg += "/" + e.Key
	}
	return msg + ": " + e.Err.Error()
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// wrapError converts SDK errors to StoreErrors with sentinel causes
// where the failure class is recognizable.
func wrapError(op, bucket, key string, err error) error {
	wrapped := &StoreError{Op: op, Bucket: bucket, Key: key, Err: err}

	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	switch {
	case errors.As(err, &notFound), errors.As(err, &noSuchKey):
		wrapped.Err = ErrNotFound
		return wrapped
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NotFound":
			wrapped.Err = ErrNotFound
		case "AccessDenied", "Forbidden":
			wrapped.Err = ErrAccessDenied
		case "SlowDown", "Throttling", "RequestLimitExceeded":
			wrapped.Err = ErrThrottled
		}
	}
	return wrapped
}

// cleanETag removes the surrounding quotes S3 puts on ETag values.
func cleanETag(etag string) string {
	return strings.Trim(etag, "\"")
}
