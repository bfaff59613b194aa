package worker

import "errors"

var (
	// permanent
	ErrMissingJobField = errors.New("missing job field")
	ErrFileNotFound    = errors.New("file not found")
	ErrNotAnImage      = errors.New("not an image")
	ErrUserNotFound    = errors.New("user not found")

	// retryable
	ErrThumbnailGenerationFailed = errors.New("thumbnail generation failed")
)

// JobError tags a handler failure with whether another attempt could help.
type JobError struct {
	Err       error
	permanent bool
}

func (e *JobError) Error() string { return e.Err.Error() }

func (e *JobError) Unwrap() error { return e.Err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return &JobError{Err: err, permanent: true}
}

func Retryable(err error) error {
	return &JobError{Err: err}
}

// IsPermanent reports whether err was marked Permanent. Unclassified errors
// are retryable.
func IsPermanent(err error) bool {
	var je *JobError
	return errors.As(err, &je) && je.permanent
}
