// Package common defines the sentinel errors shared by the repository, service
// and transport layers. Match them with errors.Is / errors.As.
package common

import "errors"

var (
	// repository
	ErrNotFound = errors.New("Not found")

	// access
	ErrUnauthorized = errors.New("Unauthorized")

	// upload
	ErrParentNotFound     = errors.New("Parent not found")
	ErrParentNotFolder    = errors.New("Parent is not a folder")
	ErrStorageWriteFailed = errors.New("Cannot store the file")

	// retrieval
	ErrFolderHasNoContent = errors.New("A folder doesn't have content")
	ErrInvalidSize        = errors.New("Invalid size")

	// users
	ErrEmailExists = errors.New("Already exist")
)

// ValidationError reports a required field that was absent or unusable.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "Missing " + e.Field
}

// MissingField builds a ValidationError for field.
func MissingField(field string) error {
	return &ValidationError{Field: field}
}
