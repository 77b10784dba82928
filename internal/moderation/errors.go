package moderation

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidIdentifier is returned when a video id fails format validation.
	ErrInvalidIdentifier = errors.New("invalid video identifier")

	// ErrInvalidStatus is returned when a verdict names anything but spam or not_spam.
	ErrInvalidStatus = errors.New("invalid verdict status")

	// ErrInvalidModerator is returned when no usable moderator identity was supplied.
	ErrInvalidModerator = errors.New("invalid moderator")

	// ErrVideoNotFound is returned when a verdict targets an unknown video.
	ErrVideoNotFound = errors.New("video not found")

	// ErrUnauthorized is returned when the moderator was never handed the video.
	ErrUnauthorized = errors.New("moderator has not been assigned this video")

	// ErrAlreadyResolved is returned when the video already carries a verdict.
	ErrAlreadyResolved = errors.New("video already resolved")

	// ErrStorageFailure marks every persistence error surfaced by the service.
	ErrStorageFailure = errors.New("storage failure")
)

// StorageError wraps a persistence error with the operation that hit it.
// It matches both ErrStorageFailure and the underlying cause.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v: %v", e.Op, ErrStorageFailure, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorageFailure, e.Err}
}

func storageError(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
