package models

import (
	"errors"
	"fmt"
)

// ErrStorage matches every StorageError through errors.Is.
var ErrStorage = errors.New("there was a database error")

// InvalidReferenceError is returned when a citation string does not parse.
type InvalidReferenceError struct {
	Reference string
}

func (e *InvalidReferenceError) Error() string {
	return fmt.Sprintf("'%s' is not a valid Bible reference.", e.Reference)
}

// BookNotFoundError is returned when a book token matches no abbreviation.
type BookNotFoundError struct {
	Book string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("'%s' was not found.", e.Book)
}

// StorageError wraps an underlying storage or index failure. Its message is
// deliberately generic; the cause is only reachable through Unwrap.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return ErrStorage.Error()
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// IsUserError reports whether err was caused by the caller's input.
func IsUserError(err error) bool {
	var invalid *InvalidReferenceError
	var notFound *BookNotFoundError
	return errors.As(err, &invalid) || errors.As(err, &notFound)
}
