package data

import (
	"fmt"

	"github.com/pkg/errors"
)

// NotFoundError is returned when a path does not reference an existing file. Path is always absolute.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("File not found: %s", e.Path)
}

// MissingAttributeError is returned when a boundary record lacks the attribute used to derive its label.
type MissingAttributeError struct {
	Attribute string
	Index     int
}

func (e *MissingAttributeError) Error() string {
	return fmt.Sprintf("Record %d is missing required '%s' attribute", e.Index, e.Attribute)
}

// IsNotFound reports whether err (or anything it wraps) is a *NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsMissingAttribute reports whether err (or anything it wraps) is a *MissingAttributeError.
func IsMissingAttribute(err error) bool {
	var ma *MissingAttributeError
	return errors.As(err, &ma)
}
