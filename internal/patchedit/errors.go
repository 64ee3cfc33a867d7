package patchedit

import (
	"errors"
	"fmt"
)

var (
	// ErrNonUTF8Description is returned when a line before the diff is not valid UTF-8.
	ErrNonUTF8Description = errors.New("patch description contains non-UTF-8 data")

	// ErrInvalidAuthor is returned when the Author header is not "Name <email>".
	ErrInvalidAuthor = errors.New("invalid author")

	// ErrEmptyDescription signals that the document carried nothing to apply,
	// typically because the template was saved untouched.
	ErrEmptyDescription = errors.New("aborting edit due to empty patch description")
)

// InvalidDateError reports a Date header that does not match DateFormat.
type InvalidDateError struct {
	Value   string
	Context string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date `%s` in %s", e.Value, e.Context)
}
