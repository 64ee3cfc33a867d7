package stack

import (
	"fmt"
	"strings"
)

// StructureError reports a stack document that does not have the expected
// shape: malformed JSON, missing keys, wrong types or invalid patch names.
type StructureError struct {
	Issues []string
	Err    error
}

func (e *StructureError) Error() string {
	if len(e.Issues) > 0 {
		return "invalid stack state: " + strings.Join(e.Issues, "; ")
	}
	return fmt.Sprintf("invalid stack state: %v", e.Err)
}

func (e *StructureError) Unwrap() error {
	return e.Err
}

// UnsupportedVersionError is returned for any version other than CurrentVersion.
type UnsupportedVersionError struct {
	Got  int64
	Want int64
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported stack state version %d, expected %d", e.Got, e.Want)
}

// InvalidOidError names an identifier in the stack document that is not a
// valid object id. Patch is set for entries of the patches mapping.
type InvalidOidError struct {
	Field string
	Patch string
	Value string
	Err   error
}

func (e *InvalidOidError) Error() string {
	if e.Patch != "" {
		return fmt.Sprintf("invalid oid for patch `%s`: '%s'", e.Patch, e.Value)
	}
	return fmt.Sprintf("invalid `%s` oid '%s'", e.Field, e.Value)
}

func (e *InvalidOidError) Unwrap() error {
	return e.Err
}
