package models

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ErrInvalidNameEmail is returned when a "Name <email>" string cannot be split.
var ErrInvalidNameEmail = errors.New("invalid name and email")

var nameEmailRe = regexp.MustCompile(`^([^<>]*?)\s*<([^<>]+)>$`)

// Signature identifies who authored a patch and when
type Signature struct {
	Name          string
	Email         string
	When          int64 // Unix seconds
	OffsetMinutes int   // Offset from UTC, east positive
}

// NewSignature builds a signature from a point in time, keeping t's zone offset.
func NewSignature(name, email string, t time.Time) Signature {
	_, offset := t.Zone()
	return Signature{
		Name:          name,
		Email:         email,
		When:          t.Unix(),
		OffsetMinutes: offset / 60,
	}
}

// SignatureNow is NewSignature with the current local time.
func SignatureNow(name, email string) Signature {
	return NewSignature(name, email, time.Now())
}

// Time returns the signature's instant in its recorded offset.
func (s Signature) Time() time.Time {
	zone := time.FixedZone("", s.OffsetMinutes*60)
	return time.Unix(s.When, 0).In(zone)
}

// String formats the signature as "Name <email>".
func (s Signature) String() string {
	return fmt.Sprintf("%s <%s>", s.Name, s.Email)
}

// ParseNameEmail splits "Name <email>" into its parts. Surrounding whitespace
// is ignored; the name may not contain angle brackets.
func ParseNameEmail(s string) (name, email string, err error) {
	m := nameEmailRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", fmt.Errorf("%w `%s`", ErrInvalidNameEmail, s)
	}
	return strings.TrimSpace(m[1]), m[2], nil
}
