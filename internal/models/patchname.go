package models

import (
	"fmt"
	"strings"
	"unicode"
)

// PatchName is a validated patch identifier. The zero value is not a valid
// name; obtain one through ParsePatchName.
type PatchName struct {
	name string
}

// InvalidPatchNameError reports a string rejected by ParsePatchName.
type InvalidPatchNameError struct {
	Name   string
	Reason string
}

func (e *InvalidPatchNameError) Error() string {
	return fmt.Sprintf("invalid patch name `%s`: %s", e.Name, e.Reason)
}

// ParsePatchName validates s against the ref-like patch name grammar.
func ParsePatchName(s string) (PatchName, error) {
	if reason := checkPatchName(s); reason != "" {
		return PatchName{}, &InvalidPatchNameError{Name: s, Reason: reason}
	}
	return PatchName{name: s}, nil
}

// MustParsePatchName panics on invalid input. Intended for fixtures.
func MustParsePatchName(s string) PatchName {
	pn, err := ParsePatchName(s)
	if err != nil {
		panic(err)
	}
	return pn
}

func checkPatchName(s string) string {
	switch {
	case s == "":
		return "name is empty"
	case s == "@":
		return "name cannot be `@`"
	case strings.HasPrefix(s, "."):
		return "name cannot start with `.`"
	case strings.HasSuffix(s, "."):
		return "name cannot end with `.`"
	case strings.HasSuffix(s, ".lock"):
		return "name cannot end with `.lock`"
	case strings.Contains(s, ".."):
		return "name cannot contain `..`"
	case strings.Contains(s, "@{"):
		return "name cannot contain `@{`"
	}
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "name cannot contain whitespace or control characters"
		}
		if strings.ContainsRune(`~^:?*[\/`, r) {
			return fmt.Sprintf("name cannot contain `%c`", r)
		}
	}
	return ""
}

func (p PatchName) String() string {
	return p.name
}

// Compare orders patch names bytewise.
func (p PatchName) Compare(other PatchName) int {
	return strings.Compare(p.name, other.name)
}

// MarshalText implements encoding.TextMarshaler.
func (p PatchName) MarshalText() ([]byte, error) {
	return []byte(p.name), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, validating the name.
func (p *PatchName) UnmarshalText(text []byte) error {
	pn, err := ParsePatchName(string(text))
	if err != nil {
		return err
	}
	*p = pn
	return nil
}
