package models

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strconv"
)

// OidHexLen is the length of an object id in its canonical hex form.
const OidHexLen = 40

// Oid identifies a stored object by the SHA-1 of its kind, length and content.
type Oid [20]byte

// ParseOid parses a 40 digit hexadecimal object id. Upper and lower case
// digits are accepted; anything else is rejected.
func ParseOid(s string) (Oid, error) {
	var oid Oid
	if len(s) != OidHexLen {
		return oid, fmt.Errorf("invalid object id %q: expected %d hex digits", s, OidHexLen)
	}
	if _, err := hex.Decode(oid[:], []byte(s)); err != nil {
		return Oid{}, fmt.Errorf("invalid object id %q: %w", s, err)
	}
	return oid, nil
}

// MustParseOid is ParseOid for constants in tests and fixtures.
func MustParseOid(s string) Oid {
	oid, err := ParseOid(s)
	if err != nil {
		panic(err)
	}
	return oid
}

// String returns the canonical lowercase hex form.
func (o Oid) String() string {
	return hex.EncodeToString(o[:])
}

// Short returns the first 7 hex digits
func (o Oid) Short() string {
	return o.String()[:7]
}

// IsZero reports whether o is the all-zero id.
func (o Oid) IsZero() bool {
	return o == Oid{}
}

// HashObject computes the content address of an object of the given kind.
// The header layout follows git: "<kind> <len>\x00" followed by the data.
func HashObject(kind string, data []byte) Oid {
	h := sha1.New()
	h.Write([]byte(kind))
	h.Write([]byte{' '})
	h.Write([]byte(strconv.Itoa(len(data))))
	h.Write([]byte{0})
	h.Write(data)
	var oid Oid
	copy(oid[:], h.Sum(nil))
	return oid
}
