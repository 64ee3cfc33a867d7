// Package patchedit converts patch metadata to and from the text document
// handed to a user's editor.
//
// The document has three positional headers (Patch, Author, Date), a blank
// line, the free-form message, and optionally a "---" line followed by the
// raw diff. Lines starting with '#' before the diff are comments.
package patchedit

import (
	"bytes"
	"io"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/kilupskalvis/stq/internal/models"
)

// DateFormat is the Go layout for "%Y-%m-%d %H:%M:%S %z".
const DateFormat = "2006-01-02 15:04:05 -0700"

const diffSentinel = "---"

// Header lines are only recognized at these absolute line indexes.
// Comment lines count toward the index.
const (
	patchHeaderLine  = 0
	authorHeaderLine = 1
	dateHeaderLine   = 2
)

// DefaultInstruction is appended after the message when rendering a template.
const DefaultInstruction = `# Please enter the message for your patch. Lines starting
# with '#' will be ignored. An empty message aborts the edit.
# The patch name and author information may also be modified.
`

// DefaultDiffInstruction precedes the diff when one is rendered.
const DefaultDiffInstruction = `# The diff below is carried through verbatim. Everything after
# the "---" line belongs to the diff, including lines starting with '#'.
`

// DiffBuffer holds an opaque diff payload.
type DiffBuffer []byte

// Equal compares two diff payloads by content.
func (d DiffBuffer) Equal(other DiffBuffer) bool {
	return bytes.Equal(d, other)
}

// PatchDescription is the editable view of a single patch.
type PatchDescription struct {
	Patchname *models.PatchName
	Author    *models.Signature
	Message   string

	// Instruction and DiffInstruction are template guidance. They are
	// written by Write and never populated by Parse.
	Instruction     string
	DiffInstruction string

	// Diff is nil when the patch carries no diff section.
	Diff DiffBuffer
}

// Write renders the description to w.
func (pd *PatchDescription) Write(w io.Writer) error {
	ew := &errWriter{w: w}

	patchname := ""
	if pd.Patchname != nil {
		patchname = pd.Patchname.String()
	}
	ew.writeString("Patch:  " + patchname + "\n")

	if pd.Author != nil {
		ew.writeString("Author: " + pd.Author.Name + " <" + pd.Author.Email + ">\n")
		ew.writeString("Date:   " + pd.Author.Time().Format(DateFormat) + "\n")
	} else {
		ew.writeString("Author: \n")
		ew.writeString("Date:   \n")
	}

	message := strings.TrimRight(pd.Message, "\n")
	ew.writeString("\n" + message + "\n")

	if pd.Instruction != "" {
		ew.writeString("\n" + pd.Instruction)
	} else {
		ew.writeString("\n")
	}

	if pd.Diff != nil {
		if pd.DiffInstruction != "" {
			ew.writeString(pd.DiffInstruction)
		}
		ew.writeString(diffSentinel + "\n")
		ew.write(pd.Diff)
	}
	return ew.err
}

// Bytes renders the description into a new buffer.
func (pd *PatchDescription) Bytes() []byte {
	var buf bytes.Buffer
	_ = pd.Write(&buf) // bytes.Buffer writes do not fail
	return buf.Bytes()
}

// errWriter stops writing after the first failure and remembers it.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) write(p []byte) {
	if ew.err != nil {
		return
	}
	_, ew.err = ew.w.Write(p)
}

func (ew *errWriter) writeString(s string) {
	ew.write([]byte(s))
}

// Parse reads an edited document. Authors without a Date header are stamped
// with the current time.
func Parse(buf []byte) (*PatchDescription, error) {
	return parse(buf, time.Now)
}

func parse(buf []byte, now func() time.Time) (*PatchDescription, error) {
	var (
		rawPatchname, rawAuthor, rawDate *string
		consumeDiff                      bool
		consumingMessage                 bool
		consecutiveEmpty                 int
		message                          strings.Builder
		pos                              int
	)

	for lineNum, line := range splitLines(buf) {
		pos += len(line)
		if len(line) > 0 && line[0] == '#' {
			continue
		}

		if !utf8.Valid(line) {
			return nil, ErrNonUTF8Description
		}
		trimmed := strings.TrimRightFunc(string(line), unicode.IsSpace)

		if trimmed == diffSentinel {
			consumeDiff = true
			break
		}

		if consumingMessage {
			if trimmed == "" {
				if consecutiveEmpty == 0 {
					message.WriteByte('\n')
				}
				consecutiveEmpty++
			} else {
				consecutiveEmpty = 0
				message.WriteString(trimmed)
				message.WriteByte('\n')
			}
			continue
		}

		if key, value, ok := strings.Cut(trimmed, ":"); ok {
			value = strings.TrimSpace(value)
			switch {
			case lineNum == patchHeaderLine && key == "Patch":
				rawPatchname = &value
				continue
			case lineNum == authorHeaderLine && key == "Author":
				rawAuthor = &value
				continue
			case lineNum == dateHeaderLine && key == "Date":
				rawDate = &value
				continue
			}
		}

		// The first blank line after the headers is swallowed.
		if trimmed != "" {
			message.WriteString(trimmed)
			message.WriteByte('\n')
		} else {
			consecutiveEmpty++
		}
		consumingMessage = true
	}

	msg := message.String()
	if rawPatchname == nil && rawAuthor == nil && rawDate == nil && strings.TrimSpace(msg) == "" {
		return nil, ErrEmptyDescription
	}

	pd := &PatchDescription{}

	if rawPatchname != nil && *rawPatchname != "" {
		pn, err := models.ParsePatchName(*rawPatchname)
		if err != nil {
			return nil, err
		}
		pd.Patchname = &pn
	}

	if rawAuthor != nil {
		name, email, err := models.ParseNameEmail(*rawAuthor)
		if err != nil {
			return nil, &authorError{err: err}
		}
		var sig models.Signature
		if rawDate != nil {
			t, err := time.Parse(DateFormat, *rawDate)
			if err != nil {
				return nil, &InvalidDateError{Value: *rawDate, Context: "patch description"}
			}
			sig = models.NewSignature(name, email, t)
		} else {
			sig = models.NewSignature(name, email, now())
		}
		pd.Author = &sig
	}

	if strings.HasSuffix(msg, "\n\n") {
		msg = msg[:len(msg)-1]
	}
	if strings.TrimSpace(msg) == "" {
		msg = ""
	}
	pd.Message = msg

	if consumeDiff {
		region := buf[pos:]
		if len(bytes.TrimLeft(region, asciiWhitespace)) > 0 {
			pd.Diff = DiffBuffer(bytes.Clone(region))
		}
	}

	return pd, nil
}

// asciiWhitespace matches the bytes a diff region may consist of and still
// count as empty.
const asciiWhitespace = " \t\n\f\r"

// splitLines splits buf after every '\n', keeping the terminators. A final
// unterminated line is returned as is.
func splitLines(buf []byte) [][]byte {
	var lines [][]byte
	for len(buf) > 0 {
		i := bytes.IndexByte(buf, '\n')
		if i < 0 {
			lines = append(lines, buf)
			break
		}
		lines = append(lines, buf[:i+1])
		buf = buf[i+1:]
	}
	return lines
}

// authorError ties an author parse failure to both ErrInvalidAuthor and the
// underlying models error.
type authorError struct {
	err error
}

func (e *authorError) Error() string {
	return "patch description: " + e.err.Error()
}

func (e *authorError) Is(target error) bool {
	return target == ErrInvalidAuthor
}

func (e *authorError) Unwrap() error {
	return e.err
}
