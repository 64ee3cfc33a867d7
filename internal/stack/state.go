// Package stack holds the patch stack snapshot and its versioned JSON form.
package stack

import (
	"fmt"
	"maps"
	"slices"

	"github.com/kilupskalvis/stq/internal/models"
)

// Snapshot is the read view of a stack consumed by ToStackJSON.
type Snapshot interface {
	Prev() (models.Oid, bool)
	Head() models.Oid
	Applied() []models.PatchName
	Unapplied() []models.PatchName
	Hidden() []models.PatchName
	PatchCommits() map[models.PatchName]models.Oid
}

// StackState is an immutable point-in-time view of a patch stack. Mutating
// helpers return a new StackState whose prev points at the persisted
// state they were derived from.
type StackState struct {
	prev      *models.Oid
	head      models.Oid
	applied   []models.PatchName
	unapplied []models.PatchName
	hidden    []models.PatchName
	patches   map[models.PatchName]models.Oid
}

// NewStackState copies its arguments into a new snapshot.
func NewStackState(prev *models.Oid, head models.Oid, applied, unapplied, hidden []models.PatchName, patches map[models.PatchName]models.Oid) *StackState {
	s := &StackState{
		head:      head,
		applied:   slices.Clone(applied),
		unapplied: slices.Clone(unapplied),
		hidden:    slices.Clone(hidden),
		patches:   maps.Clone(patches),
	}
	if prev != nil {
		p := *prev
		s.prev = &p
	}
	if s.patches == nil {
		s.patches = make(map[models.PatchName]models.Oid)
	}
	return s
}

// InitialState is an empty stack sitting on base.
func InitialState(base models.Oid) *StackState {
	return NewStackState(nil, base, nil, nil, nil, nil)
}

// Prev returns the state this one was derived from, if any.
func (s *StackState) Prev() (models.Oid, bool) {
	if s.prev == nil {
		return models.Oid{}, false
	}
	return *s.prev, true
}

// Head returns the commit at the top of the applied patches.
func (s *StackState) Head() models.Oid { return s.head }

// Applied returns the applied patches, bottom first.
func (s *StackState) Applied() []models.PatchName { return slices.Clone(s.applied) }

// Unapplied returns the unapplied patches in stack order.
func (s *StackState) Unapplied() []models.PatchName { return slices.Clone(s.unapplied) }

// Hidden returns the hidden patches.
func (s *StackState) Hidden() []models.PatchName { return slices.Clone(s.hidden) }

// PatchCommits returns a copy of the patch to commit mapping.
func (s *StackState) PatchCommits() map[models.PatchName]models.Oid { return maps.Clone(s.patches) }

// Commit returns the commit recorded for a patch.
func (s *StackState) Commit(name models.PatchName) (models.Oid, bool) {
	oid, ok := s.patches[name]
	return oid, ok
}

// Has reports whether the stack knows the patch.
func (s *StackState) Has(name models.PatchName) bool {
	_, ok := s.patches[name]
	return ok
}

// Top returns the topmost applied patch.
func (s *StackState) Top() (models.PatchName, bool) {
	if len(s.applied) == 0 {
		return models.PatchName{}, false
	}
	return s.applied[len(s.applied)-1], true
}

// AllPatches lists applied, unapplied and hidden patches in that order.
func (s *StackState) AllPatches() []models.PatchName {
	all := make([]models.PatchName, 0, len(s.applied)+len(s.unapplied)+len(s.hidden))
	all = append(all, s.applied...)
	all = append(all, s.unapplied...)
	return append(all, s.hidden...)
}

// Status reports which sequence holds the patch.
func (s *StackState) Status(name models.PatchName) PatchStatus {
	switch {
	case slices.Contains(s.applied, name):
		return StatusApplied
	case slices.Contains(s.unapplied, name):
		return StatusUnapplied
	case slices.Contains(s.hidden, name):
		return StatusHidden
	}
	return StatusUnknown
}

// PatchStatus is the sequence a patch belongs to.
type PatchStatus string

const (
	StatusApplied   PatchStatus = "applied"
	StatusUnapplied PatchStatus = "unapplied"
	StatusHidden    PatchStatus = "hidden"
	StatusUnknown   PatchStatus = ""
)

// next clones s as the successor of the persisted state prev.
func (s *StackState) next(prev models.Oid) *StackState {
	return NewStackState(&prev, s.head, s.applied, s.unapplied, s.hidden, s.patches)
}

// WithNewPatch pushes a new patch on top of the applied sequence.
func (s *StackState) WithNewPatch(prev models.Oid, name models.PatchName, commit models.Oid) (*StackState, error) {
	if s.Has(name) {
		return nil, fmt.Errorf("patch `%s` already exists", name)
	}
	n := s.next(prev)
	n.applied = append(n.applied, name)
	n.patches[name] = commit
	n.head = commit
	return n, nil
}

// WithPatchCommit records a new commit for an existing patch. The head
// follows when the patch is the topmost applied one.
func (s *StackState) WithPatchCommit(prev models.Oid, name models.PatchName, commit models.Oid) (*StackState, error) {
	if !s.Has(name) {
		return nil, fmt.Errorf("patch `%s` does not exist", name)
	}
	n := s.next(prev)
	n.patches[name] = commit
	if top, ok := n.Top(); ok && top == name {
		n.head = commit
	}
	return n, nil
}

// WithRenamedPatch renames a patch, keeping its position and commit.
func (s *StackState) WithRenamedPatch(prev models.Oid, from, to models.PatchName) (*StackState, error) {
	if !s.Has(from) {
		return nil, fmt.Errorf("patch `%s` does not exist", from)
	}
	if s.Has(to) {
		return nil, fmt.Errorf("patch `%s` already exists", to)
	}
	n := s.next(prev)
	for _, seq := range [][]models.PatchName{n.applied, n.unapplied, n.hidden} {
		if i := slices.Index(seq, from); i >= 0 {
			seq[i] = to
		}
	}
	n.patches[to] = n.patches[from]
	delete(n.patches, from)
	return n, nil
}
