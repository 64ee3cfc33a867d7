package stack

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/kilupskalvis/stq/internal/models"
)

// CurrentVersion is the only stack state document version understood.
const CurrentVersion int64 = 5

// RawStackState is a decoded stack document. Patch names and oids are
// validated, but oids are not resolved to commits.
type RawStackState struct {
	Prev      *models.Oid
	Head      models.Oid
	Applied   []models.PatchName
	Unapplied []models.PatchName
	Hidden    []models.PatchName
	Patches   map[models.PatchName]RawPatchDescriptor
}

// RawPatchDescriptor is the per-patch entry of a stack document.
type RawPatchDescriptor struct {
	Oid models.Oid
}

// stateDocument is the string-typed wire form.
type stateDocument struct {
	Version   int64
	Prev      *string
	Head      string
	Applied   []models.PatchName
	Unapplied []models.PatchName
	Hidden    []models.PatchName
}

// patchDocument is the wire form of a patch descriptor.
type patchDocument struct {
	Oid string `json:"oid"`
}

// decodeFields unmarshals the named members of a JSON object. Keys are
// matched exactly; encoding/json struct decoding would also accept keys
// differing only in case.
func decodeFields(obj map[string]json.RawMessage, fields map[string]any) error {
	for key, dst := range fields {
		v, ok := obj[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return fmt.Errorf("field `%s`: %w", key, err)
		}
	}
	return nil
}

// FromStackJSON decodes and validates a stack state document.
func FromStackJSON(data []byte) (*RawStackState, error) {
	if err := checkStructure(data); err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, &StructureError{Err: err}
	}
	var doc stateDocument
	var patchObjs map[models.PatchName]map[string]json.RawMessage
	err := decodeFields(top, map[string]any{
		"version":   &doc.Version,
		"prev":      &doc.Prev,
		"head":      &doc.Head,
		"applied":   &doc.Applied,
		"unapplied": &doc.Unapplied,
		"hidden":    &doc.Hidden,
		"patches":   &patchObjs,
	})
	if err != nil {
		return nil, &StructureError{Err: err}
	}
	patchOids := make(map[models.PatchName]string, len(patchObjs))
	for name, obj := range patchObjs {
		var oid string
		if err := decodeFields(obj, map[string]any{"oid": &oid}); err != nil {
			return nil, &StructureError{Err: fmt.Errorf("patch `%s`: %w", name, err)}
		}
		patchOids[name] = oid
	}

	if doc.Version != CurrentVersion {
		return nil, &UnsupportedVersionError{Got: doc.Version, Want: CurrentVersion}
	}

	raw := &RawStackState{
		Applied:   nonNil(doc.Applied),
		Unapplied: nonNil(doc.Unapplied),
		Hidden:    nonNil(doc.Hidden),
		Patches:   make(map[models.PatchName]RawPatchDescriptor, len(patchOids)),
	}

	if doc.Prev != nil {
		prev, err := models.ParseOid(*doc.Prev)
		if err != nil {
			return nil, &InvalidOidError{Field: "prev", Value: *doc.Prev, Err: err}
		}
		raw.Prev = &prev
	}

	head, err := models.ParseOid(doc.Head)
	if err != nil {
		return nil, &InvalidOidError{Field: "head", Value: doc.Head, Err: err}
	}
	raw.Head = head

	for _, name := range sortedKeys(patchOids) {
		value := patchOids[name]
		oid, err := models.ParseOid(value)
		if err != nil {
			return nil, &InvalidOidError{Field: "oid", Patch: name.String(), Value: value, Err: err}
		}
		raw.Patches[name] = RawPatchDescriptor{Oid: oid}
	}

	return raw, nil
}

// State converts the decoded document into a stack snapshot.
func (r *RawStackState) State() *StackState {
	patches := make(map[models.PatchName]models.Oid, len(r.Patches))
	for name, pd := range r.Patches {
		patches[name] = pd.Oid
	}
	return NewStackState(r.Prev, r.Head, r.Applied, r.Unapplied, r.Hidden, patches)
}

// ToStackJSON encodes a snapshot as a current-version stack document. The
// patches object is ordered by patch name; the status sequences keep
// stack order.
func ToStackJSON(s Snapshot) ([]byte, error) {
	doc := struct {
		Version   int64              `json:"version"`
		Prev      *string            `json:"prev"`
		Head      string             `json:"head"`
		Applied   []models.PatchName `json:"applied"`
		Unapplied []models.PatchName `json:"unapplied"`
		Hidden    []models.PatchName `json:"hidden"`
		Patches   sortedPatches      `json:"patches"`
	}{
		Version:   CurrentVersion,
		Head:      s.Head().String(),
		Applied:   nonNil(s.Applied()),
		Unapplied: nonNil(s.Unapplied()),
		Hidden:    nonNil(s.Hidden()),
		Patches:   newSortedPatches(s.PatchCommits()),
	}
	if prev, ok := s.Prev(); ok {
		p := prev.String()
		doc.Prev = &p
	}
	return json.MarshalIndent(doc, "", "  ")
}

type patchEntry struct {
	name models.PatchName
	oid  models.Oid
}

// sortedPatches is the patches mapping held in patch name order.
type sortedPatches []patchEntry

func newSortedPatches(commits map[models.PatchName]models.Oid) sortedPatches {
	entries := make(sortedPatches, 0, len(commits))
	for _, name := range sortedKeys(commits) {
		entries = append(entries, patchEntry{name: name, oid: commits[name]})
	}
	return entries
}

func (sp sortedPatches) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range sp {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.name.String())
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(patchDocument{Oid: e.oid.String()})
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func sortedKeys[V any](m map[models.PatchName]V) []models.PatchName {
	keys := make([]models.PatchName, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, models.PatchName.Compare)
	return keys
}

func nonNil(names []models.PatchName) []models.PatchName {
	if names == nil {
		return []models.PatchName{}
	}
	return names
}
