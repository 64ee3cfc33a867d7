package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/kilupskalvis/stq/internal/config"
	"github.com/kilupskalvis/stq/internal/models"
	"github.com/kilupskalvis/stq/internal/patchedit"
	"github.com/kilupskalvis/stq/internal/stack"
	"github.com/kilupskalvis/stq/internal/store"
	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"
)

// NewPatchOptions configures NewPatch.
type NewPatchOptions struct {
	Name    string
	Message string
	Author  *models.Signature // Defaults to the configured author
	Diff    []byte            // Optional diff payload
}

// PatchResult reports the outcome of a patch-creating or editing workflow.
type PatchResult struct {
	Name      models.PatchName
	Commit    models.Oid
	StateOid  models.Oid
	PrevState models.Oid
}

// NewPatch stores a new patch and pushes it on top of the applied patches.
func NewPatch(cfg *config.Config, st *store.Store, branch string, opts NewPatchOptions) (*PatchResult, error) {
	name, err := models.ParsePatchName(opts.Name)
	if err != nil {
		return nil, err
	}

	state, stateOid, err := LoadStack(st, branch)
	if err != nil {
		return nil, err
	}
	if state.Has(name) {
		return nil, fmt.Errorf("patch `%s` already exists", name)
	}

	author := opts.Author
	if author == nil {
		sig, err := cfg.Author()
		if err != nil {
			return nil, err
		}
		author = &sig
	}

	pd := &patchedit.PatchDescription{
		Patchname: &name,
		Author:    author,
		Message:   opts.Message,
	}
	if opts.Diff != nil {
		pd.Diff = patchedit.DiffBuffer(opts.Diff)
	}

	// Store the description the way the editor round trip would leave it,
	// so an untouched edit is recognized as unchanged.
	normalized, err := patchedit.Parse(pd.Bytes())
	if err != nil {
		return nil, err
	}
	if opts.Diff == nil && normalized.Diff != nil {
		return nil, fmt.Errorf("patch message may not contain a \"---\" line")
	}

	commit, err := st.WriteObject(store.KindPatch, normalized.Bytes())
	if err != nil {
		return nil, err
	}

	next, err := state.WithNewPatch(stateOid, name, commit)
	if err != nil {
		return nil, err
	}
	newStateOid, err := SaveStack(st, branch, next)
	if err != nil {
		return nil, err
	}

	zap.L().Info("created patch", zap.Stringer("patch", name), zap.Stringer("commit", commit))
	return &PatchResult{Name: name, Commit: commit, StateOid: newStateOid, PrevState: stateOid}, nil
}

// ReadPatch returns the stored description of a patch.
func ReadPatch(st *store.Store, branch, name string) (*patchedit.PatchDescription, error) {
	_, _, pd, err := lookupPatch(st, branch, name)
	return pd, err
}

func lookupPatch(st *store.Store, branch, name string) (*stack.StackState, models.Oid, *patchedit.PatchDescription, error) {
	pn, err := models.ParsePatchName(name)
	if err != nil {
		return nil, models.Oid{}, nil, err
	}
	state, stateOid, err := LoadStack(st, branch)
	if err != nil {
		return nil, models.Oid{}, nil, err
	}
	commit, ok := state.Commit(pn)
	if !ok {
		return nil, models.Oid{}, nil, fmt.Errorf("patch `%s` does not exist", pn)
	}
	pd, err := readPatch(st, commit)
	if err != nil {
		return nil, models.Oid{}, nil, fmt.Errorf("patch `%s`: %w", pn, err)
	}
	// The stack is authoritative for the name.
	pd.Patchname = &pn
	return state, stateOid, pd, nil
}

func readPatch(st *store.Store, commit models.Oid) (*patchedit.PatchDescription, error) {
	obj, err := st.ReadObjectOfKind(commit, store.KindPatch)
	if err != nil {
		return nil, err
	}
	return patchedit.Parse(obj.Data)
}

// DescribePatch renders the editable document for a patch. With withDiff
// the stored diff follows the "---" line, or an empty diff section when
// the patch has none.
func DescribePatch(cfg *config.Config, st *store.Store, branch, name string, withDiff bool) ([]byte, error) {
	pd, err := ReadPatch(st, branch, name)
	if err != nil {
		return nil, err
	}

	if cfg.EditInstructions {
		pd.Instruction = patchedit.DefaultInstruction
	}
	if withDiff {
		if cfg.EditInstructions {
			pd.DiffInstruction = patchedit.DefaultDiffInstruction
		}
		if pd.Diff == nil {
			pd.Diff = patchedit.DiffBuffer{}
		}
	} else {
		pd.Diff = nil
	}
	return pd.Bytes(), nil
}

// WriteTemplate writes the editable document for a patch to a new file in
// the scratch directory and returns its path.
func WriteTemplate(cfg *config.Config, st *store.Store, branch, name string, withDiff bool) (string, error) {
	data, err := DescribePatch(cfg, st, branch, name, withDiff)
	if err != nil {
		return "", err
	}

	dir := cfg.ScratchPath()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.txt", name, uuid.NewString()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write template: %w", err)
	}
	return path, nil
}

// EditOptions configures EditPatch.
type EditOptions struct {
	DryRun bool // Compute the result without storing anything
}

// EditResult describes what an edit changed.
type EditResult struct {
	OldName   models.PatchName
	NewName   models.PatchName
	OldCommit models.Oid
	NewCommit models.Oid
	StateOid  models.Oid // Zero when nothing was stored
	Changed   bool
	Renamed   bool
	Diff      string // Unified diff of the stored descriptions
}

// EditPatch applies an edited patch description. Headers left out of the
// document keep their stored values: no Patch name keeps the name, no
// Author keeps the author, and no diff section keeps the diff.
func EditPatch(st *store.Store, branch, name string, edited []byte, opts EditOptions) (*EditResult, error) {
	state, stateOid, old, err := lookupPatch(st, branch, name)
	if err != nil {
		return nil, err
	}

	parsed, err := patchedit.Parse(edited)
	if err != nil {
		return nil, fmt.Errorf("edit %s: %w", name, err)
	}

	oldName := *old.Patchname
	oldCommit, _ := state.Commit(oldName)

	updated := &patchedit.PatchDescription{
		Patchname: old.Patchname,
		Author:    old.Author,
		Message:   parsed.Message,
		Diff:      old.Diff,
	}
	if parsed.Patchname != nil {
		updated.Patchname = parsed.Patchname
	}
	if parsed.Author != nil {
		updated.Author = parsed.Author
	}
	if parsed.Diff != nil {
		updated.Diff = parsed.Diff
	}

	oldBytes := old.Bytes()
	newBytes := updated.Bytes()

	result := &EditResult{
		OldName:   oldName,
		NewName:   *updated.Patchname,
		OldCommit: oldCommit,
		NewCommit: models.HashObject(store.KindPatch, newBytes),
	}
	result.Renamed = result.NewName != result.OldName
	result.Changed = result.NewCommit != result.OldCommit || result.Renamed
	if result.Renamed && state.Has(result.NewName) {
		return nil, fmt.Errorf("patch `%s` already exists", result.NewName)
	}

	result.Diff, err = unifiedDiff(oldBytes, newBytes, result.OldName.String(), result.NewName.String())
	if err != nil {
		return nil, err
	}

	if !result.Changed || opts.DryRun {
		return result, nil
	}

	commit, err := st.WriteObject(store.KindPatch, newBytes)
	if err != nil {
		return nil, err
	}

	next := state
	if result.Renamed {
		if next, err = next.WithRenamedPatch(stateOid, result.OldName, result.NewName); err != nil {
			return nil, err
		}
	}
	if next, err = next.WithPatchCommit(stateOid, result.NewName, commit); err != nil {
		return nil, err
	}

	if result.StateOid, err = SaveStack(st, branch, next); err != nil {
		return nil, err
	}

	zap.L().Info("edited patch",
		zap.Stringer("patch", result.NewName),
		zap.Bool("renamed", result.Renamed),
		zap.Stringer("commit", commit))
	return result, nil
}

func unifiedDiff(a, b []byte, fromName, toName string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(a)),
		B:        difflib.SplitLines(string(b)),
		FromFile: "a/" + fromName,
		ToFile:   "b/" + toName,
		Context:  3,
	}
	out, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("failed to diff descriptions: %w", err)
	}
	return out, nil
}

// subject returns the first line of a message.
func subject(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return line
}
