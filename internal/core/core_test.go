package core

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kilupskalvis/stq/internal/config"
	"github.com/kilupskalvis/stq/internal/models"
	"github.com/kilupskalvis/stq/internal/patchedit"
	"github.com/kilupskalvis/stq/internal/stack"
	"github.com/kilupskalvis/stq/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBranch = "main"

func newTestRepo(t *testing.T) (*config.Config, *store.Store) {
	t.Helper()
	t.Setenv(config.EnvAuthorName, "")
	t.Setenv(config.EnvAuthorEmail, "")

	cfg, err := config.Initialize(t.TempDir(), "The Author", "author@example.com")
	require.NoError(t, err)

	st, err := store.New(cfg.DatabasePath())
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })

	_, _, err = InitStack(st, testBranch)
	require.NoError(t, err)
	return cfg, st
}

func testAuthor() *models.Signature {
	return &models.Signature{
		Name:          "The Author",
		Email:         "author@example.com",
		When:          987654321,
		OffsetMinutes: 360,
	}
}

func newTestPatch(t *testing.T, cfg *config.Config, st *store.Store, name, message string) *PatchResult {
	t.Helper()
	res, err := NewPatch(cfg, st, testBranch, NewPatchOptions{
		Name:    name,
		Message: message,
		Author:  testAuthor(),
	})
	require.NoError(t, err)
	return res
}

func names(ss ...string) []models.PatchName {
	out := make([]models.PatchName, len(ss))
	for i, s := range ss {
		out[i] = models.MustParsePatchName(s)
	}
	return out
}

// ==================== Stack Tests ====================

func TestInitStack(t *testing.T) {
	_, st := newTestRepo(t)

	state, oid, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	assert.Empty(t, state.AllPatches())
	_, hasPrev := state.Prev()
	assert.False(t, hasPrev)

	base, err := st.ReadObject(state.Head())
	require.NoError(t, err)
	assert.Equal(t, store.KindBase, base.Kind)

	ref, err := st.GetRef(StackRef(testBranch))
	require.NoError(t, err)
	assert.Equal(t, ref, oid)

	_, _, err = InitStack(st, testBranch)
	assert.Error(t, err, "initializing twice fails")
}

func TestLoadStack_Missing(t *testing.T) {
	_, st := newTestRepo(t)

	_, _, err := LoadStack(st, "nope")
	assert.Error(t, err)
}

func TestLoadStack_RejectsWrongVersion(t *testing.T) {
	_, st := newTestRepo(t)

	state, _, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	data, err := stack.ToStackJSON(state)
	require.NoError(t, err)

	old := strings.Replace(string(data), `"version": 5`, `"version": 4`, 1)
	oid, err := st.WriteObject(store.KindStack, []byte(old))
	require.NoError(t, err)
	require.NoError(t, st.SetRef(StackRef(testBranch), oid))

	_, _, err = LoadStack(st, testBranch)
	var verErr *stack.UnsupportedVersionError
	require.ErrorAs(t, err, &verErr)
	assert.Equal(t, int64(4), verErr.Got)
}

// ==================== Patch Tests ====================

func TestNewPatch(t *testing.T) {
	cfg, st := newTestRepo(t)

	first := newTestPatch(t, cfg, st, "first", "First patch\n\nBody.")
	second := newTestPatch(t, cfg, st, "second", "Second patch")

	state, stateOid, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	assert.Equal(t, second.StateOid, stateOid)
	assert.Equal(t, names("first", "second"), state.Applied())
	assert.Equal(t, second.Commit, state.Head())

	prev, ok := state.Prev()
	require.True(t, ok)
	assert.Equal(t, first.StateOid, prev)

	pd, err := ReadPatch(st, testBranch, "first")
	require.NoError(t, err)
	assert.Equal(t, "first", pd.Patchname.String())
	assert.Equal(t, "First patch\n\nBody.\n", pd.Message)
	assert.Equal(t, int64(987654321), pd.Author.When)
	assert.Nil(t, pd.Diff)
}

func TestNewPatch_Errors(t *testing.T) {
	cfg, st := newTestRepo(t)
	newTestPatch(t, cfg, st, "first", "First")

	_, err := NewPatch(cfg, st, testBranch, NewPatchOptions{Name: "first", Message: "again"})
	assert.Error(t, err, "duplicate name")

	_, err = NewPatch(cfg, st, testBranch, NewPatchOptions{Name: "bad name", Message: "x"})
	var nameErr *models.InvalidPatchNameError
	assert.ErrorAs(t, err, &nameErr)

	_, err = NewPatch(cfg, st, testBranch, NewPatchOptions{Name: "sep", Message: "a\n---\nb"})
	assert.Error(t, err, "message with a diff separator")
}

func TestNewPatch_UsesConfiguredAuthor(t *testing.T) {
	cfg, st := newTestRepo(t)

	_, err := NewPatch(cfg, st, testBranch, NewPatchOptions{Name: "p", Message: "Subject"})
	require.NoError(t, err)

	pd, err := ReadPatch(st, testBranch, "p")
	require.NoError(t, err)
	assert.Equal(t, "The Author", pd.Author.Name)
	assert.Equal(t, "author@example.com", pd.Author.Email)
}

func TestNewPatch_WithDiff(t *testing.T) {
	cfg, st := newTestRepo(t)
	diff := "diff --git a/f b/f\n--- a/f\n+++ b/f\n@@ -1 +1 @@\n-a\n+b\n"

	_, err := NewPatch(cfg, st, testBranch, NewPatchOptions{
		Name: "p", Message: "Subject", Author: testAuthor(), Diff: []byte(diff),
	})
	require.NoError(t, err)

	pd, err := ReadPatch(st, testBranch, "p")
	require.NoError(t, err)
	assert.Equal(t, patchedit.DiffBuffer(diff), pd.Diff)
	assert.Equal(t, "Subject\n", pd.Message)
}

func TestDescribePatch(t *testing.T) {
	cfg, st := newTestRepo(t)
	newTestPatch(t, cfg, st, "p", "Subject")

	doc, err := DescribePatch(cfg, st, testBranch, "p", false)
	require.NoError(t, err)
	assert.Equal(t, "Patch:  p\n"+
		"Author: The Author <author@example.com>\n"+
		"Date:   2001-04-19 10:25:21 +0600\n"+
		"\n"+
		"Subject\n"+
		"\n"+
		patchedit.DefaultInstruction, string(doc))

	doc, err = DescribePatch(cfg, st, testBranch, "p", true)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(doc), patchedit.DefaultDiffInstruction+"---\n"))

	cfg.EditInstructions = false
	doc, err = DescribePatch(cfg, st, testBranch, "p", false)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), "#")

	_, err = DescribePatch(cfg, st, testBranch, "missing", false)
	assert.Error(t, err)
}

func TestWriteTemplate(t *testing.T) {
	cfg, st := newTestRepo(t)
	newTestPatch(t, cfg, st, "p", "Subject")

	path1, err := WriteTemplate(cfg, st, testBranch, "p", false)
	require.NoError(t, err)
	path2, err := WriteTemplate(cfg, st, testBranch, "p", false)
	require.NoError(t, err)
	assert.NotEqual(t, path1, path2)
	assert.Equal(t, cfg.ScratchPath(), filepath.Dir(path1))

	data, err := os.ReadFile(path1)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "Patch:  p\n"))
}

// ==================== Edit Tests ====================

func TestEditPatch_UntouchedTemplateIsUnchanged(t *testing.T) {
	cfg, st := newTestRepo(t)
	res := newTestPatch(t, cfg, st, "p", "Subject\n\nBody")

	doc, err := DescribePatch(cfg, st, testBranch, "p", true)
	require.NoError(t, err)

	result, err := EditPatch(st, testBranch, "p", doc, EditOptions{})
	require.NoError(t, err)
	assert.False(t, result.Changed)
	assert.Equal(t, res.Commit, result.NewCommit)
	assert.True(t, result.StateOid.IsZero())
	assert.Empty(t, result.Diff)

	_, stateOid, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	assert.Equal(t, res.StateOid, stateOid)
}

func TestEditPatch_Message(t *testing.T) {
	cfg, st := newTestRepo(t)
	newTestPatch(t, cfg, st, "first", "First")
	newTestPatch(t, cfg, st, "top", "Old subject")

	edited := "Patch:  top\n" +
		"Author: Someone Else <else@example.com>\n" +
		"Date:   2020-01-02 03:04:05 +0000\n" +
		"\n" +
		"New subject\n" +
		"\n" +
		"\n" +
		"New body\n"

	result, err := EditPatch(st, testBranch, "top", []byte(edited), EditOptions{})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.False(t, result.Renamed)
	assert.Contains(t, result.Diff, "-Old subject")
	assert.Contains(t, result.Diff, "+New subject")

	pd, err := ReadPatch(st, testBranch, "top")
	require.NoError(t, err)
	assert.Equal(t, "New subject\n\nNew body\n", pd.Message)
	assert.Equal(t, "Someone Else", pd.Author.Name)
	assert.Equal(t, 0, pd.Author.OffsetMinutes)

	state, stateOid, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	assert.Equal(t, result.StateOid, stateOid)
	assert.Equal(t, result.NewCommit, state.Head(), "editing the top patch moves head")
}

func TestEditPatch_KeepsAuthorAndDiffWhenAbsent(t *testing.T) {
	cfg, st := newTestRepo(t)
	diff := "diff --git a/f b/f\n"
	_, err := NewPatch(cfg, st, testBranch, NewPatchOptions{
		Name: "p", Message: "Subject", Author: testAuthor(), Diff: []byte(diff),
	})
	require.NoError(t, err)

	_, err = EditPatch(st, testBranch, "p", []byte("Patch:  p\n\nReworded\n"), EditOptions{})
	require.NoError(t, err)

	pd, err := ReadPatch(st, testBranch, "p")
	require.NoError(t, err)
	assert.Equal(t, "Reworded\n", pd.Message)
	assert.Equal(t, int64(987654321), pd.Author.When)
	assert.Equal(t, patchedit.DiffBuffer(diff), pd.Diff)
}

func TestEditPatch_Rename(t *testing.T) {
	cfg, st := newTestRepo(t)
	newTestPatch(t, cfg, st, "a", "A")
	newTestPatch(t, cfg, st, "b", "B")
	newTestPatch(t, cfg, st, "c", "C")

	doc, err := DescribePatch(cfg, st, testBranch, "b", false)
	require.NoError(t, err)
	doc = []byte(strings.Replace(string(doc), "Patch:  b", "Patch:  renamed", 1))

	result, err := EditPatch(st, testBranch, "b", doc, EditOptions{})
	require.NoError(t, err)
	assert.True(t, result.Renamed)
	assert.Equal(t, "renamed", result.NewName.String())

	state, _, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	assert.Equal(t, names("a", "renamed", "c"), state.Applied())
	assert.False(t, state.Has(models.MustParsePatchName("b")))

	pd, err := ReadPatch(st, testBranch, "renamed")
	require.NoError(t, err)
	assert.Equal(t, "B\n", pd.Message)
}

func TestEditPatch_RenameCollision(t *testing.T) {
	cfg, st := newTestRepo(t)
	newTestPatch(t, cfg, st, "a", "A")
	newTestPatch(t, cfg, st, "b", "B")

	_, err := EditPatch(st, testBranch, "b", []byte("Patch:  a\n\nB\n"), EditOptions{})
	assert.Error(t, err)
}

func TestEditPatch_DryRun(t *testing.T) {
	cfg, st := newTestRepo(t)
	res := newTestPatch(t, cfg, st, "p", "Subject")

	result, err := EditPatch(st, testBranch, "p", []byte("Patch:  p\n\nOther\n"), EditOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, result.Changed)
	assert.True(t, result.StateOid.IsZero())
	assert.Contains(t, result.Diff, "+Other")

	has, err := st.HasObject(result.NewCommit)
	require.NoError(t, err)
	assert.False(t, has)

	_, stateOid, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	assert.Equal(t, res.StateOid, stateOid)
}

func TestEditPatch_ParseErrors(t *testing.T) {
	cfg, st := newTestRepo(t)
	newTestPatch(t, cfg, st, "p", "Subject")

	_, err := EditPatch(st, testBranch, "p", []byte("---\n"), EditOptions{})
	assert.ErrorIs(t, err, patchedit.ErrEmptyDescription)

	_, err = EditPatch(st, testBranch, "p", []byte("Patch:  p\nAuthor: A <a@x>\nDate:   yesterday\n\nS\n"), EditOptions{})
	var dateErr *patchedit.InvalidDateError
	assert.ErrorAs(t, err, &dateErr)
}

// ==================== History Tests ====================

func TestStateLog(t *testing.T) {
	cfg, st := newTestRepo(t)
	first := newTestPatch(t, cfg, st, "a", "A")
	second := newTestPatch(t, cfg, st, "b", "B")

	entries, err := StateLog(st, testBranch)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, second.StateOid, entries[0].Oid)
	assert.Equal(t, first.StateOid, entries[1].Oid)
	assert.Equal(t, first.PrevState, entries[2].Oid)
	_, hasPrev := entries[2].State.Prev()
	assert.False(t, hasPrev)
	assert.Empty(t, entries[2].State.AllPatches())

	entries, err = StateLogN(st, testBranch, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestSeries(t *testing.T) {
	cfg, st := newTestRepo(t)
	newTestPatch(t, cfg, st, "a", "Subject A\n\nbody")
	newTestPatch(t, cfg, st, "b", "Subject B")

	entries, err := Series(st, testBranch)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].Name.String())
	assert.Equal(t, "Subject A", entries[0].Subject)
	assert.Equal(t, stack.StatusApplied, entries[0].Status)
	assert.False(t, entries[0].Top)
	assert.True(t, entries[1].Top)
}

func TestListStacks(t *testing.T) {
	_, st := newTestRepo(t)

	_, _, err := InitStack(st, "feature")
	require.NoError(t, err)

	branches, err := ListStacks(st)
	require.NoError(t, err)
	assert.Equal(t, []string{"feature", testBranch}, branches)
}

func TestCurrentStack_DefaultsToFallback(t *testing.T) {
	_, st := newTestRepo(t)

	branch, err := CurrentStack(st, testBranch)
	require.NoError(t, err)
	assert.Equal(t, testBranch, branch)
}

func TestSwitchStack(t *testing.T) {
	_, st := newTestRepo(t)

	err := SwitchStack(st, "feature", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stack for branch feature")

	require.NoError(t, SwitchStack(st, "feature", true))
	branch, err := CurrentStack(st, testBranch)
	require.NoError(t, err)
	assert.Equal(t, "feature", branch)

	state, _, err := LoadStack(st, "feature")
	require.NoError(t, err)
	assert.Empty(t, state.AllPatches())

	// Switching back to an existing stack leaves it untouched.
	_, before, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	require.NoError(t, SwitchStack(st, testBranch, true))
	_, after, err := LoadStack(st, testBranch)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDeleteStack(t *testing.T) {
	_, st := newTestRepo(t)
	_, _, err := InitStack(st, "feature")
	require.NoError(t, err)

	err = DeleteStack(st, testBranch, testBranch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "current stack")

	require.NoError(t, DeleteStack(st, "feature", testBranch))
	branches, err := ListStacks(st)
	require.NoError(t, err)
	assert.Equal(t, []string{testBranch}, branches)

	err = DeleteStack(st, "feature", testBranch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stack for branch feature")
}
