package store

import (
	"path/filepath"
	"testing"

	"github.com/kilupskalvis/stq/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := New(dbPath)
	require.NoError(t, err)
	require.NoError(t, st.Initialize())
	t.Cleanup(func() { st.Close() })
	return st
}

// ==================== Store Tests ====================

func TestStore_Initialize(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := New(dbPath)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.Initialize())
	// Initialize is idempotent
	require.NoError(t, st.Initialize())

	has, err := st.HasObject(models.HashObject(KindPatch, nil))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_Settings(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.GetSetting(SettingCurrentStack)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, st.SetSetting(SettingCurrentStack, "main"))
	val, ok, err := st.GetSetting(SettingCurrentStack)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "main", val)

	require.NoError(t, st.SetSetting(SettingCurrentStack, "feature"))
	val, _, err = st.GetSetting(SettingCurrentStack)
	require.NoError(t, err)
	assert.Equal(t, "feature", val)
}

// ==================== Object Tests ====================

func TestStore_WriteAndReadObject(t *testing.T) {
	st := newTestStore(t)

	data := []byte("Patch:  first\n\nSubject\n")
	oid, err := st.WriteObject(KindPatch, data)
	require.NoError(t, err)
	assert.Equal(t, models.HashObject(KindPatch, data), oid)

	obj, err := st.ReadObject(oid)
	require.NoError(t, err)
	assert.Equal(t, KindPatch, obj.Kind)
	assert.Equal(t, data, obj.Data)
	assert.False(t, obj.CreatedAt.IsZero())

	has, err := st.HasObject(oid)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestStore_WriteObjectIsIdempotent(t *testing.T) {
	st := newTestStore(t)

	oid1, err := st.WriteObject(KindStack, []byte(`{"version":5}`))
	require.NoError(t, err)
	oid2, err := st.WriteObject(KindStack, []byte(`{"version":5}`))
	require.NoError(t, err)
	assert.Equal(t, oid1, oid2)

	obj, err := st.ReadObject(oid1)
	require.NoError(t, err)
	assert.Equal(t, KindStack, obj.Kind)

	// Same bytes under a different kind is a different object.
	oid3, err := st.WriteObject(KindBase, []byte(`{"version":5}`))
	require.NoError(t, err)
	assert.NotEqual(t, oid1, oid3)
}

func TestStore_EmptyObject(t *testing.T) {
	st := newTestStore(t)

	oid, err := st.WriteObject(KindBase, nil)
	require.NoError(t, err)

	obj, err := st.ReadObject(oid)
	require.NoError(t, err)
	assert.Empty(t, obj.Data)
}

func TestStore_ReadMissingObject(t *testing.T) {
	st := newTestStore(t)

	_, err := st.ReadObject(models.HashObject(KindPatch, []byte("missing")))
	assert.ErrorIs(t, err, ErrObjectNotFound)

	has, err := st.HasObject(models.HashObject(KindPatch, []byte("missing")))
	require.NoError(t, err)
	assert.False(t, has)
}

func TestStore_ReadObjectOfKind(t *testing.T) {
	st := newTestStore(t)

	oid, err := st.WriteObject(KindBase, []byte("base"))
	require.NoError(t, err)

	_, err = st.ReadObjectOfKind(oid, KindBase)
	require.NoError(t, err)

	_, err = st.ReadObjectOfKind(oid, KindStack)
	assert.Error(t, err)
}

// ==================== Ref Tests ====================

func TestStore_Refs(t *testing.T) {
	st := newTestStore(t)

	a, err := st.WriteObject(KindStack, []byte("a"))
	require.NoError(t, err)
	b, err := st.WriteObject(KindStack, []byte("b"))
	require.NoError(t, err)

	_, err = st.GetRef("refs/stacks/main")
	assert.ErrorIs(t, err, ErrRefNotFound)

	require.NoError(t, st.SetRef("refs/stacks/main", a))
	got, err := st.GetRef("refs/stacks/main")
	require.NoError(t, err)
	assert.Equal(t, a, got)

	// Move the ref
	require.NoError(t, st.SetRef("refs/stacks/main", b))
	got, err = st.GetRef("refs/stacks/main")
	require.NoError(t, err)
	assert.Equal(t, b, got)

	require.NoError(t, st.SetRef("refs/stacks/feature", a))
	require.NoError(t, st.SetRef("other/ref", a))

	refs, err := st.ListRefs("refs/stacks/")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "refs/stacks/feature", refs[0].Name)
	assert.Equal(t, "refs/stacks/main", refs[1].Name)
	assert.Equal(t, b, refs[1].Oid)

	require.NoError(t, st.DeleteRef("refs/stacks/feature"))
	refs, err = st.ListRefs("refs/stacks/")
	require.NoError(t, err)
	assert.Len(t, refs, 1)
}
