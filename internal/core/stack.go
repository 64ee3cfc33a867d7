// Package core implements the stq workflows on top of the object store:
// stack bookkeeping and patch description editing.
package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilupskalvis/stq/internal/models"
	"github.com/kilupskalvis/stq/internal/stack"
	"github.com/kilupskalvis/stq/internal/store"
	"go.uber.org/zap"
)

const stackRefPrefix = "refs/stacks/"

// StackRef returns the ref name holding a branch's stack state.
func StackRef(branch string) string {
	return stackRefPrefix + branch
}

// InitStack creates an empty stack for branch on a fresh base object.
func InitStack(st *store.Store, branch string) (*stack.StackState, models.Oid, error) {
	ref := StackRef(branch)
	if _, err := st.GetRef(ref); err == nil {
		return nil, models.Oid{}, fmt.Errorf("stack %s is already initialized", branch)
	} else if !errors.Is(err, store.ErrRefNotFound) {
		return nil, models.Oid{}, err
	}

	base, err := st.WriteObject(store.KindBase, []byte("stq base "+branch+"\n"))
	if err != nil {
		return nil, models.Oid{}, err
	}

	state := stack.InitialState(base)
	oid, err := SaveStack(st, branch, state)
	if err != nil {
		return nil, models.Oid{}, err
	}

	zap.L().Info("initialized stack", zap.String("branch", branch), zap.Stringer("base", base))
	return state, oid, nil
}

// LoadStack reads and validates the current stack state of branch. The
// returned oid identifies the persisted state object.
func LoadStack(st *store.Store, branch string) (*stack.StackState, models.Oid, error) {
	oid, err := st.GetRef(StackRef(branch))
	if err != nil {
		if errors.Is(err, store.ErrRefNotFound) {
			return nil, models.Oid{}, fmt.Errorf("no stack for branch %s (use \"stq init\")", branch)
		}
		return nil, models.Oid{}, err
	}

	state, err := readState(st, oid)
	if err != nil {
		return nil, models.Oid{}, fmt.Errorf("load stack %s: %w", branch, err)
	}
	return state, oid, nil
}

func readState(st *store.Store, oid models.Oid) (*stack.StackState, error) {
	obj, err := st.ReadObjectOfKind(oid, store.KindStack)
	if err != nil {
		return nil, err
	}
	raw, err := stack.FromStackJSON(obj.Data)
	if err != nil {
		return nil, err
	}
	return raw.State(), nil
}

// SaveStack persists state and moves the branch's stack ref to it.
func SaveStack(st *store.Store, branch string, state *stack.StackState) (models.Oid, error) {
	data, err := stack.ToStackJSON(state)
	if err != nil {
		return models.Oid{}, fmt.Errorf("encode stack state: %w", err)
	}

	oid, err := st.WriteObject(store.KindStack, data)
	if err != nil {
		return models.Oid{}, err
	}
	if err := st.SetRef(StackRef(branch), oid); err != nil {
		return models.Oid{}, err
	}

	zap.L().Debug("saved stack state",
		zap.String("branch", branch),
		zap.Stringer("state", oid),
		zap.Stringer("head", state.Head()))
	return oid, nil
}

// StateEntry is one persisted stack state in a branch's history.
type StateEntry struct {
	Oid       models.Oid
	State     *stack.StackState
	CreatedAt time.Time
}

// StateLog walks the prev chain from the current state, newest first.
// A limit of zero or less means no limit.
func StateLog(st *store.Store, branch string) ([]*StateEntry, error) {
	return StateLogN(st, branch, 0)
}

// StateLogN is StateLog with a maximum number of entries.
func StateLogN(st *store.Store, branch string, limit int) ([]*StateEntry, error) {
	oid, err := st.GetRef(StackRef(branch))
	if err != nil {
		return nil, err
	}

	var entries []*StateEntry
	seen := make(map[models.Oid]bool)
	for {
		if limit > 0 && len(entries) >= limit {
			break
		}
		if seen[oid] {
			return nil, fmt.Errorf("stack history of %s loops at %s", branch, oid.Short())
		}
		seen[oid] = true

		obj, err := st.ReadObjectOfKind(oid, store.KindStack)
		if err != nil {
			return nil, err
		}
		raw, err := stack.FromStackJSON(obj.Data)
		if err != nil {
			return nil, fmt.Errorf("state %s: %w", oid.Short(), err)
		}
		state := raw.State()
		entries = append(entries, &StateEntry{Oid: oid, State: state, CreatedAt: obj.CreatedAt})

		prev, ok := state.Prev()
		if !ok {
			break
		}
		oid = prev
	}
	return entries, nil
}

// SeriesEntry describes one patch for listing.
type SeriesEntry struct {
	Name    models.PatchName
	Status  stack.PatchStatus
	Commit  models.Oid
	Subject string
	Top     bool
}

// Series lists every patch of branch in stack order.
func Series(st *store.Store, branch string) ([]*SeriesEntry, error) {
	state, _, err := LoadStack(st, branch)
	if err != nil {
		return nil, err
	}

	top, hasTop := state.Top()
	var entries []*SeriesEntry
	for _, name := range state.AllPatches() {
		commit, ok := state.Commit(name)
		if !ok {
			return nil, fmt.Errorf("patch `%s` has no commit", name)
		}
		pd, err := readPatch(st, commit)
		if err != nil {
			return nil, fmt.Errorf("patch `%s`: %w", name, err)
		}
		entries = append(entries, &SeriesEntry{
			Name:    name,
			Status:  state.Status(name),
			Commit:  commit,
			Subject: subject(pd.Message),
			Top:     hasTop && top == name,
		})
	}
	return entries, nil
}

// ListStacks returns the branches that have a stack, ordered by name.
func ListStacks(st *store.Store) ([]string, error) {
	refs, err := st.ListRefs(stackRefPrefix)
	if err != nil {
		return nil, err
	}
	branches := make([]string, 0, len(refs))
	for _, ref := range refs {
		branches = append(branches, ref.Name[len(stackRefPrefix):])
	}
	return branches, nil
}

// CurrentStack returns the selected branch, or fallback when none was
// selected.
func CurrentStack(st *store.Store, fallback string) (string, error) {
	branch, ok, err := st.GetSetting(store.SettingCurrentStack)
	if err != nil {
		return "", err
	}
	if !ok {
		return fallback, nil
	}
	return branch, nil
}

// SwitchStack selects branch for later commands. With create a missing
// stack is initialized first; otherwise the stack must exist.
func SwitchStack(st *store.Store, branch string, create bool) error {
	if _, err := st.GetRef(StackRef(branch)); err != nil {
		if !errors.Is(err, store.ErrRefNotFound) {
			return err
		}
		if !create {
			return fmt.Errorf("no stack for branch %s", branch)
		}
		if _, _, err := InitStack(st, branch); err != nil {
			return err
		}
	}

	if err := st.SetSetting(store.SettingCurrentStack, branch); err != nil {
		return err
	}
	zap.L().Debug("switched stack", zap.String("branch", branch))
	return nil
}

// DeleteStack removes a branch's stack ref. The stored states and patches
// stay in the object table. The selected stack cannot be deleted.
func DeleteStack(st *store.Store, branch, current string) error {
	if branch == current {
		return fmt.Errorf("cannot delete the current stack %s", branch)
	}
	ref := StackRef(branch)
	if _, err := st.GetRef(ref); err != nil {
		if errors.Is(err, store.ErrRefNotFound) {
			return fmt.Errorf("no stack for branch %s", branch)
		}
		return err
	}
	if err := st.DeleteRef(ref); err != nil {
		return fmt.Errorf("failed to delete stack %s: %w", branch, err)
	}
	zap.L().Info("deleted stack", zap.String("branch", branch))
	return nil
}
