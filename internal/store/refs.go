package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kilupskalvis/stq/internal/models"
	"go.uber.org/zap"
)

// ErrRefNotFound is returned by GetRef for unknown refs.
var ErrRefNotFound = errors.New("ref not found")

// Ref is a named pointer to an object.
type Ref struct {
	Name      string
	Oid       models.Oid
	UpdatedAt time.Time
}

// SetRef points name at oid, creating or moving the ref.
func (s *Store) SetRef(name string, oid models.Oid) error {
	_, err := s.db.Exec(`
		INSERT INTO refs (name, oid, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET oid = excluded.oid, updated_at = CURRENT_TIMESTAMP`,
		name, oid.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to update ref %s: %w", name, err)
	}
	zap.L().Debug("moved ref", zap.String("ref", name), zap.Stringer("oid", oid))
	return nil
}

// GetRef resolves a ref.
func (s *Store) GetRef(name string) (models.Oid, error) {
	var raw string
	err := s.db.QueryRow("SELECT oid FROM refs WHERE name = ?", name).Scan(&raw)
	if err == sql.ErrNoRows {
		return models.Oid{}, fmt.Errorf("%w: %s", ErrRefNotFound, name)
	}
	if err != nil {
		return models.Oid{}, err
	}
	return models.ParseOid(raw)
}

// DeleteRef removes a ref. Deleting an unknown ref is not an error.
func (s *Store) DeleteRef(name string) error {
	_, err := s.db.Exec("DELETE FROM refs WHERE name = ?", name)
	return err
}

// ListRefs returns refs whose name starts with prefix, ordered by name.
func (s *Store) ListRefs(prefix string) ([]*Ref, error) {
	rows, err := s.db.Query(
		"SELECT name, oid, updated_at FROM refs WHERE substr(name, 1, ?) = ? ORDER BY name",
		len(prefix), prefix,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []*Ref
	for rows.Next() {
		var ref Ref
		var raw, updatedAt string
		if err := rows.Scan(&ref.Name, &raw, &updatedAt); err != nil {
			return nil, err
		}
		if ref.Oid, err = models.ParseOid(raw); err != nil {
			return nil, fmt.Errorf("ref %s: %w", ref.Name, err)
		}
		ref.UpdatedAt = parseTimestamp(updatedAt)
		refs = append(refs, &ref)
	}
	return refs, rows.Err()
}
