package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kilupskalvis/stq/internal/models"
	"go.uber.org/zap"
)

// Object kinds stored by stq.
const (
	KindBase  = "base"
	KindPatch = "patch"
	KindStack = "stack"
)

// ErrObjectNotFound is returned when no object has the requested id.
var ErrObjectNotFound = errors.New("object not found")

// Object is a stored blob together with its kind.
type Object struct {
	Oid       models.Oid
	Kind      string
	Data      []byte
	CreatedAt time.Time
}

// WriteObject stores data under its content address. Writing the same kind
// and data twice is a no-op returning the same id.
func (s *Store) WriteObject(kind string, data []byte) (models.Oid, error) {
	oid := models.HashObject(kind, data)
	if data == nil {
		data = []byte{}
	}
	_, err := s.db.Exec(
		"INSERT INTO objects (oid, kind, data) VALUES (?, ?, ?) ON CONFLICT(oid) DO NOTHING",
		oid.String(), kind, data,
	)
	if err != nil {
		return models.Oid{}, fmt.Errorf("failed to write %s object: %w", kind, err)
	}
	zap.L().Debug("wrote object", zap.String("kind", kind), zap.Stringer("oid", oid), zap.Int("size", len(data)))
	return oid, nil
}

// ReadObject loads an object by id.
func (s *Store) ReadObject(oid models.Oid) (*Object, error) {
	obj := Object{Oid: oid}
	var createdAt string
	err := s.db.QueryRow(
		"SELECT kind, data, created_at FROM objects WHERE oid = ?", oid.String(),
	).Scan(&obj.Kind, &obj.Data, &createdAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, oid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read object %s: %w", oid, err)
	}
	obj.CreatedAt = parseTimestamp(createdAt)
	return &obj, nil
}

// ReadObjectOfKind loads an object and checks its kind.
func (s *Store) ReadObjectOfKind(oid models.Oid, kind string) (*Object, error) {
	obj, err := s.ReadObject(oid)
	if err != nil {
		return nil, err
	}
	if obj.Kind != kind {
		return nil, fmt.Errorf("object %s is a %s, expected %s", oid.Short(), obj.Kind, kind)
	}
	return obj, nil
}

// HasObject reports whether an object exists.
func (s *Store) HasObject(oid models.Oid) (bool, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM objects WHERE oid = ?", oid.String()).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
