package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrConflict = errors.New("docstore: document already exists")
	ErrInvalid  = errors.New("docstore: invalid document")
	ErrStale    = errors.New("docstore: document changed since it was read")
)

// Patch describes a partial update. Set merges top-level fields, Unset
// removes them. A non-empty IfRevision applies the patch only while the
// stored document still carries that revision, otherwise ErrStale.
type Patch struct {
	Set        map[string]any
	Unset      []string
	IfRevision string
}

// IsEmpty reports whether the patch changes nothing
func (p Patch) IsEmpty() bool {
	return len(p.Set) == 0 && len(p.Unset) == 0
}

// Store is the document store used by all repositories.
type Store interface {
	Get(ctx context.Context, id string) (Document, error)
	// GetMany returns the documents that exist among ids, keyed by id.
	GetMany(ctx context.Context, ids []string) (map[string]Document, error)
	Query(ctx context.Context, q Query) ([]Document, error)
	Count(ctx context.Context, q Query) (int64, error)
	Create(ctx context.Context, doc Document) (Document, error)
	Patch(ctx context.Context, id string, p Patch) (Document, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// Invalidator is implemented by stores that cache reads
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

type nopInvalidator struct{}

func (nopInvalidator) Invalidate(context.Context) error { return nil }

// Invalidation returns the Invalidator of s. Stores without a read cache get
// one that does nothing.
func Invalidation(s Store) Invalidator {
	if inv, ok := s.(Invalidator); ok {
		return inv
	}
	return nopInvalidator{}
}

// NewID generates a document id
func NewID() string {
	return uuid.NewString()
}

// prepareCreate validates a new document and fills system fields.
func prepareCreate(doc Document, now time.Time) (Document, error) {
	if doc.Type() == "" {
		return nil, fmt.Errorf("%w: _type is required", ErrInvalid)
	}
	out, err := Normalize(doc)
	if err != nil {
		return nil, err
	}
	if out.ID() == "" {
		out[FieldID] = NewID()
	}
	ts := FormatTime(now)
	out[FieldCreatedAt] = ts
	out[FieldUpdatedAt] = ts
	return out, nil
}

// applyPatch returns a patched copy of doc. System fields cannot be changed.
func applyPatch(doc Document, p Patch, now time.Time) (Document, error) {
	if p.IfRevision != "" && doc.Revision() != p.IfRevision {
		return nil, ErrStale
	}
	set, err := Normalize(Document(p.Set))
	if err != nil {
		return nil, err
	}
	out := doc.Clone()
	for k, v := range set {
		if isSystemField(k) {
			continue
		}
		out[k] = v
	}
	for _, k := range p.Unset {
		if isSystemField(k) {
			continue
		}
		delete(out, k)
	}
	out[FieldUpdatedAt] = FormatTime(now)
	return out, nil
}

func isSystemField(k string) bool {
	switch k {
	case FieldID, FieldType, FieldCreatedAt, FieldUpdatedAt:
		return true
	}
	return false
}
