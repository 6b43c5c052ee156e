package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
)

// Document types stored by the repositories.
const (
	TypeUser         = "user"
	TypeCompany      = "company"
	TypeProduct      = "product"
	TypeService      = "service"
	TypeCategory     = "category"
	TypeMessage      = "message"
	TypeNotification = "notification"
	TypeAsset        = "asset"
)

// mapStoreError translates document store errors into domain errors.
func mapStoreError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrNotFound):
		return shared.ErrNotFound
	case errors.Is(err, docstore.ErrConflict):
		return shared.ErrAlreadyExists
	case errors.Is(err, docstore.ErrStale):
		return shared.ErrStaleWrite
	case errors.Is(err, docstore.ErrInvalid):
		return shared.NewDomainError("INVALID_QUERY", err.Error())
	}
	return err
}

// getTyped loads id and checks that it is one of types.
func getTyped(ctx context.Context, store docstore.Store, id string, types ...string) (docstore.Document, error) {
	if id == "" {
		return nil, shared.ErrNotFound
	}
	doc, err := store.Get(ctx, id)
	if err != nil {
		return nil, mapStoreError(err)
	}
	for _, t := range types {
		if doc.Type() == t {
			return doc, nil
		}
	}
	return nil, shared.ErrNotFound
}

// findOne returns the first match of q or ErrNotFound.
func findOne(ctx context.Context, store docstore.Store, q docstore.Query) (docstore.Document, error) {
	q.Limit = 1
	docs, err := store.Query(ctx, q)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if len(docs) == 0 {
		return nil, shared.ErrNotFound
	}
	return docs[0], nil
}

// paginate runs q for one page and counts the full result.
func paginate[T any](ctx context.Context, store docstore.Store, q docstore.Query, p shared.Pagination, conv func(docstore.Document) T) (shared.Paginated[T], error) {
	q.Offset = p.Offset()
	q.Limit = p.Limit()
	docs, err := store.Query(ctx, q)
	if err != nil {
		return shared.Paginated[T]{}, mapStoreError(err)
	}
	total, err := store.Count(ctx, q)
	if err != nil {
		return shared.Paginated[T]{}, mapStoreError(err)
	}
	items := make([]T, 0, len(docs))
	for _, d := range docs {
		items = append(items, conv(d))
	}
	return shared.NewPaginated(items, total, p), nil
}

// create stores doc and copies the system fields back into e.
func create(ctx context.Context, store docstore.Store, e *shared.Entity, doc docstore.Document) error {
	if e.ID != "" {
		doc[docstore.FieldID] = e.ID
	}
	out, err := store.Create(ctx, doc)
	if err != nil {
		return mapStoreError(err)
	}
	*e = entityFrom(out)
	return nil
}

// update patches the mapped fields of e.
func update(ctx context.Context, store docstore.Store, e *shared.Entity, doc docstore.Document) error {
	return patch(ctx, store, e, docstore.Patch{Set: doc})
}

// updateIfUnchanged patches e only while the stored document is still the
// version e was loaded from.
func updateIfUnchanged(ctx context.Context, store docstore.Store, e *shared.Entity, doc docstore.Document) error {
	if e.Revision == "" {
		return shared.ErrStaleWrite
	}
	return patch(ctx, store, e, docstore.Patch{Set: doc, IfRevision: e.Revision})
}

func patch(ctx context.Context, store docstore.Store, e *shared.Entity, p docstore.Patch) error {
	out, err := store.Patch(ctx, e.ID, p)
	if err != nil {
		return mapStoreError(err)
	}
	e.UpdatedAt = out.Time(docstore.FieldUpdatedAt)
	e.Revision = out.Revision()
	return nil
}

func entityFrom(d docstore.Document) shared.Entity {
	return shared.Entity{
		ID:        d.ID(),
		CreatedAt: d.Time(docstore.FieldCreatedAt),
		UpdatedAt: d.Time(docstore.FieldUpdatedAt),
		Revision:  d.Revision(),
	}
}

func refOrNil(id string) any {
	if id == "" {
		return nil
	}
	return docstore.Ref(id)
}

func timeOrNil(t *time.Time) any {
	if t == nil || t.IsZero() {
		return nil
	}
	return docstore.FormatTime(*t)
}

func timePtr(d docstore.Document, key string) *time.Time {
	t := d.Time(key)
	if t.IsZero() {
		return nil
	}
	return &t
}

func int64Field(d docstore.Document, key string) int64 {
	v, ok := d.Lookup(key)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
