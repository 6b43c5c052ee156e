package docstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	surrealdb "github.com/surrealdb/surrealdb.go"
	"go.uber.org/zap"
)

// surrealTable holds every document; the document type is a field, the
// record key is the document id.
const surrealTable = "document"

// SurrealConfig holds SurrealDB connection settings
type SurrealConfig struct {
	URL       string
	Namespace string
	Database  string
	Username  string
	Password  string
}

// SurrealStore keeps documents in SurrealDB. Filters, search, ordering and
// paging are pushed into SurrealQL.
type SurrealStore struct {
	db     *surrealdb.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSurrealStore connects, signs in and selects the namespace/database.
func NewSurrealStore(ctx context.Context, cfg SurrealConfig, logger *zap.Logger) (*SurrealStore, error) {
	db, err := surrealdb.FromEndpointURLString(ctx, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to surrealdb: %w", err)
	}
	if cfg.Username != "" {
		if _, err := db.SignIn(ctx, map[string]any{
			"user": cfg.Username,
			"pass": cfg.Password,
		}); err != nil {
			_ = db.Close(ctx)
			return nil, fmt.Errorf("failed to sign in to surrealdb: %w", err)
		}
	}
	if err := db.Use(ctx, cfg.Namespace, cfg.Database); err != nil {
		_ = db.Close(ctx)
		return nil, fmt.Errorf("failed to select surrealdb namespace: %w", err)
	}

	s := &SurrealStore{db: db, logger: logger, now: time.Now}
	if err := s.defineSchema(ctx); err != nil {
		_ = db.Close(ctx)
		return nil, err
	}
	logger.Info("Connected to SurrealDB document store",
		zap.String("url", cfg.URL),
		zap.String("namespace", cfg.Namespace),
		zap.String("database", cfg.Database),
	)
	return s, nil
}

func (s *SurrealStore) defineSchema(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, s.db,
		`DEFINE TABLE IF NOT EXISTS document SCHEMALESS;
		 DEFINE INDEX IF NOT EXISTS document_type ON TABLE document FIELDS _type;`, nil)
	if err != nil {
		return fmt.Errorf("failed to define document table: %w", err)
	}
	return nil
}

// Get loads one document by id
func (s *SurrealStore) Get(ctx context.Context, id string) (Document, error) {
	docs, err := s.run(ctx, `SELECT * FROM type::thing($tb, $id)`, map[string]any{
		"tb": surrealTable,
		"id": id,
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	return docs[0], nil
}

// GetMany loads the documents that exist among ids
func (s *SurrealStore) GetMany(ctx context.Context, ids []string) (map[string]Document, error) {
	out := make(map[string]Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := s.run(ctx, `SELECT * FROM type::table($tb) WHERE _id INSIDE $ids`, map[string]any{
		"tb":  surrealTable,
		"ids": ids,
	})
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID()] = d
	}
	return out, nil
}

// Query returns the documents matching q
func (s *SurrealStore) Query(ctx context.Context, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	sql, vars := buildSurrealSelect(q)
	docs, err := s.run(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	if len(q.Expand) > 0 {
		if err := Expand(ctx, s, docs, q.Expand); err != nil {
			return nil, err
		}
	}
	return docs, nil
}

// Count returns the number of documents matching q
func (s *SurrealStore) Count(ctx context.Context, q Query) (int64, error) {
	if err := q.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	where, vars := buildSurrealWhere(q)
	vars["tb"] = surrealTable
	rows, err := s.run(ctx, "SELECT count() AS total FROM type::table($tb) WHERE "+where+" GROUP ALL", vars)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, _ := toFloat(rows[0]["total"])
	return int64(n), nil
}

// Create stores a new document
func (s *SurrealStore) Create(ctx context.Context, doc Document) (Document, error) {
	out, err := prepareCreate(doc, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, out.ID()); err == nil {
		return nil, ErrConflict
	}
	docs, err := s.run(ctx, `CREATE type::thing($tb, $id) CONTENT $doc`, map[string]any{
		"tb":  surrealTable,
		"id":  out.ID(),
		"doc": map[string]any(out),
	})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return out, nil
	}
	return docs[0], nil
}

// Patch applies a partial update and returns the new document
func (s *SurrealStore) Patch(ctx context.Context, id string, p Patch) (Document, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := applyPatch(current, p, s.now())
	if err != nil {
		return nil, err
	}
	delete(out, "id")
	sql := `UPDATE type::thing($tb, $id) CONTENT $doc RETURN AFTER`
	vars := map[string]any{
		"tb":  surrealTable,
		"id":  id,
		"doc": map[string]any(out),
	}
	if p.IfRevision != "" {
		// The check is repeated in the statement so a write landing between
		// the read above and this update is not overwritten.
		sql = `UPDATE type::thing($tb, $id) CONTENT $doc WHERE _updatedAt = $rev RETURN AFTER`
		vars["rev"] = p.IfRevision
	}
	docs, err := s.run(ctx, sql, vars)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		if p.IfRevision != "" {
			return nil, ErrStale
		}
		return out, nil
	}
	return docs[0], nil
}

// Delete removes a document permanently
func (s *SurrealStore) Delete(ctx context.Context, id string) error {
	docs, err := s.run(ctx, `DELETE type::thing($tb, $id) RETURN BEFORE`, map[string]any{
		"tb": surrealTable,
		"id": id,
	})
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the connection
func (s *SurrealStore) Ping(ctx context.Context) error {
	_, err := surrealdb.Query[any](ctx, s.db, "RETURN true", nil)
	return err
}

// Close closes the connection
func (s *SurrealStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.db.Close(ctx)
}

// run executes one statement and returns its rows as documents with the
// SurrealDB record id removed.
func (s *SurrealStore) run(ctx context.Context, sql string, vars map[string]any) ([]Document, error) {
	results, err := surrealdb.Query[[]map[string]any](ctx, s.db, sql, vars)
	if err != nil {
		return nil, fmt.Errorf("surrealdb query failed: %w", err)
	}
	if results == nil || len(*results) == 0 {
		return nil, nil
	}
	last := (*results)[len(*results)-1]
	if last.Status != "OK" {
		return nil, fmt.Errorf("surrealdb query status %s", last.Status)
	}
	docs := make([]Document, 0, len(last.Result))
	for _, row := range last.Result {
		delete(row, "id")
		docs = append(docs, Document(row))
	}
	return docs, nil
}

// buildSurrealSelect renders q as a parameterized SurrealQL SELECT.
func buildSurrealSelect(q Query) (string, map[string]any) {
	where, vars := buildSurrealWhere(q)
	vars["tb"] = surrealTable

	var b strings.Builder
	b.WriteString("SELECT * FROM type::table($tb) WHERE ")
	b.WriteString(where)
	if len(q.Order) > 0 {
		parts := make([]string, 0, len(q.Order))
		for _, o := range q.Order {
			dir := "ASC"
			if o.Desc {
				dir = "DESC"
			}
			parts = append(parts, o.Field+" "+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT $limit")
		vars["limit"] = q.Limit
	}
	if q.Offset > 0 {
		b.WriteString(" START $start")
		vars["start"] = q.Offset
	}
	return b.String(), vars
}

// buildSurrealWhere renders the filter part. Field names were validated by
// Query.Validate; values always travel as parameters.
func buildSurrealWhere(q Query) (string, map[string]any) {
	vars := map[string]any{"type": q.Type}
	conds := []string{"_type = $type"}

	for i, f := range q.Filters {
		p := fmt.Sprintf("p%d", i)
		vars[p] = f.Value
		switch f.Op {
		case OpEq:
			conds = append(conds, fmt.Sprintf("%s = $%s", f.Field, p))
		case OpNeq:
			conds = append(conds, fmt.Sprintf("%s != $%s", f.Field, p))
		case OpIn:
			conds = append(conds, fmt.Sprintf("%s INSIDE $%s", f.Field, p))
		case OpGt:
			conds = append(conds, fmt.Sprintf("%s > $%s", f.Field, p))
		case OpGte:
			conds = append(conds, fmt.Sprintf("%s >= $%s", f.Field, p))
		case OpLt:
			conds = append(conds, fmt.Sprintf("%s < $%s", f.Field, p))
		case OpLte:
			conds = append(conds, fmt.Sprintf("%s <= $%s", f.Field, p))
		case OpContains:
			conds = append(conds, fmt.Sprintf("(%s CONTAINS $%s OR %s._ref CONTAINS $%s)", f.Field, p, f.Field, p))
		case OpRef:
			conds = append(conds, fmt.Sprintf("(%s._ref = $%s OR %s._ref CONTAINS $%s)", f.Field, p, f.Field, p))
		case OpExists:
			delete(vars, p)
			if yes, _ := f.Value.(bool); yes {
				conds = append(conds, fmt.Sprintf("%s != NONE", f.Field))
			} else {
				conds = append(conds, fmt.Sprintf("%s = NONE", f.Field))
			}
		}
	}

	if q.Search != nil && strings.TrimSpace(q.Search.Term) != "" && len(q.Search.Fields) > 0 {
		vars["term"] = strings.ToLower(strings.TrimSpace(q.Search.Term))
		var ors []string
		for _, field := range q.Search.Fields {
			ors = append(ors, fmt.Sprintf("string::contains(string::lowercase(<string> (%s ?? '')), $term)", field))
		}
		conds = append(conds, "("+strings.Join(ors, " OR ")+")")
	}
	return strings.Join(conds, " AND "), vars
}

var _ Store = (*SurrealStore)(nil)
