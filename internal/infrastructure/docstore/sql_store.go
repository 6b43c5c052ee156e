package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// documentRecord is the row layout of the documents table
type documentRecord struct {
	ID        string         `gorm:"column:id;primaryKey;size:64"`
	Type      string         `gorm:"column:type;size:64;not null;index:idx_documents_type"`
	Data      datatypes.JSON `gorm:"column:data;not null"`
	CreatedAt time.Time      `gorm:"column:created_at;not null"`
	UpdatedAt time.Time      `gorm:"column:updated_at;not null"`
}

// TableName returns the table name for gorm
func (documentRecord) TableName() string {
	return "documents"
}

// SQLStore keeps documents as JSON rows in a relational database. Only the
// type is filtered in SQL; everything else is evaluated in Go over the
// documents of that type.
type SQLStore struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// SQLStoreOption configures a SQLStore
type SQLStoreOption func(*SQLStore)

// WithSQLLogger sets the logger
func WithSQLLogger(logger *zap.Logger) SQLStoreOption {
	return func(s *SQLStore) {
		s.logger = logger
	}
}

// WithClock overrides the time source (tests)
func WithClock(now func() time.Time) SQLStoreOption {
	return func(s *SQLStore) {
		s.now = now
	}
}

// NewSQLStore creates a store over an open gorm connection
func NewSQLStore(db *gorm.DB, opts ...SQLStoreOption) *SQLStore {
	s := &SQLStore{
		db:     db,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AutoMigrate creates the documents table. Production postgres databases
// are migrated with cmd/migrate instead.
func (s *SQLStore) AutoMigrate() error {
	return s.db.AutoMigrate(&documentRecord{})
}

// Get loads one document by id
func (s *SQLStore) Get(ctx context.Context, id string) (Document, error) {
	var rec documentRecord
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	return decodeRecord(rec)
}

// GetMany loads the documents that exist among ids
func (s *SQLStore) GetMany(ctx context.Context, ids []string) (map[string]Document, error) {
	out := make(map[string]Document, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var recs []documentRecord
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	for _, rec := range recs {
		doc, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		out[rec.ID] = doc
	}
	return out, nil
}

// Query returns the documents matching q
func (s *SQLStore) Query(ctx context.Context, q Query) ([]Document, error) {
	candidates, err := s.loadType(ctx, q)
	if err != nil {
		return nil, err
	}
	result := Apply(q, candidates)
	if len(q.Expand) > 0 {
		if err := Expand(ctx, s, result, q.Expand); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Count returns the number of documents matching q, ignoring paging
func (s *SQLStore) Count(ctx context.Context, q Query) (int64, error) {
	candidates, err := s.loadType(ctx, q)
	if err != nil {
		return 0, err
	}
	return int64(len(Apply(q.CountQuery(), candidates))), nil
}

func (s *SQLStore) loadType(ctx context.Context, q Query) ([]Document, error) {
	if err := q.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	var recs []documentRecord
	if err := s.db.WithContext(ctx).
		Where("type = ?", q.Type).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	docs := make([]Document, 0, len(recs))
	for _, rec := range recs {
		doc, err := decodeRecord(rec)
		if err != nil {
			s.logger.Warn("Skipping undecodable document",
				zap.String("id", rec.ID),
				zap.Error(err),
			)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Create stores a new document
func (s *SQLStore) Create(ctx context.Context, doc Document) (Document, error) {
	now := s.now()
	out, err := prepareCreate(doc, now)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&documentRecord{}).Where("id = ?", out.ID()).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return ErrConflict
		}
		return tx.Create(&documentRecord{
			ID:        out.ID(),
			Type:      out.Type(),
			Data:      datatypes.JSON(data),
			CreatedAt: now.UTC(),
			UpdatedAt: now.UTC(),
		}).Error
	})
	if errors.Is(err, ErrConflict) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return out, nil
}

// Patch applies a partial update and returns the new document
func (s *SQLStore) Patch(ctx context.Context, id string, p Patch) (Document, error) {
	var out Document
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		read := tx
		if p.IfRevision != "" && tx.Dialector.Name() == "postgres" {
			read = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var rec documentRecord
		if err := read.Where("id = ?", id).First(&rec).Error; err != nil {
			return err
		}
		current, err := decodeRecord(rec)
		if err != nil {
			return err
		}
		now := s.now()
		out, err = applyPatch(current, p, now)
		if err != nil {
			return err
		}
		data, err := json.Marshal(out)
		if err != nil {
			return err
		}
		return tx.Model(&documentRecord{}).Where("id = ?", id).Updates(map[string]any{
			"data":       datatypes.JSON(data),
			"updated_at": now.UTC(),
		}).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if errors.Is(err, ErrStale) {
		return nil, ErrStale
	}
	if err != nil {
		return nil, fmt.Errorf("failed to patch document: %w", err)
	}
	return out, nil
}

// Delete removes a document permanently
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&documentRecord{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete document: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close is a no-op; the connection is owned by persistence.Database.
func (s *SQLStore) Close() error {
	return nil
}

func decodeRecord(rec documentRecord) (Document, error) {
	doc := Document{}
	if err := json.Unmarshal(rec.Data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode document %s: %w", rec.ID, err)
	}
	doc[FieldID] = rec.ID
	doc[FieldType] = rec.Type
	return doc, nil
}

var _ Store = (*SQLStore)(nil)
