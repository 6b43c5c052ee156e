package persistence

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/media"
	"github.com/b2bmarket/backend/internal/infrastructure/docstore"
)

// AssetRepository stores uploaded file metadata as "asset" documents
type AssetRepository struct {
	store docstore.Store
}

// NewAssetRepository creates an asset repository
func NewAssetRepository(store docstore.Store) *AssetRepository {
	return &AssetRepository{store: store}
}

// Create implements media.Repository
func (r *AssetRepository) Create(ctx context.Context, a *media.Asset) error {
	return create(ctx, r.store, &a.Entity, docstore.Document{
		docstore.FieldType: TypeAsset,
		"company":          refOrNil(a.CompanyID),
		"uploadedBy":       refOrNil(a.UploadedBy),
		"url":              a.URL,
		"path":             a.Path,
		"mimeType":         a.MimeType,
		"size":             a.Size,
		"originalFilename": a.OriginalFilename,
	})
}

// FindByID implements media.Repository
func (r *AssetRepository) FindByID(ctx context.Context, id string) (*media.Asset, error) {
	d, err := getTyped(ctx, r.store, id, TypeAsset)
	if err != nil {
		return nil, err
	}
	a := &media.Asset{
		CompanyID:        d.RefID("company"),
		UploadedBy:       d.RefID("uploadedBy"),
		URL:              d.String("url"),
		Path:             d.String("path"),
		MimeType:         d.String("mimeType"),
		Size:             int64Field(d, "size"),
		OriginalFilename: d.String("originalFilename"),
	}
	a.Entity = entityFrom(d)
	return a, nil
}

// Delete implements media.Repository
func (r *AssetRepository) Delete(ctx context.Context, id string) error {
	if _, err := getTyped(ctx, r.store, id, TypeAsset); err != nil {
		return err
	}
	return mapStoreError(r.store.Delete(ctx, id))
}

var _ media.Repository = (*AssetRepository)(nil)
