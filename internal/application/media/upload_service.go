// Package media handles image uploads.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/b2bmarket/backend/internal/domain/identity"
	"github.com/b2bmarket/backend/internal/domain/media"
	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AssetDTO represents an uploaded file
type AssetDTO struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	MimeType  string    `json:"mime_type"`
	Size      int64     `json:"size"`
	Filename  string    `json:"filename,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ToAssetDTO converts an asset
func ToAssetDTO(a *media.Asset) AssetDTO {
	return AssetDTO{
		ID:        a.ID,
		URL:       a.URL,
		MimeType:  a.MimeType,
		Size:      a.Size,
		Filename:  a.OriginalFilename,
		CreatedAt: a.CreatedAt,
	}
}

// UploadService stores images for the actor's company
type UploadService struct {
	assets  media.Repository
	store   storage.ObjectStorage
	maxSize int64
	logger  *zap.Logger
}

// NewUploadService creates a new upload service. maxSize caps image uploads
// in bytes.
func NewUploadService(assets media.Repository, store storage.ObjectStorage, maxSize int64, logger *zap.Logger) *UploadService {
	return &UploadService{assets: assets, store: store, maxSize: maxSize, logger: logger}
}

// MaxSize returns the upload limit in bytes
func (s *UploadService) MaxSize() int64 {
	return s.maxSize
}

// UploadImage stores an image. The type is detected from the content; the
// client's filename and content type are not trusted.
func (s *UploadService) UploadImage(ctx context.Context, actor *identity.User, filename string, content io.Reader) (*AssetDTO, error) {
	data, err := io.ReadAll(io.LimitReader(content, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	size := int64(len(data))
	mimeType := ""
	if size > 0 {
		mimeType, _, _ = strings.Cut(mimetype.Detect(data).String(), ";")
	}
	asset, err := media.NewImageAsset(actor.CompanyID, actor.ID, mimeType, filepath.Base(filename), size, s.maxSize)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("images/%s/%s%s", actor.CompanyID, uuid.NewString(), asset.Extension())
	if err := s.store.Put(ctx, key, bytes.NewReader(data), size, mimeType); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	asset.Path = key
	asset.URL = s.store.URL(key)

	if err := s.assets.Create(ctx, asset); err != nil {
		if derr := s.store.Delete(ctx, key); derr != nil {
			s.logger.Error("Failed to remove orphaned upload", zap.String("key", key), zap.Error(derr))
		}
		return nil, err
	}
	s.logger.Info("Image uploaded",
		zap.String("asset_id", asset.ID),
		zap.String("company_id", actor.CompanyID),
		zap.String("mime_type", mimeType),
		zap.Int64("size", size),
	)
	dto := ToAssetDTO(asset)
	return &dto, nil
}

// Delete removes an asset of the actor's company and its stored object
func (s *UploadService) Delete(ctx context.Context, actor *identity.User, id string) error {
	asset, err := s.assets.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if asset.CompanyID != actor.CompanyID {
		return shared.ErrNotFound
	}
	if err := s.assets.Delete(ctx, asset.ID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, asset.Path); err != nil {
		s.logger.Warn("Failed to remove stored object", zap.String("key", asset.Path), zap.Error(err))
	}
	s.logger.Info("Image deleted", zap.String("asset_id", asset.ID), zap.String("deleted_by", actor.ID))
	return nil
}
