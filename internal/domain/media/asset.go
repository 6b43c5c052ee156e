// Package media models uploaded files.
package media

import (
	"context"

	"github.com/b2bmarket/backend/internal/domain/shared"
)

// ImageTypes maps the accepted image MIME types to file extensions
var ImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

var (
	ErrUnsupportedType = shared.NewDomainError("UNSUPPORTED_MEDIA_TYPE", "Only JPEG, PNG, GIF and WebP images are accepted")
	ErrFileTooLarge    = shared.NewDomainError("FILE_TOO_LARGE", "File exceeds the upload size limit")
	ErrEmptyFile       = shared.NewDomainError("EMPTY_FILE", "File is empty")
)

// Asset is a stored file owned by a company
type Asset struct {
	shared.Entity
	CompanyID        string
	UploadedBy       string
	URL              string
	Path             string // storage key
	MimeType         string
	Size             int64
	OriginalFilename string
}

// NewImageAsset validates the detected type and size of an upload
func NewImageAsset(companyID, uploadedBy, mimeType, filename string, size, maxSize int64) (*Asset, error) {
	if size <= 0 {
		return nil, ErrEmptyFile
	}
	if maxSize > 0 && size > maxSize {
		return nil, ErrFileTooLarge
	}
	if _, ok := ImageTypes[mimeType]; !ok {
		return nil, ErrUnsupportedType
	}
	return &Asset{
		CompanyID:        companyID,
		UploadedBy:       uploadedBy,
		MimeType:         mimeType,
		Size:             size,
		OriginalFilename: filename,
	}, nil
}

// Extension returns the file extension for the asset's type
func (a *Asset) Extension() string {
	return ImageTypes[a.MimeType]
}

// Repository persists assets
type Repository interface {
	Create(ctx context.Context, a *Asset) error
	FindByID(ctx context.Context, id string) (*Asset, error)
	Delete(ctx context.Context, id string) error
}
