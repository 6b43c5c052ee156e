package handler

import (
	"errors"
	"net/http"

	appmedia "github.com/b2bmarket/backend/internal/application/media"
	"github.com/b2bmarket/backend/internal/domain/media"
	"github.com/gin-gonic/gin"
)

// multipartOverhead is allowed on top of the image size for form framing.
const multipartOverhead = 1 << 20

// UploadHandler accepts image uploads for listings and company logos
type UploadHandler struct {
	BaseHandler
	uploadService *appmedia.UploadService
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploadService *appmedia.UploadService) *UploadHandler {
	return &UploadHandler{uploadService: uploadService}
}

// UploadImage godoc
// @ID           uploadImage
// @Summary      Upload an image
// @Description  Accepts JPEG, PNG, GIF or WebP in the multipart field "file". The type is detected from the content.
// @Tags         uploads
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file formData file true "Image"
// @Success      201 {object} APIResponse[appmedia.AssetDTO]
// @Failure      400 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Failure      415 {object} ErrorResponse
// @Router       /uploads/images [post]
func (h *UploadHandler) UploadImage(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.uploadService.MaxSize()+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.HandleError(c, media.ErrFileTooLarge)
			return
		}
		h.BadRequest(c, "A file is required in the \"file\" field")
		return
	}

	file, err := header.Open()
	if err != nil {
		h.HandleError(c, err)
		return
	}
	defer file.Close()

	asset, err := h.uploadService.UploadImage(c.Request.Context(), actor, header.Filename, file)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, asset)
}

// DeleteImage godoc
// @ID           deleteImage
// @Summary      Delete an uploaded image
// @Tags         uploads
// @Security     BearerAuth
// @Param        id path string true "Asset ID"
// @Success      204
// @Failure      404 {object} ErrorResponse
// @Router       /uploads/images/{id} [delete]
func (h *UploadHandler) DeleteImage(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.uploadService.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
