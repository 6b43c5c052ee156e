package pdf

import (
	"context"
	"testing"

	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Disabled(t *testing.T) {
	r := New(config.PDFConfig{Enabled: false}, zap.NewNop())
	_, err := r.Render(context.Background(), "<p>hi</p>")
	assert.ErrorIs(t, err, ErrDisabled)
	assert.NoError(t, r.Close())
}

func TestChromedpRenderer_RejectsEmptyHTML(t *testing.T) {
	r := NewChromedpRenderer(config.PDFConfig{Enabled: true}, zap.NewNop())
	defer r.Close()

	_, err := r.Render(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyHTML)
	assert.Equal(t, defaultTimeout, r.timeout)
}

func TestWrapDocument(t *testing.T) {
	assert.Equal(t,
		`<!DOCTYPE html><html><head><meta charset="UTF-8"></head><body><p>x</p></body></html>`,
		wrapDocument("<p>x</p>"))

	full := "<!doctype html><html><body>ok</body></html>"
	assert.Equal(t, full, wrapDocument(full))
}

func TestPageCount(t *testing.T) {
	data := []byte("<< /Type /Pages /Kids [1 0 R 2 0 R] >> << /Type /Page >> << /Type /Page >>")
	assert.Equal(t, 2, PageCount(data))
	assert.Equal(t, 1, PageCount([]byte("garbage")))
}

func TestMMToInches(t *testing.T) {
	require.InDelta(t, 8.27, mmToInches(a4WidthMM), 0.01)
}
