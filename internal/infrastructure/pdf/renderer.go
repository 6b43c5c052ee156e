// Package pdf turns HTML pages into PDF documents with headless Chrome.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/b2bmarket/backend/internal/domain/shared"
	"github.com/b2bmarket/backend/internal/infrastructure/config"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	a4WidthMM      = 210.0
	a4HeightMM     = 297.0
	marginMM       = 12.0
)

var (
	// ErrDisabled is returned when PDF rendering is switched off
	ErrDisabled = shared.NewDomainError("PDF_DISABLED", "PDF rendering is not available")
	// ErrEmptyHTML is returned for blank input
	ErrEmptyHTML = errors.New("HTML content is empty")
)

// Renderer converts an HTML document to PDF bytes
type Renderer interface {
	Render(ctx context.Context, html string) ([]byte, error)
	Close() error
}

// New returns the Chrome renderer, or a renderer that always fails with
// ErrDisabled when PDF support is off.
func New(cfg config.PDFConfig, logger *zap.Logger) Renderer {
	if !cfg.Enabled {
		return disabledRenderer{}
	}
	return NewChromedpRenderer(cfg, logger)
}

type disabledRenderer struct{}

func (disabledRenderer) Render(context.Context, string) ([]byte, error) { return nil, ErrDisabled }
func (disabledRenderer) Close() error                                   { return nil }

// ChromedpRenderer prints pages to A4 PDFs over the Chrome DevTools Protocol.
// It launches a local Chrome unless a remote instance URL is configured.
type ChromedpRenderer struct {
	timeout     time.Duration
	logger      *zap.Logger
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewChromedpRenderer creates the browser allocator. Chrome itself starts
// lazily on the first render.
func NewChromedpRenderer(cfg config.PDFConfig, logger *zap.Logger) *ChromedpRenderer {
	r := &ChromedpRenderer{
		timeout: cfg.Timeout,
		logger:  logger,
	}
	if r.timeout == 0 {
		r.timeout = defaultTimeout
	}

	if cfg.RemoteURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.RemoteURL)
		return r
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	if cfg.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	return r
}

// Render loads html into a blank tab and prints it
func (r *ChromedpRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	if strings.TrimSpace(html) == "" {
		return nil, ErrEmptyHTML
	}
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			r.logger.Debug(fmt.Sprintf(format, args...))
		}),
	)
	defer browserCancel()

	// Stop the tab when the request context ends.
	stop := context.AfterFunc(ctx, browserCancel)
	defer stop()

	var data []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, wrapDocument(html)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			out, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(mmToInches(a4WidthMM)).
				WithPaperHeight(mmToInches(a4HeightMM)).
				WithMarginTop(mmToInches(marginMM)).
				WithMarginRight(mmToInches(marginMM)).
				WithMarginBottom(mmToInches(marginMM)).
				WithMarginLeft(mmToInches(marginMM)).
				Do(ctx)
			data = out
			return err
		}),
	)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("PDF rendering timed out after %v: %w", r.timeout, err)
		}
		r.logger.Error("chromedp rendering failed", zap.Error(err))
		return nil, fmt.Errorf("chromedp execution failed: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("generated PDF is empty")
	}

	r.logger.Info("PDF rendered",
		zap.Int("bytes", len(data)),
		zap.Int("pages", PageCount(data)),
		zap.Duration("duration", time.Since(start)))
	return data, nil
}

// Close releases the browser allocator
func (r *ChromedpRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}

// wrapDocument wraps a fragment in a full HTML document
func wrapDocument(html string) string {
	lower := strings.ToLower(html)
	if strings.Contains(lower, "<!doctype") || strings.Contains(lower, "<html") {
		return html
	}
	var buf bytes.Buffer
	buf.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8"></head><body>`)
	buf.WriteString(html)
	buf.WriteString("</body></html>")
	return buf.String()
}

// PageCount estimates the number of pages in a PDF
func PageCount(data []byte) int {
	count := bytes.Count(data, []byte("/Type /Page")) - bytes.Count(data, []byte("/Type /Pages"))
	return max(count, 1)
}

func mmToInches(mm float64) float64 {
	return mm / 25.4
}

var _ Renderer = (*ChromedpRenderer)(nil)
