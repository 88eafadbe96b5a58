package render

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"
)

const (
	pageWidth  = 960
	pageHeight = 540
	pageScale  = 2
)

// ChromeRenderer rasterizes an HTML page with a headless browser
type ChromeRenderer struct {
	timeout time.Duration
}

// NewChromeRenderer creates ChromeRenderer instance
func NewChromeRenderer() *ChromeRenderer {
	return &ChromeRenderer{timeout: time.Minute}
}

// Render writes the page screenshot as PNG to outFile
func (r *ChromeRenderer) Render(ctx context.Context, html string, outFile string) error {
	htmlFile := outFile + ".html"
	if err := os.WriteFile(htmlFile, []byte(html), 0644); err != nil {
		return errors.Wrap(err, "Can't write "+htmlFile)
	}
	defer os.Remove(htmlFile)
	abs, err := filepath.Abs(htmlFile)
	if err != nil {
		return errors.Wrap(err, "Can't resolve "+htmlFile)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	cCtx, cCancel := chromedp.NewContext(ctx)
	defer cCancel()
	var buf []byte
	err = chromedp.Run(cCtx,
		chromedp.EmulateViewport(pageWidth, pageHeight, chromedp.EmulateScale(pageScale)),
		chromedp.Navigate("file://"+abs),
		chromedp.CaptureScreenshot(&buf),
	)
	if err != nil {
		return errs.Wrap(errs.ProviderUnavailable, err, "browser render failed")
	}
	if err := os.WriteFile(outFile, buf, 0644); err != nil {
		return errors.Wrap(err, "Can't write "+outFile)
	}
	return nil
}
