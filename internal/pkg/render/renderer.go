package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// PageRenderer rasterizes one HTML page into a PNG file
type PageRenderer interface {
	Render(ctx context.Context, html string, outFile string) error
}

// Renderer turns a structure into ordered page images. Slides render
// concurrently but the result keeps the slide order
type Renderer struct {
	html    *HTMLMaker
	page    PageRenderer
	dir     string
	workers int
}

// NewRenderer creates Renderer instance
func NewRenderer(html *HTMLMaker, page PageRenderer, dir string, workers int) (*Renderer, error) {
	if html == nil {
		return nil, errors.New("No html maker provided")
	}
	if page == nil {
		return nil, errors.New("No page renderer provided")
	}
	if dir == "" {
		return nil, errors.New("No workspace dir provided")
	}
	if workers < 1 {
		workers = 1
	}
	return &Renderer{html: html, page: page, dir: dir, workers: workers}, nil
}

// Render returns PNG file paths aligned with the slides of the job
// structure. Any slide failure fails the whole render
func (r *Renderer) Render(ctx context.Context, job *jobs.Job) ([]string, error) {
	st := job.Structure
	if st == nil {
		return nil, errs.New(errs.InvalidState, "no structure to render")
	}
	theme := jobs.ThemeByName(job.Config.Theme)
	if theme == nil {
		theme = jobs.ThemeByName(jobs.DefaultTheme)
	}
	wDir := filepath.Join(r.dir, job.ID)
	if err := os.MkdirAll(wDir, 0755); err != nil {
		return nil, errors.Wrap(err, "Can't create "+wDir)
	}
	res := make([]string, len(st.Slides))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i := range st.Slides {
		i := i
		g.Go(func() error {
			file, err := r.renderSlide(gCtx, &st.Slides[i], theme, imageFor(job, i), wDir, i)
			if err != nil {
				return err
			}
			res[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func (r *Renderer) renderSlide(ctx context.Context, slide *jobs.Slide, theme *jobs.Theme,
	img *jobs.ImageDescriptor, dir string, i int) (string, error) {
	cmdapp.Log.Debugf("Rendering slide %d", i+1)
	html, err := r.html.Make(ctx, slide, theme, img)
	if err != nil {
		return "", errors.Wrapf(err, "can't make html for slide %d", i+1)
	}
	file := filepath.Join(dir, fmt.Sprintf("slide_%d.png", i+1))
	if err := r.page.Render(ctx, html, file); err != nil {
		return "", errors.Wrapf(err, "can't render slide %d", i+1)
	}
	return file, nil
}

func imageFor(job *jobs.Job, i int) *jobs.ImageDescriptor {
	if i < len(job.Images) {
		return &job.Images[i]
	}
	return nil
}
