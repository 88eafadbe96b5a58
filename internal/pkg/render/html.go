package render

import (
	"context"
	"encoding/json"
	"strings"

	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/llm"
	"github.com/pkg/errors"
)

const htmlInstructions = `You are an expert presentation slide designer. Generate a complete standalone HTML page for one presentation slide.

REQUIREMENTS:
1. The page must be exactly 960x540 pixels, no scrollbars
2. All CSS must be inline in a <style> block, no external resources except the provided image URL
3. Use the visual theme described below consistently
4. Place the slide title prominently and the bullet points clearly readable
5. If an image URL is provided, integrate it into the layout
6. Return ONLY the HTML document, no explanations, no markdown fences`

// HTMLMaker turns one slide into a themed standalone HTML page
type HTMLMaker struct {
	cl llm.Completer
}

// NewHTMLMaker creates HTMLMaker instance
func NewHTMLMaker(cl llm.Completer) (*HTMLMaker, error) {
	if cl == nil {
		return nil, errors.New("No completer provided")
	}
	return &HTMLMaker{cl: cl}, nil
}

// Make returns the HTML page for the slide
func (h *HTMLMaker) Make(ctx context.Context, slide *jobs.Slide, theme *jobs.Theme, img *jobs.ImageDescriptor) (string, error) {
	sd, err := json.Marshal(slide)
	if err != nil {
		return "", errors.Wrap(err, "Can't marshal slide")
	}
	var sb strings.Builder
	sb.WriteString("THEME: " + theme.Name + "\n" + theme.Description + "\n\n")
	sb.WriteString("SLIDE:\n" + string(sd) + "\n")
	if img != nil && !img.Missing {
		sb.WriteString("\nIMAGE URL: " + img.URL + "\n")
	}
	answer, err := h.cl.Complete(ctx, []llm.Block{
		{Text: htmlInstructions, Cache: true},
		{Text: sb.String()},
	})
	if err != nil {
		return "", err
	}
	res := dropFences(answer)
	if !strings.Contains(strings.ToLower(res), "<html") {
		return "", errs.New(errs.ProviderUnavailable, "no html page in answer")
	}
	return res, nil
}

func dropFences(s string) string {
	res := strings.TrimSpace(s)
	if strings.HasPrefix(res, "```") {
		if i := strings.Index(res, "\n"); i > -1 {
			res = res[i+1:]
		}
		res = strings.TrimSuffix(strings.TrimSpace(res), "```")
	}
	return strings.TrimSpace(res)
}
