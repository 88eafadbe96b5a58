package llm

import (
	"context"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
)

const analyzeInstructions = `You are a presentation planner. Analyze the transcription and produce a presentation structure.

INSTRUCTIONS:
1. Derive a compelling presentation title
2. Plan 5-10 slides covering the main topics in speaking order
3. Give every slide a short title and 2-5 bullet points
4. Return ONLY a JSON object, no explanations

OUTPUT FORMAT:
` + "```json" + `
{
  "title": "Presentation Title",
  "slides": [
    {
      "title": "Slide Title",
      "bullets": ["Point 1", "Point 2"],
      "imageTheme": "optional image search query"
    }
  ]
}
` + "```"

const analyzeImagesOn = `5. Set "imageTheme" on every slide to a short stock photo search query matching its topic`

const analyzeImagesOff = `5. Omit the "imageTheme" field, the deck is generated without images`

// Analyzer turns a transcript into a deck structure
type Analyzer struct {
	cl Completer
}

// NewAnalyzer creates Analyzer instance
func NewAnalyzer(cl Completer) (*Analyzer, error) {
	if cl == nil {
		return nil, errs.New(errs.Unknown, "no completer provided")
	}
	return &Analyzer{cl: cl}, nil
}

// Analyze produces the structure. It never returns an empty deck
func (a *Analyzer) Analyze(ctx context.Context, transcript string, useImages bool) (*jobs.Structure, error) {
	cmdapp.Log.Infof("Analyzing transcript, %d chars", len(transcript))
	instr := analyzeInstructions + "\n"
	if useImages {
		instr += analyzeImagesOn
	} else {
		instr += analyzeImagesOff
	}
	answer, err := a.cl.Complete(ctx, []Block{
		{Text: instr, Cache: true},
		{Text: "TRANSCRIPTION:\n" + transcript},
	})
	if err != nil {
		return nil, err
	}
	var res jobs.Structure
	if err := DecodeJSON(answer, &res); err != nil {
		return nil, err
	}
	if err := res.Validate(); err != nil {
		return nil, errs.Wrap(errs.ProviderUnavailable, err, "model returned invalid structure")
	}
	if !useImages {
		for i := range res.Slides {
			res.Slides[i].ImageTheme = ""
		}
	}
	return &res, nil
}
