package editor

import (
	"context"
	"encoding/json"

	"bitbucket.org/airenas/slidego/internal/pkg/cmdapp"
	"bitbucket.org/airenas/slidego/internal/pkg/errs"
	"bitbucket.org/airenas/slidego/internal/pkg/jobs"
	"bitbucket.org/airenas/slidego/internal/pkg/llm"
	"github.com/pkg/errors"
)

const editInstructions = `You are a presentation structure editor. Edit the presentation structure based on the user's feedback.

INSTRUCTIONS:
1. Analyze the user's feedback carefully
2. Make the requested changes to the structure
3. Keep the same JSON format and all required fields
4. Return ONLY the updated JSON structure, no explanations

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
` + "```" + `

Return the complete updated structure.`

// Editor applies natural language feedback to a structure. The
// instructions and the current structure form the stable prompt
// prefix, only the feedback changes between calls within one session,
// so a provider side prompt cache can engage
type Editor struct {
	cl llm.Completer
}

// NewEditor creates Editor instance
func NewEditor(cl llm.Completer) (*Editor, error) {
	if cl == nil {
		return nil, errors.New("No completer provided")
	}
	return &Editor{cl: cl}, nil
}

// Apply returns the edited structure or fails with EditRejected
// leaving the input untouched. Edits are all or nothing
func (e *Editor) Apply(ctx context.Context, st *jobs.Structure, feedback string) (*jobs.Structure, error) {
	cmdapp.Log.Infof("Applying feedback: %.60s", feedback)
	current, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "Can't marshal structure")
	}
	answer, err := e.cl.Complete(ctx, []llm.Block{
		{Text: editInstructions, Cache: true},
		{Text: "CURRENT STRUCTURE:\n```json\n" + string(current) + "\n```", Cache: true},
		{Text: "USER FEEDBACK:\n" + feedback + "\n\nPlease return the updated structure:"},
	})
	if err != nil {
		return nil, err
	}
	var res jobs.Structure
	if err := llm.DecodeJSON(answer, &res); err != nil {
		return nil, errs.Wrap(errs.EditRejected, err, "feedback produced no valid structure")
	}
	if err := res.Validate(); err != nil {
		return nil, errs.Wrap(errs.EditRejected, err, "feedback produced invalid structure")
	}
	return &res, nil
}
