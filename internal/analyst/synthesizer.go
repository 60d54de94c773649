package analyst

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/dogukank/dbanalyst/internal/database"
)

// synthesize turns the executed steps into one natural-language answer.
// With nothing accumulated it returns a fixed apology without a model call.
// A model failure here is terminal for the session: the expensive retrying
// already happened during step execution.
func (s *session) synthesize(ctx context.Context, executed []StepRecord) (string, error) {
	if len(executed) == 0 {
		s.a.log.Warn("synthesizer invoked with no completed steps", "session", s.id)
		return apologyAnswer, nil
	}

	type stepResult struct {
		Description string         `json:"step_description"`
		Data        []database.Row `json:"data"`
	}
	results := make([]stepResult, 0, len(executed))
	for _, rec := range executed {
		results = append(results, stepResult{Description: rec.Description, Data: rec.Rows})
	}
	formatted, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling step results: %w", err)
	}

	answer, err := llms.GenerateFromSinglePrompt(ctx, s.a.model,
		buildSynthesizerPrompt(s.question, string(formatted)))
	if err != nil {
		return "", err
	}
	return answer, nil
}
