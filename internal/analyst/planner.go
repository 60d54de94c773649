package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/tmc/langchaingo/llms"
)

var (
	fencedJSONRe = regexp.MustCompile("(?s)```(?:json)?\\s*(\\{.*?\\})\\s*```")
	bareJSONRe   = regexp.MustCompile(`(?s)\{.*\}`)
)

// plan asks the model to decompose the question into 1..MaxPlanSteps
// concrete data-retrieval steps. Planning never fails: any model or parse
// error degrades to a single-step fallback restating the question, and an
// over-long plan is clamped. There is no retry at this level; execution's
// self-correction is the recovery mechanism for a weak plan.
func (s *session) plan(ctx context.Context) []string {
	prompt := buildPlannerPrompt(s.question, s.a.schema, s.a.cfg.MaxPlanSteps)

	raw, err := llms.GenerateFromSinglePrompt(ctx, s.a.model, prompt)
	if err != nil {
		s.a.log.Warn("planner model call failed, using fallback plan", "session", s.id, "error", err)
		return s.fallbackPlan()
	}

	steps, err := parsePlan(raw)
	if err != nil {
		s.a.log.Warn("could not parse plan, using fallback plan", "session", s.id, "error", err)
		return s.fallbackPlan()
	}

	if len(steps) > s.a.cfg.MaxPlanSteps {
		s.a.log.Warn("model over-decomposed the question, truncating plan",
			"session", s.id, "steps", len(steps), "max", s.a.cfg.MaxPlanSteps)
		steps = steps[:s.a.cfg.MaxPlanSteps]
	}

	s.a.log.Info("plan created", "session", s.id, "steps", len(steps))
	return steps
}

// parsePlan extracts the {"plan": [...]} object from a raw model response,
// preferring a fenced code block and falling back to the first
// brace-delimited object anywhere in the text.
func parsePlan(raw string) ([]string, error) {
	var jsonStr string
	if m := fencedJSONRe.FindStringSubmatch(raw); m != nil {
		jsonStr = m[1]
	} else if m := bareJSONRe.FindString(raw); m != "" {
		jsonStr = m
	} else {
		return nil, errors.New("no JSON object found in planner response")
	}

	var parsed struct {
		Plan []string `json:"plan"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("parsing plan JSON: %w", err)
	}
	if len(parsed.Plan) == 0 {
		return nil, errors.New("plan contains no steps")
	}
	return parsed.Plan, nil
}

func (s *session) fallbackPlan() []string {
	return []string{fmt.Sprintf("Write a single SQL query that directly answers the user's question: '%s'", s.question)}
}
