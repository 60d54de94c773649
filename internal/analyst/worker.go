package analyst

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/dogukank/dbanalyst/internal/database"
	"github.com/dogukank/dbanalyst/internal/sqlguard"
)

// errMalformedOutput marks a model response that did not contain the
// expected execute_sql tool call. It counts as a failed attempt and is fed
// back into the next prompt like any other error.
var errMalformedOutput = errors.New("model response contained no execute_sql tool call")

// StepRecord is the finalized outcome of one plan position.
type StepRecord struct {
	Index       int
	Description string
	Rows        []database.Row
	Errors      []string
	OK          bool
}

var executeSQLTool = llms.Tool{
	Type: "function",
	Function: &llms.FunctionDefinition{
		Name:        "execute_sql",
		Description: "Run a single read-only SQL query against the analytics database and return its rows.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"sql_query": map[string]any{
					"type":        "string",
					"description": "The SQL query to execute. Must be a single SELECT statement.",
				},
			},
			"required": []string{"sql_query"},
		},
	},
}

// runStep drives one plan step to success or exhaustion. Each attempt asks
// the model for exactly one execute_sql tool call, gates the produced query
// through sqlguard, runs it, and on failure feeds the error back into the
// next attempt's prompt. Attempts are strictly sequential: every prompt
// depends on the previous attempt's error.
func (s *session) runStep(ctx context.Context, index int, step string, stepCtx *StepContext) StepRecord {
	rec := StepRecord{Index: index, Description: step}

	for attempt := 0; attempt < s.a.cfg.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return rec
		}
		s.a.log.Info("executing step", "session", s.id,
			"step", index+1, "attempt", attempt+1, "budget", s.a.cfg.MaxRetries)

		query, err := s.generateQuery(ctx, step, stepCtx, lastError(rec))
		if err != nil {
			if errors.Is(err, errMalformedOutput) {
				s.emit(ctx, newStepEvent(EventToolError, index, err.Error()))
			} else {
				s.emit(ctx, newStepEvent(EventError, index, fmt.Sprintf("model call failed: %v", err)))
			}
			rec.Errors = append(rec.Errors, err.Error())
			continue
		}

		if err := sqlguard.Check(query); err != nil {
			s.a.log.Warn("query rejected", "session", s.id, "step", index+1, "error", err)
			s.emit(ctx, newStepEvent(EventToolError, index, err.Error()))
			rec.Errors = append(rec.Errors, err.Error())
			continue
		}

		rows, err := s.a.db.Query(ctx, query)
		if err != nil {
			s.a.log.Warn("query failed", "session", s.id, "step", index+1, "error", err)
			s.emit(ctx, newStepEvent(EventToolError, index, err.Error()))
			rec.Errors = append(rec.Errors, err.Error())
			continue
		}

		s.emit(ctx, newStepEvent(EventSQLQuery, index, query))
		s.emit(ctx, newStepEvent(EventToolResult, index, fmt.Sprintf("Success, %d rows found.", len(rows))))

		rec.Rows = rows
		rec.OK = true
		stepCtx.Add(fmt.Sprintf("step_%d_result", index+1), rows)
		return rec
	}

	return rec
}

// generateQuery makes one tool-invoking model call and extracts the SQL
// argument of the execute_sql call.
func (s *session) generateQuery(ctx context.Context, step string, stepCtx *StepContext, lastErr string) (string, error) {
	var contextJSON string
	if stepCtx.Len() > 0 {
		b, err := json.Marshal(stepCtx)
		if err != nil {
			return "", fmt.Errorf("marshaling accumulated context: %w", err)
		}
		contextJSON = string(b)
	}

	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(workerSystemPrompt)},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(buildStepPrompt(s.question, s.a.schema, contextJSON, lastErr, step))},
		},
	}

	resp, err := s.a.model.GenerateContent(ctx, messages, llms.WithTools([]llms.Tool{executeSQLTool}))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("model returned no choices")
	}

	for _, tc := range resp.Choices[0].ToolCalls {
		if tc.FunctionCall == nil || tc.FunctionCall.Name != executeSQLTool.Function.Name {
			continue
		}
		var args struct {
			SQLQuery string `json:"sql_query"`
		}
		if err := json.Unmarshal([]byte(tc.FunctionCall.Arguments), &args); err != nil {
			return "", fmt.Errorf("%w: bad tool arguments: %v", errMalformedOutput, err)
		}
		return args.SQLQuery, nil
	}
	return "", errMalformedOutput
}

func lastError(rec StepRecord) string {
	if len(rec.Errors) == 0 {
		return ""
	}
	return rec.Errors[len(rec.Errors)-1]
}
