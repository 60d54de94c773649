package analyst

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/dogukank/dbanalyst/internal/database"
)

// fakeModel scripts language-model behavior. respond receives the 1-based
// call number and the flattened prompt text of all messages.
type fakeModel struct {
	mu      sync.Mutex
	calls   int
	prompts []string
	respond func(call int, prompt string) (*llms.ContentResponse, error)
}

func (m *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	prompt := flattenMessages(messages)
	m.prompts = append(m.prompts, prompt)
	return m.respond(m.calls, prompt)
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := m.GenerateContent(ctx, []llms.MessageContent{
		{Role: llms.ChatMessageTypeHuman, Parts: []llms.ContentPart{llms.TextPart(prompt)}},
	}, options...)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

func (m *fakeModel) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *fakeModel) prompt(i int) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prompts[i]
}

func flattenMessages(messages []llms.MessageContent) string {
	var sb strings.Builder
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if t, ok := part.(llms.TextContent); ok {
				sb.WriteString(t.Text)
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

func textResponse(text string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: text}}}
}

func sqlToolResponse(t *testing.T, query string) *llms.ContentResponse {
	t.Helper()
	args, err := json.Marshal(map[string]string{"sql_query": query})
	if err != nil {
		t.Fatalf("marshaling tool args: %v", err)
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{
			ID:   "call_1",
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      "execute_sql",
				Arguments: string(args),
			},
		}},
	}}}
}

// fakeDB is a scripted QueryRunner that records every query it receives.
type fakeDB struct {
	mu      sync.Mutex
	rows    []database.Row
	err     error
	queries []string
}

func (d *fakeDB) Query(ctx context.Context, query string) ([]database.Row, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queries = append(d.queries, query)
	return d.rows, d.err
}

func (d *fakeDB) queryCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queries)
}

// newTestSession wires a session whose events land in a buffered channel
// big enough that producers never block in tests.
func newTestSession(model llms.Model, db QueryRunner, question string) (*session, chan Event) {
	a := New(model, db, "-- TABLE: chat_session (3 records)", Config{}, nil)
	events := make(chan Event, 128)
	s := &session{a: a, id: "test-session", question: question, events: events}
	return s, events
}

func drainEvents(events chan Event) []Event {
	close(events)
	var out []Event
	for ev := range events {
		out = append(out, ev)
	}
	return out
}

func collectStream(t *testing.T, stream <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range stream {
		out = append(out, ev)
	}
	return out
}
