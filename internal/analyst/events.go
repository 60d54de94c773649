package analyst

import (
	"context"
	"encoding/json"
	"fmt"
)

// EventType categorizes a progress event.
type EventType string

const (
	EventPlan        EventType = "plan"
	EventStepStart   EventType = "step_start"
	EventSQLQuery    EventType = "sql_query"
	EventToolResult  EventType = "tool_result"
	EventToolError   EventType = "tool_error"
	EventError       EventType = "error"
	EventInfo        EventType = "info"
	EventFinalResult EventType = "final_result"
)

// Event is one immutable unit of the observable output stream. Step is set
// only for events tied to a specific plan position.
type Event struct {
	Type    EventType `json:"type"`
	Content any       `json:"content"`
	Step    *int      `json:"step,omitempty"`
}

func newEvent(t EventType, content any) Event {
	return Event{Type: t, Content: content}
}

func newStepEvent(t EventType, step int, content any) Event {
	return Event{Type: t, Content: content, Step: &step}
}

// dedupeKey identifies an event by its content tuple (type, step, content)
// so replayed events can be recognized.
func (e Event) dedupeKey() string {
	content, err := json.Marshal(e.Content)
	if err != nil {
		content = []byte(fmt.Sprintf("%v", e.Content))
	}
	step := -1
	if e.Step != nil {
		step = *e.Step
	}
	return fmt.Sprintf("%s|%d|%s", e.Type, step, content)
}

// Dedupe decorates an event stream, dropping events whose content tuple was
// already forwarded within this run. A client reconnecting to the same
// stream never sees a repeated plan, log line or final result.
func Dedupe(ctx context.Context, in <-chan Event) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		seen := make(map[string]struct{})
		for ev := range in {
			key := ev.dedupeKey()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
