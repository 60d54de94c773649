package analyst

import (
	"bytes"
	"encoding/json"

	"github.com/dogukank/dbanalyst/internal/database"
)

// StepContext accumulates the result rows of completed plan steps, keyed by
// step position ("step_1_result", ...). It is append-only: an entry is
// written once when its step succeeds and never mutated afterwards. Later
// steps read the whole context as JSON inside their prompts.
type StepContext struct {
	keys []string
	data map[string][]database.Row
}

func NewStepContext() *StepContext {
	return &StepContext{data: make(map[string][]database.Row)}
}

// Add records rows under key. A key that is already present is left
// untouched; entries are write-once.
func (c *StepContext) Add(key string, rows []database.Row) {
	if _, exists := c.data[key]; exists {
		return
	}
	c.keys = append(c.keys, key)
	c.data[key] = rows
}

func (c *StepContext) Len() int {
	return len(c.keys)
}

// Keys returns the step keys in insertion order.
func (c *StepContext) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

func (c *StepContext) Rows(key string) ([]database.Row, bool) {
	rows, ok := c.data[key]
	return rows, ok
}

// MarshalJSON renders the context as a JSON object whose members appear in
// insertion order, so prompts always present earlier steps first.
func (c *StepContext) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(c.data[key])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
