package analyst

import (
	"context"
	"fmt"
)

// executePlan runs the plan's steps strictly in order, accumulating each
// success into the shared step context. A step that exhausts its retry
// budget aborts the remainder of the plan: later steps may assume its
// output, so attempting them would only waste model calls. The returned
// records cover the steps that produced data, in plan order.
func (s *session) executePlan(ctx context.Context, plan []string) []StepRecord {
	var executed []StepRecord
	stepCtx := NewStepContext()

	for i, step := range plan {
		if ctx.Err() != nil {
			return executed
		}
		s.emit(ctx, newStepEvent(EventStepStart, i, step))

		rec := s.runStep(ctx, i, step, stepCtx)
		if ctx.Err() != nil {
			return executed
		}
		if !rec.OK {
			s.a.log.Warn("step exhausted its retry budget, abandoning remaining steps",
				"session", s.id, "step", i+1, "of", len(plan))
			s.emit(ctx, newEvent(EventError,
				fmt.Sprintf("Step %d failed after %d attempts. Analysis stopped.", i+1, s.a.cfg.MaxRetries)))
			break
		}
		executed = append(executed, rec)
	}

	s.emit(ctx, newEvent(EventInfo, "Synthesizing final results..."))
	return executed
}
