// Package analyst implements the plan / execute / synthesize pipeline that
// answers natural-language questions about a relational dataset. A run
// decomposes the question into data-retrieval steps, executes each step as
// a generated, validated read-only SQL query with bounded self-correcting
// retry, and synthesizes a final answer from the accumulated results. The
// whole run is observable as a single ordered stream of progress events.
package analyst

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/tmc/langchaingo/llms"

	"github.com/dogukank/dbanalyst/internal/database"
)

const (
	// DefaultMaxRetries bounds the generate-validate-execute attempts per
	// plan step.
	DefaultMaxRetries = 3
	// DefaultMaxPlanSteps caps how far the planner may decompose a question.
	DefaultMaxPlanSteps = 5
)

// QueryRunner executes one read-only query against the target data store.
// *database.DB is the production implementation.
type QueryRunner interface {
	Query(ctx context.Context, query string) ([]database.Row, error)
}

// Config carries the per-analyst tunables. Zero values fall back to the
// documented defaults.
type Config struct {
	MaxRetries   int
	MaxPlanSteps int
}

// Analyst answers questions about one database. It is safe for concurrent
// use; every Run is an independent session sharing only the model client
// and the database pool.
type Analyst struct {
	model  llms.Model
	db     QueryRunner
	schema string
	cfg    Config
	log    *slog.Logger
}

// New builds an Analyst. schema is the introspected schema text injected
// verbatim into every prompt; it is snapshotted once and immutable for the
// analyst's lifetime.
func New(model llms.Model, db QueryRunner, schema string, cfg Config, log *slog.Logger) *Analyst {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxPlanSteps <= 0 {
		cfg.MaxPlanSteps = DefaultMaxPlanSteps
	}
	if log == nil {
		log = slog.Default()
	}
	return &Analyst{model: model, db: db, schema: schema, cfg: cfg, log: log}
}

// session is the state of one Run: one question, one plan, one event stream.
type session struct {
	a        *Analyst
	id       string
	question string
	events   chan<- Event
}

// Run starts one analysis session and returns its lazy event stream. The
// stream is deduplicated by content tuple and always terminates with a
// final_result or error event, after which the channel closes. Canceling
// ctx stops the run between steps and model calls.
func (a *Analyst) Run(ctx context.Context, question string) <-chan Event {
	raw := make(chan Event)
	s := &session{
		a:        a,
		id:       uuid.NewString(),
		question: question,
		events:   raw,
	}

	go func() {
		defer close(raw)
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("analysis panicked", "session", s.id, "panic", r)
				s.emit(ctx, newEvent(EventError, fmt.Sprintf("internal error during analysis: %v", r)))
			}
		}()
		s.run(ctx)
	}()

	return Dedupe(ctx, raw)
}

func (s *session) run(ctx context.Context) {
	if strings.TrimSpace(s.question) == "" {
		s.emit(ctx, newEvent(EventError, "question must not be empty"))
		return
	}

	s.a.log.Info("starting analysis", "session", s.id, "question", s.question)

	plan := s.plan(ctx)
	s.emit(ctx, newEvent(EventPlan, plan))

	executed := s.executePlan(ctx, plan)
	if ctx.Err() != nil {
		return
	}

	answer, err := s.synthesize(ctx, executed)
	if err != nil {
		s.a.log.Error("synthesis failed", "session", s.id, "error", err)
		s.emit(ctx, newEvent(EventError, fmt.Sprintf("failed to synthesize the final answer: %v", err)))
		return
	}

	s.a.log.Info("analysis finished", "session", s.id, "executed_steps", len(executed))
	s.emit(ctx, newEvent(EventFinalResult, answer))
}

// emit forwards one event, giving up when the session is canceled so an
// abandoned stream never wedges the producing goroutine.
func (s *session) emit(ctx context.Context, ev Event) {
	select {
	case s.events <- ev:
	case <-ctx.Done():
	}
}
