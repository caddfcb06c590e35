// Package runtime drives the rules engine once per tick in a fixed order:
// derived constraints are synced first, the schema is validated against the
// synced constraints, and the selected unit's moves are computed last.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/ontology"
	"github.com/louisbranch/boardrules/internal/ontology/autogen"
	"github.com/louisbranch/boardrules/internal/ontology/movement"
	"github.com/louisbranch/boardrules/internal/ontology/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Options configures an Engine. Zero values use the global OpenTelemetry
// providers and a discarding logger.
type Options struct {
	Logger         *log.Logger
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
	// NewID allocates derived constraint identifiers.
	NewID func() (string, error)
	// FallbackBudget overrides movement.DefaultBudget when positive.
	FallbackBudget int
}

// Engine owns the reactive state of the three rule stages.
type Engine struct {
	ontology *ontology.Registry
	types    *entity.TypeRegistry
	logger   *log.Logger
	tracer   trace.Tracer
	metrics  *Metrics
	fallback int

	generator autogen.Generator
	validator schema.Validator
	evaluator movement.Evaluator
}

// Tick is the outcome of one pass. The Ran flags report which stages did
// work; skipped stages carry their previous output.
type Tick struct {
	Autogen     autogen.Report
	AutogenRan  bool
	Validation  schema.Validation
	ValidateRan bool
	Moves       movement.ValidMoveSet
	Selected    bool
	MovesRan    bool
}

// New builds an engine over the given registries.
func New(reg *ontology.Registry, types *entity.TypeRegistry, opts Options) (*Engine, error) {
	if reg == nil {
		return nil, errors.New("ontology registry is required")
	}
	if types == nil {
		return nil, errors.New("type registry is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	mp := opts.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	metrics, err := NewMetrics(mp)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	return &Engine{
		ontology:  reg,
		types:     types,
		logger:    logger,
		tracer:    tp.Tracer(instrumentationName),
		metrics:   metrics,
		fallback:  opts.FallbackBudget,
		generator: autogen.Generator{NewID: opts.NewID},
	}, nil
}

// Ontology returns the registry the engine reads and writes.
func (e *Engine) Ontology() *ontology.Registry { return e.ontology }

// Types returns the entity type registry the engine reads.
func (e *Engine) Types() *entity.TypeRegistry { return e.types }

// Invalidate forces every stage to run on the next tick. Use it after board
// content edits, which do not move any registry version.
func (e *Engine) Invalidate() {
	e.generator.Invalidate()
	e.validator.Invalidate()
	e.evaluator.Invalidate()
}

// Tick runs the stages against the current registries, board and
// selection. Only derived constraint allocation can fail.
func (e *Engine) Tick(ctx context.Context, board movement.Board, selection string) (Tick, error) {
	var out Tick

	report, ran, err := e.syncConstraints(ctx)
	if err != nil {
		return out, err
	}
	out.Autogen, out.AutogenRan = report, ran

	out.Validation, out.ValidateRan = e.validate(ctx)
	out.Moves, out.Selected, out.MovesRan = e.computeMoves(ctx, board, selection)
	return out, nil
}

func (e *Engine) syncConstraints(ctx context.Context) (autogen.Report, bool, error) {
	ctx, span := e.tracer.Start(ctx, "rules.autogen")
	defer span.End()

	report, ran, err := e.generator.Update(e.ontology)
	span.SetAttributes(attribute.Bool("rules.ran", ran))
	if err != nil {
		span.RecordError(err)
		return report, ran, fmt.Errorf("sync derived constraints: %w", err)
	}
	if !ran {
		return report, false, nil
	}
	e.metrics.Passes.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "autogen")))
	for change, n := range map[string]int{
		"inserted":  report.Inserted,
		"updated":   report.Updated,
		"retracted": report.Retracted,
	} {
		if n > 0 {
			e.metrics.ConstraintChanges.Add(ctx, int64(n), metric.WithAttributes(attribute.String("change", change)))
		}
	}
	if report.Changed() {
		e.logger.Printf("derived constraints: %d inserted, %d updated, %d retracted", report.Inserted, report.Updated, report.Retracted)
	}
	return report, true, nil
}

func (e *Engine) validate(ctx context.Context) (schema.Validation, bool) {
	ctx, span := e.tracer.Start(ctx, "rules.validate")
	defer span.End()

	result, ran := e.validator.Validate(e.ontology, e.types)
	span.SetAttributes(
		attribute.Bool("rules.ran", ran),
		attribute.Int("rules.schema.errors", len(result.Errors)),
	)
	if !ran {
		return result, false
	}
	e.metrics.Passes.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "validate")))
	for _, finding := range result.Errors {
		e.metrics.SchemaErrors.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(finding.Kind))))
	}
	if !result.IsValid {
		e.logger.Printf("schema has %d problem(s)", len(result.Errors))
	}
	return result, true
}

func (e *Engine) computeMoves(ctx context.Context, board movement.Board, selection string) (movement.ValidMoveSet, bool, bool) {
	ctx, span := e.tracer.Start(ctx, "rules.moves", trace.WithAttributes(attribute.String("rules.selection", selection)))
	defer span.End()

	ran := e.evaluator.Update(movement.Input{
		Selection:      selection,
		Ontology:       e.ontology,
		Types:          e.types,
		Board:          board,
		FallbackBudget: e.fallback,
	})
	set, selected := e.evaluator.Result()
	span.SetAttributes(
		attribute.Bool("rules.ran", ran),
		attribute.Int("rules.moves.valid", len(set.Valid)),
		attribute.Int("rules.moves.blocked", len(set.Blocked)),
	)
	if ran {
		e.metrics.Passes.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", "moves")))
		if selected {
			e.metrics.Destinations.Record(ctx, int64(len(set.Valid)))
		}
	}
	return set, selected, ran
}
