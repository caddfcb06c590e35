package scenario

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/louisbranch/boardrules/internal/bundle"
	"github.com/louisbranch/boardrules/internal/ontology/runtime"
)

// Config controls scenario execution.
type Config struct {
	Assertions AssertionMode
	Verbose    bool
	Logger     *log.Logger
	// FallbackBudget overrides the engine's default movement budget when
	// positive.
	FallbackBudget int
	// NewID allocates identifiers for declared and derived items. Nil uses
	// random identifiers.
	NewID func() (string, error)
}

// DefaultConfig returns default runner configuration.
func DefaultConfig() Config {
	return Config{
		Assertions: AssertionStrict,
		Verbose:    false,
	}
}

// Runner executes Lua scenarios against an in-process rules engine.
type Runner struct {
	assertions Assertions
	logger     *log.Logger
	verbose    bool
	fallback   int
	newID      func() (string, error)
}

// NewRunner prepares a scenario runner.
func NewRunner(cfg Config) *Runner {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stderr, "", 0)
	}
	return &Runner{
		assertions: Assertions{Mode: cfg.Assertions, Logger: logger},
		logger:     logger,
		verbose:    cfg.Verbose,
		fallback:   cfg.FallbackBudget,
		newID:      cfg.NewID,
	}
}

// RunFile loads and executes a scenario file.
func RunFile(ctx context.Context, cfg Config, path string) error {
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return err
	}
	return NewRunner(cfg).RunScenario(ctx, scenario)
}

// RunScenario executes the scenario steps against a fresh world.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return errors.New("scenario is required")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))

	var opts []bundle.BuilderOption
	if r.newID != nil {
		opts = append(opts, bundle.WithIDGenerator(r.newID))
	}
	builder := bundle.NewBuilder(opts...)
	engine, err := runtime.New(builder.Ontology(), builder.Types(), runtime.Options{
		Logger:         r.logger,
		NewID:          r.newID,
		FallbackBudget: r.fallback,
	})
	if err != nil {
		return fmt.Errorf("create engine: %w", err)
	}
	state := &scenarioState{builder: builder, engine: engine}

	for index, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		stepNumber := index + 1
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)
		stepStart := time.Now()
		if err := r.runStep(ctx, state, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func (r *Runner) logf(format string, args ...any) {
	if !r.verbose || r.logger == nil {
		return
	}
	r.logger.Printf(format, args...)
}

func (r *Runner) failf(format string, args ...any) error {
	return r.assertions.Failf(format, args...)
}

func (r *Runner) assertf(format string, args ...any) error {
	return r.assertions.Assertf(format, args...)
}
