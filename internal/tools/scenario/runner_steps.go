package scenario

import (
	"context"
	"fmt"
	"strings"

	"github.com/louisbranch/boardrules/internal/bundle"
	"github.com/louisbranch/boardrules/internal/ontology/runtime"
	"github.com/louisbranch/boardrules/internal/ontology/schema"
	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
)

type scenarioState struct {
	builder *bundle.Builder
	engine  *runtime.Engine
	// boardDirty is set by board edits, which no registry version tracks.
	boardDirty bool
}

func (r *Runner) runStep(ctx context.Context, state *scenarioState, step Step) error {
	switch step.Kind {
	case "entity_type":
		return declare(step.Args, state.builder.EntityType)
	case "concept":
		return declare(step.Args, state.builder.Concept)
	case "bind":
		return declare(step.Args, state.builder.Bind)
	case "relation":
		return declare(step.Args, state.builder.Relation)
	case "constraint":
		return declare(step.Args, state.builder.Constraint)
	case "remove_relation":
		return r.runRemove(step.Args, "relation", state.builder.RemoveRelation)
	case "remove_constraint":
		return r.runRemove(step.Args, "constraint", state.builder.RemoveConstraint)
	case "radius":
		return state.builder.SetRadius(readInt(step.Args, "radius", 0))
	case "tile":
		return r.runTile(state, step.Args)
	case "fill":
		state.boardDirty = true
		return state.builder.Fill(readString(step.Args, "type"), readMap(step.Args, "values"))
	case "unit":
		var doc bundle.UnitDoc
		if err := bundle.Remarshal(step.Args, &doc); err != nil {
			return err
		}
		state.boardDirty = true
		return state.builder.Unit(doc)
	case "move_unit":
		state.boardDirty = true
		return state.builder.MoveUnit(readString(step.Args, "id"), readPosition(step.Args))
	case "set_value":
		state.boardDirty = true
		return state.builder.SetUnitValue(readString(step.Args, "id"), readString(step.Args, "property"), step.Args["value"])
	case "select":
		state.builder.Select(readString(step.Args, "id"))
		return nil
	case "expect_reachable":
		return r.runExpectReachable(ctx, state, step.Args, true)
	case "expect_unreachable":
		return r.runExpectReachable(ctx, state, step.Args, false)
	case "expect_blocked":
		return r.runExpectBlocked(ctx, state, step.Args)
	case "expect_remaining":
		return r.runExpectRemaining(ctx, state, step.Args)
	case "expect_valid_count":
		return r.runExpectValidCount(ctx, state, step.Args)
	case "expect_budget":
		return r.runExpectBudget(ctx, state, step.Args)
	case "expect_auto_constraints":
		return r.runExpectAutoConstraints(ctx, state, step.Args)
	case "expect_schema_valid":
		return r.runExpectSchemaValid(ctx, state, step.Args)
	case "expect_schema_error":
		return r.runExpectSchemaError(ctx, state, step.Args)
	case "expect_no_selection":
		return r.runExpectNoSelection(ctx, state)
	default:
		return apperrors.WithMetadata(apperrors.CodeScenarioUnknownStep,
			fmt.Sprintf("unknown step kind %q", step.Kind),
			map[string]string{"kind": step.Kind})
	}
}

// declare decodes args into a document type and hands it to the builder.
func declare[D any](args map[string]any, apply func(D) (string, error)) error {
	var doc D
	if err := bundle.Remarshal(args, &doc); err != nil {
		return err
	}
	_, err := apply(doc)
	return err
}

func (r *Runner) runRemove(args map[string]any, kind string, remove func(string) bool) error {
	name := readString(args, "name")
	if !remove(name) {
		return r.failf("%s %q is not declared", kind, name)
	}
	return nil
}

func (r *Runner) runTile(state *scenarioState, args map[string]any) error {
	var doc bundle.TileDoc
	if err := bundle.Remarshal(args, &doc); err != nil {
		return err
	}
	state.boardDirty = true
	if doc.At == nil {
		return state.builder.Fill(doc.Type, doc.Values)
	}
	return state.builder.Tile(*doc.At, doc.Type, doc.Values)
}

// tick runs one engine pass over the current world.
func (r *Runner) tick(ctx context.Context, state *scenarioState) (runtime.Tick, error) {
	if state.boardDirty {
		state.engine.Invalidate()
		state.boardDirty = false
	}
	out, err := state.engine.Tick(ctx, state.builder.Board(), state.builder.Selection())
	if err != nil {
		return out, err
	}
	if out.AutogenRan && out.Autogen.Changed() {
		r.logf("derived constraints: %+v", out.Autogen)
	}
	return out, nil
}

// moves ticks and requires a selected unit.
func (r *Runner) moves(ctx context.Context, state *scenarioState) (runtime.Tick, error) {
	out, err := r.tick(ctx, state)
	if err != nil {
		return out, err
	}
	if !out.Selected {
		return out, r.failf("no unit is selected")
	}
	return out, nil
}

func (r *Runner) runExpectReachable(ctx context.Context, state *scenarioState, args map[string]any, want bool) error {
	out, err := r.moves(ctx, state)
	if err != nil {
		return err
	}
	pos := readPosition(args)
	if got := out.Moves.IsValid(pos); got != want {
		if want {
			return r.assertf("%s is not reachable: %s", pos, strings.Join(out.Moves.Reasons(pos), "; "))
		}
		return r.assertf("%s is reachable with %d remaining", pos, out.Moves.Valid[pos])
	}
	return nil
}

func (r *Runner) runExpectBlocked(ctx context.Context, state *scenarioState, args map[string]any) error {
	out, err := r.moves(ctx, state)
	if err != nil {
		return err
	}
	pos := readPosition(args)
	reasons := out.Moves.Reasons(pos)
	if len(reasons) == 0 {
		return r.assertf("%s has no blocked reasons", pos)
	}
	want := readString(args, "reason")
	if want == "" {
		return nil
	}
	for _, reason := range reasons {
		if strings.Contains(reason, want) {
			return nil
		}
	}
	return r.assertf("%s reasons %q do not mention %q", pos, reasons, want)
}

func (r *Runner) runExpectRemaining(ctx context.Context, state *scenarioState, args map[string]any) error {
	out, err := r.moves(ctx, state)
	if err != nil {
		return err
	}
	pos := readPosition(args)
	want := readInt(args, "count", 0)
	got, ok := out.Moves.Valid[pos]
	if !ok {
		return r.assertf("%s is not reachable", pos)
	}
	if got != want {
		return r.assertf("%s remaining = %d, want %d", pos, got, want)
	}
	return nil
}

func (r *Runner) runExpectValidCount(ctx context.Context, state *scenarioState, args map[string]any) error {
	out, err := r.moves(ctx, state)
	if err != nil {
		return err
	}
	want := readInt(args, "count", 0)
	if got := len(out.Moves.Valid); got != want {
		return r.assertf("valid destinations = %d, want %d", got, want)
	}
	return nil
}

func (r *Runner) runExpectBudget(ctx context.Context, state *scenarioState, args map[string]any) error {
	out, err := r.moves(ctx, state)
	if err != nil {
		return err
	}
	want := readInt(args, "count", 0)
	if out.Moves.Budget != want {
		return r.assertf("budget = %d (%s), want %d", out.Moves.Budget, out.Moves.BudgetSource, want)
	}
	return nil
}

func (r *Runner) runExpectAutoConstraints(ctx context.Context, state *scenarioState, args map[string]any) error {
	if _, err := r.tick(ctx, state); err != nil {
		return err
	}
	got := 0
	for _, c := range state.builder.Ontology().Constraints.List() {
		if c.AutoGenerated {
			got++
		}
	}
	if want := readInt(args, "count", 0); got != want {
		return r.assertf("derived constraints = %d, want %d", got, want)
	}
	return nil
}

func (r *Runner) runExpectSchemaValid(ctx context.Context, state *scenarioState, args map[string]any) error {
	out, err := r.tick(ctx, state)
	if err != nil {
		return err
	}
	want := readBool(args, "valid", true)
	if out.Validation.IsValid != want {
		return r.assertf("schema valid = %t, want %t: %s", out.Validation.IsValid, want, describeErrors(out.Validation))
	}
	return nil
}

func (r *Runner) runExpectSchemaError(ctx context.Context, state *scenarioState, args map[string]any) error {
	out, err := r.tick(ctx, state)
	if err != nil {
		return err
	}
	kind := schema.ErrorKind(readString(args, "kind"))
	got := out.Validation.Count(kind)
	want := readInt(args, "count", -1)
	if want < 0 {
		if got == 0 {
			return r.assertf("no %s error: %s", kind, describeErrors(out.Validation))
		}
		return nil
	}
	if got != want {
		return r.assertf("%s errors = %d, want %d: %s", kind, got, want, describeErrors(out.Validation))
	}
	return nil
}

func (r *Runner) runExpectNoSelection(ctx context.Context, state *scenarioState) error {
	out, err := r.tick(ctx, state)
	if err != nil {
		return err
	}
	if out.Selected {
		return r.assertf("unit %s is selected", out.Moves.EntityID)
	}
	return nil
}

func describeErrors(v schema.Validation) string {
	if len(v.Errors) == 0 {
		return "no errors"
	}
	parts := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		parts = append(parts, e.String())
	}
	return strings.Join(parts, "; ")
}
