package scenario

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"testing"

	apperrors "github.com/louisbranch/boardrules/internal/platform/errors"
)

const skirmishScript = `
local scene = Scenario.new("skirmish")
scene:radius(3)

scene:entity_type({name = "Infantry", role = "token", properties = {{name = "movement_points", kind = "int", default = 3}}})
scene:entity_type({name = "Plains", role = "board_position", properties = {{name = "move_cost", kind = "int", default = 1}}})
scene:entity_type({name = "Forest", role = "board_position", properties = {{name = "move_cost", kind = "int", default = 2}}})
scene:entity_type({name = "Water", role = "tile"})

scene:concept({name = "Motion", roles = {
  {name = "mover", allowed = {"token"}},
  {name = "terrain", allowed = {"board_position"}},
}})
scene:bind({entity_type = "Infantry", concept = "Motion", role = "mover", properties = {{property = "movement_points", as = "budget"}}})
scene:bind({entity_type = "Plains", concept = "Motion", role = "terrain", properties = {{property = "move_cost", as = "cost"}}})
scene:bind({entity_type = "Forest", concept = "Motion", role = "terrain", properties = {{property = "move_cost", as = "cost"}}})
scene:bind({entity_type = "Water", concept = "Motion", role = "terrain"})

scene:relation({name = "Terrain cost", concept = "Motion", subject = "mover", object = "terrain", trigger = "on_enter",
  effect = {modify = {target = "budget", source = "cost", operation = "subtract"}}})
scene:relation({name = "No swimming", concept = "Motion", subject = "mover", object = "terrain", trigger = "on_enter",
  effect = {block = {condition = {is_type = {role = "terrain", type = "Water"}}}}})

scene:fill("Plains")
scene:tile({at = {q = 1, r = 0}, type = "Forest"})
scene:tile({at = {q = -1, r = 0}, type = "Water"})
scene:unit({id = "scout", type = "Infantry", values = {movement_points = 2}})

scene:expect_no_selection()
scene:select("scout")
scene:expect_schema_valid()
scene:expect_auto_constraints(1)
scene:expect_budget(2)
scene:expect_reachable(1, 0)
scene:expect_remaining(1, 0, 0)
scene:expect_blocked(-1, 0, "No swimming")
scene:expect_unreachable(2, 0)
scene:expect_valid_count(15)

scene:set_value("scout", "movement_points", 1)
scene:expect_unreachable(1, 0)
scene:expect_blocked(1, 0, "needs 2")
scene:expect_valid_count(4)

scene:remove_relation("Terrain cost")
scene:expect_auto_constraints(0)

scene:bind({entity_type = "Knight", concept = "Motion", role = "mover"})
scene:expect_schema_valid(false)
scene:expect_schema_error("dangling_reference", 1)
return scene
`

func sequentialIDs() func() (string, error) {
	next := 0
	return func() (string, error) {
		next++
		return fmt.Sprintf("id-%d", next), nil
	}
}

func TestRunFileSkirmish(t *testing.T) {
	path := writeScenarioFixture(t, skirmishScript)
	var logs bytes.Buffer
	cfg := DefaultConfig()
	cfg.Logger = log.New(&logs, "", 0)
	cfg.Verbose = true
	cfg.NewID = sequentialIDs()

	if err := RunFile(context.Background(), cfg, path); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if !strings.Contains(logs.String(), "scenario done: skirmish") {
		t.Fatalf("logs = %q, want scenario done line", logs.String())
	}
}

func TestRunScenarioStrictFailure(t *testing.T) {
	path := writeScenarioFixture(t, `
local scene = Scenario.new("strict")
scene:radius(1)
scene:entity_type({name = "Pawn", role = "token"})
scene:unit({id = "p", type = "Pawn"})
scene:select("p")
scene:expect_valid_count(2)
return scene
`)
	cfg := DefaultConfig()
	cfg.Logger = log.New(&bytes.Buffer{}, "", 0)

	err := RunFile(context.Background(), cfg, path)
	if apperrors.CodeOf(err) != apperrors.CodeScenarioAssertionFailed {
		t.Fatalf("code = %q, want %q (err %v)", apperrors.CodeOf(err), apperrors.CodeScenarioAssertionFailed, err)
	}
	if !strings.Contains(err.Error(), "valid destinations = 6, want 2") {
		t.Fatalf("err = %v, want destination count message", err)
	}
}

func TestRunScenarioLogOnly(t *testing.T) {
	path := writeScenarioFixture(t, `
local scene = Scenario.new("log")
scene:radius(1)
scene:entity_type({name = "Pawn", role = "token"})
scene:unit({id = "p", type = "Pawn"})
scene:select("p")
scene:expect_valid_count(2)
scene:expect_unreachable(0, 1)
return scene
`)
	var logs bytes.Buffer
	cfg := DefaultConfig()
	cfg.Assertions = AssertionLogOnly
	cfg.Logger = log.New(&logs, "", 0)

	if err := RunFile(context.Background(), cfg, path); err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	if got := strings.Count(logs.String(), "expectation failed"); got != 2 {
		t.Fatalf("logged failures = %d, want 2: %q", got, logs.String())
	}
}

func TestRunScenarioRequiresSelectionForMoves(t *testing.T) {
	scenario := &Scenario{Name: "x", Steps: []Step{{Kind: "expect_valid_count", Args: map[string]any{"count": 0}}}}
	cfg := DefaultConfig()
	cfg.Assertions = AssertionLogOnly

	err := NewRunner(cfg).RunScenario(context.Background(), scenario)
	if err == nil || !strings.Contains(err.Error(), "no unit is selected") {
		t.Fatalf("err = %v, want selection error", err)
	}
}

func TestRunScenarioUnknownStep(t *testing.T) {
	scenario := &Scenario{Name: "x", Steps: []Step{{Kind: "teleport"}}}

	err := NewRunner(DefaultConfig()).RunScenario(context.Background(), scenario)
	if apperrors.CodeOf(err) != apperrors.CodeScenarioUnknownStep {
		t.Fatalf("code = %q, want %q", apperrors.CodeOf(err), apperrors.CodeScenarioUnknownStep)
	}
}

func TestRunScenarioRemoveUndeclared(t *testing.T) {
	scenario := &Scenario{Name: "x", Steps: []Step{{Kind: "remove_constraint", Args: map[string]any{"name": "Nope"}}}}

	if err := NewRunner(DefaultConfig()).RunScenario(context.Background(), scenario); err == nil {
		t.Fatal("expected error removing an undeclared constraint")
	}
}

func TestRunScenarioNil(t *testing.T) {
	if err := NewRunner(DefaultConfig()).RunScenario(context.Background(), nil); err == nil {
		t.Fatal("expected error for nil scenario")
	}
}
