package scenario

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is a recorded list of steps built by a Lua script.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one recorded DSL call.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile runs a Lua script that must return a Scenario.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)
	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)

	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{{Name: "new", Function: scenarioNew}}, 0)
	state.SetGlobal("Scenario")
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	state.PushUserData(&Scenario{Name: name})
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "entity_type", Function: namedTableStep("entity_type")},
	{Name: "concept", Function: namedTableStep("concept")},
	{Name: "bind", Function: tableStep("bind")},
	{Name: "relation", Function: namedTableStep("relation")},
	{Name: "constraint", Function: namedTableStep("constraint")},
	{Name: "remove_relation", Function: nameStep("remove_relation")},
	{Name: "remove_constraint", Function: nameStep("remove_constraint")},
	{Name: "radius", Function: scenarioRadius},
	{Name: "tile", Function: tableStep("tile")},
	{Name: "fill", Function: scenarioFill},
	{Name: "unit", Function: scenarioUnit},
	{Name: "move_unit", Function: scenarioMoveUnit},
	{Name: "set_value", Function: scenarioSetValue},
	{Name: "select", Function: scenarioSelect},
	{Name: "expect_reachable", Function: positionStep("expect_reachable")},
	{Name: "expect_unreachable", Function: positionStep("expect_unreachable")},
	{Name: "expect_blocked", Function: scenarioExpectBlocked},
	{Name: "expect_remaining", Function: scenarioExpectRemaining},
	{Name: "expect_valid_count", Function: countStep("expect_valid_count")},
	{Name: "expect_budget", Function: countStep("expect_budget")},
	{Name: "expect_auto_constraints", Function: countStep("expect_auto_constraints")},
	{Name: "expect_schema_valid", Function: scenarioExpectSchemaValid},
	{Name: "expect_schema_error", Function: scenarioExpectSchemaError},
	{Name: "expect_no_selection", Function: scenarioExpectNoSelection},
}

// tableStep records a step whose only argument is an options table.
func tableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		lua.CheckType(state, 2, lua.TypeTable)
		appendStep(scenario, kind, tableToMap(state, 2))
		return 0
	}
}

// namedTableStep is tableStep with a required name field.
func namedTableStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		lua.CheckType(state, 2, lua.TypeTable)
		data := tableToMap(state, 2)
		if name, _ := data["name"].(string); strings.TrimSpace(name) == "" {
			lua.Errorf(state, "%s name is required", strings.ReplaceAll(kind, "_", " "))
			return 0
		}
		appendStep(scenario, kind, data)
		return 0
	}
}

func nameStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		appendStep(scenario, kind, map[string]any{"name": lua.CheckString(state, 2)})
		return 0
	}
}

func positionStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		appendStep(scenario, kind, map[string]any{
			"q": lua.CheckInteger(state, 2),
			"r": lua.CheckInteger(state, 3),
		})
		return 0
	}
}

func countStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		appendStep(scenario, kind, map[string]any{"count": lua.CheckInteger(state, 2)})
		return 0
	}
}

func scenarioRadius(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "radius", map[string]any{"radius": lua.CheckInteger(state, 2)})
	return 0
}

func scenarioFill(state *lua.State) int {
	scenario := checkScenario(state)
	data := map[string]any{"type": lua.CheckString(state, 2)}
	if values := optionalTable(state, 3); len(values) > 0 {
		data["values"] = values
	}
	appendStep(scenario, "fill", data)
	return 0
}

func scenarioUnit(state *lua.State) int {
	scenario := checkScenario(state)
	lua.CheckType(state, 2, lua.TypeTable)
	data := tableToMap(state, 2)
	if id, _ := data["id"].(string); strings.TrimSpace(id) == "" {
		lua.Errorf(state, "unit id is required")
		return 0
	}
	appendStep(scenario, "unit", data)
	return 0
}

func scenarioMoveUnit(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "move_unit", map[string]any{
		"id": lua.CheckString(state, 2),
		"q":  lua.CheckInteger(state, 3),
		"r":  lua.CheckInteger(state, 4),
	})
	return 0
}

func scenarioSetValue(state *lua.State) int {
	scenario := checkScenario(state)
	id := lua.CheckString(state, 2)
	property := lua.CheckString(state, 3)
	lua.CheckAny(state, 4)
	appendStep(scenario, "set_value", map[string]any{
		"id":       id,
		"property": property,
		"value":    luaToGo(state, 4),
	})
	return 0
}

func scenarioSelect(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "select", map[string]any{"id": lua.OptString(state, 2, "")})
	return 0
}

func scenarioExpectBlocked(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "expect_blocked", map[string]any{
		"q":      lua.CheckInteger(state, 2),
		"r":      lua.CheckInteger(state, 3),
		"reason": lua.OptString(state, 4, ""),
	})
	return 0
}

func scenarioExpectRemaining(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "expect_remaining", map[string]any{
		"q":     lua.CheckInteger(state, 2),
		"r":     lua.CheckInteger(state, 3),
		"count": lua.CheckInteger(state, 4),
	})
	return 0
}

func scenarioExpectSchemaValid(state *lua.State) int {
	scenario := checkScenario(state)
	valid := true
	if !state.IsNoneOrNil(2) {
		valid = state.ToBoolean(2)
	}
	appendStep(scenario, "expect_schema_valid", map[string]any{"valid": valid})
	return 0
}

func scenarioExpectSchemaError(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "expect_schema_error", map[string]any{
		"kind":  lua.CheckString(state, 2),
		"count": lua.OptInteger(state, 3, -1),
	})
	return 0
}

func scenarioExpectNoSelection(state *lua.State) int {
	scenario := checkScenario(state)
	appendStep(scenario, "expect_no_selection", nil)
	return 0
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	if scenario, ok := ud.(*Scenario); ok && scenario != nil {
		return scenario
	}
	lua.ArgumentError(state, 1, "scenario expected")
	return nil
}

func appendStep(scenario *Scenario, kind string, data map[string]any) int {
	if scenario == nil {
		return -1
	}
	if data == nil {
		data = map[string]any{}
	}
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: data})
	return len(scenario.Steps) - 1
}

func optionalTable(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) || state.TypeOf(index) != lua.TypeTable {
		return map[string]any{}
	}
	return tableToMap(state, index)
}

func tableToMap(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = luaToGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func luaToGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return normalizeNumber(value)
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeTable:
		return tableToGo(state, index)
	default:
		return nil
	}
}

// tableToGo returns a slice for sequence tables and a map otherwise. An
// empty table is nil since it could stand for either.
func tableToGo(state *lua.State, index int) any {
	index = state.AbsIndex(index)
	isArray := true
	maxIndex := 0
	count := 0
	entries := 0
	state.PushNil()
	for state.Next(index) {
		entries++
		if isArray {
			if state.TypeOf(-2) != lua.TypeNumber {
				isArray = false
			} else if idx, ok := state.ToInteger(-2); ok && idx > 0 {
				count++
				maxIndex = max(maxIndex, idx)
			} else {
				isArray = false
			}
		}
		state.Pop(1)
	}

	if entries == 0 {
		return nil
	}
	if isArray && count > 0 && maxIndex == count {
		result := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			state.RawGetInt(index, i)
			result = append(result, luaToGo(state, -1))
			state.Pop(1)
		}
		return result
	}
	return tableToMap(state, index)
}

func normalizeNumber(value float64) any {
	if math.Mod(value, 1) == 0 {
		return int(value)
	}
	return value
}
