package movement

import (
	"maps"
	"math"
	"slices"
	"strings"
	"testing"

	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/hexgrid"
	"github.com/louisbranch/boardrules/internal/ontology"
)

type world struct {
	types *entity.TypeRegistry
	reg   *ontology.Registry
	board Board
}

func newWorld(t *testing.T, radius int) *world {
	t.Helper()
	w := &world{
		types: entity.NewTypeRegistry(),
		reg:   ontology.NewRegistry(),
		board: Board{Radius: radius, Tiles: map[hexgrid.Position]entity.Data{}, Units: map[string]Unit{}},
	}
	w.mustRegister(t, entity.Type{ID: "infantry", Name: "Infantry", Role: entity.RoleToken, Properties: []entity.PropertyDefinition{{ID: "mp", Default: entity.Int(2)}}})
	w.mustRegister(t, entity.Type{ID: "plains", Name: "Plains", Role: entity.RoleBoardPosition, Properties: []entity.PropertyDefinition{{ID: "cost", Default: entity.Int(1)}}})
	w.mustRegister(t, entity.Type{ID: "forest", Name: "Forest", Role: entity.RoleBoardPosition, Properties: []entity.PropertyDefinition{{ID: "cost", Default: entity.Int(3)}}})
	w.mustRegister(t, entity.Type{ID: "water", Name: "Water", Role: entity.RoleBoardPosition})
	return w
}

func (w *world) mustRegister(t *testing.T, typ entity.Type) {
	t.Helper()
	if err := w.types.Register(typ); err != nil {
		t.Fatalf("register %s: %v", typ.ID, err)
	}
}

// wireMotion binds infantry as mover and every terrain type as terrain with
// a subtract-cost relation.
func (w *world) wireMotion(t *testing.T) {
	t.Helper()
	must(t, w.reg.PutConcept(ontology.Concept{
		ID: "motion", Name: "Motion",
		Roles: []ontology.ConceptRole{
			{ID: "mover", Name: "mover", AllowedRoles: []entity.Role{entity.RoleToken}},
			{ID: "terrain", Name: "terrain", AllowedRoles: []entity.Role{entity.RoleBoardPosition}},
		},
	}))
	must(t, w.reg.PutBinding(ontology.ConceptBinding{
		ID: "b-infantry", EntityTypeID: "infantry", ConceptID: "motion", RoleID: "mover",
		Properties: []ontology.PropertyBinding{{PropertyID: "mp", LocalName: "budget"}},
	}))
	for _, typeID := range []string{"plains", "forest", "water"} {
		must(t, w.reg.PutBinding(ontology.ConceptBinding{
			ID: "b-" + typeID, EntityTypeID: typeID, ConceptID: "motion", RoleID: "terrain",
			Properties: []ontology.PropertyBinding{{PropertyID: "cost", LocalName: "cost"}},
		}))
	}
	must(t, w.reg.PutRelation(ontology.Relation{
		ID: "r-cost", Name: "Terrain cost", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
		Trigger: ontology.TriggerOnEnter,
		Effect:  ontology.ModifyProperty{TargetProperty: "budget", SourceProperty: "cost", Operation: ontology.OpSubtract},
	}))
}

func (w *world) fill(typeID string) {
	typ, _ := w.types.Get(typeID)
	for _, pos := range hexgrid.Within(w.board.Radius) {
		w.board.Tiles[pos] = entity.NewData(typ)
	}
}

func (w *world) tile(pos hexgrid.Position, typeID string) {
	typ, _ := w.types.Get(typeID)
	w.board.Tiles[pos] = entity.NewData(typ)
}

func (w *world) unit(id string, pos hexgrid.Position, mp entity.Value) {
	typ, _ := w.types.Get("infantry")
	data := entity.NewData(typ)
	data.Set("mp", mp)
	w.board.Units[id] = Unit{ID: id, Position: pos, Data: data}
}

func (w *world) input(selection string) Input {
	return Input{Selection: selection, Ontology: w.reg, Types: w.types, Board: w.board}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertDisjoint(t *testing.T, set ValidMoveSet) {
	t.Helper()
	for pos := range set.Valid {
		if _, ok := set.Blocked[pos]; ok {
			t.Fatalf("%s is both valid and blocked", pos)
		}
	}
	for pos, reasons := range set.Blocked {
		if len(reasons) == 0 {
			t.Fatalf("%s blocked without explanation", pos)
		}
	}
}

func TestComputeWithoutSelection(t *testing.T) {
	w := newWorld(t, 2)
	w.unit("u1", hexgrid.Origin, entity.Int(2))
	if _, ok := Compute(w.input("")); ok {
		t.Fatal("empty selection should clear the result")
	}
	if _, ok := Compute(w.input("missing")); ok {
		t.Fatal("unknown unit should clear the result")
	}
}

func TestComputeFreeMovement(t *testing.T) {
	for _, radius := range []int{0, 1, 3, 5} {
		w := newWorld(t, radius)
		w.unit("u1", hexgrid.Origin, entity.Int(0))
		set, ok := Compute(w.input("u1"))
		if !ok {
			t.Fatalf("radius %d: no result", radius)
		}
		if want := 3 * radius * (radius + 1); len(set.Valid) != want {
			t.Fatalf("radius %d: valid = %d, want %d", radius, len(set.Valid), want)
		}
		if set.IsValid(hexgrid.Origin) || len(set.Blocked) != 0 || set.BudgetSource != BudgetUnlimited {
			t.Fatalf("radius %d: unexpected set %+v", radius, set)
		}
	}
}

func TestComputeBudgetLimitsReach(t *testing.T) {
	w := newWorld(t, 4)
	w.wireMotion(t)
	w.fill("plains")
	w.unit("u1", hexgrid.Origin, entity.Int(2))

	set, ok := Compute(w.input("u1"))
	if !ok {
		t.Fatal("expected a result")
	}
	if set.Budget != 2 || set.BudgetSource != BudgetFromRelation || set.BudgetName != "budget" {
		t.Fatalf("budget = %d (%s, %s)", set.Budget, set.BudgetSource, set.BudgetName)
	}
	for _, pos := range hexgrid.Within(4) {
		dist := hexgrid.Distance(pos, hexgrid.Origin)
		remaining, valid := set.Valid[pos]
		switch {
		case dist == 0:
			if valid {
				t.Fatal("origin must not be a destination")
			}
		case dist <= 2:
			if !valid || remaining != 2-dist {
				t.Fatalf("%s: valid=%v remaining=%d, want remaining %d", pos, valid, remaining, 2-dist)
			}
		default:
			if valid {
				t.Fatalf("%s at distance %d should be out of reach", pos, dist)
			}
		}
	}
	assertDisjoint(t, set)
}

func TestComputeExplainsUnaffordableStep(t *testing.T) {
	w := newWorld(t, 2)
	w.wireMotion(t)
	w.fill("plains")
	w.tile(hexgrid.At(1, 0), "forest")
	w.unit("u1", hexgrid.Origin, entity.Int(2))

	set, _ := Compute(w.input("u1"))
	reasons := set.Reasons(hexgrid.At(1, 0))
	if len(reasons) != 1 {
		t.Fatalf("reasons = %v, want one", reasons)
	}
	for _, want := range []string{"Terrain cost", "Infantry u1", "needs 3 budget", "Forest (1,0)"} {
		if !strings.Contains(reasons[0], want) {
			t.Fatalf("reason %q missing %q", reasons[0], want)
		}
	}
	assertDisjoint(t, set)
}

func TestComputeHardBlock(t *testing.T) {
	w := newWorld(t, 2)
	w.wireMotion(t)
	w.fill("plains")
	w.tile(hexgrid.At(1, 0), "water")
	must(t, w.reg.PutConcept(ontology.Concept{
		ID: "barrier", Name: "Barrier",
		Roles: []ontology.ConceptRole{
			{ID: "walker", Name: "walker", AllowedRoles: []entity.Role{entity.RoleToken}},
			{ID: "obstacle", Name: "obstacle", AllowedRoles: []entity.Role{entity.RoleBoardPosition}},
		},
	}))
	must(t, w.reg.PutBinding(ontology.ConceptBinding{ID: "b-walker", EntityTypeID: "infantry", ConceptID: "barrier", RoleID: "walker"}))
	must(t, w.reg.PutBinding(ontology.ConceptBinding{ID: "b-obstacle", EntityTypeID: "water", ConceptID: "barrier", RoleID: "obstacle"}))
	must(t, w.reg.PutRelation(ontology.Relation{
		ID: "r-wall", Name: "Impassable", ConceptID: "barrier", SubjectRoleID: "walker", ObjectRoleID: "obstacle",
		Trigger: ontology.TriggerOnEnter, Effect: ontology.Block{},
	}))
	w.unit("u1", hexgrid.Origin, entity.Int(50))

	set, _ := Compute(w.input("u1"))
	water := hexgrid.At(1, 0)
	if set.IsValid(water) {
		t.Fatal("water should be blocked")
	}
	reasons := set.Reasons(water)
	if len(reasons) != 1 || !strings.Contains(reasons[0], "Impassable") || !strings.Contains(reasons[0], "cannot enter") {
		t.Fatalf("reasons = %v", reasons)
	}
	if len(set.Valid) != 3*2*3-1 {
		t.Fatalf("valid = %d, want every hex but water", len(set.Valid))
	}
	assertDisjoint(t, set)
}

func TestComputeConditionalBlock(t *testing.T) {
	w := newWorld(t, 1)
	w.wireMotion(t)
	w.fill("plains")
	w.tile(hexgrid.At(0, 1), "water")
	must(t, w.reg.PutRelation(ontology.Relation{
		ID: "r-water", Name: "No swimming", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
		Trigger: ontology.TriggerOnEnter,
		Effect: ontology.Block{Condition: ontology.All{Exprs: []ontology.Expr{
			ontology.IsType{RoleID: "terrain", EntityTypeID: "water"},
			ontology.IsNotType{RoleID: "mover", EntityTypeID: "boat"},
		}}},
	}))
	w.unit("u1", hexgrid.Origin, entity.Int(5))

	set, _ := Compute(w.input("u1"))
	if set.IsValid(hexgrid.At(0, 1)) || len(set.Valid) != 5 {
		t.Fatalf("valid = %v", set.ValidPositions())
	}
	reasons := set.Reasons(hexgrid.At(0, 1))
	if len(reasons) != 1 || !strings.Contains(reasons[0], "terrain is Water") {
		t.Fatalf("reasons = %v", reasons)
	}
}

func TestComputeDominance(t *testing.T) {
	w := newWorld(t, 3)
	w.wireMotion(t)
	w.fill("plains")
	w.tile(hexgrid.At(1, 0), "forest")
	w.unit("u1", hexgrid.Origin, entity.Int(4))

	set, _ := Compute(w.input("u1"))
	// Through the forest (2,0) costs 4; around it through (1,-1) and (2,-1)
	// it costs 3.
	if got := set.Valid[hexgrid.At(2, 0)]; got != 1 {
		t.Fatalf("remaining at (2,0) = %d, want 1", got)
	}
	if got := set.Valid[hexgrid.At(1, 0)]; got != 1 {
		t.Fatalf("remaining at forest = %d, want 1", got)
	}
	for pos := range set.Valid {
		if !pos.InBounds(3) {
			t.Fatalf("%s exceeds the radius", pos)
		}
	}
	assertDisjoint(t, set)
}

func TestComputeValidViaOnePathWins(t *testing.T) {
	w := newWorld(t, 2)
	w.wireMotion(t)
	w.fill("plains")
	w.tile(hexgrid.At(1, 0), "forest")
	w.unit("u1", hexgrid.Origin, entity.Int(3))

	set, _ := Compute(w.input("u1"))
	// From (1,-1) with 2 left the forest is unaffordable, but the direct
	// step from the origin reaches it.
	if !set.IsValid(hexgrid.At(1, 0)) || len(set.Reasons(hexgrid.At(1, 0))) != 0 {
		t.Fatalf("forest valid=%v reasons=%v", set.IsValid(hexgrid.At(1, 0)), set.Reasons(hexgrid.At(1, 0)))
	}
	assertDisjoint(t, set)
}

func TestComputeRefundsAreClamped(t *testing.T) {
	w := newWorld(t, 2)
	w.wireMotion(t)
	w.wireRoad(t, 1, 2)
	w.fill("road")
	w.unit("u1", hexgrid.Origin, entity.Int(1))

	set, _ := Compute(w.input("u1"))
	if len(set.Valid) != 18 {
		t.Fatalf("valid = %d, want 18", len(set.Valid))
	}
	for pos, remaining := range set.Valid {
		if remaining != 1 {
			t.Fatalf("%s remaining = %d, want clamp to 1", pos, remaining)
		}
	}
}

// wireRoad registers a road terrain whose bonus is refunded on entry.
func (w *world) wireRoad(t *testing.T, cost, bonus int64) {
	t.Helper()
	w.mustRegister(t, entity.Type{ID: "road", Name: "Road", Role: entity.RoleBoardPosition, Properties: []entity.PropertyDefinition{
		{ID: "cost", Default: entity.Int(cost)},
		{ID: "bonus", Default: entity.Int(bonus)},
	}})
	must(t, w.reg.PutBinding(ontology.ConceptBinding{
		ID: "b-road", EntityTypeID: "road", ConceptID: "motion", RoleID: "terrain",
		Properties: []ontology.PropertyBinding{{PropertyID: "cost", LocalName: "cost"}, {PropertyID: "bonus", LocalName: "bonus"}},
	}))
	must(t, w.reg.PutRelation(ontology.Relation{
		ID: "r-road", Name: "Road bonus", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
		Trigger: ontology.TriggerOnEnter,
		Effect:  ontology.ModifyProperty{TargetProperty: "budget", SourceProperty: "bonus", Operation: ontology.OpAdd},
	}))
}

func TestComputeExtremeBudgets(t *testing.T) {
	t.Run("huge float budget saturates", func(t *testing.T) {
		w := newWorld(t, 2)
		w.wireMotion(t)
		w.fill("plains")
		w.unit("u1", hexgrid.Origin, entity.Float(1e20))

		set, _ := Compute(w.input("u1"))
		if set.Budget != math.MaxInt {
			t.Fatalf("budget = %d, want %d", set.Budget, math.MaxInt)
		}
		if len(set.Valid) != 18 {
			t.Fatalf("valid = %d, want 18", len(set.Valid))
		}
		assertDisjoint(t, set)
	})

	t.Run("huge negative float budget saturates", func(t *testing.T) {
		w := newWorld(t, 1)
		w.wireMotion(t)
		w.fill("plains")
		w.unit("u1", hexgrid.Origin, entity.Float(-1e20))

		set, _ := Compute(w.input("u1"))
		if set.Budget != math.MinInt {
			t.Fatalf("budget = %d, want %d", set.Budget, math.MinInt)
		}
		if len(set.Valid) != 0 || len(set.Blocked) != 6 {
			t.Fatalf("valid = %d blocked = %d, want 0 and 6", len(set.Valid), len(set.Blocked))
		}
	})

	t.Run("refund on a maximal budget", func(t *testing.T) {
		w := newWorld(t, 2)
		w.wireMotion(t)
		w.wireRoad(t, 1, 2)
		w.fill("road")
		w.unit("u1", hexgrid.Origin, entity.Int(math.MaxInt64))

		set, _ := Compute(w.input("u1"))
		if len(set.Valid) != 18 || len(set.Blocked) != 0 {
			t.Fatalf("valid = %d blocked = %v, want 18 and none", len(set.Valid), set.Blocked)
		}
		for pos, remaining := range set.Valid {
			if remaining != math.MaxInt {
				t.Fatalf("%s remaining = %d, want %d", pos, remaining, math.MaxInt)
			}
		}
	})

	t.Run("accumulated cost does not wrap", func(t *testing.T) {
		w := newWorld(t, 1)
		w.wireMotion(t)
		w.fill("plains")
		w.mustRegister(t, entity.Type{ID: "peak", Name: "Peak", Role: entity.RoleBoardPosition, Properties: []entity.PropertyDefinition{{ID: "cost", Default: entity.Int(math.MaxInt64)}}})
		must(t, w.reg.PutBinding(ontology.ConceptBinding{
			ID: "b-peak", EntityTypeID: "peak", ConceptID: "motion", RoleID: "terrain",
			Properties: []ontology.PropertyBinding{{PropertyID: "cost", LocalName: "cost"}},
		}))
		must(t, w.reg.PutRelation(ontology.Relation{
			ID: "r-toll", Name: "Toll", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
			Trigger: ontology.TriggerOnEnter,
			Effect:  ontology.ModifyProperty{TargetProperty: "budget", SourceProperty: "cost", Operation: ontology.OpSubtract},
		}))
		w.tile(hexgrid.At(1, 0), "peak")
		w.unit("u1", hexgrid.Origin, entity.Int(5))

		set, _ := Compute(w.input("u1"))
		if set.IsValid(hexgrid.At(1, 0)) {
			t.Fatal("peak should be unaffordable")
		}
		if reasons := set.Reasons(hexgrid.At(1, 0)); len(reasons) != 2 {
			t.Fatalf("reasons = %v, want one per cost relation", reasons)
		}
		assertDisjoint(t, set)
	})
}

func TestComputeRelationSemantics(t *testing.T) {
	forest := hexgrid.At(1, 0)
	tests := []struct {
		name     string
		relation ontology.Relation
		// inert relations leave the move set exactly as without them.
		inert   bool
		reasons []string
	}{
		{
			name: "allow on enter is inert",
			relation: ontology.Relation{
				ID: "r-allow", Name: "Woodland path", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
				Trigger: ontology.TriggerOnEnter,
				Effect:  ontology.Allow{Condition: ontology.IsType{RoleID: "terrain", EntityTypeID: "forest"}},
			},
			inert: true,
		},
		{
			name: "multiply is ignored",
			relation: ontology.Relation{
				ID: "r-mul", Name: "Double cost", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
				Trigger: ontology.TriggerOnEnter,
				Effect:  ontology.ModifyProperty{TargetProperty: "budget", SourceProperty: "cost", Operation: ontology.OpMultiply},
			},
			inert: true,
		},
		{
			name: "min is ignored",
			relation: ontology.Relation{
				ID: "r-min", Name: "Floor", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
				Trigger: ontology.TriggerOnEnter,
				Effect:  ontology.ModifyProperty{TargetProperty: "budget", SourceProperty: "cost", Operation: ontology.OpMin},
			},
			inert: true,
		},
		{
			name: "max is ignored",
			relation: ontology.Relation{
				ID: "r-max", Name: "Ceiling", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
				Trigger: ontology.TriggerOnEnter,
				Effect:  ontology.ModifyProperty{TargetProperty: "budget", SourceProperty: "cost", Operation: ontology.OpMax},
			},
			inert: true,
		},
		{
			name: "block and cost both explain",
			relation: ontology.Relation{
				ID: "r-woods", Name: "Dense woods", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
				Trigger: ontology.TriggerOnEnter,
				Effect:  ontology.Block{Condition: ontology.IsType{RoleID: "terrain", EntityTypeID: "forest"}},
			},
			reasons: []string{"Terrain cost", "Dense woods"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorld(t, 2)
			w.wireMotion(t)
			w.fill("plains")
			w.tile(forest, "forest")
			w.unit("u1", hexgrid.Origin, entity.Int(2))
			base, _ := Compute(w.input("u1"))

			must(t, w.reg.PutRelation(tt.relation))
			set, _ := Compute(w.input("u1"))
			assertDisjoint(t, set)

			if tt.inert {
				if !maps.Equal(set.Valid, base.Valid) {
					t.Fatalf("valid = %v, want %v", set.Valid, base.Valid)
				}
				if got, want := set.Reasons(forest), base.Reasons(forest); !slices.Equal(got, want) {
					t.Fatalf("forest reasons = %v, want %v", got, want)
				}
				return
			}
			reasons := set.Reasons(forest)
			if len(reasons) != len(tt.reasons) {
				t.Fatalf("forest reasons = %v, want %d", reasons, len(tt.reasons))
			}
			for i, want := range tt.reasons {
				if !strings.HasPrefix(reasons[i], want) {
					t.Fatalf("reason %d = %q, want prefix %q", i, reasons[i], want)
				}
			}
		})
	}
}

func TestResolveBudget(t *testing.T) {
	t.Run("float truncates toward zero", func(t *testing.T) {
		w := newWorld(t, 3)
		w.wireMotion(t)
		w.fill("plains")
		w.unit("u1", hexgrid.Origin, entity.Float(2.9))
		set, _ := Compute(w.input("u1"))
		if set.Budget != 2 {
			t.Fatalf("budget = %d, want 2", set.Budget)
		}
	})

	t.Run("binding named budget", func(t *testing.T) {
		w := newWorld(t, 1)
		w.wireMotion(t)
		rel, _ := w.reg.Relations.Get("r-cost")
		rel.Effect = ontology.ModifyProperty{TargetProperty: "stamina", SourceProperty: "cost", Operation: ontology.OpSubtract}
		must(t, w.reg.PutRelation(rel))
		w.unit("u1", hexgrid.Origin, entity.Int(7))
		set, _ := Compute(w.input("u1"))
		if set.Budget != 7 || set.BudgetSource != BudgetFromBinding {
			t.Fatalf("budget = %d (%s), want 7 from binding", set.Budget, set.BudgetSource)
		}
	})

	t.Run("default when unwired", func(t *testing.T) {
		w := newWorld(t, 1)
		w.wireMotion(t)
		w.reg.Bindings.Delete("b-infantry")
		w.unit("u1", hexgrid.Origin, entity.Int(1))
		set, _ := Compute(w.input("u1"))
		if set.Budget != DefaultBudget || set.BudgetSource != BudgetFromDefault {
			t.Fatalf("budget = %d (%s)", set.Budget, set.BudgetSource)
		}
		if len(set.Valid) != 6 {
			t.Fatalf("valid = %d, want every neighbor", len(set.Valid))
		}

		in := w.input("u1")
		in.FallbackBudget = 9
		set, _ = Compute(in)
		if set.Budget != 9 {
			t.Fatalf("budget = %d, want configured fallback 9", set.Budget)
		}
	})
}

func TestConditionHolds(t *testing.T) {
	rel := ontology.Relation{SubjectRoleID: "mover", ObjectRoleID: "terrain"}
	tests := []struct {
		name string
		expr ontology.Expr
		want bool
	}{
		{"object type matches", ontology.IsType{RoleID: "terrain", EntityTypeID: "water"}, true},
		{"subject type differs", ontology.IsType{RoleID: "mover", EntityTypeID: "boat"}, false},
		{"unknown role has no type", ontology.IsNotType{RoleID: "pilot", EntityTypeID: "water"}, true},
		{"empty any", ontology.Any{}, false},
		{"empty all", ontology.All{}, true},
		{"negation", ontology.Not{Expr: ontology.IsType{RoleID: "terrain", EntityTypeID: "water"}}, false},
		{"unsupported kind", ontology.Compare{Left: ontology.PropertyRef{RoleID: "mover", Name: "x"}, Op: ontology.CmpLt, Value: entity.Int(0)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := conditionHolds(tt.expr, rel, "infantry", "water"); got != tt.want {
				t.Fatalf("conditionHolds() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluatorRecomputesOnSelectionAndOntology(t *testing.T) {
	w := newWorld(t, 2)
	w.wireMotion(t)
	w.fill("plains")
	w.unit("u1", hexgrid.Origin, entity.Int(1))
	w.unit("u2", hexgrid.At(1, 0), entity.Int(1))

	var e Evaluator
	if !e.Update(w.input("u1")) {
		t.Fatal("first update should compute")
	}
	if e.Update(w.input("u1")) {
		t.Fatal("unchanged inputs should not recompute")
	}
	set, ok := e.Result()
	if !ok || set.EntityID != "u1" {
		t.Fatalf("result = %+v, %v", set, ok)
	}

	if !e.Update(w.input("u2")) {
		t.Fatal("selection change should recompute")
	}
	set, _ = e.Result()
	if set.EntityID != "u2" || set.Origin != hexgrid.At(1, 0) {
		t.Fatalf("result = %+v", set)
	}

	w.board.Tiles[hexgrid.At(2, 0)] = entity.Data{}
	if e.Update(w.input("u2")) {
		t.Fatal("board edits alone should not recompute")
	}
	must(t, w.reg.PutRelation(ontology.Relation{
		ID: "r-note", ConceptID: "motion", SubjectRoleID: "mover", ObjectRoleID: "terrain",
		Trigger: ontology.TriggerOnExit, Effect: ontology.Allow{},
	}))
	if !e.Update(w.input("u2")) {
		t.Fatal("ontology change should recompute")
	}
	e.Invalidate()
	if !e.Update(w.input("u2")) {
		t.Fatal("Invalidate should force a recompute")
	}
	if !e.Update(w.input("")) {
		t.Fatal("clearing the selection should recompute")
	}
	if _, ok := e.Result(); ok {
		t.Fatal("cleared selection should report no result")
	}
}

func TestEvaluatorRecomputesOnFallbackBudget(t *testing.T) {
	w := newWorld(t, 2)
	w.fill("plains")
	w.unit("u1", hexgrid.Origin, entity.Int(1))

	var e Evaluator
	in := w.input("u1")
	e.Update(in)
	in.FallbackBudget = 4
	if !e.Update(in) {
		t.Fatal("fallback change should recompute")
	}
	if e.Update(in) {
		t.Fatal("unchanged fallback should not recompute")
	}
}
