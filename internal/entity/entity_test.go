package entity

import (
	"encoding/json"
	"math"
	"testing"
)

func infantry() Type {
	return Type{
		ID:   "infantry",
		Name: "Infantry",
		Role: RoleToken,
		Properties: []PropertyDefinition{
			{ID: "mp", Name: "movement_points", Default: Int(3)},
			{ID: "morale", Name: "morale", Default: Float(0.5)},
			{ID: "banner", Name: "banner", Default: RGBA(200, 10, 10, 255)},
		},
	}
}

func TestNewDataUsesDefaults(t *testing.T) {
	data := NewData(infantry())
	if data.TypeID != "infantry" {
		t.Fatalf("type id = %q", data.TypeID)
	}
	got, ok := data.Get("mp")
	if !ok || !got.Equal(Int(3)) {
		t.Fatalf("mp = %#v, want 3", got)
	}
	if len(data.Values) != 3 {
		t.Fatalf("values = %d, want 3", len(data.Values))
	}
}

func TestDataCloneIsIndependent(t *testing.T) {
	data := NewData(infantry())
	clone := data.Clone()
	clone.Set("mp", Int(1))
	if got, _ := data.Get("mp"); !got.Equal(Int(3)) {
		t.Fatalf("original mutated to %s", got.Display())
	}
}

func TestValueIntegerTruncatesTowardZero(t *testing.T) {
	tests := []struct {
		value Value
		want  int
		ok    bool
	}{
		{Int(4), 4, true},
		{Float(2.9), 2, true},
		{Float(-2.9), -2, true},
		{Float(1e20), math.MaxInt, true},
		{Float(-1e20), math.MinInt, true},
		{Float(math.NaN()), 0, false},
		{Float(math.Inf(1)), 0, false},
		{String("3"), 0, false},
		{Bool(true), 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.value.Integer()
		if got != tt.want || ok != tt.ok {
			t.Fatalf("%s.Integer() = (%d, %v), want (%d, %v)", tt.value.Display(), got, ok, tt.want, tt.ok)
		}
	}
}

func TestValueCompare(t *testing.T) {
	if cmp, ok := Int(2).Compare(Float(2.5)); !ok || cmp != -1 {
		t.Fatalf("2 vs 2.5 = (%d, %v)", cmp, ok)
	}
	if cmp, ok := Enum("b").Compare(Enum("a")); !ok || cmp != 1 {
		t.Fatalf("enum compare = (%d, %v)", cmp, ok)
	}
	if _, ok := Bool(true).Compare(Bool(false)); ok {
		t.Fatal("unequal bools must not order")
	}
	if _, ok := Int(1).Compare(String("1")); ok {
		t.Fatal("number vs string must not order")
	}
}

func TestValueJSONRoundTripKeepsKind(t *testing.T) {
	for _, value := range []Value{Bool(false), Int(0), Float(1.25), String(""), RGBA(1, 2, 3, 4), Enum("plains")} {
		data, err := json.Marshal(value)
		if err != nil {
			t.Fatalf("marshal %s: %v", value.Display(), err)
		}
		var got Value
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if !got.Equal(value) {
			t.Fatalf("round trip %s = %s", value.Display(), got.Display())
		}
	}
}

func TestTypeRegistry(t *testing.T) {
	reg := NewTypeRegistry()
	if err := reg.Register(infantry()); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := reg.Register(Type{ID: "x", Role: "pawn"}); err == nil {
		t.Fatal("expected invalid role error")
	}
	dup := Type{ID: "y", Role: RoleToken, Properties: []PropertyDefinition{{ID: "a"}, {ID: "a"}}}
	if err := reg.Register(dup); err == nil {
		t.Fatal("expected duplicate property error")
	}
	before := reg.Version()
	if !reg.Remove("infantry") {
		t.Fatal("expected remove to succeed")
	}
	if reg.Version() == before {
		t.Fatal("expected version bump on remove")
	}
	if _, ok := reg.Get("infantry"); ok {
		t.Fatal("expected type to be gone")
	}
}

func TestParseRole(t *testing.T) {
	for raw, want := range map[string]Role{"token": RoleToken, "Board-Position": RoleBoardPosition, "tile": RoleBoardPosition, "unit": RoleToken} {
		got, ok := ParseRole(raw)
		if !ok || got != want {
			t.Fatalf("ParseRole(%q) = (%q, %v), want %q", raw, got, ok, want)
		}
	}
	if _, ok := ParseRole("pawn"); ok {
		t.Fatal("expected unknown role to fail")
	}
}
