package encoding

import "testing"

func TestCanonicalJSON(t *testing.T) {
	type leaf struct {
		Role string `json:"role"`
		Name string `json:"name"`
	}
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "sorted keys",
			input: map[string]any{"z": 1, "a": 2, "m": 3},
			want:  `{"a":2,"m":3,"z":1}`,
		},
		{
			name:  "struct fields sorted",
			input: leaf{Role: "mover", Name: "budget"},
			want:  `{"name":"budget","role":"mover"}`,
		},
		{
			name:  "array order preserved",
			input: []any{3, 1, 2},
			want:  `[3,1,2]`,
		},
		{
			name:  "no html escaping",
			input: map[string]any{"expr": "budget >= 0 && <ok>"},
			want:  `{"expr":"budget >= 0 && <ok>"}`,
		},
		{
			name:  "large integers kept exact",
			input: map[string]any{"n": int64(9007199254740993)},
			want:  `{"n":9007199254740993}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalJSON(tt.input)
			if err != nil {
				t.Fatalf("canonical json: %v", err)
			}
			if string(got) != tt.want {
				t.Fatalf("CanonicalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestContentHashStableAcrossKeyOrder(t *testing.T) {
	a, err := ContentHash(map[string]any{"a": 1, "b": []any{"x"}})
	if err != nil {
		t.Fatalf("hash a: %v", err)
	}
	b, err := ContentHash(map[string]any{"b": []any{"x"}, "a": 1})
	if err != nil {
		t.Fatalf("hash b: %v", err)
	}
	if a != b {
		t.Fatalf("hashes differ: %s vs %s", a, b)
	}
	if len(a) != 32 {
		t.Fatalf("hash length = %d, want 32", len(a))
	}
}

func TestCanonicalJSONRejectsUnsupported(t *testing.T) {
	if _, err := CanonicalJSON(map[string]any{"f": func() {}}); err == nil {
		t.Fatal("expected error for unsupported value")
	}
}
