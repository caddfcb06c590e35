package scenario

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if !cfg.Assertions {
		t.Fatal("expected assertions to default to true")
	}
	if cfg.Verbose {
		t.Fatal("expected verbose to default to false")
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("BOARDRULES_SCENARIO_FILE", "env.lua")
	t.Setenv("BOARDRULES_FALLBACK_BUDGET", "7")
	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-assert=false", "-scenario", "flag.lua"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Scenario != "flag.lua" {
		t.Fatalf("scenario = %q, want flag.lua", cfg.Scenario)
	}
	if cfg.Assertions {
		t.Fatal("expected assertions disabled by flag")
	}
	if cfg.FallbackBudget != 7 {
		t.Fatalf("fallback budget = %d, want 7", cfg.FallbackBudget)
	}
}

func TestParseConfigPositionalScenario(t *testing.T) {
	fs := flag.NewFlagSet("scenario", flag.ContinueOnError)

	cfg, err := ParseConfig(fs, []string{"-verbose", "path/to/run.lua"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Scenario != "path/to/run.lua" {
		t.Fatalf("scenario = %q, want path/to/run.lua", cfg.Scenario)
	}
}

func TestRunRequiresScenario(t *testing.T) {
	if err := Run(context.Background(), Config{}, nil, nil); err == nil {
		t.Fatal("expected error without scenario path")
	}
}

func TestRunPasses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "free.lua")
	script := `local scene = Scenario.new("free")
scene:radius(1)
scene:entity_type({name = "Pawn", role = "token"})
scene:unit({id = "p", type = "Pawn"})
scene:select("p")
scene:expect_valid_count(6)
return scene
`
	if err := os.WriteFile(path, []byte(script), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	var out bytes.Buffer
	if err := Run(context.Background(), Config{Scenario: path, Assertions: true}, &out, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "PASS ") {
		t.Fatalf("out = %q, want PASS line", out.String())
	}
}
