// Package scenario parses scenario command flags and runs Lua scenarios.
package scenario

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"

	platformcmd "github.com/louisbranch/boardrules/internal/platform/cmd"
	"github.com/louisbranch/boardrules/internal/tools/scenario"
)

// Config holds scenario command configuration.
type Config struct {
	Scenario       string `env:"BOARDRULES_SCENARIO_FILE"`
	Assertions     bool   `env:"BOARDRULES_SCENARIO_ASSERT"   envDefault:"true"`
	Verbose        bool   `env:"BOARDRULES_SCENARIO_VERBOSE"`
	FallbackBudget int    `env:"BOARDRULES_FALLBACK_BUDGET"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Scenario, "scenario", cfg.Scenario, "path to scenario lua file")
	fs.BoolVar(&cfg.Assertions, "assert", cfg.Assertions, "enable assertions (disable to log expectations)")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "enable verbose logging")
	fs.IntVar(&cfg.FallbackBudget, "fallback-budget", cfg.FallbackBudget, "movement budget when no relation or binding yields one")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Scenario == "" && fs.NArg() > 0 {
		cfg.Scenario = fs.Arg(0)
	}
	return cfg, nil
}

// Run executes the scenario command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	if cfg.Scenario == "" {
		return errors.New("scenario path is required")
	}

	mode := scenario.AssertionStrict
	if !cfg.Assertions {
		mode = scenario.AssertionLogOnly
	}

	logger := log.New(errOut, "", 0)
	return platformcmd.RunWithTelemetryAndOptions(ctx, platformcmd.ServiceScenario, platformcmd.RunOptions{Logger: logger}, func(ctx context.Context) error {
		if err := scenario.RunFile(ctx, scenario.Config{
			Assertions:     mode,
			Verbose:        cfg.Verbose,
			Logger:         logger,
			FallbackBudget: cfg.FallbackBudget,
		}, cfg.Scenario); err != nil {
			return err
		}
		_, err := io.WriteString(out, "PASS "+cfg.Scenario+"\n")
		return err
	})
}
