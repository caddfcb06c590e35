// Package mcp parses MCP command flags and serves the rules tools on stdio.
package mcp

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"github.com/louisbranch/boardrules/internal/ontology/runtime"
	platformcmd "github.com/louisbranch/boardrules/internal/platform/cmd"
	"github.com/louisbranch/boardrules/internal/services/mcp/service"
	"github.com/louisbranch/boardrules/internal/storage/sqlite"
)

// Config holds MCP command configuration.
type Config struct {
	// DBPath enables workspace tools backed by SQLite when set.
	DBPath         string `env:"BOARDRULES_DB_PATH"`
	FallbackBudget int    `env:"BOARDRULES_FALLBACK_BUDGET"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.DBPath, "db", "", "SQLite workspace database (empty disables workspace tools)")
	fs.IntVar(&cfg.FallbackBudget, "fallback-budget", 0, "movement budget when no relation or binding yields one")
	if err := platformcmd.ParseConfigFromArgs(&cfg, fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the MCP server on stdio.
func Run(ctx context.Context, cfg Config) error {
	return platformcmd.RunWithTelemetry(ctx, platformcmd.ServiceMCP, func(ctx context.Context) error {
		server, closeStore, err := newServer(ctx, cfg, log.Default())
		if err != nil {
			return err
		}
		defer closeStore()
		return server.Serve(ctx)
	})
}

func newServer(ctx context.Context, cfg Config, logger *log.Logger) (*service.Server, func(), error) {
	serviceCfg := service.Config{
		Logger: logger,
		Engine: runtime.Options{Logger: logger, FallbackBudget: cfg.FallbackBudget},
	}
	closeStore := func() {}
	if path := strings.TrimSpace(cfg.DBPath); path != "" {
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("open workspace store: %w", err)
		}
		serviceCfg.Store = store
		closeStore = func() {
			if err := store.Close(); err != nil {
				logger.Printf("close workspace store: %v", err)
			}
		}
	}
	return service.New(serviceCfg), closeStore, nil
}
