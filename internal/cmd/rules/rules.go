// Package rules implements the rules command: validate an ontology bundle,
// compute a unit's moves, and manage stored workspaces.
package rules

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"strings"
	"text/tabwriter"

	"github.com/louisbranch/boardrules/internal/bundle"
	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/hexgrid"
	"github.com/louisbranch/boardrules/internal/ontology"
	"github.com/louisbranch/boardrules/internal/ontology/movement"
	"github.com/louisbranch/boardrules/internal/ontology/runtime"
	platformcmd "github.com/louisbranch/boardrules/internal/platform/cmd"
	"github.com/louisbranch/boardrules/internal/storage"
	"github.com/louisbranch/boardrules/internal/storage/sqlite"
)

// Commands accepted as the first positional argument.
const (
	CommandValidate = "validate"
	CommandMoves    = "moves"
	CommandSave     = "save"
	CommandList     = "list"
	CommandDelete   = "delete"
)

// Config holds rules command configuration.
type Config struct {
	Command        string
	Bundle         string `env:"BOARDRULES_BUNDLE"`
	Workspace      string `env:"BOARDRULES_WORKSPACE"`
	DBPath         string `env:"BOARDRULES_DB_PATH"          envDefault:"boardrules.db"`
	Unit           string `env:"BOARDRULES_UNIT"`
	Format         string `env:"BOARDRULES_FORMAT"           envDefault:"text"`
	FallbackBudget int    `env:"BOARDRULES_FALLBACK_BUDGET"`
	Verbose        bool   `env:"BOARDRULES_VERBOSE"`
}

// ParseConfig parses environment and flags into a Config. The command is
// the first positional argument and may come before or after the flags.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := platformcmd.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cfg.Command = args[0]
		args = args[1:]
	}

	fs.StringVar(&cfg.Bundle, "bundle", cfg.Bundle, "bundle YAML file")
	fs.StringVar(&cfg.Workspace, "workspace", cfg.Workspace, "stored workspace name")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "SQLite workspace database")
	fs.StringVar(&cfg.Unit, "unit", cfg.Unit, "unit to evaluate (defaults to the bundle selection)")
	fs.StringVar(&cfg.Format, "format", cfg.Format, "output format: text or json")
	fs.IntVar(&cfg.FallbackBudget, "fallback-budget", cfg.FallbackBudget, "movement budget when no relation or binding yields one")
	fs.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "log engine activity")
	if err := platformcmd.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if cfg.Command == "" {
		cfg.Command = fs.Arg(0)
	}
	cfg.Command = strings.ToLower(strings.TrimSpace(cfg.Command))
	switch cfg.Format {
	case "text", "json":
	default:
		return Config{}, fmt.Errorf("unsupported format %q", cfg.Format)
	}
	return cfg, nil
}

// Run executes the configured command.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	logger := log.New(io.Discard, "", 0)
	if cfg.Verbose {
		logger = log.New(errOut, "[RULES] ", 0)
	}
	r := &runner{cfg: cfg, out: out, logger: logger}

	return platformcmd.RunWithTelemetryAndOptions(ctx, platformcmd.ServiceRules, platformcmd.RunOptions{Logger: logger}, func(ctx context.Context) error {
		defer r.close()
		switch cfg.Command {
		case CommandValidate:
			return r.validate(ctx)
		case CommandMoves:
			return r.moves(ctx)
		case CommandSave:
			return r.save(ctx)
		case CommandList:
			return r.list(ctx)
		case CommandDelete:
			return r.delete(ctx)
		case "":
			return errors.New("command is required: validate, moves, save, list or delete")
		default:
			return fmt.Errorf("unknown command %q", cfg.Command)
		}
	})
}

type runner struct {
	cfg    Config
	out    io.Writer
	logger *log.Logger
	store  *sqlite.Store
}

type world struct {
	types     *entity.TypeRegistry
	ontology  *ontology.Registry
	board     movement.Board
	selection string
}

func (r *runner) close() {
	if r.store == nil {
		return
	}
	if err := r.store.Close(); err != nil {
		r.logger.Printf("close store: %v", err)
	}
}

func (r *runner) openStore(ctx context.Context) (*sqlite.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	store, err := sqlite.Open(ctx, r.cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open workspace store: %w", err)
	}
	r.store = store
	return store, nil
}

func loadBundle(path string) (*bundle.Builder, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("bundle path is required")
	}
	doc, err := bundle.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return bundle.Build(doc)
}

func (r *runner) load(ctx context.Context) (world, error) {
	if r.cfg.Workspace == "" {
		b, err := loadBundle(r.cfg.Bundle)
		if err != nil {
			return world{}, err
		}
		return world{types: b.Types(), ontology: b.Ontology(), board: b.Board(), selection: b.Selection()}, nil
	}
	if r.cfg.Bundle != "" {
		return world{}, errors.New("set either -bundle or -workspace, not both")
	}
	store, err := r.openStore(ctx)
	if err != nil {
		return world{}, err
	}
	stored, err := store.GetWorkspace(ctx, r.cfg.Workspace)
	if err != nil {
		return world{}, fmt.Errorf("get workspace %s: %w", r.cfg.Workspace, err)
	}
	types, reg, board, err := stored.Snapshot.Restore()
	if err != nil {
		return world{}, err
	}
	return world{types: types, ontology: reg, board: board, selection: stored.Snapshot.Selection}, nil
}

func (r *runner) tick(ctx context.Context, w world, selection string) (runtime.Tick, error) {
	engine, err := runtime.New(w.ontology, w.types, runtime.Options{Logger: r.logger, FallbackBudget: r.cfg.FallbackBudget})
	if err != nil {
		return runtime.Tick{}, err
	}
	return engine.Tick(ctx, w.board, selection)
}

type validationReport struct {
	Valid           bool          `json:"valid"`
	Errors          []errorReport `json:"errors"`
	AutoConstraints []string      `json:"auto_constraints"`
}

type errorReport struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

func (r *runner) validate(ctx context.Context) error {
	w, err := r.load(ctx)
	if err != nil {
		return err
	}
	out, err := r.tick(ctx, w, "")
	if err != nil {
		return err
	}
	report := validationReport{Valid: out.Validation.IsValid, Errors: []errorReport{}, AutoConstraints: []string{}}
	for _, e := range out.Validation.Errors {
		report.Errors = append(report.Errors, errorReport{Kind: string(e.Kind), Subject: e.Subject, Message: e.Message})
	}
	for _, c := range w.ontology.Constraints.List() {
		if c.AutoGenerated {
			report.AutoConstraints = append(report.AutoConstraints, c.Name)
		}
	}

	if r.cfg.Format == "json" {
		return writeJSON(r.out, report)
	}
	for _, name := range report.AutoConstraints {
		fmt.Fprintf(r.out, "derived: %s\n", name)
	}
	if report.Valid {
		_, err := fmt.Fprintln(r.out, "ontology is valid")
		return err
	}
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for _, e := range report.Errors {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Kind, e.Subject, e.Message)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	return fmt.Errorf("ontology has %d errors", len(report.Errors))
}

type movesReport struct {
	Unit         string           `json:"unit"`
	Origin       hexgrid.Position `json:"origin"`
	Budget       int              `json:"budget"`
	BudgetName   string           `json:"budget_name,omitempty"`
	BudgetSource string           `json:"budget_source"`
	Valid        []hexReport      `json:"valid"`
	Blocked      []hexReport      `json:"blocked"`
}

type hexReport struct {
	At        hexgrid.Position `json:"at"`
	Remaining *int             `json:"remaining,omitempty"`
	Reasons   []string         `json:"reasons,omitempty"`
}

func (r *runner) moves(ctx context.Context) error {
	w, err := r.load(ctx)
	if err != nil {
		return err
	}
	selection := w.selection
	if r.cfg.Unit != "" {
		selection = r.cfg.Unit
	}
	if selection == "" {
		return errors.New("no unit selected; pass -unit")
	}
	out, err := r.tick(ctx, w, selection)
	if err != nil {
		return err
	}
	if !out.Selected {
		return fmt.Errorf("unit %q is not on the board", selection)
	}

	moves := out.Moves
	report := movesReport{
		Unit:         moves.EntityID,
		Origin:       moves.Origin,
		Budget:       moves.Budget,
		BudgetName:   moves.BudgetName,
		BudgetSource: string(moves.BudgetSource),
		Valid:        []hexReport{},
		Blocked:      []hexReport{},
	}
	for _, pos := range moves.ValidPositions() {
		remaining := moves.Valid[pos]
		report.Valid = append(report.Valid, hexReport{At: pos, Remaining: &remaining})
	}
	for _, pos := range moves.BlockedPositions() {
		report.Blocked = append(report.Blocked, hexReport{At: pos, Reasons: moves.Reasons(pos)})
	}

	if r.cfg.Format == "json" {
		return writeJSON(r.out, report)
	}
	budget := report.BudgetSource
	if report.BudgetName != "" {
		budget = report.BudgetName + " from " + report.BudgetSource
	}
	fmt.Fprintf(r.out, "%s at %s, budget %d (%s)\n", report.Unit, report.Origin, report.Budget, budget)
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for _, hex := range report.Valid {
		fmt.Fprintf(tw, "valid\t%s\t%d left\n", hex.At, *hex.Remaining)
	}
	for _, hex := range report.Blocked {
		fmt.Fprintf(tw, "blocked\t%s\t%s\n", hex.At, strings.Join(hex.Reasons, "; "))
	}
	return tw.Flush()
}

func (r *runner) save(ctx context.Context) error {
	if r.cfg.Workspace == "" {
		return errors.New("workspace name is required")
	}
	b, err := loadBundle(r.cfg.Bundle)
	if err != nil {
		return err
	}
	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	summary, err := store.PutWorkspace(ctx, r.cfg.Workspace, storage.Capture(b.Types(), b.Ontology(), b.Board(), b.Selection()))
	if err != nil {
		return err
	}
	if r.cfg.Format == "json" {
		return writeJSON(r.out, summary)
	}
	_, err = fmt.Fprintf(r.out, "saved %s %s\n", summary.Name, summary.ContentHash)
	return err
}

func (r *runner) list(ctx context.Context) error {
	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	summaries, err := store.ListWorkspaces(ctx)
	if err != nil {
		return err
	}
	if r.cfg.Format == "json" {
		if summaries == nil {
			summaries = []storage.WorkspaceSummary{}
		}
		return writeJSON(r.out, summaries)
	}
	tw := tabwriter.NewWriter(r.out, 0, 4, 2, ' ', 0)
	for _, summary := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", summary.Name, summary.ContentHash, summary.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return tw.Flush()
}

func (r *runner) delete(ctx context.Context) error {
	if r.cfg.Workspace == "" {
		return errors.New("workspace name is required")
	}
	store, err := r.openStore(ctx)
	if err != nil {
		return err
	}
	if err := store.DeleteWorkspace(ctx, r.cfg.Workspace); err != nil {
		return fmt.Errorf("delete workspace %s: %w", r.cfg.Workspace, err)
	}
	_, err = fmt.Fprintf(r.out, "deleted %s\n", r.cfg.Workspace)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
