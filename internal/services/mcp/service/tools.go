package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/boardrules/internal/bundle"
	"github.com/louisbranch/boardrules/internal/entity"
	"github.com/louisbranch/boardrules/internal/ontology"
	"github.com/louisbranch/boardrules/internal/ontology/movement"
	"github.com/louisbranch/boardrules/internal/ontology/runtime"
	"github.com/louisbranch/boardrules/internal/storage"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ValidateInput selects the world to validate.
type ValidateInput struct {
	Path      string `json:"path,omitempty" jsonschema:"bundle YAML file to load"`
	Workspace string `json:"workspace,omitempty" jsonschema:"stored workspace to load instead of a bundle file"`
}

// SchemaError is one validation finding.
type SchemaError struct {
	Kind    string `json:"kind" jsonschema:"error kind (dangling_reference, role_mismatch, property_mismatch, missing_binding, invalid_expression)"`
	Subject string `json:"subject" jsonschema:"identifier of the offending item"`
	Message string `json:"message" jsonschema:"human-readable description"`
}

// ValidateResult is the outcome of validate_ontology.
type ValidateResult struct {
	Valid           bool          `json:"valid" jsonschema:"true when no errors were found"`
	Errors          []SchemaError `json:"errors" jsonschema:"validation errors in check order"`
	AutoConstraints int           `json:"auto_constraints" jsonschema:"number of derived non-negativity constraints"`
}

// MovesInput selects the world and unit to evaluate.
type MovesInput struct {
	Path           string `json:"path,omitempty" jsonschema:"bundle YAML file to load"`
	Workspace      string `json:"workspace,omitempty" jsonschema:"stored workspace to load instead of a bundle file"`
	Unit           string `json:"unit,omitempty" jsonschema:"unit to evaluate; defaults to the world's selection"`
	FallbackBudget int    `json:"fallback_budget,omitempty" jsonschema:"budget used when no relation or binding yields one"`
}

// Destination is one reachable hex.
type Destination struct {
	Q         int `json:"q"`
	R         int `json:"r"`
	Remaining int `json:"remaining" jsonschema:"best budget left after entering the hex"`
}

// BlockedHex is one hex that was tried and refused.
type BlockedHex struct {
	Q       int      `json:"q"`
	R       int      `json:"r"`
	Reasons []string `json:"reasons" jsonschema:"why entering the hex failed"`
}

// MovesResult is the outcome of compute_moves.
type MovesResult struct {
	Selected     bool          `json:"selected" jsonschema:"false when the unit is not on the board"`
	EntityID     string        `json:"entity_id,omitempty"`
	Origin       Destination   `json:"origin"`
	Budget       int           `json:"budget"`
	BudgetName   string        `json:"budget_name,omitempty"`
	BudgetSource string        `json:"budget_source,omitempty" jsonschema:"relation, binding, default, or unconstrained"`
	Valid        []Destination `json:"valid"`
	Blocked      []BlockedHex  `json:"blocked"`
}

// SaveWorkspaceInput stores a bundle under a name.
type SaveWorkspaceInput struct {
	Name string `json:"name" jsonschema:"workspace name"`
	Path string `json:"path" jsonschema:"bundle YAML file to store"`
}

// WorkspaceResult describes one stored workspace.
type WorkspaceResult struct {
	Name        string `json:"name"`
	ContentHash string `json:"content_hash"`
	UpdatedAt   string `json:"updated_at" jsonschema:"RFC3339 timestamp of the last save"`
}

// ListWorkspacesInput has no fields.
type ListWorkspacesInput struct{}

// ListWorkspacesResult lists stored workspaces.
type ListWorkspacesResult struct {
	Workspaces []WorkspaceResult `json:"workspaces"`
}

// DeleteWorkspaceInput names the workspace to delete.
type DeleteWorkspaceInput struct {
	Name string `json:"name" jsonschema:"workspace name"`
}

// DeleteWorkspaceResult confirms a deletion.
type DeleteWorkspaceResult struct {
	Name string `json:"name"`
}

// ValidateTool defines the validate_ontology tool.
func ValidateTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "validate_ontology",
		Description: "Syncs derived constraints and validates the ontology of a bundle file or stored workspace.",
	}
}

// MovesTool defines the compute_moves tool.
func MovesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "compute_moves",
		Description: "Computes the hexes a unit can reach and explains every refused hex.",
	}
}

// SaveWorkspaceTool defines the save_workspace tool.
func SaveWorkspaceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "save_workspace",
		Description: "Loads a bundle file and stores it as a named workspace, replacing any previous content.",
	}
}

// ListWorkspacesTool defines the list_workspaces tool.
func ListWorkspacesTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "list_workspaces",
		Description: "Lists stored workspaces by name.",
	}
}

// DeleteWorkspaceTool defines the delete_workspace tool.
func DeleteWorkspaceTool() *mcp.Tool {
	return &mcp.Tool{
		Name:        "delete_workspace",
		Description: "Deletes a stored workspace.",
	}
}

type world struct {
	types     *entity.TypeRegistry
	ontology  *ontology.Registry
	board     movement.Board
	selection string
}

func (s *Server) loadWorld(ctx context.Context, path, workspace string) (world, error) {
	path, workspace = strings.TrimSpace(path), strings.TrimSpace(workspace)
	switch {
	case path != "" && workspace != "":
		return world{}, fmt.Errorf("set either path or workspace, not both")
	case path != "":
		b, err := buildBundle(path)
		if err != nil {
			return world{}, err
		}
		return world{types: b.Types(), ontology: b.Ontology(), board: b.Board(), selection: b.Selection()}, nil
	case workspace != "":
		if s.store == nil {
			return world{}, fmt.Errorf("workspace storage is not configured")
		}
		stored, err := s.store.GetWorkspace(ctx, workspace)
		if err != nil {
			return world{}, fmt.Errorf("get workspace %s: %w", workspace, err)
		}
		types, reg, board, err := stored.Snapshot.Restore()
		if err != nil {
			return world{}, fmt.Errorf("restore workspace %s: %w", workspace, err)
		}
		return world{types: types, ontology: reg, board: board, selection: stored.Snapshot.Selection}, nil
	default:
		return world{}, fmt.Errorf("path or workspace is required")
	}
}

func buildBundle(path string) (*bundle.Builder, error) {
	doc, err := bundle.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return bundle.Build(doc)
}

func (s *Server) tick(ctx context.Context, w world, selection string, fallback int) (runtime.Tick, error) {
	opts := s.engine
	if fallback > 0 {
		opts.FallbackBudget = fallback
	}
	engine, err := runtime.New(w.ontology, w.types, opts)
	if err != nil {
		return runtime.Tick{}, err
	}
	return engine.Tick(ctx, w.board, selection)
}

func (s *Server) validateHandler(ctx context.Context, _ *mcp.CallToolRequest, input ValidateInput) (*mcp.CallToolResult, ValidateResult, error) {
	w, err := s.loadWorld(ctx, input.Path, input.Workspace)
	if err != nil {
		return nil, ValidateResult{}, err
	}
	out, err := s.tick(ctx, w, "", 0)
	if err != nil {
		return nil, ValidateResult{}, fmt.Errorf("validate: %w", err)
	}

	result := ValidateResult{Valid: out.Validation.IsValid, Errors: make([]SchemaError, 0, len(out.Validation.Errors))}
	for _, e := range out.Validation.Errors {
		result.Errors = append(result.Errors, SchemaError{Kind: string(e.Kind), Subject: e.Subject, Message: e.Message})
	}
	for _, c := range w.ontology.Constraints.List() {
		if c.AutoGenerated {
			result.AutoConstraints++
		}
	}
	s.logger.Printf("validate_ontology: valid=%t errors=%d", result.Valid, len(result.Errors))
	return nil, result, nil
}

func (s *Server) movesHandler(ctx context.Context, _ *mcp.CallToolRequest, input MovesInput) (*mcp.CallToolResult, MovesResult, error) {
	w, err := s.loadWorld(ctx, input.Path, input.Workspace)
	if err != nil {
		return nil, MovesResult{}, err
	}
	selection := w.selection
	if unit := strings.TrimSpace(input.Unit); unit != "" {
		selection = unit
	}
	if selection == "" {
		return nil, MovesResult{}, fmt.Errorf("no unit selected; pass unit")
	}
	out, err := s.tick(ctx, w, selection, input.FallbackBudget)
	if err != nil {
		return nil, MovesResult{}, fmt.Errorf("compute moves: %w", err)
	}

	result := MovesResult{Selected: out.Selected, Valid: []Destination{}, Blocked: []BlockedHex{}}
	if !out.Selected {
		return nil, result, nil
	}
	moves := out.Moves
	result.EntityID = moves.EntityID
	result.Origin = Destination{Q: moves.Origin.Q, R: moves.Origin.R}
	result.Budget = moves.Budget
	result.BudgetName = moves.BudgetName
	result.BudgetSource = string(moves.BudgetSource)
	for _, pos := range moves.ValidPositions() {
		result.Valid = append(result.Valid, Destination{Q: pos.Q, R: pos.R, Remaining: moves.Valid[pos]})
	}
	for _, pos := range moves.BlockedPositions() {
		result.Blocked = append(result.Blocked, BlockedHex{Q: pos.Q, R: pos.R, Reasons: moves.Reasons(pos)})
	}
	s.logger.Printf("compute_moves: unit=%s valid=%d blocked=%d", result.EntityID, len(result.Valid), len(result.Blocked))
	return nil, result, nil
}

func (s *Server) saveWorkspaceHandler(ctx context.Context, _ *mcp.CallToolRequest, input SaveWorkspaceInput) (*mcp.CallToolResult, WorkspaceResult, error) {
	b, err := buildBundle(input.Path)
	if err != nil {
		return nil, WorkspaceResult{}, err
	}
	snapshot := storage.Capture(b.Types(), b.Ontology(), b.Board(), b.Selection())
	summary, err := s.store.PutWorkspace(ctx, input.Name, snapshot)
	if err != nil {
		return nil, WorkspaceResult{}, fmt.Errorf("save workspace: %w", err)
	}
	return nil, workspaceResult(summary), nil
}

func (s *Server) listWorkspacesHandler(ctx context.Context, _ *mcp.CallToolRequest, _ ListWorkspacesInput) (*mcp.CallToolResult, ListWorkspacesResult, error) {
	summaries, err := s.store.ListWorkspaces(ctx)
	if err != nil {
		return nil, ListWorkspacesResult{}, fmt.Errorf("list workspaces: %w", err)
	}
	result := ListWorkspacesResult{Workspaces: make([]WorkspaceResult, 0, len(summaries))}
	for _, summary := range summaries {
		result.Workspaces = append(result.Workspaces, workspaceResult(summary))
	}
	return nil, result, nil
}

func (s *Server) deleteWorkspaceHandler(ctx context.Context, _ *mcp.CallToolRequest, input DeleteWorkspaceInput) (*mcp.CallToolResult, DeleteWorkspaceResult, error) {
	if err := s.store.DeleteWorkspace(ctx, input.Name); err != nil {
		return nil, DeleteWorkspaceResult{}, fmt.Errorf("delete workspace: %w", err)
	}
	return nil, DeleteWorkspaceResult{Name: strings.TrimSpace(input.Name)}, nil
}

func workspaceResult(summary storage.WorkspaceSummary) WorkspaceResult {
	return WorkspaceResult{
		Name:        summary.Name,
		ContentHash: summary.ContentHash,
		UpdatedAt:   summary.UpdatedAt.Format(time.RFC3339),
	}
}
