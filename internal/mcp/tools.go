package mcp

import (
	"context"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"lancermigrate/internal/entity"
	"lancermigrate/internal/migrate"
	"lancermigrate/internal/patch"
	"lancermigrate/internal/validate"
)

type ComputeUpdateInput struct {
	Kind     string         `json:"kind" jsonschema:"entity kind: Actor, Item or Scene"`
	Document map[string]any `json:"document" jsonschema:"the stored document to compute an update for"`
}

type ListCatalogsInput struct{}

type MigrateCatalogInput struct {
	Collection string `json:"collection" jsonschema:"catalog collection key, e.g. lancer.frames"`
}

type ValidateInput struct{}

type OperationOutput struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value,omitempty"`
}

type ComputeUpdateOutput struct {
	Empty      bool              `json:"empty"`
	Operations []OperationOutput `json:"operations"`
	Sparse     map[string]any    `json:"sparse"`
}

type CatalogOutput struct {
	Title      string `json:"title"`
	Collection string `json:"collection"`
	Package    string `json:"package"`
	Entity     string `json:"entity"`
	Locked     bool   `json:"locked"`
	Protected  bool   `json:"protected"`
}

type ListCatalogsOutput struct {
	Catalogs []CatalogOutput `json:"catalogs"`
}

type MigrateCatalogOutput struct {
	Collection string   `json:"collection"`
	Entity     string   `json:"entity"`
	Updated    int      `json:"updated"`
	Unchanged  int      `json:"unchanged"`
	Failed     int      `json:"failed"`
	Skipped    bool     `json:"skipped"`
	Errors     []string `json:"errors"`
}

type IssueOutput struct {
	Severity   string `json:"severity"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Collection string `json:"collection"`
	Entity     string `json:"entity,omitempty"`
}

type ValidateOutput struct {
	Errors   int           `json:"errors"`
	Warnings int           `json:"warnings"`
	Issues   []IssueOutput `json:"issues"`
}

func (s *Server) registerTools() {
	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "compute_update",
		Description: "Compute the migration update for one document without writing it",
	}, s.handleComputeUpdate)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "list_catalogs",
		Description: "List catalogs with their entity kind and lock state",
	}, s.handleListCatalogs)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "migrate_catalog",
		Description: "Migrate every document of one catalog",
	}, s.handleMigrateCatalog)

	sdk.AddTool(s.mcp, &sdk.Tool{
		Name:        "validate",
		Description: "Report deprecated fields, dangling token actors and catalogs that cannot be migrated",
	}, s.handleValidate)
}

func (s *Server) handleComputeUpdate(ctx context.Context, req *sdk.CallToolRequest, input ComputeUpdateInput) (*sdk.CallToolResult, ComputeUpdateOutput, error) {
	if input.Document == nil {
		return nil, ComputeUpdateOutput{}, fmt.Errorf("document is required")
	}
	kind, err := entity.ParseKind(input.Kind)
	if err != nil {
		return nil, ComputeUpdateOutput{}, err
	}
	doc, err := entity.FromTree(input.Document)
	if err != nil {
		return nil, ComputeUpdateOutput{}, fmt.Errorf("decoding document: %w", err)
	}
	e, err := entity.Wrap(kind, doc)
	if err != nil {
		return nil, ComputeUpdateOutput{}, err
	}

	payload, err := s.migrator.Rules().ComputeUpdate(ctx, e, migrate.WorldActors(s.db))
	if err != nil {
		return nil, ComputeUpdateOutput{}, err
	}
	return nil, computeUpdateOutput(payload), nil
}

func (s *Server) handleListCatalogs(ctx context.Context, req *sdk.CallToolRequest, input ListCatalogsInput) (*sdk.CallToolResult, ListCatalogsOutput, error) {
	catalogs, err := s.db.ListCatalogs(ctx)
	if err != nil {
		return nil, ListCatalogsOutput{}, err
	}

	output := make([]CatalogOutput, 0, len(catalogs))
	for _, c := range catalogs {
		output = append(output, CatalogOutput{
			Title:      c.Title,
			Collection: c.Collection,
			Package:    c.Metadata.Package,
			Entity:     c.Metadata.Entity,
			Locked:     c.Locked,
			Protected:  c.Protected,
		})
	}
	return nil, ListCatalogsOutput{Catalogs: output}, nil
}

func (s *Server) handleMigrateCatalog(ctx context.Context, req *sdk.CallToolRequest, input MigrateCatalogInput) (*sdk.CallToolResult, MigrateCatalogOutput, error) {
	if input.Collection == "" {
		return nil, MigrateCatalogOutput{}, fmt.Errorf("collection is required")
	}
	result, err := s.migrator.MigrateCompendium(ctx, input.Collection)
	if err != nil {
		return nil, MigrateCatalogOutput{}, err
	}

	output := MigrateCatalogOutput{
		Collection: result.Collection,
		Entity:     string(result.Kind),
		Updated:    result.Updated,
		Unchanged:  result.Unchanged,
		Failed:     result.Failed,
		Skipped:    result.Skipped,
		Errors:     make([]string, 0, len(result.Errors)),
	}
	for _, e := range result.Errors {
		output.Errors = append(output.Errors, e.Error())
	}
	return nil, output, nil
}

func (s *Server) handleValidate(ctx context.Context, req *sdk.CallToolRequest, input ValidateInput) (*sdk.CallToolResult, ValidateOutput, error) {
	report, err := validate.Run(ctx, s.db, s.suffix)
	if err != nil {
		return nil, ValidateOutput{}, err
	}

	output := ValidateOutput{
		Errors:   report.Count(validate.SeverityError),
		Warnings: report.Count(validate.SeverityWarn),
		Issues:   make([]IssueOutput, 0, len(report.Issues)),
	}
	for _, issue := range report.Issues {
		output.Issues = append(output.Issues, IssueOutput{
			Severity:   string(issue.Severity),
			Code:       issue.Code,
			Message:    issue.Message,
			Collection: issue.Collection,
			Entity:     issue.Entity,
		})
	}
	return nil, output, nil
}

func computeUpdateOutput(p patch.Payload) ComputeUpdateOutput {
	out := ComputeUpdateOutput{
		Empty:      p.IsEmpty(),
		Operations: make([]OperationOutput, 0, len(p)),
		Sparse:     p.Sparse(),
	}
	for _, op := range p {
		o := OperationOutput{Op: op.Kind.String(), Path: op.Path.String()}
		if op.Kind == patch.OpSet {
			o.Value = op.Value
		}
		out.Operations = append(out.Operations, o)
	}
	return out
}
