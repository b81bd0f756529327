package mcp

import (
	"context"
	"errors"
	"slices"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/inkwellhq/inkwell/pkg/catalog"
	"github.com/inkwellhq/inkwell/pkg/storage"
)

var (
	listBlueprintsToolName    = "list_blueprints"
	listBlueprintsDescription = "List the content blueprints owned by the caller. Admins may pass an owner ID, or \"*\" for every blueprint."

	categoryTreeToolName    = "get_category_tree"
	categoryTreeDescription = "Return the category tree (categories, sub-categories and their fields with current values) of a project or blueprint."
)

// ListBlueprintsInput represents the input arguments for list_blueprints.
type ListBlueprintsInput struct {
	OwnerID string `json:"owner_id,omitempty" jsonschema:"owner user ID; admins only, \"*\" lists every owner"`
}

// BlueprintSummary is one list_blueprints entry.
type BlueprintSummary struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	OwnerID     string   `json:"owner_id"`
	Slots       []string `json:"slots,omitempty"`
	FieldCount  int      `json:"field_count"`
}

// ListBlueprintsOutput represents the structured output of list_blueprints.
type ListBlueprintsOutput struct {
	Blueprints []BlueprintSummary `json:"blueprints"`
	Count      int                `json:"count"`
}

// CategoryTreeInput represents the input arguments for get_category_tree.
type CategoryTreeInput struct {
	ProjectID   string `json:"project_id,omitempty" jsonschema:"the project to read; takes precedence over blueprint_id"`
	BlueprintID string `json:"blueprint_id,omitempty" jsonschema:"the blueprint to read"`
}

// CategoryNode is one category of a flattened tree. Nodes are listed depth
// first, parents before children, so the tree can be rebuilt from ParentID.
type CategoryNode struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	ParentID string          `json:"parent_id,omitempty"`
	Path     string          `json:"path" jsonschema:"category names from the top level down, joined with \" / \""`
	Depth    int             `json:"depth" jsonschema:"1 for a category, 2 for a sub-category, 3 for a third-category"`
	Fields   []catalog.Field `json:"fields,omitempty"`
}

// CategoryTreeOutput represents the structured output of get_category_tree.
type CategoryTreeOutput struct {
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Name       string         `json:"name"`
	Categories []CategoryNode `json:"categories"`
}

func (s *Server) handleListBlueprints(ctx context.Context, _ *mcp.CallToolRequest, input ListBlueprintsInput) (*mcp.CallToolResult, ListBlueprintsOutput, error) {
	id, denied := callerIdentity(ctx)
	if denied != nil {
		return denied, ListBlueprintsOutput{}, nil
	}

	owner := id.UserID
	if input.OwnerID != "" && input.OwnerID != id.UserID {
		if !id.IsAdmin() {
			return toolError("only admins may list other users' blueprints"), ListBlueprintsOutput{}, nil
		}
		owner = input.OwnerID
		if owner == "*" {
			owner = ""
		}
	}

	blueprints, err := s.config.Blueprints.ListBlueprints(ctx, owner)
	if err != nil {
		return toolError("Listing blueprints failed: %v", err), ListBlueprintsOutput{}, nil
	}

	output := ListBlueprintsOutput{Blueprints: make([]BlueprintSummary, 0, len(blueprints))}
	for _, b := range blueprints {
		output.Blueprints = append(output.Blueprints, summarize(b))
	}
	output.Count = len(output.Blueprints)

	s.config.Logger.Debug("MCP list_blueprints", "user_id", id.UserID, "count", output.Count)
	return toolJSON(output), output, nil
}

func (s *Server) handleCategoryTree(ctx context.Context, _ *mcp.CallToolRequest, input CategoryTreeInput) (*mcp.CallToolResult, CategoryTreeOutput, error) {
	id, denied := callerIdentity(ctx)
	if denied != nil {
		return denied, CategoryTreeOutput{}, nil
	}

	var output CategoryTreeOutput
	switch {
	case input.ProjectID != "":
		p, err := s.config.Projects.GetProject(ctx, input.ProjectID)
		if err != nil {
			return lookupError(err), CategoryTreeOutput{}, nil
		}
		if !id.CanAccess(p.OwnerID) {
			return toolError("project %s is not accessible", p.ID), CategoryTreeOutput{}, nil
		}
		output = CategoryTreeOutput{EntityType: catalog.EntityProject, EntityID: p.ID, Name: p.Name, Categories: flatten(p.Categories)}

	case input.BlueprintID != "":
		b, err := s.config.Blueprints.GetBlueprint(ctx, input.BlueprintID)
		if err != nil {
			return lookupError(err), CategoryTreeOutput{}, nil
		}
		if !id.CanAccess(b.OwnerID) {
			return toolError("blueprint %s is not accessible", b.ID), CategoryTreeOutput{}, nil
		}
		output = CategoryTreeOutput{EntityType: catalog.EntityBlueprint, EntityID: b.ID, Name: b.Name, Categories: flatten(b.Categories)}

	default:
		return toolError("project_id or blueprint_id is required"), CategoryTreeOutput{}, nil
	}

	return toolJSON(output), output, nil
}

// flatten lists tree depth first. The recursive catalog.Category cannot be
// described by a JSON schema, so the tool reports nodes instead.
func flatten(tree []catalog.Category) []CategoryNode {
	nodes := []CategoryNode{}
	var visit func(cats []catalog.Category, parent *CategoryNode)
	visit = func(cats []catalog.Category, parent *CategoryNode) {
		for _, c := range cats {
			node := CategoryNode{ID: c.ID, Name: c.Name, Path: c.Name, Depth: 1, Fields: c.Fields}
			if parent != nil {
				node.ParentID = parent.ID
				node.Path = parent.Path + " / " + c.Name
				node.Depth = parent.Depth + 1
			}
			nodes = append(nodes, node)
			visit(c.Children, &node)
		}
	}
	visit(tree, nil)
	return nodes
}

func summarize(b *catalog.Blueprint) BlueprintSummary {
	sum := BlueprintSummary{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		OwnerID:     b.OwnerID,
		FieldCount:  len(catalog.Fields(b.Categories)),
	}
	for slot := range b.Values {
		sum.Slots = append(sum.Slots, slot)
	}
	slices.Sort(sum.Slots)
	return sum
}

func lookupError(err error) *mcp.CallToolResult {
	if errors.Is(err, storage.ErrNotFound) {
		return toolError("%v", err)
	}
	return toolError("Lookup failed: %v", err)
}
