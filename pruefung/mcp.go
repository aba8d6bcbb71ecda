package pruefung

import (
	"context"
	"encoding/json"

	"github.com/hazyhaar/pruefbuch/kit"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// RegisterMCP registers all audit tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerPutCriteria(srv)
	s.registerSyncBidder(srv)
	s.registerSyncProject(srv)
	s.registerNextOpen(srv)
	s.registerRecordReview(srv)
	s.registerGetRecord(srv)
	s.registerListEntries(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func (s *Service) registerPutCriteria(srv *mcp.Server) {
	type req struct {
		Project  string      `json:"project"`
		Criteria []Criterion `json:"criteria"`
	}

	tool := &mcp.Tool{
		Name:        "pruefbuch_put_criteria",
		Description: "Replace the criterion status source of a project",
		InputSchema: inputSchema(map[string]any{
			"project":  map[string]any{"type": "string", "description": "Project ID"},
			"criteria": map[string]any{"type": "array", "description": "Criteria list: {id, status, priority?}"},
		}, []string{"project", "criteria"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		if err := s.PutCriteria(ctx, p.Project, p.Criteria); err != nil {
			return nil, err
		}
		return map[string]int{"count": len(p.Criteria)}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeMCP[req])
}

func (s *Service) registerSyncBidder(srv *mcp.Server) {
	type req struct {
		Project string `json:"project"`
		Bidder  string `json:"bidder"`
	}

	tool := &mcp.Tool{
		Name:        "pruefbuch_sync_bidder",
		Description: "Synchronize project criteria into one bidder's audit record",
		InputSchema: inputSchema(map[string]any{
			"project": map[string]any{"type": "string", "description": "Project ID"},
			"bidder":  map[string]any{"type": "string", "description": "Bidder ID"},
		}, []string{"project", "bidder"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.SyncBidder(ctx, p.Project, p.Bidder)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeMCP[req])
}

func (s *Service) registerSyncProject(srv *mcp.Server) {
	type req struct {
		Project string `json:"project"`
	}

	tool := &mcp.Tool{
		Name:        "pruefbuch_sync_project",
		Description: "Synchronize project criteria into every registered bidder's audit record",
		InputSchema: inputSchema(map[string]any{
			"project": map[string]any{"type": "string", "description": "Project ID"},
		}, []string{"project"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.SyncProject(ctx, p.Project)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeMCP[req])
}

func (s *Service) registerNextOpen(srv *mcp.Server) {
	type req struct {
		Project string `json:"project"`
		Bidder  string `json:"bidder"`
	}

	tool := &mcp.Tool{
		Name:        "pruefbuch_next_open",
		Description: "Next unreviewed relevant criterion for a bidder (priority desc, id asc)",
		InputSchema: inputSchema(map[string]any{
			"project": map[string]any{"type": "string", "description": "Project ID"},
			"bidder":  map[string]any{"type": "string", "description": "Bidder ID"},
		}, []string{"project", "bidder"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		next, err := s.NextOpen(ctx, p.Project, p.Bidder)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return map[string]bool{"done": true}, nil
		}
		return next, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeMCP[req])
}

func (s *Service) registerRecordReview(srv *mcp.Server) {
	type req struct {
		Project   string  `json:"project"`
		Bidder    string  `json:"bidder"`
		Criterion string  `json:"criterion"`
		Kind      string  `json:"kind"`
		Outcome   *string `json:"outcome,omitempty"`
		Actor     string  `json:"actor,omitempty"`
		Note      string  `json:"note,omitempty"`
	}

	tool := &mcp.Tool{
		Name:        "pruefbuch_record_review",
		Description: "Record a review event (ai_review, human_review, approve, reject) for a criterion",
		InputSchema: inputSchema(map[string]any{
			"project":   map[string]any{"type": "string", "description": "Project ID"},
			"bidder":    map[string]any{"type": "string", "description": "Bidder ID"},
			"criterion": map[string]any{"type": "string", "description": "Criterion ID"},
			"kind":      map[string]any{"type": "string", "description": "ai_review | human_review | approve | reject"},
			"outcome":   map[string]any{"type": "string", "description": "Review outcome (ok, fail, review_needed, score)"},
			"actor":     map[string]any{"type": "string", "description": "automation | human | system"},
			"note":      map[string]any{"type": "string", "description": "Free-text note"},
		}, []string{"project", "bidder", "criterion", "kind"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.Record(ctx, p.Project, p.Bidder, p.Criterion, ReviewInput{
			Kind:    EventKind(p.Kind),
			Outcome: p.Outcome,
			Actor:   Actor(p.Actor),
			Note:    p.Note,
		})
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeMCP[req])
}

func (s *Service) registerGetRecord(srv *mcp.Server) {
	type req struct {
		Project string `json:"project"`
		Bidder  string `json:"bidder"`
	}

	tool := &mcp.Tool{
		Name:        "pruefbuch_get_record",
		Description: "Full audit record of one bidder: entries with assessments and event logs",
		InputSchema: inputSchema(map[string]any{
			"project": map[string]any{"type": "string", "description": "Project ID"},
			"bidder":  map[string]any{"type": "string", "description": "Bidder ID"},
		}, []string{"project", "bidder"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return s.GetRecord(ctx, p.Project, p.Bidder)
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeMCP[req])
}

func (s *Service) registerListEntries(srv *mcp.Server) {
	type req struct {
		Project string `json:"project"`
		Bidder  string `json:"bidder"`
	}

	tool := &mcp.Tool{
		Name:        "pruefbuch_list_entries",
		Description: "Open entries of a bidder's audit record, in consumption order",
		InputSchema: inputSchema(map[string]any{
			"project": map[string]any{"type": "string", "description": "Project ID"},
			"bidder":  map[string]any{"type": "string", "description": "Bidder ID"},
		}, []string{"project", "bidder"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		entries, err := s.ListEntries(ctx, p.Project, p.Bidder)
		if err != nil {
			return nil, err
		}
		if entries == nil {
			entries = []*Entry{}
		}
		return entries, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeMCP[req])
}

// decodeMCP unmarshals MCP tool arguments into the tool's request type.
func decodeMCP[T any](r *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var p T
	if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &p}, nil
}
