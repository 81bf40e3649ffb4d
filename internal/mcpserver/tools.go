package mcpserver

import (
	"context"
	"errors"

	"github.com/akolanti/AuditRAG/internal/adapter/utils"
	"github.com/akolanti/AuditRAG/internal/config"
	"github.com/akolanti/AuditRAG/internal/domain/commonModels"
	"github.com/akolanti/AuditRAG/internal/domain/jobModel"
	"github.com/akolanti/AuditRAG/internal/security"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question string `json:"question" jsonschema:"the question to answer from the audit document corpus"`
	Role     string `json:"role,omitempty" jsonschema:"requester role deciding document access (admin, apac_auditor, emea_auditor, viewer); defaults to viewer"`
	Engine   string `json:"engine,omitempty" jsonschema:"query engine: standard, router or sub_question (default standard)"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer    string                   `json:"answer"`
	Sources   []commonModels.SourceRef `json:"sources,omitempty"`
	Engine    string                   `json:"engine"`
	FromCache bool                     `json:"from_cache"`
}

// the MCP surface defaults to the most restricted role; callers opt into
// wider access explicitly
const defaultMCPRole = "viewer"

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the search query to find relevant document chunks"`
	Role  string `json:"role,omitempty" jsonschema:"requester role deciding document access; defaults to viewer"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 5)"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []commonModels.SourceRef `json:"results"`
	Count   int                      `json:"count"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed audit, policy and financial documents, with source citations",
	}, s.handleAsk)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Retrieve relevant document chunks without generating an answer",
	}, s.handleSearch)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	role := input.Role
	if role == "" {
		role = defaultMCPRole
	}
	user, err := security.ResolveRole(role)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	ctx = context.WithValue(ctx, config.TRACE_ID_KEY, utils.GetNewUUID())
	results := s.ragService.Search(ctx, input.Query, user.Groups, input.Limit)
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	role := input.Role
	if role == "" {
		role = defaultMCPRole
	}
	user, err := security.ResolveRole(role)
	if err != nil {
		return nil, AskOutput{}, err
	}

	traceId := utils.GetNewUUID()
	ctx = context.WithValue(ctx, config.TRACE_ID_KEY, traceId)

	job := jobModel.Job{
		Id:      utils.GetNewUUID(),
		TraceId: traceId,
		JobType: jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{
			Question:        input.Question,
			Engine:          commonModels.NormalizeEngine(commonModels.QueryEngine(input.Engine)),
			Role:            user.Role,
			PermittedGroups: []string(user.Groups),
		},
	}

	result := s.ragService.ProcessRequest(ctx, job)
	if result.Status == jobModel.JobStatusError {
		s.logger.Error("MCP ask failed", "traceId", traceId, "message", result.Error.Message)
		if result.Error.Message != "" {
			return nil, AskOutput{}, errors.New(result.Error.Message)
		}
		return nil, AskOutput{}, errors.New("question processing failed")
	}

	return nil, AskOutput{
		Answer:    result.JobPayload.Answer,
		Sources:   result.JobPayload.Sources,
		Engine:    string(result.JobPayload.Engine),
		FromCache: result.JobPayload.FromCache,
	}, nil
}
