package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"atelier/internal/catalog"
	"atelier/internal/config"
	"atelier/internal/jsonrpc"
	"atelier/internal/logging"
	"atelier/internal/pattern"

	"github.com/mark3labs/mcp-go/mcp"
)

// ProtocolVersion is the MCP revision announced by initialize.
const ProtocolVersion = "2024-11-05"

// Method names understood by the dispatcher.
const (
	MethodInitialize = "initialize"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"
)

// ContentArgument is the single input every pattern tool accepts.
const ContentArgument = "content"

const contentArgumentDescription = "The content to process with this pattern"

// Request outcomes reported to the Recorder.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Recorder observes handled requests.
type Recorder interface {
	ObserveRequest(method, outcome string, duration time.Duration)
}

// InitializeResult is the result of the initialize method.
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    Capabilities       `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

// Capabilities advertises tool support only.
type Capabilities struct {
	Tools struct{} `json:"tools"`
}

// ToolDescriptor is one entry of the tools/list result.
type ToolDescriptor struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	InputSchema mcp.ToolInputSchema `json:"inputSchema"`
}

// ListToolsResult is the result of the tools/list method.
type ListToolsResult struct {
	Tools []ToolDescriptor `json:"tools"`
}

// Server dispatches JSON-RPC requests against a pattern catalog.
type Server struct {
	config   *config.Config
	logger   *logging.AppLogger
	catalog  *catalog.Catalog
	recorder Recorder
}

// Option configures a Server.
type Option func(*Server)

// WithRecorder installs a request recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// NewServer creates a server and performs the initial pattern load. It fails
// when no patterns directory can be found.
func NewServer(ctx context.Context, cfg *config.Config, logger *logging.AppLogger, source catalog.Source, opts ...Option) (*Server, error) {
	logger.Info("Initializing MCP server")

	cat, err := catalog.Load(ctx, source, catalog.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to load patterns: %w", err)
	}

	s := NewServerWithCatalog(cfg, logger, cat, opts...)
	logger.Info("MCP server ready", "patterns", cat.Len())
	return s, nil
}

// NewServerWithCatalog creates a server over an existing catalog.
func NewServerWithCatalog(cfg *config.Config, logger *logging.AppLogger, cat *catalog.Catalog, opts ...Option) *Server {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if logger == nil {
		logger = logging.GetDefault()
	}
	s := &Server{
		config:  cfg,
		logger:  logger,
		catalog: cat,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the catalog served by s.
func (s *Server) Catalog() *catalog.Catalog {
	return s.catalog
}

// Reload refreshes the catalog. On failure the previous patterns keep being served.
func (s *Server) Reload(ctx context.Context) error {
	return s.catalog.Reload(ctx)
}

// HandleRequest routes a request to its handler. It never fails: every
// problem is reported as an error response addressed to the request id.
func (s *Server) HandleRequest(ctx context.Context, req jsonrpc.Request) jsonrpc.Response {
	start := time.Now()
	s.logger.Debug("Handling request", "method", req.Method, "id", string(req.ID))

	var resp jsonrpc.Response
	switch req.Method {
	case MethodInitialize:
		resp = s.handleInitialize(req)
	case MethodToolsList:
		resp = s.handleToolsList(req)
	case MethodToolsCall:
		resp = s.handleToolsCall(ctx, req)
	default:
		resp = jsonrpc.Error(req.ID, jsonrpc.CodeMethodNotFound, "Method not found")
	}

	if s.recorder != nil {
		outcome := OutcomeOK
		if resp.IsError() {
			outcome = OutcomeError
		}
		s.recorder.ObserveRequest(metricMethod(req.Method), outcome, time.Since(start))
	}
	return resp
}

func (s *Server) handleInitialize(req jsonrpc.Request) jsonrpc.Response {
	return jsonrpc.Success(req.ID, InitializeResult{
		ProtocolVersion: ProtocolVersion,
		ServerInfo: mcp.Implementation{
			Name:    s.config.Server.Name,
			Version: s.config.Server.Version,
		},
	})
}

func (s *Server) handleToolsList(req jsonrpc.Request) jsonrpc.Response {
	patterns := s.catalog.Snapshot()

	tools := make([]ToolDescriptor, 0, len(patterns))
	for _, p := range patterns {
		tools = append(tools, toolDescriptor(p))
	}

	return jsonrpc.Success(req.ID, ListToolsResult{Tools: tools})
}

func (s *Server) handleToolsCall(ctx context.Context, req jsonrpc.Request) jsonrpc.Response {
	var params map[string]any
	if err := json.Unmarshal(req.Params, &params); err != nil {
		params = nil
	}

	toolName, ok := params["name"].(string)
	if !ok {
		return jsonrpc.Error(req.ID, jsonrpc.CodeInternalError, "Missing tool name")
	}

	patternName, ok := pattern.NameFromToolName(toolName)
	if !ok {
		return jsonrpc.Error(req.ID, jsonrpc.CodeInternalError, fmt.Sprintf("Invalid tool name: %s", toolName))
	}

	args, _ := params["arguments"].(map[string]any)
	content, ok := args[ContentArgument].(string)
	if !ok {
		return jsonrpc.Error(req.ID, jsonrpc.CodeInternalError, "Missing content argument")
	}

	p, found := s.catalog.Find(patternName)
	if !found {
		return jsonrpc.Error(req.ID, jsonrpc.CodeInternalError, fmt.Sprintf("Pattern not found: %s", patternName))
	}

	s.logger.Debug("Rendering pattern", "name", p.Name, "contentBytes", len(content))

	text := RenderPrompt(p, content)
	return jsonrpc.Success(req.ID, mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(text)},
	})
}

// RenderPrompt assembles the text returned by tools/call.
func RenderPrompt(p pattern.Pattern, content string) string {
	var b strings.Builder
	b.WriteString("# System Prompt\n\n")
	b.WriteString(p.SystemPrompt)
	b.WriteString("\n\n")
	if p.UserPrompt != nil {
		b.WriteString("# User Prompt Template\n\n")
		b.WriteString(*p.UserPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("# Content to Process\n\n")
	b.WriteString(content)
	return b.String()
}

func toolDescriptor(p pattern.Pattern) ToolDescriptor {
	tool := mcp.NewTool(p.ToolName(),
		mcp.WithDescription(p.Description),
		mcp.WithString(ContentArgument,
			mcp.Required(),
			mcp.Description(contentArgumentDescription),
		),
	)
	return ToolDescriptor{
		Name:        tool.Name,
		Description: tool.Description,
		InputSchema: tool.InputSchema,
	}
}

// metricMethod bounds label cardinality to the known methods.
func metricMethod(method string) string {
	switch method {
	case MethodInitialize, MethodToolsList, MethodToolsCall:
		return method
	default:
		return "other"
	}
}
