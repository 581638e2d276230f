package ingest

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dockb/dockb/filescan"
	"github.com/dockb/dockb/kit"
	"github.com/dockb/dockb/pdfextract"
)

// MCPService exposes extraction and discovery as MCP tools, so agent hosts
// can drive the pipeline file by file without a batch run.
type MCPService struct {
	extractor  *pdfextract.Extractor
	scanner    *filescan.Scanner
	extensions []string
}

// NewMCPService creates the MCP tool surface.
func NewMCPService(extractor *pdfextract.Extractor, extensions []string, logger *slog.Logger) *MCPService {
	if logger == nil {
		logger = slog.Default()
	}
	if len(extensions) == 0 {
		extensions = []string{".pdf", ".txt", ".md"}
	}
	return &MCPService{
		extractor:  extractor,
		scanner:    filescan.New(filescan.Config{Logger: logger}),
		extensions: extensions,
	}
}

// RegisterMCP registers all tools on an MCP server.
func (m *MCPService) RegisterMCP(srv *mcp.Server) {
	m.registerExtractTool(srv)
	m.registerInfoTool(srv)
	m.registerDiscoverTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// --- extract ---

type extractReq struct {
	Path string `json:"path"`
}

func (m *MCPService) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dockb_extract",
		Description: "Extract text and OCR'd image documents from a PDF file.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "PDF file path to extract"},
		}, []string{"path"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*extractReq)
		return m.extractor.Extract(ctx, r.Path)
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var r extractReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &r, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- pdf info ---

type infoReq struct {
	Path string `json:"path"`
}

func (m *MCPService) registerInfoTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dockb_pdf_info",
		Description: "Probe a PDF for page count, metadata, size and encryption.",
		InputSchema: inputSchema(map[string]any{
			"path": map[string]any{"type": "string", "description": "PDF file path to probe"},
		}, []string{"path"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*infoReq)
		return m.extractor.Info(r.Path), nil
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var r infoReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &r, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- discover ---

type discoverReq struct {
	Dir     string `json:"dir"`
	Pattern string `json:"pattern,omitempty"`
}

func (m *MCPService) registerDiscoverTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "dockb_discover",
		Description: "List candidate document files in a directory with size and readability metadata.",
		InputSchema: inputSchema(map[string]any{
			"dir":     map[string]any{"type": "string", "description": "Directory to scan"},
			"pattern": map[string]any{"type": "string", "description": "Glob pattern, default *"},
		}, []string{"dir"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*discoverReq)
		pattern := r.Pattern
		if pattern == "" {
			pattern = "*"
		}
		records := m.scanner.Discover(r.Dir, pattern, m.extensions)
		if records == nil {
			records = []filescan.FileRecord{}
		}
		return map[string]any{"files": records, "count": len(records)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (any, error) {
		var r discoverReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &r, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
