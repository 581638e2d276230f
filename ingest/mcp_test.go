package ingest

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dockb/dockb/filescan"
	"github.com/dockb/dockb/pdfextract"
)

var testMCPImpl = &mcp.Implementation{Name: "dockb-test", Version: "0.1.0"}

func mcpSession(t *testing.T) *mcp.ClientSession {
	t.Helper()
	extractor, err := pdfextract.New(pdfextract.Config{ImageDir: t.TempDir()})
	if err != nil {
		t.Fatalf("extractor: %v", err)
	}
	svc := NewMCPService(extractor, nil, nil)
	srv := mcp.NewServer(testMCPImpl, nil)
	svc.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if result.IsError {
		t.Fatalf("CallTool(%s) returned a tool error: %v", name, result.Content)
	}
	tc, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): expected TextContent", name)
	}
	return tc.Text
}

func TestMCP_Discover(t *testing.T) {
	// WHAT: dockb_discover lists allow-listed files with metadata.
	// WHY: Agent hosts drive discovery through this tool before asking
	// for per-file extraction.
	session := mcpSession(t)
	src := writeSourceFiles(t, "a.pdf", "b.txt", "ignored.bin")

	text := mcpCallTool(t, session, "dockb_discover", map[string]any{"dir": src})

	var resp struct {
		Files []filescan.FileRecord `json:"files"`
		Count int                   `json:"count"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Count != 2 || len(resp.Files) != 2 {
		t.Fatalf("count = %d, files = %d, want 2", resp.Count, len(resp.Files))
	}
	for _, f := range resp.Files {
		if f.Name == "ignored.bin" {
			t.Error("bin file should be excluded by the allow-list")
		}
		if f.SizeBytes == 0 || !f.Readable {
			t.Errorf("file metadata incomplete: %+v", f)
		}
	}
}

func TestMCP_DiscoverMissingDir(t *testing.T) {
	// WHAT: A nonexistent directory yields an empty listing, not an error.
	session := mcpSession(t)

	text := mcpCallTool(t, session, "dockb_discover",
		map[string]any{"dir": filepath.Join(t.TempDir(), "nope")})

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 0 {
		t.Errorf("count = %d, want 0", resp.Count)
	}
}

func TestMCP_PDFInfoMissingFile(t *testing.T) {
	// WHAT: The info probe degrades to a zero record for missing files.
	// WHY: Probing is advisory and must not error a tool call.
	session := mcpSession(t)

	text := mcpCallTool(t, session, "dockb_pdf_info",
		map[string]any{"path": filepath.Join(t.TempDir(), "gone.pdf")})

	var info pdfextract.PDFInfo
	if err := json.Unmarshal([]byte(text), &info); err != nil {
		t.Fatal(err)
	}
	if info.PageCount != 0 || info.FileSize != 0 {
		t.Errorf("info = %+v, want zero", info)
	}
}

func TestMCP_ExtractMissingFileIsToolError(t *testing.T) {
	// WHAT: Extraction failures surface as tool errors, not transport
	// errors.
	session := mcpSession(t)

	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "dockb_extract",
		Arguments: map[string]any{"path": filepath.Join(t.TempDir(), "gone.pdf")},
	})
	if err != nil {
		t.Fatalf("transport error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected tool error for missing file")
	}
}
