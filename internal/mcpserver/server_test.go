package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/quire/internal/docservice"
	"github.com/starford/quire/internal/session"
	"github.com/starford/quire/internal/testutil"
)

func testServer(t *testing.T) (*Server, *docservice.Service) {
	t.Helper()
	docs := testutil.TestDocs(t)
	return New(docs, session.NewManager(docs, nil)), docs
}

type toolHandler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

// callTool invokes a handler directly; mcp-go has no in-process call helper.
func callTool(t *testing.T, h toolHandler, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Arguments = args

	result, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("tool error: %v", err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func mustCreate(t *testing.T, docs *docservice.Service, path, content string) {
	t.Helper()
	if _, err := docs.Create(context.Background(), path, []byte(content)); err != nil {
		t.Fatalf("Create %s: %v", path, err)
	}
}

func TestCreateAndReadDocument(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv.createDocument, map[string]any{"path": "test.md", "content": "# Test\nHello"})
	if text := resultText(r); text != "created: test.md" {
		t.Errorf("create result = %q", text)
	}
	r = callTool(t, srv.createDocument, map[string]any{"path": "test.md", "content": "again"})
	if !r.IsError {
		t.Error("expected error creating an existing document")
	}

	r = callTool(t, srv.readDocument, map[string]any{"path": "test.md"})
	if text := resultText(r); text != "# Test\nHello" {
		t.Errorf("read result = %q", text)
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv.readDocument, map[string]any{"path": "nope.md"})
	if !r.IsError || !strings.Contains(resultText(r), "not found") {
		t.Errorf("result = %+v", r)
	}
}

func TestUpdateDocument_Checksum(t *testing.T) {
	srv, docs := testServer(t)
	mustCreate(t, docs, "u.md", "old")

	r := callTool(t, srv.updateDocument, map[string]any{"path": "u.md", "content": "new", "checksum": "stale"})
	if !r.IsError {
		t.Error("expected conflict on stale checksum")
	}
	r = callTool(t, srv.updateDocument, map[string]any{"path": "u.md", "content": "new"})
	if r.IsError {
		t.Fatalf("update failed: %s", resultText(r))
	}
	if got, _ := docs.Read(context.Background(), "u.md"); got != "new" {
		t.Errorf("stored = %q", got)
	}
}

func TestListDocuments(t *testing.T) {
	srv, docs := testServer(t)
	mustCreate(t, docs, "b.md", "b is #work")
	mustCreate(t, docs, "a.md", "a")

	if text := resultText(callTool(t, srv.listDocuments, map[string]any{})); text != "a.md\nb.md" {
		t.Errorf("list = %q", text)
	}
	if text := resultText(callTool(t, srv.listDocuments, map[string]any{"tag": "work"})); text != "b.md" {
		t.Errorf("list by tag = %q", text)
	}
}

func TestParseDocument(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv.parseDocument, map[string]any{"text": "# Title\n\n- item"})
	var doc struct {
		Text   string `json:"text"`
		Blocks []struct {
			Type string `json:"type"`
		} `json:"blocks"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Text != "# Title\n\n- item" || len(doc.Blocks) != 3 {
		t.Errorf("parsed = %+v", doc)
	}
	if doc.Blocks[0].Type != "heading" {
		t.Errorf("first block = %q, want heading", doc.Blocks[0].Type)
	}
}

func TestGetOutline(t *testing.T) {
	srv, docs := testServer(t)
	mustCreate(t, docs, "o.md", "# One\n\n## Two")

	text := resultText(callTool(t, srv.getOutline, map[string]any{"path": "o.md"}))
	if text != "One (offset 0)\n  Two (offset 7)\n" {
		t.Errorf("outline = %q", text)
	}
	if r := callTool(t, srv.getOutline, map[string]any{"path": "missing.md"}); !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestSearchDocuments(t *testing.T) {
	srv, docs := testServer(t)
	mustCreate(t, docs, "s.md", "needle in a haystack")

	text := resultText(callTool(t, srv.searchDocuments, map[string]any{"query": "needle"}))
	if !strings.Contains(text, `"s.md"`) {
		t.Errorf("search = %q", text)
	}
}

func TestGetBacklinks(t *testing.T) {
	srv, docs := testServer(t)
	mustCreate(t, docs, "a.md", "links to [[b]]")

	if text := resultText(callTool(t, srv.getBacklinks, map[string]any{"path": "b.md"})); text != "a.md" {
		t.Errorf("backlinks = %q, want a.md", text)
	}
	if text := resultText(callTool(t, srv.getBacklinks, map[string]any{"path": "a.md"})); text != "no backlinks found" {
		t.Errorf("backlinks = %q", text)
	}
}

func TestEditDocument(t *testing.T) {
	srv, docs := testServer(t)
	mustCreate(t, docs, "e.md", "- ab")

	args := map[string]any{"path": "e.md", "offset": 3, "type": "insertParagraph"}
	var res editResult
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv.editDocument, args))), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Applied || res.Text != "- a\n- b" || res.Checksum != "" {
		t.Errorf("dry run = %+v", res)
	}
	if got, _ := docs.Read(context.Background(), "e.md"); got != "- ab" {
		t.Errorf("dry run wrote %q", got)
	}

	args = map[string]any{"path": "e.md", "offset": 4, "type": "insertText", "text": "c", "save": true}
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv.editDocument, args))), &res); err != nil {
		t.Fatal(err)
	}
	if res.Text != "- abc" || res.Checksum == "" {
		t.Errorf("saved edit = %+v", res)
	}
	if got, _ := docs.Read(context.Background(), "e.md"); got != "- abc" {
		t.Errorf("stored = %q", got)
	}
	if srv.sessions.Len() != 0 {
		t.Errorf("sessions left open: %d", srv.sessions.Len())
	}

	r := callTool(t, srv.editDocument, map[string]any{"path": "e.md", "offset": 99, "type": "insertText", "text": "x"})
	if !r.IsError {
		t.Error("expected error for offset past the end")
	}
}

func TestDiffDocument(t *testing.T) {
	srv, docs := testServer(t)
	mustCreate(t, docs, "d.md", "one\n")

	text := resultText(callTool(t, srv.diffDocument, map[string]any{"path": "d.md", "content": "two\n"}))
	if !strings.Contains(text, "-one") || !strings.Contains(text, "+two") {
		t.Errorf("diff = %q", text)
	}
	if text := resultText(callTool(t, srv.diffDocument, map[string]any{"path": "d.md", "content": "one\n"})); text != "no changes" {
		t.Errorf("diff of equal text = %q", text)
	}
}

func TestFormatContract(t *testing.T) {
	srv, _ := testServer(t)
	if text := resultText(callTool(t, srv.getFormatContract, nil)); text != FormatContract {
		t.Error("contract tool does not return the contract")
	}
	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
	if tc, ok := contents[0].(mcp.TextResourceContents); !ok || tc.URI != formatURI {
		t.Errorf("resource contents = %+v", contents[0])
	}
}
