// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes quire's documents and editor to LLM clients via stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	diff "github.com/shogoki/gotextdiff"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/docservice"
	"github.com/starford/quire/internal/markdown/ast"
	"github.com/starford/quire/internal/markdown/parser"
	"github.com/starford/quire/internal/markdown/resolve"
	"github.com/starford/quire/internal/session"
)

const formatURI = "quire://document-format"

// Server wraps the MCP server with quire tools.
type Server struct {
	mcp      *server.MCPServer
	docs     *docservice.Service
	sessions *session.Manager
}

// New creates a new MCP server with all tools registered.
func New(docs *docservice.Service, sessions *session.Manager) *Server {
	s := &Server{docs: docs, sessions: sessions}

	s.mcp = server.NewMCPServer(
		"Quire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List stored documents, optionally filtered by tag."),
		mcp.WithString("tag", mcp.Description("Only list documents carrying this tag")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the raw Markdown text of a document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. folder/doc.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create a new Markdown document. Read the format contract first via "+
			"get_format_contract or the "+formatURI+" resource."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path for the new document (must end with .md)")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown text")),
	), s.createDocument)

	s.mcp.AddTool(mcp.NewTool("update_document",
		mcp.WithDescription("Replace the text of an existing document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New Markdown text")),
		mcp.WithString("checksum", mcp.Description("Checksum of the text being replaced; the update fails if it changed")),
	), s.updateDocument)

	s.mcp.AddTool(mcp.NewTool("parse_document",
		mcp.WithDescription("Parse Markdown into the editor's block/inline tree and return it as JSON. "+
			"Pass either a stored document path or raw text."),
		mcp.WithString("path", mcp.Description("Stored document to parse")),
		mcp.WithString("text", mcp.Description("Raw Markdown to parse when no path is given")),
	), s.parseDocument)

	s.mcp.AddTool(mcp.NewTool("get_outline",
		mcp.WithDescription("Return the heading outline of a document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
	), s.getOutline)

	s.mcp.AddTool(mcp.NewTool("search_documents",
		mcp.WithDescription("Full-text search through document titles, tags and text."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 20)")),
	), s.searchDocuments)

	s.mcp.AddTool(mcp.NewTool("get_backlinks",
		mcp.WithDescription("Find all documents that link to the specified document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path of the document to find backlinks for")),
	), s.getBacklinks)

	s.mcp.AddTool(mcp.NewTool("edit_document",
		mcp.WithDescription("Apply one editor input event at a byte offset, the way a keystroke would. "+
			"Returns the resulting text and a diff. Nothing is written unless save is true."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithNumber("offset", mcp.Required(), mcp.Description("Byte offset of the caret in the document text")),
		mcp.WithString("type", mcp.Required(),
			mcp.Enum("insertText", "insertParagraph", "insertLineBreak", "deleteContentBackward", "deleteContentForward"),
			mcp.Description("Input event type")),
		mcp.WithString("text", mcp.Description("Text to insert for insertText")),
		mcp.WithBoolean("save", mcp.Description("Persist the result")),
	), s.editDocument)

	s.mcp.AddTool(mcp.NewTool("diff_document",
		mcp.WithDescription("Unified diff from a stored document to proposed text."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Proposed Markdown text")),
	), s.diffDocument)

	s.mcp.AddTool(mcp.NewTool("get_format_contract",
		mcp.WithDescription("Returns the Markdown syntax quire understands and how edits behave."),
	), s.getFormatContract)

	s.mcp.AddResource(
		mcp.NewResource(formatURI, "Document Format Contract",
			mcp.WithResourceDescription("Markdown syntax and editing behavior of quire documents."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrConflict) {
		return mcp.NewToolResultError("document changed since it was read")
	}
	return mcp.NewToolResultError(err.Error())
}

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tag := req.GetString("tag", "")
	var paths []string
	for offset := 0; ; {
		items, total, err := s.docs.List(ctx, 200, offset, tag, "path")
		if err != nil {
			return toolError(err), nil
		}
		for _, it := range items {
			paths = append(paths, it.Path)
		}
		offset += len(items)
		if len(items) == 0 || offset >= total {
			break
		}
	}
	if len(paths) == 0 {
		return mcp.NewToolResultText("no documents found"), nil
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := s.docs.Read(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) createDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if _, err := s.docs.Create(ctx, path, []byte(content)); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText("created: " + path), nil
}

func (s *Server) updateDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.docs.Update(ctx, path, []byte(content), req.GetString("checksum", ""))
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("updated: %s (checksum %s)", path, doc.Checksum)), nil
}

func (s *Server) parseDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text := req.GetString("text", "")
	if path := req.GetString("path", ""); path != "" {
		stored, err := s.docs.Read(ctx, path)
		if err != nil {
			return toolError(err), nil
		}
		text = stored
	}
	return jsonResult(parser.New(nil).Parse(text)), nil
}

func (s *Server) getOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	headings, err := s.docs.Outline(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	if len(headings) == 0 {
		return mcp.NewToolResultText("no headings"), nil
	}
	var b strings.Builder
	for _, h := range headings {
		fmt.Fprintf(&b, "%s%s (offset %d)\n", strings.Repeat("  ", h.Level-1), h.Text, h.Offset)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) searchDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.docs.Search(ctx, query, req.GetInt("limit", 20))
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(results), nil
}

func (s *Server) getBacklinks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	bl, err := s.docs.Backlinks(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	if len(bl) == 0 {
		return mcp.NewToolResultText("no backlinks found"), nil
	}
	return mcp.NewToolResultText(strings.Join(bl, "\n")), nil
}

type editResult struct {
	Text     string `json:"text"`
	Diff     string `json:"diff"`
	Applied  bool   `json:"applied"`
	Checksum string `json:"checksum,omitempty"`
}

// editDocument runs a single input event through a short-lived session.
func (s *Server) editDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	offset := req.GetInt("offset", 0)

	sess, err := s.sessions.Open(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	defer func() { _ = s.sessions.Close(sess.ID()) }()

	st := sess.State()
	if offset < 0 || offset > len(st.Document.Text) {
		return mcp.NewToolResultError(fmt.Sprintf("offset %d outside document (length %d)", offset, len(st.Document.Text))), nil
	}
	caret := ast.Caret(st.Document.PointAt(offset, ast.Backward))
	u, err := sess.Input(resolve.InputEvent{Type: typ, Text: req.GetString("text", "")}, resolve.StaticSelection{Range: caret})
	if err != nil {
		return toolError(err), nil
	}

	res := editResult{Text: sess.Text(), Diff: sess.Diff(), Applied: u.Render != nil}
	if res.Applied && req.GetBool("save", false) {
		sum, err := sess.Save(ctx)
		if err != nil {
			return toolError(err), nil
		}
		res.Checksum = sum
	}
	return jsonResult(res), nil
}

func (s *Server) diffDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	stored, err := s.docs.Read(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	if stored == content {
		return mcp.NewToolResultText("no changes"), nil
	}
	return mcp.NewToolResultText(string(diff.Diff("a/"+path, []byte(stored), "b/"+path, []byte(content)))), nil
}

func (s *Server) getFormatContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FormatContract), nil
}

func (s *Server) readFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      formatURI,
			MIMEType: "text/markdown",
			Text:     FormatContract,
		},
	}, nil
}
