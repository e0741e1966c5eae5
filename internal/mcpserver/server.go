// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the FAQ collection as tools over stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/faqs/internal/apperr"
	"github.com/starford/faqs/internal/faqservice"
)

// RecordFormatURI is the resource describing the stored record shape.
const RecordFormatURI = "faqs://record-format"

// Server wraps the MCP server with FAQ tools.
type Server struct {
	mcp *server.MCPServer
	svc *faqservice.Service
}

// New creates a new MCP server with all FAQ tools registered.
func New(svc *faqservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"faqs",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_faqs",
		mcp.WithDescription("List every FAQ record in storage order."),
	), s.listFaqs)

	s.mcp.AddTool(mcp.NewTool("get_faq",
		mcp.WithDescription("Get a single FAQ record by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Positive record id")),
	), s.getFaq)

	s.mcp.AddTool(mcp.NewTool("create_faq",
		mcp.WithDescription("Create a FAQ record. The id is assigned by the store. "+
			"Read the "+RecordFormatURI+" resource for field rules."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question text, not blank")),
		mcp.WithString("answer", mcp.Required(), mcp.Description("Answer text, not blank")),
		mcp.WithArray("tags",
			mcp.Description("Optional labels, none blank"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.createFaq)

	s.mcp.AddTool(mcp.NewTool("delete_faq",
		mcp.WithDescription("Delete a FAQ record by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Positive record id")),
	), s.deleteFaq)

	s.mcp.AddResource(
		mcp.NewResource(RecordFormatURI, "FAQ Record Format",
			mcp.WithResourceDescription("Shape and rules of a stored FAQ record."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormat,
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

func (s *Server) listFaqs(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	faqs, err := s.svc.ListAll(ctx)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(faqs)
}

func (s *Server) getFaq(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	faq, err := s.svc.GetOne(ctx, id)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(faq)
}

func (s *Server) createFaq(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, err := req.RequireString("answer")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	faq, err := s.svc.Create(ctx, faqservice.CreateInput{
		Question: question,
		Answer:   answer,
		Tags:     req.GetStringSlice("tags", nil),
	})
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(faq)
}

func (s *Server) deleteFaq(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Delete(ctx, id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted: %d", id)), nil
}

func (s *Server) readRecordFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RecordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormat,
		},
	}, nil
}

// toolError hides storage details the same way the HTTP API does.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound),
		errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrIDConflict):
		return mcp.NewToolResultError(err.Error())
	default:
		return mcp.NewToolResultError("internal error")
	}
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return mcp.NewToolResultText(string(out)), nil
}
