// Package mcpserver exposes the question-answering core as MCP tools, so
// agent runtimes can use the audit corpus without going through the HTTP
// job queue.
package mcpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/akolanti/AuditRAG/internal/rag"
	"github.com/akolanti/AuditRAG/pkg/logger_i"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const version = "1.0.0"

type Server struct {
	ragService rag.Service
	server     *mcp.Server
	logger     *logger_i.Logger
}

func NewServer(ragService rag.Service) *Server {
	impl := &mcp.Implementation{
		Name:    "audit-rag",
		Version: version,
	}

	s := &Server{
		ragService: ragService,
		server:     mcp.NewServer(impl, nil),
		logger:     logger_i.NewLogger("MCPServer"),
	}
	s.registerTools()
	return s
}

// Run serves MCP over stdio. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves MCP over streamable HTTP on addr.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("MCP server shutdown failed", "error", err)
		}
	}()

	s.logger.Info("MCP server listening", "address", addr)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
