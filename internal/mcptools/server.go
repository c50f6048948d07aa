package mcptools

import (
	"context"
	"errors"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dusk-indust/ideaengine/internal/engine"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the idea engine tools registered.
func NewMCPServer(e *engine.Engine) *mcp.Server {
	svc := NewService(e)

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "ideaengine",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "generate_ideas",
		Description: "Send a prompt to several LLM providers in parallel and return their idea bundles ranked by a weighted rubric, with near-duplicates removed. Pass chatId to record the exchange in a chat.",
	}, svc.GenerateIdeas)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_recipes",
		Description: "List the prompt recipes that generate_ideas can use, with their template variables.",
	}, svc.ListRecipes)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_chats",
		Description: "List stored chats, most recently active first.",
	}, svc.ListChats)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "provider_status",
		Description: "Report which providers are registered and which have credentials configured.",
	}, svc.ProviderStatus)

	return server
}

// RunStdio runs the MCP server on stdio transport, blocking until stdin is
// closed or the context is cancelled.
func RunStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the MCP tools over streamable HTTP at addr.
func RunHTTP(ctx context.Context, server *mcp.Server, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	// Shutdown gracefully when context is cancelled.
	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
	}()

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
