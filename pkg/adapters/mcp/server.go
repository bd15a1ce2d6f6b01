package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TreeResponse is the structured result of get_tree.
type TreeResponse struct {
	Document *domain.Document `json:"document" jsonschema_description:"The document and its elements, depth-first in sibling order"`
}

// MoveResponse is the structured result of move_element.
type MoveResponse struct {
	Move    domain.Move `json:"move" jsonschema_description:"Where the element was and where it is now"`
	Changed bool        `json:"changed" jsonschema_description:"False when the element was already at the requested slot"`
}

// ReconcileResponse is the structured result of reconcile_order.
type ReconcileResponse struct {
	Report domain.ReconcileReport `json:"report" jsonschema_description:"What reconciliation changed"`
}

// Server wraps a TreeService and exposes it as an MCP Server.
type Server struct {
	service   ports.TreeService
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP Server instance.
func NewServer(service ports.TreeService, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service:   service,
		logger:    logger,
		mcpServer: server.NewMCPServer("arbor-mcp", strings.TrimSpace(arbor.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops it when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: list_documents
	s.mcpServer.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the IDs of every stored document."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.service.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("list failed: %v", err)), nil
		}
		jsonBytes, _ := json.Marshal(ids)
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})

	// TOOL: get_tree
	treeTool := mcp.NewTool("get_tree",
		mcp.WithDescription("Get every element of a document, depth-first in sibling order."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithOutputSchema[TreeResponse](),
	)
	s.mcpServer.AddTool(treeTool, mcp.NewStructuredToolHandler(s.handleGetTree))

	// TOOL: move_element
	moveTool := mcp.NewTool("move_element",
		mcp.WithDescription("Move an element into a container (or the root list) at a given position. Moves that would create a cycle or target a non-container are rejected."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("subject_id", mcp.Required(), mcp.Description("ID of the element to move")),
		mcp.WithString("container_id", mcp.Description("Destination container ID; empty for the root list")),
		mcp.WithString("insert_before_id", mcp.Description("Sibling to insert before; empty to use insert_index")),
		mcp.WithNumber("insert_index", mcp.Description("Position in the destination list after removing the subject (default: end)")),
		mcp.WithOutputSchema[MoveResponse](),
	)
	s.mcpServer.AddTool(moveTool, mcp.NewStructuredToolHandler(s.handleMoveElement))

	// TOOL: reconcile_order
	reconcileTool := mcp.NewTool("reconcile_order",
		mcp.WithDescription("Fold a child order observed outside the engine (for example after a list widget reordered its items) back into the tree."),
		mcp.WithString("document_id", mcp.Required(), mcp.Description("Document ID")),
		mcp.WithString("parent_id", mcp.Description("Parent whose children were observed; empty for the root list")),
		mcp.WithString("observed", mcp.Required(), mcp.Description("JSON array of child IDs in observed order")),
		mcp.WithOutputSchema[ReconcileResponse](),
	)
	s.mcpServer.AddTool(reconcileTool, mcp.NewStructuredToolHandler(s.handleReconcile))
}

func (s *Server) handleGetTree(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (TreeResponse, error) {
	docID, _ := args["document_id"].(string)
	doc, err := s.service.Get(ctx, docID)
	if err != nil {
		return TreeResponse{}, fmt.Errorf("get_tree failed: %w", err)
	}
	return TreeResponse{Document: doc}, nil
}

func (s *Server) handleMoveElement(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (MoveResponse, error) {
	docID, _ := args["document_id"].(string)
	subjectID, _ := args["subject_id"].(string)
	if subjectID == "" {
		return MoveResponse{}, errors.New("subject_id is required")
	}

	// Insert indexes are clamped, so MaxInt appends.
	target := domain.Target{InsertIndex: math.MaxInt}
	target.ContainerID, _ = args["container_id"].(string)
	target.InsertBeforeID, _ = args["insert_before_id"].(string)
	if idx, ok := args["insert_index"].(float64); ok && idx >= 0 {
		target.InsertIndex = int(idx)
	}

	move, err := s.service.Move(ctx, docID, subjectID, target)
	if err != nil {
		s.logger.Debug("MCP move_element rejected", "document_id", docID, "subject", subjectID, "err", err)
		return MoveResponse{}, fmt.Errorf("move failed: %w", err)
	}
	return MoveResponse{Move: move, Changed: !move.IsNoop()}, nil
}

func (s *Server) handleReconcile(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ReconcileResponse, error) {
	docID, _ := args["document_id"].(string)
	parentID, _ := args["parent_id"].(string)

	var observed []string
	raw, _ := args["observed"].(string)
	if err := json.Unmarshal([]byte(raw), &observed); err != nil {
		return ReconcileResponse{}, fmt.Errorf("observed must be a JSON array of IDs: %w", err)
	}

	report, err := s.service.Reconcile(ctx, docID, parentID, observed)
	if err != nil {
		return ReconcileResponse{}, fmt.Errorf("reconcile failed: %w", err)
	}
	return ReconcileResponse{Report: report}, nil
}

func (s *Server) registerResources() {
	// EXPOSE: arbor://documents
	s.mcpServer.AddResource(mcp.NewResource("arbor://documents", "Stored Documents",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		ids, err := s.service.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}
		jsonBytes, _ := json.Marshal(ids)

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "arbor://documents",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}
