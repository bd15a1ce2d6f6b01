package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/arbor"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geometry"
	"github.com/aretw0/arbor/pkg/ports"
	"github.com/go-chi/chi/v5"
)

// Server exposes a ports.TreeService as a JSON API.
type Server struct {
	Service ports.TreeService
	Streams *StreamManager
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates a new HTTP handler for the service.
// Every tree change reported by the service is pushed to the document's SSE streams.
func NewHandler(svc ports.TreeService, opts ...Option) http.Handler {
	server := &Server{Service: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(server)
	}
	server.Streams = NewStreamManager(server.logger)
	svc.Subscribe(func(diff *domain.TreeDiff) {
		if bytes, err := json.Marshal(diff); err == nil {
			server.Streams.Broadcast(diff.DocumentID, string(bytes))
		}
	})

	r := chi.NewRouter()
	r.Get("/health", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", server.ListDocuments)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", server.GetDocument)
			r.Put("/", server.PutDocument)
			r.Delete("/", server.DeleteDocument)
			r.Post("/move", server.MoveElement)
			r.Post("/reconcile", server.Reconcile)
			r.Post("/drag/begin", server.BeginDrag)
			r.Post("/drag/move", server.UpdateDrag)
			r.Post("/drag/end", server.EndDrag)
			r.Post("/drag/cancel", server.CancelDrag)
			r.Get("/events", server.SubscribeEvents)
		})
	})
	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PutDocumentRequest replaces a document tree.
type PutDocumentRequest struct {
	Elements []domain.Element `json:"elements"`
}

// PointerRequest carries one pointer event and the layout it happened in.
// Hit-testing is done against Layout, so hosts send the bounds of every
// element that may be under the pointer.
type PointerRequest struct {
	SubjectID string          `json:"subject_id,omitempty"`
	SessionID string          `json:"session_id,omitempty"`
	Pointer   domain.Point    `json:"pointer"`
	Layout    *geometry.Frame `json:"layout,omitempty"`
}

// MoveRequest relocates an element without a gesture.
type MoveRequest struct {
	SubjectID string        `json:"subject_id"`
	Target    domain.Target `json:"target"`
}

// ReconcileRequest reports the child order a host observed under ParentID.
type ReconcileRequest struct {
	ParentID string   `json:"parent_id"`
	Observed []string `json:"observed"`
}

// ErrorResponse is the body of every non-2xx JSON reply.
type ErrorResponse struct {
	Error  string                 `json:"error"`
	Reason domain.RejectionReason `json:"reason,omitempty"`
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
	})
}

// ListDocuments handles the GET /documents request.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Service.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"documents": ids})
}

// GetDocument handles the GET /documents/{id} request.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// PutDocument handles the PUT /documents/{id} request.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	var body PutDocumentRequest
	if !s.decode(w, r, &body) {
		return
	}
	doc, err := s.Service.Put(r.Context(), chi.URLParam(r, "id"), body.Elements)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, doc)
}

// DeleteDocument handles the DELETE /documents/{id} request.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveElement handles the POST /documents/{id}/move request.
func (s *Server) MoveElement(w http.ResponseWriter, r *http.Request) {
	var body MoveRequest
	if !s.decode(w, r, &body) {
		return
	}
	move, err := s.Service.Move(r.Context(), chi.URLParam(r, "id"), body.SubjectID, body.Target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, move)
}

// Reconcile handles the POST /documents/{id}/reconcile request.
func (s *Server) Reconcile(w http.ResponseWriter, r *http.Request) {
	var body ReconcileRequest
	if !s.decode(w, r, &body) {
		return
	}
	report, err := s.Service.Reconcile(r.Context(), chi.URLParam(r, "id"), body.ParentID, body.Observed)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// BeginDrag handles the POST /documents/{id}/drag/begin request.
func (s *Server) BeginDrag(w http.ResponseWriter, r *http.Request) {
	var body PointerRequest
	if !s.decode(w, r, &body) {
		return
	}
	if body.SubjectID == "" {
		s.writeError(w, r, fmt.Errorf("%w: subject_id is required", domain.ErrInvalidSubject))
		return
	}
	sess, err := s.Service.BeginDrag(r.Context(), chi.URLParam(r, "id"), body.SubjectID, body.Pointer, layoutOf(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// UpdateDrag handles the POST /documents/{id}/drag/move request.
func (s *Server) UpdateDrag(w http.ResponseWriter, r *http.Request) {
	var body PointerRequest
	if !s.decode(w, r, &body) {
		return
	}
	sess, err := s.Service.UpdateDrag(r.Context(), chi.URLParam(r, "id"), body.SessionID, body.Pointer, layoutOf(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// EndDrag handles the POST /documents/{id}/drag/end request.
// A rejected drop is a 200 with outcome "rejected": the gesture ended normally.
func (s *Server) EndDrag(w http.ResponseWriter, r *http.Request) {
	var body PointerRequest
	if !s.decode(w, r, &body) {
		return
	}
	res, err := s.Service.EndDrag(r.Context(), chi.URLParam(r, "id"), body.SessionID, body.Pointer, layoutOf(body))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, res)
}

// CancelDrag handles the POST /documents/{id}/drag/cancel request.
func (s *Server) CancelDrag(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.CancelDrag(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SubscribeEvents handles the GET /documents/{id}/events request (SSE).
// The optional watch query (comma separated: parents, children, removed) filters diffs.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	docID := chi.URLParam(r, "id")
	if _, err := s.Service.Get(r.Context(), docID); err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to document updates", "document_id", docID)
	ch, cancel := s.Streams.Subscribe(docID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "document_id", docID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watchList) > 0 && !matches(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// matches reports whether the serialized diff touches any watched field.
// Unreadable messages are always forwarded.
func matches(msg string, watchList []string) bool {
	var diff domain.TreeDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range watchList {
		switch strings.TrimSpace(field) {
		case "parents":
			if len(diff.Parents) > 0 {
				return true
			}
		case "children":
			if len(diff.Children) > 0 {
				return true
			}
		case "removed":
			if len(diff.Removed) > 0 {
				return true
			}
		}
	}
	return false
}

// -- Helpers --

func layoutOf(body PointerRequest) ports.Layout {
	if body.Layout == nil {
		return nil
	}
	return body.Layout
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Warn("Invalid request body", "path", r.URL.Path, "err", err)
		s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

// statusOf maps engine errors to HTTP status codes.
func statusOf(err error) int {
	var rej *domain.RejectionError
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.As(err, &rej),
		errors.Is(err, domain.ErrReconciliationMismatch),
		errors.Is(err, domain.ErrSessionActive),
		errors.Is(err, domain.ErrSessionMismatch),
		errors.Is(err, domain.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidSubject),
		errors.Is(err, domain.ErrInvariantViolation):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "err", err)
	} else {
		s.logger.Debug("Request refused", "path", r.URL.Path, "status", status, "err", err)
	}
	s.writeJSON(w, status, ErrorResponse{Error: err.Error(), Reason: domain.ReasonOf(err)})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}
