package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/arbor/pkg/adapters/memory"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/geometry"
	"github.com/aretw0/arbor/pkg/session"
	"github.com/aretw0/arbor/pkg/workspace"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc := workspace.New(session.NewManager(memory.NewStore()))
	_, err := svc.Put(context.Background(), "doc1", []domain.Element{
		{ID: "col", IsContainer: true},
		{ID: "a", ParentID: "col"},
		{ID: "b", ParentID: "col"},
		{ID: "c", ParentID: "col"},
	})
	require.NoError(t, err)
	return NewHandler(svc)
}

func frame() *geometry.Frame {
	return geometry.NewFrame().
		Set("col", domain.Rect{X: 0, Y: 0, Width: 200, Height: 200}).
		Set("a", domain.Rect{X: 0, Y: 0, Width: 200, Height: 40}).
		Set("b", domain.Rect{X: 0, Y: 50, Width: 200, Height: 40}).
		Set("c", domain.Rect{X: 0, Y: 100, Width: 200, Height: 40})
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthAndInfo(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, "GET", "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(t, h, "GET", "/info", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"app":"arbor-http"`)
}

func TestDocuments(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, "GET", "/documents", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"documents":["doc1"]}`, w.Body.String())

	w = do(t, h, "GET", "/documents/doc1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var doc domain.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "doc1", doc.ID)
	assert.Len(t, doc.Elements, 4)

	w = do(t, h, "GET", "/documents/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, "PUT", "/documents/doc2", PutDocumentRequest{Elements: []domain.Element{{ID: "x"}}})
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "PUT", "/documents/doc3", PutDocumentRequest{Elements: []domain.Element{{ID: "x", ParentID: "missing"}}})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, h, "DELETE", "/documents/doc2", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = do(t, h, "DELETE", "/documents/doc2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDragFlow(t *testing.T) {
	h := newTestHandler(t)
	f := frame()

	w := do(t, h, "POST", "/documents/doc1/drag/begin", PointerRequest{SubjectID: "a", Pointer: domain.Point{X: 100, Y: 20}, Layout: f})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sess domain.DragSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sess))
	assert.Equal(t, domain.DragPreparing, sess.State)

	w = do(t, h, "POST", "/documents/doc1/drag/begin", PointerRequest{SubjectID: "b", Layout: f})
	assert.Equal(t, http.StatusConflict, w.Code, "second gesture on the same document")

	w = do(t, h, "POST", "/documents/doc1/drag/move", PointerRequest{SessionID: sess.ID, Pointer: domain.Point{X: 100, Y: 130}, Layout: f})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "POST", "/documents/doc1/drag/end", PointerRequest{SessionID: "stale", Pointer: domain.Point{X: 100, Y: 130}, Layout: f})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = do(t, h, "POST", "/documents/doc1/drag/end", PointerRequest{SessionID: sess.ID, Pointer: domain.Point{X: 100, Y: 130}, Layout: f})
	require.Equal(t, http.StatusOK, w.Code)
	var res domain.DragResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, domain.OutcomeCommitted, res.Outcome)

	w = do(t, h, "GET", "/documents/doc1", nil)
	var doc domain.Document
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	for _, e := range doc.Elements {
		if e.ID == "col" {
			assert.Equal(t, []string{"b", "c", "a"}, e.Children)
		}
	}
}

func TestDragCancel(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, "POST", "/documents/doc1/drag/begin", PointerRequest{SubjectID: "a", Layout: frame()})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "POST", "/documents/doc1/drag/cancel", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, h, "POST", "/documents/doc1/drag/begin", PointerRequest{SubjectID: "a", Layout: frame()})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDragBeginValidation(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, "POST", "/documents/doc1/drag/begin", PointerRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req := httptest.NewRequest("POST", "/documents/doc1/drag/begin", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMoveAndReconcile(t *testing.T) {
	h := newTestHandler(t)

	w := do(t, h, "POST", "/documents/doc1/move", MoveRequest{SubjectID: "c", Target: domain.Target{ContainerID: "col"}})
	require.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, "POST", "/documents/doc1/move", MoveRequest{SubjectID: "col", Target: domain.Target{ContainerID: "col"}})
	assert.Equal(t, http.StatusConflict, w.Code)
	var errBody ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	assert.Equal(t, domain.ReasonTargetIsSubject, errBody.Reason)

	w = do(t, h, "POST", "/documents/doc1/reconcile", ReconcileRequest{ParentID: "col", Observed: []string{"a", "b", "c"}})
	require.Equal(t, http.StatusOK, w.Code)
	var report domain.ReconcileReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, []string{"a", "b", "c"}, report.Order)

	w = do(t, h, "POST", "/documents/doc1/reconcile", ReconcileRequest{ParentID: "col", Observed: []string{"zzz"}})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestCORS(t *testing.T) {
	h := newTestHandler(t)
	w := do(t, h, "OPTIONS", "/documents", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestSubscribeEvents(t *testing.T) {
	h := newTestHandler(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wSub := httptest.NewRecorder()
	reqSub := httptest.NewRequest("GET", "/documents/doc1/events?watch=children", nil).WithContext(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(wSub, reqSub)
	}()

	time.Sleep(100 * time.Millisecond) // Wait for subscription to register

	w := do(t, h, "POST", "/documents/doc1/move", MoveRequest{SubjectID: "c", Target: domain.Target{ContainerID: "col"}})
	require.Equal(t, http.StatusOK, w.Code)

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	output := wSub.Body.String()
	assert.Contains(t, output, "event: ping")
	assert.Contains(t, output, `"children":{"col":["c","a","b"]}`)
}

func TestSubscribeEvents_UnknownDocument(t *testing.T) {
	h := newTestHandler(t)
	w := do(t, h, "GET", "/documents/nope/events", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMatches(t *testing.T) {
	msg := `{"document_id":"d","version":2,"removed":["x"]}`
	assert.True(t, matches(msg, []string{"removed"}))
	assert.False(t, matches(msg, []string{"children", "parents"}))
	assert.True(t, matches("not json", []string{"children"}))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, statusOf(domain.ErrDocumentNotFound))
	assert.Equal(t, http.StatusConflict, statusOf(domain.Reject(domain.ReasonTargetNotContainer, "a", "b")))
	assert.Equal(t, http.StatusConflict, statusOf(domain.ErrNoSession))
	assert.Equal(t, http.StatusBadRequest, statusOf(domain.ErrInvalidSubject))
	assert.Equal(t, http.StatusInternalServerError, statusOf(assert.AnError))
}
