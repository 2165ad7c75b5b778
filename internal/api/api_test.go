package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/starford/eihwaz/internal/hierarchy"
	"github.com/starford/eihwaz/internal/index"
	"github.com/starford/eihwaz/internal/storage"
)

// testEnv sets up a temp vault, SQLite DB, service, and router for testing.
// authToken="" means disabled mode; non-empty means token mode.
func testEnv(t *testing.T, authToken string) (*hierarchy.Service, http.Handler) {
	t.Helper()
	svc, router := testEnvFull(t, authToken != "", authToken, nil)
	return svc, router
}

func testEnvFull(t *testing.T, authEnabled bool, authToken string, sseHandler http.Handler) (*hierarchy.Service, http.Handler) {
	t.Helper()

	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	dbFile, err := os.CreateTemp("", "eihwaz-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	svc := hierarchy.NewService(store, db, "")
	router := NewRouter(svc, authEnabled, authToken, sseHandler)
	return svc, router
}

// createDoc posts a create request and fails the test on non-201.
func createDoc(t *testing.T, router http.Handler, parent, title string) DocumentDetail {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"parent": parent, "title": title})
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("create %q under %q = %d, body = %s", title, parent, w.Code, w.Body.String())
	}
	var doc DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &doc)
	return doc
}

// docURL builds a /documents/ URL with the filename escaped (names contain
// spaces).
func docURL(name string) string {
	return "/documents/" + url.PathEscape(name)
}

func TestCreateAndGetDocument(t *testing.T) {
	_, router := testEnv(t, "")

	doc := createDoc(t, router, "", "Alpha")
	if doc.Name != "1. Alpha.md" {
		t.Fatalf("name = %q, want %q", doc.Name, "1. Alpha.md")
	}

	req := httptest.NewRequest(http.MethodGet, docURL("1. Alpha.md"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	var got DocumentDetail
	_ = json.Unmarshal(w.Body.Bytes(), &got)
	if got.Title != "Alpha" {
		t.Errorf("title = %q, want Alpha", got.Title)
	}
	if got.Path != "1" {
		t.Errorf("path = %q, want 1", got.Path)
	}
}

func TestCreateChildNumbering(t *testing.T) {
	_, router := testEnv(t, "")

	createDoc(t, router, "", "Alpha")
	first := createDoc(t, router, "1. Alpha.md", "Sub One")
	second := createDoc(t, router, "1. Alpha.md", "Sub Two")

	if first.Name != "1.1. Sub One.md" {
		t.Errorf("first child = %q, want 1.1. Sub One.md", first.Name)
	}
	if second.Name != "1.2. Sub Two.md" {
		t.Errorf("second child = %q, want 1.2. Sub Two.md", second.Name)
	}
}

func TestCreateDocument_MissingParent(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]string{"parent": "9. Ghost.md", "title": "X"})
	req := httptest.NewRequest(http.MethodPost, "/documents", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("create under missing parent = %d, want 404", w.Code)
	}
}

func TestUpdateWithOptimisticLocking(t *testing.T) {
	_, router := testEnv(t, "")

	created := createDoc(t, router, "", "Lock")

	// Update with correct checksum.
	updateBody, _ := json.Marshal(map[string]string{"content": "v2"})
	req := httptest.NewRequest(http.MethodPut, docURL(created.Name), bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("update with correct checksum = %d, body = %s", w.Code, w.Body.String())
	}

	// Update with stale checksum → 409.
	req = httptest.NewRequest(http.MethodPut, docURL(created.Name), bytes.NewReader(updateBody))
	req.Header.Set("If-Match", created.Checksum) // stale now
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusConflict {
		t.Errorf("update with stale checksum = %d, want 409", w.Code)
	}
}

func TestUpdateWithoutIfMatch(t *testing.T) {
	_, router := testEnv(t, "")

	created := createDoc(t, router, "", "NoLock")

	// Update without If-Match should succeed (no locking enforced).
	updateBody, _ := json.Marshal(map[string]string{"content": "v2"})
	req := httptest.NewRequest(http.MethodPut, docURL(created.Name), bytes.NewReader(updateBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("update without If-Match = %d, want 200", w.Code)
	}
}

func TestUpdateDocument_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]string{"content": "x"})
	req := httptest.NewRequest(http.MethodPut, docURL("9. Ghost.md"), bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("update missing = %d, want 404", w.Code)
	}
}

func TestDeleteSubtree(t *testing.T) {
	_, router := testEnv(t, "")

	createDoc(t, router, "", "Root")
	createDoc(t, router, "1. Root.md", "Child")
	createDoc(t, router, "1.1. Child.md", "Grandchild")

	req := httptest.NewRequest(http.MethodDelete, docURL("1. Root.md"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("delete = %d, body = %s", w.Code, w.Body.String())
	}
	var resp DeleteResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Deleted != 3 {
		t.Errorf("deleted = %d, want 3", resp.Deleted)
	}

	// GET should now 404.
	req = httptest.NewRequest(http.MethodGet, docURL("1. Root.md"), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("get after delete = %d, want 404", w.Code)
	}
}

func TestTreeEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	createDoc(t, router, "", "Alpha")
	createDoc(t, router, "", "Beta")
	createDoc(t, router, "1. Alpha.md", "Gamma")

	req := httptest.NewRequest(http.MethodGet, "/tree", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("tree = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	roots := resp["roots"].([]any)
	if len(roots) != 2 {
		t.Fatalf("roots = %d, want 2", len(roots))
	}
	first := roots[0].(map[string]any)
	children := first["children"].([]any)
	if len(children) != 1 {
		t.Errorf("children of first root = %d, want 1", len(children))
	}
}

func TestMoveEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	createDoc(t, router, "", "Alpha")
	createDoc(t, router, "", "Beta")
	createDoc(t, router, "1. Alpha.md", "Gamma")

	body, _ := json.Marshal(map[string]string{
		"source": "1.1. Gamma.md",
		"target": "2. Beta.md",
		"mode":   "child",
	})
	req := httptest.NewRequest(http.MethodPost, "/move", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("move = %d, body = %s", w.Code, w.Body.String())
	}
	var plan PlanResponse
	_ = json.Unmarshal(w.Body.Bytes(), &plan)
	if len(plan.Steps) != 1 {
		t.Fatalf("steps = %d, want 1", len(plan.Steps))
	}
	if plan.Steps[0].NewName != "2.1. Gamma.md" {
		t.Errorf("new name = %q, want 2.1. Gamma.md", plan.Steps[0].NewName)
	}

	// The file has actually moved.
	req = httptest.NewRequest(http.MethodGet, docURL("2.1. Gamma.md"), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("get moved document = %d, want 200", w.Code)
	}
}

func TestMoveEndpoint_CycleRejected(t *testing.T) {
	_, router := testEnv(t, "")

	createDoc(t, router, "", "Alpha")
	createDoc(t, router, "1. Alpha.md", "Gamma")

	body, _ := json.Marshal(map[string]string{
		"source": "1. Alpha.md",
		"target": "1.1. Gamma.md",
		"mode":   "child",
	})
	req := httptest.NewRequest(http.MethodPost, "/move", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("cycle move = %d, want 422", w.Code)
	}
}

func TestMoveEndpoint_InvalidMode(t *testing.T) {
	_, router := testEnv(t, "")

	body, _ := json.Marshal(map[string]string{
		"source": "1. A.md",
		"target": "2. B.md",
		"mode":   "sideways",
	})
	req := httptest.NewRequest(http.MethodPost, "/move", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid mode = %d, want 400", w.Code)
	}
}

func TestPlanMoveDoesNotApply(t *testing.T) {
	_, router := testEnv(t, "")

	createDoc(t, router, "", "Alpha")
	createDoc(t, router, "", "Beta")
	createDoc(t, router, "1. Alpha.md", "Gamma")

	body, _ := json.Marshal(map[string]string{
		"source": "1.1. Gamma.md",
		"target": "2. Beta.md",
		"mode":   "child",
	})
	req := httptest.NewRequest(http.MethodPost, "/plans/move", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("plan move = %d, body = %s", w.Code, w.Body.String())
	}

	// Original file untouched.
	req = httptest.NewRequest(http.MethodGet, docURL("1.1. Gamma.md"), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("source after plan = %d, want 200 (dry run must not apply)", w.Code)
	}
}

func TestPlanDeleteEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	createDoc(t, router, "", "Root")
	createDoc(t, router, "1. Root.md", "Child")

	body, _ := json.Marshal(map[string]string{"name": "1. Root.md"})
	req := httptest.NewRequest(http.MethodPost, "/plans/delete", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("plan delete = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["total"].(float64) != 2 {
		t.Errorf("total = %v, want 2", resp["total"])
	}

	// Nothing deleted.
	req = httptest.NewRequest(http.MethodGet, docURL("1. Root.md"), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("anchor after plan = %d, want 200 (preview must not delete)", w.Code)
	}
}

func TestListDocuments(t *testing.T) {
	_, router := testEnv(t, "")

	createDoc(t, router, "", "Alpha")
	createDoc(t, router, "", "Beta")

	req := httptest.NewRequest(http.MethodGet, "/documents?limit=10", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("list = %d", w.Code)
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	docs := resp["documents"].([]any)
	if len(docs) != 2 {
		t.Errorf("len(documents) = %d, want 2", len(docs))
	}
}

func TestSearchEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	created := createDoc(t, router, "", "Findable")
	updateBody, _ := json.Marshal(map[string]string{"content": "uniquetoken here"})
	req := httptest.NewRequest(http.MethodPut, docURL(created.Name), bytes.NewReader(updateBody))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("seed update = %d", w.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/search?q=uniquetoken", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	var resp map[string]any
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	results := resp["results"].([]any)
	if len(results) != 1 {
		t.Errorf("search results = %d, want 1", len(results))
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/tree", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed tree = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/tree", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/tree", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, "/tree", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodGet, docURL("9. Nope.md"), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing document = %d, want 404", w.Code)
	}
}

// SSE endpoint auth tests.

// sseStub writes headers and blocks until context done.
var sseStub = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
	<-r.Context().Done()
})

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvFull(t, true, "secret", sseStub)

	// No token → 401.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	_, router := testEnvFull(t, false, "", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	_, router := testEnvFull(t, true, "tok", sseStub)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}
