package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arlide/mural/internal/canvas"
	"github.com/arlide/mural/internal/canvasservice"
	"github.com/arlide/mural/internal/models"
)

func newTestServer(t *testing.T) (*httptest.Server, *canvas.Store) {
	t.Helper()
	store := canvas.NewStore()
	svc := canvasservice.NewService(store, nil)
	srv := httptest.NewServer(NewRouter(svc, false, "", nil))
	t.Cleanup(srv.Close)
	return srv, store
}

func doReq(t *testing.T, method, url string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestCreateNote_AppliesDefaults(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := doReq(t, http.MethodPost, srv.URL+"/notes", map[string]any{
		"position": map[string]float64{"x": 10, "y": 20},
		"text":     "hello",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	note := decode[models.Note](t, resp)
	if note.ID == "" {
		t.Error("missing id")
	}
	if note.Width != canvas.DefaultWidth || note.Height != canvas.DefaultHeight {
		t.Errorf("size = %gx%g, want defaults", note.Width, note.Height)
	}
	if note.Z != 1 {
		t.Errorf("z = %d, want 1", note.Z)
	}
}

func TestCreateNote_BadBody(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doReq(t, http.MethodPost, srv.URL+"/notes", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestGetCanvas_EmptyShape(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := doReq(t, http.MethodGet, srv.URL+"/canvas", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	s := string(body)
	if !strings.Contains(s, `"nodes":[]`) || !strings.Contains(s, `"edges":[]`) {
		t.Errorf("empty canvas should use [] not null: %s", s)
	}
	if !strings.Contains(s, `"mergeCandidate":null`) {
		t.Errorf("missing mergeCandidate field: %s", s)
	}
}

func TestUpdateNote(t *testing.T) {
	srv, store := newTestServer(t)
	n := store.CreateNote(models.Point{X: 0, Y: 0}, canvas.CreateOptions{Text: "old"})

	resp := doReq(t, http.MethodPatch, srv.URL+"/notes/"+n.ID, map[string]any{
		"text":     "new",
		"position": map[string]float64{"x": 5, "y": 6},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[models.Note](t, resp)
	if got.Text != "new" || got.Position.X != 5 {
		t.Errorf("note = %+v", got)
	}

	if resp := doReq(t, http.MethodPatch, srv.URL+"/notes/nope", map[string]any{"text": "x"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id: status = %d, want 404", resp.StatusCode)
	}
}

func TestResize_Clamps(t *testing.T) {
	srv, store := newTestServer(t)
	n := store.CreateNote(models.Point{}, canvas.CreateOptions{})

	resp := doReq(t, http.MethodPost, srv.URL+"/notes/"+n.ID+"/resize", ResizeRequest{Width: 9999, Height: 1})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[models.Note](t, resp)
	if got.Width != canvas.MaxWidth || got.Height != canvas.MinHeight {
		t.Errorf("size = %gx%g", got.Width, got.Height)
	}
}

func TestBringToFront(t *testing.T) {
	srv, store := newTestServer(t)
	a := store.CreateNote(models.Point{}, canvas.CreateOptions{})
	b := store.CreateNote(models.Point{}, canvas.CreateOptions{})

	resp := doReq(t, http.MethodPost, srv.URL+"/notes/"+a.ID+"/front", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[models.Note](t, resp)
	if got.Z <= b.Z {
		t.Errorf("z = %d, want above %d", got.Z, b.Z)
	}
}

func TestCreateChild(t *testing.T) {
	srv, store := newTestServer(t)
	parent := store.CreateNote(models.Point{}, canvas.CreateOptions{})

	resp := doReq(t, http.MethodPost, srv.URL+"/notes/"+parent.ID+"/children", CreateChildRequest{
		Position: models.Point{X: 100, Y: 0},
		Text:     "child",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decode[ChildResponse](t, resp)
	if got.Edge.Source != parent.ID || got.Edge.Target != got.Note.ID {
		t.Errorf("edge = %+v", got.Edge)
	}

	if resp := doReq(t, http.MethodPost, srv.URL+"/notes/nope/children", CreateChildRequest{}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown parent: status = %d, want 404", resp.StatusCode)
	}
}

func TestDeleteNote(t *testing.T) {
	srv, store := newTestServer(t)
	n := store.CreateNote(models.Point{}, canvas.CreateOptions{})

	if resp := doReq(t, http.MethodDelete, srv.URL+"/notes/"+n.ID, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if resp := doReq(t, http.MethodDelete, srv.URL+"/notes/"+n.ID, nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("second delete: status = %d, want 404", resp.StatusCode)
	}
}

func TestCreateEdge(t *testing.T) {
	srv, store := newTestServer(t)
	a := store.CreateNote(models.Point{}, canvas.CreateOptions{})
	b := store.CreateNote(models.Point{}, canvas.CreateOptions{})

	resp := doReq(t, http.MethodPost, srv.URL+"/edges", CreateEdgeRequest{Source: a.ID, Target: b.ID})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	edge := decode[models.Edge](t, resp)
	if edge.Source != a.ID || edge.Target != b.ID || edge.ID == "" {
		t.Errorf("edge = %+v", edge)
	}

	if resp := doReq(t, http.MethodPost, srv.URL+"/edges", CreateEdgeRequest{Source: a.ID}); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing target: status = %d, want 400", resp.StatusCode)
	}
	if resp := doReq(t, http.MethodPost, srv.URL+"/edges", CreateEdgeRequest{Source: a.ID, Target: "nope"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown target: status = %d, want 404", resp.StatusCode)
	}
}

func TestMergeFlow(t *testing.T) {
	srv, store := newTestServer(t)
	a := store.CreateNote(models.Point{X: 0, Y: 0}, canvas.CreateOptions{Text: "foo"})
	b := store.CreateNote(models.Point{X: 10, Y: 10}, canvas.CreateOptions{Text: "bar"})

	resp := doReq(t, http.MethodPost, srv.URL+"/notes/"+b.ID+"/dragstop", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dragstop status = %d", resp.StatusCode)
	}
	ds := decode[DragStopResponse](t, resp)
	if ds.MergeCandidate == nil || !ds.MergeCandidate.References(a.ID) {
		t.Fatalf("candidate = %+v", ds.MergeCandidate)
	}

	resp = doReq(t, http.MethodPost, srv.URL+"/merge/confirm", ConfirmMergeRequest{ID: b.ID})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm status = %d", resp.StatusCode)
	}
	mr := decode[MergeResponse](t, resp)
	if !mr.Merged || mr.Note == nil {
		t.Fatalf("merge response = %+v", mr)
	}
	if mr.Note.Text != "foo\n\n---\n\nbar" && mr.Note.Text != "bar\n\n---\n\nfoo" {
		t.Errorf("merged text = %q", mr.Note.Text)
	}

	// Candidate consumed; a second confirm is a quiet no-op.
	resp = doReq(t, http.MethodPost, srv.URL+"/merge/confirm", ConfirmMergeRequest{ID: b.ID})
	if mr := decode[MergeResponse](t, resp); mr.Merged {
		t.Error("second confirm should not merge")
	}
}

func TestExportImport(t *testing.T) {
	srv, store := newTestServer(t)
	store.CreateNote(models.Point{X: 1, Y: 2}, canvas.CreateOptions{Text: "keep"})

	resp := doReq(t, http.MethodGet, srv.URL+"/export", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export status = %d", resp.StatusCode)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.Contains(cd, "canvas-export.json") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	exported, _ := io.ReadAll(resp.Body)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/import", bytes.NewReader(exported))
	resp2, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("import status = %d", resp2.StatusCode)
	}
	ir := decode[ImportResponse](t, resp2)
	if ir.Nodes != 1 || ir.Edges != 0 {
		t.Errorf("import counts = %+v", ir)
	}
}

func TestImport_InvalidFileRejected(t *testing.T) {
	srv, store := newTestServer(t)
	store.CreateNote(models.Point{}, canvas.CreateOptions{Text: "survivor"})

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/import", strings.NewReader(`{"nodes":{}}`))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}

	nodes, _ := store.Snapshot()
	if len(nodes) != 1 || nodes[0].Text != "survivor" {
		t.Error("rejected import must leave canvas untouched")
	}
}

func TestAuthMiddleware(t *testing.T) {
	store := canvas.NewStore()
	svc := canvasservice.NewService(store, nil)
	srv := httptest.NewServer(NewRouter(svc, true, "secret", nil))
	defer srv.Close()

	resp := doReq(t, http.MethodGet, srv.URL+"/canvas", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/canvas", nil)
	req.Header.Set("Authorization", "Bearer secret")
	ok, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer ok.Body.Close()
	if ok.StatusCode != http.StatusOK {
		t.Errorf("with token: status = %d, want 200", ok.StatusCode)
	}

	req2, _ := http.NewRequest(http.MethodGet, srv.URL+"/canvas", nil)
	req2.Header.Set("Authorization", "Bearer wrong")
	bad, err := http.DefaultClient.Do(req2)
	if err != nil {
		t.Fatal(err)
	}
	defer bad.Body.Close()
	if bad.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", bad.StatusCode)
	}
}
