package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"auber_controller/internal/program"
	"auber_controller/internal/service"
)

func newProgramsRouter(p *mockPrograms) http.Handler {
	return newTestRouter(&service.Service{
		Authorization: &mockAuth{parseID: 1},
		Programs:      p,
	})
}

func TestProgramHandlers_ListAndGet(t *testing.T) {
	p := &mockPrograms{records: program.Presets()}
	r := newProgramsRouter(p)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/programs", nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("list status=%d, body=%s", w.Code, w.Body.String())
	}
	var out struct {
		Count    int              `json:"count"`
		Programs []program.Record `json:"programs"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	if out.Count != len(p.records) || len(out.Programs) != len(p.records) {
		t.Fatalf("unexpected list: %+v", out)
	}

	name := p.records[0].Name
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/programs/"+name, nil)))
	if w.Code != http.StatusOK {
		t.Fatalf("get status=%d, body=%s", w.Code, w.Body.String())
	}
	var rec program.Record
	_ = json.Unmarshal(w.Body.Bytes(), &rec)
	if rec.Name != name || len(rec.Slots) != program.MaxSteps {
		t.Fatalf("unexpected record: %+v", rec)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/programs/Missing", nil)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	if p.lastGet != "Missing" {
		t.Fatalf("lastGet = %q", p.lastGet)
	}
}

func TestProgramHandlers_ListError(t *testing.T) {
	r := newProgramsRouter(&mockPrograms{listErr: errors.New("disk I/O error")})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodGet, "/api/v1/programs", nil)))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var m map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["error"] != errListPrograms {
		t.Fatalf("error = %q", m["error"])
	}
}

func TestProgramHandlers_Save(t *testing.T) {
	p := &mockPrograms{}
	r := newProgramsRouter(p)

	body := `{"name":"Anneal","slots":[{"operation":"Ramp","target_c":400,"duration_hours":1},{"operation":"Soak","target_c":400,"duration_hours":2}]}`
	w := httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/v1/programs", body))
	if w.Code != http.StatusOK {
		t.Fatalf("save status=%d, body=%s", w.Code, w.Body.String())
	}
	if p.lastSaved.Name != "Anneal" || len(p.lastSaved.Slots) != 2 || p.lastSaved.Slots[1].Operation != "Soak" {
		t.Fatalf("unexpected saved record: %+v", p.lastSaved)
	}

	p.saveErr = fmt.Errorf("%w: step 1 temperature 9000.0 outside range", program.ErrInvalidProgram)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/v1/programs", body))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid program, got %d", w.Code)
	}
	var m map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &m)
	if m["error"] != p.saveErr.Error() {
		t.Fatalf("validation message should reach the client, got %q", m["error"])
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, postJSON("/api/v1/programs", `{"name":`))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", w.Code)
	}
}

func TestProgramHandlers_Delete(t *testing.T) {
	p := &mockPrograms{}
	r := newProgramsRouter(p)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodDelete, "/api/v1/programs/Anneal", nil)))
	if w.Code != http.StatusOK || p.lastDelete != "Anneal" {
		t.Fatalf("delete status=%d lastDelete=%q", w.Code, p.lastDelete)
	}

	p.deleteErr = fmt.Errorf("%w: %q", service.ErrProgramNotFound, "Anneal")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, withAuth(httptest.NewRequest(http.MethodDelete, "/api/v1/programs/Anneal", nil)))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}
