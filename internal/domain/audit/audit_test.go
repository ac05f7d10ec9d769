package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
)

// -- Mock Repository --

type mockRepo struct {
	mu      sync.Mutex
	entries []*Entry
	fail    bool
	panics  bool
}

func newMockRepo() *mockRepo {
	return &mockRepo{}
}

func (m *mockRepo) Create(_ context.Context, e *Entry) error {
	if m.panics {
		panic("boom")
	}
	if m.fail {
		return errors.New("connection refused")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = time.Now()
	cp := *e
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *mockRepo) List(_ context.Context, ownerID uuid.UUID, f Filter, limit, offset int) ([]*Entry, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Entry
	for _, e := range m.entries {
		if e.OwnerID != ownerID {
			continue
		}
		if f.Action != "" && e.Action != f.Action {
			continue
		}
		out = append(out, e)
	}
	return out, len(out), nil
}

func (m *mockRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// -- Recorder --

func TestRecorder_WritesInBackground(t *testing.T) {
	repo := newMockRepo()
	r := NewRecorder(repo, zerolog.Nop(), 8)

	owner := uuid.New()
	r.Record(context.Background(), NewEntry(owner, "appointment.create", "created", "appointment", uuid.New()))
	r.Record(context.Background(), NewEntry(owner, "appointment.delete", "deleted", "appointment", uuid.New()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if repo.count() != 2 {
		t.Errorf("expected 2 entries, got %d", repo.count())
	}

	r.Record(context.Background(), NewEntry(owner, "late", "after close", "", uuid.Nil))
	if repo.count() != 2 {
		t.Error("expected entries after close to be ignored")
	}
}

func TestRecorder_SwallowsFailures(t *testing.T) {
	repo := newMockRepo()
	repo.fail = true
	r := NewRecorder(repo, zerolog.Nop(), 4)
	r.Record(context.Background(), NewEntry(uuid.New(), "x", "y", "", uuid.Nil))

	repo2 := newMockRepo()
	repo2.panics = true
	r2 := NewRecorder(repo2, zerolog.Nop(), 4)
	r2.Record(context.Background(), NewEntry(uuid.New(), "x", "y", "", uuid.Nil))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.Close(ctx); err != nil {
		t.Fatalf("unexpected close error: %v", err)
	}
	if err := r2.Close(ctx); err != nil {
		t.Fatalf("expected worker to survive panic, got %v", err)
	}
}

func TestNewEntry(t *testing.T) {
	e := NewEntry(uuid.New(), "patient.delete", "deactivated", "", uuid.Nil)
	if e.EntityType != nil || e.EntityID != nil {
		t.Error("expected empty entity fields to stay nil")
	}
	id := uuid.New()
	e = NewEntry(uuid.New(), "patient.delete", "deactivated", "patient", id)
	if e.EntityType == nil || *e.EntityType != "patient" || e.EntityID == nil || *e.EntityID != id {
		t.Errorf("unexpected entity fields %+v", e)
	}
}

// -- Service --

func TestService_CreateValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	owner := uuid.New()

	tests := []struct {
		name  string
		entry Entry
	}{
		{"no owner", Entry{Action: "a", Description: "d"}},
		{"no action", Entry{OwnerID: owner, Action: "  ", Description: "d"}},
		{"long action", Entry{OwnerID: owner, Action: strings.Repeat("a", 101), Description: "d"}},
		{"no description", Entry{OwnerID: owner, Action: "a"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := tt.entry
			if err := svc.Create(context.Background(), &e); apperr.KindOf(err) != apperr.KindValidation {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestService_CreateRepoFailure(t *testing.T) {
	repo := newMockRepo()
	repo.fail = true
	svc := NewService(repo)
	err := svc.Create(context.Background(), &Entry{OwnerID: uuid.New(), Action: "a", Description: "d"})
	if apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("expected internal error, got %v", err)
	}
}

// -- Handler --

func newTestHandler() (*Handler, *mockRepo, *echo.Echo) {
	repo := newMockRepo()
	return NewHandler(NewService(repo), dateutil.MustZone("America/Guatemala")), repo, echo.New()
}

func TestHandler_CreateAndList(t *testing.T) {
	h, _, e := newTestHandler()
	owner := uuid.New()

	body := `{"action":"login","description":"inicio de sesión","metadata":{"ip":"10.0.0.1"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/audit", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req = req.WithContext(auth.WithUser(req.Context(), owner, auth.RoleStaff))
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/audit?action=login", nil)
	req = req.WithContext(auth.WithUser(req.Context(), owner, auth.RoleStaff))
	rec = httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Total int      `json:"total"`
		Data  []*Entry `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 1 || resp.Data[0].Metadata["ip"] != "10.0.0.1" {
		t.Errorf("unexpected list response %s", rec.Body.String())
	}
}

func TestHandler_ListOtherOwnerEmpty(t *testing.T) {
	h, repo, e := newTestHandler()
	repo.Create(context.Background(), &Entry{OwnerID: uuid.New(), Action: "a", Description: "d"})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	req = req.WithContext(auth.WithUser(req.Context(), uuid.New(), auth.RoleStaff))
	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":0`) {
		t.Errorf("expected no entries for another owner, got %s", rec.Body.String())
	}
}

func TestHandler_ListBadFilters(t *testing.T) {
	h, _, e := newTestHandler()
	for _, q := range []string{"entity_id=nope", "from=10-03-2024", "to=yesterday"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/audit?"+q, nil)
		req = req.WithContext(auth.WithUser(req.Context(), uuid.New(), auth.RoleStaff))
		err := h.List(e.NewContext(req, httptest.NewRecorder()))
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("%s: expected validation error, got %v", q, err)
		}
	}
}

func TestHandler_RequiresUser(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/audit", nil)
	err := h.List(e.NewContext(req, httptest.NewRecorder()))
	if apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected unauthorized, got %v", err)
	}
}
