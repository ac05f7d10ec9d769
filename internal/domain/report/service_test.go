package report

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/user"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/dateutil"
)

type fakeUsers map[uuid.UUID]*user.User

func (f fakeUsers) Profile(_ context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, apperr.NotFound("user")
	}
	return u, nil
}

type sinkFunc func(audit.Entry)

func (f sinkFunc) Record(_ context.Context, e audit.Entry) { f(e) }

func newTestService(t *testing.T) (*Service, *builderFixture, *[]string) {
	t.Helper()
	owner := sampleOwner()
	appts, moves := sampleDay(owner.ID)
	f := newBuilderFixture(appts, moves, owner)
	z := dateutil.MustZone("America/Guatemala")
	z = z.WithClock(func() time.Time { return time.Date(2024, 6, 10, 20, 0, 0, 0, z.Location()) })
	users := fakeUsers{owner.ID: {ID: owner.ID, Name: owner.Name, Email: owner.Email, Active: true}}
	var actions []string
	sink := sinkFunc(func(e audit.Entry) { actions = append(actions, e.Action) })
	return NewService(f.builder, f.repo, f.store, users, z, sink), f, &actions
}

func TestService_GenerateDefaultsToToday(t *testing.T) {
	svc, f, actions := newTestService(t)
	rep, data, err := svc.Generate(context.Background(), f.owner.ID, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Date != "2024-06-10" || data.Owner.Name != "Dra. Morales" {
		t.Errorf("unexpected report %+v for %+v", rep, data.Owner)
	}
	if len(*actions) != 1 || (*actions)[0] != "report.generate" {
		t.Errorf("expected one report.generate audit entry, got %v", *actions)
	}
}

func TestService_GenerateValidation(t *testing.T) {
	svc, f, _ := newTestService(t)
	if _, _, err := svc.Generate(context.Background(), f.owner.ID, "10/06/2024"); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, _, err := svc.Generate(context.Background(), uuid.New(), "2024-06-10"); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for unknown owner, got %v", err)
	}
	f.builder.renderer = failingRenderer{}
	if _, _, err := svc.Generate(context.Background(), f.owner.ID, "2024-06-10"); apperr.KindOf(err) != apperr.KindInternal {
		t.Errorf("expected internal error, got %v", err)
	}
}

func TestService_DownloadAndMarkSent(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()
	rep, _, err := svc.Generate(ctx, f.owner.ID, "2024-06-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rc, name, err := svc.Download(ctx, f.owner.ID, rep.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, _ := io.ReadAll(rc)
	rc.Close()
	if !strings.HasPrefix(name, "reporte_2024-06-10_") || !strings.HasPrefix(string(body), "%PDF-") {
		t.Errorf("unexpected download %s (%d bytes)", name, len(body))
	}

	if _, _, err := svc.Download(ctx, uuid.New(), rep.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found for other owner, got %v", err)
	}

	at := time.Date(2024, 6, 10, 20, 1, 0, 0, time.UTC)
	if err := svc.MarkSent(ctx, f.owner.ID, rep.ID, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := svc.GetByDate(ctx, f.owner.ID, "2024-06-10")
	if !got.SentToOwner || got.SentAt == nil || !got.SentAt.Equal(at) {
		t.Errorf("expected sent state, got %+v", got)
	}
	if err := svc.MarkSent(ctx, f.owner.ID, uuid.New(), at); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_DownloadMissingArtifact(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()
	rep, _, _ := svc.Generate(ctx, f.owner.ID, "2024-06-10")

	if n, _ := f.store.PurgeOlderThan(ctx, time.Now().Add(time.Hour)); n != 1 {
		t.Fatalf("expected one purged artifact, got %d", n)
	}

	if _, _, err := svc.Download(ctx, f.owner.ID, rep.ID); !apperr.IsNotFound(err) {
		t.Errorf("expected not found after purge, got %v", err)
	}
}

func TestService_List(t *testing.T) {
	svc, f, _ := newTestService(t)
	ctx := context.Background()
	for _, d := range []string{"2024-06-08", "2024-06-09", "2024-06-10"} {
		if _, _, err := svc.Generate(ctx, f.owner.ID, d); err != nil {
			t.Fatalf("generate %s: %v", d, err)
		}
	}
	items, total, err := svc.List(ctx, f.owner.ID, ListFilter{From: "2024-06-09"}, 20, 0)
	if err != nil || total != 2 || items[0].Date != "2024-06-10" {
		t.Errorf("expected 2 reports newest first, got %d %v", total, err)
	}
	if _, _, err := svc.List(ctx, f.owner.ID, ListFilter{To: "junio"}, 20, 0); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestReport_MarshalFixedAmounts(t *testing.T) {
	rep := Report{
		ID:            uuid.New(),
		Date:          "2024-06-10",
		TotalIncome:   decimal.RequireFromString("500"),
		TotalExpenses: decimal.RequireFromString("120.5"),
		Balance:       decimal.RequireFromString("379.5"),
	}
	raw, err := json.Marshal(&rep)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	body := string(raw)
	for _, want := range []string{`"total_income":"500.00"`, `"total_expenses":"120.50"`, `"balance":"379.50"`, `"date":"2024-06-10"`, `"id":"` + rep.ID.String() + `"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
}

// -- Handler --

func ownerRequest(owner uuid.UUID, method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req.WithContext(auth.WithUser(req.Context(), owner, auth.RoleStaff))
}

func TestHandler_GenerateAndDownload(t *testing.T) {
	svc, f, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()

	rec := httptest.NewRecorder()
	if err := h.Generate(e.NewContext(ownerRequest(f.owner.ID, http.MethodPost, "/api/v1/reports/generate", `{"date":"2024-06-10"}`), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated || !strings.Contains(rec.Body.String(), `"total_patients":2`) {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}

	rep, _ := svc.GetByDate(context.Background(), f.owner.ID, "2024-06-10")
	rec = httptest.NewRecorder()
	c := e.NewContext(ownerRequest(f.owner.ID, http.MethodGet, "/", ""), rec)
	c.SetParamNames("id")
	c.SetParamValues(rep.ID.String())
	if err := h.Download(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(echo.HeaderContentType) != "application/pdf" {
		t.Errorf("expected application/pdf, got %s", rec.Header().Get(echo.HeaderContentType))
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "reporte_2024-06-10_") {
		t.Errorf("unexpected disposition %s", rec.Header().Get(echo.HeaderContentDisposition))
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Error("expected PDF body")
	}
}

func TestHandler_GenerateWithoutBody(t *testing.T) {
	svc, f, _ := newTestService(t)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(ownerRequest(f.owner.ID, http.MethodPost, "/api/v1/reports/generate", ""), rec)
	if err := NewHandler(svc).Generate(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"date":"2024-06-10"`) {
		t.Errorf("expected today's report, got %s", rec.Body.String())
	}
}

func TestHandler_GetAndList(t *testing.T) {
	svc, f, _ := newTestService(t)
	h := NewHandler(svc)
	e := echo.New()
	rep, _, _ := svc.Generate(context.Background(), f.owner.ID, "2024-06-10")

	rec := httptest.NewRecorder()
	c := e.NewContext(ownerRequest(f.owner.ID, http.MethodGet, "/", ""), rec)
	c.SetParamNames("id")
	c.SetParamValues(rep.ID.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rec = httptest.NewRecorder()
	if err := h.List(e.NewContext(ownerRequest(f.owner.ID, http.MethodGet, "/api/v1/reports", ""), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("unexpected list %s", rec.Body.String())
	}

	c = e.NewContext(ownerRequest(f.owner.ID, http.MethodGet, "/", ""), httptest.NewRecorder())
	c.SetParamNames("date")
	c.SetParamValues("2024-06-01")
	if err := h.GetByDate(c); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}
