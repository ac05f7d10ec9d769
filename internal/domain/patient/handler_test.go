package patient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
)

func newTestHandler() (*Handler, *Service, *echo.Echo) {
	svc, _, _ := newTestService()
	return NewHandler(svc), svc, echo.New()
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req.WithContext(auth.WithUser(req.Context(), uuid.New(), auth.RoleStaff))
}

func TestHandler_CreatePatient(t *testing.T) {
	h, _, e := newTestHandler()
	req := jsonRequest(http.MethodPost, "/api/v1/patients", `{"name":"Ana","surname":"Gómez","phone":"5555-1234"}`)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var resp struct {
		Success bool    `json:"success"`
		Data    Patient `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Success || resp.Data.Code != "PAC00001" || !resp.Data.Active {
		t.Errorf("unexpected response %s", rec.Body.String())
	}
}

func TestHandler_CreatePatient_Invalid(t *testing.T) {
	h, _, e := newTestHandler()
	req := jsonRequest(http.MethodPost, "/api/v1/patients", `{"name":"Ana"}`)
	err := h.Create(e.NewContext(req, httptest.NewRecorder()))
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_GetPatient(t *testing.T) {
	h, svc, e := newTestHandler()
	p := &Patient{Name: "Ana", Surname: "Gómez"}
	svc.Create(staffCtx(), p)

	req := jsonRequest(http.MethodGet, "/", "")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.Get(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "PAC00001") {
		t.Errorf("expected patient code in body, got %s", rec.Body.String())
	}
}

func TestHandler_GetPatient_BadID(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodGet, "/", ""), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("not-a-uuid")
	if err := h.Get(c); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_GetPatient_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	c := e.NewContext(jsonRequest(http.MethodGet, "/", ""), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if err := h.Get(c); !apperr.IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestHandler_ListAndSearch(t *testing.T) {
	h, svc, e := newTestHandler()
	svc.Create(staffCtx(), &Patient{Name: "Ana", Surname: "Gómez"})
	svc.Create(staffCtx(), &Patient{Name: "Luis", Surname: "Pérez"})

	rec := httptest.NewRecorder()
	if err := h.List(e.NewContext(jsonRequest(http.MethodGet, "/api/v1/patients?limit=1", ""), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Total   int        `json:"total"`
		HasMore bool       `json:"has_more"`
		Data    []*Patient `json:"data"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Total != 2 || len(resp.Data) != 1 || !resp.HasMore {
		t.Errorf("unexpected list response %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	if err := h.Search(e.NewContext(jsonRequest(http.MethodGet, "/api/v1/patients/search?q=luis", ""), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Luis") || strings.Contains(rec.Body.String(), "Ana") {
		t.Errorf("unexpected search response %s", rec.Body.String())
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	h, svc, e := newTestHandler()
	p := &Patient{Name: "Ana", Surname: "Gómez"}
	svc.Create(staffCtx(), p)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPut, "/", `{"address":"Zona 1"}`), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.Update(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "Zona 1") {
		t.Errorf("expected updated address, got %s", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(jsonRequest(http.MethodDelete, "/", ""), rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())
	if err := h.Delete(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}
