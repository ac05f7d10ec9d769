package user

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
)

// -- Mock Repository --

type mockUserRepo struct {
	users map[uuid.UUID]*User
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[uuid.UUID]*User)}
}

func (m *mockUserRepo) emailTaken(email string, except uuid.UUID) bool {
	for _, u := range m.users {
		if u.Email == email && u.ID != except {
			return true
		}
	}
	return false
}

func (m *mockUserRepo) Create(_ context.Context, u *User) error {
	if m.emailTaken(u.Email, uuid.Nil) {
		return &pgconn.PgError{Code: "23505"}
	}
	u.ID = uuid.New()
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockUserRepo) UpdateProfile(_ context.Context, u *User) error {
	if m.emailTaken(u.Email, u.ID) {
		return &pgconn.PgError{Code: "23505"}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string) error {
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.PasswordHash = hash
	return nil
}

func (m *mockUserRepo) ListActive(_ context.Context) ([]*User, error) {
	var out []*User
	for _, u := range m.users {
		if u.Active {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

const testKey = "test-signing-key-that-is-32-bytes!"

func newTestService() (*Service, *mockUserRepo, *auth.MemoryDenylist) {
	repo := newMockUserRepo()
	deny := auth.NewMemoryDenylist()
	svc := NewService(repo, auth.NewIssuer([]byte(testKey), time.Hour), deny, audit.Nop{})
	return svc, repo, deny
}

func mustCreate(t *testing.T, svc *Service, email, role string) *User {
	t.Helper()
	u, err := svc.Create(context.Background(), NewUser{Name: "Ana Gómez", Email: email, Password: "s3cret-pass", Role: role})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

// -- Service --

func TestService_CreateUser(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()

	u := mustCreate(t, svc, "  Ana@Clinica.GT ", "")
	if u.Email != "ana@clinica.gt" {
		t.Errorf("expected normalized email, got %q", u.Email)
	}
	if u.Role != auth.RoleStaff || !u.Active {
		t.Errorf("expected active staff, got role=%s active=%v", u.Role, u.Active)
	}
	if u.PasswordHash == "" || u.PasswordHash == "s3cret-pass" {
		t.Error("expected hashed password")
	}

	_, err := svc.Create(context.Background(), NewUser{Name: "Otra", Email: "ANA@clinica.gt", Password: "another-pass"})
	if !apperr.IsConflict(err) {
		t.Errorf("expected conflict for duplicate email, got %v", err)
	}
}

func TestService_CreateUserValidation(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()
	tests := []NewUser{
		{Email: "a@b.gt", Password: "long-enough"},
		{Name: "A", Email: "not-an-email", Password: "long-enough"},
		{Name: "A", Email: "a@b.gt", Password: "short"},
		{Name: "A", Email: "a@b.gt", Password: "long-enough", Role: "doctor"},
	}
	for _, in := range tests {
		if _, err := svc.Create(context.Background(), in); apperr.KindOf(err) != apperr.KindValidation {
			t.Errorf("%+v: expected validation error, got %v", in, err)
		}
	}
}

func TestService_LoginAndPrincipal(t *testing.T) {
	svc, repo, deny := newTestService()
	defer deny.Close()
	u := mustCreate(t, svc, "ana@clinica.gt", auth.RoleAdmin)

	res, err := svc.Login(context.Background(), "ANA@clinica.gt", "s3cret-pass")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	claims, err := auth.ParseToken(res.Token, []byte(testKey))
	if err != nil {
		t.Fatalf("issued token does not parse: %v", err)
	}
	if claims.Subject != u.ID.String() || claims.Role != auth.RoleAdmin {
		t.Errorf("unexpected claims %+v", claims)
	}

	p, err := svc.Principal(context.Background(), u.ID)
	if err != nil || !p.Active || p.Role != auth.RoleAdmin {
		t.Errorf("unexpected principal %+v err=%v", p, err)
	}

	repo.users[u.ID].Active = false
	if _, err := svc.Login(context.Background(), "ana@clinica.gt", "s3cret-pass"); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected inactive user rejected, got %v", err)
	}
	if _, err := svc.Principal(context.Background(), uuid.New()); !apperr.IsNotFound(err) {
		t.Errorf("expected not found principal, got %v", err)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()
	mustCreate(t, svc, "ana@clinica.gt", "")

	for _, tc := range []struct{ email, pass string }{
		{"ana@clinica.gt", "wrong-password"},
		{"nadie@clinica.gt", "s3cret-pass"},
	} {
		_, err := svc.Login(context.Background(), tc.email, tc.pass)
		var ae *apperr.Error
		if !errors.As(err, &ae) || ae.Code != CodeInvalidCredentials {
			t.Errorf("%s: expected INVALID_CREDENTIALS, got %v", tc.email, err)
		}
	}
	if _, err := svc.Login(context.Background(), "", ""); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestService_LogoutRevokesToken(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()
	mustCreate(t, svc, "ana@clinica.gt", "")
	res, _ := svc.Login(context.Background(), "ana@clinica.gt", "s3cret-pass")
	claims, _ := auth.ParseToken(res.Token, []byte(testKey))

	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	revoked, _ := deny.IsRevoked(context.Background(), claims.ID)
	if !revoked {
		t.Error("expected token to be revoked")
	}
	if err := svc.Logout(context.Background(), nil); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected unauthorized without claims, got %v", err)
	}
}

func TestService_UpdateProfile(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()
	ana := mustCreate(t, svc, "ana@clinica.gt", "")
	mustCreate(t, svc, "luis@clinica.gt", "")

	name := "Ana María"
	u, err := svc.UpdateProfile(context.Background(), ana.ID, ProfilePatch{Name: &name})
	if err != nil || u.Name != "Ana María" || u.Email != "ana@clinica.gt" {
		t.Errorf("unexpected update result %+v err=%v", u, err)
	}

	taken := "LUIS@clinica.gt"
	if _, err := svc.UpdateProfile(context.Background(), ana.ID, ProfilePatch{Email: &taken}); !apperr.IsConflict(err) {
		t.Errorf("expected conflict for taken email, got %v", err)
	}
	empty := " "
	if _, err := svc.UpdateProfile(context.Background(), ana.ID, ProfilePatch{Name: &empty}); apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for empty name, got %v", err)
	}
}

func TestService_ChangePassword(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()
	u := mustCreate(t, svc, "ana@clinica.gt", "")

	err := svc.ChangePassword(context.Background(), u.ID, PasswordChange{CurrentPassword: "wrong", NewPassword: "brand-new-pass"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for wrong current password, got %v", err)
	}
	err = svc.ChangePassword(context.Background(), u.ID, PasswordChange{CurrentPassword: "s3cret-pass", NewPassword: "s3cret-pass"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation error for unchanged password, got %v", err)
	}
	if err := svc.ChangePassword(context.Background(), u.ID, PasswordChange{CurrentPassword: "s3cret-pass", NewPassword: "brand-new-pass"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.Login(context.Background(), "ana@clinica.gt", "brand-new-pass"); err != nil {
		t.Errorf("expected login with new password, got %v", err)
	}
}

// -- Handler --

func TestHandler_LoginAndProfile(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()
	u := mustCreate(t, svc, "ana@clinica.gt", "")
	h := NewHandler(svc)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"ana@clinica.gt","password":"s3cret-pass"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Login(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"token"`) || strings.Contains(rec.Body.String(), "password_hash") {
		t.Errorf("unexpected login body %s", rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	req = req.WithContext(auth.WithUser(req.Context(), u.ID, auth.RoleStaff))
	rec = httptest.NewRecorder()
	if err := h.GetProfile(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), "ana@clinica.gt") {
		t.Errorf("expected profile email, got %s", rec.Body.String())
	}
}

func TestHandler_ProfileRequiresUser(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()
	h := NewHandler(svc)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/profile", nil)
	if err := h.GetProfile(e.NewContext(req, httptest.NewRecorder())); apperr.KindOf(err) != apperr.KindUnauthorized {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestHandler_CreateUser(t *testing.T) {
	svc, _, deny := newTestService()
	defer deny.Close()
	h := NewHandler(svc)
	e := echo.New()

	body := `{"name":"Luis","email":"luis@clinica.gt","password":"password-123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/users", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	if err := h.Create(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}
