package user

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/domain/audit"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/apperr"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/auth"
	"github.com/andressvc/App-Movil-ASOCRISTA-sub001/internal/platform/db"
)

const CodeInvalidCredentials = "INVALID_CREDENTIALS"

type Service struct {
	repo     Repository
	issuer   *auth.Issuer
	denylist auth.Denylist
	audit    audit.Sink
}

func NewService(repo Repository, issuer *auth.Issuer, denylist auth.Denylist, sink audit.Sink) *Service {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Service{repo: repo, issuer: issuer, denylist: denylist, audit: sink}
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 || strings.Count(email, "@") != 1 {
		return "", apperr.Validation("invalid email")
	}
	return email, nil
}

func (s *Service) get(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}

// Principal resolves the current role and active flag of a token subject.
func (s *Service) Principal(ctx context.Context, id uuid.UUID) (*auth.Principal, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{ID: u.ID, Role: u.Role, Active: u.Active}, nil
}

// Create registers a staff member. Emails are unique case-insensitively.
func (s *Service) Create(ctx context.Context, in NewUser) (*User, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	email, err := normalizeEmail(in.Email)
	if err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = auth.RoleStaff
	}
	if role != auth.RoleStaff && role != auth.RoleAdmin {
		return nil, apperr.Validation("role must be %s or %s", auth.RoleStaff, auth.RoleAdmin)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Validation("%v", err)
	}

	u := &User{Name: name, Email: email, PasswordHash: hash, Role: role, Active: true}
	if err := s.repo.Create(ctx, u); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("EMAIL_TAKEN", "email already registered")
		}
		return nil, apperr.Internal(err)
	}
	if actor := auth.UserIDFromContext(ctx); actor != uuid.Nil {
		s.audit.Record(ctx, audit.NewEntry(actor, "user.create", "created user "+u.Email, "user", u.ID))
	}
	return u, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.Unauthorized(CodeInvalidCredentials, "invalid email or password")
		}
		return nil, apperr.Internal(err)
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return nil, apperr.Unauthorized(CodeInvalidCredentials, "invalid email or password")
	}
	if !u.Active {
		return nil, apperr.Unauthorized(auth.CodeUserInactive, "user is inactive")
	}

	tok, err := s.issuer.Issue(u.ID, u.Role, u.Name, u.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	s.audit.Record(ctx, audit.NewEntry(u.ID, "auth.login", "user logged in", "user", u.ID))
	return &LoginResult{Token: tok.Token, ExpiresAt: tok.ExpiresAt, User: u}, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims == nil || claims.ID == "" {
		return apperr.Unauthorized(auth.CodeTokenInvalid, "token cannot be revoked")
	}
	exp := time.Now().Add(24 * time.Hour)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	if s.denylist != nil {
		if err := s.denylist.Revoke(ctx, claims.ID, exp); err != nil {
			return apperr.Internal(err)
		}
	}
	if id, err := uuid.Parse(claims.Subject); err == nil {
		s.audit.Record(ctx, audit.NewEntry(id, "auth.logout", "user logged out", "user", id))
	}
	return nil
}

func (s *Service) Profile(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.get(ctx, id)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, patch ProfilePatch) (*User, error) {
	u, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		u.Name = name
	}
	if patch.Email != nil {
		email, err := normalizeEmail(*patch.Email)
		if err != nil {
			return nil, err
		}
		u.Email = email
	}
	if err := s.repo.UpdateProfile(ctx, u); err != nil {
		if db.IsUniqueViolation(err) {
			return nil, apperr.Conflict("EMAIL_TAKEN", "email already registered")
		}
		return nil, apperr.Internal(err)
	}
	s.audit.Record(ctx, audit.NewEntry(u.ID, "user.profile", "updated profile", "user", u.ID))
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, id uuid.UUID, in PasswordChange) error {
	u, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		return apperr.Validation("current password is incorrect")
	}
	if in.NewPassword == in.CurrentPassword {
		return apperr.Validation("new password must differ from the current one")
	}
	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return apperr.Validation("%v", err)
	}
	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		return apperr.Internal(err)
	}
	s.audit.Record(ctx, audit.NewEntry(u.ID, "user.password", "changed password", "user", u.ID))
	return nil
}

// ListActive returns every active staff member. Used by the daily report
// job.
func (s *Service) ListActive(ctx context.Context) ([]*User, error) {
	users, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return users, nil
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	u, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, apperr.NotFound("user")
		}
		return nil, apperr.Internal(err)
	}
	return u, nil
}
