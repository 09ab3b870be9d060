package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LeventeLantos/event-checkin/internal/logger"
	"github.com/LeventeLantos/event-checkin/internal/model"
	"github.com/LeventeLantos/event-checkin/internal/repo"
	"github.com/LeventeLantos/event-checkin/internal/session"
	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("authentication required")
)

type AuthService struct {
	admins   repo.AdminRepository
	sessions session.Store
	params   *argon2id.Params
	log      zerolog.Logger
}

func NewAuthService(admins repo.AdminRepository, sessions session.Store, log zerolog.Logger) *AuthService {
	return &AuthService{
		admins:   admins,
		sessions: sessions,
		params:   argon2id.DefaultParams,
		log:      logger.Component(log, "auth"),
	}
}

// WithParams overrides the argon2id cost parameters.
func (s *AuthService) WithParams(p *argon2id.Params) *AuthService {
	s.params = p
	return s
}

// Login checks the credentials and opens a session. Unknown emails and wrong
// passwords return the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.AdminUser, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, ErrInvalidCredentials
	}

	admin, err := s.admins.FindAdminByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		s.log.Info().Str("email", email).Msg("login rejected: unknown email")
		return "", nil, ErrInvalidCredentials
	}
	if err != nil {
		return "", nil, err
	}

	ok, err := argon2id.ComparePasswordAndHash(password, admin.PasswordHash)
	if err != nil {
		return "", nil, fmt.Errorf("compare password: %w", err)
	}
	if !ok {
		s.log.Info().Int64("admin_id", admin.ID).Msg("login rejected: wrong password")
		return "", nil, ErrInvalidCredentials
	}

	token := uuid.NewString()
	if err := s.sessions.Create(ctx, token, admin.ID); err != nil {
		return "", nil, fmt.Errorf("create session: %w", err)
	}
	s.log.Info().Int64("admin_id", admin.ID).Msg("admin logged in")
	return token, admin, nil
}

func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.sessions.Delete(ctx, token)
}

// Authenticate resolves a session token to its admin.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*model.AdminUser, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	id, err := s.sessions.Get(ctx, token)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	admin, err := s.admins.GetAdmin(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		_ = s.sessions.Delete(ctx, token)
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, err
	}
	return admin, nil
}

// EnsureAdmin creates the bootstrap admin unless one with that email
// already exists. It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password, name string) (bool, error) {
	_, err := s.admins.FindAdminByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repo.ErrNotFound) {
		return false, err
	}

	hash, err := argon2id.CreateHash(password, s.params)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	admin := &model.AdminUser{Email: email, Name: name, PasswordHash: hash}
	if err := s.admins.CreateAdmin(ctx, admin); err != nil {
		if errors.Is(err, repo.ErrDuplicateEmail) {
			return false, nil
		}
		return false, err
	}
	s.log.Info().Int64("admin_id", admin.ID).Str("email", admin.Email).Msg("bootstrap admin created")
	return true, nil
}
