package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"go.uber.org/zap"

	"evcharging-backend/config"
	"evcharging-backend/internal/apperr"
	"evcharging-backend/internal/auth"
	"evcharging-backend/internal/model"
	"evcharging-backend/internal/store"
)

const minPasswordLength = 8

// SignupInput carries a new member's credentials.
type SignupInput struct {
	Email    string
	Password string
	Name     string
}

// AuthService registers members and issues access tokens.
type AuthService struct {
	store  store.Store
	hasher auth.Hasher
	tokens *auth.TokenService
	logger *zap.Logger
}

// NewAuthService builds an AuthService.
func NewAuthService(s store.Store, hasher auth.Hasher, tokens *auth.TokenService, logger *zap.Logger) *AuthService {
	return &AuthService{store: s, hasher: hasher, tokens: tokens, logger: logger}
}

// Signup creates a USER account. Emails are compared case-insensitively.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) (*model.Member, error) {
	email := normalizeEmail(in.Email)

	var v violations
	if email == "" {
		v.add("email", "must not be blank")
	} else if _, err := mail.ParseAddress(email); err != nil {
		v.add("email", "must be a well-formed email address")
	}
	if len(in.Password) < minPasswordLength {
		v.add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(in.Name) == "" {
		v.add("name", "must not be blank")
	}
	if err := v.err(); err != nil {
		return nil, err
	}

	return s.register(ctx, email, in.Password, strings.TrimSpace(in.Name), model.RoleUser)
}

// Login checks the credentials and returns a signed access token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	member, err := s.store.GetMemberByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.ErrInvalidCredentials
		}
		return "", err
	}
	if err := s.hasher.Compare(member.PasswordHash, password); err != nil {
		return "", apperr.ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(member.Email, member.Role)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	s.logger.Info("member logged in", zap.Int64("member_id", member.ID), zap.String("role", string(member.Role)))
	return token, nil
}

// EnsureAdmin creates the configured ADMIN account unless it already exists.
// It does nothing when no email is configured.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	email := normalizeEmail(cfg.Email)
	if email == "" {
		return nil
	}
	if cfg.Password == "" {
		return errors.New("bootstrap admin: password must be set")
	}

	_, err := s.store.GetMemberByEmail(ctx, email)
	switch {
	case err == nil:
		return nil
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	if _, err := s.register(ctx, email, cfg.Password, cfg.Name, model.RoleAdmin); err != nil {
		if errors.Is(err, apperr.ErrDuplicateEmail) {
			return nil
		}
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	return nil
}

func (s *AuthService) register(ctx context.Context, email, password, name string, role model.Role) (*model.Member, error) {
	if _, err := s.store.GetMemberByEmail(ctx, email); err == nil {
		return nil, apperr.ErrDuplicateEmail
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	member := &model.Member{Email: email, PasswordHash: hash, Name: name, Role: role}
	if err := s.store.CreateMember(ctx, member); err != nil {
		// Lost a race with a concurrent signup for the same address.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.ErrDuplicateEmail
		}
		return nil, err
	}

	s.logger.Info("member registered", zap.Int64("member_id", member.ID), zap.String("role", string(role)))
	return member, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
