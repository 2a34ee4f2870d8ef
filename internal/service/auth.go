package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/Dan9191/issue-tracker/internal/auth"
	"github.com/Dan9191/issue-tracker/internal/models"
	"github.com/Dan9191/issue-tracker/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

const (
	minNameLength     = 2
	minPasswordLength = 6
	// bcrypt rejects longer inputs
	maxPasswordBytes = 72
)

// Register creates a new user with hashed password and signs them in
func (s *Service) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResponse, error) {
	email := models.NormalizeEmail(req.Email)
	name := strings.TrimSpace(req.Name)

	if email == "" || req.Password == "" || name == "" {
		return nil, invalid("email, password and name are required")
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return nil, invalid("invalid email address")
	}
	if utf8.RuneCountInString(name) < minNameLength {
		return nil, invalid(fmt.Sprintf("name must be at least %d characters", minNameLength))
	}
	if len(req.Password) < minPasswordLength {
		return nil, invalid(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if len(req.Password) > maxPasswordBytes {
		return nil, invalid(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: string(hashedPassword),
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return s.signIn(user)
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, invalid("email and password are required")
	}

	user, err := s.store.FindUserByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warnf("Login failed for unknown email %s", email)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.log.Warnf("Login failed for %s: wrong password", email)
		return nil, ErrInvalidCredentials
	}

	s.log.Infof("User logged in: %s", user.Email)
	return s.signIn(user)
}

func (s *Service) signIn(user *models.User) (*models.AuthResponse, error) {
	token, _, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &models.AuthResponse{Token: token, User: user}, nil
}

// Authenticate parses a bearer token and rejects revoked ones
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", auth.ErrInvalidToken)
	}
	return claims, nil
}

// Logout revokes the token until its natural expiry
func (s *Service) Logout(ctx context.Context, claims *auth.Claims) error {
	if claims.ExpiresAt == nil {
		return nil
	}
	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return err
	}
	s.log.Infof("User logged out: %s", claims.UserID)
	return nil
}

// Me returns the user behind the current token
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.store.FindUserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}
