package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"nextflow/internal/repo"
)

var (
	// ErrInvalidCredentials covers unknown email, wrong password and inactive accounts alike.
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidInput       = errors.New("invalid registration")
)

const minPasswordLength = 6

// Admin describes the account seeded on an empty install.
type Admin struct {
	Name     string
	Email    string
	Password string
}

// RegisterRequest is the self-registration payload.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Service matches credentials against the users table. It does not guard routes.
type Service struct {
	users  *repo.UserTable
	logger *slog.Logger
}

func New(users *repo.UserTable, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{users: users, logger: logger.With("component", "auth")}
}

// Login returns the active user whose email (case-insensitive) and password match.
func (s *Service) Login(ctx context.Context, email, password string) (*repo.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	for i := range users {
		u := users[i]
		if !strings.EqualFold(u.Email, email) {
			continue
		}
		// Rows written through the entity routes may differ only in email case.
		if subtle.ConstantTimeCompare([]byte(u.Password), []byte(password)) != 1 || u.Status != repo.StatusActive {
			continue
		}
		return &u, nil
	}
	s.logger.Info("login rejected", "email", email)
	return nil, ErrInvalidCredentials
}

// Register creates an active client account and returns its id.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.ToLower(strings.TrimSpace(req.Email))
	switch {
	case name == "" || email == "" || req.Password == "":
		return "", fmt.Errorf("%w: name, email and password are required", ErrInvalidInput)
	case !strings.Contains(email, "@"):
		return "", fmt.Errorf("%w: email is malformed", ErrInvalidInput)
	case len(req.Password) < minPasswordLength:
		return "", fmt.Errorf("%w: password must have at least %d characters", ErrInvalidInput, minPasswordLength)
	}

	taken, err := s.emailTaken(ctx, email)
	if err != nil {
		return "", err
	}
	if taken {
		return "", ErrEmailTaken
	}

	id, err := s.users.Create(ctx, repo.Fields{
		"name":     name,
		"email":    email,
		"password": req.Password,
		"role":     repo.RoleClient,
		"status":   repo.StatusActive,
	})
	if errors.Is(err, repo.ErrUniqueViolation) {
		return "", ErrEmailTaken
	}
	if err != nil {
		return "", fmt.Errorf("register: %w", err)
	}
	s.logger.Info("user registered", "user_id", id)
	return id, nil
}

// EnsureAdmin creates admin when no user holds the admin role. It reports
// whether a user was created.
func (s *Service) EnsureAdmin(ctx context.Context, admin Admin) (bool, error) {
	admins, err := s.users.Filter(ctx, "role", repo.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if len(admins) > 0 {
		return false, nil
	}
	email := strings.ToLower(strings.TrimSpace(admin.Email))
	if email == "" || admin.Password == "" {
		return false, fmt.Errorf("%w: admin email and password are required", ErrInvalidInput)
	}
	id, err := s.users.Create(ctx, repo.Fields{
		"name":     admin.Name,
		"email":    email,
		"password": admin.Password,
		"role":     repo.RoleAdmin,
		"status":   repo.StatusActive,
	})
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	s.logger.Info("default admin created", "user_id", id, "email", email)
	return true, nil
}

func (s *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	users, err := s.users.GetAll(ctx)
	if err != nil {
		return false, fmt.Errorf("register: %w", err)
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return true, nil
		}
	}
	return false, nil
}
