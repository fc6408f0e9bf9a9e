package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"taxi-fleet/internal/auth/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/jwt"
	"taxi-fleet/internal/shared/permissions"
	"taxi-fleet/internal/shared/util"
)

type AuthService struct {
	repo   domain.UserRepository
	secret []byte
	ttl    time.Duration
	logger *util.Logger
}

func NewAuthService(repo domain.UserRepository, secret []byte, ttl time.Duration, logger *util.Logger) *AuthService {
	return &AuthService{repo: repo, secret: secret, ttl: ttl, logger: logger}
}

// Register creates an account. Only admins may do it: the back office
// has no self-service signup.
func (s *AuthService) Register(ctx context.Context, actor permissions.Actor, input domain.RegisterInput) (*domain.User, error) {
	instance := "AuthService.Register"

	if actor.Role != permissions.RoleAdmin {
		return nil, apperrors.ErrPermissionDenied
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperrors.Validationf("a valid email is required")
	}
	if len(input.Password) < 8 {
		return nil, apperrors.Validationf("password must be at least 8 characters")
	}
	if !permissions.ValidRole(input.Role) {
		return nil, apperrors.Validationf("unknown role %q", input.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         input.Role,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.OK(instance, fmt.Sprintf("user %s registered with role %s", user.Email, user.Role))
	return user, nil
}

// Login verifies credentials and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	instance := "AuthService.Login"

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrPermissionDenied)
		}
		return "", nil, err
	}
	if !user.Active {
		s.logger.Warn(instance, fmt.Sprintf("login refused for deactivated user %s", user.Email))
		return "", nil, fmt.Errorf("account is deactivated: %w", apperrors.ErrPermissionDenied)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		s.logger.Warn(instance, fmt.Sprintf("invalid password for %s", user.Email))
		return "", nil, fmt.Errorf("invalid credentials: %w", apperrors.ErrPermissionDenied)
	}

	token, err := jwt.Generate(s.secret, user.ID, user.Role, s.ttl)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	s.logger.OK(instance, fmt.Sprintf("user %s logged in [role=%s]", user.Email, user.Role))
	return token, user, nil
}

// EnsureAdmin seeds the very first admin account on an empty user
// table so the instance can be bootstrapped.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) error {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	admin := &domain.User{
		ID:           uuid.NewString(),
		Email:        strings.ToLower(email),
		Role:         string(permissions.RoleAdmin),
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now(),
	}
	if err := s.repo.Create(ctx, admin); err != nil {
		return err
	}
	s.logger.OK("AuthService.EnsureAdmin", fmt.Sprintf("bootstrap admin %s created", admin.Email))
	return nil
}
