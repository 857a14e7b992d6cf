package auth

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
)

// Service contains all business logic for authentication
type Service struct {
	users UserRepositoryInterface
	jwt   tokenIssuer
	log   *zap.Logger
}

type LoginResult struct {
	User        *User
	AccessToken string
}

func NewService(users UserRepositoryInterface, jwt tokenIssuer, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{users: users, jwt: jwt, log: log}
}

func (s *Service) Register(ctx context.Context, req RegisterRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Email)

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		CollegeName:  strings.TrimSpace(req.CollegeName),
		Role:         RoleStudent,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := CheckPassword(req.Password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.users.GetByID(ctx, id)
}

// PromoteRole grants an admin role after an approved admin request.
func (s *Service) PromoteRole(ctx context.Context, userID int64, role UserRole) error {
	switch role {
	case RoleCampusAdmin, RoleClubAdmin:
	default:
		return ErrInvalidRole
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == RoleSuperAdmin {
		return nil
	}
	return s.users.UpdateRole(ctx, userID, role)
}

// EnsureSuperAdmin creates the configured reviewer account on first start, or
// upgrades an existing account with that email.
func (s *Service) EnsureSuperAdmin(ctx context.Context, email, password string) error {
	email = normalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if user.Role == RoleSuperAdmin {
			return nil
		}
		s.log.Info("upgrading existing user to super admin", zap.Int64("user_id", user.ID))
		return s.users.UpdateRole(ctx, user.ID, RoleSuperAdmin)
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.Create(ctx, &User{
		Email:        email,
		PasswordHash: hash,
		Name:         "Super Admin",
		Role:         RoleSuperAdmin,
	}); err != nil {
		return err
	}
	s.log.Info("seeded super admin", zap.String("email", email))
	return nil
}

func (s *Service) issue(user *User) (*LoginResult, error) {
	token, err := s.jwt.GenerateToken(user.ID, string(user.Role))
	if err != nil {
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
