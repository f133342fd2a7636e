package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/careloop/priorauth/internal/domain"
	"github.com/careloop/priorauth/pkg/auth"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked due to multiple failed login attempts")
	ErrAccountInactive    = errors.New("account is inactive")
	ErrEmailTaken         = errors.New("a user with this email already exists")
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error
}

type AuthService struct {
	userRepo   UserRepository
	jwtManager *auth.JWTManager
	auditSvc   *AuditService
	log        *zap.Logger
}

func NewAuthService(userRepo UserRepository, jwtManager *auth.JWTManager, auditSvc *AuditService, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, jwtManager: jwtManager, auditSvc: auditSvc, log: log}
}

func (s *AuthService) Login(ctx context.Context, email, password string, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Use bcrypt dummy hash to prevent timing-based user enumeration.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if user.IsLocked() {
		return nil, ErrAccountLocked
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		// Record failed attempt; lock if threshold exceeded
		_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, false)
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	_ = s.userRepo.UpdateLoginAttempt(ctx, user.ID, true)

	claims := &domain.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.FullName(),
		Role:   user.Role,
	}

	pair, err := s.jwtManager.GenerateTokenPair(claims)
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       user.ID,
		UserRole:     user.Role,
		Action:       domain.ActionLogin,
		ResourceType: "user",
		ResourceID:   user.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-read the user so a deactivated or role-changed account cannot keep
	// minting tokens from an old refresh token.
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	fresh := &domain.Claims{
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.FullName(),
		Role:   user.Role,
	}
	return s.jwtManager.GenerateTokenPair(fresh)
}

type RegisterUserCommand struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
	NPI       string
}

const minPasswordLength = 12

// RegisterUser creates a staff account. Admin only.
func (s *AuthService) RegisterUser(ctx context.Context, cmd *RegisterUserCommand, caller *domain.Claims, ip string) (*domain.User, error) {
	if caller.Role != domain.RoleAdmin {
		return nil, ErrForbidden
	}

	var errs []string
	if strings.TrimSpace(cmd.Email) == "" {
		errs = append(errs, "email is required")
	}
	if len(cmd.Password) < minPasswordLength {
		errs = append(errs, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}
	if !cmd.Role.IsValid() {
		errs = append(errs, "role is invalid")
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	u := &domain.User{
		Email:             strings.ToLower(strings.TrimSpace(cmd.Email)),
		PasswordHash:      string(hash),
		FirstName:         strings.TrimSpace(cmd.FirstName),
		LastName:          strings.TrimSpace(cmd.LastName),
		Role:              cmd.Role,
		NPI:               cmd.NPI,
		IsActive:          true,
		PasswordChangedAt: time.Now(),
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       caller.UserID,
		UserRole:     caller.Role,
		Action:       domain.ActionCreate,
		ResourceType: "user",
		ResourceID:   u.ID.String(),
		IPAddress:    ip,
	})

	return u, nil
}
