package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/textlane/textlane/internal/identity/domain"
	"github.com/textlane/textlane/internal/identity/repository"
)

var ErrTokenInvalid = errors.New("token is invalid or expired")

// HashPassword hashes a plaintext password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPasswordHash compares a plaintext password against a bcrypt hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthConfig carries JWT signing parameters.
type AuthConfig struct {
	JWTSecret      string
	JWTExpiryHours int
}

// Claims is the JWT payload issued at login.
type Claims struct {
	UserID  string `json:"uid"`
	Role    string `json:"role"`
	AdminID string `json:"admin_id,omitempty"`
	jwt.RegisteredClaims
}

// AuthService handles registration, login, token validation and profiles.
type AuthService struct {
	userRepo repository.UserRepository
	dbPool   *pgxpool.Pool
	config   AuthConfig
	logger   *slog.Logger
}

func NewAuthService(userRepo repository.UserRepository, dbPool *pgxpool.Pool, config AuthConfig, logger *slog.Logger) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		dbPool:   dbPool,
		config:   config,
		logger:   logger.With("service", "auth"),
	}
}

// Register creates a new admin account.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, string, error) {
	existing, err := s.userRepo.GetByEmail(ctx, s.dbPool, email)
	if err == nil && existing != nil {
		return nil, "", domain.ErrDuplicateEmail
	}
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		s.logger.ErrorContext(ctx, "error checking email existence", "error", err, "email", email)
		return nil, "", err
	}

	hashed, err := HashPassword(password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", "error", err)
		return nil, "", errors.New("failed to process registration")
	}

	user := &domain.User{
		ID:             uuid.New(),
		Email:          email,
		Name:           name,
		HashedPassword: hashed,
		Role:           domain.RoleAdmin,
		IsActive:       true,
	}
	if err := s.userRepo.Create(ctx, s.dbPool, user); err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, "", domain.ErrDuplicateEmail
		}
		s.logger.ErrorContext(ctx, "failed to create user", "error", err, "email", email)
		return nil, "", errors.New("failed to save registration")
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login authenticates by email/password and issues a JWT.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.userRepo.GetByEmail(ctx, s.dbPool, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, "", domain.ErrInvalidCredentials
		}
		s.logger.ErrorContext(ctx, "error fetching user by email", "error", err, "email", email)
		return nil, "", err
	}

	if !CheckPasswordHash(password, user.HashedPassword) {
		return nil, "", domain.ErrInvalidCredentials
	}
	if !user.IsActive {
		s.logger.WarnContext(ctx, "login attempt for inactive user", "user_id", user.ID)
		return nil, "", domain.ErrAccountInactive
	}

	token, err := s.generateToken(user)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// ValidateToken parses and verifies a JWT, returning the authenticated user.
// The user row is re-read so deactivation takes effect immediately.
func (s *AuthService) ValidateToken(ctx context.Context, tokenString string) (*domain.User, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	user, err := s.userRepo.GetByID(ctx, s.dbPool, userID)
	if err != nil {
		return nil, ErrTokenInvalid
	}
	if !user.IsActive {
		return nil, domain.ErrAccountInactive
	}
	return user, nil
}

// GetProfile returns the user by id.
func (s *AuthService) GetProfile(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.userRepo.GetByID(ctx, s.dbPool, id)
}

// UpdateProfile changes mutable profile fields.
func (s *AuthService) UpdateProfile(ctx context.Context, id uuid.UUID, name string) (*domain.User, error) {
	if err := s.userRepo.UpdateProfile(ctx, s.dbPool, id, name); err != nil {
		return nil, err
	}
	return s.userRepo.GetByID(ctx, s.dbPool, id)
}

func (s *AuthService) generateToken(user *domain.User) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID: user.ID.String(),
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.config.JWTExpiryHours) * time.Hour)),
		},
	}
	if user.AdminID != nil {
		claims.AdminID = user.AdminID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		s.logger.Error("failed to sign token", "error", err)
		return "", errors.New("failed to issue token")
	}
	return signed, nil
}
