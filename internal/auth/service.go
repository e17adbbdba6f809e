// Package auth issues and verifies viewer tokens and manages accounts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wko-katas/katas-engine/internal/access"
	"github.com/wko-katas/katas-engine/internal/models"
	"github.com/wko-katas/katas-engine/internal/storage"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrForbidden          = errors.New("admin privileges required")
	ErrUserExists         = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnknownBelt        = errors.New("unknown belt")
	ErrMissingFields      = errors.New("all fields required")
)

const (
	DefaultTokenTTL = 7 * 24 * time.Hour
	issuer          = "katas-engine"
)

// Claims is the payload of an access token
type Claims struct {
	UserID   int              `json:"id"`
	Username string           `json:"username"`
	Name     string           `json:"name"`
	Belt     models.BeltLevel `json:"belt"`
	jwt.RegisteredClaims
}

// User returns the public user fields carried by the token
func (c *Claims) User() *models.User {
	return &models.User{
		ID:       c.UserID,
		Username: c.Username,
		Name:     c.Name,
		Belt:     c.Belt,
	}
}

// Config holds token and hashing settings
type Config struct {
	Secret     string
	TokenTTL   time.Duration
	BcryptCost int
}

// Service implements login, registration and user administration
type Service struct {
	users  storage.UserStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *slog.Logger
}

// NewService creates an auth service
func NewService(users storage.UserStore, cfg Config, logger *slog.Logger) (*Service, error) {
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = DefaultTokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		users:  users,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TokenTTL,
		cost:   cfg.BcryptCost,
		now:    time.Now,
		logger: logger,
	}, nil
}

// Login checks the password and issues a token
func (s *Service) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if req.Username == "" || req.Password == "" {
		return nil, ErrMissingFields
	}

	user, err := s.users.GetUserByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID, "username", user.Username)
	return &models.LoginResponse{Token: token, User: user}, nil
}

// Register creates an account. Only an admin caller may register users.
func (s *Service) Register(ctx context.Context, caller *Claims, req models.RegisterRequest) (*models.User, error) {
	if caller == nil || !access.IsAdmin(caller.Belt) {
		return nil, ErrForbidden
	}

	req.Username = strings.TrimSpace(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	if req.Username == "" || req.Password == "" || req.Name == "" || req.Belt == "" {
		return nil, ErrMissingFields
	}
	if !req.Belt.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownBelt, req.Belt)
	}

	user, err := s.createUser(ctx, req)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user registered",
		"user_id", user.ID,
		"username", user.Username,
		"belt", user.Belt,
		"registered_by", caller.Username,
	)
	return user, nil
}

// Verify parses and validates a token
func (s *Service) Verify(tokenString string) (*Claims, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuer(issuer),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// IssueToken signs a token for user
func (s *Service) IssueToken(user *models.User) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		Name:     user.Name,
		Belt:     user.Belt,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// ListUsers returns every account
func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// UpdateUser applies the non-nil fields of update
func (s *Service) UpdateUser(ctx context.Context, id int, update models.UserUpdate) (*models.User, error) {
	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, s.mapNotFound(err, "failed to load user")
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, ErrMissingFields
		}
		user.Name = name
	}
	if update.Belt != nil {
		if !update.Belt.Valid() {
			return nil, fmt.Errorf("%w: %s", ErrUnknownBelt, *update.Belt)
		}
		user.Belt = *update.Belt
	}

	if err := s.users.UpdateUser(ctx, user); err != nil {
		return nil, s.mapNotFound(err, "failed to update user")
	}

	s.logger.Info("user updated", "user_id", user.ID, "belt", user.Belt)
	return user, nil
}

// DeleteUser removes an account
func (s *Service) DeleteUser(ctx context.Context, id int) error {
	if err := s.users.DeleteUser(ctx, id); err != nil {
		return s.mapNotFound(err, "failed to delete user")
	}

	s.logger.Info("user deleted", "user_id", id)
	return nil
}

// SeedAdmin creates the bootstrap admin when no user exists yet.
// It reports whether an account was created.
func (s *Service) SeedAdmin(ctx context.Context, username, password, name string) (bool, error) {
	n, err := s.users.CountUsers(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to count users: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	user, err := s.createUser(ctx, models.RegisterRequest{
		Username: username,
		Password: password,
		Name:     name,
		Belt:     models.HighestBelt(),
	})
	if err != nil {
		return false, err
	}

	s.logger.Info("bootstrap admin created", "user_id", user.ID, "username", user.Username)
	return true, nil
}

func (s *Service) createUser(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Name:         req.Name,
		Belt:         req.Belt,
		PasswordHash: string(hash),
	}

	if err := s.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrUserExists
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) mapNotFound(err error, msg string) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	return fmt.Errorf("%s: %w", msg, err)
}
