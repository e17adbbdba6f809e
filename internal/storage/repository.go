package storage

import (
	"context"
	"errors"

	"github.com/wko-katas/katas-engine/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// StateStore persists the client state record of each viewer
type StateStore interface {
	// LoadState returns ErrNotFound when nothing was saved under key
	LoadState(ctx context.Context, key string) (*models.ClientState, error)
	SaveState(ctx context.Context, key string, state *models.ClientState) error
}

// UserStore persists accounts
type UserStore interface {
	// CreateUser assigns ID and CreatedAt. Returns ErrDuplicate for a taken username.
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
	UpdateUser(ctx context.Context, u *models.User) error
	DeleteUser(ctx context.Context, id int) error
	CountUsers(ctx context.Context) (int, error)
}

// Repository is a backend that stores both states and users
type Repository interface {
	StateStore
	UserStore

	// Health
	Ping(ctx context.Context) error
	Close() error
}
