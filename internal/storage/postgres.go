package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wko-katas/katas-engine/internal/models"
)

const uniqueViolation = "23505"

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 10
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Migrate applies the embedded schema migrations
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	return RunMigrations(ctx, r.pool, Migrations())
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Client state ---

// LoadState retrieves the client state stored under key
func (r *PostgresRepository) LoadState(ctx context.Context, key string) (*models.ClientState, error) {
	query := `
		SELECT favorites, dark_mode, video_progress
		FROM client_state
		WHERE state_key = $1
	`

	var state models.ClientState
	var favoritesJSON, progressJSON []byte

	err := r.pool.QueryRow(ctx, query, key).Scan(&favoritesJSON, &state.DarkMode, &progressJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get client state: %w", err)
	}

	if favoritesJSON != nil {
		if err := json.Unmarshal(favoritesJSON, &state.Favorites); err != nil {
			return nil, fmt.Errorf("failed to unmarshal favorites: %w", err)
		}
	}

	if progressJSON != nil {
		if err := json.Unmarshal(progressJSON, &state.VideoProgress); err != nil {
			return nil, fmt.Errorf("failed to unmarshal video progress: %w", err)
		}
	}

	state.Normalize()
	return &state, nil
}

// SaveState upserts the client state stored under key
func (r *PostgresRepository) SaveState(ctx context.Context, key string, state *models.ClientState) error {
	s := *state
	s.Normalize()

	favoritesJSON, err := json.Marshal(s.Favorites)
	if err != nil {
		return fmt.Errorf("failed to marshal favorites: %w", err)
	}

	progressJSON, err := json.Marshal(s.VideoProgress)
	if err != nil {
		return fmt.Errorf("failed to marshal video progress: %w", err)
	}

	query := `
		INSERT INTO client_state (state_key, favorites, dark_mode, video_progress, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (state_key) DO UPDATE
		SET favorites = EXCLUDED.favorites,
		    dark_mode = EXCLUDED.dark_mode,
		    video_progress = EXCLUDED.video_progress,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := r.pool.Exec(ctx, query, key, favoritesJSON, s.DarkMode, progressJSON); err != nil {
		return fmt.Errorf("failed to save client state: %w", err)
	}

	return nil
}

// --- Users ---

// CreateUser inserts a new user and fills in its ID and creation time
func (r *PostgresRepository) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (username, password_hash, name, belt)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query, u.Username, u.PasswordHash, u.Name, string(u.Belt)).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("user %s: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByID retrieves a user by ID
func (r *PostgresRepository) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	return r.getUser(ctx, "id", id)
}

// GetUserByUsername retrieves a user by username
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getUser(ctx, "username", username)
}

func (r *PostgresRepository) getUser(ctx context.Context, field string, value any) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, password_hash, name, belt, created_at
		FROM users
		WHERE %s = $1
	`, field)

	u, err := scanUser(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return u, nil
}

// ListUsers returns all users ordered by ID
func (r *PostgresRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, username, password_hash, name, belt, created_at
		FROM users
		ORDER BY id ASC
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	return users, nil
}

// UpdateUser updates the mutable fields of a user
func (r *PostgresRepository) UpdateUser(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET name = $2, belt = $3, password_hash = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, u.ID, u.Name, string(u.Belt), u.PasswordHash)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", u.ID, ErrNotFound)
	}

	return nil
}

// DeleteUser deletes a user by ID
func (r *PostgresRepository) DeleteUser(ctx context.Context, id int) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}

	return nil
}

// CountUsers returns the number of stored users
func (r *PostgresRepository) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var belt string

	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Name, &belt, &u.CreatedAt); err != nil {
		return nil, err
	}

	u.Belt = models.BeltLevel(belt)
	return &u, nil
}
