package scan

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"chefai/internal/crypto"
)

// PostgresStore implements Store on PostgreSQL. It is an optional backend:
// the service defaults to MemoryStore and uses this only when DATABASE_URL
// is configured.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to the database and bootstraps the schema.
func NewPostgresStore(dataSourceName string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL
	);
	`
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create users table: %w", err)
	}

	schema = `
	CREATE TABLE IF NOT EXISTS scans (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL,
		recipes JSONB NOT NULL
	);
	`
	if _, err = db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to create scans table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// RegisterOrLogin implements Store.
func (s *PostgresStore) RegisterOrLogin(ctx context.Context, username, password string) (string, bool, error) {
	if username == "" || password == "" {
		return "", false, ErrMissingField
	}

	var id, hash string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, password_hash FROM users WHERE username = $1", username).Scan(&id, &hash)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.NewString()
		hash, err = crypto.HashPassword(password)
		if err != nil {
			return "", false, err
		}
		_, err = s.db.ExecContext(ctx,
			"INSERT INTO users (id, username, password_hash) VALUES ($1, $2, $3)",
			id, username, hash)
		if err != nil {
			return "", false, fmt.Errorf("failed to create user: %w", err)
		}
		return id, true, nil
	case err != nil:
		return "", false, fmt.Errorf("failed to look up user: %w", err)
	}

	match, err := crypto.VerifyPassword(password, hash)
	if err != nil {
		return "", false, err
	}
	if !match {
		return "", false, ErrInvalidCredentials
	}
	return id, false, nil
}

// SaveScan implements Store.
func (s *PostgresStore) SaveScan(ctx context.Context, username string, recipes []Recipe) (string, error) {
	if len(recipes) == 0 {
		return "", ErrNoRecipes
	}

	userID, err := s.userID(ctx, username)
	if err != nil {
		return "", err
	}

	recipesJSON, err := json.Marshal(recipes)
	if err != nil {
		return "", fmt.Errorf("failed to marshal recipes: %w", err)
	}

	scanID := uuid.NewString()
	_, err = s.db.ExecContext(ctx,
		"INSERT INTO scans (id, user_id, created_at, recipes) VALUES ($1, $2, $3, $4)",
		scanID, userID, time.Now().UTC(), recipesJSON)
	if err != nil {
		return "", fmt.Errorf("failed to save scan: %w", err)
	}
	return scanID, nil
}

// GetScans implements Store.
func (s *PostgresStore) GetScans(ctx context.Context, username string) ([]ScanSummary, error) {
	userID, err := s.userID(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT id, created_at, recipes FROM scans WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get scans: %w", err)
	}
	defer rows.Close()

	var summaries []ScanSummary
	for rows.Next() {
		sc, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, ScanSummary{
			ID:       sc.ID,
			Date:     sc.CreatedAt,
			Title:    sc.Title(),
			Notes:    sc.Notes(),
			ImageURL: sc.Image(),
		})
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return summaries, nil
}

// GetScan implements Store.
func (s *PostgresStore) GetScan(ctx context.Context, username, scanID string) (*Scan, error) {
	userID, err := s.userID(ctx, username)
	if err != nil {
		return nil, ErrScanNotFound
	}

	var sc Scan
	var recipesJSON []byte
	err = s.db.QueryRowContext(ctx,
		"SELECT id, created_at, recipes FROM scans WHERE id = $1 AND user_id = $2",
		scanID, userID).Scan(&sc.ID, &sc.CreatedAt, &recipesJSON)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrScanNotFound
		}
		return nil, fmt.Errorf("failed to get scan: %w", err)
	}
	if err := json.Unmarshal(recipesJSON, &sc.Recipes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipes: %w", err)
	}
	return &sc, nil
}

func (s *PostgresStore) userID(ctx context.Context, username string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, "SELECT id FROM users WHERE username = $1", username).Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", ErrUnknownUser
		}
		return "", fmt.Errorf("failed to look up user: %w", err)
	}
	return id, nil
}

func scanRow(rows *sqlx.Rows) (*Scan, error) {
	var sc Scan
	var recipesJSON []byte
	if err := rows.Scan(&sc.ID, &sc.CreatedAt, &recipesJSON); err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}
	if err := json.Unmarshal(recipesJSON, &sc.Recipes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal recipes: %w", err)
	}
	return &sc, nil
}
