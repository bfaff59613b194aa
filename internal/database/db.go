package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/database/migrations"
	"github.com/PaulBabatuyi/files-manager/internal/models"
	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
)

const fileColumns = `id, user_id, name, kind, is_public, parent_id, local_path`

type PostgresDB struct {
	db *sql.DB
}

func NewPostgresDB(connectionString string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, err
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresDB{db: db}, nil
}

// NewPostgresDBFromConn wraps an existing handle. Used by tests with sqlmock.
func NewPostgresDBFromConn(db *sql.DB) *PostgresDB {
	return &PostgresDB{db: db}
}

func (p *PostgresDB) Close() error {
	return p.db.Close()
}

func (p *PostgresDB) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Migrate applies the embedded goose migrations.
func (p *PostgresDB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.UpContext(ctx, p.db, ".")
}

// SaveFile inserts rec and fills in the store-generated id.
func (p *PostgresDB) SaveFile(ctx context.Context, rec *models.FileRecord) error {
	query := `
        INSERT INTO files (user_id, name, kind, is_public, parent_id, local_path)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `
	err := p.db.QueryRowContext(ctx, query,
		rec.UserID,
		rec.Name,
		string(rec.Kind),
		rec.IsPublic,
		parentArg(rec.Parent),
		rec.LocalPath,
	).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (p *PostgresDB) GetFile(ctx context.Context, fileID string) (*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	return scanFile(p.db.QueryRowContext(ctx, query, fileID))
}

// GetOwnedFile loads a record only if userID owns it.
func (p *PostgresDB) GetOwnedFile(ctx context.Context, fileID, userID string) (*models.FileRecord, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND user_id = $2`
	return scanFile(p.db.QueryRowContext(ctx, query, fileID, userID))
}

// ListFiles returns userID's records under parent in insertion order.
func (p *PostgresDB) ListFiles(ctx context.Context, userID string, parent models.ParentRef, limit, offset int) ([]*models.FileRecord, error) {
	query := `
        SELECT ` + fileColumns + `
        FROM files
        WHERE user_id = $1 AND parent_id IS NOT DISTINCT FROM $2
        ORDER BY seq
        LIMIT $3 OFFSET $4
    `
	rows, err := p.db.QueryContext(ctx, query, userID, parentArg(parent), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	files := make([]*models.FileRecord, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return files, nil
}

// SetPublic updates the visibility of a record owned by userID and returns the refreshed row.
func (p *PostgresDB) SetPublic(ctx context.Context, fileID, userID string, public bool) (*models.FileRecord, error) {
	query := `
        UPDATE files
        SET is_public = $3
        WHERE id = $1 AND user_id = $2
        RETURNING ` + fileColumns
	return scanFile(p.db.QueryRowContext(ctx, query, fileID, userID, public))
}

func (p *PostgresDB) CountFiles(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM files`)
}

func (p *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var n int64
	if err := p.db.QueryRowContext(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return common.ErrNotFound
	}
	return fmt.Errorf("db error: %w", err)
}
