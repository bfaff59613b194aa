package database

import (
	"context"
	"fmt"

	"github.com/PaulBabatuyi/files-manager/internal/common"
	"github.com/PaulBabatuyi/files-manager/internal/models"
)

// CreateUser inserts u and fills in its id. A duplicate email yields common.ErrEmailExists.
func (p *PostgresDB) CreateUser(ctx context.Context, u *models.User) error {
	query := `
        INSERT INTO users (email, password_hash)
        VALUES ($1, $2)
        RETURNING id
    `
	err := p.db.QueryRowContext(ctx, query, u.Email, u.PasswordHash).Scan(&u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return common.ErrEmailExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (p *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, password_hash FROM users WHERE email = $1`

	var u models.User
	err := p.db.QueryRowContext(ctx, query, email).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

func (p *PostgresDB) GetUserByID(ctx context.Context, userID string) (*models.User, error) {
	query := `SELECT id, email, password_hash FROM users WHERE id = $1`

	var u models.User
	err := p.db.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.Email, &u.PasswordHash)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return &u, nil
}

func (p *PostgresDB) CountUsers(ctx context.Context) (int64, error) {
	return p.count(ctx, `SELECT COUNT(*) FROM users`)
}
