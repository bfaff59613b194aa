package database

import (
	"database/sql"
	"errors"

	"github.com/PaulBabatuyi/files-manager/internal/models"
	"github.com/lib/pq"
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*models.FileRecord, error) {
	var (
		f      models.FileRecord
		kind   string
		parent sql.NullString
	)
	err := row.Scan(&f.ID, &f.UserID, &f.Name, &kind, &f.IsPublic, &parent, &f.LocalPath)
	if err != nil {
		return nil, notFoundOr(err)
	}
	f.Kind = models.FileKind(kind)
	if parent.Valid {
		f.Parent = models.ParentID(parent.String)
	}
	return &f, nil
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		j         models.Job
		kind      string
		status    string
		completed sql.NullTime
	)
	err := row.Scan(
		&j.ID,
		&kind,
		&j.UserID,
		&j.FileID,
		&status,
		&j.Attempts,
		&j.MaxAttempts,
		&j.LastError,
		&j.RunAfter,
		&j.CreatedAt,
		&j.UpdatedAt,
		&completed,
	)
	if err != nil {
		return nil, notFoundOr(err)
	}
	j.Kind = models.JobKind(kind)
	j.Status = models.JobStatus(status)
	if completed.Valid {
		t := completed.Time
		j.CompletedAt = &t
	}
	return &j, nil
}

// parentArg maps the root to SQL NULL.
func parentArg(p models.ParentRef) any {
	if p.IsRoot() {
		return nil
	}
	return p.ID()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
