// Package documents keeps a per-employee map of named document links, for
// example "resume" or "idProof" pointing at an uploaded file URL.
package documents

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/apperror"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func storeError(err error, notFoundMsg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound(notFoundMsg)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperror.Wrap(apperror.CodeUnavailable, "store timed out", err)
	}
	return apperror.Wrap(apperror.CodeUnavailable, "store operation failed", err)
}

// Upsert writes every key in docs for the employee, replacing the URL of any
// key that already exists. Keys not present in docs are left alone.
func (s *Store) Upsert(ctx context.Context, employeeID string, docs map[string]string) (map[string]string, error) {
	if len(docs) == 0 {
		return nil, apperror.InvalidInput("no documents provided")
	}
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, storeError(err, "")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for key, url := range docs {
		if key == "" || url == "" {
			return nil, apperror.InvalidInput("document key and url are required")
		}
		if _, err := tx.Exec(ctx, `
      INSERT INTO employee_documents (employee_id, key, file_url)
      VALUES ($1, $2, $3)
      ON CONFLICT (employee_id, key) DO UPDATE SET file_url = EXCLUDED.file_url, updated_at = now()
    `, employeeID, key, url); err != nil {
			return nil, storeError(err, "employee not found")
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storeError(err, "")
	}
	return s.Get(ctx, employeeID)
}

func (s *Store) Get(ctx context.Context, employeeID string) (map[string]string, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT key, file_url FROM employee_documents WHERE employee_id = $1 ORDER BY key
  `, employeeID)
	if err != nil {
		return nil, storeError(err, "")
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key, url string
		if err := rows.Scan(&key, &url); err != nil {
			return nil, storeError(err, "")
		}
		out[key] = url
	}
	return out, rows.Err()
}

func (s *Store) UpdateKey(ctx context.Context, employeeID, key, url string) error {
	if url == "" {
		return apperror.InvalidInput("document url is required")
	}
	tag, err := s.DB.Exec(ctx, `
    UPDATE employee_documents SET file_url = $3, updated_at = now()
    WHERE employee_id = $1 AND key = $2
  `, employeeID, key, url)
	if err != nil {
		return storeError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("document not found")
	}
	return nil
}

func (s *Store) DeleteKey(ctx context.Context, employeeID, key string) error {
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM employee_documents WHERE employee_id = $1 AND key = $2
  `, employeeID, key)
	if err != nil {
		return storeError(err, "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("document not found")
	}
	return nil
}
