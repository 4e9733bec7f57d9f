package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ems/internal/domain/auth"
	"ems/internal/platform/config"
)

// Seed guarantees the HR department and the bootstrap super admin exist so a
// fresh deployment can log in and start creating departments and admins.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if err := ensureDepartment(ctx, pool, cfg.SeedHRDepartment); err != nil {
		return err
	}

	if cfg.SeedSuperAdminEmail == "" {
		return nil
	}
	return ensureSuperAdmin(ctx, pool, cfg.SeedSuperAdminEmail, cfg.SeedSuperAdminPassword)
}

func ensureDepartment(ctx context.Context, pool *pgxpool.Pool, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	_, err := pool.Exec(ctx, `
    INSERT INTO departments (name, status) VALUES ($1, 'Active')
    ON CONFLICT (name) DO NOTHING
  `, name)
	return err
}

func ensureSuperAdmin(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM super_admins WHERE email = $1", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if strings.TrimSpace(password) == "" {
		return errors.New("seed super admin requires SEED_SUPERADMIN_PASSWORD")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO super_admins (name, email, password_hash)
    VALUES ('Super Admin', $1, $2)
  `, email, hash)
	return err
}
