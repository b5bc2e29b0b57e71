package db

import (
	"context"
	"errors"
	"time"

	"github.com/TharinduDesh/incidenthub/internal/config"
	"github.com/TharinduDesh/incidenthub/internal/domain/user"
	"github.com/TharinduDesh/incidenthub/internal/security"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureAdminUser inserts the configured admin account if it does not
// exist yet. Seeded admins are born verified and carry no
// verification token.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	var dummy string

	err := pool.QueryRow(ctx, `SELECT id FROM users WHERE email = $1`, cfg.AdminEmail).Scan(&dummy)

	if err == nil {
		return nil
	}

	if !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	now := time.Now().UTC()

	_, err = pool.Exec(ctx,
		`INSERT INTO users (id, email, password_hash, name, role, is_verified, last_login_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		uuid.NewString(), cfg.AdminEmail, hash, cfg.AdminName, string(user.RoleAdmin), true, now, now, now,
	)

	return err
}
