package db

import (
	"context"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"workzen/internal/domain/auth"
	"workzen/internal/platform/config"
	"workzen/internal/platform/querier"
)

// Seed creates the bootstrap Admin account when SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD are set and the account does not exist yet.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	return ensureAdminUser(ctx, pool, cfg.SeedAdminEmail, cfg.SeedAdminPassword)
}

func ensureAdminUser(ctx context.Context, pool *pgxpool.Pool, email, password string) error {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(password) == "" {
		return nil
	}

	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE lower(email) = lower($1)", email).Scan(&id)
	if err == nil {
		return nil
	}
	if !querier.IsNoRows(err) {
		return err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	id, err = auth.NewStore(pool).CreateAccount(ctx, pool, email, hash, auth.RoleAdmin)
	if err != nil {
		return err
	}
	slog.Info("seeded admin account", "userId", id, "email", email)
	return nil
}
