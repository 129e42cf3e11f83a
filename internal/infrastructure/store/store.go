// Package store opens the repositories for the configured STORE_DRIVER.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/negotiation-hub/negotiation-hub/internal/config"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/audit"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/negotiation"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/notification"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/session"
	"github.com/negotiation-hub/negotiation-hub/internal/domain/user"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/memory"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/postgres"
	"github.com/negotiation-hub/negotiation-hub/internal/infrastructure/sqlite"
	"github.com/negotiation-hub/negotiation-hub/internal/migrations"
)

// Stores bundles every repository the services need.
type Stores struct {
	Driver        string
	Ledger        negotiation.Ledger
	Negotiations  negotiation.Repository
	Posts         negotiation.PostRepository
	Users         user.Repository
	Sessions      session.Repository
	Notifications notification.Repository
	Audit         audit.Repository

	closers []func()
}

// Open connects to the configured driver and applies its migrations.
// The sqlite driver persists the ledger only; the other aggregates live in
// memory, which suits single-node and CLI use.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Stores, error) {
	logger = logger.With().Str("component", "store").Str("driver", cfg.StoreDriver).Logger()
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		applied, err := postgres.RunMigrations(ctx, pool, migrations.FS)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		logger.Info().Strs("applied", applied).Msg("migrations applied")
		s := Postgres(pool)
		s.closers = append(s.closers, pool.Close)
		return s, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		ledger := sqlite.NewLedger(db)
		if err := ledger.Migrate(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		logger.Warn().Str("path", cfg.SQLitePath).Msg("only the lifecycle ledger is persisted")
		s := Memory()
		s.Driver = config.DriverSQLite
		s.Ledger = ledger
		s.closers = append(s.closers, func() { _ = db.Close() })
		return s, nil

	case config.DriverMemory:
		logger.Warn().Msg("state is kept in memory only")
		return Memory(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

// Postgres builds stores on an open pool.
func Postgres(pool *pgxpool.Pool) *Stores {
	return &Stores{
		Driver:        config.DriverPostgres,
		Ledger:        postgres.NewLedger(pool),
		Negotiations:  postgres.NewNegotiationRepository(pool),
		Posts:         postgres.NewPostRepository(pool),
		Users:         postgres.NewUserRepository(pool),
		Sessions:      postgres.NewSessionRepository(pool),
		Notifications: postgres.NewNotificationRepository(pool),
		Audit:         postgres.NewAuditRepository(pool),
	}
}

// Memory builds process-local stores.
func Memory() *Stores {
	return &Stores{
		Driver:        config.DriverMemory,
		Ledger:        memory.NewLedger(),
		Negotiations:  memory.NewNegotiationRepository(),
		Posts:         memory.NewPostRepository(),
		Users:         memory.NewUserRepository(),
		Sessions:      memory.NewSessionRepository(),
		Notifications: memory.NewNotificationRepository(),
		Audit:         memory.NewAuditRepository(),
	}
}

// Close releases connections in reverse order of opening.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
