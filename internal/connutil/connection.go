// Package connutil builds pgx-backed *sql.DB pools from a model.ConnectionSpec,
// translating its TLS block into a libpq sslmode the way the engine's
// connection lifecycle (spec §9: "two short-lived pools per job") expects.
package connutil

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/basinlabs/pgbridge/internal/model"
)

// MaxDataConns bounds the connection pool opened for a table's data motion.
// Intra-job concurrency is intentionally low: the Coordinator never runs two
// tables concurrently, so a handful of connections absorbs driver-level
// retries and the probe queries C2 runs alongside a table's main statement.
const MaxDataConns = 4

// connectTimeout bounds how long Connect waits for the initial ping; it does
// not bound anything past that — spec §5 explicitly leaves statement-level
// timeouts to the caller.
const connectTimeout = 10 * time.Second

// Connect opens a pgx-backed connection pool for spec and verifies it with a
// ping. The returned *sql.DB is scoped to a single job and must be closed by
// the caller on every exit path.
func Connect(ctx context.Context, spec model.ConnectionSpec) (*sql.DB, error) {
	dsn := DSN(spec)
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("connutil: open %s: %w", spec.ID, err)
	}
	db.SetMaxOpenConns(MaxDataConns)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connutil: ping %s: %w", spec.ID, err)
	}
	return db, nil
}

// DSN renders spec as a libpq key/value connection string.
func DSN(spec model.ConnectionSpec) string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		spec.Host, spec.Port, spec.Database, spec.User, spec.Password, sslMode(spec.TLS),
	)
}

// sslMode translates a model.TLSConfig into the libpq sslmode it implies.
func sslMode(tls model.TLSConfig) string {
	if !tls.Enabled {
		return "disable"
	}
	switch tls.Mode {
	case model.TLSDisable:
		return "disable"
	case model.TLSRequire:
		if tls.VerifyPeer {
			return "verify-full"
		}
		return "require"
	case model.TLSPrefer:
		return "prefer"
	default:
		return "prefer"
	}
}
