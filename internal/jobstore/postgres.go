package jobstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/basinlabs/pgbridge/internal/model"
)

// Postgres is the reference Store implementation against the schema spec §6
// requires of the Job Store: connections, migrations, migration_logs.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an already-open connection to the store database. The
// caller owns db's lifetime.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) LoadConnection(ctx context.Context, id string) (model.ConnectionSpec, error) {
	var spec model.ConnectionSpec
	var sslEnabled, verifyPeer bool
	var sslMode string
	err := p.db.QueryRowContext(ctx, `
		SELECT id, host, port, database, username, password, ssl, ssl_mode, verify_peer
		FROM connections WHERE id = $1`, id,
	).Scan(&spec.ID, &spec.Host, &spec.Port, &spec.Database, &spec.User, &spec.Password,
		&sslEnabled, &sslMode, &verifyPeer)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ConnectionSpec{}, ErrConnectionNotFound
	}
	if err != nil {
		return model.ConnectionSpec{}, fmt.Errorf("jobstore: load connection %s: %w", id, err)
	}
	spec.TLS = model.TLSConfig{
		Enabled:    sslEnabled,
		Mode:       model.TLSMode(sslMode),
		VerifyPeer: verifyPeer,
	}
	return spec, nil
}

func (p *Postgres) UpdateJob(ctx context.Context, id string, update JobUpdate) error {
	var resultJSON []byte
	if update.Result != nil {
		b, err := json.Marshal(update.Result)
		if err != nil {
			return fmt.Errorf("jobstore: marshal result for job %s: %w", id, err)
		}
		resultJSON = b
	}

	res, err := p.db.ExecContext(ctx, `
		UPDATE migrations
		SET status = $1,
		    result = COALESCE($2, result),
		    duration_ms = COALESCE($3, duration_ms),
		    error_message = COALESCE($4, error_message),
		    updated_at = now()
		WHERE id = $5`,
		string(update.Status), nullableJSON(resultJSON), update.DurationMS, update.ErrorMessage, id)
	if err != nil {
		return fmt.Errorf("jobstore: update job %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("jobstore: update job %s: %w", id, err)
	}
	if n == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (p *Postgres) AppendLog(ctx context.Context, event model.LogEvent) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO migration_logs (migration_id, collection_name, level, message, timestamp)
		VALUES ($1, $2, $3, $4, $5)`,
		event.JobID, event.TableName, string(event.Level), event.Message, event.Timestamp)
	if err != nil {
		return fmt.Errorf("jobstore: append log for job %s: %w", event.JobID, err)
	}
	return nil
}

func nullableJSON(b []byte) any {
	if b == nil {
		return nil
	}
	return string(b)
}
