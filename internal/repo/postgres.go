package repo

import (
	"context"
	"errors"
	"time"

	"github.com/HamedShams/groona-pulse/internal/config"
	"github.com/HamedShams/groona-pulse/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func MustOpen(ctx context.Context, cfg config.Config, log zerolog.Logger) *DB {
	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil { log.Fatal().Err(err).Msg("db connect failed") }
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second); defer cancel()
	if err := pool.Ping(ctx2); err != nil { log.Fatal().Err(err).Msg("db ping failed") }
	return &DB{Pool: pool, log: log}
}

func (d *DB) Close() { d.Pool.Close() }

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

func (r *Repository) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok)
	return ok, err
}

func (r *Repository) AdvisoryUnlock(ctx context.Context, key int64) error {
	var ok bool
	err := r.db.Pool.QueryRow(ctx, "SELECT pg_advisory_unlock($1)", key).Scan(&ok)
	if !ok && err == nil { return errors.New("advisory unlock returned false") }
	return err
}

// Rule run bookkeeping

func (r *Repository) StartRuleRun(ctx context.Context, rule string) (int64, error) {
	const q = `INSERT INTO rule_runs(rule, started_at, success) VALUES($1, now(), false) RETURNING id`
	var id int64
	if err := r.db.Pool.QueryRow(ctx, q, rule).Scan(&id); err != nil { return 0, err }
	return id, nil
}

func (r *Repository) FinishRuleRun(ctx context.Context, id int64, scanned, created, updated, suppressed int, success bool, errStr string) error {
	const q = `UPDATE rule_runs SET finished_at=now(), scanned=$2, created=$3, updated=$4, suppressed=$5, success=$6, error=$7 WHERE id=$1`
	_, err := r.db.Pool.Exec(ctx, q, id, scanned, created, updated, suppressed, success, errStr)
	return err
}

func (r *Repository) LastRuleRuns(ctx context.Context, limit int) ([]domain.RuleRun, error) {
	if limit <= 0 { limit = 20 }
	rows, err := r.db.Pool.Query(ctx, `SELECT id, rule, started_at, finished_at,
		coalesce(scanned,0), coalesce(created,0), coalesce(updated,0), coalesce(suppressed,0),
		coalesce(success,false), coalesce(error,'')
		FROM rule_runs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil { return nil, err }
	defer rows.Close()
	var out []domain.RuleRun
	for rows.Next() {
		var rr domain.RuleRun
		if err := rows.Scan(&rr.ID, &rr.Rule, &rr.StartedAt, &rr.FinishedAt, &rr.Scanned, &rr.Created, &rr.Updated, &rr.Suppressed, &rr.Success, &rr.Error); err != nil { return nil, err }
		out = append(out, rr)
	}
	return out, nil
}
