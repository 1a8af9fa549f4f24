package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/turtacn/forgeff/internal/application/fitjob"
	"github.com/turtacn/forgeff/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/forgeff/pkg/errors"
)

// Schema is the DDL for the fit_runs table. The request payload is stored as
// JSONB so strategy shapes can evolve without migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS fit_runs (
	id           UUID PRIMARY KEY,
	status       TEXT NOT NULL,
	request      JSONB NOT NULL,
	phys_initial DOUBLE PRECISION NOT NULL DEFAULT 0,
	phys_final   DOUBLE PRECISION NOT NULL DEFAULT 0,
	chem_initial DOUBLE PRECISION NOT NULL DEFAULT 0,
	chem_final   DOUBLE PRECISION NOT NULL DEFAULT 0,
	sweeps       INTEGER NOT NULL DEFAULT 0,
	report       TEXT NOT NULL DEFAULT '',
	result_ref   TEXT NOT NULL DEFAULT '',
	error        TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS fit_runs_created_at_idx ON fit_runs (created_at DESC);
`

const runColumns = `id, status, request, phys_initial, phys_final,
	chem_initial, chem_final, sweeps, report, result_ref, error, created_at, updated_at`

// FitRunRepository is the PostgreSQL implementation of fitjob.Repository.
type FitRunRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

func NewFitRunRepository(pool *pgxpool.Pool, log logging.Logger) *FitRunRepository {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &FitRunRepository{pool: pool, log: log.Named("fitrun_repo")}
}

// EnsureSchema creates the fit_runs table when absent.
func (r *FitRunRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, Schema); err != nil {
		return errors.Wrap(err, errors.CodeDBQueryError, "create fit_runs schema")
	}
	return nil
}

func (r *FitRunRepository) Create(ctx context.Context, run *fitjob.FitRun) error {
	reqJSON, err := json.Marshal(run.Request)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "encode fit request")
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO fit_runs (`+runColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		run.ID, run.Status, reqJSON,
		run.PhysInitial, run.PhysFinal, run.ChemInitial, run.ChemFinal, run.Sweeps,
		run.Report, run.ResultRef, run.Error, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		r.log.Error("insert fit run", logging.String("run_id", run.ID), logging.Err(err))
		return errors.Wrap(err, errors.CodeDBQueryError, "insert fit run")
	}
	return nil
}

func (r *FitRunRepository) Get(ctx context.Context, id string) (*fitjob.FitRun, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+runColumns+` FROM fit_runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "select fit run")
	}
	return run, nil
}

func (r *FitRunRepository) Update(ctx context.Context, run *fitjob.FitRun) error {
	reqJSON, err := json.Marshal(run.Request)
	if err != nil {
		return errors.Wrap(err, errors.CodeSerialization, "encode fit request")
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE fit_runs SET
			status = $2, request = $3,
			phys_initial = $4, phys_final = $5, chem_initial = $6, chem_final = $7,
			sweeps = $8, report = $9, result_ref = $10, error = $11, updated_at = $12
		WHERE id = $1`,
		run.ID, run.Status, reqJSON,
		run.PhysInitial, run.PhysFinal, run.ChemInitial, run.ChemFinal,
		run.Sweeps, run.Report, run.ResultRef, run.Error, run.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, errors.CodeDBQueryError, "update fit run")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.CodeFitRunNotFound, "fit run %s", run.ID)
	}
	return nil
}

func (r *FitRunRepository) List(ctx context.Context, limit, offset int) ([]*fitjob.FitRun, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+runColumns+` FROM fit_runs
		ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeDBQueryError, "list fit runs")
	}
	defer rows.Close()

	var out []*fitjob.FitRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.CodeDBQueryError, "scan fit run")
		}
		out = append(out, run)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*fitjob.FitRun, error) {
	var run fitjob.FitRun
	var reqJSON []byte
	err := row.Scan(
		&run.ID, &run.Status, &reqJSON,
		&run.PhysInitial, &run.PhysFinal, &run.ChemInitial, &run.ChemFinal, &run.Sweeps,
		&run.Report, &run.ResultRef, &run.Error, &run.CreatedAt, &run.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(reqJSON, &run.Request); err != nil {
		return nil, errors.Wrap(err, errors.CodeSerialization, "decode fit request")
	}
	return &run, nil
}
