package repository

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/docjobs/constants"
	"github.com/joseph-ayodele/docjobs/internal/common"
	"github.com/joseph-ayodele/docjobs/internal/entity"
)

const statusTable = "job_status"

var statusColumns = []string{
	"id", "type", "state", "stage_message", "result",
	"error_kind", "error_message", "created_at", "updated_at",
}

const statusDDL = `CREATE TABLE IF NOT EXISTS job_status (
	id            TEXT PRIMARY KEY,
	type          TEXT NOT NULL,
	state         TEXT NOT NULL,
	stage_message TEXT NOT NULL DEFAULT '',
	result        TEXT NOT NULL DEFAULT '',
	error_kind    TEXT NOT NULL DEFAULT '',
	error_message TEXT NOT NULL DEFAULT '',
	created_at    BIGINT NOT NULL,
	updated_at    BIGINT NOT NULL
)`

const statusIndexDDL = `CREATE INDEX IF NOT EXISTS job_status_updated_at ON job_status (updated_at)`

// SQLStatusStore keeps status records in one table and builds its queries
// with ent's dialect-aware builder, so SQLite and Postgres share the code.
// Timestamps are stored as unix nanoseconds.
type SQLStatusStore struct {
	db      *stdsql.DB
	dialect string
	logger  *slog.Logger
}

// NewSQLStatusStore creates the table if needed. d is dialect.SQLite or
// dialect.Postgres.
func NewSQLStatusStore(ctx context.Context, db *stdsql.DB, d string, logger *slog.Logger) (*SQLStatusStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch d {
	case dialect.SQLite, dialect.Postgres:
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", d)
	}
	for _, stmt := range []string{statusDDL, statusIndexDDL} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("migrate %s: %w", statusTable, err)
		}
	}
	return &SQLStatusStore{db: db, dialect: d, logger: logger}, nil
}

func (s *SQLStatusStore) builder() *sql.DialectBuilder { return sql.Dialect(s.dialect) }

func (s *SQLStatusStore) Put(ctx context.Context, rec entity.Record) error {
	var kind, msg string
	if rec.Error != nil {
		kind, msg = string(rec.Error.Kind), rec.Error.Message
	}
	query, args := s.builder().
		Insert(statusTable).
		Columns(statusColumns...).
		Values(rec.ID, string(rec.Type), string(rec.State), rec.StageMessage, string(rec.Result),
			kind, msg, rec.CreatedAt.UnixNano(), rec.UpdatedAt.UnixNano()).
		OnConflict(sql.ConflictColumns("id"), sql.ResolveWithNewValues()).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.logger.Error("status.put.failed", "job_id", rec.ID, "error", err)
		return fmt.Errorf("put status %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLStatusStore) Get(ctx context.Context, id string) (entity.Record, error) {
	b := s.builder()
	query, args := b.Select(statusColumns...).
		From(b.Table(statusTable)).
		Where(sql.EQ("id", id)).
		Query()
	rec, err := scanRecord(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, stdsql.ErrNoRows) {
		return entity.Record{}, notFound(id)
	}
	if err != nil {
		return entity.Record{}, fmt.Errorf("get status %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLStatusStore) List(ctx context.Context) ([]entity.Record, error) {
	b := s.builder()
	query, args := b.Select(statusColumns...).
		From(b.Table(statusTable)).
		OrderBy("created_at", "id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list status: %w", err)
	}
	defer rows.Close()

	var out []entity.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan status: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLStatusStore) Sweep(ctx context.Context, before time.Time) (int, error) {
	query, args := s.builder().
		Delete(statusTable).
		Where(sql.And(
			sql.In("state", string(constants.JobStateSuccess), string(constants.JobStateFailure)),
			sql.LT("updated_at", before.UnixNano()),
		)).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("sweep status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Close is a no-op: the caller owns the *sql.DB.
func (s *SQLStatusStore) Close() error { return nil }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (entity.Record, error) {
	var (
		rec                entity.Record
		typ, state, result string
		kind, msg          string
		created, updated   int64
	)
	if err := row.Scan(&rec.ID, &typ, &state, &rec.StageMessage, &result, &kind, &msg, &created, &updated); err != nil {
		return entity.Record{}, err
	}
	rec.Type = constants.JobType(typ)
	rec.State = constants.JobState(state)
	if result != "" {
		rec.Result = []byte(result)
	}
	if kind != "" || msg != "" {
		rec.Error = &entity.ErrorDetail{Kind: common.ErrorKind(kind), Message: msg}
	}
	rec.CreatedAt = time.Unix(0, created).UTC()
	rec.UpdatedAt = time.Unix(0, updated).UTC()
	return rec, nil
}
