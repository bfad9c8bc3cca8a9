// Package sqlxrepos implements the repositories on PostgreSQL, with queries built by squirrel
// and scanned by sqlx.
package sqlxrepos

import (
	"context"
	"database/sql"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
)

const pgUniqueViolation = "23505"

var (
	psql      = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	errNoRows = sql.ErrNoRows
)

type repository struct {
	db *sqlx.DB
}

// getExec returns the transaction handed over by a service, if any.
func (repo repository) getExec(svcExec []core.DBExecutor) sqlx.ExtContext {
	if len(svcExec) > 0 && svcExec[0] != nil {
		if exe, ok := svcExec[0].(sqlx.ExtContext); ok {
			return exe
		}
	}
	return repo.db
}

func (repo repository) get(ctx context.Context, exe sqlx.ExtContext, dest interface{}, qb sq.Sqlizer) error {
	q, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, exe, dest, q, args...)
}

func (repo repository) selectAll(ctx context.Context, exe sqlx.ExtContext, dest interface{}, qb sq.Sqlizer) error {
	q, args, err := qb.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, exe, dest, q, args...)
}

func (repo repository) exec(ctx context.Context, exe sqlx.ExtContext, qb sq.Sqlizer) (int, error) {
	q, args, err := qb.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := exe.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Cause(err) == errNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// uniqueViolation returns the name of the violated constraint, if err is a unique violation.
func uniqueViolation(err error) (string, bool) {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && pqErr.Code == pgUniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func paginate(qb sq.SelectBuilder, page *core.Page) sq.SelectBuilder {
	if page == nil {
		return qb
	}
	return qb.Limit(uint64(page.PerPage)).Offset(uint64(page.Offset()))
}

// nullable maps empty strings to NULL.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
