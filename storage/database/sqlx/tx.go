package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
)

type txRunner struct {
	db *sqlx.DB
}

var _ core.TxRunner = (*txRunner)(nil)

func NewTxRunner(db *sqlx.DB) core.TxRunner {
	return &txRunner{db: db}
}

// RunInTx commits when fn succeeds and rolls back otherwise.
func (r *txRunner) RunInTx(ctx context.Context, fn func(exec core.DBExecutor) error) (err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rolling back: %v", rbErr)
		}
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}
