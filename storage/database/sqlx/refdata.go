package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
)

var refTables = map[refdata.Kind]string{
	refdata.KindDistrict:   "districts",
	refdata.KindSchool:     "schools",
	refdata.KindSubject:    "subjects",
	refdata.KindClassLevel: "class_levels",
}

type refdataRepository struct {
	repository
}

var _ refdata.Repository = (*refdataRepository)(nil)

func NewRefdataRepository(db *sqlx.DB) refdata.Repository {
	return &refdataRepository{repository{db: db}}
}

func (repo refdataRepository) ListEntries(ctx context.Context, kind refdata.Kind, exec ...core.DBExecutor) ([]refdata.Entry, error) {
	table, ok := refTables[kind]
	if !ok {
		return nil, refdata.ErrUnknownKind
	}
	order := "name"
	if kind == refdata.KindClassLevel {
		order = "name::integer"
	}

	entries := make([]refdata.Entry, 0)
	qb := psql.Select("id", "name").From(table).OrderBy(order)
	if err := repo.selectAll(ctx, repo.getExec(exec), &entries, qb); err != nil {
		return nil, errors.Wrapf(err, "listing %s", table)
	}
	return entries, nil
}

func (repo refdataRepository) GetEntry(ctx context.Context, kind refdata.Kind, id string, exec ...core.DBExecutor) (refdata.Entry, error) {
	table, ok := refTables[kind]
	if !ok {
		return refdata.Entry{}, refdata.ErrUnknownKind
	}
	if _, err := uuid.Parse(id); err != nil {
		return refdata.Entry{}, refdata.ErrNotFound
	}

	var e refdata.Entry
	qb := psql.Select("id", "name").From(table).Where(sq.Eq{"id": id})
	if err := repo.get(ctx, repo.getExec(exec), &e, qb); err != nil {
		return refdata.Entry{}, trapNoRowsErr(err, refdata.ErrNotFound, "getting "+string(kind))
	}
	return e, nil
}

func (repo refdataRepository) CreateEntry(ctx context.Context, kind refdata.Kind, name string, exec ...core.DBExecutor) (refdata.Entry, error) {
	table, ok := refTables[kind]
	if !ok {
		return refdata.Entry{}, refdata.ErrUnknownKind
	}

	e := refdata.Entry{ID: uuid.New().String(), Name: name}
	if _, err := repo.exec(ctx, repo.getExec(exec), psql.Insert(table).Columns("id", "name").Values(e.ID, e.Name)); err != nil {
		if _, dup := uniqueViolation(err); dup {
			return refdata.Entry{}, refdata.ErrNameConflict
		}
		return refdata.Entry{}, errors.Wrapf(err, "inserting into %s", table)
	}
	return e, nil
}
