package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/rating"
)

const ratingsTable = "ratings"

var ratingColumns = []string{"id", "from_user_id", "to_user_id", "rating", "created_at", "updated_at"}

type ratingRepository struct {
	repository
}

var _ rating.Repository = (*ratingRepository)(nil)

func NewRatingRepository(db *sqlx.DB) rating.Repository {
	return &ratingRepository{repository{db: db}}
}

func (repo ratingRepository) UpsertRating(ctx context.Context, r rating.Rating, exec ...core.DBExecutor) (rating.Rating, error) {
	qb := psql.Insert(ratingsTable).
		Columns(ratingColumns...).
		Values(r.ID, r.FromUserID, r.ToUserID, r.Score, r.CreatedAt.UTC(), r.UpdatedAt.UTC()).
		Suffix("ON CONFLICT (from_user_id, to_user_id) DO UPDATE SET rating = EXCLUDED.rating, updated_at = EXCLUDED.updated_at").
		Suffix("RETURNING id, from_user_id, to_user_id, rating, created_at, updated_at")

	var saved rating.Rating
	if err := repo.get(ctx, repo.getExec(exec), &saved, qb); err != nil {
		return rating.Rating{}, errors.Wrap(err, "upserting rating")
	}
	return saved, nil
}

func (repo ratingRepository) GetRating(ctx context.Context, fromUserID, toUserID string, exec ...core.DBExecutor) (rating.Rating, error) {
	for _, id := range []string{fromUserID, toUserID} {
		if _, err := uuid.Parse(id); err != nil {
			return rating.Rating{}, rating.ErrNotFound
		}
	}

	var r rating.Rating
	qb := psql.Select(ratingColumns...).From(ratingsTable).Where(sq.Eq{"from_user_id": fromUserID, "to_user_id": toUserID})
	if err := repo.get(ctx, repo.getExec(exec), &r, qb); err != nil {
		return rating.Rating{}, trapNoRowsErr(err, rating.ErrNotFound, "getting rating")
	}
	return r, nil
}

func statsQuery() sq.SelectBuilder {
	return psql.Select("to_user_id", "count(*) AS count", "avg(rating)::float8 AS mean").From(ratingsTable).GroupBy("to_user_id")
}

func (repo ratingRepository) GetStats(ctx context.Context, toUserID string, exec ...core.DBExecutor) (rating.Stats, error) {
	if _, err := uuid.Parse(toUserID); err != nil {
		return rating.Stats{UserID: toUserID}, nil
	}

	var stats rating.Stats
	if err := repo.get(ctx, repo.getExec(exec), &stats, statsQuery().Where(sq.Eq{"to_user_id": toUserID})); err != nil {
		if errors.Cause(err) == errNoRows {
			return rating.Stats{UserID: toUserID}, nil
		}
		return rating.Stats{}, errors.Wrap(err, "getting rating stats")
	}
	return stats, nil
}

func (repo ratingRepository) QueryStats(ctx context.Context, exec ...core.DBExecutor) ([]rating.Stats, error) {
	stats := make([]rating.Stats, 0)
	if err := repo.selectAll(ctx, repo.getExec(exec), &stats, statsQuery()); err != nil {
		return nil, errors.Wrap(err, "querying rating stats")
	}
	return stats, nil
}
