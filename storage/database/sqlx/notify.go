package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
)

const notifiesTable = "notifies"

var notifyColumns = []string{"id", "from_user_id", "to_user_id", "type", "post_id", "comment_id", "rating", "seen", "created_at"}

type notifyRepository struct {
	repository
}

var _ notify.Repository = (*notifyRepository)(nil)

func NewNotifyRepository(db *sqlx.DB) notify.Repository {
	return &notifyRepository{repository{db: db}}
}

func notifyValues(n notify.Notify) []interface{} {
	return []interface{}{n.ID, n.FromUserID, n.ToUserID, n.Type, n.PostID, n.CommentID, n.Rating, n.Seen, n.CreatedAt.UTC()}
}

func (repo notifyRepository) CreateNotifies(ctx context.Context, notifies []notify.Notify, exec ...core.DBExecutor) error {
	if len(notifies) == 0 {
		return nil
	}
	qb := psql.Insert(notifiesTable).Columns(notifyColumns...)
	for _, n := range notifies {
		qb = qb.Values(notifyValues(n)...)
	}
	_, err := repo.exec(ctx, repo.getExec(exec), qb)
	return errors.Wrap(err, "inserting notifies")
}

func (repo notifyRepository) UpsertRatingNotify(ctx context.Context, n notify.Notify, exec ...core.DBExecutor) error {
	qb := psql.Insert(notifiesTable).
		Columns(notifyColumns...).
		Values(notifyValues(n)...).
		Suffix("ON CONFLICT (from_user_id, to_user_id) WHERE type = 'rating' DO UPDATE SET rating = EXCLUDED.rating")
	_, err := repo.exec(ctx, repo.getExec(exec), qb)
	return errors.Wrap(err, "upserting rating notify")
}

func (repo notifyRepository) DeleteNotifies(ctx context.Context, filter notify.DeleteFilter, exec ...core.DBExecutor) (int, error) {
	where := sq.Eq{}
	for col, id := range map[string]string{
		"from_user_id": filter.FromUserID,
		"to_user_id":   filter.ToUserID,
		"post_id":      filter.PostID,
		"comment_id":   filter.CommentID,
	} {
		if id == "" {
			continue
		}
		if _, err := uuid.Parse(id); err != nil {
			return 0, nil
		}
		where[col] = id
	}
	if filter.Type != "" {
		where["type"] = filter.Type
	}

	n, err := repo.exec(ctx, repo.getExec(exec), psql.Delete(notifiesTable).Where(where))
	if err != nil {
		return 0, errors.Wrap(err, "deleting notifies")
	}
	return n, nil
}

func (repo notifyRepository) QueryNotifies(ctx context.Context, toUserID string, exec ...core.DBExecutor) ([]notify.Notify, error) {
	notifies := make([]notify.Notify, 0)
	if _, err := uuid.Parse(toUserID); err != nil {
		return notifies, nil
	}

	qb := psql.Select(
		"n.id", "n.from_user_id", "n.to_user_id", "n.type", "n.post_id", "n.comment_id", "n.rating", "n.seen", "n.created_at",
		"u.username AS from_username", "p.title AS post_title",
	).
		From(notifiesTable + " n").
		Join(usersTable + " u ON u.id = n.from_user_id").
		LeftJoin(postsTable + " p ON p.id = n.post_id").
		Where(sq.Eq{"n.to_user_id": toUserID}).
		OrderBy("n.created_at DESC", "n.id")
	if err := repo.selectAll(ctx, repo.getExec(exec), &notifies, qb); err != nil {
		return nil, errors.Wrap(err, "querying notifies")
	}
	return notifies, nil
}

func (repo notifyRepository) CountUnseen(ctx context.Context, toUserID string, exec ...core.DBExecutor) (int, error) {
	if _, err := uuid.Parse(toUserID); err != nil {
		return 0, nil
	}
	var n int
	qb := psql.Select("count(*)").From(notifiesTable).Where(sq.Eq{"to_user_id": toUserID, "seen": false})
	if err := repo.get(ctx, repo.getExec(exec), &n, qb); err != nil {
		return 0, errors.Wrap(err, "counting unseen notifies")
	}
	return n, nil
}

func (repo notifyRepository) MarkAllSeen(ctx context.Context, toUserID string, exec ...core.DBExecutor) (int, error) {
	if _, err := uuid.Parse(toUserID); err != nil {
		return 0, nil
	}
	qb := psql.Update(notifiesTable).Set("seen", true).Where(sq.Eq{"to_user_id": toUserID, "seen": false})
	n, err := repo.exec(ctx, repo.getExec(exec), qb)
	if err != nil {
		return 0, errors.Wrap(err, "marking notifies seen")
	}
	return n, nil
}
