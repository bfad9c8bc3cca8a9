package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
)

const (
	postsTable    = "posts"
	likesTable    = "post_likes"
	commentsTable = "comments"
)

var (
	postColumns = []string{
		"id", "title", "author_id", "subject_id", "class_level_id", "district_id",
		"salary_hour", "times_week", "text", "is_approved", "is_closed", "created_at", "updated_at",
	}
	commentColumns = []string{"id", "post_id", "author_id", "text", "created_at", "updated_at"}
)

type listingRepository struct {
	repository
}

var _ listing.Repository = (*listingRepository)(nil)

func NewListingRepository(db *sqlx.DB) listing.Repository {
	return &listingRepository{repository{db: db}}
}

func validIDs(ids ...string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			return false
		}
	}
	return true
}

// selectPosts selects posts along with their author and like count.
func selectPosts() sq.SelectBuilder {
	cols := make([]string, 0, len(postColumns)+3)
	for _, col := range postColumns {
		cols = append(cols, "p."+col)
	}
	cols = append(cols,
		"u.username AS author_username",
		"u.role AS author_role",
		"(SELECT count(*) FROM "+likesTable+" l WHERE l.post_id = p.id) AS num_likes",
	)
	return psql.Select(cols...).From(postsTable + " p").Join(usersTable + " u ON u.id = p.author_id")
}

func postWhere(filter listing.QueryFilter) (sq.And, bool) {
	where := sq.And{}
	if filter.Approved != nil {
		where = append(where, sq.Eq{"p.is_approved": *filter.Approved})
	}
	if filter.AuthorID != "" {
		if !validIDs(filter.AuthorID) {
			return nil, false
		}
		where = append(where, sq.Eq{"p.author_id": filter.AuthorID})
	}
	if filter.AuthorRole != "" {
		where = append(where, sq.Eq{"u.role": filter.AuthorRole})
	}

	refs := sq.Or{}
	for col, id := range map[string]string{
		"p.district_id":    filter.DistrictID,
		"p.subject_id":     filter.SubjectID,
		"p.class_level_id": filter.ClassLevelID,
	} {
		if id != "" && validIDs(id) {
			refs = append(refs, sq.Eq{col: id})
		}
	}
	if filter.HasRefs() {
		if len(refs) == 0 {
			return nil, false
		}
		where = append(where, refs)
	}
	return where, true
}

func (repo listingRepository) CreatePost(ctx context.Context, p listing.Post, exec ...core.DBExecutor) (listing.Post, error) {
	exe := repo.getExec(exec)
	qb := psql.Insert(postsTable).Columns(postColumns...).Values(
		p.ID, p.Title, p.AuthorID, p.SubjectID, p.ClassLevelID, p.DistrictID,
		p.SalaryHour, p.TimesWeek, p.Text, p.IsApproved, p.IsClosed, p.CreatedAt.UTC(), p.UpdatedAt.UTC(),
	)
	if _, err := repo.exec(ctx, exe, qb); err != nil {
		return listing.Post{}, errors.Wrap(err, "inserting post")
	}
	return repo.GetPost(ctx, p.ID, exe.(core.DBExecutor))
}

func (repo listingRepository) GetPost(ctx context.Context, id string, exec ...core.DBExecutor) (listing.Post, error) {
	if !validIDs(id) {
		return listing.Post{}, listing.ErrPostNotFound
	}
	var p listing.Post
	if err := repo.get(ctx, repo.getExec(exec), &p, selectPosts().Where(sq.Eq{"p.id": id})); err != nil {
		return listing.Post{}, trapNoRowsErr(err, listing.ErrPostNotFound, "getting post")
	}
	return p, nil
}

func (repo listingRepository) UpdatePost(ctx context.Context, p listing.Post, exec ...core.DBExecutor) (listing.Post, error) {
	if !validIDs(p.ID) {
		return listing.Post{}, listing.ErrPostNotFound
	}
	exe := repo.getExec(exec)
	qb := psql.Update(postsTable).SetMap(map[string]interface{}{
		"title":          p.Title,
		"subject_id":     p.SubjectID,
		"class_level_id": p.ClassLevelID,
		"district_id":    p.DistrictID,
		"salary_hour":    p.SalaryHour,
		"times_week":     p.TimesWeek,
		"text":           p.Text,
		"is_approved":    p.IsApproved,
		"is_closed":      p.IsClosed,
		"updated_at":     p.UpdatedAt.UTC(),
	}).Where(sq.Eq{"id": p.ID})

	n, err := repo.exec(ctx, exe, qb)
	if err != nil {
		return listing.Post{}, errors.Wrap(err, "updating post")
	}
	if n == 0 {
		return listing.Post{}, listing.ErrPostNotFound
	}
	return repo.GetPost(ctx, p.ID, exe.(core.DBExecutor))
}

// DeletePost relies on the foreign keys to cascade to likes, comments and notifies.
func (repo listingRepository) DeletePost(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validIDs(id) {
		return listing.ErrPostNotFound
	}
	n, err := repo.exec(ctx, repo.getExec(exec), psql.Delete(postsTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting post")
	}
	if n == 0 {
		return listing.ErrPostNotFound
	}
	return nil
}

func (repo listingRepository) QueryPosts(ctx context.Context, filter listing.QueryFilter, page *core.Page, exec ...core.DBExecutor) ([]listing.Post, error) {
	posts := make([]listing.Post, 0)
	where, ok := postWhere(filter)
	if !ok {
		return posts, nil
	}
	qb := selectPosts().Where(where).OrderBy("p.created_at DESC", "p.id")
	if err := repo.selectAll(ctx, repo.getExec(exec), &posts, paginate(qb, page)); err != nil {
		return nil, errors.Wrap(err, "querying posts")
	}
	return posts, nil
}

func (repo listingRepository) CountPosts(ctx context.Context, filter listing.QueryFilter, exec ...core.DBExecutor) (int, error) {
	where, ok := postWhere(filter)
	if !ok {
		return 0, nil
	}
	var n int
	qb := psql.Select("count(*)").From(postsTable + " p").Join(usersTable + " u ON u.id = p.author_id").Where(where)
	if err := repo.get(ctx, repo.getExec(exec), &n, qb); err != nil {
		return 0, errors.Wrap(err, "counting posts")
	}
	return n, nil
}

func (repo listingRepository) AddLike(ctx context.Context, postID, userID string, exec ...core.DBExecutor) error {
	if !validIDs(postID, userID) {
		return listing.ErrPostNotFound
	}
	qb := psql.Insert(likesTable).Columns("post_id", "user_id").Values(postID, userID).Suffix("ON CONFLICT DO NOTHING")
	_, err := repo.exec(ctx, repo.getExec(exec), qb)
	return errors.Wrap(err, "inserting like")
}

func (repo listingRepository) RemoveLike(ctx context.Context, postID, userID string, exec ...core.DBExecutor) (bool, error) {
	if !validIDs(postID, userID) {
		return false, nil
	}
	n, err := repo.exec(ctx, repo.getExec(exec), psql.Delete(likesTable).Where(sq.Eq{"post_id": postID, "user_id": userID}))
	if err != nil {
		return false, errors.Wrap(err, "deleting like")
	}
	return n > 0, nil
}

func (repo listingRepository) CountLikes(ctx context.Context, postID string, exec ...core.DBExecutor) (int, error) {
	if !validIDs(postID) {
		return 0, nil
	}
	var n int
	if err := repo.get(ctx, repo.getExec(exec), &n, psql.Select("count(*)").From(likesTable).Where(sq.Eq{"post_id": postID})); err != nil {
		return 0, errors.Wrap(err, "counting likes")
	}
	return n, nil
}

func (repo listingRepository) LikedPosts(ctx context.Context, userID string, postIDs []string, exec ...core.DBExecutor) (map[string]bool, error) {
	liked := make(map[string]bool)
	if len(postIDs) == 0 || !validIDs(userID) || !validIDs(postIDs...) {
		return liked, nil
	}
	var ids []string
	qb := psql.Select("post_id").From(likesTable).Where(sq.Eq{"user_id": userID, "post_id": postIDs})
	if err := repo.selectAll(ctx, repo.getExec(exec), &ids, qb); err != nil {
		return nil, errors.Wrap(err, "querying liked posts")
	}
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

func selectComments() sq.SelectBuilder {
	cols := make([]string, 0, len(commentColumns)+1)
	for _, col := range commentColumns {
		cols = append(cols, "c."+col)
	}
	cols = append(cols, "u.username AS author_username")
	return psql.Select(cols...).From(commentsTable + " c").Join(usersTable + " u ON u.id = c.author_id")
}

func (repo listingRepository) CreateComment(ctx context.Context, c listing.Comment, exec ...core.DBExecutor) (listing.Comment, error) {
	exe := repo.getExec(exec)
	qb := psql.Insert(commentsTable).Columns(commentColumns...).
		Values(c.ID, c.PostID, c.AuthorID, c.Text, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if _, err := repo.exec(ctx, exe, qb); err != nil {
		return listing.Comment{}, errors.Wrap(err, "inserting comment")
	}
	return repo.GetComment(ctx, c.ID, exe.(core.DBExecutor))
}

func (repo listingRepository) GetComment(ctx context.Context, id string, exec ...core.DBExecutor) (listing.Comment, error) {
	if !validIDs(id) {
		return listing.Comment{}, listing.ErrCommentNotFound
	}
	var c listing.Comment
	if err := repo.get(ctx, repo.getExec(exec), &c, selectComments().Where(sq.Eq{"c.id": id})); err != nil {
		return listing.Comment{}, trapNoRowsErr(err, listing.ErrCommentNotFound, "getting comment")
	}
	return c, nil
}

func (repo listingRepository) UpdateComment(ctx context.Context, c listing.Comment, exec ...core.DBExecutor) (listing.Comment, error) {
	if !validIDs(c.ID) {
		return listing.Comment{}, listing.ErrCommentNotFound
	}
	exe := repo.getExec(exec)
	qb := psql.Update(commentsTable).Set("text", c.Text).Set("updated_at", c.UpdatedAt.UTC()).Where(sq.Eq{"id": c.ID})
	n, err := repo.exec(ctx, exe, qb)
	if err != nil {
		return listing.Comment{}, errors.Wrap(err, "updating comment")
	}
	if n == 0 {
		return listing.Comment{}, listing.ErrCommentNotFound
	}
	return repo.GetComment(ctx, c.ID, exe.(core.DBExecutor))
}

// DeleteComment relies on the foreign key to null the comment reference of notifies.
func (repo listingRepository) DeleteComment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !validIDs(id) {
		return listing.ErrCommentNotFound
	}
	n, err := repo.exec(ctx, repo.getExec(exec), psql.Delete(commentsTable).Where(sq.Eq{"id": id}))
	if err != nil {
		return errors.Wrap(err, "deleting comment")
	}
	if n == 0 {
		return listing.ErrCommentNotFound
	}
	return nil
}

func (repo listingRepository) QueryComments(ctx context.Context, postID string, exec ...core.DBExecutor) ([]listing.Comment, error) {
	comments := make([]listing.Comment, 0)
	if !validIDs(postID) {
		return comments, nil
	}
	qb := selectComments().Where(sq.Eq{"c.post_id": postID}).OrderBy("c.created_at DESC", "c.id")
	if err := repo.selectAll(ctx, repo.getExec(exec), &comments, qb); err != nil {
		return nil, errors.Wrap(err, "querying comments")
	}
	return comments, nil
}

func (repo listingRepository) QueryCommenterIDs(ctx context.Context, postID string, exec ...core.DBExecutor) ([]string, error) {
	ids := make([]string, 0)
	if !validIDs(postID) {
		return ids, nil
	}
	qb := psql.Select("author_id").From(commentsTable).Where(sq.Eq{"post_id": postID}).
		GroupBy("author_id").OrderBy("max(created_at) DESC")
	if err := repo.selectAll(ctx, repo.getExec(exec), &ids, qb); err != nil {
		return nil, errors.Wrap(err, "querying commenters")
	}
	return ids, nil
}
