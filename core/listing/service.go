package listing

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

var (
	ErrPostNotFound    = core.NewNotFoundError("post")
	ErrCommentNotFound = core.NewNotFoundError("comment")
)

type (
	Repository interface {
		CreatePost(ctx context.Context, p Post, exec ...core.DBExecutor) (Post, error)
		GetPost(ctx context.Context, id string, exec ...core.DBExecutor) (Post, error)
		UpdatePost(ctx context.Context, p Post, exec ...core.DBExecutor) (Post, error)
		DeletePost(ctx context.Context, id string, exec ...core.DBExecutor) error
		// QueryPosts returns posts matching filter, newest first; page limits the result when non-nil.
		QueryPosts(ctx context.Context, filter QueryFilter, page *core.Page, exec ...core.DBExecutor) ([]Post, error)
		CountPosts(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) (int, error)

		AddLike(ctx context.Context, postID, userID string, exec ...core.DBExecutor) error
		// RemoveLike reports whether a like existed.
		RemoveLike(ctx context.Context, postID, userID string, exec ...core.DBExecutor) (bool, error)
		CountLikes(ctx context.Context, postID string, exec ...core.DBExecutor) (int, error)
		// LikedPosts returns which of postIDs the user likes.
		LikedPosts(ctx context.Context, userID string, postIDs []string, exec ...core.DBExecutor) (map[string]bool, error)

		CreateComment(ctx context.Context, c Comment, exec ...core.DBExecutor) (Comment, error)
		GetComment(ctx context.Context, id string, exec ...core.DBExecutor) (Comment, error)
		UpdateComment(ctx context.Context, c Comment, exec ...core.DBExecutor) (Comment, error)
		DeleteComment(ctx context.Context, id string, exec ...core.DBExecutor) error
		// QueryComments returns the comments of a post, newest first.
		QueryComments(ctx context.Context, postID string, exec ...core.DBExecutor) ([]Comment, error)
		// QueryCommenterIDs returns the distinct authors of the comments of a post.
		QueryCommenterIDs(ctx context.Context, postID string, exec ...core.DBExecutor) ([]string, error)
	}

	ServiceInterface interface {
		Create(ctx context.Context, author user.User, np NewPost) (Post, error)
		Get(ctx context.Context, viewer *user.User, id string) (Post, error)
		Detail(ctx context.Context, viewer *user.User, id string) (PostDetail, error)
		Edit(ctx context.Context, actor user.User, id string, up UpdatePost) (Post, error)
		Delete(ctx context.Context, actor user.User, id string) error
		ToggleLike(ctx context.Context, actor user.User, id string) (LikeResult, error)
		AddComment(ctx context.Context, actor user.User, postID string, ct CommentText) (Comment, error)
		EditComment(ctx context.Context, actor user.User, postID, commentID string, ct CommentText) (Comment, error)
		DeleteComment(ctx context.Context, actor user.User, postID, commentID string) error
		Approve(ctx context.Context, actor user.User, id string) (Post, error)
		PendingCount(ctx context.Context, actor user.User) (int, error)
		Feed(ctx context.Context, viewer *user.User, audience user.Audience, rawPage string) (FeedPage, error)
		Pending(ctx context.Context, actor user.User, audience user.Audience, rawPage string) (FeedPage, error)
		ByAuthor(ctx context.Context, viewer *user.User, authorID, rawPage string) (FeedPage, error)
		LikeDict(ctx context.Context, viewer *user.User, posts []Post) (map[string]bool, error)
	}

	Service struct {
		tx        core.TxRunner
		repo      Repository
		refSvc    refdata.ServiceInterface
		notifySvc notify.ServiceInterface
		validate  *validator.Validate
		conf      *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(
	tx core.TxRunner,
	repo Repository,
	refSvc refdata.ServiceInterface,
	notifySvc notify.ServiceInterface,
	validate *validator.Validate,
	conf *core.Config,
) *Service {
	return &Service{tx: tx, repo: repo, refSvc: refSvc, notifySvc: notifySvc, validate: validate, conf: conf}
}

func boolPtr(b bool) *bool { return &b }

func (svc *Service) checkRefs(ctx context.Context, subjectID, classLevelID, districtID string) error {
	return svc.refSvc.CheckRefs(ctx,
		refdata.Ref{Field: "subject_id", Kind: refdata.KindSubject, ID: subjectID},
		refdata.Ref{Field: "class_level_id", Kind: refdata.KindClassLevel, ID: classLevelID},
		refdata.Ref{Field: "district_id", Kind: refdata.KindDistrict, ID: districtID},
	)
}

// Create saves a new post awaiting admin approval.
func (svc *Service) Create(ctx context.Context, author user.User, np NewPost) (Post, error) {
	np.clean()
	if err := svc.validate.Struct(np); err != nil {
		return Post{}, err
	}
	if err := svc.checkRefs(ctx, np.SubjectID, np.ClassLevelID, np.DistrictID); err != nil {
		return Post{}, err
	}

	now := time.Now().UTC()
	p := Post{
		ID:           uuid.New().String(),
		Title:        np.Title,
		AuthorID:     author.ID,
		SubjectID:    null.NewString(np.SubjectID, np.SubjectID != ""),
		ClassLevelID: null.NewString(np.ClassLevelID, np.ClassLevelID != ""),
		DistrictID:   null.NewString(np.DistrictID, np.DistrictID != ""),
		SalaryHour:   DefaultSalaryHour,
		TimesWeek:    DefaultTimesWeek,
		Text:         np.Text,
		IsApproved:   false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if np.SalaryHour != nil {
		p.SalaryHour = *np.SalaryHour
	}
	if np.TimesWeek != nil {
		p.TimesWeek = *np.TimesWeek
	}

	p, err := svc.repo.CreatePost(ctx, p)
	return p, errors.Wrap(err, "creating post")
}

// Get returns a post. Unapproved posts are only visible to their author and admins.
func (svc *Service) Get(ctx context.Context, viewer *user.User, id string) (Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return Post{}, ErrPostNotFound
	}
	p, err := svc.repo.GetPost(ctx, id)
	if err != nil {
		return Post{}, err
	}
	if !p.IsApproved && (viewer == nil || (viewer.ID != p.AuthorID && !viewer.IsAdmin())) {
		return Post{}, ErrPostNotFound
	}
	return p, nil
}

func (svc *Service) Detail(ctx context.Context, viewer *user.User, id string) (PostDetail, error) {
	p, err := svc.Get(ctx, viewer, id)
	if err != nil {
		return PostDetail{}, err
	}
	comments, err := svc.repo.QueryComments(ctx, p.ID)
	if err != nil {
		return PostDetail{}, errors.Wrap(err, "querying comments")
	}
	if comments == nil {
		comments = []Comment{}
	}
	likes, err := svc.LikeDict(ctx, viewer, []Post{p})
	if err != nil {
		return PostDetail{}, err
	}
	return PostDetail{Post: p, Comments: comments, IsLiked: likes[p.ID], NumLiked: p.NumLikes}, nil
}

func (svc *Service) Edit(ctx context.Context, actor user.User, id string, up UpdatePost) (Post, error) {
	p, err := svc.Get(ctx, &actor, id)
	if err != nil {
		return Post{}, err
	}
	if p.AuthorID != actor.ID {
		return Post{}, core.ErrPermissionDenied
	}

	up.clean()
	if err = svc.validate.Struct(up); err != nil {
		return Post{}, err
	}
	deref := func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	}
	if err = svc.checkRefs(ctx, deref(up.SubjectID), deref(up.ClassLevelID), deref(up.DistrictID)); err != nil {
		return Post{}, err
	}

	up.apply(&p)
	p.UpdatedAt = time.Now().UTC()
	p, err = svc.repo.UpdatePost(ctx, p)
	return p, errors.Wrap(err, "updating post")
}

// Delete removes a post along with its likes, comments and notifies. Allowed to its author and admins.
func (svc *Service) Delete(ctx context.Context, actor user.User, id string) error {
	p, err := svc.Get(ctx, &actor, id)
	if err != nil {
		return err
	}
	if p.AuthorID != actor.ID && !actor.IsAdmin() {
		return core.ErrPermissionDenied
	}
	return errors.Wrap(svc.repo.DeletePost(ctx, p.ID), "deleting post")
}

// ToggleLike likes the post, or withdraws the like when the actor already likes it.
func (svc *Service) ToggleLike(ctx context.Context, actor user.User, id string) (LikeResult, error) {
	p, err := svc.Get(ctx, &actor, id)
	if err != nil {
		return LikeResult{}, err
	}

	var res LikeResult
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		removed, err := svc.repo.RemoveLike(ctx, p.ID, actor.ID, exec)
		if err != nil {
			return errors.Wrap(err, "removing like")
		}
		if removed {
			if err = svc.notifySvc.PostUnliked(ctx, actor.ID, p.AuthorID, p.ID, exec); err != nil {
				return err
			}
		} else {
			if err = svc.repo.AddLike(ctx, p.ID, actor.ID, exec); err != nil {
				return errors.Wrap(err, "adding like")
			}
			if err = svc.notifySvc.PostLiked(ctx, actor.ID, p.AuthorID, p.ID, exec); err != nil {
				return err
			}
		}
		res.IsLiked = !removed
		res.NumLiked, err = svc.repo.CountLikes(ctx, p.ID, exec)
		return errors.Wrap(err, "counting likes")
	})
	if err != nil {
		return LikeResult{}, err
	}
	return res, nil
}

// AddComment comments on a post and notifies its author and previous commenters.
func (svc *Service) AddComment(ctx context.Context, actor user.User, postID string, ct CommentText) (Comment, error) {
	ct.Text = core.CleanString(ct.Text)
	if err := svc.validate.Struct(ct); err != nil {
		return Comment{}, err
	}
	p, err := svc.Get(ctx, &actor, postID)
	if err != nil {
		return Comment{}, err
	}

	now := time.Now().UTC()
	c := Comment{
		ID:        uuid.New().String(),
		PostID:    p.ID,
		AuthorID:  actor.ID,
		Text:      ct.Text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err = svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		commenters, err := svc.repo.QueryCommenterIDs(ctx, p.ID, exec)
		if err != nil {
			return errors.Wrap(err, "querying commenters")
		}
		if c, err = svc.repo.CreateComment(ctx, c, exec); err != nil {
			return errors.Wrap(err, "creating comment")
		}
		return svc.notifySvc.CommentAdded(ctx, actor.ID, p.AuthorID, p.ID, c.ID, commenters, exec)
	})
	if err != nil {
		return Comment{}, err
	}
	c.AuthorUsername = actor.Username
	return c, nil
}

func (svc *Service) getComment(ctx context.Context, postID, commentID string) (Comment, error) {
	if _, err := uuid.Parse(commentID); err != nil {
		return Comment{}, ErrCommentNotFound
	}
	c, err := svc.repo.GetComment(ctx, commentID)
	if err != nil {
		return Comment{}, err
	}
	if c.PostID != postID {
		return Comment{}, ErrCommentNotFound
	}
	return c, nil
}

// EditComment changes the text of a comment. Only its author may edit it.
func (svc *Service) EditComment(ctx context.Context, actor user.User, postID, commentID string, ct CommentText) (Comment, error) {
	ct.Text = core.CleanString(ct.Text)
	if err := svc.validate.Struct(ct); err != nil {
		return Comment{}, err
	}
	p, err := svc.Get(ctx, &actor, postID)
	if err != nil {
		return Comment{}, err
	}
	c, err := svc.getComment(ctx, p.ID, commentID)
	if err != nil {
		return Comment{}, err
	}
	if c.AuthorID != actor.ID {
		return Comment{}, core.ErrPermissionDenied
	}

	c.Text = ct.Text
	c.UpdatedAt = time.Now().UTC()
	c, err = svc.repo.UpdateComment(ctx, c)
	return c, errors.Wrap(err, "updating comment")
}

// DeleteComment removes a comment and the notify it sent to the post author.
// Allowed to the comment author and the post author.
func (svc *Service) DeleteComment(ctx context.Context, actor user.User, postID, commentID string) error {
	p, err := svc.Get(ctx, &actor, postID)
	if err != nil {
		return err
	}
	c, err := svc.getComment(ctx, p.ID, commentID)
	if err != nil {
		return err
	}
	if c.AuthorID != actor.ID && p.AuthorID != actor.ID {
		return core.ErrPermissionDenied
	}

	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if err := svc.notifySvc.CommentRemoved(ctx, c.AuthorID, p.AuthorID, c.ID, exec); err != nil {
			return err
		}
		return errors.Wrap(svc.repo.DeleteComment(ctx, c.ID, exec), "deleting comment")
	})
}

// Approve publishes a post. Admins only.
func (svc *Service) Approve(ctx context.Context, actor user.User, id string) (Post, error) {
	if !actor.IsAdmin() {
		return Post{}, core.ErrPermissionDenied
	}
	p, err := svc.Get(ctx, &actor, id)
	if err != nil {
		return Post{}, err
	}
	if p.IsApproved {
		return p, nil
	}
	p.IsApproved = true
	p.UpdatedAt = time.Now().UTC()
	p, err = svc.repo.UpdatePost(ctx, p)
	return p, errors.Wrap(err, "approving post")
}

func (svc *Service) PendingCount(ctx context.Context, actor user.User) (int, error) {
	if !actor.IsAdmin() {
		return 0, core.ErrPermissionDenied
	}
	n, err := svc.repo.CountPosts(ctx, QueryFilter{Approved: boolPtr(false)})
	return n, errors.Wrap(err, "counting pending posts")
}

func (svc *Service) page(ctx context.Context, viewer *user.User, filter QueryFilter, rawPage string, perPage int) (FeedPage, error) {
	count, err := svc.repo.CountPosts(ctx, filter)
	if err != nil {
		return FeedPage{}, errors.Wrap(err, "counting posts")
	}
	page := core.NewPage(rawPage, count, perPage)
	posts, err := svc.repo.QueryPosts(ctx, filter, &page)
	if err != nil {
		return FeedPage{}, errors.Wrap(err, "querying posts")
	}
	if posts == nil {
		posts = []Post{}
	}
	likes, err := svc.LikeDict(ctx, viewer, posts)
	if err != nil {
		return FeedPage{}, err
	}
	return FeedPage{Posts: posts, Page: page, LikeDict: likes}, nil
}

// Feed is the home page listing: approved posts, newest first.
func (svc *Service) Feed(ctx context.Context, viewer *user.User, audience user.Audience, rawPage string) (FeedPage, error) {
	filter := QueryFilter{Approved: boolPtr(true), AuthorRole: audience.Role()}
	return svc.page(ctx, viewer, filter, rawPage, svc.conf.Pagination.Posts)
}

// Pending lists the posts awaiting approval. Admins only.
func (svc *Service) Pending(ctx context.Context, actor user.User, audience user.Audience, rawPage string) (FeedPage, error) {
	if !actor.IsAdmin() {
		return FeedPage{}, core.ErrPermissionDenied
	}
	filter := QueryFilter{Approved: boolPtr(false), AuthorRole: audience.Role()}
	return svc.page(ctx, &actor, filter, rawPage, svc.conf.Pagination.Posts)
}

// ByAuthor lists the approved posts of one user, as shown on their profile.
func (svc *Service) ByAuthor(ctx context.Context, viewer *user.User, authorID, rawPage string) (FeedPage, error) {
	filter := QueryFilter{Approved: boolPtr(true), AuthorID: authorID}
	return svc.page(ctx, viewer, filter, rawPage, svc.conf.Pagination.ProfilePosts)
}

// LikeDict maps each post id to whether viewer likes it. Anonymous viewers like nothing.
func (svc *Service) LikeDict(ctx context.Context, viewer *user.User, posts []Post) (map[string]bool, error) {
	likes := make(map[string]bool, len(posts))
	for _, p := range posts {
		likes[p.ID] = false
	}
	if viewer == nil || len(posts) == 0 {
		return likes, nil
	}

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	liked, err := svc.repo.LikedPosts(ctx, viewer.ID, ids)
	if err != nil {
		return nil, errors.Wrap(err, "querying liked posts")
	}
	for id, ok := range liked {
		if ok {
			likes[id] = true
		}
	}
	return likes, nil
}
