package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/hien-pd-dac/tutorfinder/core"
)

type (
	Repository interface {
		CreateNotifies(ctx context.Context, notifies []Notify, exec ...core.DBExecutor) error
		// UpsertRatingNotify keeps a single rating Notify per (from, to) pair, updating its rating value.
		UpsertRatingNotify(ctx context.Context, n Notify, exec ...core.DBExecutor) error
		DeleteNotifies(ctx context.Context, filter DeleteFilter, exec ...core.DBExecutor) (int, error)
		// QueryNotifies returns the notifies addressed to a user, newest first.
		QueryNotifies(ctx context.Context, toUserID string, exec ...core.DBExecutor) ([]Notify, error)
		CountUnseen(ctx context.Context, toUserID string, exec ...core.DBExecutor) (int, error)
		MarkAllSeen(ctx context.Context, toUserID string, exec ...core.DBExecutor) (int, error)
	}

	ServiceInterface interface {
		CommentAdded(ctx context.Context, actorID, postAuthorID, postID, commentID string, priorCommenters []string, exec ...core.DBExecutor) error
		CommentRemoved(ctx context.Context, commentAuthorID, postAuthorID, commentID string, exec ...core.DBExecutor) error
		PostLiked(ctx context.Context, actorID, postAuthorID, postID string, exec ...core.DBExecutor) error
		PostUnliked(ctx context.Context, actorID, postAuthorID, postID string, exec ...core.DBExecutor) error
		TutorRated(ctx context.Context, actorID, tutorID string, score int, exec ...core.DBExecutor) error
		Feed(ctx context.Context, userID string) (Feed, error)
		UnreadCount(ctx context.Context, userID string) (int, error)
		MarkAllSeen(ctx context.Context, userID string) error
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func newNotify(from, to string, typ Type) Notify {
	return Notify{
		ID:         uuid.New().String(),
		FromUserID: from,
		ToUserID:   to,
		Type:       typ,
		CreatedAt:  time.Now().UTC(),
	}
}

// commentRecipients returns the post author and every prior commenter, once each, without the actor.
func commentRecipients(actorID, postAuthorID string, priorCommenters []string) []string {
	seen := map[string]bool{actorID: true}
	recipients := make([]string, 0, len(priorCommenters)+1)
	for _, id := range append([]string{postAuthorID}, priorCommenters...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		recipients = append(recipients, id)
	}
	return recipients
}

// CommentAdded fans a comment Notify out to the post author and the other commenters of the post.
func (svc *Service) CommentAdded(ctx context.Context, actorID, postAuthorID, postID, commentID string, priorCommenters []string, exec ...core.DBExecutor) error {
	recipients := commentRecipients(actorID, postAuthorID, priorCommenters)
	if len(recipients) == 0 {
		return nil
	}
	notifies := make([]Notify, 0, len(recipients))
	for _, to := range recipients {
		n := newNotify(actorID, to, TypeComment)
		n.PostID = null.StringFrom(postID)
		n.CommentID = null.StringFrom(commentID)
		notifies = append(notifies, n)
	}
	return errors.Wrap(svc.repo.CreateNotifies(ctx, notifies, exec...), "creating comment notifies")
}

// CommentRemoved deletes the Notify the comment sent to the post author.
func (svc *Service) CommentRemoved(ctx context.Context, commentAuthorID, postAuthorID, commentID string, exec ...core.DBExecutor) error {
	_, err := svc.repo.DeleteNotifies(ctx, DeleteFilter{
		FromUserID: commentAuthorID,
		ToUserID:   postAuthorID,
		Type:       TypeComment,
		CommentID:  commentID,
	}, exec...)
	return errors.Wrap(err, "deleting comment notify")
}

func (svc *Service) PostLiked(ctx context.Context, actorID, postAuthorID, postID string, exec ...core.DBExecutor) error {
	if actorID == postAuthorID {
		return nil
	}
	n := newNotify(actorID, postAuthorID, TypeLike)
	n.PostID = null.StringFrom(postID)
	return errors.Wrap(svc.repo.CreateNotifies(ctx, []Notify{n}, exec...), "creating like notify")
}

func (svc *Service) PostUnliked(ctx context.Context, actorID, postAuthorID, postID string, exec ...core.DBExecutor) error {
	_, err := svc.repo.DeleteNotifies(ctx, DeleteFilter{
		FromUserID: actorID,
		ToUserID:   postAuthorID,
		Type:       TypeLike,
		PostID:     postID,
	}, exec...)
	return errors.Wrap(err, "deleting like notify")
}

func (svc *Service) TutorRated(ctx context.Context, actorID, tutorID string, score int, exec ...core.DBExecutor) error {
	n := newNotify(actorID, tutorID, TypeRating)
	n.Rating = null.IntFrom(score)
	return errors.Wrap(svc.repo.UpsertRatingNotify(ctx, n, exec...), "upserting rating notify")
}

func (svc *Service) Feed(ctx context.Context, userID string) (Feed, error) {
	notifies, err := svc.repo.QueryNotifies(ctx, userID)
	if err != nil {
		return Feed{}, errors.Wrap(err, "querying notifies")
	}
	feed := Feed{Items: make([]Item, 0, len(notifies))}
	for _, n := range notifies {
		feed.Items = append(feed.Items, Item{Notify: n, Text: n.Text()})
		if !n.Seen {
			feed.Unread++
		}
	}
	return feed, nil
}

func (svc *Service) UnreadCount(ctx context.Context, userID string) (int, error) {
	n, err := svc.repo.CountUnseen(ctx, userID)
	return n, errors.Wrap(err, "counting unseen notifies")
}

func (svc *Service) MarkAllSeen(ctx context.Context, userID string) error {
	_, err := svc.repo.MarkAllSeen(ctx, userID)
	return errors.Wrap(err, "marking notifies seen")
}
