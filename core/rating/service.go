package rating

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

var (
	ErrNotFound     = core.NewNotFoundError("rating")
	ErrInvalidScore = core.NewValidationError(
		errors.New("only rate from 0 -> 5 stars"),
		core.FieldError{Field: "rating", Error: "only rate from 0 -> 5 stars"},
	)
	errOnlyStudentsRate = core.NewPermissionError("only students can rate tutors")
)

type (
	Repository interface {
		// UpsertRating keeps a single Rating per (from, to) pair, updating its score.
		UpsertRating(ctx context.Context, r Rating, exec ...core.DBExecutor) (Rating, error)
		GetRating(ctx context.Context, fromUserID, toUserID string, exec ...core.DBExecutor) (Rating, error)
		GetStats(ctx context.Context, toUserID string, exec ...core.DBExecutor) (Stats, error)
		// QueryStats returns the stats of every user who received at least one rating.
		QueryStats(ctx context.Context, exec ...core.DBExecutor) ([]Stats, error)
	}

	ServiceInterface interface {
		Rate(ctx context.Context, rater, ratee user.User, score int) (VoteResult, error)
		AverageRating(ctx context.Context, userID string) (float64, error)
		Summary(ctx context.Context, ratee user.User, viewer *user.User) (Summary, error)
		TopRated(ctx context.Context, limit int) ([]RatedTutor, error)
	}

	Service struct {
		tx        core.TxRunner
		repo      Repository
		usrRepo   user.Repository
		notifySvc notify.ServiceInterface
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(tx core.TxRunner, repo Repository, usrRepo user.Repository, notifySvc notify.ServiceInterface) *Service {
	return &Service{tx: tx, repo: repo, usrRepo: usrRepo, notifySvc: notifySvc}
}

// Rate records the rater's score for a tutor and notifies them, both in one transaction.
// Rating again replaces the previous score.
func (svc *Service) Rate(ctx context.Context, rater, ratee user.User, score int) (VoteResult, error) {
	if score < MinScore || score > MaxScore {
		return VoteResult{}, ErrInvalidScore
	}
	if !ratee.IsTutor() || !rater.IsStudent() {
		return VoteResult{}, errOnlyStudentsRate
	}

	now := time.Now().UTC()
	var stats Stats
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.UpsertRating(ctx, Rating{
			ID:         uuid.New().String(),
			FromUserID: rater.ID,
			ToUserID:   ratee.ID,
			Score:      score,
			CreatedAt:  now,
			UpdatedAt:  now,
		}, exec); err != nil {
			return errors.Wrap(err, "upserting rating")
		}
		if err := svc.notifySvc.TutorRated(ctx, rater.ID, ratee.ID, score, exec); err != nil {
			return err
		}

		var err error
		stats, err = svc.repo.GetStats(ctx, ratee.ID, exec)
		return errors.Wrap(err, "getting rating stats")
	})
	if err != nil {
		return VoteResult{}, err
	}

	return VoteResult{
		Raters:    stats.Count,
		RatingAvg: FormatAverage(stats.Average()),
		YourRated: score,
	}, nil
}

func (svc *Service) AverageRating(ctx context.Context, userID string) (float64, error) {
	stats, err := svc.repo.GetStats(ctx, userID)
	if err != nil {
		return 0, errors.Wrap(err, "getting rating stats")
	}
	return stats.Average(), nil
}

// Summary returns the ratings received by ratee and, for a logged in viewer, their own score.
func (svc *Service) Summary(ctx context.Context, ratee user.User, viewer *user.User) (Summary, error) {
	stats, err := svc.repo.GetStats(ctx, ratee.ID)
	if err != nil {
		return Summary{}, errors.Wrap(err, "getting rating stats")
	}
	sum := Summary{Raters: stats.Count, RatingAvg: FormatAverage(stats.Average())}

	if viewer != nil && viewer.ID != ratee.ID {
		r, err := svc.repo.GetRating(ctx, viewer.ID, ratee.ID)
		switch errors.Cause(err) {
		case nil:
			score := r.Score
			sum.YourRating = &score
		case ErrNotFound:
		default:
			return Summary{}, errors.Wrap(err, "getting viewer rating")
		}
	}
	return sum, nil
}

// TopRated lists the active tutors by average rating, best first. Ties keep the newest tutor first.
func (svc *Service) TopRated(ctx context.Context, limit int) ([]RatedTutor, error) {
	tutors, err := svc.usrRepo.QueryUsers(ctx, user.QueryFilter{Role: user.RoleTutor, Status: user.StatusActive}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying tutors")
	}
	allStats, err := svc.repo.QueryStats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying rating stats")
	}
	byUser := make(map[string]Stats, len(allStats))
	for _, s := range allStats {
		byUser[s.UserID] = s
	}

	rated := make([]RatedTutor, 0, len(tutors))
	for _, t := range tutors {
		s := byUser[t.ID]
		avg := s.Average()
		rated = append(rated, RatedTutor{Tutor: t, Raters: s.Count, RatingAvg: FormatAverage(avg), average: avg})
	}
	sort.SliceStable(rated, func(i, j int) bool { return rated[i].average > rated[j].average })

	if limit > 0 && len(rated) > limit {
		rated = rated[:limit]
	}
	return rated, nil
}
