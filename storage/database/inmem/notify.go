package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
)

type notifyRepository struct {
	db *DB
}

var _ notify.Repository = (*notifyRepository)(nil)

func NewNotifyRepository(db *DB) notify.Repository {
	return &notifyRepository{db: db}
}

func (repo *notifyRepository) CreateNotifies(_ context.Context, notifies []notify.Notify, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, n := range notifies {
		repo.db.notifies[n.ID] = n
		repo.db.track(n.ID)
	}
	return nil
}

func (repo *notifyRepository) UpsertRatingNotify(_ context.Context, n notify.Notify, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, existing := range repo.db.notifies {
		if existing.Type == notify.TypeRating && existing.FromUserID == n.FromUserID && existing.ToUserID == n.ToUserID {
			existing.Rating = n.Rating
			repo.db.notifies[id] = existing
			return nil
		}
	}
	repo.db.notifies[n.ID] = n
	repo.db.track(n.ID)
	return nil
}

func matchNotify(n notify.Notify, filter notify.DeleteFilter) bool {
	switch {
	case filter.FromUserID != "" && n.FromUserID != filter.FromUserID:
		return false
	case filter.ToUserID != "" && n.ToUserID != filter.ToUserID:
		return false
	case filter.Type != "" && n.Type != filter.Type:
		return false
	case filter.PostID != "" && n.PostID.String != filter.PostID:
		return false
	case filter.CommentID != "" && n.CommentID.String != filter.CommentID:
		return false
	}
	return true
}

func (repo *notifyRepository) DeleteNotifies(_ context.Context, filter notify.DeleteFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for id, ntf := range repo.db.notifies {
		if matchNotify(ntf, filter) {
			delete(repo.db.notifies, id)
			delete(repo.db.order, id)
			n++
		}
	}
	return n, nil
}

func (repo *notifyRepository) QueryNotifies(_ context.Context, toUserID string, _ ...core.DBExecutor) ([]notify.Notify, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, n := range repo.db.notifies {
		if n.ToUserID == toUserID {
			ids = append(ids, id)
		}
	}
	repo.db.newestFirst(ids, func(id string) time.Time { return repo.db.notifies[id].CreatedAt })

	notifies := make([]notify.Notify, 0, len(ids))
	for _, id := range ids {
		n := repo.db.notifies[id]
		n.FromUsername = repo.db.users[n.FromUserID].Username
		if p, ok := repo.db.posts[n.PostID.String]; ok && n.PostID.Valid {
			n.PostTitle = null.StringFrom(p.Title)
		}
		notifies = append(notifies, n)
	}
	return notifies, nil
}

func (repo *notifyRepository) CountUnseen(_ context.Context, toUserID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var count int
	for _, n := range repo.db.notifies {
		if n.ToUserID == toUserID && !n.Seen {
			count++
		}
	}
	return count, nil
}

func (repo *notifyRepository) MarkAllSeen(_ context.Context, toUserID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var count int
	for id, n := range repo.db.notifies {
		if n.ToUserID == toUserID && !n.Seen {
			n.Seen = true
			repo.db.notifies[id] = n
			count++
		}
	}
	return count, nil
}
