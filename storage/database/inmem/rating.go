package inmemdb

import (
	"context"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/rating"
)

type ratingRepository struct {
	db *DB
}

var _ rating.Repository = (*ratingRepository)(nil)

func NewRatingRepository(db *DB) rating.Repository {
	return &ratingRepository{db: db}
}

func (repo *ratingRepository) UpsertRating(_ context.Context, r rating.Rating, _ ...core.DBExecutor) (rating.Rating, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for id, existing := range repo.db.ratings {
		if existing.FromUserID == r.FromUserID && existing.ToUserID == r.ToUserID {
			existing.Score = r.Score
			existing.UpdatedAt = r.UpdatedAt
			repo.db.ratings[id] = existing
			return existing, nil
		}
	}
	repo.db.ratings[r.ID] = r
	repo.db.track(r.ID)
	return r, nil
}

func (repo *ratingRepository) GetRating(_ context.Context, fromUserID, toUserID string, _ ...core.DBExecutor) (rating.Rating, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, r := range repo.db.ratings {
		if r.FromUserID == fromUserID && r.ToUserID == toUserID {
			return r, nil
		}
	}
	return rating.Rating{}, rating.ErrNotFound
}

func (repo *ratingRepository) GetStats(_ context.Context, toUserID string, _ ...core.DBExecutor) (rating.Stats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.stats()[toUserID], nil
}

func (repo *ratingRepository) QueryStats(_ context.Context, _ ...core.DBExecutor) ([]rating.Stats, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	byUser := repo.db.stats()
	stats := make([]rating.Stats, 0, len(byUser))
	for _, s := range byUser {
		stats = append(stats, s)
	}
	return stats, nil
}

// stats must be called with the read lock held.
func (db *DB) stats() map[string]rating.Stats {
	sums := make(map[string]int)
	byUser := make(map[string]rating.Stats)
	for _, r := range db.ratings {
		s := byUser[r.ToUserID]
		s.UserID = r.ToUserID
		s.Count++
		sums[r.ToUserID] += r.Score
		byUser[r.ToUserID] = s
	}
	for id, s := range byUser {
		s.Mean = float64(sums[id]) / float64(s.Count)
		byUser[id] = s
	}
	return byUser
}
