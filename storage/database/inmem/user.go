package inmemdb

import (
	"context"
	"strings"
	"time"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil)

func NewUserRepository(db *DB) user.Repository {
	return &userRepository{db: db}
}

func (repo *userRepository) CheckUniqueness(_ context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	excluded := make(map[string]bool, len(excludedUsers))
	for _, u := range excludedUsers {
		excluded[u.ID] = true
	}
	for _, usr := range repo.db.users {
		if excluded[usr.ID] {
			continue
		}
		if username != "" && strings.EqualFold(usr.Username, username) {
			return user.ErrUsernameExists
		}
		if email != "" && strings.EqualFold(usr.Email, email) {
			return user.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, u := range repo.db.users {
		if strings.EqualFold(u.Username, usr.Username) {
			return user.User{}, user.ErrUsernameExists
		}
		if strings.EqualFold(u.Email, usr.Email) {
			return user.User{}, user.ErrEmailExists
		}
	}
	repo.db.users[usr.ID] = usr
	repo.db.track(usr.ID)
	return usr, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if filter.ID != "" {
		if usr, ok := repo.db.users[filter.ID]; ok {
			return usr, nil
		}
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		switch {
		case filter.Username != "" && usr.Username == filter.Username,
			filter.Email != "" && strings.EqualFold(usr.Email, filter.Email):
			return usr, nil
		}
		for _, v := range filter.UsernameOrEmail {
			if v != "" && (usr.Username == v || strings.EqualFold(usr.Email, v)) {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func matchUser(usr user.User, filter user.QueryFilter) bool {
	switch {
	case filter.DistrictID != "" && (!usr.DistrictID.Valid || usr.DistrictID.String != filter.DistrictID):
		return false
	case filter.Role != "" && usr.Role != filter.Role:
		return false
	case filter.Status != "" && usr.Status != filter.Status:
		return false
	case !filter.CreatedBefore.IsZero() && !usr.CreatedAt.Before(filter.CreatedBefore):
		return false
	}
	return true
}

func (repo *userRepository) filter(filter user.QueryFilter) []string {
	ids := make([]string, 0)
	for id, usr := range repo.db.users {
		if matchUser(usr, filter) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (repo *userRepository) QueryUsers(_ context.Context, filter user.QueryFilter, page *core.Page, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := repo.filter(filter)
	repo.db.newestFirst(ids, func(id string) time.Time { return repo.db.users[id].CreatedAt })
	lo, hi := window(len(ids), page)

	users := make([]user.User, 0, hi-lo)
	for _, id := range ids[lo:hi] {
		users = append(users, repo.db.users[id])
	}
	return users, nil
}

func (repo *userRepository) CountUsers(_ context.Context, filter user.QueryFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.users[usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	usr.CreatedAt = orig.CreatedAt
	repo.db.users[usr.ID] = usr
	return usr, nil
}

// DeleteUsers removes the matching users and everything they own.
func (repo *userRepository) DeleteUsers(_ context.Context, filter user.QueryFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	ids := repo.filter(filter)
	for _, id := range ids {
		repo.db.deleteUser(id)
	}
	return len(ids), nil
}

// deleteUser must be called with the write lock held.
func (db *DB) deleteUser(id string) {
	delete(db.users, id)
	delete(db.order, id)
	for pid, p := range db.posts {
		if p.AuthorID == id {
			db.deletePost(pid)
		}
	}
	for cid, c := range db.comments {
		if c.AuthorID == id {
			db.deleteComment(cid)
		}
	}
	for _, likers := range db.likes {
		delete(likers, id)
	}
	for rid, r := range db.ratings {
		if r.FromUserID == id || r.ToUserID == id {
			delete(db.ratings, rid)
		}
	}
	for nid, n := range db.notifies {
		if n.FromUserID == id || n.ToUserID == id {
			delete(db.notifies, nid)
		}
	}
}
