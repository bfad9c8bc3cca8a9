package inmemdb

import (
	"context"
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
)

type listingRepository struct {
	db *DB
}

var _ listing.Repository = (*listingRepository)(nil)

func NewListingRepository(db *DB) listing.Repository {
	return &listingRepository{db: db}
}

// withAuthor fills in the read-only fields of p. Must be called with the read lock held.
func (db *DB) withAuthor(p listing.Post) listing.Post {
	author := db.users[p.AuthorID]
	p.AuthorUsername = author.Username
	p.AuthorRole = author.Role
	p.NumLikes = len(db.likes[p.ID])
	return p
}

func (repo *listingRepository) CreatePost(_ context.Context, p listing.Post, _ ...core.DBExecutor) (listing.Post, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	repo.db.posts[p.ID] = p
	repo.db.track(p.ID)
	return repo.db.withAuthor(p), nil
}

func (repo *listingRepository) GetPost(_ context.Context, id string, _ ...core.DBExecutor) (listing.Post, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	p, ok := repo.db.posts[id]
	if !ok {
		return listing.Post{}, listing.ErrPostNotFound
	}
	return repo.db.withAuthor(p), nil
}

func (repo *listingRepository) UpdatePost(_ context.Context, p listing.Post, _ ...core.DBExecutor) (listing.Post, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.posts[p.ID]
	if !ok {
		return listing.Post{}, listing.ErrPostNotFound
	}
	p.AuthorID = orig.AuthorID
	p.CreatedAt = orig.CreatedAt
	repo.db.posts[p.ID] = p
	return repo.db.withAuthor(p), nil
}

func (repo *listingRepository) DeletePost(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.posts[id]; !ok {
		return listing.ErrPostNotFound
	}
	repo.db.deletePost(id)
	return nil
}

// deletePost cascades to the likes, comments and notifies of the post. Must be called with the write lock held.
func (db *DB) deletePost(id string) {
	delete(db.posts, id)
	delete(db.order, id)
	delete(db.likes, id)
	for cid, c := range db.comments {
		if c.PostID == id {
			delete(db.comments, cid)
			delete(db.order, cid)
		}
	}
	for nid, n := range db.notifies {
		if n.PostID.Valid && n.PostID.String == id {
			delete(db.notifies, nid)
			delete(db.order, nid)
		}
	}
}

func matchPost(db *DB, p listing.Post, filter listing.QueryFilter) bool {
	switch {
	case filter.Approved != nil && p.IsApproved != *filter.Approved:
		return false
	case filter.AuthorID != "" && p.AuthorID != filter.AuthorID:
		return false
	case filter.AuthorRole != "" && db.users[p.AuthorID].Role != filter.AuthorRole:
		return false
	}
	if !filter.HasRefs() {
		return true
	}
	eq := func(v null.String, id string) bool { return id != "" && v.Valid && v.String == id }
	return eq(p.DistrictID, filter.DistrictID) || eq(p.SubjectID, filter.SubjectID) || eq(p.ClassLevelID, filter.ClassLevelID)
}

func (repo *listingRepository) filter(filter listing.QueryFilter) []string {
	ids := make([]string, 0)
	for id, p := range repo.db.posts {
		if matchPost(repo.db, p, filter) {
			ids = append(ids, id)
		}
	}
	return ids
}

func (repo *listingRepository) QueryPosts(_ context.Context, filter listing.QueryFilter, page *core.Page, _ ...core.DBExecutor) ([]listing.Post, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := repo.filter(filter)
	repo.db.newestFirst(ids, func(id string) time.Time { return repo.db.posts[id].CreatedAt })
	lo, hi := window(len(ids), page)

	posts := make([]listing.Post, 0, hi-lo)
	for _, id := range ids[lo:hi] {
		posts = append(posts, repo.db.withAuthor(repo.db.posts[id]))
	}
	return posts, nil
}

func (repo *listingRepository) CountPosts(_ context.Context, filter listing.QueryFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.filter(filter)), nil
}

func (repo *listingRepository) AddLike(_ context.Context, postID, userID string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.posts[postID]; !ok {
		return listing.ErrPostNotFound
	}
	if repo.db.likes[postID] == nil {
		repo.db.likes[postID] = make(map[string]bool)
	}
	repo.db.likes[postID][userID] = true
	return nil
}

func (repo *listingRepository) RemoveLike(_ context.Context, postID, userID string, _ ...core.DBExecutor) (bool, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if !repo.db.likes[postID][userID] {
		return false, nil
	}
	delete(repo.db.likes[postID], userID)
	return true, nil
}

func (repo *listingRepository) CountLikes(_ context.Context, postID string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return len(repo.db.likes[postID]), nil
}

func (repo *listingRepository) LikedPosts(_ context.Context, userID string, postIDs []string, _ ...core.DBExecutor) (map[string]bool, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	liked := make(map[string]bool)
	for _, id := range postIDs {
		if repo.db.likes[id][userID] {
			liked[id] = true
		}
	}
	return liked, nil
}

func (repo *listingRepository) CreateComment(_ context.Context, c listing.Comment, _ ...core.DBExecutor) (listing.Comment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.posts[c.PostID]; !ok {
		return listing.Comment{}, listing.ErrPostNotFound
	}
	repo.db.comments[c.ID] = c
	repo.db.track(c.ID)
	c.AuthorUsername = repo.db.users[c.AuthorID].Username
	return c, nil
}

func (repo *listingRepository) GetComment(_ context.Context, id string, _ ...core.DBExecutor) (listing.Comment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	c, ok := repo.db.comments[id]
	if !ok {
		return listing.Comment{}, listing.ErrCommentNotFound
	}
	c.AuthorUsername = repo.db.users[c.AuthorID].Username
	return c, nil
}

func (repo *listingRepository) UpdateComment(_ context.Context, c listing.Comment, _ ...core.DBExecutor) (listing.Comment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.comments[c.ID]
	if !ok {
		return listing.Comment{}, listing.ErrCommentNotFound
	}
	orig.Text = c.Text
	orig.UpdatedAt = c.UpdatedAt
	repo.db.comments[c.ID] = orig
	orig.AuthorUsername = repo.db.users[orig.AuthorID].Username
	return orig, nil
}

func (repo *listingRepository) DeleteComment(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.comments[id]; !ok {
		return listing.ErrCommentNotFound
	}
	repo.db.deleteComment(id)
	return nil
}

// deleteComment nulls the comment reference of the remaining notifies. Must be called with the write lock held.
func (db *DB) deleteComment(id string) {
	delete(db.comments, id)
	delete(db.order, id)
	for nid, n := range db.notifies {
		if n.CommentID.Valid && n.CommentID.String == id {
			n.CommentID = null.String{}
			db.notifies[nid] = n
		}
	}
}

func (repo *listingRepository) QueryComments(_ context.Context, postID string, _ ...core.DBExecutor) ([]listing.Comment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, c := range repo.db.comments {
		if c.PostID == postID {
			ids = append(ids, id)
		}
	}
	repo.db.newestFirst(ids, func(id string) time.Time { return repo.db.comments[id].CreatedAt })

	comments := make([]listing.Comment, 0, len(ids))
	for _, id := range ids {
		c := repo.db.comments[id]
		c.AuthorUsername = repo.db.users[c.AuthorID].Username
		comments = append(comments, c)
	}
	return comments, nil
}

func (repo *listingRepository) QueryCommenterIDs(_ context.Context, postID string, _ ...core.DBExecutor) ([]string, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	ids := make([]string, 0)
	for id, c := range repo.db.comments {
		if c.PostID == postID {
			ids = append(ids, id)
		}
	}
	// stable order for the fan-out
	repo.db.newestFirst(ids, func(id string) time.Time { return repo.db.comments[id].CreatedAt })

	seen := make(map[string]bool)
	authors := make([]string, 0, len(ids))
	for _, id := range ids {
		if a := repo.db.comments[id].AuthorID; !seen[a] {
			seen[a] = true
			authors = append(authors, a)
		}
	}
	return authors, nil
}
