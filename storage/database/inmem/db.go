// Package inmemdb keeps every repository in process memory. It backs development runs without
// PostgreSQL and the service and API tests.
package inmemdb

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/listing"
	"github.com/hien-pd-dac/tutorfinder/core/notify"
	"github.com/hien-pd-dac/tutorfinder/core/rating"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

type DB struct {
	mu  sync.RWMutex
	seq int64

	users    map[string]user.User
	refs     map[refdata.Kind]map[string]refdata.Entry
	ratings  map[string]rating.Rating
	notifies map[string]notify.Notify
	posts    map[string]listing.Post
	likes    map[string]map[string]bool // {postID: {userID: true}}
	comments map[string]listing.Comment

	// insertion order, used to break created_at ties
	order map[string]int64
}

var _ core.TxRunner = (*DB)(nil)

func NewDB() *DB {
	db := &DB{
		users:    make(map[string]user.User),
		refs:     make(map[refdata.Kind]map[string]refdata.Entry),
		ratings:  make(map[string]rating.Rating),
		notifies: make(map[string]notify.Notify),
		posts:    make(map[string]listing.Post),
		likes:    make(map[string]map[string]bool),
		comments: make(map[string]listing.Comment),
		order:    make(map[string]int64),
	}
	for _, kind := range refdata.Kinds {
		db.refs[kind] = make(map[string]refdata.Entry)
	}
	return db
}

// RunInTx runs fn right away. Writes are applied as they happen and are not rolled back on error.
func (db *DB) RunInTx(_ context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

// track must be called with the write lock held.
func (db *DB) track(id string) {
	db.seq++
	db.order[id] = db.seq
}

// newestFirst sorts ids by created_at descending, latest inserted first on ties.
func (db *DB) newestFirst(ids []string, createdAt func(id string) time.Time) {
	sort.Slice(ids, func(i, j int) bool {
		ti, tj := createdAt(ids[i]), createdAt(ids[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return db.order[ids[i]] > db.order[ids[j]]
	})
}

func window(n int, page *core.Page) (int, int) {
	if page == nil {
		return 0, n
	}
	return page.Bounds(n)
}
