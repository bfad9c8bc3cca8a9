package inmemdb

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
)

type refdataRepository struct {
	db *DB
}

var _ refdata.Repository = (*refdataRepository)(nil)

func NewRefdataRepository(db *DB) refdata.Repository {
	return &refdataRepository{db: db}
}

func (repo *refdataRepository) ListEntries(_ context.Context, kind refdata.Kind, _ ...core.DBExecutor) ([]refdata.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	entries := make([]refdata.Entry, 0, len(repo.db.refs[kind]))
	for _, e := range repo.db.refs[kind] {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if kind == refdata.KindClassLevel {
			li, _ := strconv.Atoi(entries[i].Name)
			lj, _ := strconv.Atoi(entries[j].Name)
			return li < lj
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}

func (repo *refdataRepository) GetEntry(_ context.Context, kind refdata.Kind, id string, _ ...core.DBExecutor) (refdata.Entry, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.refs[kind][id]; ok {
		return e, nil
	}
	return refdata.Entry{}, refdata.ErrNotFound
}

func (repo *refdataRepository) CreateEntry(_ context.Context, kind refdata.Kind, name string, _ ...core.DBExecutor) (refdata.Entry, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	table, ok := repo.db.refs[kind]
	if !ok {
		return refdata.Entry{}, refdata.ErrUnknownKind
	}
	for _, e := range table {
		if strings.EqualFold(e.Name, name) {
			return refdata.Entry{}, refdata.ErrNameConflict
		}
	}
	e := refdata.Entry{ID: uuid.New().String(), Name: name}
	table[e.ID] = e
	return e, nil
}
