package refdata

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
)

var (
	ErrNotFound     = core.NewNotFoundError("reference entry")
	ErrUnknownKind  = errors.New("unknown reference kind")
	ErrNameConflict = errors.New("an entry with this name already exists")
)

type (
	Repository interface {
		ListEntries(ctx context.Context, kind Kind, exec ...core.DBExecutor) ([]Entry, error)
		GetEntry(ctx context.Context, kind Kind, id string, exec ...core.DBExecutor) (Entry, error)
		CreateEntry(ctx context.Context, kind Kind, name string, exec ...core.DBExecutor) (Entry, error)
	}

	ServiceInterface interface {
		List(ctx context.Context, kind Kind) ([]Entry, error)
		Get(ctx context.Context, kind Kind, id string) (Entry, error)
		Create(ctx context.Context, ne NewEntry) (Entry, error)
		// CheckRefs returns a ValidationError naming every non-empty id that does not exist.
		CheckRefs(ctx context.Context, refs ...Ref) error
	}

	// Ref pairs a form field with the reference id it holds.
	Ref struct {
		Field string
		Kind  Kind
		ID    string
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) List(ctx context.Context, kind Kind) ([]Entry, error) {
	if !kind.Valid() {
		return nil, ErrUnknownKind
	}
	entries, err := svc.repo.ListEntries(ctx, kind)
	return entries, errors.Wrap(err, "listing entries")
}

func (svc *Service) Get(ctx context.Context, kind Kind, id string) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, ErrUnknownKind
	}
	return svc.repo.GetEntry(ctx, kind, id)
}

func (svc *Service) Create(ctx context.Context, ne NewEntry) (Entry, error) {
	if err := svc.validate.Struct(ne); err != nil {
		return Entry{}, err
	}
	if err := ne.Clean(); err != nil {
		return Entry{}, err
	}
	entry, err := svc.repo.CreateEntry(ctx, ne.Kind, ne.Name)
	if errors.Cause(err) == ErrNameConflict {
		return Entry{}, core.NewValidationError(err, core.FieldError{Field: "name", Error: err.Error()})
	}
	return entry, errors.Wrap(err, "creating entry")
}

func (svc *Service) CheckRefs(ctx context.Context, refs ...Ref) error {
	var flds []core.FieldError
	for _, ref := range refs {
		if ref.ID == "" {
			continue
		}
		if _, err := svc.repo.GetEntry(ctx, ref.Kind, ref.ID); err != nil {
			if errors.Cause(err) != ErrNotFound {
				return errors.Wrap(err, "checking "+ref.Field)
			}
			flds = append(flds, core.FieldError{Field: ref.Field, Error: "select a valid choice"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
