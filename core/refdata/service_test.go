package refdata_test

import (
	"context"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		ne      refdata.NewEntry
		want    string
		wantErr string
	}{
		{name: "subject", ne: refdata.NewEntry{Kind: refdata.KindSubject, Name: "  Physics "}, want: "Physics"},
		{name: "level", ne: refdata.NewEntry{Kind: refdata.KindClassLevel, Name: "07"}, want: "7"},
		{name: "level too high", ne: refdata.NewEntry{Kind: refdata.KindClassLevel, Name: "13"}, wantErr: "class level must be between 1 and 12"},
		{name: "level not a number", ne: refdata.NewEntry{Kind: refdata.KindClassLevel, Name: "ten"}, wantErr: "class level must be between 1 and 12"},
		{name: "name conflict", ne: refdata.NewEntry{Kind: refdata.KindSubject, Name: "physics"}, wantErr: refdata.ErrNameConflict.Error()},
		{name: "same name other kind", ne: refdata.NewEntry{Kind: refdata.KindSchool, Name: "Physics"}, want: "Physics"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := env.RefSvc.Create(ctx, tt.ne)
			if tt.wantErr != "" {
				var verr *core.ValidationError
				require.True(t, errors.As(err, &verr), "got %v", err)
				require.Len(t, verr.Fields, 1)
				assert.Equal(t, core.FieldError{Field: "name", Error: tt.wantErr}, verr.Fields[0])
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, e.Name)
			assert.NotEmpty(t, e.ID)
		})
	}

	_, err := env.RefSvc.Create(ctx, refdata.NewEntry{Kind: "planet", Name: "Mars"})
	assert.IsType(t, validator.ValidationErrors{}, err)
}

func TestService_List(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	for _, lvl := range []string{"10", "2", "1"} {
		testutil.CreateEntry(t, env.RefRepo, refdata.KindClassLevel, lvl)
	}
	for _, name := range []string{"Hoan Kiem", "Ba Dinh"} {
		testutil.CreateEntry(t, env.RefRepo, refdata.KindDistrict, name)
	}

	names := func(kind refdata.Kind) []string {
		entries, err := env.RefSvc.List(ctx, kind)
		require.NoError(t, err)
		out := []string{}
		for _, e := range entries {
			out = append(out, e.Name)
		}
		return out
	}
	assert.Equal(t, []string{"1", "2", "10"}, names(refdata.KindClassLevel))
	assert.Equal(t, []string{"Ba Dinh", "Hoan Kiem"}, names(refdata.KindDistrict))
	assert.Empty(t, names(refdata.KindSchool))

	_, err := env.RefSvc.List(ctx, "planet")
	assert.Equal(t, refdata.ErrUnknownKind, err)
}

func TestService_CheckRefs(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	subject := testutil.CreateEntry(t, env.RefRepo, refdata.KindSubject, "Math")

	err := env.RefSvc.CheckRefs(ctx,
		refdata.Ref{Field: "subject_id", Kind: refdata.KindSubject, ID: subject.ID},
		refdata.Ref{Field: "district_id", Kind: refdata.KindDistrict},
	)
	assert.NoError(t, err)

	err = env.RefSvc.CheckRefs(ctx,
		refdata.Ref{Field: "subject_id", Kind: refdata.KindSubject, ID: uuid.New().String()},
		refdata.Ref{Field: "class_level_id", Kind: refdata.KindClassLevel, ID: subject.ID},
		refdata.Ref{Field: "district_id", Kind: refdata.KindDistrict, ID: ""},
	)
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []core.FieldError{
		{Field: "subject_id", Error: "select a valid choice"},
		{Field: "class_level_id", Error: "select a valid choice"},
	}, verr.Fields)

	_, err = env.RefSvc.Get(ctx, refdata.KindSubject, uuid.New().String())
	assert.True(t, core.IsNotFound(err))
}
