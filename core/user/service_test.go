package user_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	"github.com/hien-pd-dac/tutorfinder/tests"
)

const strongPwd = "Str0ng!Pwd#42"

func strPtr(s string) *string { return &s }

func TestNewUser_Validate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	testutil.CreateUser(t, env.UsrRepo, "taken", "taken@test.test", "", user.RoleStudent, true)

	tests := []struct {
		name       string
		nu         user.NewUser
		wantFields []string
	}{
		{name: "empty", nu: user.NewUser{}, wantFields: []string{"username", "email", "password", "password_confirm"}},
		{name: "bad email", nu: user.NewUser{Username: "kid", Email: "lol", Password: strongPwd, PasswordConfirm: strongPwd}, wantFields: []string{"email"}},
		{name: "mismatch", nu: user.NewUser{Username: "kid", Email: "kid@test.test", Password: strongPwd, PasswordConfirm: "other"}, wantFields: []string{"password_confirm"}},
		{name: "taken username", nu: user.NewUser{Username: "taken", Email: "kid@test.test", Password: strongPwd, PasswordConfirm: strongPwd}, wantFields: []string{"username"}},
		{name: "taken email", nu: user.NewUser{Username: "kid", Email: " TAKEN@test.test ", Password: strongPwd, PasswordConfirm: strongPwd}, wantFields: []string{"email"}},
		{name: "valid", nu: user.NewUser{Username: " kid ", Email: "Kid@Test.test", Password: strongPwd, PasswordConfirm: strongPwd}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(ctx, env.Validate, env.UserSvc)
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				assert.Equal(t, "kid", tt.nu.Username)
				assert.Equal(t, "kid@test.test", tt.nu.Email)
				return
			}
			require.Error(t, err)

			var got []string
			var verrs validator.ValidationErrors
			var verr *core.ValidationError
			switch {
			case errors.As(err, &verrs):
				for _, fe := range verrs {
					got = append(got, fe.Field())
				}
			case errors.As(err, &verr):
				for _, fe := range verr.Fields {
					got = append(got, fe.Field)
				}
			default:
				t.Fatalf("unexpected error type %T: %v", err, err)
			}
			for _, f := range tt.wantFields {
				assert.Contains(t, got, f)
			}
		})
	}
}

func TestService_RegisterActivate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	usr, err := env.UserSvc.Register(ctx, user.NewUser{Username: "prof", Email: "prof@test.test", Password: strongPwd, IsTutor: true})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTutor, usr.Role)
	assert.Equal(t, user.StatusPending, usr.Status)
	assert.Equal(t, user.DefaultPicture, usr.Picture)
	assert.NoError(t, usr.CheckPassword(strongPwd))

	sent := env.Mail.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "prof@test.test", sent[0].To[0].Address)
	data, ok := sent[0].TemplateData.(map[string]interface{})
	require.True(t, ok)
	uid := data["UID"].(string)
	token := data["Token"].(string)
	assert.Equal(t, user.EncodeUID(usr), uid)

	_, err = env.UserSvc.Authenticate(ctx, "prof", strongPwd)
	assert.Equal(t, user.ErrAccountInactive, errors.Cause(err))

	for name, args := range map[string][2]string{
		"garbage uid":  {"lol", token},
		"unknown user": {user.EncodeUID(user.User{ID: "9b2b7c0e-0a52-4a53-8f3c-0d1a6f3f2b10"}), token},
		"bad token":    {uid, "1-abc"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := env.UserSvc.Activate(ctx, args[0], args[1])
			assert.Equal(t, user.ErrInvalidToken, err)
		})
	}

	activated, err := env.UserSvc.Activate(ctx, uid, token)
	require.NoError(t, err)
	assert.True(t, activated.IsActive())
	assert.True(t, activated.LastLogin.Valid)

	// the token hashes the status and last login, so it only works once
	_, err = env.UserSvc.Activate(ctx, uid, token)
	assert.Equal(t, user.ErrInvalidToken, err)
}

func TestService_Authenticate(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", strongPwd, user.RoleStudent, true)

	_, err := env.UserSvc.Authenticate(ctx, "nobody", strongPwd)
	assert.Equal(t, user.ErrUnknownUser, err)

	_, err = env.UserSvc.Authenticate(ctx, "kid", "wrong")
	assert.Equal(t, user.ErrBadCredentials, err)

	logged, err := env.UserSvc.Authenticate(ctx, " kid ", strongPwd)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, logged.ID)
	require.True(t, logged.LastLogin.Valid)
	assert.WithinDuration(t, time.Now(), logged.LastLogin.Time, time.Minute)
}

func TestService_GetByID(t *testing.T) {
	env := testutil.NewEnv(t)
	usr := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)

	got, err := env.UserSvc.GetByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.Equal(t, usr.Username, got.Username)

	_, err = env.UserSvc.GetByID(context.Background(), "lol")
	assert.True(t, core.IsNotFound(err))
}

func TestService_EditProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	other := testutil.CreateUser(t, env.UsrRepo, "other", "other@test.test", "", user.RoleStudent, true)
	district := testutil.CreateEntry(t, env.RefRepo, refdata.KindDistrict, "Ba Dinh")

	_, err := env.UserSvc.EditProfile(ctx, other, usr.ID, user.UpdateProfile{FirstName: strPtr("x")})
	assert.True(t, core.IsPermissionDenied(err))

	_, err = env.UserSvc.EditProfile(ctx, usr, usr.ID, user.UpdateProfile{Email: strPtr("OTHER@test.test")})
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "email", verr.Fields[0].Field)

	_, err = env.UserSvc.EditProfile(ctx, usr, usr.ID, user.UpdateProfile{DistrictID: strPtr("9b2b7c0e-0a52-4a53-8f3c-0d1a6f3f2b10")})
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, "district_id", verr.Fields[0].Field)

	_, err = env.UserSvc.EditProfile(ctx, usr, usr.ID, user.UpdateProfile{Gender: strPtr("X")})
	assert.IsType(t, validator.ValidationErrors{}, err)

	edited, err := env.UserSvc.EditProfile(ctx, usr, usr.ID, user.UpdateProfile{
		FirstName:   strPtr(" Nam "),
		Email:       strPtr("kid@test.test"),
		DateOfBirth: strPtr("2008-05-01"),
		Gender:      strPtr("M"),
		DistrictID:  strPtr(district.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, "Nam", edited.FirstName)
	assert.Equal(t, district.ID, edited.DistrictID.String)
	assert.Equal(t, 2008, edited.DateOfBirth.Time.Year())

	cleared, err := env.UserSvc.EditProfile(ctx, usr, usr.ID, user.UpdateProfile{DistrictID: strPtr(""), DateOfBirth: strPtr("")})
	require.NoError(t, err)
	assert.False(t, cleared.DistrictID.Valid)
	assert.False(t, cleared.DateOfBirth.Valid)
	assert.Equal(t, "Nam", cleared.FirstName)
}

func TestService_SetPicture(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	usr := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "", user.RoleStudent, true)
	other := testutil.CreateUser(t, env.UsrRepo, "other", "other@test.test", "", user.RoleStudent, true)

	_, err := env.UserSvc.SetPicture(ctx, other, usr.ID, "me.png", bytes.NewReader([]byte("png")))
	assert.True(t, core.IsPermissionDenied(err))

	_, err = env.UserSvc.SetPicture(ctx, usr, usr.ID, "me.svg", bytes.NewReader([]byte("svg")))
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr))

	updated, err := env.UserSvc.SetPicture(ctx, usr, usr.ID, "Me.JPG", bytes.NewReader([]byte("jpg")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(updated.Picture, "profile_pic/"+usr.ID), updated.Picture)
	assert.True(t, strings.HasSuffix(updated.Picture, ".jpg"), updated.Picture)
}

func TestService_PurgeInactive(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	old := time.Now().Add(-env.Conf.ActivationTimeoutDelta - time.Minute)

	stale := testutil.CreateUser(t, env.UsrRepo, "stale", "stale@test.test", "", user.RoleStudent, false, old)
	fresh := testutil.CreateUser(t, env.UsrRepo, "fresh", "fresh@test.test", "", user.RoleStudent, false)
	veteran := testutil.CreateUser(t, env.UsrRepo, "veteran", "veteran@test.test", "", user.RoleStudent, true, old)

	n, err := env.UserSvc.PurgeInactive(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = env.UserSvc.GetByID(ctx, stale.ID)
	assert.True(t, core.IsNotFound(err))
	for _, id := range []string{fresh.ID, veteran.ID} {
		_, err = env.UserSvc.GetByID(ctx, id)
		assert.NoError(t, err)
	}
}

func TestParseAudience(t *testing.T) {
	tests := map[string]user.Audience{
		"":          user.AudienceAll,
		"all":       user.AudienceAll,
		" Tutor ":   user.AudienceTutor,
		"STUDENT":   user.AudienceStudent,
		"nonsense":  user.AudienceAll,
		"tutor,all": user.AudienceAll,
	}
	for in, want := range tests {
		assert.Equal(t, want, user.ParseAudience(in), in)
	}
	assert.Equal(t, user.RoleTutor, user.AudienceTutor.Role())
	assert.Empty(t, user.AudienceAll.Role())
}
