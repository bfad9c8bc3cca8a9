package main

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/refdata"
	"github.com/hien-pd-dac/tutorfinder/core/user"
	"github.com/hien-pd-dac/tutorfinder/tests"
)

func setup(t *testing.T) (*commandLine, *testutil.Env) {
	env := testutil.NewEnv(t)
	return &commandLine{
		usrRepo: env.UsrRepo,
		usrSvc:  env.UserSvc,
		refSvc:  env.RefSvc,
		out:     &bytes.Buffer{},
	}, env
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, errors.Cause(err))
			case tt.wantErrStr != "":
				assert.EqualError(t, err, tt.wantErrStr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func mockPassword(pwd string) {
	readPasswordFunc = func(fd int) ([]byte, error) {
		return []byte(pwd), nil
	}
}

func Test_commandLine_usage(t *testing.T) {
	cli, _ := setup(t)
	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
	})
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "purgeinactive")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	migrateFunc = func(db *sqlx.DB, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "reviews", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	})
}

func Test_commandLine_addUser(t *testing.T) {
	cli, env := setup(t)
	ctx := context.Background()
	existing := testutil.CreateUser(t, env.UsrRepo, "kid", "kid@test.test", "old-pwd", user.RoleStudent, false)

	mockPassword("")
	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no email", args: []string{"adduser", "-username", "boss"}, wantErr: errHelp},
		{name: "admin and tutor", args: []string{"adduser", "-username", "boss", "-email", "boss@test.test", "-admin", "-tutor"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "boss", "-email", "boss@test.test"}, wantErr: errHelp},
	})

	mockPassword("S3cret!pwd")
	runCLITests(t, cli, []cliTest{
		{name: "new admin", args: []string{"adduser", "-username", " boss ", "-email", "Boss@Test.test", "-admin"}},
		{name: "new tutor", args: []string{"adduser", "-username", "prof", "-email", "prof@test.test", "-tutor"}},
		{name: "existing user by email", args: []string{"adduser", "-username", "whatever", "-email", "KID@test.test", "-tutor"}},
	})

	boss, err := env.UsrRepo.GetUser(ctx, user.GetFilter{Username: "boss"})
	require.NoError(t, err)
	assert.Equal(t, "boss@test.test", boss.Email)
	assert.Equal(t, user.RoleAdmin, boss.Role)
	assert.True(t, boss.IsActive())
	assert.NoError(t, boss.CheckPassword("S3cret!pwd"))

	prof, err := env.UsrRepo.GetUser(ctx, user.GetFilter{Username: "prof"})
	require.NoError(t, err)
	assert.Equal(t, user.RoleTutor, prof.Role)

	kid, err := env.UsrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.Equal(t, "kid", kid.Username)
	assert.Equal(t, user.RoleTutor, kid.Role)
	assert.True(t, kid.IsActive())
	assert.NoError(t, kid.CheckPassword("S3cret!pwd"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, env := setup(t)
	usr := testutil.CreateUser(t, env.UsrRepo, "awe", "awe@test.cd", "mdr", user.RoleStudent, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)
		pwd := ""
		if e, ok := tt.extra.(extra); ok {
			pwd = e.pwd
		}
		mockPassword(pwd)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			refreshedUsr, err := env.UsrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
			require.NoError(t, err)
			assert.NoError(t, refreshedUsr.CheckPassword(pwd))
		})
	}
}

func Test_commandLine_addRef(t *testing.T) {
	cli, env := setup(t)
	testutil.CreateEntry(t, env.RefRepo, refdata.KindSubject, "Math")

	runCLITests(t, cli, []cliTest{
		{name: "no args", args: []string{"addref"}, wantErr: errHelp},
		{name: "no name", args: []string{"addref", "-kind", "subject"}, wantErr: errHelp},
		{name: "district", args: []string{"addref", "-kind", "district", "-name", "Ba Dinh"}},
		{name: "class level", args: []string{"addref", "-kind", "class_level", "-name", "07"}},
	})

	err := cli.run([]string{"admin", "addref", "-kind", "class_level", "-name", "13"})
	var verr *core.ValidationError
	assert.True(t, errors.As(err, &verr), "got %v", err)

	err = cli.run([]string{"admin", "addref", "-kind", "subject", "-name", "math"})
	assert.True(t, errors.As(err, &verr), "got %v", err)

	err = cli.run([]string{"admin", "addref", "-kind", "planet", "-name", "Mars"})
	assert.Error(t, err)

	levels, err := env.RefSvc.List(context.Background(), refdata.KindClassLevel)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, "7", levels[0].Name)
}

func Test_commandLine_purgeInactive(t *testing.T) {
	cli, env := setup(t)
	ctx := context.Background()
	old := time.Now().Add(-env.Conf.ActivationTimeoutDelta - time.Hour)

	stale := testutil.CreateUser(t, env.UsrRepo, "stale", "stale@test.test", "", user.RoleStudent, false, old)
	fresh := testutil.CreateUser(t, env.UsrRepo, "fresh", "fresh@test.test", "", user.RoleStudent, false)
	active := testutil.CreateUser(t, env.UsrRepo, "active", "active@test.test", "", user.RoleTutor, true, old)

	runCLITests(t, cli, []cliTest{{name: "purge", args: []string{"purgeinactive"}}})
	assert.Contains(t, cli.out.(*bytes.Buffer).String(), "purged 1 inactive users")

	_, err := env.UsrRepo.GetUser(ctx, user.GetFilter{ID: stale.ID})
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	for _, id := range []string{fresh.ID, active.ID} {
		_, err = env.UsrRepo.GetUser(ctx, user.GetFilter{ID: id})
		assert.NoError(t, err)
	}
}
