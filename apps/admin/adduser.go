package main

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/hien-pd-dac/tutorfinder/core"
	"github.com/hien-pd-dac/tutorfinder/core/user"
)

// addUser updates or creates an active user.User with the given role
func (cli *commandLine) addUser(uname, email, pwd string, role user.Role) error {
	ctx := context.Background()
	uname = core.CleanString(uname)
	email = core.CleanString(email, true /* lower */)

	usr, err := cli.usrRepo.GetUser(ctx, user.GetFilter{UsernameOrEmail: []string{uname, email}})
	exists := err == nil
	if err != nil && errors.Cause(err) != user.ErrNotFound {
		return err
	}

	now := time.Now().UTC()
	if !exists {
		usr = user.User{
			ID:        uuid.New().String(),
			Username:  uname,
			Email:     email,
			Picture:   user.DefaultPicture,
			CreatedAt: now,
		}
	}
	usr.Role = role
	usr.Status = user.StatusActive
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
		cli.printf("updated user %s (%s)\n", usr.Username, usr.Role)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
		cli.printf("created user %s (%s)\n", usr.Username, usr.Role)
	}
	return err
}
