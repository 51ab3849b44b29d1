package main

import (
	"context"
	"fmt"
	"time"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/user"
)

// addUser updates or creates an active user.User
func (cli *commandLine) addUser(name, email, role, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)
	role = core.CleanString(role, true /* lower */)
	if !user.IsValidRole(role) {
		return fmt.Errorf("invalid role %q", role)
	}

	usr, err := cli.usrRepo.GetUserByEmail(ctx, email)
	exists := err == nil
	if err != nil && !core.IsNotFound(err) {
		return err
	}

	now := time.Now().UTC()
	if !exists {
		usr = user.User{Email: email, CreatedAt: now}
	}
	usr.Name = name
	usr.Role = role
	usr.IsActive = true
	usr.UpdatedAt = now
	if err = usr.SetPassword(pwd); err != nil {
		return err
	}

	if exists {
		_, err = cli.usrRepo.UpdateUser(ctx, usr)
	} else {
		_, err = cli.usrRepo.CreateUser(ctx, usr)
	}
	return err
}
