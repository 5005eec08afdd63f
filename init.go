package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/wansing/mvv/core"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// initViewer performs the init commands. It has all roles.
var initViewer = &core.Viewer{Name: "init", Roles: core.AllRoles}

type initCommand struct {
	insert bool
	join   bool
	grant  bool
	role   string
	user   string
	group  string
	email  string
	client int64
}

func (cmd *initCommand) register(fs *flag.FlagSet) {
	fs.BoolVar(&cmd.insert, "insert", false, "creates the given group or user")
	fs.BoolVar(&cmd.join, "join", false, "joins the given user to the given group")
	fs.BoolVar(&cmd.grant, "grant", false, "adds the given roles to the given group or user")
	fs.StringVar(&cmd.role, "role", "", "comma-separated `roles`: read, write, client, admin, superuser")
	fs.StringVar(&cmd.user, "user", "", "specifies a user `name`")
	fs.StringVar(&cmd.group, "group", "", "specifies a group `name`")
	fs.StringVar(&cmd.email, "email", "", "email `address` of a new user, used for OAuth2 login")
	fs.Int64Var(&cmd.client, "client", 0, "links a new user to the client with this `id`")
}

// A passwordReader asks for a password.
type passwordReader func(prompt string) ([]byte, error)

func readPassword(prompt string) ([]byte, error) {
	fmt.Print(prompt)
	defer fmt.Println()
	return term.ReadPassword(int(os.Stdin.Fd()))
}

func (cmd *initCommand) run(ctx context.Context, db *core.CoreDB, log *zap.Logger, readPassword passwordReader) error {
	switch {
	case cmd.insert:
		if cmd.group != "" {
			if _, err := db.InsertGroup(ctx, cmd.group); err != nil {
				return fmt.Errorf("error creating group %s: %w", cmd.group, err)
			}
			log.Info("created group", zap.String("group", cmd.group))
		}
		if cmd.user != "" {
			if err := cmd.insertUser(ctx, db, readPassword); err != nil {
				return err
			}
			log.Info("created user", zap.String("user", cmd.user))
		}
	case cmd.join:
		if cmd.group == "" || cmd.user == "" {
			return errors.New("join requires -group and -user")
		}
		group, err := db.GetGroupByName(ctx, cmd.group)
		if err != nil {
			return fmt.Errorf("error getting group %s: %w", cmd.group, err)
		}
		user, err := db.GetUserByName(ctx, cmd.user)
		if err != nil {
			return fmt.Errorf("error getting user %s: %w", cmd.user, err)
		}
		if err := db.Join(ctx, initViewer, group, user); err != nil {
			return fmt.Errorf("error joining: %w", err)
		}
		log.Info("joined", zap.String("user", cmd.user), zap.String("group", cmd.group))
	case cmd.grant:
		roles, err := core.ParseRole(cmd.role)
		if err != nil {
			return err
		}
		if roles == 0 {
			return errors.New("grant requires -role")
		}
		if cmd.group != "" {
			group, err := db.GetGroupByName(ctx, cmd.group)
			if err != nil {
				return fmt.Errorf("error getting group %s: %w", cmd.group, err)
			}
			if err := db.SetGroupRoles(ctx, initViewer, group, group.Roles()|roles); err != nil {
				return fmt.Errorf("error granting roles: %w", err)
			}
			log.Info("granted roles", zap.String("group", cmd.group), zap.Stringer("roles", roles))
		}
		if cmd.user != "" {
			user, err := db.GetUserByName(ctx, cmd.user)
			if err != nil {
				return fmt.Errorf("error getting user %s: %w", cmd.user, err)
			}
			if err := db.SetRoles(ctx, initViewer, user, user.Roles()|roles); err != nil {
				return fmt.Errorf("error granting roles: %w", err)
			}
			log.Info("granted roles", zap.String("user", cmd.user), zap.Stringer("roles", roles))
		}
	default:
		return errors.New("nothing to do, use -insert, -join or -grant")
	}
	return nil
}

func (cmd *initCommand) insertUser(ctx context.Context, db *core.CoreDB, readPassword passwordReader) error {

	pass1, err := readPassword(fmt.Sprintf("password for user %s: ", cmd.user))
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}

	pass2, err := readPassword("repeat password: ")
	if err != nil {
		return fmt.Errorf("error reading password: %w", err)
	}

	if !bytes.Equal(pass1, pass2) {
		return errors.New("passwords don't match")
	}

	if len(bytes.TrimSpace(pass1)) == 0 {
		return core.ErrEmptyPassword
	}

	user, err := db.InsertUser(ctx, cmd.user, cmd.email, cmd.client)
	if err != nil {
		return fmt.Errorf("error creating user %s: %w", cmd.user, err)
	}

	if err := db.SetPassword(ctx, initViewer, user, string(pass1)); err != nil {
		return fmt.Errorf("error setting password: %w", err)
	}

	return nil
}
