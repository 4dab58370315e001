package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/mail"

	"github.com/urfave/cli"

	"github.com/daylog/daylog/cmd/common"
	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/internal/store"
	"github.com/daylog/daylog/pkg/logger"
)

func userAdd(ctx *cli.Context) error {
	args := ctx.Args()
	if len(args) != 4 {
		return common.PrintErrWithCmdHelp(ctx, errors.New("expected <username> <email> <timezone> <HH:MM>"))
	}
	if _, err := mail.ParseAddress(args[1]); err != nil {
		return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("email %q: %w", args[1], err))
	}
	u, err := store.NewUser(args[0], args[1], args[2], args[3])
	if err != nil {
		return common.PrintErrWithCmdHelp(ctx, err)
	}
	return withStore(func(bg context.Context, cfg *config.Config, st *store.SQLite, l logger.Logger) error {
		if err := st.PutUser(bg, u); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Saved %s: %s at %s %s.\n", u.Username, u.Email, u.SendTime, u.Timezone)
		notifyDaemon(cfg, l)
		return nil
	})
}

func userRemove(ctx *cli.Context) error {
	username := ctx.Args().First()
	if username == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("no username provided"))
	}
	return withStore(func(bg context.Context, cfg *config.Config, st *store.SQLite, l logger.Logger) error {
		if err := st.RemoveUser(bg, username); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Removed %s.\n", username)
		notifyDaemon(cfg, l)
		return nil
	})
}

func userList(ctx *cli.Context) error {
	return withStore(func(bg context.Context, _ *config.Config, st *store.SQLite, _ logger.Logger) error {
		users, err := st.LoadUsers(bg)
		if err != nil {
			return err
		}
		if len(users) == 0 {
			fmt.Fprintln(stdout, "No users.")
			return nil
		}
		fmt.Fprintf(stdout, "%s %s %s %s\n",
			common.Pad("Username", 16), common.Pad("Email", 32), common.Beaut("Time", 5), "Timezone")
		for _, u := range users {
			fmt.Fprintf(stdout, "%s %s %s %s\n",
				common.Pad(u.Username, 16), common.Pad(u.Email, 32), u.SendTime, u.Timezone)
		}
		return nil
	})
}

// withStore loads the config, a logger and the store, and runs fn with them.
func withStore(fn func(context.Context, *config.Config, *store.SQLite, logger.Logger) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()
	bg := context.Background()
	st, err := openStore(bg, cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(bg, cfg, st, l)
}
