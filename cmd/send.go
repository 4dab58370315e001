package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/daylog/daylog/cmd/common"
	"github.com/daylog/daylog/internal/store"
)

func send(ctx *cli.Context) error {
	if sendUsername == "" {
		return common.PrintErrWithCmdHelp(ctx, errors.New("--username is required"))
	}
	var date time.Time
	if sendDate != "" {
		var err error
		date, err = time.Parse(store.DateLayout, sendDate)
		if err != nil {
			return common.PrintErrWithCmdHelp(ctx, fmt.Errorf("--date: %w", err))
		}
	}
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
	codec, err := newCodec(cfg)
	if err != nil {
		return err
	}
	u, err := st.User(bg, sendUsername)
	if err != nil {
		return err
	}
	if sendEmail != "" {
		u.Email = sendEmail
	}
	d := newDispatcher(cfg, st, codec, dryRun, l)
	if date.IsZero() {
		err = d.Send(bg, u)
	} else {
		err = d.SendFor(bg, u, date)
	}
	if err != nil {
		return fmt.Errorf("send to %s: %w", u.Username, err)
	}
	if !dryRun {
		fmt.Fprintf(stdout, "Digest sent to %s.\n", u.Email)
	}
	return nil
}
