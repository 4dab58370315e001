package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/urfave/cli"

	"github.com/daylog/daylog/internal/mailsource"
)

var errDeliverNeedsMaildir = errors.New("deliver needs incoming_mail.maildir")

func deliver(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	if cfg.IncomingMail.Maildir == nil {
		return errDeliverNeedsMaildir
	}
	raw, err := io.ReadAll(stdin)
	if err != nil {
		return fmt.Errorf("read message: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("empty message on stdin")
	}
	key, err := mailsource.NewMaildir(appFs, cfg.IncomingMail.Maildir.Path).Deliver(raw)
	if err != nil {
		return err
	}
	l.Info("delivered %s", key)
	return nil
}
