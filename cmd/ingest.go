package cmd

import (
	"context"
	"fmt"

	"github.com/urfave/cli"

	"github.com/daylog/daylog/internal/ingest"
)

func ingestMail(ctx *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	l, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer l.Close()

	src, err := newMailSource(cfg)
	if err != nil {
		return err
	}
	bg := context.Background()
	st, err := openStore(bg, cfg)
	if err != nil {
		src.Close()
		return err
	}
	defer st.Close()
	codec, err := newCodec(cfg)
	if err != nil {
		src.Close()
		return err
	}
	stats, err := ingest.New(codec, st, l, dryRun).Run(bg, src)
	fmt.Fprintf(stdout, "%d messages: %d stored, %d empty, %d foreign, %d rejected, %d failed\n",
		stats.Seen, stats.Stored, stats.Empty, stats.Foreign, stats.Rejected, stats.Failed)
	return err
}
