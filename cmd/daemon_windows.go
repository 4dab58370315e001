//go:build windows

package cmd

import (
	"errors"

	"github.com/urfave/cli"

	"github.com/daylog/daylog/internal/config"
	"github.com/daylog/daylog/pkg/logger"
)

var errUnsupported = errors.New("the daylog daemon needs a unix system")

func run(ctx *cli.Context) error    { return errUnsupported }
func reload(ctx *cli.Context) error { return errUnsupported }
func stop(ctx *cli.Context) error   { return errUnsupported }

func notifyDaemon(*config.Config, logger.Logger) {}
