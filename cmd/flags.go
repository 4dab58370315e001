package cmd

import (
	"time"

	"github.com/urfave/cli"
)

const DEF_RELOAD_TIMEOUT = 10 * time.Second

var (
	configPath string
	verbosity  int
	logFile    string

	dryRun        bool
	sendUsername  string
	sendEmail     string
	sendDate      string
	reloadTimeout time.Duration
	forceKeygen   bool
)

var globalFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "path of the configuration file",
		EnvVar:      "DAYLOG_CONFIG",
		Destination: &configPath,
	},
	cli.IntFlag{
		Name:        "verbose, v",
		Usage:       "log verbosity (0 warnings, 1 info, 2 debug)",
		Destination: &verbosity,
	},
	cli.StringFlag{
		Name:        "log-file",
		Usage:       "also append log output to this file",
		Destination: &logFile,
	},
}

var runFlags = []cli.Flag{
	cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "print digests to stdout instead of sending them",
		Destination: &dryRun,
	},
}

var sendFlags = []cli.Flag{
	cli.StringFlag{
		Name:        "username, u",
		Usage:       "user to send the digest for (required)",
		Destination: &sendUsername,
	},
	cli.StringFlag{
		Name:        "email, e",
		Usage:       "send to this address instead of the user's",
		Destination: &sendEmail,
	},
	cli.StringFlag{
		Name:        "date, d",
		Usage:       "digest date as YYYY-MM-DD (default: today in the user's timezone)",
		Destination: &sendDate,
	},
	cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "print the digest instead of sending it",
		Destination: &dryRun,
	},
}

var ingestFlags = []cli.Flag{
	cli.BoolFlag{
		Name:        "dry-run",
		Usage:       "parse and verify replies without storing them",
		Destination: &dryRun,
	},
}

var reloadFlags = []cli.Flag{
	cli.DurationFlag{
		Name:        "timeout, t",
		Usage:       "how long to wait for the daemon to acknowledge",
		Value:       DEF_RELOAD_TIMEOUT,
		Destination: &reloadTimeout,
	},
}

var keygenFlags = []cli.Flag{
	cli.BoolFlag{
		Name:        "force, f",
		Usage:       "replace an existing key",
		Destination: &forceKeygen,
	},
}
