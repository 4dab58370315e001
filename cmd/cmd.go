// Package cmd implements the daylog command line.
package cmd

import (
	"fmt"
	"runtime"

	"github.com/urfave/cli"

	"github.com/daylog/daylog/cmd/common"
)

type BuildArgs struct {
	Version   string
	BuildType string
	Date      string
	Commit    string
}

var currentBuildArgs BuildArgs

func Execute(args []string, bArgs BuildArgs) error {
	currentBuildArgs = bArgs
	return newApp(bArgs).Run(args)
}

func newApp(bArgs BuildArgs) *cli.App {
	app := &cli.App{
		Name:                  "daylog",
		HelpName:              "daylog",
		Usage:                 "A daily email journal.",
		Version:               fmt.Sprintf("%s-%s", bArgs.Version, bArgs.BuildType),
		UsageText:             "daylog [global options] <command> [arguments...]",
		Description:           DESCRIPTION,
		CustomAppHelpTemplate: HELP_TEMPL,
		OnUsageError:          common.UsageErrorCallback,
		Flags:                 globalFlags,
		Commands: []cli.Command{
			{
				Name:               "run",
				Usage:              "run the scheduler daemon",
				Description:        RunDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             run,
				Flags:              runFlags,
			},
			{
				Name:               "send",
				Usage:              "send one digest now",
				Description:        SendDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             send,
				Flags:              sendFlags,
			},
			{
				Name:               "ingest",
				Usage:              "store replies from the incoming mailbox",
				Description:        IngestDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             ingestMail,
				Flags:              ingestFlags,
			},
			{
				Name:               "deliver",
				Usage:              "deliver a message from stdin to the maildir",
				Description:        DeliverDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             deliver,
			},
			{
				Name:               "reload",
				Usage:              "make the daemon re-read its users",
				Description:        ReloadDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             reload,
				Flags:              reloadFlags,
			},
			{
				Name:               "stop",
				Usage:              "stop the daemon",
				Description:        StopDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             stop,
			},
			{
				Name:               "schedule",
				Aliases:            []string{"s"},
				Usage:              "show upcoming wake targets",
				Description:        ScheduleDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             schedule,
			},
			{
				Name:  "user",
				Usage: "manage users",
				Subcommands: []cli.Command{
					{
						Name:               "add",
						Usage:              "add or update a user",
						UsageText:          "user add <username> <email> <timezone> <HH:MM>",
						Description:        UserAddDescription,
						CustomHelpTemplate: CMD_HELP_TEMPL,
						OnUsageError:       common.UsageErrorCallback,
						Action:             userAdd,
					},
					{
						Name:         "list",
						Aliases:      []string{"l"},
						Usage:        "list users",
						OnUsageError: common.UsageErrorCallback,
						Action:       userList,
					},
					{
						Name:         "remove",
						Aliases:      []string{"rm"},
						Usage:        "remove a user",
						UsageText:    "user remove <username>",
						OnUsageError: common.UsageErrorCallback,
						Action:       userRemove,
					},
				},
			},
			{
				Name:               "keygen",
				Usage:              "create the message id secret key",
				Description:        KeygenDescription,
				CustomHelpTemplate: CMD_HELP_TEMPL,
				OnUsageError:       common.UsageErrorCallback,
				Action:             keygen,
				Flags:              keygenFlags,
			},
			{
				Name:    "help",
				Aliases: []string{"h"},
				Usage:   "prints the help message",
				Action:  common.Help,
			},
			{
				Name:               "version",
				Usage:              "prints installed version of daylog",
				UsageText:          " ",
				CustomHelpTemplate: CMD_HELP_TEMPL,
				Action:             common.GetVersion,
			},
		},
		Action:      common.Help,
		HideHelp:    true,
		HideVersion: true,
	}
	common.VersionCmdStr = fmt.Sprintf("%s %s (%s_%s)\nBuild: %s=%s\n",
		app.Name,
		app.Version,
		runtime.GOOS,
		runtime.GOARCH,
		bArgs.Date, bArgs.Commit,
	)
	return app
}
