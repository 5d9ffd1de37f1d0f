package main

import (
	"context"
	"fmt"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/onboardhr/onboarding/internal/logging"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:                  "onboardctl",
		EnableShellCompletion: true,
		Usage:                 "Drive employee onboarding steps against the portal API",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "Base URL of the onboarding portal",
				Value:   "http://localhost:8080",
				Sources: cli.EnvVars("ONBOARD_API_URL"),
			},
			&cli.StringFlag{
				Name:    "state-db",
				Usage:   "SQLite file holding the signed-in session and HR selection",
				Value:   "onboarding_client.db",
				Sources: cli.EnvVars("ONBOARD_STATE_DB"),
			},
			&cli.IntFlag{
				Name:    "reset-index",
				Usage:   "Current step index after the step list is reset",
				Value:   1,
				Sources: cli.EnvVars("ONBOARD_RESET_INDEX"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			logging.Setup(command.String("log-level"))
			return ctx, nil
		},
		Commands: []*cli.Command{
			newLoginCommand(),
			newLogoutCommand(),
			newWhoamiCommand(),
			newStepsCommand(),
			newCompleteCommand(),
			newFailCommand(),
			newApproveCommand(),
			newCandidatesCommand(),
			newSelectCommand(),
			newSyncCommand(),
			newProgressCommand(),
			newNotificationsCommand(),
			newUploadCommand(),
			newWatchCommand(),
			newHealthCommand(),
		},
	}
}
