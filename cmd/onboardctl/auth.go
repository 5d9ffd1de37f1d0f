package main

import (
	"context"
	"fmt"

	cli "github.com/urfave/cli/v3"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
)

func newLoginCommand() *cli.Command {
	return &cli.Command{
		Name:  "login",
		Usage: "Sign in and remember the session in the state database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "email",
				Usage:    "Account email",
				Required: true,
				Sources:  cli.EnvVars("ONBOARD_EMAIL"),
			},
			&cli.StringFlag{
				Name:     "password",
				Usage:    "Account password",
				Required: true,
				Sources:  cli.EnvVars("ONBOARD_PASSWORD"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			c, err := openClient(command)
			if err != nil {
				return err
			}
			defer c.close()

			actor, err := c.session.Login(ctx, command.String("email"), command.String("password"))
			if err != nil {
				return fmt.Errorf("login failed: %w", err)
			}
			c.printf("signed in as %s (%s)\n", actor.Email, actor.Role)
			return nil
		},
	}
}

func newLogoutCommand() *cli.Command {
	return &cli.Command{
		Name:  "logout",
		Usage: "Forget the stored session and HR selection",
		Action: func(ctx context.Context, command *cli.Command) error {
			c, err := openClient(command)
			if err != nil {
				return err
			}
			defer c.close()

			if err := c.session.Logout(ctx); err != nil {
				return err
			}
			c.printf("signed out\n")
			return nil
		},
	}
}

func newWhoamiCommand() *cli.Command {
	return &cli.Command{
		Name:  "whoami",
		Usage: "Show the signed-in account",
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			c.printf("%s <%s> role=%s id=%s\n", actor.Name(), actor.Email, actor.Role, actor.ID)
			if candidate, ok := c.session.Selection().Candidate(); ok {
				c.printf("selected candidate %s\n", candidate.ID)
			}
			return nil
		}),
	}
}

func newHealthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check that the portal is reachable",
		Action: func(ctx context.Context, command *cli.Command) error {
			c, err := openClient(command)
			if err != nil {
				return err
			}
			defer c.close()

			if err := c.session.Health(ctx); err != nil {
				return fmt.Errorf("portal at %s is unhealthy: %w", c.apiURL, err)
			}
			c.printf("ok\n")
			return nil
		},
	}
}
