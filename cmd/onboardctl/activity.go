package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"
	"time"

	cli "github.com/urfave/cli/v3"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
	portalmodel "github.com/onboardhr/onboarding/internal/portal/model"
	"github.com/onboardhr/onboarding/internal/realtime"
	"github.com/onboardhr/onboarding/internal/session"
)

func newNotificationsCommand() *cli.Command {
	return &cli.Command{
		Name:    "notifications",
		Aliases: []string{"inbox"},
		Usage:   "List, mark read or clear notifications",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "read",
				Usage: "Mark the notification with this id as read",
			},
			&cli.BoolFlag{
				Name:  "clear",
				Usage: "Delete every notification",
			},
		},
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			if command.Bool("clear") {
				c.session.ClearNotifications(ctx)
				c.printf("notifications cleared\n")
				return nil
			}
			if id := command.String("read"); id != "" {
				if !c.session.MarkNotificationRead(ctx, id) {
					return fmt.Errorf("notification %s not found", id)
				}
			}

			list := c.session.Notifications()
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tTYPE\tWHEN\tTITLE\tMESSAGE")
			for _, n := range list {
				marker := ""
				if !n.Read {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					marker, n.ID, n.Type, n.Timestamp.Local().Format(time.DateTime), n.Title, n.Message)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			c.printf("%d unread\n", c.session.UnreadNotifications())
			return nil
		}),
	}
}

func newUploadCommand() *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "Upload a document for the current subject",
		ArgsUsage: "<file>",
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			if command.Args().Len() != 1 {
				return fmt.Errorf("expected exactly one file")
			}
			path := command.Args().First()
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", path, err)
			}
			defer f.Close()

			upload, err := c.session.UploadDocument(ctx, filepath.Base(path), f)
			if err != nil {
				return err
			}
			c.printf("uploaded %s (%d bytes) as %s\n", upload.FileName, upload.FileSize, upload.StorageRef)
			return nil
		}),
	}
}

func newWatchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Stream step updates as they happen",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "for",
				Usage: "Stop after this long (0 streams until interrupted)",
			},
		},
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			token, err := c.state.Get(ctx, session.KeyAuthToken)
			if err != nil {
				return err
			}
			streamURL, err := realtime.StreamURL(c.apiURL)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			if d := command.Duration("for"); d > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, d)
				defer cancel()
			}

			c.printf("watching %s as %s\n", streamURL, actor.Email)
			return realtime.Watch(ctx, streamURL, token, func(event portalmodel.StepEvent) {
				c.printf("%s candidate %d %s -> %s (%d%%)\n",
					event.At.Local().Format(time.TimeOnly), event.CandidateID, event.StepID, event.Status, event.Progress)
			})
		}),
	}
}
