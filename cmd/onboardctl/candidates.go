package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"

	"github.com/onboardhr/onboarding/internal/onboarding/identity"
	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/remote"
)

func newCandidatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "candidates",
		Usage: "List candidates (HR)",
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			candidates, err := c.session.Candidates(ctx)
			if err != nil {
				return err
			}

			selected := c.session.Selection().Raw()
			tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "\tID\tNAME\tEMAIL\tPOSITION\tSTATUS\tPROGRESS")
			for _, cand := range candidates {
				marker := ""
				if fmt.Sprint(cand.ID) == selected {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\t%d%%\n",
					marker, cand.ID, summaryName(cand), cand.Email, cand.Position, cand.Status, cand.Progress)
			}
			return tw.Flush()
		}),
	}
}

func newSelectCommand() *cli.Command {
	return &cli.Command{
		Name:      "select",
		Usage:     "Choose the candidate HR actions apply to",
		ArgsUsage: "<candidate-id>",
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			id, err := candidateArg(command)
			if err != nil {
				return err
			}

			summary, err := c.session.Candidate(ctx, id)
			if err != nil {
				var syncErr *model.RemoteSyncError
				if errors.As(err, &syncErr) && syncErr.StatusCode == http.StatusNotFound {
					return fmt.Errorf("candidate %s not found", id)
				}
				return err
			}

			if err := c.session.SelectCandidate(ctx, selectedFrom(*summary)); err != nil {
				return err
			}
			c.printf("selected %s (%s)\n", summaryName(*summary), summary.Email)
			printSteps(c, c.session.Steps())
			return nil
		}),
	}
}

func newSyncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Reload steps if another session changed the HR selection",
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			changed, err := c.session.SyncSelection(ctx)
			if err != nil {
				return err
			}
			if !changed {
				c.printf("selection unchanged\n")
				return nil
			}
			c.printf("selection changed\n")
			printSteps(c, c.session.Steps())
			return nil
		}),
	}
}

func newProgressCommand() *cli.Command {
	return &cli.Command{
		Name:      "progress",
		Usage:     "Override a candidate's progress or status (HR)",
		ArgsUsage: "<candidate-id>",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "percent",
				Usage: "Progress percentage, 0 to 100",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Candidate status (pending, active, completed, rejected)",
			},
		},
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			id, err := candidateArg(command)
			if err != nil {
				return err
			}

			var update remote.ProgressUpdate
			if command.IsSet("percent") {
				percent := int(command.Int("percent"))
				update.Progress = &percent
			}
			update.Status = command.String("status")
			if update.Progress == nil && update.Status == "" {
				return fmt.Errorf("nothing to update; pass --percent or --status")
			}

			summary, err := c.session.UpdateCandidateProgress(ctx, id, update)
			if err != nil {
				return err
			}
			c.printf("candidate %d: %s %d%%\n", summary.ID, summary.Status, summary.Progress)
			return nil
		}),
	}
}

// hydrateSelection fills the restored selection with the candidate's name and
// position so HR approvals carry them.
func hydrateSelection(ctx context.Context, c *client) {
	selected, ok := c.session.Selection().Candidate()
	if !ok || selected.Name != "" {
		return
	}
	summary, err := c.session.Candidate(ctx, selected.ID)
	if err != nil {
		slog.DebugContext(ctx, "candidate details unavailable", "candidate_id", selected.ID, "error", err)
		return
	}
	c.session.Selection().Set(selectedFrom(*summary))
}

func selectedFrom(summary remote.CandidateSummary) identity.SelectedCandidate {
	return identity.SelectedCandidate{
		ID:         model.CandidateID(summary.ID),
		Name:       summaryName(summary),
		Position:   summary.Position,
		Department: summary.Department,
	}
}

func summaryName(summary remote.CandidateSummary) string {
	return strings.TrimSpace(summary.FirstName + " " + summary.LastName)
}
