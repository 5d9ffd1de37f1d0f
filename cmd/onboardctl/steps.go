package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	cli "github.com/urfave/cli/v3"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/store"
)

func newStepsCommand() *cli.Command {
	return &cli.Command{
		Name:    "steps",
		Aliases: []string{"ls"},
		Usage:   "List the onboarding steps of the current subject",
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			printSteps(c, c.session.Steps())
			return nil
		}),
	}
}

func newCompleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "complete",
		Usage:     "Mark a step completed",
		ArgsUsage: "<step-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "Step data as JSON or {key=value, ...}",
			},
		},
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			stepID, err := stepArg(command)
			if err != nil {
				return err
			}
			data, err := parseData(command.String("data"))
			if err != nil {
				return err
			}
			result, err := c.session.CompleteStep(ctx, stepID, data)
			return reportTransition(c, stepID, result, err)
		}),
	}
}

func newFailCommand() *cli.Command {
	return &cli.Command{
		Name:      "fail",
		Usage:     "Mark a step failed",
		ArgsUsage: "<step-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "reason",
				Usage: "Why the step failed",
			},
		},
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			stepID, err := stepArg(command)
			if err != nil {
				return err
			}
			result, err := c.session.FailStep(ctx, stepID, command.String("reason"))
			return reportTransition(c, stepID, result, err)
		}),
	}
}

func newApproveCommand() *cli.Command {
	return &cli.Command{
		Name:      "approve",
		Usage:     "Approve an HR step for the selected candidate",
		ArgsUsage: "<step-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "data",
				Usage: "Review data as JSON or {key=value, ...}",
			},
		},
		Action: withClient(func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error {
			stepID, err := stepArg(command)
			if err != nil {
				return err
			}
			data, err := parseData(command.String("data"))
			if err != nil {
				return err
			}
			if data == nil {
				data = map[string]any{}
			}
			if actor.Role.IsHR() {
				hydrateSelection(ctx, c)
			}
			result, err := c.session.ApproveStep(ctx, stepID, data)
			return reportTransition(c, stepID, result, err)
		}),
	}
}

// reportTransition prints the outcome of a step action. A nil result with no
// error means the actor's role may not change the step.
func reportTransition(c *client, stepID model.StepID, result *store.TransitionResult, err error) error {
	if err != nil {
		if result != nil && result.Persisted {
			c.printf("step %s saved as %s but the refresh failed\n", stepID, result.Status)
		}
		return err
	}
	if result == nil {
		c.printf("step %s cannot be changed by your role; nothing was sent\n", stepID)
		return nil
	}
	c.printf("step %s is now %s for candidate %s\n", stepID, result.Status, result.CandidateID)
	if result.NotifyErr != nil {
		c.printf("warning: completion notice not delivered: %v\n", result.NotifyErr)
	}
	for _, w := range result.Warnings {
		c.printf("warning: %v\n", w)
	}
	printSteps(c, c.session.Steps())
	return nil
}

func printSteps(c *client, steps *store.Store) {
	list := steps.Steps()
	current := steps.CurrentIndex()

	if subject := steps.Subject(); subject > 0 {
		c.printf("candidate %s\n", subject)
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\t#\tSTEP\tSTATUS\tHR ONLY\tTITLE")
	for i, step := range list {
		marker := ""
		if i == current {
			marker = ">"
		}
		hrOnly := ""
		if step.HROnly {
			hrOnly = "yes"
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", marker, i, step.ID, step.Status, hrOnly, step.Title)
	}
	_ = tw.Flush()
	c.printf("%d/%d completed (%d%%)\n", steps.CompletedCount(), len(list), steps.Percentage())
}
