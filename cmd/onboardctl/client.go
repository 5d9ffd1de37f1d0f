package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	cli "github.com/urfave/cli/v3"

	"github.com/onboardhr/onboarding/internal/onboarding/model"
	"github.com/onboardhr/onboarding/internal/onboarding/stepdata"
	"github.com/onboardhr/onboarding/internal/remote"
	"github.com/onboardhr/onboarding/internal/session"
)

var errNotSignedIn = errors.New("not signed in; run onboardctl login first")

// client bundles what every command needs: the session over the remote
// backend and the state database that outlives the process.
type client struct {
	session *session.Session
	state   *session.StateStore
	apiURL  string
	out     io.Writer
}

func openClient(command *cli.Command) (*client, error) {
	root := command.Root()

	state, err := session.NewStateStore(root.String("state-db"))
	if err != nil {
		return nil, err
	}

	apiURL := root.String("api-url")
	backend := remote.NewClient(apiURL)
	sess := session.New(backend, state, session.Config{
		ResetIndex: int(root.Int("reset-index")),
	})

	return &client{
		session: sess,
		state:   state,
		apiURL:  apiURL,
		out:     root.Writer,
	}, nil
}

// signedIn opens the client and restores the persisted session.
func signedIn(ctx context.Context, command *cli.Command) (*client, model.Actor, error) {
	c, err := openClient(command)
	if err != nil {
		return nil, model.Actor{}, err
	}
	actor, ok, err := c.session.Restore(ctx)
	if err != nil {
		c.close()
		return nil, model.Actor{}, err
	}
	if !ok {
		c.close()
		return nil, model.Actor{}, errNotSignedIn
	}
	return c, actor, nil
}

func (c *client) close() {
	if err := c.state.Close(); err != nil {
		slog.Warn("failed to close client state", "error", err)
	}
}

func (c *client) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format, args...)
}

// withClient runs fn against a restored session and closes it afterwards.
func withClient(fn func(ctx context.Context, command *cli.Command, c *client, actor model.Actor) error) cli.ActionFunc {
	return func(ctx context.Context, command *cli.Command) error {
		c, actor, err := signedIn(ctx, command)
		if err != nil {
			return err
		}
		defer c.close()
		return fn(ctx, command, c, actor)
	}
}

func stepArg(command *cli.Command) (model.StepID, error) {
	if command.Args().Len() != 1 {
		return "", fmt.Errorf("expected exactly one step id")
	}
	return model.StepID(command.Args().First()), nil
}

func candidateArg(command *cli.Command) (model.CandidateID, error) {
	if command.Args().Len() != 1 {
		return 0, fmt.Errorf("expected exactly one candidate id")
	}
	id, ok := model.ParseCandidateID(command.Args().First())
	if !ok {
		return 0, fmt.Errorf("invalid candidate id %q", command.Args().First())
	}
	return id, nil
}

// parseData accepts JSON or the legacy key=value form.
func parseData(raw string) (any, error) {
	if raw == "" {
		return nil, nil
	}
	data, err := stepdata.ParseLoose(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --data: %w", err)
	}
	return data, nil
}
