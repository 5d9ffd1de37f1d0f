package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/onboardhr/onboarding/internal/config"
)

var ErrNoRecipient = errors.New("message has no recipient")

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

func (m Message) validate() error {
	if m.To == "" {
		return ErrNoRecipient
	}
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("invalid recipient %q: %w", m.To, err)
	}
	return nil
}

// Mailer sends messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	m.logger.InfoContext(ctx, "email", "to", msg.To, "subject", msg.Subject, "body", msg.Text)
	return nil
}

// SESAPI is the subset of the SES v2 client used here.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESMailer sends through Amazon SES v2.
type SESMailer struct {
	client SESAPI
	from   string
}

func NewSESMailer(client SESAPI, from string) *SESMailer {
	return &SESMailer{client: client, from: from}
}

func (m *SESMailer) Send(ctx context.Context, msg Message) error {
	if err := msg.validate(); err != nil {
		return err
	}

	body := &types.Body{
		Text: &types.Content{Data: aws.String(msg.Text), Charset: aws.String("UTF-8")},
	}
	if msg.HTML != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTML), Charset: aws.String("UTF-8")}
	}

	out, err := m.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(m.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body:    body,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send email via SES: %w", err)
	}

	slog.InfoContext(ctx, "email sent", "to", msg.To, "message_id", aws.ToString(out.MessageId))
	return nil
}

// NewFromConfig builds the configured mailer.
func NewFromConfig(ctx context.Context, cfg config.MailConfig) (Mailer, error) {
	switch cfg.Driver {
	case "log", "":
		slog.Info("initializing log mailer")
		return NewLogMailer(slog.With("module", "mailer")), nil
	case "ses":
		slog.Info("initializing SES mailer", "region", cfg.Region, "from", cfg.From)
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		return NewSESMailer(sesv2.NewFromConfig(awsCfg), cfg.From), nil
	default:
		return nil, fmt.Errorf("unsupported mail driver: %s", cfg.Driver)
	}
}
