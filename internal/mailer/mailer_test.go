package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockSES is a mock implementation of SESAPI
type MockSES struct {
	mock.Mock
}

func (m *MockSES) SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sesv2.SendEmailOutput), args.Error(1)
}

func TestSESMailer_Send(t *testing.T) {
	ctx := context.Background()
	client := new(MockSES)
	client.On("SendEmail", ctx, mock.MatchedBy(func(in *sesv2.SendEmailInput) bool {
		return aws.ToString(in.FromEmailAddress) == "hr@acme.test" &&
			in.Destination.ToAddresses[0] == "ada@example.com" &&
			aws.ToString(in.Content.Simple.Subject.Data) == "Hello" &&
			in.Content.Simple.Body.Html != nil
	})).Return(&sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil)

	m := NewSESMailer(client, "hr@acme.test")
	err := m.Send(ctx, Message{To: "ada@example.com", Subject: "Hello", Text: "hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestSESMailer_SendError(t *testing.T) {
	ctx := context.Background()
	client := new(MockSES)
	client.On("SendEmail", ctx, mock.Anything).Return(nil, errors.New("throttled"))

	err := NewSESMailer(client, "hr@acme.test").Send(ctx, Message{To: "ada@example.com", Subject: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestSend_RejectsBadRecipient(t *testing.T) {
	client := new(MockSES)
	m := NewSESMailer(client, "hr@acme.test")

	assert.ErrorIs(t, m.Send(context.Background(), Message{}), ErrNoRecipient)
	assert.Error(t, m.Send(context.Background(), Message{To: "not an address"}))
	client.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.Send(context.Background(), Message{To: "ada@example.com", Subject: "Welcome"}))
	assert.Contains(t, buf.String(), "to=ada@example.com")
	assert.Contains(t, buf.String(), "subject=Welcome")
}

func TestTemplates(t *testing.T) {
	tpl := NewTemplates("Acme", "http://portal.test")

	welcome, err := tpl.Welcome("ada@example.com", "Ada <Lovelace>", "Engineer", "R&D")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", welcome.To)
	assert.Contains(t, welcome.Subject, "Acme")
	assert.Contains(t, welcome.Text, "http://portal.test")
	assert.Contains(t, welcome.HTML, "Ada &lt;Lovelace&gt;")
	assert.Contains(t, welcome.HTML, "R&amp;D")

	done, err := tpl.StepCompleted("ada@example.com", "Ada", "Document Upload")
	require.NoError(t, err)
	assert.Equal(t, "Document Upload completed", done.Subject)
	assert.Contains(t, done.HTML, "<strong>Document Upload</strong>")
}
