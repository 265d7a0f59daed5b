package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, params *ses.SendEmailInput, _ ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestNew_ProviderSelection(t *testing.T) {
	assert.IsType(t, &sesMailer{}, New(Config{Provider: "ses", Region: "us-east-1"}, nil))
	assert.IsType(t, &noopMailer{}, New(Config{Provider: "noop"}, nil))
	assert.IsType(t, &noopMailer{}, New(Config{Provider: "carrier-pigeon"}, nil))
}

func TestSESMailer_Send(t *testing.T) {
	fake := &fakeSES{}
	m := &sesMailer{client: fake, from: formatSource("Aura Events", "noreply@example.com"), logger: zap.NewNop()}

	err := m.Send(context.Background(), Message{To: "guest@example.com", Subject: "You're invited", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	assert.Equal(t, "Aura Events <noreply@example.com>", aws.ToString(fake.input.Source))
	assert.Equal(t, []string{"guest@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, "<p>hi</p>", aws.ToString(fake.input.Message.Body.Html.Data))
	assert.Nil(t, fake.input.Message.Body.Text)
}

func TestSESMailer_SendError(t *testing.T) {
	boom := errors.New("throttled")
	m := &sesMailer{client: &fakeSES{err: boom}, from: "a@b.c", logger: zap.NewNop()}

	err := m.Send(context.Background(), Message{To: "x@y.z"})
	require.ErrorIs(t, err, boom)
}

func TestFormatSource(t *testing.T) {
	assert.Equal(t, "a@b.c", formatSource("", "a@b.c"))
	assert.Equal(t, "A <a@b.c>", formatSource("A", "a@b.c"))
}
