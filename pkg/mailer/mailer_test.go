package mailer

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/mrz1836/postmark"
	"github.com/resendlabs/resend-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wholesail/wholesail/pkg/logger"
)

func validMessage() Message {
	return Message{
		FromEmail: "news@northwind.example.com",
		FromName:  "Northwind Supply",
		To:        "buyer@shop.test",
		Subject:   "Spring restock",
		HTML:      "<p>Hello</p>",
		Text:      "Hello",
		Tag:       "campaign-1",
	}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Message)
	}{
		{"bad from", func(m *Message) { m.FromEmail = "nope" }},
		{"bad to", func(m *Message) { m.To = "" }},
		{"no subject", func(m *Message) { m.Subject = "  " }},
		{"no html", func(m *Message) { m.HTML = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := validMessage()
			tt.mutate(&m)
			assert.ErrorIs(t, m.Validate(), ErrInvalidMessage)
		})
	}
	assert.NoError(t, validMessage().Validate())
}

func TestMessage_From(t *testing.T) {
	m := validMessage()
	assert.Equal(t, `"Northwind Supply" <news@northwind.example.com>`, m.From())
	m.FromName = ""
	assert.Equal(t, "news@northwind.example.com", m.From())
}

func TestNew(t *testing.T) {
	log := logger.NewTestLogger(t)

	s, err := New(Config{Provider: "log"}, log)
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = New(Config{Provider: "SMTP", SMTPHost: "mail.test"}, log)
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = New(Config{Provider: "postmark", PostmarkServerToken: "tok"}, log)
	require.NoError(t, err)
	assert.IsType(t, &PostmarkSender{}, s)

	s, err = New(Config{Provider: "resend", ResendAPIKey: "re_123"}, log)
	require.NoError(t, err)
	assert.IsType(t, &ResendSender{}, s)

	s, err = New(Config{Provider: "ses", SESRegion: "us-east-1", SESAccessKey: "a", SESSecretKey: "b"}, log)
	require.NoError(t, err)
	assert.IsType(t, &SESSender{}, s)

	_, err = New(Config{Provider: "pigeon"}, log)
	assert.Error(t, err)

	_, err = New(Config{Provider: "smtp"}, log)
	assert.Error(t, err)
	_, err = New(Config{Provider: "postmark"}, log)
	assert.Error(t, err)
	_, err = New(Config{Provider: "resend"}, log)
	assert.Error(t, err)
	_, err = New(Config{Provider: "ses"}, log)
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	log := logger.NewTestLogger(t)
	id, err := NewLogSender(log).Send(context.Background(), validMessage())
	require.NoError(t, err)
	assert.Contains(t, id, "log-")
	assert.True(t, log.Contains("to=buyer@shop.test"))

	_, err = NewLogSender(log).Send(context.Background(), Message{})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}

type fakeSES struct {
	input *ses.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmailWithContext(_ aws.Context, input *ses.SendEmailInput, _ ...request.Option) (*ses.SendEmailOutput, error) {
	f.input = input
	if f.err != nil {
		return nil, f.err
	}
	return &ses.SendEmailOutput{MessageId: aws.String("ses-1")}, nil
}

func TestSESSender(t *testing.T) {
	fake := &fakeSES{}
	s := &SESSender{client: fake}

	id, err := s.Send(context.Background(), validMessage())
	require.NoError(t, err)
	assert.Equal(t, "ses-1", id)

	require.NotNil(t, fake.input)
	assert.Equal(t, `"Northwind Supply" <news@northwind.example.com>`, aws.StringValue(fake.input.Source))
	assert.Equal(t, "buyer@shop.test", aws.StringValue(fake.input.Destination.ToAddresses[0]))
	assert.Equal(t, "<p>Hello</p>", aws.StringValue(fake.input.Message.Body.Html.Data))
	assert.Equal(t, "Hello", aws.StringValue(fake.input.Message.Body.Text.Data))
	assert.Equal(t, "campaign-1", aws.StringValue(fake.input.Tags[0].Value))

	fake.err = errors.New("throttled")
	_, err = s.Send(context.Background(), validMessage())
	assert.ErrorContains(t, err, "throttled")
}

func TestPostmarkSender(t *testing.T) {
	var got postmark.Email
	s := &PostmarkSender{send: func(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
		got = e
		return postmark.EmailResponse{MessageID: "pm-1"}, nil
	}}

	id, err := s.Send(context.Background(), validMessage())
	require.NoError(t, err)
	assert.Equal(t, "pm-1", id)
	assert.Equal(t, "buyer@shop.test", got.To)
	assert.Equal(t, "<p>Hello</p>", got.HTMLBody)
	assert.Equal(t, "Hello", got.TextBody)
	assert.Equal(t, "campaign-1", got.Tag)

	s.send = func(context.Context, postmark.Email) (postmark.EmailResponse, error) {
		return postmark.EmailResponse{ErrorCode: 300, Message: "Invalid email request"}, nil
	}
	_, err = s.Send(context.Background(), validMessage())
	assert.ErrorContains(t, err, "postmark error: 300")
}

func TestResendSender(t *testing.T) {
	var got *resend.SendEmailRequest
	s := &ResendSender{send: func(req *resend.SendEmailRequest) (string, error) {
		got = req
		return "re-1", nil
	}}

	id, err := s.Send(context.Background(), validMessage())
	require.NoError(t, err)
	assert.Equal(t, "re-1", id)
	assert.Equal(t, []string{"buyer@shop.test"}, got.To)
	assert.Equal(t, "<p>Hello</p>", got.Html)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Send(ctx, validMessage())
	assert.ErrorIs(t, err, context.Canceled)
}
