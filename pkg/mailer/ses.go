package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
)

// sesAPI is the slice of the SES client the sender uses.
type sesAPI interface {
	SendEmailWithContext(ctx aws.Context, input *ses.SendEmailInput, opts ...request.Option) (*ses.SendEmailOutput, error)
}

type SESSender struct {
	client sesAPI
}

func NewSESSender(cfg Config) (*SESSender, error) {
	if cfg.SESRegion == "" {
		return nil, fmt.Errorf("ses region is required")
	}

	awsCfg := &aws.Config{Region: aws.String(cfg.SESRegion)}
	// without static keys the default credential chain applies
	if cfg.SESAccessKey != "" && cfg.SESSecretKey != "" {
		awsCfg.Credentials = credentials.NewStaticCredentials(cfg.SESAccessKey, cfg.SESSecretKey, "")
	}

	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return &SESSender{client: ses.New(sess)}, nil
}

func (s *SESSender) Send(ctx context.Context, m Message) (string, error) {
	if err := m.Validate(); err != nil {
		return "", err
	}

	body := &ses.Body{
		Html: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(m.HTML)},
	}
	if m.Text != "" {
		body.Text = &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(m.Text)}
	}

	input := &ses.SendEmailInput{
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(m.To)}},
		Message: &ses.Message{
			Body:    body,
			Subject: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(m.Subject)},
		},
		Source: aws.String(m.From()),
	}
	if m.Tag != "" {
		input.Tags = []*ses.MessageTag{{Name: aws.String("campaign"), Value: aws.String(m.Tag)}}
	}

	out, err := s.client.SendEmailWithContext(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to send email via ses: %w", err)
	}
	return aws.StringValue(out.MessageId), nil
}
