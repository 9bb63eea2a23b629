package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/ignite/outreach-engine/internal/compose"
	"github.com/ignite/outreach-engine/internal/pkg/logger"
)

// SES delivers messages through AWS SES using the SDK v2.
type SES struct {
	client      *sesv2.Client
	fromName    string
	fromAddress string
	replyTo     string
}

// SESOptions configures the SES dispatcher.
type SESOptions struct {
	Region      string
	AccessKey   string
	SecretKey   string
	FromName    string
	FromAddress string
	ReplyTo     string
}

// NewSES creates an SES dispatcher. Static credentials take precedence;
// with none configured the default AWS credential chain applies.
func NewSES(ctx context.Context, opts SESOptions) (*SES, error) {
	if opts.Region == "" {
		opts.Region = "us-east-1"
	}
	if opts.FromAddress == "" {
		return nil, fmt.Errorf("ses dispatcher requires a from address")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(opts.Region),
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""),
			),
		)
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &SES{
		client:      sesv2.NewFromConfig(cfg),
		fromName:    opts.FromName,
		fromAddress: opts.FromAddress,
		replyTo:     opts.ReplyTo,
	}, nil
}

func (s *SES) Dispatch(ctx context.Context, to string, msg compose.Message) (*Result, error) {
	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(msg.Body), Charset: aws.String("UTF-8")},
				},
			},
		},
	}
	if s.replyTo != "" {
		input.ReplyToAddresses = []string{s.replyTo}
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		logger.Warn("ses send failed", "to", logger.RedactAddress(to), "error", err)
		return &Result{Success: false, Error: err}, nil
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("ses send ok", "to", logger.RedactAddress(to), "message_id", messageID)

	return &Result{Success: true, MessageID: messageID, SentAt: time.Now()}, nil
}
