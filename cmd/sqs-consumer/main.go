// The sqs-consumer binary hosts the bridge as a long-lived poller: it
// receives S3 event notifications from an SQS queue, runs the handler
// command given as its arguments for each execution group, and
// deletes the messages it handled successfully.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/kklingenberg/s3-event-bridge/internal/app"
	"github.com/kklingenberg/s3-event-bridge/pkg/events"
)

const (
	// baseLapse is the minimum time to wait between ticks.
	baseLapse = 300 * time.Millisecond

	// maxSleep caps the exponential backoff between failed ticks.
	maxSleep = 20 * time.Minute
)

// sqsAPI is the subset of the SQS SDK client the consumer uses.
type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessageBatch(ctx context.Context, params *sqs.DeleteMessageBatchInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageBatchOutput, error)
}

// consumer executes successive SQS consumption cycles: receive
// messages, parse their contents, run the engine, delete messages.
type consumer struct {
	application         *app.App
	client              sqsAPI
	queueURL            string
	visibilityTimeout   int32
	maxNumberOfMessages int32
	backoff             int
}

// pass records a success and waits a little while.
func (c *consumer) pass(ctx context.Context) {
	c.backoff = 0
	sleep(ctx, baseLapse)
}

// fail records a failure and backs off exponentially.
func (c *consumer) fail(ctx context.Context) {
	delay := baseLapse << c.backoff
	if delay > maxSleep || delay <= 0 {
		delay = maxSleep
	}
	sleep(ctx, delay)
	if c.backoff < 32 {
		c.backoff++
	}
}

// tick performs a single pass of the consumption cycle.
func (c *consumer) tick(ctx context.Context) {
	logger := c.application.Logger

	received, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(c.queueURL),
		VisibilityTimeout:   c.visibilityTimeout,
		MaxNumberOfMessages: c.maxNumberOfMessages,
		WaitTimeSeconds:     30,
	})
	if err != nil {
		if ctx.Err() == nil {
			logger.Warn("Error while consuming messages from SQS queue", zap.Error(err))
			c.fail(ctx)
		}
		return
	}

	var records []events.Record
	for _, message := range received.Messages {
		parsed, err := events.ParseBody(aws.ToString(message.Body))
		if err != nil {
			logger.Warn("Skipped SQS message",
				zap.String("messageId", aws.ToString(message.MessageId)),
				zap.Error(err))
			continue
		}
		records = append(records, parsed...)
	}

	if result := c.application.Engine.RunBatch(ctx, records); result.Failed() {
		logger.Warn("Error encountered while handling events; SQS messages won't be deleted",
			zap.Error(result.Err()))
		c.pass(ctx)
		return
	}
	if len(received.Messages) == 0 {
		c.pass(ctx)
		return
	}

	logger.Info("Deleting SQS messages", zap.Int("total", len(received.Messages)))
	entries := make([]sqstypes.DeleteMessageBatchRequestEntry, len(received.Messages))
	for i, message := range received.Messages {
		entries[i] = sqstypes.DeleteMessageBatchRequestEntry{
			Id:            message.MessageId,
			ReceiptHandle: message.ReceiptHandle,
		}
	}
	deleted, err := c.client.DeleteMessageBatch(ctx, &sqs.DeleteMessageBatchInput{
		QueueUrl: aws.String(c.queueURL),
		Entries:  entries,
	})
	if err != nil {
		logger.Warn("Couldn't delete SQS messages", zap.Error(err))
		c.fail(ctx)
		return
	}
	if len(deleted.Failed) > 0 {
		logger.Warn("Couldn't delete some SQS messages",
			zap.Int("failed", len(deleted.Failed)),
			zap.Int("total", len(received.Messages)))
	}
	c.pass(ctx)
}

// sleep waits for the duration or until the context is cancelled.
func sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.Build(ctx, os.Args[1:])
	if err != nil {
		return err
	}
	defer application.Logger.Sync() //nolint:errcheck

	settings := application.Settings
	if settings.SQSQueueURL == "" {
		return errors.New("SQS_QUEUE_URL is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return err
	}
	var sqsOpts []func(*sqs.Options)
	if settings.AWSEndpointURL != "" {
		endpoint := settings.AWSEndpointURL
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		sqsOpts = append(sqsOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(endpoint)
			if o.Region == "" {
				o.Region = "us-east-1"
			}
		})
	}

	c := &consumer{
		application:         application,
		client:              sqs.NewFromConfig(awsCfg, sqsOpts...),
		queueURL:            settings.SQSQueueURL,
		visibilityTimeout:   settings.SQSVisibilityTimeout,
		maxNumberOfMessages: settings.SQSMaxNumberOfMessages,
	}

	// Continuously receive messages and execute the handler for each
	// assembled batch, until a termination signal arrives.
	for ctx.Err() == nil {
		c.tick(ctx)
	}
	application.Logger.Info("Termination signal received; shutting down")
	return nil
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
