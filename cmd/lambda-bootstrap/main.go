// The lambda-bootstrap binary hosts the bridge inside the AWS Lambda
// runtime. It receives SQS events whose record bodies are S3 event
// notifications, runs the handler command given as its arguments for
// each execution group, and reports batch failures to the Lambda API.
package main

import (
	"context"
	"fmt"
	"os"

	lambdaevents "github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/kklingenberg/s3-event-bridge/internal/app"
	"github.com/kklingenberg/s3-event-bridge/pkg/events"
)

func main() {
	application, err := app.Build(context.Background(), os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer application.Logger.Sync() //nolint:errcheck

	lambda.Start(func(ctx context.Context, event lambdaevents.SQSEvent) error {
		var records []events.Record
		for _, message := range event.Records {
			parsed, err := events.ParseBody(message.Body)
			if err != nil {
				application.Logger.Warn("Skipped SQS message",
					zap.String("messageId", message.MessageId),
					zap.Error(err))
				continue
			}
			records = append(records, parsed...)
		}
		return application.Engine.RunBatch(ctx, records).Err()
	})
}
