// Package events extracts S3 object-change records from the event
// documents the hosts receive.
//
// The hosts deliver events as SQS message bodies following the S3
// event notification schema; ParseBody decodes such a body, and
// FromS3Event converts an already decoded S3 event. Both converge on
// the Record type the engine consumes.
package events

import (
	"encoding/json"
	"errors"
	"time"

	lambdaevents "github.com/aws/aws-lambda-go/events"
)

// Record is one S3 object-change event, reduced to the fields the
// engine needs. Immutable once produced.
type Record struct {
	Bucket    string
	Key       string
	EventTime time.Time
	EventName string
}

// Errors returned when an SQS body cannot yield records.
var (
	// ErrNotS3Event is returned when a body parses as JSON but does
	// not describe an S3 event notification.
	ErrNotS3Event = errors.New("message body is not an S3 event notification")
)

// FromS3Event converts the records of a decoded S3 event, dropping
// records that lack a bucket name or object key.
func FromS3Event(event lambdaevents.S3Event) []Record {
	records := make([]Record, 0, len(event.Records))
	for _, r := range event.Records {
		if r.S3.Bucket.Name == "" || r.S3.Object.Key == "" {
			continue
		}
		records = append(records, Record{
			Bucket:    r.S3.Bucket.Name,
			Key:       r.S3.Object.Key,
			EventTime: r.EventTime,
			EventName: r.EventName,
		})
	}
	return records
}

// ParseBody parses an SQS message body as an S3 event notification
// document and extracts its records.
//
// A body that is not valid JSON, or that parses but carries no S3
// records (e.g. an s3:TestEvent), yields an error; the caller logs and
// skips the message rather than failing the batch.
func ParseBody(body string) ([]Record, error) {
	var event lambdaevents.S3Event
	if err := json.Unmarshal([]byte(body), &event); err != nil {
		return nil, err
	}
	records := FromS3Event(event)
	if len(records) == 0 {
		return nil, ErrNotS3Event
	}
	return records, nil
}
