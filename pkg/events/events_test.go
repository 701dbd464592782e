package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{
  "Records": [
    {
      "eventVersion": "2.1",
      "eventSource": "aws:s3",
      "eventTime": "2024-05-01T12:00:00.000Z",
      "eventName": "ObjectCreated:Put",
      "s3": {
        "bucket": {"name": "input-bucket"},
        "object": {"key": "a/b/c.txt", "size": 42, "eTag": "d41d8cd98f00b204e9800998ecf8427e"}
      }
    },
    {
      "eventVersion": "2.1",
      "eventSource": "aws:s3",
      "eventTime": "2024-05-01T12:00:01.000Z",
      "eventName": "ObjectCreated:Copy",
      "s3": {
        "bucket": {"name": "input-bucket"},
        "object": {"key": "a/b/d.txt", "size": 7, "eTag": "deadbeef"}
      }
    }
  ]
}`

func TestParseBody(t *testing.T) {
	records, err := ParseBody(sampleBody)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "input-bucket", records[0].Bucket)
	assert.Equal(t, "a/b/c.txt", records[0].Key)
	assert.Equal(t, "ObjectCreated:Put", records[0].EventName)
	assert.Equal(t, 2024, records[0].EventTime.Year())
	assert.Equal(t, "a/b/d.txt", records[1].Key)
}

func TestParseBody_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not JSON", "this is not json"},
		{"empty body", ""},
		{"JSON without records", `{"hello": "world"}`},
		{"test event", `{"Service":"Amazon S3","Event":"s3:TestEvent","Time":"2024-05-01T12:00:00.000Z","Bucket":"input-bucket"}`},
		{"record missing key", `{"Records":[{"eventName":"ObjectCreated:Put","s3":{"bucket":{"name":"b"},"object":{}}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ParseBody(tt.body)
			assert.Error(t, err)
			assert.Nil(t, records)
		})
	}
}
