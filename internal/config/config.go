// Package config defines the bridge configuration as read from the
// environment. Configuration is loaded once at process start and is
// immutable thereafter; any invalid value fails startup.
package config

import (
	"errors"
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Settings is the full environment-driven configuration of the event
// bridge and its hosts.
type Settings struct {
	// MatchKey filters triggering event keys (regex). Empty matches
	// any key.
	MatchKey string `envconfig:"MATCH_KEY"`

	// PullParentDirs counts parent directories to climb from the
	// trigger key's folder when selecting the listing prefix. 0 is
	// the containing folder; a negative value pulls the whole bucket.
	PullParentDirs int `envconfig:"PULL_PARENT_DIRS" default:"0"`

	// PullMatchKeys limits the pulled files to keys matching any of
	// these regexes. Empty pulls every listed file.
	PullMatchKeys []string `envconfig:"PULL_MATCH_KEYS"`

	// ExecutionFilterExpr is an inline jq expression gating execution.
	ExecutionFilterExpr string `envconfig:"EXECUTION_FILTER_EXPR"`

	// ExecutionFilterFile is a file containing the jq expression.
	// Mutually exclusive with ExecutionFilterExpr.
	ExecutionFilterFile string `envconfig:"EXECUTION_FILTER_FILE"`

	// TargetBucket receives the outputs. Empty uses the bucket of the
	// triggering event.
	TargetBucket string `envconfig:"TARGET_BUCKET"`

	// HandlerCommand is the handler shell expression. Positional
	// arguments of the host binary take precedence; this is honoured
	// only when none are given.
	HandlerCommand string `envconfig:"HANDLER_COMMAND"`

	// RootFolderVar, BucketVar and KeyPrefixVar name the environment
	// variables announced to the handler.
	RootFolderVar string `envconfig:"ROOT_FOLDER_VAR" default:"ROOT_FOLDER"`
	BucketVar     string `envconfig:"BUCKET_VAR" default:"BUCKET"`
	KeyPrefixVar  string `envconfig:"KEY_PREFIX_VAR" default:"KEY_PREFIX"`

	// DownloadConcurrency and UploadConcurrency bound transfer
	// fan-out within a group.
	DownloadConcurrency int `envconfig:"DOWNLOAD_CONCURRENCY" default:"8"`
	UploadConcurrency   int `envconfig:"UPLOAD_CONCURRENCY" default:"8"`

	// LogLevel sets the zap level (debug, info, warn, error).
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// AWSEndpointURL overrides the AWS endpoint (local stacks and
	// S3-compatible stores). Empty uses the SDK default resolution.
	AWSEndpointURL string `envconfig:"AWS_ENDPOINT_URL"`

	// SQS consumer host settings.
	SQSQueueURL            string `envconfig:"SQS_QUEUE_URL"`
	SQSVisibilityTimeout   int32  `envconfig:"SQS_VISIBILITY_TIMEOUT" default:"30"`
	SQSMaxNumberOfMessages int32  `envconfig:"SQS_MAX_NUMBER_OF_MESSAGES" default:"1"`
}

// Load reads the settings from the environment, applying defaults and
// validating cross-field constraints.
func Load() (*Settings, error) {
	var s Settings
	if err := envconfig.Process("", &s); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks constraints envconfig cannot express.
func (s *Settings) Validate() error {
	if s.ExecutionFilterExpr != "" && s.ExecutionFilterFile != "" {
		return errors.New("can't use both an execution filter expression and a file at the same time")
	}
	if s.SQSMaxNumberOfMessages < 1 || s.SQSMaxNumberOfMessages > 10 {
		return fmt.Errorf("SQS_MAX_NUMBER_OF_MESSAGES must be between 1 and 10, got %d", s.SQSMaxNumberOfMessages)
	}
	if s.SQSVisibilityTimeout < 0 {
		return fmt.Errorf("SQS_VISIBILITY_TIMEOUT must not be negative, got %d", s.SQSVisibilityTimeout)
	}
	return nil
}
