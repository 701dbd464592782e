// Package app wires the engine and its collaborators from the
// environment. All three hosts share this cold-start path.
package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kklingenberg/s3-event-bridge/internal/config"
	"github.com/kklingenberg/s3-event-bridge/internal/observability"
	"github.com/kklingenberg/s3-event-bridge/pkg/engine"
	"github.com/kklingenberg/s3-event-bridge/pkg/filter"
	"github.com/kklingenberg/s3-event-bridge/pkg/match"
	"github.com/kklingenberg/s3-event-bridge/pkg/runner"
	"github.com/kklingenberg/s3-event-bridge/pkg/storage"
)

// App is the initialized application state: settings plus the engine
// built from them. Immutable after Build.
type App struct {
	Settings *config.Settings
	Logger   *zap.Logger
	Engine   *engine.Engine
}

// Build loads settings, compiles patterns and the execution filter,
// constructs the shared S3 client, and assembles the engine.
//
// args are the host's positional arguments; joined, they form the
// handler command. With no args the HANDLER_COMMAND variable is used
// instead, and an empty handler command is a startup error.
func Build(ctx context.Context, args []string) (*App, error) {
	settings, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	logger, err := observability.NewLogger(settings.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	matcher, err := match.New(settings.MatchKey)
	if err != nil {
		return nil, fmt.Errorf("compile key pattern: %w", err)
	}
	pull, err := match.NewKeyFilter(settings.PullMatchKeys)
	if err != nil {
		return nil, fmt.Errorf("compile pull key patterns: %w", err)
	}
	evaluator, err := filter.New(settings.ExecutionFilterExpr, settings.ExecutionFilterFile)
	if err != nil {
		return nil, fmt.Errorf("compile execution filter: %w", err)
	}

	command := strings.Join(args, " ")
	if command == "" {
		command = settings.HandlerCommand
	}
	handler, err := runner.New(runner.Config{
		Command:       command,
		RootFolderVar: settings.RootFolderVar,
		BucketVar:     settings.BucketVar,
		KeyPrefixVar:  settings.KeyPrefixVar,
	})
	if err != nil {
		return nil, fmt.Errorf("configure handler command: %w", err)
	}

	store, err := storage.NewClient(ctx, storage.Config{EndpointURL: settings.AWSEndpointURL})
	if err != nil {
		return nil, fmt.Errorf("build S3 client: %w", err)
	}

	eng := engine.New(store, matcher, pull, evaluator, handler, engine.Config{
		PullParentDirs:      settings.PullParentDirs,
		TargetBucket:        settings.TargetBucket,
		DownloadConcurrency: settings.DownloadConcurrency,
		UploadConcurrency:   settings.UploadConcurrency,
	}, logger)

	return &App{Settings: settings, Logger: logger, Engine: eng}, nil
}
