// Package engine orchestrates one invocation of the event bridge:
// group the incoming records, list and filter the affected objects,
// materialise them on local disk, run the handler, and upload every
// file the handler changed or created.
//
// The engine is serial across groups within a batch, which bounds peak
// disk usage to one temporary folder at a time; I/O inside a group
// fans out with bounded concurrency and a join barrier before each
// phase transition.
package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kklingenberg/s3-event-bridge/pkg/events"
	"github.com/kklingenberg/s3-event-bridge/pkg/filter"
	"github.com/kklingenberg/s3-event-bridge/pkg/match"
	"github.com/kklingenberg/s3-event-bridge/pkg/plan"
	"github.com/kklingenberg/s3-event-bridge/pkg/runner"
	"github.com/kklingenberg/s3-event-bridge/pkg/sign"
	"github.com/kklingenberg/s3-event-bridge/pkg/storage"
)

// Handler runs the user program for one group.
type Handler interface {
	Run(ctx context.Context, root, bucket, prefix string) error
}

// Config tunes the engine.
type Config struct {
	// PullParentDirs is the number of parent segments to climb from a
	// trigger key's folder to form the listing prefix. Negative means
	// the whole bucket.
	PullParentDirs int

	// TargetBucket receives uploads. Empty means the group's source
	// bucket.
	TargetBucket string

	// DownloadConcurrency bounds parallel downloads within a group.
	// Default: 8.
	DownloadConcurrency int

	// UploadConcurrency bounds parallel uploads within a group.
	// Default: 8.
	UploadConcurrency int
}

// Engine executes event batches. All fields are immutable after
// construction; the compiled patterns and execution filter are shared
// process-wide capabilities.
type Engine struct {
	store     storage.ObjectStore
	matcher   *match.Matcher
	pull      *match.KeyFilter
	evaluator *filter.Evaluator // nil when no filter is configured
	handler   Handler
	cfg       Config
	logger    *zap.Logger
}

// New creates an engine. evaluator may be nil (no execution filter).
func New(store storage.ObjectStore, matcher *match.Matcher, pull *match.KeyFilter, evaluator *filter.Evaluator, handler Handler, cfg Config, logger *zap.Logger) *Engine {
	if cfg.DownloadConcurrency <= 0 {
		cfg.DownloadConcurrency = 8
	}
	if cfg.UploadConcurrency <= 0 {
		cfg.UploadConcurrency = 8
	}
	return &Engine{
		store:     store,
		matcher:   matcher,
		pull:      pull,
		evaluator: evaluator,
		handler:   handler,
		cfg:       cfg,
		logger:    logger,
	}
}

// RunBatch processes one event batch: group, then run each group in
// sequence. A termination signal (context cancellation) drops pending
// groups; the in-flight group fails as cancelled.
func (e *Engine) RunBatch(ctx context.Context, records []events.Record) *BatchResult {
	groups := e.GroupEvents(records)
	result := &BatchResult{Groups: make([]GroupResult, 0, len(groups))}

	for _, group := range groups {
		if ctx.Err() != nil {
			result.Groups = append(result.Groups, GroupResult{
				Group:   group,
				Outcome: OutcomeCancelled,
				Err:     e.groupError(group, KindCancelled, ctx.Err()),
			})
			continue
		}
		result.Groups = append(result.Groups, e.RunGroup(ctx, group))
	}
	return result
}

// RunGroup takes one group through the pipeline: list → filter →
// materialise → sign → run → diff → upload. The temporary folder is
// released on every exit path.
func (e *Engine) RunGroup(ctx context.Context, group Group) GroupResult {
	logger := e.logger.With(
		zap.String("invocation", uuid.NewString()),
		zap.String("bucket", group.Bucket),
		zap.String("prefix", group.Prefix),
	)

	// List the source bucket under the group's prefix.
	logger.Info("Listing input objects")
	objects, err := e.store.List(ctx, group.Bucket, group.Prefix)
	if err != nil {
		return e.fail(logger, group, KindList, err)
	}

	// Gate execution on the unfiltered listing.
	if e.evaluator != nil {
		verdict, err := e.evaluator.Evaluate(objects)
		if err != nil {
			return e.fail(logger, group, KindFilter, err)
		}
		if verdict.Surplus {
			logger.Warn("Execution filter produced more than one output; surplus outputs are ignored")
		}
		if !verdict.Pass {
			logger.Info("Execution filter rejected the group",
				zap.Any("value", verdict.Value),
				zap.Int("objects", len(objects)))
			return GroupResult{Group: group, Outcome: OutcomeSkipped}
		}
		logger.Info("Execution filter passed", zap.Any("value", verdict.Value))
	}

	// Select the download set.
	selected := make([]storage.Object, 0, len(objects))
	for _, obj := range objects {
		if e.pull.Match(obj.Key) {
			selected = append(selected, obj)
		}
	}

	root, err := os.MkdirTemp("", "s3-event-bridge-")
	if err != nil {
		return e.fail(logger, group, KindFS, err)
	}
	defer func() {
		if err := os.RemoveAll(root); err != nil {
			logger.Error("Failed to remove temporary folder",
				zap.String("path", root), zap.Error(err))
		}
	}()
	logger.Info("Created temporary folder", zap.String("path", root))

	// Materialise the selected objects, preserving relative paths.
	if err := e.materialise(ctx, logger, group, root, selected); err != nil {
		return e.fail(logger, group, classifyTransfer(err, KindGet), err)
	}

	before, err := sign.Take(root)
	if err != nil {
		return e.fail(logger, group, KindFS, err)
	}

	// Run the handler and wait for it to terminate.
	logger.Info("Invoking handler")
	if err := e.handler.Run(ctx, root, group.Bucket, group.Prefix); err != nil {
		kind := KindHandlerExit
		var exitErr *runner.ExitStatusError
		if !errors.As(err, &exitErr) && ctx.Err() != nil {
			kind = KindCancelled
		}
		return e.fail(logger, group, kind, err)
	}

	after, err := sign.Take(root)
	if err != nil {
		return e.fail(logger, group, KindFS, err)
	}
	changes := sign.Changes(before, after)

	// Push changed files to the target bucket.
	targetBucket := e.cfg.TargetBucket
	if targetBucket == "" {
		targetBucket = group.Bucket
	}
	logger.Info("Uploading changed files",
		zap.Int("total", len(changes)),
		zap.String("targetBucket", targetBucket))
	uploaded, err := e.upload(ctx, logger, group, root, targetBucket, changes)
	if err != nil {
		return e.fail(logger, group, classifyTransfer(err, KindPut), err)
	}

	return GroupResult{Group: group, Outcome: OutcomeSucceeded, Uploaded: uploaded}
}

// materialise downloads the selected objects under root with bounded
// concurrency. All downloads complete (or the first error cancels the
// rest) before it returns.
func (e *Engine) materialise(ctx context.Context, logger *zap.Logger, group Group, root string, objects []storage.Object) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.DownloadConcurrency)
	for _, obj := range objects {
		obj := obj
		g.Go(func() error {
			rel := plan.Relative(group.Prefix, obj.Key)
			path := filepath.Join(root, filepath.FromSlash(rel))
			if err := e.store.Download(ctx, group.Bucket, obj.Key, path); err != nil {
				return err
			}
			logger.Info("Downloaded object", zap.String("key", obj.Key))
			return nil
		})
	}
	return g.Wait()
}

// upload pushes each changed file to its computed key with bounded
// concurrency. Completed uploads are not rolled back on failure.
func (e *Engine) upload(ctx context.Context, logger *zap.Logger, group Group, root, targetBucket string, changes []sign.Signature) ([]string, error) {
	uploaded := make([]string, len(changes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.UploadConcurrency)
	for i, change := range changes {
		i, change := i, change
		g.Go(func() error {
			key := plan.Join(group.Prefix, change.RelativePath)
			path := filepath.Join(root, filepath.FromSlash(change.RelativePath))
			if err := e.store.Upload(ctx, targetBucket, key, path); err != nil {
				return err
			}
			logger.Info("Uploaded file", zap.String("key", key))
			uploaded[i] = key
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return uploaded, nil
}

// fail logs the structured failure line and builds the group result.
func (e *Engine) fail(logger *zap.Logger, group Group, kind Kind, err error) GroupResult {
	gerr := e.groupError(group, kind, err)
	logger.Error("Group failed",
		zap.String("kind", string(kind)),
		zap.Error(err))
	outcome := OutcomeFailed
	if kind == KindCancelled {
		outcome = OutcomeCancelled
	}
	return GroupResult{Group: group, Outcome: outcome, Err: gerr}
}

func (e *Engine) groupError(group Group, kind Kind, err error) *GroupError {
	return &GroupError{Kind: kind, Bucket: group.Bucket, Prefix: group.Prefix, Err: err}
}

// classifyTransfer resolves the kind of a transfer-phase failure:
// cancellation wins, then store errors take the S3 kind of the phase,
// and any other error is a filesystem error.
func classifyTransfer(err error, s3Kind Kind) Kind {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	var storeErr *storage.StoreError
	if errors.As(err, &storeErr) {
		return s3Kind
	}
	return KindFS
}
