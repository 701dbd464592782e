// Package cmd implements the one-shot CLI host.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kklingenberg/s3-event-bridge/internal/app"
	"github.com/kklingenberg/s3-event-bridge/pkg/engine"
)

var rootCmd = &cobra.Command{
	Use:   "s3-event-bridge [flags] -- command [args...]",
	Short: "Run a command with files pulled from S3, pushing its outputs back",
	Long: `Run a command with files pulled from S3, uploading the results to
S3 after it exits.

The bucket and key prefix to pull are read from the environment
variables named by BUCKET_VAR and KEY_PREFIX_VAR (BUCKET and
KEY_PREFIX unless overridden). The command is executed through the
platform shell with those variables plus the input folder announced in
its environment.

Example:
  BUCKET=my-bucket KEY_PREFIX=data/run1/ s3-event-bridge -- ./process.sh`,
	Args:          cobra.ArbitraryArgs,
	RunE:          runOnce,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.Flags().SetInterspersed(false)
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	application, err := app.Build(ctx, args)
	if err != nil {
		return err
	}
	defer application.Logger.Sync() //nolint:errcheck

	settings := application.Settings
	bucket := os.Getenv(settings.BucketVar)
	if bucket == "" {
		return fmt.Errorf("%s is required", settings.BucketVar)
	}
	prefix := os.Getenv(settings.KeyPrefixVar)

	group := engine.Group{Bucket: bucket, Prefix: prefix}
	result := application.Engine.RunGroup(ctx, group)
	if result.Err != nil {
		return result.Err
	}
	application.Logger.Info("Group completed",
		zap.String("outcome", string(result.Outcome)),
		zap.Strings("uploaded", result.Uploaded))
	return nil
}

// Execute runs the CLI under the given context and returns the
// process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}
