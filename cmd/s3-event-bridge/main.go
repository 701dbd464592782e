// The s3-event-bridge binary is the one-shot host: it pulls a bucket
// prefix, runs the handler command given as its arguments, and pushes
// the changed files back.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/kklingenberg/s3-event-bridge/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(cmd.Execute(ctx))
}
