package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/marco/mediaVault/internal/media"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	cmd := newRootCommand()
	err := cmd.ExecuteContext(ctx)
	stop()
	os.Exit(exitCode(cmd.ErrOrStderr(), err))
}

// exitCode prints err and maps it to the process status: 0 on success, 2
// when a batch finished with per-file failures, 1 for anything fatal.
func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, media.ErrPartialFailure):
		fmt.Fprintln(w, "Warning:", err)
		return 2
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Interrupted")
		return 1
	default:
		fmt.Fprintln(w, "Error:", err)
		return 1
	}
}
