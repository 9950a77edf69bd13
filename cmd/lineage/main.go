// Command lineage runs images through the forensics service from a terminal.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultClient).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
