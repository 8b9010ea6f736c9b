// Command optionchain prints synthetic and live option-chain data as JSON.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"nifty-options/internal/cli"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cli.Execute(ctx, cli.NewRootCmd(), os.Args[1:])
}
