package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/odyssey-erp/odyssey-ledger/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cli.NewRootCommand(cli.Options{}).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "ledgerctl:", err)
	}
	stop()
	os.Exit(cli.ExitCode(err))
}
