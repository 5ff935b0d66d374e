// Command lottery exports campaign applicants, draws winners, records the
// outcome and purges losers.
package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/logger"

	"campaignlottery/internal/cli"
	"campaignlottery/internal/config"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		config.Exitf("Error: %v", err)
	}
}

// run executes one command. Deferred cleanup finishes before main exits.
func run(args []string) error {
	defer logger.Init("lottery", true, false, io.Discard).Close()

	opts, err := cli.ParseConfig(args, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ctx, cancel := context.WithTimeout(ctx, opts.Timeout())
	defer cancel()

	return cli.Run(ctx, opts, os.Stdin, os.Stdout, os.Stderr)
}
