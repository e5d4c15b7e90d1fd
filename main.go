// gotelnet - a line-mode Telnet server and client with native SSH
// tunneling.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gotelnet/cmd"
)

func main() {
	os.Exit(run())
}

// run exists so that deferred cleanup still happens before the
// process exits.
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "gotelnet:", err)
		return 1
	}
	return 0
}
