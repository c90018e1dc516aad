package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/iris-marketplace/iris-client/internal/cli"
)

var version = "dev" // set during build

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Run(ctx, version, cli.Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}, os.Args[1:])
	stop()
	os.Exit(code)
}
