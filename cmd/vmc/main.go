// Command vmc deploys and configures applications on a vmc control plane.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jongio/vmc/cliout"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root, s := newRootCommand()
	err := execute(ctx, root, s)
	stop()
	if err != nil {
		if cliout.IsJSON() {
			_ = cliout.PrintJSON(map[string]string{"error": err.Error()})
		} else {
			cliout.Error("%v", err)
		}
		os.Exit(1)
	}
}
