package main

import (
	"context"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/nantokaworks/brother-label/internal/shared/logger"
	"github.com/nantokaworks/brother-label/internal/version"
)

func main() {
	defer logger.Sync()

	if err := fang.Execute(
		context.Background(),
		newRootCmd(),
		fang.WithVersion(version.String()),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}
