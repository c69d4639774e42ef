package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"pkt.systems/pslog"
	"pkt.systems/termsnap"
)

func main() {
	loader := termsnap.NewLoader()
	root := NewRootCommand(loader)
	logger := pslog.LoggerFromEnv(pslog.WithEnvWriter(os.Stderr))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	root.SetContext(pslog.ContextWithLogger(ctx, logger))
	err := root.Execute()
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps a capture failure to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, exec.ErrNotFound) {
		return 127
	}
	stage, ok := termsnap.StageOf(err)
	if !ok {
		return 1
	}
	switch stage {
	case termsnap.StageResource:
		return 3
	case termsnap.StageSpawn:
		return 4
	case termsnap.StageIO:
		return 5
	default:
		return 1
	}
}
