package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/merak-travel/merak/cmd"
	"github.com/merak-travel/merak/internal/buildinfo"
	"github.com/merak-travel/merak/internal/conf"
	"github.com/merak-travel/merak/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = ""
	commit    = ""
)

func main() {
	os.Exit(mainWithExitCode())
}

func mainWithExitCode() int {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	build := buildinfo.NewContext(version, buildDate, commit)
	rootCmd := cmd.RootCommand(settings, build)

	err = rootCmd.ExecuteContext(ctx)

	if cerr := logger.Global().Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "error closing logger: %v\n", cerr)
	}
	if err != nil {
		return 1
	}
	return 0
}
