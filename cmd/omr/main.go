package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go-omr-engine/internal/container"
	"go-omr-engine/internal/logger"
	"go-omr-engine/pkg/omr"
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "omr",
	Short:   "Bubble sheet scoring engine",
	Version: Version,
}

// buildEngine assembles an engine from the environment plus the flags shared
// by the process and batch commands.
func buildEngine(keyFile, artifactDir string, strict bool) (*omr.Engine, error) {
	c, err := container.NewContainer(container.Overrides{
		KeyFile:     keyFile,
		ArtifactDir: artifactDir,
		Strict:      strict,
	})
	if err != nil {
		return nil, err
	}
	return c.Engine(), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
