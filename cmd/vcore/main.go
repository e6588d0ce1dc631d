package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vcore/internal/config"
	verrors "github.com/vango-dev/vcore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "vcore",
		Short: "Server-driven UI engine",
		Long: `vcore renders component trees on the server and streams the
minimal edits to connected browsers over a WebSocket.

Commands serve the demo applications, benchmark the diff engine
and replay recorded sessions.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to vcore.json or vcore.yaml (default: search from the working directory)")

	load := func() (*config.Config, error) {
		return loadConfig(configPath)
	}

	rootCmd.AddCommand(
		serveCmd(load),
		benchCmd(),
		replayCmd(load),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		verrors.Fprint(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads path, or the nearest configuration file above the
// working directory. Without one the defaults are used.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, err := config.FindProjectRoot(wd)
	if err != nil {
		return config.New(), nil
	}
	return config.Load(root)
}

// success prints a success message.
func success(format string, args ...any) {
	fmt.Printf("\033[32m✓\033[0m %s\n", fmt.Sprintf(format, args...))
}
