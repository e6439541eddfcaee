package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/xwerkax/BloomlyApp/internal/app"
	"github.com/xwerkax/BloomlyApp/internal/platform/shutdown"
)

// openApp is replaced in tests with an app built on a scratch database.
var openApp = app.New

var rootCmd = &cobra.Command{
	Use:           "bloomlyctl",
	Short:         "Operate the Bloomly watering engine",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.AddCommand(
		trainCmd,
		retrainAllCmd,
		analyzeCmd,
		applyCmd,
		refreshRemindersCmd,
		dueCmd,
		cleanupCmd,
		modelStatsCmd,
		enqueueCmd,
		watchCmd,
	)
}

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(os.Stderr, "%v", err)
		stop()
		os.Exit(1)
	}
}

// withApp wires the application for a single command and tears it down afterwards.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
