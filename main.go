// Command haze runs the realtime introduction-matching server.
//
//	haze serve            start the HTTP and WebSocket server
//	haze serve --port 8080 --store memory
//	haze version
//
// Settings come from the environment and from .env.<APP_ENV> when present.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/haze-team/haze-server/src/app"
	"github.com/haze-team/haze-server/src/config"
	"github.com/haze-team/haze-server/src/lib"
	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "haze",
		Short:         "Realtime introduction matching and WebRTC signaling server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(buildServeCmd(), buildVersionCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func buildServeCmd() *cobra.Command {
	var (
		port  string
		store string
		debug bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the matching server",
		Long: `Start the matching server.

Configuration is read from the environment (see .env.example). Flags
override the matching environment variables. The server stops gracefully
on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
			}
			if store != "" {
				cfg.StoreDriver = store
			}
			if debug {
				cfg.LogLevel = "debug"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides PORT)")
	cmd.Flags().StringVar(&store, "store", "", "Store driver: mongo or memory (overrides STORE_DRIVER)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config) error {
	logger := lib.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	server, err := app.New(ctx, cfg, logger, version)
	if err != nil {
		return err
	}
	return server.Run(ctx)
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "haze %s (commit %s)\n", version, commit)
		},
	}
}
