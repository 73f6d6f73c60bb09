package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mfierros/routina/internal/proxy"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the forwarding server",
	Long: `Run the credential-holding forwarding server in-process, as an
alternative to the dedicated routina-proxy binary.

Reads OPENAI_API_KEY and BING_API_KEY from the environment; these keys
never leave this process.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8787", "listen address")
}

func runServe(cmd *cobra.Command, args []string) error {
	srv := proxy.New(proxy.Config{
		ChatAPIKey:   os.Getenv("OPENAI_API_KEY"),
		SearchAPIKey: os.Getenv("BING_API_KEY"),
	}, logger, collector)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return proxy.ListenAndServe(ctx, serveAddr, srv, logger)
}
