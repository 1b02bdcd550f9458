package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/rfp-responder/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the inbound email webhook",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		addr, _ := cmd.Flags().GetString("addr")
		return serve(ctx, addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address, overrides server.addr")
}

func serve(ctx context.Context, addr string) error {
	rt, err := newSession(ctx, needs{ai: true, mail: true, soft: true})
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.config.Server
	if addr != "" {
		cfg.Addr = addr
	}

	rt.logger.Info("starting the rfp-responder",
		zap.String("version", version),
		zap.String("database", rt.config.Database.Path),
	)

	srv, err := server.New(rt.service, cfg, rt.logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
