package main

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/api"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the ledger as a JSON HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if !strings.EqualFold(a.cfg.Logging.Level, "debug") {
				gin.SetMode(gin.ReleaseMode)
			}

			l, closeFn, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := api.NewServer(l).Serve(ctx, a.cfg.Server.Addr); err != nil {
				return err
			}
			slog.Info("API server stopped")
			return nil
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = a.v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	return cmd
}
