package cli

import (
	"github.com/spf13/cobra"

	"nifty-options/internal/server"
)

func newServeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve chains and quotes over HTTP",
		Long: `Start the HTTP API.

Routes:
  GET /health
  GET /api/option-chain?symbol=&spot=&expiryDays=
  GET /api/option-chain/atm?symbol=&spot=&expiryDays=
  GET /api/price/{symbol}
  GET /api/nse/option-chain/{symbol}
  GET /api/nse/option-chain/{symbol}/atm?spot=`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
				app.Config.Server.Listen = listen
			}
			srv := server.New(app.Config.Server, app.Config.Generator, app.Generator,
				app.Resolver(cmd.Context()), app.NSE(), app.Logger)
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().String("listen", "", "listen address (default from config, 127.0.0.1:8080)")
	return cmd
}
