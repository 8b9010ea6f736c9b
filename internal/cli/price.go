package cli

import (
	"time"

	"github.com/spf13/cobra"

	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
	"nifty-options/internal/source"
)

func newPriceCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "price [symbol]",
		Short: "Spot price with retry, cache and mock fallback",
		Long: `Fetch the spot price of an index or stock.

Supported symbols: NIFTY (default), BANKNIFTY, RELIANCE, TCS, HDFCBANK, INFY.
Unknown symbols resolve to NIFTY. When every upstream fails the last cached
quote is returned (status "cached"), else a mock quote (status "mock").`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := models.Nifty.Key
			if len(args) > 0 {
				symbol = args[0]
			}
			snap, err := app.Resolver(cmd.Context()).Resolve(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			return NewOutput(cmd).JSON(snap)
		},
	}
}

// nseATMResult pairs the spot quote with the ATM rows of the exchange chain.
type nseATMResult struct {
	Spot      *models.PriceSnapshot `json:"spot"`
	ATM       *models.NSEATM        `json:"atm"`
	Timestamp time.Time             `json:"timestamp"`
}

func newNSECmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "nse",
		Short: "Live option chains from the NSE website",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "options [symbol]",
		Short: "Fetch the NSE option chain for an index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := models.Nifty.Key
			if len(args) > 0 {
				symbol = args[0]
			}
			oc, err := app.NSE().FetchOptionChain(cmd.Context(), symbol)
			if err != nil {
				NewOutput(cmd).ErrorJSON(symbol, err)
				return nil
			}
			return NewOutput(cmd).JSON(oc)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "atm [symbol]",
		Short: "Spot price plus the ATM rows of the NSE option chain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			symbol := models.Nifty.Key
			if len(args) > 0 {
				symbol = args[0]
			}
			output := NewOutput(cmd)

			snap, err := app.Resolver(cmd.Context()).Resolve(cmd.Context(), symbol)
			if err != nil {
				return err
			}
			if snap.Status != models.StatusSuccess && snap.Status != models.StatusCached {
				output.ErrorJSON(symbol, errSpotUnavailable(snap))
				return nil
			}

			oc, err := app.NSE().FetchOptionChain(cmd.Context(), symbol)
			if err != nil {
				output.ErrorJSON(symbol, err)
				return nil
			}

			atm, err := source.ATMFromNSE(snap.Price, oc.Options)
			if err != nil {
				output.ErrorJSON(symbol, err)
				return nil
			}
			return output.JSON(nseATMResult{Spot: snap, ATM: atm, Timestamp: time.Now()})
		},
	})

	return cmd
}

func errSpotUnavailable(snap *models.PriceSnapshot) error {
	return apperrors.Wrapf(apperrors.ErrNoData, "live spot unavailable for %s (got %s quote)", snap.Symbol, snap.Status)
}
