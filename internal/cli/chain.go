package cli

import (
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"nifty-options/internal/chain"
	apperrors "nifty-options/internal/errors"
	"nifty-options/internal/models"
	"nifty-options/pkg/utils"
)

func addChainFlags(cmd *cobra.Command) {
	cmd.Flags().Int("expiry-days", 0, "days from today to expiry (default from config, 7)")
	cmd.Flags().Bool("live", false, "use the live spot price; positional args become [symbol]")
	cmd.Flags().Bool("table", false, "print a human-readable table instead of JSON")
}

func newATMCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "atm [spotPrice] [symbol]",
		Short: "ATM call/put and the two strikes either side",
		Example: `  optionchain ATM
  optionchain atm 51234 BANKNIFTY
  optionchain atm --live BANKNIFTY`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runATM(cmd, app, args)
		},
	}
	addChainFlags(cmd)
	return cmd
}

func newChainCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain [spotPrice] [symbol]",
		Short: "Full synthetic option chain",
		Example: `  optionchain CHAIN 24300 NIFTY
  optionchain chain 51234 banknifty --expiry-days 14 --seed 42`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			spot, symbol, expiryDays, err := chainArgs(cmd, app, args)
			if err != nil {
				return err
			}

			oc := app.Generator.Chain(spot, symbol, expiryDays)
			output := NewOutput(cmd)
			if table, _ := cmd.Flags().GetBool("table"); table {
				renderChain(output, oc)
				return nil
			}
			return output.JSON(oc)
		},
	}
	addChainFlags(cmd)
	return cmd
}

func runATM(cmd *cobra.Command, app *App, args []string) error {
	spot, symbol, expiryDays, err := chainArgs(cmd, app, args)
	if err != nil {
		return err
	}

	atm := app.Generator.ATMWithExpiry(spot, symbol, expiryDays)
	output := NewOutput(cmd)
	if table, _ := cmd.Flags().GetBool("table"); table {
		renderATM(output, atm)
		return nil
	}
	return output.JSON(atm)
}

// chainArgs resolves spot, symbol and expiry from positional arguments,
// flags and configuration.
func chainArgs(cmd *cobra.Command, app *App, args []string) (float64, string, int, error) {
	spot := app.Config.Generator.DefaultSpot
	symbol := app.Config.Generator.DefaultSymbol

	// With --live the only positional argument is the symbol.
	if live, _ := cmd.Flags().GetBool("live"); live {
		if len(args) > 1 {
			return 0, "", 0, apperrors.NewValidationError("args", strings.Join(args, " "), "--live takes only [symbol]")
		}
		if len(args) == 1 {
			symbol = args[0]
		}
		symbol = strings.ToUpper(strings.TrimSpace(symbol))

		snap, err := app.Resolver(cmd.Context()).Resolve(cmd.Context(), symbol)
		if err != nil {
			return 0, "", 0, err
		}
		app.Logger.Info().Str("symbol", symbol).Float64("spot", snap.Price).Str("status", snap.Status).Msg("Using live spot")
		spot = snap.Price
	} else {
		if len(args) > 1 {
			symbol = args[1]
		}
		symbol = strings.ToUpper(strings.TrimSpace(symbol))

		if len(args) > 0 {
			v, err := parseSpot(args[0])
			if err != nil {
				return 0, "", 0, err
			}
			spot = v
		}
	}

	expiryDays := app.Config.Generator.ExpiryDays
	if cmd.Flags().Changed("expiry-days") {
		expiryDays, _ = cmd.Flags().GetInt("expiry-days")
		if expiryDays < 0 {
			return 0, "", 0, apperrors.NewValidationError("expiry-days", expiryDays, "must be non-negative")
		}
	}

	return spot, symbol, expiryDays, nil
}

// parseSpot accepts any finite float, including zero and negatives.
func parseSpot(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, apperrors.NewValidationError("spotPrice", raw, "must be a finite number")
	}
	return v, nil
}

func renderChain(output *Output, oc *models.OptionChain) {
	output.Bold("%s  spot %s  expiry %s", oc.Symbol, utils.FormatIndianCurrency(oc.SpotPrice), oc.ExpiryDate)
	output.Dim("source: %s  generated: %s", oc.Source, oc.GeneratedAt.In(utils.IndiaLocation).Format("02-Jan-2006 15:04:05"))
	output.Println()

	renderLegs(output, oc.Calls, oc.Puts, chain.NearestStrikeIndex(oc.Strikes(), oc.SpotPrice))
}

func renderATM(output *Output, atm *models.ATMOptions) {
	output.Bold("%s  spot %s  ATM %s  expiry %s", atm.Symbol, utils.FormatIndianCurrency(atm.SpotPrice),
		FormatStrike(atm.ATMStrike), atm.ExpiryDate)
	output.Println()

	atmIdx := -1
	for i, c := range atm.NearbyCalls {
		if c.Strike == atm.ATMStrike {
			atmIdx = i
		}
	}
	renderLegs(output, atm.NearbyCalls, atm.NearbyPuts, atmIdx)
}

func renderLegs(output *Output, calls, puts []models.OptionQuote, atmIdx int) {
	table := NewStraddleTable(output)
	for i := range calls {
		table.AddStrike(calls[i], puts[i], i == atmIdx)
	}
	table.Render()
}

// NormalizeArgs lets a negative spot price through as a positional argument.
// The first negative number is moved behind "--" together with the positional
// arguments after it; flags that followed it stay in front.
func NormalizeArgs(root *cobra.Command, args []string) []string {
	start := -1
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--" {
			return args
		}
		if takesValue(root, a) {
			i++
			continue
		}
		if isNegativeNumber(a) {
			start = i
			break
		}
	}
	if start < 0 {
		return args
	}

	out := append([]string{}, args[:start]...)
	var positional []string
loop:
	for i := start; i < len(args); i++ {
		a := args[i]
		switch {
		case a == "--":
			positional = append(positional, args[i+1:]...)
			break loop
		case isNegativeNumber(a) || !strings.HasPrefix(a, "-"):
			positional = append(positional, a)
		default:
			out = append(out, a)
			if takesValue(root, a) && i+1 < len(args) {
				i++
				out = append(out, args[i])
			}
		}
	}
	out = append(out, "--")
	return append(out, positional...)
}

func isNegativeNumber(a string) bool {
	if len(a) < 2 || a[0] != '-' {
		return false
	}
	_, err := strconv.ParseFloat(a, 64)
	return err == nil
}

// takesValue reports whether a is a "--name" flag, defined anywhere in the
// command tree, whose value is the next argument.
func takesValue(cmd *cobra.Command, a string) bool {
	if !strings.HasPrefix(a, "--") || strings.Contains(a, "=") {
		return false
	}
	name := a[2:]
	for _, fs := range []*pflag.FlagSet{cmd.PersistentFlags(), cmd.Flags()} {
		if f := fs.Lookup(name); f != nil {
			return f.Value.Type() != "bool"
		}
	}
	for _, sub := range cmd.Commands() {
		if takesValue(sub, a) {
			return true
		}
	}
	return false
}
