package cli

import (
	"fmt"

	"nifty-options/pkg/utils"
)

// FormatVolume formats volume in compact form.
func FormatVolume(volume int64) string {
	if volume >= 10000000 { // 1 crore
		return fmt.Sprintf("%.2f Cr", float64(volume)/10000000)
	} else if volume >= 100000 { // 1 lakh
		return fmt.Sprintf("%.2f L", float64(volume)/100000)
	} else if volume >= 1000 {
		return fmt.Sprintf("%.2f K", float64(volume)/1000)
	}
	return fmt.Sprintf("%d", volume)
}

// FormatOI formats open interest.
func FormatOI(oi int) string {
	return FormatVolume(int64(oi))
}

// FormatPrice formats an option premium.
func FormatPrice(price float64) string {
	return fmt.Sprintf("%.2f", price)
}

// FormatStrike formats a strike with Indian digit grouping.
func FormatStrike(strike float64) string {
	return utils.FormatQuantity(int64(strike))
}

// FormatIV formats implied volatility already expressed in percent.
func FormatIV(iv float64) string {
	return fmt.Sprintf("%.2f%%", iv)
}

// FormatDelta formats a delta.
func FormatDelta(delta float64) string {
	return fmt.Sprintf("%.3f", delta)
}
