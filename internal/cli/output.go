package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"nifty-options/internal/models"
)

// ANSI styles used by the table renderer.
const (
	styleReset  = "\033[0m"
	styleYellow = "\033[33m"
	styleCyan   = "\033[36m"
	styleBold   = "\033[1m"
	styleDim    = "\033[2m"
)

var ansiEscape = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// Output writes command results. JSON is the default; tables are for humans.
type Output struct {
	writer       io.Writer
	colorEnabled bool
}

// NewOutput writes to the command's stdout, coloring only real terminals.
func NewOutput(cmd *cobra.Command) *Output {
	w := cmd.OutOrStdout()
	return &Output{writer: w, colorEnabled: isTerminal(w)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// JSON outputs data as JSON with two-space indentation.
func (o *Output) JSON(data interface{}) error {
	encoder := json.NewEncoder(o.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// ErrorJSON prints err as an error object.
func (o *Output) ErrorJSON(symbol string, err error) {
	_ = o.JSON(models.NewErrorResult(symbol, err, time.Now()))
}

// Println prints a message with newline.
func (o *Output) Println(args ...interface{}) {
	fmt.Fprintln(o.writer, args...)
}

// Bold prints a bold line.
func (o *Output) Bold(format string, args ...interface{}) {
	o.Println(o.paint(styleBold, fmt.Sprintf(format, args...)))
}

// Dim prints a dimmed line.
func (o *Output) Dim(format string, args ...interface{}) {
	o.Println(o.paint(styleDim, fmt.Sprintf(format, args...)))
}

func (o *Output) paint(style, text string) string {
	if !o.colorEnabled {
		return text
	}
	return style + text + styleReset
}

// StraddleTable lays out calls and puts on either side of a strike column.
type StraddleTable struct {
	output  *Output
	headers []string
	rows    [][]string
}

var straddleHeaders = []string{
	"OI", "IV", "DELTA", "BID", "ASK", "CALL", "STRIKE", "PUT", "BID", "ASK", "DELTA", "IV", "OI",
}

// NewStraddleTable creates an empty table.
func NewStraddleTable(output *Output) *StraddleTable {
	return &StraddleTable{output: output, headers: straddleHeaders}
}

// AddStrike adds one strike row. ITM premiums are highlighted and the ATM
// strike is marked with '*'.
func (t *StraddleTable) AddStrike(call, put models.OptionQuote, atm bool) {
	strike := FormatStrike(call.Strike)
	if atm {
		strike = t.output.paint(styleCyan, "*"+strike)
	}
	t.rows = append(t.rows, []string{
		FormatOI(call.OpenInterest), FormatIV(call.ImpliedVolatility), FormatDelta(call.Delta),
		FormatPrice(call.Bid), FormatPrice(call.Ask), t.premium(call),
		strike,
		t.premium(put), FormatPrice(put.Bid), FormatPrice(put.Ask),
		FormatDelta(put.Delta), FormatIV(put.ImpliedVolatility), FormatOI(put.OpenInterest),
	})
}

func (t *StraddleTable) premium(q models.OptionQuote) string {
	if q.Moneyness == models.ITM {
		return t.output.paint(styleYellow, FormatPrice(q.LastPrice))
	}
	return FormatPrice(q.LastPrice)
}

// Render writes the table with right-aligned cells.
func (t *StraddleTable) Render() {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = displayWidth(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if w := displayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	header := t.align(t.headers, widths)
	t.output.Println(t.output.paint(styleBold, header))

	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	t.output.Println(t.output.paint(styleDim, strings.Join(rule, "--")))

	for _, row := range t.rows {
		t.output.Println(t.align(row, widths))
	}
}

func (t *StraddleTable) align(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		pad := widths[i] - displayWidth(cell)
		if pad < 0 {
			pad = 0
		}
		parts[i] = strings.Repeat(" ", pad) + cell
	}
	return strings.Join(parts, "  ")
}

// displayWidth counts runes after removing ANSI escape codes.
func displayWidth(s string) int {
	return len([]rune(ansiEscape.ReplaceAllString(s, "")))
}
