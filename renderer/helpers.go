package renderer

import (
	"bytes"
	"io"

	"github.com/etnz/fundtrade"
)

// ConditionalBlock let you fully write a block and decide at the end to print it or not.
// If the block function returns true, the content is printed to w, otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}

// price formats a NAV with two decimals, whatever the currency's minor unit.
func price(m fundtrade.Money) string {
	if m.IsZero() {
		return "-"
	}
	return m.Decimal().StringFixed(2) + " " + m.Currency()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
