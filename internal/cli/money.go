package cli

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.BritishEnglish)

// FormatMoney renders minor units as pounds, e.g. -£1,234.56.
func FormatMoney(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return sign + "£" + moneyPrinter.Sprintf("%d", v/100) + fmt.Sprintf(".%02d", v%100)
}

// FormatOptionalMoney renders a possibly unknown amount.
func FormatOptionalMoney(v *int64) string {
	if v == nil {
		return "n/a"
	}
	return FormatMoney(*v)
}
