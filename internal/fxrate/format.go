package fxrate

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FractionDigits returns the minimum and maximum fraction digits shown for
// a currency: JPY 0-2, everything else 2-4.
func FractionDigits(ccy string) (lo, hi int) {
	if ccy == "JPY" {
		return 0, 2
	}
	return 2, 4
}

// Format renders v with en-US grouping and the currency's fraction digits.
// Rounding is half away from zero.
func Format(v decimal.Decimal, ccy string) string {
	lo, hi := FractionDigits(ccy)
	rounded := v.Round(int32(hi))
	return printer.Sprint(number.Decimal(rounded.InexactFloat64(),
		number.MinFractionDigits(lo),
		number.MaxFractionDigits(hi),
	))
}
