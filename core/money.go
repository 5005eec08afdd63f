package core

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// ParseCurrency returns the normalized ISO 4217 code.
func ParseCurrency(code string) (string, error) {
	unit, err := currency.ParseISO(strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%w: currency %q", ErrInvalid, code)
	}
	return unit.String(), nil
}

// MinorDigits returns the number of decimal places of the currency, for example 2 for EUR and 0 for JPY.
func MinorDigits(code string) int {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// ParseAmount parses a positive decimal number like "12.50" or "12,5" into minor units of the currency.
func ParseAmount(s string, code string) (int64, error) {

	var digits = MinorDigits(code)

	s = strings.TrimSpace(strings.Replace(s, ",", ".", 1))
	var whole, frac = s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > digits {
		return 0, fmt.Errorf("%w: amount %q has more than %d decimal places", ErrInvalid, s, digits)
	}
	if strings.ContainsAny(whole+frac, "+- ") {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalid, s)
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q", ErrInvalid, s)
	}
	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac+strings.Repeat("0", digits-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: amount %q", ErrInvalid, s)
		}
	}

	var scale = int64(math.Pow10(digits))
	if w > (math.MaxInt64-f)/scale {
		return 0, fmt.Errorf("%w: amount %q is too large", ErrInvalid, s)
	}
	return w*scale + f, nil
}

// FormatAmount formats an amount of minor units with the currency symbol and the number format of the language, like "€ 1,234.50" or "€ 1.234,50".
func FormatAmount(tag language.Tag, amount int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%d %s", amount, code)
	}
	var p = message.NewPrinter(tag)
	var digits = MinorDigits(code)
	var scale = uint64(math.Pow10(digits))

	// integer parts only, float64 is inexact above 2^53
	var sign string
	var abs = uint64(amount)
	if amount < 0 {
		sign = "-"
		abs = -abs
	}
	var value = sign + p.Sprint(number.Decimal(abs/scale))
	if digits > 0 {
		value += decimalSeparator(p) + p.Sprint(number.Decimal(abs%scale, number.MinIntegerDigits(digits), number.NoSeparator()))
	}
	return p.Sprintf("%v %v", currency.Symbol(unit), value)
}

// decimalSeparator returns the decimal separator of the printer's language.
func decimalSeparator(p *message.Printer) string {
	var sample = []rune(p.Sprint(number.Decimal(1.5, number.Scale(1))))
	if len(sample) < 3 {
		return "."
	}
	return string(sample[1 : len(sample)-1])
}
