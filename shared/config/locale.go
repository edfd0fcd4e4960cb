package config

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Locale carries the currency and language used to render money for one
// organization. It is passed explicitly to anything that formats amounts.
type Locale struct {
	Currency string `json:"currency"`
	Language string `json:"language"`
}

// DefaultLocale is used when an organization has no settings
var DefaultLocale = Locale{Currency: "USD", Language: "en-US"}

// NewLocale builds a Locale, falling back to DefaultLocale for unknown values
func NewLocale(currencyCode, lang string) Locale {
	l := DefaultLocale
	if _, err := currency.ParseISO(currencyCode); err == nil {
		l.Currency = currencyCode
	}
	if _, err := language.Parse(lang); err == nil {
		l.Language = lang
	}
	return l
}

// ParseLocale is the strict form of NewLocale used when settings are written
func ParseLocale(currencyCode, lang string) (Locale, error) {
	unit, err := currency.ParseISO(strings.ToUpper(currencyCode))
	if err != nil {
		return Locale{}, fmt.Errorf("unknown currency %q", currencyCode)
	}
	tag, err := language.Parse(lang)
	if err != nil {
		return Locale{}, fmt.Errorf("unknown locale %q", lang)
	}
	return Locale{Currency: unit.String(), Language: tag.String()}, nil
}

func (l Locale) tag() language.Tag {
	tag, err := language.Parse(l.Language)
	if err != nil {
		return language.AmericanEnglish
	}
	return tag
}

func (l Locale) unit() currency.Unit {
	unit, err := currency.ParseISO(l.Currency)
	if err != nil {
		return currency.USD
	}
	return unit
}

var hundred = decimal.NewFromInt(100)

// FormatMoney renders amount with the currency symbol and the language's
// digit grouping and decimal separator, e.g. "$ 1,234.50" for en-US/USD.
// Whole units and cents are formatted as integers so no precision is lost.
func (l Locale) FormatMoney(amount decimal.Decimal) string {
	p := message.NewPrinter(l.tag())

	cents := amount.Round(2).Shift(2)
	sign := ""
	if cents.IsNegative() {
		sign = "-"
		cents = cents.Neg()
	}
	whole := cents.Div(hundred).Truncate(0)
	frac := cents.Sub(whole.Mul(hundred)).IntPart()

	return fmt.Sprintf("%s %s%s%s%02d",
		p.Sprint(currency.Symbol(l.unit())),
		sign,
		p.Sprint(number.Decimal(whole.IntPart())),
		decimalSeparator(p),
		frac)
}

// decimalSeparator returns the printer's separator between units and fractions
func decimalSeparator(p *message.Printer) string {
	s := p.Sprint(number.Decimal(1.5, number.Scale(1)))
	return strings.TrimSuffix(strings.TrimPrefix(s, "1"), "5")
}

// FormatAmounts formats a set of named amounts in one go
func (l Locale) FormatAmounts(amounts map[string]decimal.Decimal) map[string]string {
	out := make(map[string]string, len(amounts))
	for k, v := range amounts {
		out[k] = l.FormatMoney(v)
	}
	return out
}
