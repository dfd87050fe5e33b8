package presentation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	ErrInvalidLocale   = errors.New("invalid_locale")
	ErrInvalidCurrency = errors.New("invalid_currency")
)

// Formatter renders raw numbers for one locale and currency. It is the only
// place numbers become strings.
type Formatter struct {
	tag     language.Tag
	unit    currency.Unit
	scale   int
	printer *message.Printer
	caser   cases.Caser
}

func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidLocale, err)
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCurrency, err)
	}
	scale, _ := currency.Standard.Rounding(unit)

	return &Formatter{
		tag:     tag,
		unit:    unit,
		scale:   scale,
		printer: message.NewPrinter(tag),
		caser:   cases.Title(tag),
	}, nil
}

func (f *Formatter) Locale() string   { return f.tag.String() }
func (f *Formatter) Currency() string { return f.unit.String() }

// Money rounds half away from zero to the currency's minor unit.
func (f *Formatter) Money(v float64) string {
	amount := round(v, f.scale)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	symbol := f.printer.Sprint(currency.NarrowSymbol(f.unit))
	return sign + symbol + f.number(amount, f.scale)
}

// Percent renders a value already expressed in percent.
func (f *Formatter) Percent(v float64) string {
	return f.number(round(v, 2), 2) + "%"
}

func (f *Formatter) SignedPercent(v float64) string {
	if v > 0 {
		return "+" + f.Percent(v)
	}
	return f.Percent(v)
}

func (f *Formatter) Ratio(v float64) string {
	return f.number(round(v, 2), 2) + "x"
}

func (f *Formatter) Count(v float64) string {
	return f.number(round(v, 0), 0)
}

func (f *Formatter) Date(t time.Time) string {
	return t.UTC().Format("02 Jan 2006")
}

func (f *Formatter) Range(start, end time.Time) string {
	return f.Date(start) + " - " + f.Date(end)
}

func (f *Formatter) Title(s string) string {
	return f.caser.String(s)
}

func (f *Formatter) number(v float64, scale int) string {
	return f.printer.Sprintf(fmt.Sprintf("%%.%df", scale), v)
}

func round(v float64, places int) float64 {
	return decimal.NewFromFloat(v).Round(int32(places)).InexactFloat64()
}
