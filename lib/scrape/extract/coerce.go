package extract

import (
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DecimalStyle selects the locale convention used to read a number.
type DecimalStyle int

const (
	// DotDecimal: dot as decimal mark, comma/space as thousands separator.
	DotDecimal DecimalStyle = iota
	// FrenchDecimal: comma as decimal mark, space/dot/nbsp as thousands
	// separator ("+4 242,00").
	FrenchDecimal
)

var decimalKeep = regexp.MustCompile(`[0-9+.,\- \x{00a0}\x{202f}]+`)

// Decimal coerces the text produced by a rule into a decimal number under the
// given locale style. Text with no digits fails as an extraction error so a
// declared Default can take over.
func Decimal(r Rule[string], style DecimalStyle) Rule[decimal.Decimal] {
	return func(n Node) (decimal.Decimal, error) {
		text, err := r(n)
		if err != nil {
			return decimal.Decimal{}, err
		}

		matched := decimalKeep.FindString(text)
		cleaned := strings.Map(func(c rune) rune {
			switch c {
			case ' ', ' ', ' ':
				return -1
			}
			return c
		}, strings.TrimSpace(matched))

		switch style {
		case FrenchDecimal:
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		default:
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}

		if cleaned == "" || cleaned == "+" || cleaned == "-" {
			return decimal.Decimal{}, fieldErr("decimal", "no number in %q", text)
		}
		value, err := decimal.NewFromString(cleaned)
		if err != nil {
			return decimal.Decimal{}, fieldErr("decimal", "cannot parse %q: %v", text, err)
		}
		return value, nil
	}
}

// Percent converts a raw percentage into a fraction. Part of the extraction
// contract: ratio fields are stored divided by 100, not at render time.
func Percent(r Rule[decimal.Decimal]) Rule[decimal.Decimal] {
	hundred := decimal.NewFromInt(100)
	return func(n Node) (decimal.Decimal, error) {
		value, err := r(n)
		if err != nil {
			return decimal.Decimal{}, err
		}
		return value.Div(hundred), nil
	}
}

var currencySymbols = map[string]string{
	"€": "EUR",
	"$": "USD",
	"£": "GBP",
	"¥": "JPY",
}

var currencyCode = regexp.MustCompile(`\b(EUR|USD|GBP|JPY|CHF|CAD|AUD)\b`)

// Currency detects an ISO currency code from a symbol or literal code inside
// the text produced by a rule.
func Currency(r Rule[string]) Rule[string] {
	return func(n Node) (string, error) {
		text, err := r(n)
		if err != nil {
			return "", err
		}
		for symbol, code := range currencySymbols {
			if strings.Contains(text, symbol) {
				return code, nil
			}
		}
		if code := currencyCode.FindString(text); code != "" {
			return code, nil
		}
		return "", fieldErr("currency", "no currency in %q", text)
	}
}

type DateOptions struct {
	// DayFirst resolves "xx/yy/zzzz" ambiguity in favor of day-first.
	// Either way the other interpretation is tried when the preferred one
	// does not parse, matching how lenient date parsers behave.
	DayFirst bool
	Location *time.Location
}

var dayFirstLayouts = []string{"02/01/2006", "2/1/2006", "02/01/06", "02-01-2006", "2006-01-02", "02.01.2006"}
var monthFirstLayouts = []string{"01/02/2006", "1/2/2006", "01/02/06", "01-02-2006", "2006-01-02", "01.02.2006"}

// Date coerces the text produced by a rule into a calendar date.
func Date(r Rule[string], opts DateOptions) Rule[time.Time] {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	layouts := monthFirstLayouts
	fallback := dayFirstLayouts
	if opts.DayFirst {
		layouts, fallback = dayFirstLayouts, monthFirstLayouts
	}

	return func(n Node) (time.Time, error) {
		text, err := r(n)
		if err != nil {
			return time.Time{}, err
		}
		text = strings.TrimSpace(text)
		for _, layout := range layouts {
			if t, err := time.ParseInLocation(layout, text, loc); err == nil {
				return t, nil
			}
		}
		for _, layout := range fallback {
			if t, err := time.ParseInLocation(layout, text, loc); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fieldErr("date", "cannot parse %q", text)
	}
}
