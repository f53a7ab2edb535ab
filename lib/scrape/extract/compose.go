package extract

import (
	"errors"
	"regexp"
	"strings"

	"finscrape/lib/scrape/scrapeerr"

	"github.com/shopspring/decimal"
)

// Default substitutes a declared value when the rule fails with an extraction
// error (missing locator or coercion failure). Any other failure propagates.
func Default[T any](r Rule[T], def T) Rule[T] {
	return func(n Node) (T, error) {
		value, err := r(n)
		if err != nil {
			if errors.Is(err, scrapeerr.ErrExtraction) {
				return def, nil
			}
			var zero T
			return zero, err
		}
		return value, nil
	}
}

// Optional turns extraction failure into an invalid NullDecimal instead of an
// error, for record fields a source legitimately omits.
func Optional(r Rule[decimal.Decimal]) Rule[decimal.NullDecimal] {
	return func(n Node) (decimal.NullDecimal, error) {
		value, err := r(n)
		if err != nil {
			if errors.Is(err, scrapeerr.ErrExtraction) {
				return decimal.NullDecimal{}, nil
			}
			return decimal.NullDecimal{}, err
		}
		return decimal.NullDecimal{Decimal: value, Valid: true}, nil
	}
}

// Map applies a post-processing transform to a rule's value.
func Map[A, B any](r Rule[A], fn func(A) (B, error)) Rule[B] {
	return func(n Node) (B, error) {
		var zero B
		value, err := r(n)
		if err != nil {
			return zero, err
		}
		return fn(value)
	}
}

// Base evaluates a rule relative to the node produced by a base rule:
// "base, then relative".
func Base[T any](base Rule[Node], r Rule[T]) Rule[T] {
	return func(n Node) (T, error) {
		var zero T
		sub, err := base(n)
		if err != nil {
			return zero, err
		}
		return r(sub)
	}
}

// First returns the result of the first rule that does not fail with an
// extraction error.
func First[T any](rules ...Rule[T]) Rule[T] {
	return func(n Node) (T, error) {
		var zero T
		var lastErr error
		for _, r := range rules {
			value, err := r(n)
			if err == nil {
				return value, nil
			}
			if !errors.Is(err, scrapeerr.ErrExtraction) {
				return zero, err
			}
			lastErr = err
		}
		if lastErr == nil {
			lastErr = fieldErr("first", "no rules given")
		}
		return zero, lastErr
	}
}

// Const always yields the given value.
func Const[T any](v T) Rule[T] {
	return func(Node) (T, error) {
		return v, nil
	}
}

// Regexp narrows a rule's text to the first capture group of a pattern, or
// the whole match when the pattern has no groups. No match is an extraction
// error.
func Regexp(r Rule[string], pattern string) Rule[string] {
	re := regexp.MustCompile(pattern)
	return func(n Node) (string, error) {
		text, err := r(n)
		if err != nil {
			return "", err
		}
		groups := re.FindStringSubmatch(text)
		if groups == nil {
			return "", fieldErr(pattern, "no match in %q", text)
		}
		if len(groups) > 1 {
			return groups[1], nil
		}
		return groups[0], nil
	}
}

type Replacement struct {
	Old string
	New string
}

// Replace applies literal substring substitutions before any coercion, e.g.
// stripping thousands-separator spaces.
func Replace(r Rule[string], pairs ...Replacement) Rule[string] {
	return func(n Node) (string, error) {
		text, err := r(n)
		if err != nil {
			return "", err
		}
		for _, p := range pairs {
			text = strings.ReplaceAll(text, p.Old, p.New)
		}
		return text, nil
	}
}
