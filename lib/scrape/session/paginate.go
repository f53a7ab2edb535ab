package session

import (
	"context"

	"finscrape/lib/scrape/page"
)

// NextFunc reports the next-page locator of a data page, or "" when the
// sequence is exhausted.
type NextFunc func(p page.Page) (string, error)

// ItemsFunc extracts the records of one data page.
type ItemsFunc[T any] func(p page.Page) ([]T, error)

// Paginate drives fetch-and-classify cycles from a start page until no next
// locator remains, yielding records lazily. Returning false from yield
// abandons the sequence; that is always safe since yielded records are
// immutable and independent. The sequence is restartable only from the start
// page.
//
// A next locator resolving to the page's own URL terminates the walk: some
// sources repeat the current locator instead of omitting it, and following
// it would loop forever.
func Paginate[T any](
	ctx context.Context,
	d *Driver,
	start page.Page,
	items ItemsFunc[T],
	next NextFunc,
	yield func(T) bool,
) error {
	p := start
	for {
		records, err := items(p)
		if err != nil {
			return err
		}
		for _, record := range records {
			if !yield(record) {
				return nil
			}
		}

		locator, err := next(p)
		if err != nil {
			return err
		}
		if locator == "" {
			return nil
		}
		resolved, err := p.URL().Parse(locator)
		if err != nil {
			return err
		}
		if resolved.String() == p.URL().String() {
			return nil
		}

		p, err = d.Go(ctx, resolved.String(), nil)
		if err != nil {
			return err
		}
	}
}

// Collect materializes a paginated sequence, for callers that want the whole
// finite result.
func Collect[T any](
	ctx context.Context,
	d *Driver,
	start page.Page,
	items ItemsFunc[T],
	next NextFunc,
) ([]T, error) {
	var out []T
	err := Paginate(ctx, d, start, items, next, func(record T) bool {
		out = append(out, record)
		return true
	})
	return out, err
}
