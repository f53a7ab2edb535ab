// Package extract implements composable field rules: pure functions from a
// document node and a locator to a coerced value. A rule that matches nothing
// fails hard unless a default was declared, since silent gaps are how source
// format regressions go unnoticed.
package extract

import (
	"fmt"
	"strconv"
	"strings"

	"finscrape/lib/htmlutil"
	"finscrape/lib/scrape/scrapeerr"

	"github.com/PuerkitoBio/goquery"
)

// Node is the sub-document a rule evaluates against: a DOM selection, a
// decoded json subtree, a raw text blob, or a header-indexed table row.
type Node struct {
	Sel     *goquery.Selection
	JSON    any
	Raw     string
	Cells   []*goquery.Selection
	Columns map[string]int
}

func FromSelection(sel *goquery.Selection) Node {
	return Node{Sel: sel}
}

func FromJSON(v any) Node {
	return Node{JSON: v}
}

func FromRaw(s string) Node {
	return Node{Raw: s}
}

// FromRow builds a node for one table row: the row selection itself plus its
// cells addressed by the header names resolved for the whole table.
func FromRow(row *goquery.Selection, columns map[string]int) Node {
	cells := []*goquery.Selection{}
	row.Find("td, th").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, cell)
	})
	return Node{Sel: row, Cells: cells, Columns: columns}
}

// Rule is a pure function from a node to a coerced value.
type Rule[T any] func(Node) (T, error)

// FieldError marks a missing locator or a failed coercion. It matches
// scrapeerr.ErrExtraction under errors.Is so Default can intercept it while
// unexpected failures still propagate.
type FieldError struct {
	Locator string
	Reason  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("extract %q: %s", e.Locator, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return scrapeerr.ErrExtraction
}

func fieldErr(locator, format string, args ...any) error {
	return &FieldError{Locator: locator, Reason: fmt.Sprintf(format, args...)}
}

// Text extracts the cleaned text of the first node matching a css selector,
// "." meaning the node itself. Matching nothing is an extraction error, an
// empty match is not.
func Text(selector string) Rule[string] {
	return func(n Node) (string, error) {
		sel, err := resolve(n, selector)
		if err != nil {
			return "", err
		}
		return htmlutil.CleanText(sel.First().Text()), nil
	}
}

// OwnText is Text restricted to the node's direct text children.
func OwnText(selector string) Rule[string] {
	return func(n Node) (string, error) {
		sel, err := resolve(n, selector)
		if err != nil {
			return "", err
		}
		return htmlutil.OwnText(sel.First()), nil
	}
}

// Attr extracts an attribute value from the first match of a css selector.
func Attr(selector, name string) Rule[string] {
	return func(n Node) (string, error) {
		sel, err := resolve(n, selector)
		if err != nil {
			return "", err
		}
		val, ok := sel.First().Attr(name)
		if !ok {
			return "", fieldErr(selector, "attribute %q not present", name)
		}
		return val, nil
	}
}

func resolve(n Node, selector string) (*goquery.Selection, error) {
	if n.Sel == nil {
		return nil, fieldErr(selector, "node has no markup")
	}
	if selector == "." {
		return n.Sel, nil
	}
	sel := n.Sel.Find(selector)
	if len(sel.Nodes) == 0 {
		return nil, fieldErr(selector, "no match")
	}
	return sel, nil
}

// Cell narrows a table-row node to the cell under the named header column.
func Cell(name string) Rule[Node] {
	return func(n Node) (Node, error) {
		if n.Columns == nil {
			return Node{}, fieldErr(name, "node is not a table row")
		}
		idx, ok := n.Columns[name]
		if !ok {
			return Node{}, fieldErr(name, "no such column")
		}
		if idx >= len(n.Cells) {
			return Node{}, fieldErr(name, "row has only %d cells", len(n.Cells))
		}
		return FromSelection(n.Cells[idx]), nil
	}
}

// CellText is the common Cell-then-Text composition.
func CellText(name string) Rule[string] {
	return Base(Cell(name), Text("."))
}

// Sub narrows to the first match of a selector, for "base, then relative"
// chains over cells holding two independent values.
func Sub(selector string) Rule[Node] {
	return func(n Node) (Node, error) {
		sel, err := resolve(n, selector)
		if err != nil {
			return Node{}, err
		}
		return FromSelection(sel.First()), nil
	}
}

// Key walks a dotted path through a decoded json object graph; list elements
// are addressed by decimal index. The scalar found is rendered as text so the
// usual coercion rules apply afterwards.
func Key(path string) Rule[string] {
	return func(n Node) (string, error) {
		if n.JSON == nil {
			return "", fieldErr(path, "node holds no json")
		}
		current := n.JSON
		for _, part := range strings.Split(path, ".") {
			switch v := current.(type) {
			case map[string]any:
				next, ok := v[part]
				if !ok {
					return "", fieldErr(path, "key %q not present", part)
				}
				current = next
			case []any:
				idx, err := strconv.Atoi(part)
				if err != nil || idx < 0 || idx >= len(v) {
					return "", fieldErr(path, "bad list index %q", part)
				}
				current = v[idx]
			default:
				return "", fieldErr(path, "cannot descend into %T", current)
			}
		}
		switch v := current.(type) {
		case string:
			return htmlutil.CleanText(v), nil
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), nil
		case bool:
			return strconv.FormatBool(v), nil
		case nil:
			return "", fieldErr(path, "value is null")
		default:
			return "", fieldErr(path, "value is not a scalar (%T)", v)
		}
	}
}

// RawText returns the node's raw text blob.
func RawText() Rule[string] {
	return func(n Node) (string, error) {
		return n.Raw, nil
	}
}
