// Package assemble turns a repeating node-set into a sequence of typed
// records through a per-item build function, with inclusion predicates and a
// shared context scoped to one assembly pass.
package assemble

import (
	"fmt"
	"regexp"
	"strings"

	"finscrape/lib/htmlutil"
	"finscrape/lib/scrape/extract"
	"finscrape/lib/scrape/page"

	"github.com/PuerkitoBio/goquery"
)

// Pass is the cross-record shared context of one assembly run (e.g. a label
// lookup built while iterating). It is created per run and discarded, never
// shared across runs.
type Pass struct {
	Shared map[string]string
}

func newPass() *Pass {
	return &Pass{Shared: map[string]string{}}
}

// Item is one node of the repeating set, with its index and the pass context.
type Item struct {
	extract.Node
	Index int
	Pass  *Pass
}

// Schema drives one assembly: an optional inclusion predicate evaluated
// before any field extraction, and the build function producing the record.
// Computed fields that depend on other fields of the same record are ordered
// inside Build, which keeps the dependency explicit and acyclic.
type Schema[T any] struct {
	Condition func(Item) bool
	Build     func(Item) (T, error)
}

// Run assembles records from the node-set. Records are flat copies: nothing
// yielded retains a reference into the parsed document.
func Run[T any](nodes []extract.Node, s Schema[T]) ([]T, error) {
	pass := newPass()
	var out []T
	for i, n := range nodes {
		item := Item{Node: n, Index: i, Pass: pass}
		if s.Condition != nil && !s.Condition(item) {
			continue
		}
		record, err := s.Build(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out = append(out, record)
	}
	return out, nil
}

// List selects a repeating node-set from markup.
func List(doc *page.Document, selector string) []extract.Node {
	var nodes []extract.Node
	if doc.HTML == nil {
		return nodes
	}
	doc.HTML.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		nodes = append(nodes, extract.FromSelection(sel))
	})
	return nodes
}

// Table selects table rows with cells addressable by column name. columns
// maps logical field names to header-text patterns; with a nil map the
// cleaned header text itself becomes the column name. A declared column
// missing from the header is a hard error: it means the table layout changed.
func Table(doc *page.Document, itemSel, headSel string, columns map[string]string) ([]extract.Node, error) {
	if doc.HTML == nil {
		return nil, fmt.Errorf("table %q: document has no markup", itemSel)
	}

	headers := []string{}
	doc.HTML.Find(headSel).Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, htmlutil.CleanText(th.Text()))
	})

	resolved := map[string]int{}
	if columns == nil {
		for i, h := range headers {
			if _, taken := resolved[h]; !taken {
				resolved[h] = i
			}
		}
	} else {
		for name, pattern := range columns {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			found := false
			for i, h := range headers {
				if re.MatchString(h) {
					resolved[name] = i
					found = true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf(
					"table %q: no header matching %q for column %q",
					itemSel, pattern, name,
				)
			}
		}
	}

	var nodes []extract.Node
	doc.HTML.Find(itemSel).Each(func(_ int, row *goquery.Selection) {
		nodes = append(nodes, extract.FromRow(row, resolved))
	})
	return nodes, nil
}

// Dict selects the elements of a json array addressed by dotted key path.
func Dict(doc *page.Document, path string) ([]extract.Node, error) {
	value, err := descend(doc.JSON, path)
	if err != nil {
		return nil, err
	}
	list, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("json path %q: not a list (%T)", path, value)
	}
	nodes := make([]extract.Node, len(list))
	for i, element := range list {
		nodes[i] = extract.FromJSON(element)
	}
	return nodes, nil
}

func descend(root any, path string) (any, error) {
	if root == nil {
		return nil, fmt.Errorf("json path %q: document has no json", path)
	}
	if path == "" || path == "." {
		return root, nil
	}
	current := root
	for _, part := range strings.Split(path, ".") {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("json path %q: cannot descend into %T", path, current)
		}
		current, ok = object[part]
		if !ok {
			return nil, fmt.Errorf("json path %q: key %q not present", path, part)
		}
	}
	return current, nil
}

// RawItems wraps pre-split raw text parts, for sources serializing records
// as delimiter-separated blobs.
func RawItems(parts []string) []extract.Node {
	nodes := make([]extract.Node, len(parts))
	for i, part := range parts {
		nodes[i] = extract.FromRaw(part)
	}
	return nodes
}
