// Package markup turns HTML into loosely-typed field maps using structural
// CSS queries. Missing nodes yield zero values; a partial record is always
// preferred over a dropped one.
package markup

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Rule selects how a field's value is pulled from its matched node.
type Rule int

const (
	// Text extracts the node's text content with whitespace collapsed.
	Text Rule = iota
	// Attr extracts the named attribute of the first matched node.
	Attr
	// Count extracts the number of matching sub-nodes.
	Count
)

// Field maps one record field to a selector and extraction rule.
type Field struct {
	Selector string
	Rule     Rule
	// AttrName names the attribute read when Rule is Attr.
	AttrName string
	// ResolveURL rewrites the extracted value to an absolute URL.
	ResolveURL bool
}

// Shape describes one record type as a set of named fields.
type Shape map[string]Field

// FieldMap is the loosely-typed extraction result for one node. Conversion
// into fixed record shapes happens once, at the crawler boundary.
type FieldMap map[string]any

// Str returns the named field as a string, empty when absent.
func (m FieldMap) Str(name string) string {
	if v, ok := m[name].(string); ok {
		return v
	}
	return ""
}

// Int returns the named field as an int, zero when absent.
func (m FieldMap) Int(name string) int {
	if v, ok := m[name].(int); ok {
		return v
	}
	return 0
}

// Parse builds a goquery document from raw HTML.
func Parse(html string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

// ExtractAll applies shape to every node matching itemSelector under sel,
// in document order.
func ExtractAll(sel *goquery.Selection, itemSelector string, shape Shape, base *url.URL) []FieldMap {
	var out []FieldMap
	sel.Find(itemSelector).Each(func(_ int, item *goquery.Selection) {
		out = append(out, ExtractOne(item, shape, base))
	})
	return out
}

// ExtractOne applies shape to a single node. Each missing sub-node produces
// the field's zero value rather than an error.
func ExtractOne(item *goquery.Selection, shape Shape, base *url.URL) FieldMap {
	fields := make(FieldMap, len(shape))
	for name, field := range shape {
		switch field.Rule {
		case Count:
			fields[name] = item.Find(field.Selector).Length()
		case Attr:
			value := item.Find(field.Selector).First().AttrOr(field.AttrName, "")
			if field.ResolveURL {
				value = ResolveURL(base, value)
			}
			fields[name] = value
		default:
			fields[name] = CleanText(item.Find(field.Selector).First().Text())
		}
	}
	return fields
}

// ResolveURL resolves ref against base. Empty refs stay empty; an unparsable
// ref is returned as-is.
func ResolveURL(base *url.URL, ref string) string {
	if ref == "" || base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// CleanText collapses runs of whitespace into single spaces and trims the
// result.
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
