// Package extract evaluates CSS selectors against a parsed HTML document and
// turns the matched nodes into output units.
package extract

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// ErrInvalidSelector is returned when a selector string does not parse.
var ErrInvalidSelector = errors.New("invalid selector")

// Mode selects how a matched element is rendered when no attribute
// projection is requested.
type Mode int

const (
	// ModeHTML renders the matched element as outer HTML.
	ModeHTML Mode = iota
	// ModeText renders the matched element's combined text content.
	ModeText
)

// Options controls extraction over a match set.
type Options struct {
	// Mode picks the rendering of matched elements. Ignored when
	// Attribute is set.
	Mode Mode

	// Attribute switches to attribute-value extraction. Elements that
	// lack the attribute contribute no output unit at all, so the output
	// line count is the number of elements carrying the attribute.
	Attribute string

	// Limit caps the number of emitted units, taking the first Limit
	// matches in document order. Zero means unlimited; callers must
	// reject negative values before getting here.
	Limit int

	// Pattern, when set, replaces each unit with its first match of the
	// pattern. Units without a match pass through unchanged.
	Pattern *regexp.Regexp
}

// Compile parses a CSS selector string into a goquery matcher. It fails
// eagerly, so a bad selector is reported before any network activity.
func Compile(selector string) (goquery.Matcher, error) {
	sel, err := cascadia.Compile(selector)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidSelector, selector, err)
	}
	return sel, nil
}

// Parse builds a document tree from fetched HTML text.
func Parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// Extract applies the matcher to doc and renders each match per opts.
// Matches come back in document (depth-first, pre-order) order, which is
// what goquery's traversal yields. The document is never mutated, so
// repeated calls return identical results.
func Extract(doc *goquery.Document, matcher goquery.Matcher, opts Options) ([]string, error) {
	var units []string
	var renderErr error

	doc.FindMatcher(matcher).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if opts.Limit > 0 && len(units) >= opts.Limit {
			return false
		}

		unit, ok, err := renderNode(s, opts)
		if err != nil {
			renderErr = err
			return false
		}
		if !ok {
			return true
		}

		if opts.Pattern != nil {
			if loc := opts.Pattern.FindStringIndex(unit); loc != nil {
				unit = unit[loc[0]:loc[1]]
			}
		}
		units = append(units, unit)
		return true
	})

	if renderErr != nil {
		return nil, renderErr
	}
	return units, nil
}

// renderNode turns a single matched element into an output unit. The second
// return value is false when the element contributes nothing (attribute mode
// with the attribute absent).
func renderNode(s *goquery.Selection, opts Options) (string, bool, error) {
	if opts.Attribute != "" {
		val, exists := s.Attr(opts.Attribute)
		return val, exists, nil
	}

	switch opts.Mode {
	case ModeText:
		return s.Text(), true, nil
	default:
		html, err := goquery.OuterHtml(s)
		if err != nil {
			return "", false, fmt.Errorf("failed to render matched node: %w", err)
		}
		return html, true, nil
	}
}
