// Package sanitize cleans case descriptions, which are authored as rich
// text and rendered by clients.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  = newRichPolicy()
	stripPolicy = bluemonday.StrictPolicy()
)

func newRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// RichText keeps formatting markup and drops scripts, handlers and unsafe
// URLs.
func RichText(s string) string {
	return richPolicy.Sanitize(s)
}

// PlainText strips all markup and collapses whitespace.
func PlainText(s string) string {
	out := html.UnescapeString(stripPolicy.Sanitize(s))
	return strings.Join(strings.Fields(out), " ")
}
