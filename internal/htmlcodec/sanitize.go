package htmlcodec

import (
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

var policy = newPolicy()

// newPolicy allows the markup Render produces plus the equivalent tags
// pasted or browser-authored HTML commonly uses.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote",
		"ul", "ol", "li", "pre", "code", "hr", "br",
		"strong", "em", "s", "u",
		"b", "i", "strike", "del", "span", "div",
		"table", "thead", "tbody", "tr", "th", "td",
	)
	p.AllowAttrs("data-type").Matching(regexp.MustCompile(`^(taskList|taskItem)$`)).OnElements("ul", "li")
	p.AllowAttrs("data-checked").Matching(regexp.MustCompile(`^(true|false)$`)).OnElements("li")
	p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[A-Za-z0-9_+#.-]+$`)).OnElements("code")

	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto")
	p.AllowAttrs("href").OnElements("a")
	p.AllowAttrs("src", "alt", "title").OnElements("img")
	return p
}

// Sanitize strips everything outside the document schema's markup: unknown
// elements and attributes, event handlers, scripts and URLs with schemes
// other than http, https and mailto.
func Sanitize(src string) string {
	return policy.Sanitize(src)
}
