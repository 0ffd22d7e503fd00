package content

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer cleans author supplied markup before it reaches a reader.
type Sanitizer interface {
	// Inline keeps only the inline formatting allow-list (bold, italic, code, links...).
	Inline(s string) string
	// HTML keeps user-generated-content safe block markup, used for raw blocks.
	HTML(s string) string
	// Text strips all markup and returns unescaped plain text.
	Text(s string) string
	// SVG keeps drawing elements of a rendered diagram, no scripts, handlers or links.
	SVG(s string) string
}

var _ Sanitizer = (*PolicySanitizer)(nil)

var lineBreakRegex = regexp.MustCompile(`(?i)<br\s*/?>`)

type PolicySanitizer struct {
	inline *bluemonday.Policy
	ugc    *bluemonday.Policy
	strict *bluemonday.Policy
	svg    *bluemonday.Policy
}

func NewPolicySanitizer() *PolicySanitizer {
	inline := bluemonday.NewPolicy()
	inline.AllowElements("b", "strong", "i", "em", "u", "s", "mark", "code", "br", "sub", "sup")
	inline.AllowAttrs("href").OnElements("a")
	inline.AllowStandardURLs()
	inline.AddTargetBlankToFullyQualifiedLinks(true)
	// inline-code and marker tools of the editor tag their output with a class
	inline.AllowAttrs("class").Matching(regexp.MustCompile(`^cdx-[a-z-]+$`)).OnElements("code", "mark")

	ugc := bluemonday.UGCPolicy()
	ugc.AddTargetBlankToFullyQualifiedLinks(true)

	return &PolicySanitizer{
		inline: inline,
		ugc:    ugc,
		strict: bluemonday.StrictPolicy(),
		svg:    newSVGPolicy(),
	}
}

// newSVGPolicy allows what diagram engines emit. Element and attribute names
// are lowercase, the tokenizer folds them and browsers restore the svg casing.
func newSVGPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements(
		"svg", "g", "defs", "title", "desc", "symbol", "marker", "pattern", "mask", "clippath",
		"path", "rect", "circle", "ellipse", "line", "polyline", "polygon", "text", "tspan",
		"lineargradient", "radialgradient", "stop",
		// mermaid puts html labels into foreignObject
		"foreignobject", "div", "span", "p", "br", "b", "i", "strong", "em",
	)
	p.AllowAttrs(
		"id", "class", "xmlns", "role", "aria-label", "aria-roledescription",
		"viewbox", "preserveaspectratio", "width", "height", "transform",
		"x", "y", "x1", "y1", "x2", "y2", "cx", "cy", "r", "rx", "ry", "dx", "dy", "d", "points",
		"fill", "fill-opacity", "fill-rule", "stroke", "stroke-width", "stroke-opacity",
		"stroke-dasharray", "stroke-linecap", "stroke-linejoin", "opacity",
		"font-family", "font-size", "font-weight", "text-anchor", "dominant-baseline", "alignment-baseline",
		"markerwidth", "markerheight", "markerunits", "refx", "refy", "orient",
		"marker-start", "marker-mid", "marker-end", "clip-path",
		"offset", "stop-color", "stop-opacity", "gradientunits",
	).Globally()
	return p
}

func (s *PolicySanitizer) Inline(in string) string {
	return s.inline.Sanitize(in)
}

func (s *PolicySanitizer) HTML(in string) string {
	return s.ugc.Sanitize(in)
}

func (s *PolicySanitizer) SVG(in string) string {
	return s.svg.Sanitize(in)
}

func (s *PolicySanitizer) Text(in string) string {
	if in == "" {
		return ""
	}
	// line breaks separate words
	in = lineBreakRegex.ReplaceAllString(in, " ")
	return strings.TrimSpace(html.UnescapeString(s.strict.Sanitize(in)))
}

// SanitizeDocument returns a copy of doc with raw HTML blocks cleaned, so
// nothing unsafe is persisted. Rendering sanitizes again regardless.
func SanitizeDocument(doc Document, s Sanitizer) Document {
	out := Document{
		Time:    doc.Time,
		Version: doc.Version,
		Blocks:  make([]Block, len(doc.Blocks)),
	}
	for i, b := range doc.Blocks {
		if raw, ok := b.(RawHTMLBlock); ok {
			b = RawHTMLBlock{HTML: s.HTML(raw.HTML)}
		}
		out.Blocks[i] = b
	}
	return out
}
