package content

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/curiouscoder/blogcms/internal/telemetry/metrics"
	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultDiagramTimeout     = 10 * time.Second
	DefaultDiagramConcurrency = 4
	embedSandbox              = "allow-scripts allow-same-origin allow-popups allow-presentation"
	// same-origin plus scripts would let a page from our own host lift its sandbox
	embedSandboxOwnHost = "allow-scripts allow-popups allow-presentation"
)

var codeLanguageRegex = regexp.MustCompile(`^[a-zA-Z0-9_+#.-]{1,32}$`)

type RenderedBlock struct {
	Type BlockType `json:"type"`
	HTML string    `json:"html"`
}

// Diagnostic records a block that could not be rendered as authored.
type Diagnostic struct {
	Index   int    `json:"index"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Rendered holds exactly one RenderedBlock per input block, in input order.
type Rendered struct {
	Blocks      []RenderedBlock `json:"blocks"`
	Diagnostics []Diagnostic    `json:"diagnostics,omitempty"`
}

func (r *Rendered) HTML() string {
	var sb strings.Builder
	for i, b := range r.Blocks {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(b.HTML)
	}
	return sb.String()
}

// DiagramFailed reports whether a diagram block fell back to its error
// output. Such results depend on the diagram engine being reachable.
func (r *Rendered) DiagramFailed() bool {
	for _, d := range r.Diagnostics {
		if d.Type == string(TypeMermaid) || d.Type == string(TypeDiagram) {
			return true
		}
	}
	return false
}

type RendererParams struct {
	Sanitizer Sanitizer
	// SiteURL is the public base URL of the blog, embeds served from its host are sandboxed harder.
	SiteURL string
	// Diagrams is optional; without it diagram blocks are emitted for client side rendering.
	Diagrams           DiagramEngine
	DiagramTimeout     time.Duration
	DiagramConcurrency int
	MetricsManager     *metrics.Manager
}

type Renderer struct {
	sanitizer          Sanitizer
	siteHost           string
	diagrams           DiagramEngine
	diagramTimeout     time.Duration
	diagramConcurrency int
	metricsManager     *metrics.Manager
}

func NewRenderer(params RendererParams) *Renderer {
	r := &Renderer{
		sanitizer:          params.Sanitizer,
		diagrams:           params.Diagrams,
		diagramTimeout:     params.DiagramTimeout,
		diagramConcurrency: params.DiagramConcurrency,
		metricsManager:     params.MetricsManager,
	}
	if r.sanitizer == nil {
		r.sanitizer = NewPolicySanitizer()
	}
	if u, err := url.Parse(params.SiteURL); err == nil {
		r.siteHost = strings.ToLower(u.Hostname())
	}
	if r.diagramTimeout <= 0 {
		r.diagramTimeout = DefaultDiagramTimeout
	}
	if r.diagramConcurrency <= 0 {
		r.diagramConcurrency = DefaultDiagramConcurrency
	}
	return r
}

// RenderDocument renders every block of doc. A block that cannot be rendered
// never affects its neighbours: unknown types get a placeholder and a
// diagnostic, failed diagrams get an inline error.
func (r *Renderer) RenderDocument(ctx context.Context, doc Document) *Rendered {
	ctx, span := tracing.GlobalTracer.Start(ctx, "content.renderDocument")
	defer span.End()
	span.SetAttributes(attribute.Int("document.blocks", len(doc.Blocks)))

	defer func(begin time.Time) {
		if r.metricsManager != nil {
			r.metricsManager.HistDocumentRenderDuration.Observe(time.Since(begin).Seconds())
		}
	}(time.Now())

	out := &Rendered{Blocks: make([]RenderedBlock, len(doc.Blocks))}
	diagnostics := make([]*Diagnostic, len(doc.Blocks))
	var pendingDiagrams []int

	for i, b := range doc.Blocks {
		rb, diag := r.renderBlock(i, b)
		out.Blocks[i] = rb
		diagnostics[i] = diag

		if d, ok := b.(DiagramBlock); ok && r.diagrams != nil && strings.TrimSpace(d.Code) != "" {
			pendingDiagrams = append(pendingDiagrams, i)
		}
	}

	if len(pendingDiagrams) > 0 {
		r.renderDiagrams(ctx, doc, pendingDiagrams, out, diagnostics)
	}

	for _, d := range diagnostics {
		if d != nil {
			out.Diagnostics = append(out.Diagnostics, *d)
		}
	}
	span.SetAttributes(attribute.Int("document.diagnostics", len(out.Diagnostics)))

	return out
}

// RenderBlock renders a single block outside of a document.
func (r *Renderer) RenderBlock(b Block) RenderedBlock {
	rb, _ := r.renderBlock(0, b)
	return rb
}

func (r *Renderer) renderBlock(i int, b Block) (rb RenderedBlock, diag *Diagnostic) {
	if b == nil {
		return r.unsupported(i, "")
	}

	defer func() {
		if rec := recover(); rec != nil {
			log.Errorf("render block %d [%s]: panic: %v", i, b.Type(), rec)
			rb = RenderedBlock{Type: b.Type(), HTML: unsupportedPlaceholder(string(b.Type()))}
			diag = &Diagnostic{Index: i, Type: string(b.Type()), Message: fmt.Sprintf("render failed: %v", rec)}
		}
	}()

	var markup string
	switch v := b.(type) {
	case HeaderBlock:
		markup = r.header(v)
	case ParagraphBlock:
		markup = "<p>" + r.sanitizer.Inline(v.Text) + "</p>"
	case ImageBlock:
		markup = r.image(v)
	case ListBlock:
		markup = r.list(v)
	case CodeBlock:
		markup = code(v)
	case QuoteBlock:
		markup = r.quote(v)
	case TableBlock:
		markup = r.table(v)
	case DelimiterBlock:
		markup = `<hr class="block-delimiter">`
	case ChecklistBlock:
		markup = r.checklist(v)
	case EmbedBlock:
		markup = r.embed(v)
	case RawHTMLBlock:
		markup = `<div class="block-raw">` + r.sanitizer.HTML(v.HTML) + "</div>"
	case DiagramBlock:
		markup = r.deferredDiagram(v)
	default:
		return r.unsupported(i, string(b.Type()))
	}

	return RenderedBlock{Type: b.Type(), HTML: markup}, nil
}

func (r *Renderer) unsupported(i int, typeName string) (RenderedBlock, *Diagnostic) {
	log.Warnf("unsupported block type [%s] at index %d", typeName, i)
	if r.metricsManager != nil {
		r.metricsManager.CounterUnsupportedBlocks.WithLabelValues(metricLabel(typeName)).Inc()
	}
	rb := RenderedBlock{Type: BlockType(typeName), HTML: unsupportedPlaceholder(typeName)}
	return rb, &Diagnostic{Index: i, Type: typeName, Message: "unsupported block type"}
}

func unsupportedPlaceholder(typeName string) string {
	escaped := html.EscapeString(typeName)
	return fmt.Sprintf(
		`<div class="block-unsupported" data-block-type="%s">Unsupported block type: %s</div>`,
		escaped, escaped,
	)
}

func (r *Renderer) header(h HeaderBlock) string {
	level := h.Level
	if level < 1 || level > 6 {
		level = DefaultHeaderLevel
	}
	tag := "h" + strconv.Itoa(level)
	id := HeadingID(r.sanitizer.Text(h.Text))
	if id == "" {
		return "<" + tag + ">" + r.sanitizer.Inline(h.Text) + "</" + tag + ">"
	}
	return fmt.Sprintf(`<%s id="%s">%s</%s>`, tag, id, r.sanitizer.Inline(h.Text), tag)
}

func (r *Renderer) image(img ImageBlock) string {
	var sb strings.Builder
	sb.WriteString(`<figure class="block-image">`)
	if src := safeURL(img.URL, true); src != "" {
		fmt.Fprintf(&sb, `<img src="%s" alt="%s" loading="lazy">`,
			html.EscapeString(src), html.EscapeString(r.sanitizer.Text(img.AltText())))
	}
	r.caption(&sb, img.Caption)
	sb.WriteString("</figure>")
	return sb.String()
}

func (r *Renderer) list(l ListBlock) string {
	tag := "ul"
	if l.Style == ListOrdered {
		tag = "ol"
	}
	var sb strings.Builder
	sb.WriteString("<" + tag + ` class="block-list">`)
	for _, item := range l.Items {
		sb.WriteString("<li>" + r.sanitizer.Inline(item) + "</li>")
	}
	sb.WriteString("</" + tag + ">")
	return sb.String()
}

func code(c CodeBlock) string {
	class := ""
	if codeLanguageRegex.MatchString(c.Language) {
		class = fmt.Sprintf(` class="language-%s"`, strings.ToLower(c.Language))
	}
	return fmt.Sprintf(`<pre class="block-code"><code%s>%s</code></pre>`, class, html.EscapeString(c.Code))
}

func (r *Renderer) quote(q QuoteBlock) string {
	var sb strings.Builder
	sb.WriteString(`<blockquote class="block-quote"><p>`)
	sb.WriteString(r.sanitizer.Inline(q.Text))
	sb.WriteString("</p>")
	if q.Caption != "" {
		sb.WriteString("<cite>" + r.sanitizer.Inline(q.Caption) + "</cite>")
	}
	sb.WriteString("</blockquote>")
	return sb.String()
}

// table renders every row with the number of cells it actually has.
func (r *Renderer) table(t TableBlock) string {
	var sb strings.Builder
	sb.WriteString(`<table class="block-table">`)
	rows := t.Content
	if t.WithHeadings && len(rows) > 0 {
		sb.WriteString("<thead>")
		r.tableRow(&sb, rows[0], "th")
		sb.WriteString("</thead>")
		rows = rows[1:]
	}
	sb.WriteString("<tbody>")
	for _, row := range rows {
		r.tableRow(&sb, row, "td")
	}
	sb.WriteString("</tbody></table>")
	return sb.String()
}

func (r *Renderer) tableRow(sb *strings.Builder, cells []string, cellTag string) {
	sb.WriteString("<tr>")
	for _, cell := range cells {
		sb.WriteString("<" + cellTag + ">" + r.sanitizer.Inline(cell) + "</" + cellTag + ">")
	}
	sb.WriteString("</tr>")
}

func (r *Renderer) checklist(c ChecklistBlock) string {
	var sb strings.Builder
	sb.WriteString(`<ul class="block-checklist">`)
	for _, it := range c.Items {
		marker := "&#9744;"
		class := "unchecked"
		if it.Checked {
			marker = "&#9745;"
			class = "checked"
		}
		fmt.Fprintf(&sb, `<li class="%s"><span class="checkbox">%s</span> %s</li>`, class, marker, r.sanitizer.Inline(it.Text))
	}
	sb.WriteString("</ul>")
	return sb.String()
}

func (r *Renderer) embed(e EmbedBlock) string {
	src := safeURL(e.Embed, false)
	if src == "" {
		return `<div class="block-embed block-embed-unavailable">Embedded content unavailable</div>`
	}

	sandbox := embedSandbox
	if r.isOwnHost(src) {
		sandbox = embedSandboxOwnHost
	}

	var sb strings.Builder
	sb.WriteString(`<figure class="block-embed">`)
	fmt.Fprintf(&sb, `<iframe src="%s" sandbox="%s" referrerpolicy="no-referrer" loading="lazy" allowfullscreen`,
		html.EscapeString(src), sandbox)
	if e.Width > 0 {
		fmt.Fprintf(&sb, ` width="%d"`, e.Width)
	}
	if e.Height > 0 {
		fmt.Fprintf(&sb, ` height="%d"`, e.Height)
	}
	if e.Service != "" {
		fmt.Fprintf(&sb, ` data-service="%s"`, html.EscapeString(e.Service))
	}
	sb.WriteString("></iframe>")
	r.caption(&sb, e.Caption)
	sb.WriteString("</figure>")
	return sb.String()
}

func (r *Renderer) isOwnHost(src string) bool {
	if r.siteHost == "" {
		return false
	}
	u, err := url.Parse(src)
	if err != nil {
		// unparsable means unknown, treat it as ours
		return true
	}
	return strings.EqualFold(u.Hostname(), r.siteHost)
}

func (r *Renderer) deferredDiagram(d DiagramBlock) string {
	var sb strings.Builder
	sb.WriteString(`<figure class="block-diagram">`)
	if r.diagrams != nil && strings.TrimSpace(d.Code) == "" {
		sb.WriteString(diagramError("empty diagram definition"))
	} else {
		sb.WriteString(`<pre class="mermaid">` + html.EscapeString(d.Code) + "</pre>")
	}
	r.caption(&sb, d.Caption)
	sb.WriteString("</figure>")
	return sb.String()
}

func (r *Renderer) caption(sb *strings.Builder, caption string) {
	if strings.TrimSpace(caption) == "" {
		return
	}
	sb.WriteString("<figcaption>" + r.sanitizer.Inline(caption) + "</figcaption>")
}

// safeURL accepts absolute http(s) URLs and, when allowRelative is set, site relative paths.
func safeURL(raw string, allowRelative bool) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if u.Host == "" {
			return ""
		}
		return u.String()
	case "":
		if allowRelative && strings.HasPrefix(raw, "/") && !strings.HasPrefix(raw, "//") {
			return u.String()
		}
		return ""
	default:
		return ""
	}
}

func metricLabel(typeName string) string {
	if typeName == "" {
		return "<empty>"
	}
	if len(typeName) > 32 {
		return strings.ToValidUTF8(typeName[:32], "")
	}
	return typeName
}
