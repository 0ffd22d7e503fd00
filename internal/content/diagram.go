package content

import (
	"context"
	"fmt"
	"html"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// DiagramLanguage is what diagram blocks are written in, whatever tag they are stored under.
const DiagramLanguage = "mermaid"

// DiagramEngine turns diagram definition text into SVG markup.
type DiagramEngine interface {
	RenderDiagram(ctx context.Context, language, source string) (string, error)
}

// renderDiagrams substitutes the rendered SVG for each pending diagram block.
// Each diagram gets its own timeout and a failure is confined to its block.
func (r *Renderer) renderDiagrams(
	ctx context.Context,
	doc Document,
	indexes []int,
	out *Rendered,
	diagnostics []*Diagnostic,
) {
	var g errgroup.Group
	g.SetLimit(r.diagramConcurrency)

	for _, i := range indexes {
		d := doc.Blocks[i].(DiagramBlock)
		g.Go(func() error {
			// each goroutine only writes its own index
			markup, err := r.renderDiagram(ctx, d)
			if err != nil {
				log.Warnf("render diagram block %d: %s", i, err)
				if r.metricsManager != nil {
					r.metricsManager.CounterDiagramRenderFailures.Inc()
				}
				diagnostics[i] = &Diagnostic{
					Index:   i,
					Type:    string(d.Type()),
					Message: fmt.Sprintf("diagram render failed: %s", err),
				}
				markup = diagramFigure(diagramError(err.Error()), r.captionMarkup(d.Caption))
			}
			out.Blocks[i] = RenderedBlock{Type: d.Type(), HTML: markup}
			return nil
		})
	}

	_ = g.Wait()
}

func (r *Renderer) renderDiagram(ctx context.Context, d DiagramBlock) (markup string, err error) {
	ctx, cancel := context.WithTimeout(ctx, r.diagramTimeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("diagram engine panic: %v", rec)
		}
	}()

	svg, err := r.diagrams.RenderDiagram(ctx, DiagramLanguage, d.Code)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(svg) == "" {
		return "", fmt.Errorf("diagram engine returned empty output")
	}
	svg = r.sanitizer.SVG(svg)
	if !strings.Contains(svg, "<svg") {
		return "", fmt.Errorf("diagram engine returned no svg")
	}

	return diagramFigure(`<div class="diagram">`+svg+`</div>`, r.captionMarkup(d.Caption)), nil
}

func (r *Renderer) captionMarkup(caption string) string {
	var sb strings.Builder
	r.caption(&sb, caption)
	return sb.String()
}

func diagramFigure(body, caption string) string {
	return `<figure class="block-diagram">` + body + caption + "</figure>"
}

func diagramError(msg string) string {
	return `<div class="diagram-error" role="alert">Error rendering diagram: ` + html.EscapeString(msg) + "</div>"
}
