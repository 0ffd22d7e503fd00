package diagram

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/curiouscoder/blogcms/internal/cache"
	"github.com/curiouscoder/blogcms/internal/content"
	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	diagramCacheExpire = 24 * time.Hour
	maxSVGBytes        = 5 * 1024 * 1024
)

var ErrDiagramService = errors.New("diagram service error")

var _ content.DiagramEngine = (*Client)(nil)

// Client renders diagram sources to SVG through a Kroki compatible service:
// POST {baseURL}/{language}/svg with the plain diagram source as the body.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      cache.Cache
}

func NewClient(baseURL string, httpClient *http.Client, cache cache.Cache) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: httpClient,
		cache:      cache,
	}
}

func cacheKey(language, source string) string {
	sum := sha256.Sum256([]byte(language + "\x00" + source))
	return "diagram::" + hex.EncodeToString(sum[:])
}

func (c *Client) RenderDiagram(ctx context.Context, language, source string) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "diagram.client.render")
	span.SetAttributes(attribute.String("language", language))
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	key := cacheKey(language, source)
	if c.cache != nil {
		if svg, found := c.cache.Get(key); found {
			log.Tracef("diagram %s found in cache", key)
			return string(svg), nil
		}
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		fmt.Sprintf("%s/%s/svg", c.baseURL, language),
		strings.NewReader(source),
	)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Accept", "image/svg+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxSVGBytes))
	if err != nil {
		return "", fmt.Errorf("read diagram response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d: %s", ErrDiagramService, resp.StatusCode, firstLine(respBytes))
	}

	svg := string(respBytes)
	if !strings.Contains(svg, "<svg") {
		return "", fmt.Errorf("%w: response is not an svg document", ErrDiagramService)
	}

	if c.cache != nil {
		if err := c.cache.Set(key, respBytes, diagramCacheExpire); err != nil {
			log.Debugf("diagram %s not cached: %s", key, err)
		}
	}

	return svg, nil
}

func firstLine(b []byte) string {
	line, _, _ := strings.Cut(strings.TrimSpace(string(b)), "\n")
	return content.Truncate(line, 200)
}
