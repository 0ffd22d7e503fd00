package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	DefaultIndexName   = "blog-posts"
	DefaultSearchSize  = 20
	DefaultRelatedSize = 5
)

var ErrSearchDisabled = errors.New("search is disabled")

const indexMapping = `{
	"mappings": {
		"properties": {
			"id": {"type": "long"},
			"title": {"type": "text"},
			"slug": {"type": "keyword"},
			"excerpt": {"type": "text"},
			"content": {"type": "text"},
			"tags": {"type": "keyword"},
			"category": {"type": "keyword"},
			"published_at": {"type": "date"}
		}
	}
}`

// Document is the searchable projection of a published post.
type Document struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Excerpt     string    `json:"excerpt"`
	Content     string    `json:"content"`
	Tags        []string  `json:"tags"`
	Category    string    `json:"category,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

type Hit struct {
	ID      int64    `json:"id"`
	Title   string   `json:"title"`
	Slug    string   `json:"slug"`
	Excerpt string   `json:"excerpt"`
	Tags    []string `json:"tags"`
	Score   float64  `json:"score"`
}

type Result struct {
	Hits  []Hit `json:"hits"`
	Total int   `json:"total"`
}

type Index struct {
	client *elasticsearch.Client
	name   string
}

func NewIndex(client *elasticsearch.Client, name string) *Index {
	if name == "" {
		name = DefaultIndexName
	}
	return &Index{
		client: client,
		name:   name,
	}
}

// EnsureIndex creates the index with its mapping; an existing index is left as is.
func (idx *Index) EnsureIndex(ctx context.Context) error {
	req := esapi.IndicesCreateRequest{
		Index: idx.name,
		Body:  strings.NewReader(indexMapping),
	}

	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return fmt.Errorf("create index %s: %w", idx.name, err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() && !strings.Contains(res.String(), "resource_already_exists_exception") {
		return fmt.Errorf("create index %s: %s", idx.name, res.String())
	}

	return nil
}

func (idx *Index) IndexPost(ctx context.Context, doc Document) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "search.indexPost")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("post.id", doc.ID))

	if doc.Tags == nil {
		doc.Tags = []string{}
	}
	docJson, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal search document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      idx.name,
		DocumentID: strconv.FormatInt(doc.ID, 10),
		Body:       bytes.NewReader(docJson),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return fmt.Errorf("index post %d: %w", doc.ID, err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() {
		return fmt.Errorf("index post %d: %s", doc.ID, res.String())
	}

	log.Debugf("search: post [%d] indexed", doc.ID)
	return nil
}

// DeletePost removes a post from the index. Deleting a post that was never indexed is not an error.
func (idx *Index) DeletePost(ctx context.Context, id int64) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "search.deletePost")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("post.id", id))

	req := esapi.DeleteRequest{
		Index:      idx.name,
		DocumentID: strconv.FormatInt(id, 10),
		Refresh:    "true",
	}

	res, err := req.Do(ctx, idx.client)
	if err != nil {
		return fmt.Errorf("delete post %d from index: %w", id, err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("delete post %d from index: %s", id, res.String())
	}

	return nil
}

// Search runs a full text query over titles, excerpts and content.
func (idx *Index) Search(ctx context.Context, query string, size int) (_ *Result, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "search.search")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("search.query", query))

	if size <= 0 {
		size = DefaultSearchSize
	}

	searchQuery := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^3", "excerpt^2", "content", "tags"},
			},
		},
		"size": size,
	}

	return idx.search(ctx, searchQuery, true)
}

// Related finds other posts sharing at least one of the given tags.
func (idx *Index) Related(ctx context.Context, postID int64, tags []string, size int) (_ []Hit, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "search.related")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("post.id", postID))

	if len(tags) == 0 {
		return []Hit{}, nil
	}
	if size <= 0 {
		size = DefaultRelatedSize
	}

	shouldClauses := make([]map[string]any, 0, len(tags))
	for _, tag := range tags {
		shouldClauses = append(shouldClauses, map[string]any{
			"term": map[string]any{
				"tags": tag,
			},
		})
	}

	searchQuery := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"should": shouldClauses,
				"must_not": map[string]any{
					"term": map[string]any{
						"id": postID,
					},
				},
				"minimum_should_match": 1,
			},
		},
		"size": size,
	}

	result, err := idx.search(ctx, searchQuery, false)
	if err != nil {
		return nil, err
	}
	return result.Hits, nil
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  float64  `json:"_score"`
			Source Document `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (idx *Index) search(ctx context.Context, query map[string]any, trackTotal bool) (*Result, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(query); err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := idx.client.Search(
		idx.client.Search.WithContext(ctx),
		idx.client.Search.WithIndex(idx.name),
		idx.client.Search.WithBody(&buf),
		idx.client.Search.WithTrackTotalHits(trackTotal),
	)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	defer drainAndClose(res.Body)

	if res.IsError() {
		return nil, fmt.Errorf("search: %s", res.String())
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	result := &Result{
		Hits:  make([]Hit, 0, len(sr.Hits.Hits)),
		Total: sr.Hits.Total.Value,
	}
	for _, h := range sr.Hits.Hits {
		result.Hits = append(result.Hits, Hit{
			ID:      h.Source.ID,
			Title:   h.Source.Title,
			Slug:    h.Source.Slug,
			Excerpt: h.Source.Excerpt,
			Tags:    h.Source.Tags,
			Score:   h.Score,
		})
	}

	return result, nil
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	if err := body.Close(); err != nil {
		log.Warnf("search: close response body: %s", err)
	}
}
