//go:build integration_test || all_tests

package test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/curiouscoder/blogcms/internal/blog"
	"github.com/curiouscoder/blogcms/internal/middleware"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPostContent = `{
  "time": 1700000000000,
  "version": "2.28.0",
  "blocks": [
    {"type": "header", "data": {"text": "Getting started", "level": 2}},
    {"type": "paragraph", "data": {"text": "Channels are the pipes that connect concurrent goroutines."}},
    {"type": "raw", "data": {"html": "<p>ok</p><script>alert(1)</script>"}},
    {"type": "code", "data": {"code": "ch := make(chan int)", "language": "go"}}
  ]
}`

func (s *IntegrationTestSuite) do(
	ctx context.Context,
	method, path, token string,
	body any,
) (*http.Response, []byte) {
	t := s.T()

	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, serverEndpoint+path, reqBody)
	require.NoError(t, err)
	req.Header.Set("User-Agent", "test-agent")
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		withToken(req, token)
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, respBytes
}

func (s *IntegrationTestSuite) newPost(ctx context.Context, token string, input map[string]any) (int, string) {
	resp, body := s.do(ctx, "POST", "/blog/posts", token, input)
	require.Equal(s.T(), http.StatusCreated, resp.StatusCode, string(body))

	var created struct {
		ID   int    `json:"id"`
		Slug string `json:"slug"`
	}
	require.NoError(s.T(), json.Unmarshal(body, &created))
	require.NotZero(s.T(), created.ID)
	return created.ID, created.Slug
}

func (s *IntegrationTestSuite) getPostsPage(ctx context.Context, page, size int) blog.PostsResponse {
	resp, body := s.do(ctx, "GET", fmt.Sprintf("/blog/posts/page/%d/size/%d", page, size), "", nil)
	require.Equal(s.T(), http.StatusOK, resp.StatusCode)

	var postsResponse blog.PostsResponse
	require.NoError(s.T(), json.Unmarshal(body, &postsResponse))
	return postsResponse
}

func testPostInput(title, status string, tags ...string) map[string]any {
	return map[string]any{
		"title":    title,
		"content":  json.RawMessage(testPostContent),
		"status":   status,
		"category": "Go",
		"tags":     tags,
	}
}

func (s *IntegrationTestSuite) TestBlog_Auth() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	resp, _ := s.do(ctx, "POST", "/blog/posts", "", testPostInput("no token", "draft"))
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(ctx, "POST", "/blog/posts", "invalid-token", testPostInput("bad token", "draft"))
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)

	resp, _ = s.do(ctx, "DELETE", "/blog/posts/1", "invalid-token", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, resp.StatusCode)
}

func (s *IntegrationTestSuite) TestBlog_Lifecycle() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	token := doLogin(ctx, t, s.httpClient, serverEndpoint, testUsername, testPassword)

	draftID, draftSlug := s.newPost(ctx, token, testPostInput("Go Channels, Explained!", "draft", "Go", "concurrency"))
	assert.Equal(t, "go-channels-explained", draftSlug)

	t.Run("duplicate slug", func(t *testing.T) {
		resp, _ := s.do(ctx, "POST", "/blog/posts", token, testPostInput("go channels explained", "draft"))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("draft is hidden from readers", func(t *testing.T) {
		resp, _ := s.do(ctx, "GET", "/blog/posts/slug/"+draftSlug, "", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		assert.Empty(t, s.getPostsPage(ctx, 1, 10).Posts)

		// the admin still sees it
		resp, body := s.do(ctx, "GET", "/blog/posts/slug/"+draftSlug, token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `"status":"draft"`)
	})

	t.Run("publish", func(t *testing.T) {
		resp, body := s.do(ctx, "POST", fmt.Sprintf("/blog/posts/%d/publish", draftID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var post blog.Post
		require.NoError(t, json.Unmarshal(body, &post))
		assert.Equal(t, blog.StatusPublished, post.Status)
		require.NotNil(t, post.PublishedAt)

		// already published
		resp, _ = s.do(ctx, "POST", fmt.Sprintf("/blog/posts/%d/publish", draftID), token, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("read published post", func(t *testing.T) {
		resp, body := s.do(ctx, "GET", "/blog/posts/slug/"+draftSlug, "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var view blog.PostView
		require.NoError(t, json.Unmarshal(body, &view))
		assert.Equal(t, draftID, view.ID)
		assert.Equal(t, "Go Channels, Explained!", view.Title)
		assert.Equal(t, "Channels are the pipes that connect concurrent goroutines.", view.Excerpt)
		assert.Equal(t, testBaseURL+"/blog/"+draftSlug, view.SEO.CanonicalURL)
		assert.ElementsMatch(t, []string{"go", "concurrency"}, view.SEO.FocusKeywords)
		assert.Equal(t, 1, view.Rendered.ReadingTime)
		require.Len(t, view.Rendered.TOC, 1)
		assert.Equal(t, "getting-started", view.Rendered.TOC[0].ID)
		assert.Contains(t, view.Rendered.HTML, `<h2 id="getting-started">Getting started</h2>`)
		assert.Contains(t, view.Rendered.HTML, "<p>ok</p>")
		assert.NotContains(t, view.Rendered.HTML, "<script>")
		assert.Empty(t, view.Rendered.Diagnostics)

		page := s.getPostsPage(ctx, 1, 10)
		require.Len(t, page.Posts, 1)
		assert.Equal(t, 1, page.Total)
		assert.Equal(t, draftID, page.Posts[0].ID)
		// listings carry no document
		assert.Empty(t, page.Posts[0].Content.Blocks)
	})

	t.Run("like", func(t *testing.T) {
		for i := 1; i <= 2; i++ {
			resp, body := s.do(ctx, "PATCH", fmt.Sprintf("/blog/posts/%d/like", draftID), "", nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, fmt.Sprintf(`{"id":%d,"likes":%d}`, draftID, i), string(body))
		}
	})

	t.Run("taxonomy counts", func(t *testing.T) {
		resp, body := s.do(ctx, "GET", "/blog/tags", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tags []blog.Tag
		require.NoError(t, json.Unmarshal(body, &tags))
		require.Len(t, tags, 2)
		for _, tag := range tags {
			assert.Equal(t, 1, tag.PostCount, tag.Name)
		}

		resp, body = s.do(ctx, "GET", "/blog/categories", "", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var categories []blog.Category
		require.NoError(t, json.Unmarshal(body, &categories))
		require.Len(t, categories, 1)
		assert.Equal(t, "Go", categories[0].Name)
	})

	t.Run("archive and delete", func(t *testing.T) {
		resp, _ := s.do(ctx, "POST", fmt.Sprintf("/blog/posts/%d/archive", draftID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Empty(t, s.getPostsPage(ctx, 1, 10).Posts)

		resp, body := s.do(ctx, "DELETE", fmt.Sprintf("/blog/posts/%d", draftID), token, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, fmt.Sprintf("deleted:%d", draftID), string(body))

		resp, _ = s.do(ctx, "GET", fmt.Sprintf("/blog/posts/%d", draftID), token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
		resp, _ = s.do(ctx, "DELETE", fmt.Sprintf("/blog/posts/%d", draftID), token, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func (s *IntegrationTestSuite) TestBlog_PasswordProtected() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	token := doLogin(ctx, t, s.httpClient, serverEndpoint, testUsername, testPassword)

	input := testPostInput("Members only", "published")
	input["visibility"] = "password-protected"
	input["password"] = "open-sesame"
	_, slug := s.newPost(ctx, token, input)

	getWithPassword := func(password string) int {
		req, err := http.NewRequestWithContext(ctx, "GET", serverEndpoint+"/blog/posts/slug/"+slug, nil)
		require.NoError(t, err)
		req.Header.Set("User-Agent", "test-agent")
		if password != "" {
			req.Header.Set(middleware.PostPasswordHeader, password)
		}
		resp, err := s.httpClient.Do(req)
		require.NoError(t, err)
		require.NoError(t, resp.Body.Close())
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusUnauthorized, getWithPassword(""))
	assert.Equal(t, http.StatusUnauthorized, getWithPassword("wrong"))
	assert.Equal(t, http.StatusOK, getWithPassword("open-sesame"))

	// protected posts are listed, just without content
	page := s.getPostsPage(ctx, 1, 10)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, slug, page.Posts[0].Slug)
	assert.Empty(t, page.Posts[0].Excerpt)
	assert.Empty(t, page.Posts[0].SEO.MetaDescription)
}

func (s *IntegrationTestSuite) TestBlog_Preview() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	t := s.T()

	token := doLogin(ctx, t, s.httpClient, serverEndpoint, testUsername, testPassword)

	resp, body := s.do(ctx, "POST", "/blog/preview", token, json.RawMessage(`{"blocks":[
		{"type":"paragraph","data":{"text":"draft text"}},
		{"type":"video","data":{"src":"a.mp4"}}
	]}`))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rendered blog.RenderedPost
	require.NoError(t, json.Unmarshal(body, &rendered))
	assert.True(t, strings.Contains(rendered.HTML, "draft text"))
	require.Len(t, rendered.Diagnostics, 1)
	assert.Equal(t, 1, rendered.Diagnostics[0].Index)
}
