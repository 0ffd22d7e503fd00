package blog

import (
	"errors"
	"time"

	"github.com/curiouscoder/blogcms/internal/content"
)

var (
	ErrPostNotFound      = errors.New("post not found")
	ErrSlugExists        = errors.New("post with the same slug already exists")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidPost       = errors.New("invalid post")
	ErrCategoryExists    = errors.New("category already exists")
	ErrPasswordRequired  = errors.New("post password required")
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// allowed lifecycle moves, anything else is ErrInvalidTransition
var transitions = map[Status][]Status{
	StatusDraft:     {StatusPublished},
	StatusPublished: {StatusArchived, StatusDraft},
	StatusArchived:  {StatusDraft},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Visibility string

const (
	VisibilityPublic            Visibility = "public"
	VisibilityPrivate           Visibility = "private"
	VisibilityPasswordProtected Visibility = "password-protected"
)

type Category struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int    `json:"post_count"`
}

type Tag struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int    `json:"post_count"`
}

type FeaturedImage struct {
	URL     string `json:"url"`
	Alt     string `json:"alt"`
	AssetID string `json:"asset_id,omitempty"`
}

type SEO struct {
	MetaTitle       string   `json:"meta_title"`
	MetaDescription string   `json:"meta_description"`
	CanonicalURL    string   `json:"canonical_url"`
	FocusKeywords   []string `json:"focus_keywords"`
	OGImage         string   `json:"og_image,omitempty"`
}

type Metrics struct {
	Views       int `json:"views"`
	Likes       int `json:"likes"`
	ReadingTime int `json:"reading_time"`
}

type Post struct {
	ID            int              `json:"id"`
	Title         string           `json:"title"`
	Slug          string           `json:"slug"`
	Content       content.Document `json:"content"`
	Excerpt       string           `json:"excerpt"`
	Status        Status           `json:"status"`
	Visibility    Visibility       `json:"visibility"`
	PasswordHash  string           `json:"-"`
	Category      *Category        `json:"category,omitempty"`
	Tags          []Tag            `json:"tags"`
	FeaturedImage *FeaturedImage   `json:"featured_image,omitempty"`
	SEO           SEO              `json:"seo"`
	Metrics       Metrics          `json:"metrics"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	PublishedAt   *time.Time       `json:"published_at,omitempty"`
}

func (p *Post) TagNames() []string {
	names := make([]string, 0, len(p.Tags))
	for _, t := range p.Tags {
		names = append(names, t.Name)
	}
	return names
}

func (p *Post) FeaturedAssetID() string {
	if p.FeaturedImage == nil {
		return ""
	}
	return p.FeaturedImage.AssetID
}

func (p *Post) bodyIsProtected() bool {
	return p.Visibility == VisibilityPasswordProtected
}

// IsListed reports whether the post shows up on public pages.
func (p *Post) IsListed() bool {
	return p.Status == StatusPublished && p.Visibility != VisibilityPrivate
}

type ListParams struct {
	Page int
	Size int
	// nil means any status
	Status *Status
	// hides private posts
	PublicOnly bool
}

type PostsResponse struct {
	Posts []*Post `json:"posts"`
	Total int     `json:"total"`
}

// RenderedPost is the reader facing output of a post document.
type RenderedPost struct {
	HTML        string               `json:"html"`
	TOC         []content.TOCEntry   `json:"toc"`
	ReadingTime int                  `json:"reading_time"`
	Diagnostics []content.Diagnostic `json:"diagnostics,omitempty"`
}

type PostView struct {
	*Post
	Rendered RenderedPost `json:"rendered"`
}
