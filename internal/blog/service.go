package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/curiouscoder/blogcms/internal/auth"
	"github.com/curiouscoder/blogcms/internal/cache"
	"github.com/curiouscoder/blogcms/internal/content"
	"github.com/curiouscoder/blogcms/internal/search"
	"github.com/curiouscoder/blogcms/internal/telemetry/metrics"
	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	ExcerptMaxChars        = 300
	SEODescriptionMaxChars = 155
	renderCacheTTL         = 24 * time.Hour
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=blog_test

type postsRepo interface {
	Create(ctx context.Context, post *Post) error
	Update(ctx context.Context, post *Post) error
	Delete(ctx context.Context, id int) (*Post, error)
	Get(ctx context.Context, id int) (*Post, error)
	GetBySlug(ctx context.Context, slug string) (*Post, error)
	List(ctx context.Context, params ListParams) ([]*Post, int, error)
	SetStatus(ctx context.Context, id int, from, to Status, publishedAt *time.Time, updatedAt time.Time) error
	IncrementViews(ctx context.Context, id int) error
	IncrementLikes(ctx context.Context, id int) (int, error)
	AssetReferences(ctx context.Context, assetID string) (int, error)
	Categories(ctx context.Context) ([]Category, error)
	Tags(ctx context.Context) ([]Tag, error)
	CreateCategory(ctx context.Context, name string) (*Category, error)
}

// AssetStore releases uploaded files that are no longer referenced.
type AssetStore interface {
	Delete(ctx context.Context, id string) error
}

// SearchIndexer keeps the search index in line with published posts.
type SearchIndexer interface {
	IndexPost(ctx context.Context, doc search.Document) error
	DeletePost(ctx context.Context, id int64) error
	Search(ctx context.Context, query string, size int) (*search.Result, error)
	Related(ctx context.Context, postID int64, tags []string, size int) ([]search.Hit, error)
}

// Viewer describes who is reading a post.
type Viewer struct {
	IsAdmin  bool
	Password string
}

type NewServiceParams struct {
	Repo   postsRepo
	Assets AssetStore
	// Search is optional, leave nil when search is disabled
	Search         SearchIndexer
	Renderer       *content.Renderer
	Sanitizer      content.Sanitizer
	RenderCache    cache.Cache
	MetricsManager *metrics.Manager
	BaseURL        string
	HashPassword   func(password string) (string, error)
	Now            func() time.Time
}

type Service struct {
	repo           postsRepo
	assets         AssetStore
	search         SearchIndexer
	renderer       *content.Renderer
	sanitizer      content.Sanitizer
	renderCache    cache.Cache
	metricsManager *metrics.Manager
	baseURL        string
	hashPassword   func(password string) (string, error)
	now            func() time.Time
}

func NewService(params NewServiceParams) *Service {
	s := &Service{
		repo:           params.Repo,
		assets:         params.Assets,
		search:         params.Search,
		renderer:       params.Renderer,
		sanitizer:      params.Sanitizer,
		renderCache:    params.RenderCache,
		metricsManager: params.MetricsManager,
		baseURL:        params.BaseURL,
		hashPassword:   params.HashPassword,
		now:            params.Now,
	}
	if s.sanitizer == nil {
		s.sanitizer = content.NewPolicySanitizer()
	}
	if s.renderer == nil {
		s.renderer = content.NewRenderer(content.RendererParams{
			Sanitizer:      s.sanitizer,
			SiteURL:        s.baseURL,
			MetricsManager: s.metricsManager,
		})
	}
	if s.hashPassword == nil {
		s.hashPassword = auth.HashPostPassword
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// timestamps are stored with microsecond precision, keep ours comparable
func (s *Service) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create stores a new draft, or a published post when the input asks for it.
// The slug is derived from the title here and never changes afterwards.
func (s *Service) Create(ctx context.Context, input PostInput) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	input.Normalize()
	if err := input.Validate(true); err != nil {
		return nil, err
	}

	now := s.timestamp()
	post := &Post{
		Title:     input.Title,
		Slug:      content.Slugify(input.Title),
		Status:    StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if post.Slug == "" {
		// nothing sluggable in the title, e.g. only CJK characters
		post.Slug = fmt.Sprintf("post-%d-%s", now.Unix(), uuid.NewString()[:8])
	}
	if input.Status == StatusPublished {
		post.Status = StatusPublished
		post.PublishedAt = &now
	}

	if err := s.applyInput(post, input); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	span.SetAttributes(attribute.Int("post.id", post.ID))

	if s.metricsManager != nil {
		s.metricsManager.CounterPostsCreated.Inc()
		if post.Status == StatusPublished {
			s.metricsManager.CounterPostsPublished.Inc()
		}
	}
	log.Debugf("post %d [%s] created as %s", post.ID, post.Slug, post.Status)

	s.syncSearch(ctx, post)

	return post, nil
}

// Update replaces the editable fields of a post. The slug stays as it was
// created; a status change in the input has to be an allowed transition.
func (s *Service) Update(ctx context.Context, id int, input PostInput) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))

	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	requestedStatus := input.Status
	input.Normalize()
	if requestedStatus == "" {
		input.Status = post.Status
	}
	needsPassword := input.Visibility == VisibilityPasswordProtected && post.PasswordHash == ""
	if err := input.validateUpdate(needsPassword); err != nil {
		return nil, err
	}

	if input.Status != post.Status {
		if !post.Status.CanTransitionTo(input.Status) {
			return nil, fmt.Errorf("%s -> %s: %w", post.Status, input.Status, ErrInvalidTransition)
		}
	}

	oldAssetID := post.FeaturedAssetID()
	now := s.timestamp()

	post.Title = input.Title
	post.UpdatedAt = now
	if input.Status != post.Status {
		post.Status = input.Status
		if post.Status == StatusPublished && post.PublishedAt == nil {
			post.PublishedAt = &now
		}
	}
	if err := s.applyInput(post, input); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("update post %d: %w", id, err)
	}

	if oldAssetID != "" && oldAssetID != post.FeaturedAssetID() {
		s.releaseAsset(ctx, oldAssetID)
	}
	s.syncSearch(ctx, post)

	return post, nil
}

// applyInput copies the content related fields of input onto post.
func (s *Service) applyInput(post *Post, input PostInput) error {
	post.Content = content.SanitizeDocument(input.Content, s.sanitizer)
	post.Metrics.ReadingTime = content.ReadingTime(post.Content)

	if post.Visibility != input.Visibility || input.Password != "" {
		switch {
		case input.Visibility != VisibilityPasswordProtected:
			post.PasswordHash = ""
		case input.Password != "":
			hash, err := s.hashPassword(input.Password)
			if err != nil {
				return fmt.Errorf("hash post password: %w", err)
			}
			post.PasswordHash = hash
		}
	}
	post.Visibility = input.Visibility

	// excerpts are public, a protected body must not leak through them
	post.Excerpt = input.Excerpt
	if post.Excerpt == "" && !post.bodyIsProtected() {
		post.Excerpt = content.Excerpt(post.Content, ExcerptMaxChars)
	}

	post.Category = nil
	if input.Category != "" {
		post.Category = &Category{Name: input.Category}
	}
	post.Tags = make([]Tag, 0, len(input.Tags))
	for _, name := range input.Tags {
		post.Tags = append(post.Tags, Tag{Name: name})
	}

	post.FeaturedImage = nil
	if input.FeaturedImage != nil {
		img := *input.FeaturedImage
		post.FeaturedImage = &img
	}

	post.SEO = SEO{}
	if input.SEO != nil {
		post.SEO = *input.SEO
	}
	post.SEO = s.seoDefaults(post)

	return nil
}

// seoDefaults fills the empty SEO fields of post from its other fields.
func (s *Service) seoDefaults(post *Post) SEO {
	seo := post.SEO
	if seo.MetaTitle == "" {
		seo.MetaTitle = post.Title
	}
	if seo.MetaDescription == "" && !post.bodyIsProtected() {
		seo.MetaDescription = content.Excerpt(post.Content, SEODescriptionMaxChars)
	}
	if seo.CanonicalURL == "" {
		seo.CanonicalURL = fmt.Sprintf("%s/blog/%s", s.baseURL, post.Slug)
	}
	if len(seo.FocusKeywords) == 0 {
		seo.FocusKeywords = post.TagNames()
	}
	if seo.OGImage == "" && post.FeaturedImage != nil {
		seo.OGImage = post.FeaturedImage.URL
	}
	return seo
}

func (s *Service) Publish(ctx context.Context, id int) (*Post, error) {
	return s.transition(ctx, id, StatusPublished)
}

func (s *Service) Archive(ctx context.Context, id int) (*Post, error) {
	return s.transition(ctx, id, StatusArchived)
}

// Unpublish moves a published or archived post back to draft.
func (s *Service) Unpublish(ctx context.Context, id int) (*Post, error) {
	return s.transition(ctx, id, StatusDraft)
}

func (s *Service) transition(ctx context.Context, id int, to Status) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.transition")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))
	span.SetAttributes(attribute.String("post.status", string(to)))

	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%s -> %s: %w", post.Status, to, ErrInvalidTransition)
	}

	now := s.timestamp()
	var publishedAt *time.Time
	if to == StatusPublished {
		publishedAt = &now
	}
	if err := s.repo.SetStatus(ctx, id, post.Status, to, publishedAt, now); err != nil {
		return nil, err
	}

	from := post.Status
	post.Status = to
	post.UpdatedAt = now
	if post.PublishedAt == nil && publishedAt != nil {
		post.PublishedAt = publishedAt
	}

	if to == StatusPublished && s.metricsManager != nil {
		s.metricsManager.CounterPostsPublished.Inc()
	}
	log.Debugf("post %d: %s -> %s", id, from, to)

	s.syncSearch(ctx, post)

	return post, nil
}

// Delete removes a post. Its featured image asset is released once the delete
// is committed and no other post uses it; failing to release it is only logged.
func (s *Service) Delete(ctx context.Context, id int) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}

	if assetID := deleted.FeaturedAssetID(); assetID != "" {
		s.releaseAsset(ctx, assetID)
	}

	if s.search != nil {
		if err := s.search.DeletePost(ctx, int64(id)); err != nil {
			log.Errorf("remove deleted post %d from search index: %s", id, err)
		}
	}

	return nil
}

func (s *Service) releaseAsset(ctx context.Context, assetID string) {
	if s.assets == nil {
		return
	}

	refs, err := s.repo.AssetReferences(ctx, assetID)
	if err != nil {
		log.Errorf("count references of asset %s: %s", assetID, err)
		return
	}
	if refs > 0 {
		log.Debugf("asset %s still used by %d post(s), keeping it", assetID, refs)
		return
	}

	if err := s.assets.Delete(ctx, assetID); err != nil {
		log.Errorf("release asset %s: %s", assetID, err)
		return
	}
	log.Debugf("asset %s released", assetID)
}

// Get returns any post, for editing.
func (s *Service) Get(ctx context.Context, id int) (*Post, error) {
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	post.SEO = s.seoDefaults(post)
	return post, nil
}

// GetPublished returns the post with the given slug as the viewer is allowed
// to see it. Drafts, archived and private posts only exist for admins.
func (s *Service) GetPublished(ctx context.Context, slug string, viewer Viewer) (_ *PostView, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "service.blog.getPublished")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("post.slug", slug))

	post, err := s.repo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	if !viewer.IsAdmin {
		if post.Status != StatusPublished || post.Visibility == VisibilityPrivate {
			return nil, ErrPostNotFound
		}
		if post.Visibility == VisibilityPasswordProtected && !auth.CheckPassword(viewer.Password, post.PasswordHash) {
			return nil, ErrPasswordRequired
		}

		if err := s.repo.IncrementViews(ctx, post.ID); err != nil {
			log.Errorf("increment views of post %d: %s", post.ID, err)
		} else {
			post.Metrics.Views++
			if s.metricsManager != nil {
				s.metricsManager.CounterPostViews.Inc()
			}
		}
	}

	post.SEO = s.seoDefaults(post)
	rendered := s.Render(ctx, post)
	if !viewer.IsAdmin {
		rendered.Diagnostics = nil
	}

	return &PostView{Post: post, Rendered: rendered}, nil
}

// Render renders the post document, reusing the cached output while the post
// is unchanged.
func (s *Service) Render(ctx context.Context, post *Post) RenderedPost {
	key := renderCacheKey(post)
	if s.renderCache != nil {
		if cached, ok := s.renderCache.Get(key); ok {
			var rp RenderedPost
			if err := json.Unmarshal(cached, &rp); err == nil {
				s.countCache(true)
				return rp
			}
			s.renderCache.Del(key)
		}
	}
	s.countCache(false)

	rendered := s.renderer.RenderDocument(ctx, post.Content)
	rp := RenderedPost{
		HTML:        rendered.HTML(),
		TOC:         content.TableOfContents(post.Content),
		ReadingTime: content.ReadingTime(post.Content),
		Diagnostics: rendered.Diagnostics,
	}

	if s.renderCache != nil && !rendered.DiagramFailed() {
		rpJson, err := json.Marshal(rp)
		if err == nil {
			err = s.renderCache.Set(key, rpJson, renderCacheTTL)
		}
		if err != nil {
			log.Warnf("cache rendered post %d: %s", post.ID, err)
		}
	}

	return rp
}

func (s *Service) countCache(hit bool) {
	if s.metricsManager == nil || s.renderCache == nil {
		return
	}
	if hit {
		s.metricsManager.CounterRenderCacheHits.Inc()
	} else {
		s.metricsManager.CounterRenderCacheMisses.Inc()
	}
}

func renderCacheKey(post *Post) string {
	return fmt.Sprintf("post:%d:%d", post.ID, post.UpdatedAt.UnixMicro())
}

// Preview renders an unsaved document.
func (s *Service) Preview(ctx context.Context, doc content.Document) RenderedPost {
	doc = content.SanitizeDocument(doc, s.sanitizer)
	rendered := s.renderer.RenderDocument(ctx, doc)
	return RenderedPost{
		HTML:        rendered.HTML(),
		TOC:         content.TableOfContents(doc),
		ReadingTime: content.ReadingTime(doc),
		Diagnostics: rendered.Diagnostics,
	}
}

// ListPublished returns a page of published, non private posts without their content.
func (s *Service) ListPublished(ctx context.Context, page, size int) ([]*Post, int, error) {
	published := StatusPublished
	posts, total, err := s.repo.List(ctx, ListParams{
		Page:       page,
		Size:       size,
		Status:     &published,
		PublicOnly: true,
	})
	if err != nil {
		return nil, -1, err
	}
	for _, p := range posts {
		p.Content = content.Document{Blocks: []content.Block{}}
		p.SEO = s.seoDefaults(p)
	}
	return posts, total, nil
}

func (s *Service) ListAll(ctx context.Context, page, size int) ([]*Post, int, error) {
	return s.repo.List(ctx, ListParams{Page: page, Size: size})
}

func (s *Service) Like(ctx context.Context, id int) (int, error) {
	return s.repo.IncrementLikes(ctx, id)
}

func (s *Service) Search(ctx context.Context, query string) (*search.Result, error) {
	if s.search == nil {
		return nil, search.ErrSearchDisabled
	}
	return s.search.Search(ctx, query, search.DefaultSearchSize)
}

// Related lists published posts sharing tags with the given one.
func (s *Service) Related(ctx context.Context, id int) ([]search.Hit, error) {
	if s.search == nil {
		return nil, search.ErrSearchDisabled
	}
	post, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !post.IsListed() {
		return nil, ErrPostNotFound
	}
	return s.search.Related(ctx, int64(id), post.TagNames(), search.DefaultRelatedSize)
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	return s.repo.Categories(ctx)
}

func (s *Service) Tags(ctx context.Context) ([]Tag, error) {
	return s.repo.Tags(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (*Category, error) {
	name = NormalizeCategoryName(name)
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	return s.repo.CreateCategory(ctx, name)
}

// syncSearch indexes listed posts and drops everything else from the index.
// The index is secondary, so failures are only logged.
func (s *Service) syncSearch(ctx context.Context, post *Post) {
	if s.search == nil {
		return
	}

	var err error
	if post.IsListed() {
		err = s.search.IndexPost(ctx, searchDocument(post))
	} else {
		err = s.search.DeletePost(ctx, int64(post.ID))
	}
	if err != nil {
		log.Errorf("sync post %d with search index: %s", post.ID, err)
	}
}

func searchDocument(post *Post) search.Document {
	doc := search.Document{
		ID:      int64(post.ID),
		Title:   post.Title,
		Slug:    post.Slug,
		Excerpt: post.Excerpt,
		Content: content.PlainText(post.Content),
		Tags:    post.TagNames(),
	}
	if post.Category != nil {
		doc.Category = post.Category.Name
	}
	if post.PublishedAt != nil {
		doc.PublishedAt = *post.PublishedAt
	}
	// password protected posts stay findable by title only
	if post.Visibility == VisibilityPasswordProtected {
		doc.Content = ""
	}
	return doc
}

// IsNotFound reports whether err means the requested post does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrPostNotFound)
}
