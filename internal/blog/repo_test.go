//go:build integration_test || all_tests

package blog

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/curiouscoder/blogcms/internal/content"
	"github.com/curiouscoder/blogcms/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRepoSetup(t *testing.T) (*Repo, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "blogcms",
		TracingEnabled: false,
	})
	require.NoError(t, err)
	require.NoError(t, db.ApplySchema(timeoutCtx, dbPool))

	return NewRepo(dbPool), func() {
		dbPool.Close()
	}
}

func newRepoPost(status Status, tags ...string) *Post {
	now := time.Now().UTC().Truncate(time.Microsecond)
	title := gofakeit.Sentence(5)
	post := &Post{
		Title: title,
		// the db is shared between runs, keep slugs unique
		Slug: content.Slugify(title) + "-" + gofakeit.UUID(),
		Content: content.Document{Blocks: []content.Block{
			content.ParagraphBlock{Text: gofakeit.Paragraph(1, 3, 12, " ")},
		}},
		Excerpt:    gofakeit.Sentence(8),
		Status:     status,
		Visibility: VisibilityPublic,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if status == StatusPublished {
		post.PublishedAt = &now
	}
	for _, t := range tags {
		post.Tags = append(post.Tags, Tag{Name: t})
	}
	return post
}

func uniqueName(prefix string) string {
	return fmt.Sprintf("%s %s", prefix, gofakeit.LetterN(10))
}

func findTag(tags []Tag, name string) (Tag, bool) {
	for _, t := range tags {
		if t.Name == name {
			return t, true
		}
	}
	return Tag{}, false
}

func TestRepo_Create_Get_Delete(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	categoryName := uniqueName("category")
	tagName := uniqueName("tag")

	post := newRepoPost(StatusPublished, tagName)
	post.Category = &Category{Name: categoryName}
	post.FeaturedImage = &FeaturedImage{URL: "/assets/img-1", Alt: "cover", AssetID: gofakeit.UUID()}
	post.SEO = SEO{MetaTitle: "meta", FocusKeywords: []string{tagName}}

	require.NoError(t, repo.Create(ctx, post))
	require.Positive(t, post.ID)
	require.NotNil(t, post.Category)
	assert.Positive(t, post.Category.ID)

	stored, err := repo.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, stored.Title)
	assert.Equal(t, post.Slug, stored.Slug)
	assert.Equal(t, post.Content, stored.Content)
	assert.Equal(t, categoryName, stored.Category.Name)
	assert.Equal(t, []string{tagName}, stored.TagNames())
	assert.Equal(t, post.FeaturedImage, stored.FeaturedImage)
	assert.Equal(t, "meta", stored.SEO.MetaTitle)
	require.NotNil(t, stored.PublishedAt)
	assert.True(t, post.PublishedAt.Equal(*stored.PublishedAt))

	bySlug, err := repo.GetBySlug(ctx, post.Slug)
	require.NoError(t, err)
	assert.Equal(t, post.ID, bySlug.ID)

	tags, err := repo.Tags(ctx)
	require.NoError(t, err)
	tag, found := findTag(tags, tagName)
	require.True(t, found)
	assert.Equal(t, 1, tag.PostCount)

	refs, err := repo.AssetReferences(ctx, post.FeaturedAssetID())
	require.NoError(t, err)
	assert.Equal(t, 1, refs)

	deleted, err := repo.Delete(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.FeaturedAssetID(), deleted.FeaturedAssetID())

	_, err = repo.Get(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)
	_, err = repo.Delete(ctx, post.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	refs, err = repo.AssetReferences(ctx, post.FeaturedAssetID())
	require.NoError(t, err)
	assert.Zero(t, refs)

	tags, err = repo.Tags(ctx)
	require.NoError(t, err)
	tag, found = findTag(tags, tagName)
	require.True(t, found)
	assert.Equal(t, 0, tag.PostCount)
}

func TestRepo_Create_DuplicateSlug(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	post := newRepoPost(StatusDraft)
	require.NoError(t, repo.Create(ctx, post))
	defer func() {
		_, _ = repo.Delete(ctx, post.ID)
	}()

	duplicate := newRepoPost(StatusDraft)
	duplicate.Slug = post.Slug
	assert.ErrorIs(t, repo.Create(ctx, duplicate), ErrSlugExists)
}

func TestRepo_Update_MovesCounts(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	oldTag, newTag := uniqueName("old"), uniqueName("new")
	post := newRepoPost(StatusDraft, oldTag)
	require.NoError(t, repo.Create(ctx, post))
	defer func() {
		_, _ = repo.Delete(ctx, post.ID)
	}()

	post.Title = "updated title"
	post.Tags = []Tag{{Name: newTag}}
	post.UpdatedAt = time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.Update(ctx, post))

	stored, err := repo.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "updated title", stored.Title)
	assert.Equal(t, []string{newTag}, stored.TagNames())

	tags, err := repo.Tags(ctx)
	require.NoError(t, err)
	tag, _ := findTag(tags, oldTag)
	assert.Equal(t, 0, tag.PostCount)
	tag, _ = findTag(tags, newTag)
	assert.Equal(t, 1, tag.PostCount)
}

func TestRepo_SetStatus(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	post := newRepoPost(StatusDraft)
	require.NoError(t, repo.Create(ctx, post))
	defer func() {
		_, _ = repo.Delete(ctx, post.ID)
	}()

	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, repo.SetStatus(ctx, post.ID, StatusDraft, StatusPublished, &now, now))

	// stale "from" status
	err := repo.SetStatus(ctx, post.ID, StatusDraft, StatusPublished, &now, now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	later := now.Add(time.Hour)
	require.NoError(t, repo.SetStatus(ctx, post.ID, StatusPublished, StatusDraft, nil, later))
	require.NoError(t, repo.SetStatus(ctx, post.ID, StatusDraft, StatusPublished, &later, later))

	stored, err := repo.Get(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPublished, stored.Status)
	require.NotNil(t, stored.PublishedAt)
	// first publication date is kept
	assert.True(t, now.Equal(*stored.PublishedAt))
}

func TestRepo_List_Views_Likes(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	published := newRepoPost(StatusPublished)
	private := newRepoPost(StatusPublished)
	private.Visibility = VisibilityPrivate
	draft := newRepoPost(StatusDraft)
	for _, p := range []*Post{published, private, draft} {
		require.NoError(t, repo.Create(ctx, p))
	}
	defer func() {
		for _, p := range []*Post{published, private, draft} {
			_, _ = repo.Delete(ctx, p.ID)
		}
	}()

	status := StatusPublished
	posts, total, err := repo.List(ctx, ListParams{Page: 1, Size: 100, Status: &status, PublicOnly: true})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, total, 1)

	ids := map[int]bool{}
	for _, p := range posts {
		ids[p.ID] = true
		assert.Equal(t, StatusPublished, p.Status)
		assert.NotEqual(t, VisibilityPrivate, p.Visibility)
	}
	assert.True(t, ids[published.ID])
	assert.False(t, ids[private.ID])
	assert.False(t, ids[draft.ID])

	require.NoError(t, repo.IncrementViews(ctx, published.ID))
	require.NoError(t, repo.IncrementViews(ctx, published.ID))
	likes, err := repo.IncrementLikes(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, likes)

	_, err = repo.IncrementLikes(ctx, draft.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	stored, err := repo.Get(ctx, published.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Metrics.Views)
	assert.Equal(t, 1, stored.Metrics.Likes)
}

func TestRepo_CreateCategory(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	name := uniqueName("Category")
	category, err := repo.CreateCategory(ctx, name)
	require.NoError(t, err)
	assert.Positive(t, category.ID)
	assert.Equal(t, content.Slugify(name), category.Slug)

	_, err = repo.CreateCategory(ctx, name)
	assert.ErrorIs(t, err, ErrCategoryExists)

	categories, err := repo.Categories(ctx)
	require.NoError(t, err)
	found := false
	for _, c := range categories {
		found = found || c.Name == name
	}
	assert.True(t, found)
}

func TestRepo_Create_CollidingTaxonomySlugs(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	// distinct names, same slug
	prefix := strings.ToLower(gofakeit.LetterN(12))
	plusPlus, sharp := prefix+" c++", prefix+" c#"

	first := newRepoPost(StatusPublished, plusPlus)
	first.Category = &Category{Name: prefix + " Go"}
	require.NoError(t, repo.Create(ctx, first))

	second := newRepoPost(StatusPublished, sharp, plusPlus)
	second.Category = &Category{Name: prefix + " go!"}
	require.NoError(t, repo.Create(ctx, second))

	plusPlusTag, ok := findTag(second.Tags, plusPlus)
	require.True(t, ok)
	sharpTag, ok := findTag(second.Tags, sharp)
	require.True(t, ok)
	firstTag, _ := findTag(first.Tags, plusPlus)
	assert.Equal(t, firstTag.ID, plusPlusTag.ID)
	assert.NotEqual(t, plusPlusTag.ID, sharpTag.ID)
	assert.Equal(t, prefix+"-c", plusPlusTag.Slug)
	assert.Equal(t, prefix+"-c-2", sharpTag.Slug)

	require.NotNil(t, second.Category)
	assert.NotEqual(t, first.Category.ID, second.Category.ID)
	assert.Equal(t, prefix+"-go-2", second.Category.Slug)

	// a fresh name colliding with both existing slugs
	category, err := repo.CreateCategory(ctx, prefix+" GO?")
	require.NoError(t, err)
	assert.Equal(t, prefix+"-go-3", category.Slug)

	_, err = repo.CreateCategory(ctx, prefix+" go!")
	assert.ErrorIs(t, err, ErrCategoryExists)
}

func TestRepo_Create_UnsluggableTags(t *testing.T) {
	ctx := context.Background()
	repo, shutdown := testRepoSetup(t)
	defer shutdown()

	// both names slugify to nothing
	ideograph := string(rune(0x4E00 + gofakeit.Number(0, 20000)))
	post := newRepoPost(StatusDraft, "日本"+ideograph, "中文"+ideograph)
	require.NoError(t, repo.Create(ctx, post))

	require.Len(t, post.Tags, 2)
	assert.NotEqual(t, post.Tags[0].ID, post.Tags[1].ID)
	assert.NotEqual(t, post.Tags[0].Slug, post.Tags[1].Slug)
	for _, tag := range post.Tags {
		assert.True(t, strings.HasPrefix(tag.Slug, "tag"), tag.Slug)
	}
}
