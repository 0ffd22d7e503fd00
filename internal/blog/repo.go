package blog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/curiouscoder/blogcms/internal/content"
	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"
	"github.com/curiouscoder/blogcms/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// manual caching of prepared statements not needed:
// https://github.com/jackc/pgx/wiki/Automatic-Prepared-Statement-Caching

const selectPost = `
	SELECT p.id, p.title, p.slug, p.content, p.excerpt, p.status, p.visibility, p.password_hash,
	       p.featured_image_url, p.featured_image_alt, p.featured_image_asset, p.seo,
	       p.views, p.likes, p.reading_time, p.created_at, p.updated_at, p.published_at,
	       c.id, c.name, c.slug, c.post_count
	FROM post p
	LEFT JOIN category c ON c.id = p.category_id
`

// querier is satisfied by both the pool and a transaction
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ postsRepo = (*Repo)(nil)

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

// inTx runs fn in a transaction, committing when fn returns no error.
func (r *Repo) inTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(ctx); rollbackErr != nil {
				err = fmt.Errorf("failed to rollback transaction: %w: %w", rollbackErr, err)
			}
		} else {
			err = tx.Commit(ctx)
		}
	}()

	return fn(tx)
}

// Create stores a new post together with its category and tags (created when
// missing) and the post counters, all or nothing.
func (r *Repo) Create(ctx context.Context, post *Post) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.create")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	contentJson, seoJson, err := marshalPostJson(post)
	if err != nil {
		return err
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		if err := resolveReferences(ctx, tx, post); err != nil {
			return err
		}

		err := tx.QueryRow(ctx, `
			INSERT INTO post (
				title, slug, content, excerpt, status, visibility, password_hash, category_id,
				featured_image_url, featured_image_alt, featured_image_asset, seo,
				reading_time, created_at, updated_at, published_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
			RETURNING id
		`,
			post.Title, post.Slug, contentJson, post.Excerpt, string(post.Status), string(post.Visibility),
			post.PasswordHash, categoryID(post), image(post).URL, image(post).Alt, image(post).AssetID,
			seoJson, post.Metrics.ReadingTime, post.CreatedAt, post.UpdatedAt, post.PublishedAt,
		).Scan(&post.ID)
		if err != nil {
			if constraint, ok := pkg.UniqueViolation(err); ok {
				return fmt.Errorf("%s [%s]: %w", post.Slug, constraint, ErrSlugExists)
			}
			return fmt.Errorf("insert post: %w", err)
		}
		span.SetAttributes(attribute.Int("post.id", post.ID))

		if err := linkTags(ctx, tx, post); err != nil {
			return err
		}
		return adjustCounts(ctx, tx, categoryID(post), tagIDs(post.Tags), 1)
	})
}

// Update overwrites the editable fields of a post. Slug, views and likes are kept.
func (r *Repo) Update(ctx context.Context, post *Post) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.update")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", post.ID))

	contentJson, seoJson, err := marshalPostJson(post)
	if err != nil {
		return err
	}

	return r.inTx(ctx, func(tx pgx.Tx) error {
		var oldCategoryID *int
		err := tx.QueryRow(ctx, `SELECT category_id FROM post WHERE id = $1 FOR UPDATE`, post.ID).Scan(&oldCategoryID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrPostNotFound
			}
			return fmt.Errorf("lock post: %w", err)
		}
		oldTags, err := loadTags(ctx, tx, []int{post.ID})
		if err != nil {
			return err
		}

		if err := resolveReferences(ctx, tx, post); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE post SET
				title = $1, content = $2, excerpt = $3, status = $4, visibility = $5,
				password_hash = $6, category_id = $7, featured_image_url = $8,
				featured_image_alt = $9, featured_image_asset = $10, seo = $11,
				reading_time = $12, updated_at = $13, published_at = $14
			WHERE id = $15
		`,
			post.Title, contentJson, post.Excerpt, string(post.Status), string(post.Visibility),
			post.PasswordHash, categoryID(post), image(post).URL,
			image(post).Alt, image(post).AssetID, seoJson,
			post.Metrics.ReadingTime, post.UpdatedAt, post.PublishedAt,
			post.ID,
		)
		if err != nil {
			return fmt.Errorf("update post: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM post_tag WHERE post_id = $1`, post.ID); err != nil {
			return fmt.Errorf("unlink tags: %w", err)
		}
		if err := linkTags(ctx, tx, post); err != nil {
			return err
		}

		if err := adjustCounts(ctx, tx, oldCategoryID, tagIDs(oldTags[post.ID]), -1); err != nil {
			return err
		}
		return adjustCounts(ctx, tx, categoryID(post), tagIDs(post.Tags), 1)
	})
}

// Delete removes the post and returns it as it was, so callers can release what it referenced.
func (r *Repo) Delete(ctx context.Context, id int) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))

	var deleted *Post
	err = r.inTx(ctx, func(tx pgx.Tx) error {
		post, err := getPost(ctx, tx, `WHERE p.id = $1 FOR UPDATE OF p`, id)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM post WHERE id = $1`, id); err != nil {
			return fmt.Errorf("delete post: %w", err)
		}
		if err := adjustCounts(ctx, tx, categoryID(post), tagIDs(post.Tags), -1); err != nil {
			return err
		}

		deleted = post
		return nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

func (r *Repo) Get(ctx context.Context, id int) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))

	return getPost(ctx, r.db, `WHERE p.id = $1`, id)
}

func (r *Repo) GetBySlug(ctx context.Context, slug string) (_ *Post, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.getBySlug")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("post.slug", slug))

	return getPost(ctx, r.db, `WHERE p.slug = $1`, slug)
}

func (r *Repo) List(ctx context.Context, params ListParams) (_ []*Post, _ int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("page", params.Page))
	span.SetAttributes(attribute.Int("size", params.Size))

	var status *string
	if params.Status != nil {
		s := string(*params.Status)
		status = &s
	}

	var total int
	err = r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM post p
		WHERE ($1::text IS NULL OR p.status = $1)
		  AND ($2::boolean IS FALSE OR p.visibility <> 'private')
	`, status, params.PublicOnly).Scan(&total)
	if err != nil {
		return nil, -1, fmt.Errorf("count posts: %w", err)
	}

	log.Tracef("getting posts, count %d, page %d, size %d", total, params.Page, params.Size)

	rows, err := r.db.Query(ctx, selectPost+`
		WHERE ($1::text IS NULL OR p.status = $1)
		  AND ($2::boolean IS FALSE OR p.visibility <> 'private')
		ORDER BY p.published_at DESC NULLS LAST, p.id DESC
		LIMIT $3 OFFSET $4
	`, status, params.PublicOnly, params.Size, (params.Page-1)*params.Size)
	if err != nil {
		return nil, -1, err
	}
	defer rows.Close()

	posts := make([]*Post, 0, params.Size)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, -1, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		return nil, -1, err
	}

	if err := attachTags(ctx, r.db, posts); err != nil {
		return nil, -1, err
	}

	return posts, total, nil
}

// SetStatus moves a post from one status to another. The update only applies
// while the post is still in the from status. publishedAt is only written when
// the post has never been published.
func (r *Repo) SetStatus(ctx context.Context, id int, from, to Status, publishedAt *time.Time, updatedAt time.Time) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.setStatus")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("post.id", id))
	span.SetAttributes(attribute.String("post.status", string(to)))

	tag, err := r.db.Exec(ctx, `
		UPDATE post
		SET status = $1, published_at = COALESCE(published_at, $2), updated_at = $3
		WHERE id = $4 AND status = $5
	`, string(to), publishedAt, updatedAt, id, string(from))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d is no longer %s: %w", id, from, ErrInvalidTransition)
	}
	return nil
}

func (r *Repo) IncrementViews(ctx context.Context, id int) error {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.incrementViews")
	defer span.End()

	tag, err := r.db.Exec(ctx, `UPDATE post SET views = views + 1 WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPostNotFound
	}
	return nil
}

// IncrementLikes only counts likes of published posts.
func (r *Repo) IncrementLikes(ctx context.Context, id int) (int, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.incrementLikes")
	defer span.End()

	var likes int
	err := r.db.QueryRow(ctx, `
		UPDATE post SET likes = likes + 1
		WHERE id = $1 AND status = 'published'
		RETURNING likes
	`, id).Scan(&likes)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrPostNotFound
		}
		return 0, err
	}
	return likes, nil
}

// AssetReferences counts posts still using the asset as their featured image.
func (r *Repo) AssetReferences(ctx context.Context, assetID string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM post WHERE featured_image_asset = $1`, assetID).Scan(&count)
	if err != nil {
		return -1, err
	}
	return count, nil
}

func (r *Repo) Categories(ctx context.Context) ([]Category, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.categories")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT id, name, slug, post_count FROM category ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.PostCount); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repo) Tags(ctx context.Context) ([]Tag, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.tags")
	defer span.End()

	rows, err := r.db.Query(ctx, `SELECT id, name, slug, post_count FROM tag ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := make([]Tag, 0)
	for rows.Next() {
		var t Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Slug, &t.PostCount); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *Repo) CreateCategory(ctx context.Context, name string) (*Category, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.blog.createCategory")
	defer span.End()

	entry, created, err := getOrCreateTaxonomy(ctx, r.db, "category", name)
	if err != nil {
		return nil, fmt.Errorf("create category %s: %w", name, err)
	}
	if !created {
		return nil, fmt.Errorf("%s: %w", name, ErrCategoryExists)
	}

	c := Category(entry)
	return &c, nil
}

func getPost(ctx context.Context, q querier, where string, arg any) (*Post, error) {
	post, err := scanPost(q.QueryRow(ctx, selectPost+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	if err := attachTags(ctx, q, []*Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

func scanPost(row pgx.Row) (*Post, error) {
	var (
		post                 Post
		contentJson, seoJson []byte
		status, visibility   string
		imageURL, imageAlt   string
		imageAsset           string
		catID, catCount      *int
		catName, catSlug     *string
	)
	err := row.Scan(
		&post.ID, &post.Title, &post.Slug, &contentJson, &post.Excerpt, &status, &visibility, &post.PasswordHash,
		&imageURL, &imageAlt, &imageAsset, &seoJson,
		&post.Metrics.Views, &post.Metrics.Likes, &post.Metrics.ReadingTime,
		&post.CreatedAt, &post.UpdatedAt, &post.PublishedAt,
		&catID, &catName, &catSlug, &catCount,
	)
	if err != nil {
		return nil, err
	}

	post.Status = Status(status)
	post.Visibility = Visibility(visibility)

	doc, err := content.ParseDocument(contentJson)
	if err != nil {
		return nil, fmt.Errorf("post %d content: %w", post.ID, err)
	}
	post.Content = doc

	if len(seoJson) > 0 {
		if err := json.Unmarshal(seoJson, &post.SEO); err != nil {
			return nil, fmt.Errorf("post %d seo: %w", post.ID, err)
		}
	}

	if imageURL != "" {
		post.FeaturedImage = &FeaturedImage{URL: imageURL, Alt: imageAlt, AssetID: imageAsset}
	}
	if catID != nil {
		post.Category = &Category{ID: *catID, Name: *catName, Slug: *catSlug, PostCount: *catCount}
	}
	post.Tags = []Tag{}

	return &post, nil
}

func loadTags(ctx context.Context, q querier, postIDs []int) (map[int][]Tag, error) {
	tags := make(map[int][]Tag, len(postIDs))
	if len(postIDs) == 0 {
		return tags, nil
	}

	rows, err := q.Query(ctx, `
		SELECT pt.post_id, t.id, t.name, t.slug, t.post_count
		FROM post_tag pt
		JOIN tag t ON t.id = pt.tag_id
		WHERE pt.post_id = ANY($1)
		ORDER BY t.name
	`, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var postID int
		var t Tag
		if err := rows.Scan(&postID, &t.ID, &t.Name, &t.Slug, &t.PostCount); err != nil {
			return nil, err
		}
		tags[postID] = append(tags[postID], t)
	}
	return tags, rows.Err()
}

func attachTags(ctx context.Context, q querier, posts []*Post) error {
	ids := make([]int, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	tags, err := loadTags(ctx, q, ids)
	if err != nil {
		return err
	}
	for _, p := range posts {
		if t, ok := tags[p.ID]; ok {
			p.Tags = t
		}
	}
	return nil
}

// resolveReferences swaps the category and tag names of post for stored rows,
// creating the ones that do not exist yet.
func resolveReferences(ctx context.Context, tx pgx.Tx, post *Post) error {
	if post.Category != nil && post.Category.Name != "" {
		entry, _, err := getOrCreateTaxonomy(ctx, tx, "category", post.Category.Name)
		if err != nil {
			return fmt.Errorf("get or create category %s: %w", post.Category.Name, err)
		}
		c := Category(entry)
		post.Category = &c
	} else {
		post.Category = nil
	}

	tags := make([]Tag, 0, len(post.Tags))
	for _, t := range post.Tags {
		resolved, _, err := getOrCreateTaxonomy(ctx, tx, "tag", t.Name)
		if err != nil {
			return fmt.Errorf("get or create tag %s: %w", t.Name, err)
		}
		tags = append(tags, resolved)
	}
	post.Tags = tags

	return nil
}

const maxSlugAttempts = 20

// taxonomySlug is the slug tried on the given insert attempt, counting from 1.
// Names with nothing to slugify ("日本", "🚀") fall back to the table name.
func taxonomySlug(table, name string, attempt int) string {
	base := content.Slugify(name)
	if base == "" {
		base = table
	}
	if attempt <= 1 {
		return base
	}
	return fmt.Sprintf("%s-%d", base, attempt)
}

// getOrCreateTaxonomy finds a category or tag row by name, inserting it when
// missing. Distinct names can fold to one slug ("c++" and "c#"), the later
// one gets a numeric suffix. created reports whether this call inserted the row.
func getOrCreateTaxonomy(ctx context.Context, q querier, table, name string) (_ Tag, created bool, err error) {
	entry := Tag{Name: name}
	selectByName := fmt.Sprintf(`SELECT id, slug, post_count FROM %s WHERE name = $1`, table)
	insert := fmt.Sprintf(`
		INSERT INTO %s (name, slug) VALUES ($1, $2)
		ON CONFLICT DO NOTHING
		RETURNING id, slug, post_count
	`, table)

	for attempt := 1; attempt <= maxSlugAttempts; attempt++ {
		err = q.QueryRow(ctx, selectByName, name).Scan(&entry.ID, &entry.Slug, &entry.PostCount)
		if err == nil {
			return entry, false, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Tag{}, false, err
		}

		err = q.QueryRow(ctx, insert, name, taxonomySlug(table, name, attempt)).
			Scan(&entry.ID, &entry.Slug, &entry.PostCount)
		if err == nil {
			return entry, true, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return Tag{}, false, err
		}
		// name or slug already taken, the name lookup runs again first
	}

	return Tag{}, false, fmt.Errorf("no free slug for %s %q after %d attempts", table, name, maxSlugAttempts)
}

func linkTags(ctx context.Context, tx pgx.Tx, post *Post) error {
	for _, t := range post.Tags {
		if _, err := tx.Exec(ctx, `INSERT INTO post_tag (post_id, tag_id) VALUES ($1, $2)`, post.ID, t.ID); err != nil {
			return fmt.Errorf("link tag %s: %w", t.Name, err)
		}
	}
	return nil
}

func adjustCounts(ctx context.Context, q querier, catID *int, tagIDs []int, delta int) error {
	if catID != nil {
		if _, err := q.Exec(ctx, `UPDATE category SET post_count = post_count + $1 WHERE id = $2`, delta, *catID); err != nil {
			return fmt.Errorf("update category post count: %w", err)
		}
	}
	if len(tagIDs) > 0 {
		if _, err := q.Exec(ctx, `UPDATE tag SET post_count = post_count + $1 WHERE id = ANY($2)`, delta, tagIDs); err != nil {
			return fmt.Errorf("update tags post count: %w", err)
		}
	}
	return nil
}

func marshalPostJson(post *Post) (contentJson, seoJson []byte, err error) {
	contentJson, err = json.Marshal(post.Content)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal post content: %w", err)
	}
	seoJson, err = json.Marshal(post.SEO)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal post seo: %w", err)
	}
	return contentJson, seoJson, nil
}

func categoryID(post *Post) *int {
	if post.Category == nil || post.Category.ID == 0 {
		return nil
	}
	id := post.Category.ID
	return &id
}

func image(post *Post) FeaturedImage {
	if post.FeaturedImage == nil {
		return FeaturedImage{}
	}
	return *post.FeaturedImage
}

func tagIDs(tags []Tag) []int {
	ids := make([]int, 0, len(tags))
	for _, t := range tags {
		ids = append(ids, t.ID)
	}
	return ids
}
