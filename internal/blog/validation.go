package blog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/curiouscoder/blogcms/internal/content"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const (
	maxTitleLength = 200
	minNameLength  = 2
	maxNameLength  = 50
	maxTags        = 20
)

var (
	createStatuses = []any{StatusDraft, StatusPublished}
	allStatuses    = []any{StatusDraft, StatusPublished, StatusArchived}
	visibilities   = []any{VisibilityPublic, VisibilityPrivate, VisibilityPasswordProtected}
)

// PostInput is what an author submits when creating or updating a post.
type PostInput struct {
	Title         string           `json:"title"`
	Content       content.Document `json:"content"`
	Excerpt       string           `json:"excerpt"`
	Status        Status           `json:"status"`
	Visibility    Visibility       `json:"visibility"`
	Password      string           `json:"password"`
	Category      string           `json:"category"`
	Tags          []string         `json:"tags"`
	FeaturedImage *FeaturedImage   `json:"featured_image"`
	SEO           *SEO             `json:"seo"`
}

// Normalize trims names and drops duplicate tags, in place.
func (in *PostInput) Normalize() {
	in.Title = strings.TrimSpace(in.Title)
	in.Excerpt = strings.TrimSpace(in.Excerpt)
	in.Category = NormalizeCategoryName(in.Category)
	if in.Status == "" {
		in.Status = StatusDraft
	}
	if in.Visibility == "" {
		in.Visibility = VisibilityPublic
	}

	seen := make(map[string]bool, len(in.Tags))
	tags := make([]string, 0, len(in.Tags))
	for _, t := range in.Tags {
		t = NormalizeTagName(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	in.Tags = tags
}

// Validate checks a normalized input. requirePassword is set when a
// password-protected post has no stored password yet.
func (in *PostInput) Validate(requirePassword bool) error {
	return in.validate(requirePassword, createStatuses)
}

// validateUpdate also accepts archived, whether the status change is allowed
// is decided by the current status of the post.
func (in *PostInput) validateUpdate(requirePassword bool) error {
	return in.validate(requirePassword, allStatuses)
}

func (in *PostInput) validate(requirePassword bool, statuses []any) error {
	err := validation.ValidateStruct(in,
		validation.Field(&in.Title,
			validation.Required.Error("title is required"),
			validation.RuneLength(1, maxTitleLength),
		),
		validation.Field(&in.Content,
			validation.By(documentNotEmpty),
		),
		validation.Field(&in.Status,
			validation.In(statuses...).Error("invalid status"),
		),
		validation.Field(&in.Visibility,
			validation.In(visibilities...).Error("unknown visibility"),
		),
		validation.Field(&in.Password,
			validation.When(
				requirePassword && in.Visibility == VisibilityPasswordProtected,
				validation.Required.Error("password is required for password-protected posts"),
			),
		),
		validation.Field(&in.Category,
			validation.RuneLength(minNameLength, maxNameLength),
		),
		validation.Field(&in.Tags,
			validation.Length(0, maxTags),
			validation.Each(validation.RuneLength(minNameLength, maxNameLength)),
		),
		validation.Field(&in.FeaturedImage),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPost, err)
	}
	return nil
}

func (f FeaturedImage) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.URL,
			validation.Required.Error("featured image url is required"),
			is.RequestURI,
		),
		validation.Field(&f.Alt, validation.RuneLength(0, 300)),
	)
}

func documentNotEmpty(value any) error {
	doc, ok := value.(content.Document)
	if !ok {
		return errors.New("unexpected content type")
	}
	if doc.IsEmpty() {
		return errors.New("content has no blocks")
	}
	return nil
}

func NormalizeCategoryName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func NormalizeTagName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func ValidateName(name string) error {
	if err := validation.Validate(name,
		validation.Required.Error("name is required"),
		validation.RuneLength(minNameLength, maxNameLength),
	); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPost, err)
	}
	return nil
}
