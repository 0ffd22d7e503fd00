package assets

import (
	"context"
	"errors"
	"io"
	"time"
)

var ErrAssetNotFound = errors.New("asset not found")

// Asset describes one uploaded binary (in practice, a post image).
type Asset struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
	// Location is store specific: a file path for the disk store.
	Location string `json:"location,omitempty"`
}

type SaveParams struct {
	Filename    string
	ContentType string
	Size        int64
	File        io.Reader
}

// Store keeps uploaded assets. Get returns the content, which the caller must close.
type Store interface {
	Save(ctx context.Context, params SaveParams) (*Asset, error)
	Get(ctx context.Context, id string) (*Asset, io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
}
