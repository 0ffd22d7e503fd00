package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const driveFileFields = "id, name, mimeType, size, createdTime"

var _ Store = (*DriveStore)(nil)

// DriveStore keeps assets in a single Google Drive folder. The asset id is the drive file id.
type DriveStore struct {
	service  *drive.Service
	folderID string
}

func NewDriveStore(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveStore, error) {
	if folderID == "" {
		return nil, errors.New("drive folder id cannot be empty")
	}
	// https://github.com/googleapis/google-api-go-client/blob/main/drive/v3/drive-gen.go
	service, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to create drive client: %w", err)
	}
	return &DriveStore{
		service:  service,
		folderID: folderID,
	}, nil
}

func (s *DriveStore) Save(ctx context.Context, params SaveParams) (_ *Asset, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "driveStore.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	span.SetAttributes(attribute.String("file.name", params.Filename))
	span.SetAttributes(attribute.Int64("file.size", params.Size))

	fileMeta := &drive.File{
		Name:     params.Filename,
		MimeType: params.ContentType,
		Parents:  []string{s.folderID},
	}
	created, err := s.service.
		Files.Create(fileMeta).
		Fields(driveFileFields).
		Media(params.File, googleapi.ContentType(params.ContentType)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("create drive file %s: %w", params.Filename, err)
	}

	log.Debugf("drive store: asset [%s] saved: %s", created.Id, params.Filename)

	return assetFromDriveFile(created), nil
}

func (s *DriveStore) Get(ctx context.Context, id string) (*Asset, io.ReadCloser, error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "driveStore.get")
	defer span.End()

	file, err := s.service.Files.Get(id).Fields(driveFileFields).Context(ctx).Do()
	if err != nil {
		return nil, nil, driveError(id, err)
	}

	resp, err := s.service.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return nil, nil, driveError(id, err)
	}

	return assetFromDriveFile(file), resp.Body, nil
}

func (s *DriveStore) Delete(ctx context.Context, id string) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "driveStore.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	if err := s.service.Files.Delete(id).Context(ctx).Do(); err != nil {
		return driveError(id, err)
	}

	log.Debugf("drive store: asset [%s] deleted", id)

	return nil
}

func assetFromDriveFile(f *drive.File) *Asset {
	asset := &Asset{
		ID:          f.Id,
		Filename:    f.Name,
		ContentType: f.MimeType,
		Size:        f.Size,
	}
	if createdAt, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		asset.CreatedAt = createdAt
	}
	return asset
}

func driveError(id string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound {
		return fmt.Errorf("%s: %w", id, ErrAssetNotFound)
	}
	return fmt.Errorf("drive file %s: %w", id, err)
}
