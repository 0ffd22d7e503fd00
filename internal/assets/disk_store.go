package assets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"
	"github.com/curiouscoder/blogcms/pkg"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// json index of all stored assets, kept within the root path
const indexFileName = "assets-index.json"

var extensionRegex = regexp.MustCompile(`^\.[a-z0-9]{1,8}$`)

var _ Store = (*DiskStore)(nil)

type DiskStore struct {
	rootPath string
	index    map[string]*Asset
	mutex    sync.RWMutex
}

func NewDiskStore(rootPath string) (*DiskStore, error) {
	if rootPath == "" {
		return nil, errors.New("root path cannot be empty")
	}
	index, err := loadIndex(rootPath)
	if err != nil {
		return nil, fmt.Errorf("load assets index: %w", err)
	}
	return &DiskStore{
		rootPath: rootPath,
		index:    index,
	}, nil
}

func (ds *DiskStore) Save(ctx context.Context, params SaveParams) (_ *Asset, err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "diskStore.save")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	span.SetAttributes(attribute.String("file.name", params.Filename))
	span.SetAttributes(attribute.Int64("file.size", params.Size))
	log.Debugf("disk store: saving new asset: %s", params.Filename)

	id := uuid.NewString()
	filePath := filepath.Join(ds.rootPath, id+fileExtension(params.Filename))

	// write the content without holding the lock
	dst, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	written, err := io.Copy(dst, params.File)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := os.Remove(filePath); removeErr != nil {
			log.Errorf("disk store: remove partially written asset %s: %s", filePath, removeErr)
		}
		return nil, err
	}

	asset := &Asset{
		ID:          id,
		Filename:    params.Filename,
		ContentType: params.ContentType,
		Size:        written,
		CreatedAt:   time.Now(),
		Location:    filePath,
	}

	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	ds.index[id] = asset
	if err := saveIndex(ds.rootPath, ds.index); err != nil {
		delete(ds.index, id)
		if removeErr := os.Remove(filePath); removeErr != nil {
			log.Errorf("disk store: remove asset after failed index save %s: %s", filePath, removeErr)
		}
		return nil, fmt.Errorf("asset written, but failed to save index: %w", err)
	}

	log.Debugf("disk store: asset [%s] saved: %s", id, filePath)

	copied := *asset
	return &copied, nil
}

func (ds *DiskStore) Get(ctx context.Context, id string) (*Asset, io.ReadCloser, error) {
	_, span := tracing.GlobalTracer.Start(ctx, "diskStore.get")
	defer span.End()

	ds.mutex.RLock()
	asset, ok := ds.index[id]
	ds.mutex.RUnlock()
	if !ok {
		return nil, nil, ErrAssetNotFound
	}

	file, err := os.Open(asset.Location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, fmt.Errorf("%s: %w", id, ErrAssetNotFound)
		}
		return nil, nil, err
	}

	copied := *asset
	return &copied, file, nil
}

func (ds *DiskStore) Delete(ctx context.Context, id string) (err error) {
	_, span := tracing.GlobalTracer.Start(ctx, "diskStore.delete")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	log.Debugf("disk store: deleting asset: %s", id)

	asset, ok := ds.index[id]
	if !ok {
		return ErrAssetNotFound
	}

	if err := os.Remove(asset.Location); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	delete(ds.index, id)
	if err := saveIndex(ds.rootPath, ds.index); err != nil {
		return fmt.Errorf("asset deleted, but failed to save index: %w", err)
	}

	log.Debugf("disk store: asset [%s] deleted", id)

	return nil
}

func (ds *DiskStore) Count() int {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return len(ds.index)
}

func fileExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if !extensionRegex.MatchString(ext) {
		return ""
	}
	return ext
}

func loadIndex(rootPath string) (map[string]*Asset, error) {
	exists, err := pkg.PathExists(rootPath, true)
	if err != nil {
		return nil, fmt.Errorf("check root path %s: %w", rootPath, err)
	}
	if !exists {
		return nil, fmt.Errorf("root path [%s] does not exist", rootPath)
	}

	indexPath := filepath.Join(rootPath, indexFileName)
	indexJson, err := os.ReadFile(indexPath)
	if errors.Is(err, os.ErrNotExist) {
		log.Debugln("assets index does not exist, creating a fresh one ...")
		index := make(map[string]*Asset)
		if err := saveIndex(rootPath, index); err != nil {
			return nil, err
		}
		return index, nil
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]*Asset)
	if err := json.Unmarshal(indexJson, &index); err != nil {
		return nil, fmt.Errorf("unmarshal assets index: %w", err)
	}
	return index, nil
}

// saveIndex writes to a temp file first, so a crash never leaves a truncated index.
func saveIndex(rootPath string, index map[string]*Asset) error {
	indexJson, err := json.Marshal(index)
	if err != nil {
		return err
	}

	indexPath := filepath.Join(rootPath, indexFileName)
	tmpPath := indexPath + ".tmp"
	if err := os.WriteFile(tmpPath, indexJson, 0644); err != nil {
		return err
	}
	return os.Rename(tmpPath, indexPath)
}
