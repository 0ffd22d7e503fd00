package assets

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/curiouscoder/blogcms/internal/telemetry/metrics"
	"github.com/curiouscoder/blogcms/internal/telemetry/tracing"
	"github.com/curiouscoder/blogcms/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	MaxUploadSize = 50 << 20 // 50 MB
	cacheControl  = "public, max-age=31536000"

	svgContentType = "image/svg+xml"
)

type UploadResponse struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type Handler struct {
	store          Store
	baseURL        string
	metricsManager *metrics.Manager
}

func NewHandler(store Store, baseURL string, metricsManager *metrics.Manager) *Handler {
	return &Handler{
		store:          store,
		baseURL:        strings.TrimSuffix(baseURL, "/"),
		metricsManager: metricsManager,
	}
}

func (handler *Handler) SetupRoutes(router *mux.Router) {
	router.HandleFunc("/assets", handler.HandleUpload).Methods("POST", "OPTIONS").Name("upload-asset")
	router.HandleFunc("/assets/{id}", handler.HandleGet).Methods("GET", "OPTIONS").Name("get-asset")
}

// URL is the public address an uploaded asset is served from.
func (handler *Handler) URL(id string) string {
	return fmt.Sprintf("%s/assets/%s", handler.baseURL, id)
}

func (handler *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.assets.upload")
	defer span.End()

	// leave some room for the multipart envelope
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize+1<<20)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			http.Error(w, "file too big", http.StatusRequestEntityTooLarge)
			return
		}
		log.Errorf("upload asset, get file from form: %s", err)
		http.Error(w, "upload failed, missing file", http.StatusBadRequest)
		return
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Errorf("upload asset, close file: %s", err)
		}
	}()

	if header.Size > MaxUploadSize {
		http.Error(w, "file too big", http.StatusRequestEntityTooLarge)
		return
	}

	contentType, err := detectImageType(file, header.Header.Get("Content-Type"))
	if err != nil {
		log.Errorf("upload asset, detect content type: %s", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}
	if contentType == "" {
		http.Error(w, "only images can be uploaded", http.StatusUnsupportedMediaType)
		return
	}

	span.SetAttributes(attribute.String("file.name", header.Filename))
	log.Debugf("upload asset, filename: %s, size: %d, content-type: %s", header.Filename, header.Size, contentType)

	asset, err := handler.store.Save(ctx, SaveParams{
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
		File:        file,
	})
	if err != nil {
		log.Errorf("upload asset, save file: %s", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	if handler.metricsManager != nil {
		handler.metricsManager.CounterAssetUploads.Inc()
	}

	pkg.WriteJSON(w, UploadResponse{ID: asset.ID, URL: handler.URL(asset.ID)}, http.StatusCreated)
}

// detectImageType sniffs the upload, the client declared type is only trusted
// for image formats the sniffer does not know (avif, heic). Anything that
// sniffs as markup or text, svg included, is refused with an empty type.
func detectImageType(file io.ReadSeeker, declared string) (string, error) {
	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", fmt.Errorf("read file head: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind file: %w", err)
	}

	sniffed := http.DetectContentType(sniff[:n])
	if strings.HasPrefix(sniffed, "image/") && sniffed != svgContentType {
		return sniffed, nil
	}
	if sniffed != "application/octet-stream" {
		return "", nil
	}

	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil || !strings.HasPrefix(mediaType, "image/") || mediaType == svgContentType {
		return "", nil
	}
	return mediaType, nil
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.assets.get")
	defer span.End()

	id := mux.Vars(r)["id"]
	if id == "" {
		http.Error(w, "error, asset id empty", http.StatusBadRequest)
		return
	}

	asset, content, err := handler.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAssetNotFound) {
			http.NotFound(w, r)
			return
		}
		log.Errorf("get asset [%s]: %s", id, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer func() {
		if err := content.Close(); err != nil {
			log.Warnf("close asset [%s]: %s", id, err)
		}
	}()

	w.Header().Set("Content-Type", asset.ContentType)
	w.Header().Set("Cache-Control", cacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	// assets are never documents, even when opened directly
	w.Header().Set("Content-Security-Policy", "default-src 'none'; sandbox")
	if asset.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(asset.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		log.Errorf("write asset [%s]: %s", id, err)
	}
}
