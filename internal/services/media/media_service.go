package media

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/asad/azstorage/internal/core"
	"github.com/asad/azstorage/internal/logging"
	"github.com/asad/azstorage/internal/storage"
)

// MediaService exposes a storage backend over HTTP.
type MediaService struct {
	store  storage.Storage
	logger logging.Logger
}

// NewMediaService creates a new media service instance.
func NewMediaService(store storage.Storage, logger logging.Logger) *MediaService {
	return &MediaService{
		store:  store,
		logger: logger,
	}
}

// Name returns the service identifier.
func (s *MediaService) Name() string {
	return "media"
}

// RegisterRoutes sets up HTTP routes for the storage contract:
//   - GET /{name}       - Open and stream the blob
//   - GET /{name}?url   - Public URL of the blob (no remote call)
//   - HEAD /{name}      - Exists and Size
//   - PUT /{name}       - Save the request body
//   - DELETE /{name}    - Delete the blob
func (s *MediaService) RegisterRoutes(router chi.Router) {
	router.Get("/*", s.handleGet)
	router.Head("/*", s.handleHead)
	router.Put("/*", s.handlePut)
	router.Delete("/*", s.handleDelete)
}

// blobName returns the decoded wildcard segment. chi matches against the raw
// path when the request carries one, leaving the parameter escaped.
func blobName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return name, nil
	}
	decoded, err := url.PathUnescape(name)
	if err != nil {
		return "", storage.Wrap(storage.KindInvalid, "route", name, err)
	}
	return decoded, nil
}

// name resolves the blob name or answers the request with 400.
func (s *MediaService) name(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := blobName(r)
	if err != nil {
		s.writeStorageError(w, "route", chi.URLParam(r, "*"), err)
		return "", false
	}
	return name, true
}

// handleGet handles GET /{name}: either a URL lookup or a download.
func (s *MediaService) handleGet(w http.ResponseWriter, r *http.Request) {
	name, ok := s.name(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Has("url") {
		s.writeJSON(w, http.StatusOK, URLResult{
			Name: storage.CleanName(name),
			URL:  s.store.URL(name),
		})
		return
	}

	f, err := s.store.Open(r.Context(), name, storage.ModeRead)
	if err != nil {
		s.writeStorageError(w, "open", name, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", storage.ContentType(f.Name()))
	s.logger.Info("blob downloaded",
		logging.String("blob", f.Name()),
		logging.Int64("size", f.Size()),
	)
	http.ServeContent(w, r, f.Name(), time.Time{}, f)
}

// handleHead handles HEAD /{name}, reporting existence and size.
func (s *MediaService) handleHead(w http.ResponseWriter, r *http.Request) {
	name, ok := s.name(w, r)
	if !ok {
		return
	}

	ok, err := s.store.Exists(r.Context(), name)
	if err != nil {
		s.writeStorageError(w, "exists", name, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	size, err := s.store.Size(r.Context(), name)
	if err != nil {
		s.writeStorageError(w, "size", name, err)
		return
	}
	w.Header().Set("Content-Type", storage.ContentType(name))
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(http.StatusOK)
}

// handlePut handles PUT /{name}, storing the request body.
func (s *MediaService) handlePut(w http.ResponseWriter, r *http.Request) {
	name, ok := s.name(w, r)
	if !ok {
		return
	}
	defer r.Body.Close()

	body := &countingReader{r: r.Body}
	stored, err := s.store.Save(r.Context(), name, storage.ReaderChunks(body, 0))
	if err != nil {
		s.writeStorageError(w, "save", name, err)
		return
	}

	s.logger.Info("blob uploaded",
		logging.String("blob", stored),
		logging.Int64("size", body.n),
	)
	s.writeJSON(w, http.StatusCreated, SaveResult{
		Name: stored,
		URL:  s.store.URL(stored),
		Size: body.n,
	})
}

// handleDelete handles DELETE /{name}.
func (s *MediaService) handleDelete(w http.ResponseWriter, r *http.Request) {
	name, ok := s.name(w, r)
	if !ok {
		return
	}

	if err := s.store.Delete(r.Context(), name); err != nil {
		s.writeStorageError(w, "delete", name, err)
		return
	}

	s.logger.Info("blob deleted", logging.String("blob", storage.CleanName(name)))
	w.WriteHeader(http.StatusNoContent)
}

// writeStorageError maps an error kind onto an HTTP status.
func (s *MediaService) writeStorageError(w http.ResponseWriter, op, name string, err error) {
	kind := storage.KindOf(err)
	status, code := statusFor(kind)
	if status >= http.StatusInternalServerError {
		s.logger.Error("storage operation failed",
			logging.String("op", op),
			logging.String("blob", name),
			logging.String("kind", kind.String()),
			logging.ErrorField(err),
		)
	}
	s.writeJSON(w, status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

func statusFor(kind storage.Kind) (int, string) {
	switch kind {
	case storage.KindInvalid:
		return http.StatusBadRequest, "InvalidBlobName"
	case storage.KindNotFound:
		return http.StatusNotFound, "BlobNotFound"
	case storage.KindTooLarge:
		return http.StatusRequestEntityTooLarge, "RequestBodyTooLarge"
	case storage.KindUnauthorized:
		return http.StatusBadGateway, "BackendAuthenticationFailed"
	case storage.KindTransient:
		return http.StatusServiceUnavailable, "BackendUnavailable"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

func (s *MediaService) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", logging.ErrorField(err))
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// Ensure MediaService implements the Service interface.
var _ core.Service = (*MediaService)(nil)
