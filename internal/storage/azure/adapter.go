// Package azure exposes a single Azure Blob Storage account and container as a
// storage.Storage backend.
package azure

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/asad/azstorage/internal/logging"
	"github.com/asad/azstorage/internal/storage"
)

// Recorder receives per-operation measurements.
type Recorder interface {
	ObserveOperation(op, result string, duration time.Duration)
	AddBytes(direction string, n int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOperation(string, string, time.Duration) {}
func (nopRecorder) AddBytes(string, int)                           {}

// Option customizes an Adapter.
type Option func(*Adapter)

// WithDialer replaces DialAzure as the way the connection is built.
func WithDialer(d Dialer) Option {
	return func(a *Adapter) { a.dial = d }
}

// WithLogger sets the logger operations are reported to.
func WithLogger(l logging.Logger) Option {
	return func(a *Adapter) { a.logger = l }
}

// WithMetrics sets the recorder operations are measured with.
func WithMetrics(r Recorder) Option {
	return func(a *Adapter) { a.metrics = r }
}

// Adapter implements storage.Storage against one account and container.
// The blob client is created on first use and reused afterwards.
type Adapter struct {
	cfg     Config
	dial    Dialer
	logger  logging.Logger
	metrics Recorder

	mu     sync.Mutex
	client BlobClient
}

// New validates cfg and returns an adapter. No connection is made yet.
func New(cfg Config, opts ...Option) (*Adapter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &Adapter{
		cfg:     cfg.withDefaults(),
		dial:    DialAzure,
		logger:  logging.NewNop(),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(
		logging.String("account", a.cfg.AccountName),
		logging.String("container", a.cfg.Container),
	)
	return a, nil
}

// Config returns the configuration the adapter was built with.
func (a *Adapter) Config() Config {
	return a.cfg
}

// connection returns the cached client, dialing it on first use. A failed
// dial is not cached so the next operation tries again.
func (a *Adapter) connection() (BlobClient, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}
	client, err := a.dial(a.cfg)
	if err != nil {
		var se *storage.Error
		if !errors.As(err, &se) {
			err = storage.Wrap(storage.KindFatal, "connect", "", err)
		}
		a.logger.Error("failed to create blob client", logging.ErrorField(err))
		return nil, err
	}
	a.logger.Debug("blob client created", logging.String("endpoint", a.cfg.ServiceURL()))
	a.client = client
	return client, nil
}

// Open fetches the whole blob and returns it as an in-memory file.
// The mode is accepted for contract compatibility and ignored.
func (a *Adapter) Open(ctx context.Context, name string, mode storage.OpenMode) (f *storage.File, err error) {
	const op = "open"
	start := time.Now()
	defer func() { a.observe(op, name, start, err) }()

	blobName, err := storage.ValidateName(op, name)
	if err != nil {
		return nil, err
	}
	client, err := a.connection()
	if err != nil {
		return nil, err
	}
	data, err := client.GetBlob(ctx, a.cfg.Container, blobName)
	if err != nil {
		return nil, err
	}
	a.metrics.AddBytes("download", len(data))
	return storage.NewFile(blobName, data), nil
}

// Exists reports whether name is stored. Only a not-found result maps to
// false; every other failure is returned.
func (a *Adapter) Exists(ctx context.Context, name string) (ok bool, err error) {
	const op = "exists"
	start := time.Now()
	defer func() { a.observe(op, name, start, err) }()

	blobName, err := storage.ValidateName(op, name)
	if err != nil {
		return false, err
	}
	client, err := a.connection()
	if err != nil {
		return false, err
	}
	if _, err := client.GetBlobProperties(ctx, a.cfg.Container, blobName); err != nil {
		if storage.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Delete removes name. Deleting a blob that does not exist is not an error.
func (a *Adapter) Delete(ctx context.Context, name string) (err error) {
	const op = "delete"
	start := time.Now()
	defer func() { a.observe(op, name, start, err) }()

	blobName, err := storage.ValidateName(op, name)
	if err != nil {
		return err
	}
	client, err := a.connection()
	if err != nil {
		return err
	}
	if err := client.DeleteBlob(ctx, a.cfg.Container, blobName); err != nil {
		if storage.IsNotFound(err) {
			a.logger.Debug("delete of missing blob ignored", logging.String("blob", blobName))
			return nil
		}
		return err
	}
	return nil
}

// Size returns the stored content length of name. A missing blob is reported
// with the same not-found kind Exists checks for.
func (a *Adapter) Size(ctx context.Context, name string) (n int64, err error) {
	const op = "size"
	start := time.Now()
	defer func() { a.observe(op, name, start, err) }()

	blobName, err := storage.ValidateName(op, name)
	if err != nil {
		return 0, err
	}
	client, err := a.connection()
	if err != nil {
		return 0, err
	}
	props, err := client.GetBlobProperties(ctx, a.cfg.Container, blobName)
	if err != nil {
		return 0, err
	}
	return props.ContentLength, nil
}

// Save drains content into memory and uploads it as a single block blob.
// Content larger than MaxUploadSize is rejected before any remote call.
// The returned name is the normalized name the blob was stored under.
func (a *Adapter) Save(ctx context.Context, name string, content storage.Chunks) (stored string, err error) {
	const op = "save"
	start := time.Now()
	defer func() { a.observe(op, name, start, err) }()

	blobName, err := storage.ValidateName(op, name)
	if err != nil {
		return "", err
	}
	data, err := storage.ReadAll(op, blobName, content, a.cfg.MaxUploadSize)
	if err != nil {
		return "", err
	}
	client, err := a.connection()
	if err != nil {
		return "", err
	}
	if err := client.PutBlob(ctx, a.cfg.Container, blobName, data, storage.BlockBlob, storage.ContentType(blobName)); err != nil {
		return "", err
	}
	a.metrics.AddBytes("upload", len(data))
	return blobName, nil
}

// URL composes the public URL of name. No remote call is made and the name
// is not percent-encoded.
func (a *Adapter) URL(name string) string {
	return a.cfg.MediaURL + a.cfg.Container + "/" + storage.CleanName(name)
}

func (a *Adapter) observe(op, name string, start time.Time, err error) {
	elapsed := time.Since(start)
	if err == nil {
		a.metrics.ObserveOperation(op, "ok", elapsed)
		a.logger.Debug("storage operation",
			logging.String("op", op),
			logging.String("blob", name),
			logging.Duration("latency", elapsed),
		)
		return
	}
	kind := storage.KindOf(err)
	a.metrics.ObserveOperation(op, kind.String(), elapsed)
	if kind == storage.KindNotFound || kind == storage.KindInvalid {
		a.logger.Debug("storage operation failed",
			logging.String("op", op),
			logging.String("blob", name),
			logging.ErrorField(err),
		)
		return
	}
	a.logger.Warn("storage operation failed",
		logging.String("op", op),
		logging.String("blob", name),
		logging.String("kind", kind.String()),
		logging.ErrorField(err),
	)
}

var _ storage.Storage = (*Adapter)(nil)
