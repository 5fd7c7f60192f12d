package azure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/asad/azstorage/internal/logging"
	"github.com/asad/azstorage/internal/storage"
)

// memClient is an in-memory BlobClient that counts every remote call.
type memClient struct {
	mu    sync.Mutex
	blobs map[string][]byte
	types map[string]string

	gets, props, deletes, puts atomic.Int64

	// Optional injected failures.
	propsErr error
	putErr   error
}

func newMemClient() *memClient {
	return &memClient{blobs: map[string][]byte{}, types: map[string]string{}}
}

func (m *memClient) key(container, name string) string { return container + "/" + name }

func (m *memClient) calls() int64 {
	return m.gets.Load() + m.props.Load() + m.deletes.Load() + m.puts.Load()
}

func (m *memClient) GetBlob(ctx context.Context, container, name string) ([]byte, error) {
	m.gets.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[m.key(container, name)]
	if !ok {
		return nil, storage.E(storage.KindNotFound, "get blob", name)
	}
	return append([]byte(nil), data...), nil
}

func (m *memClient) GetBlobProperties(ctx context.Context, container, name string) (storage.Properties, error) {
	m.props.Add(1)
	if m.propsErr != nil {
		return storage.Properties{}, m.propsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[m.key(container, name)]
	if !ok {
		return storage.Properties{}, storage.E(storage.KindNotFound, "get blob properties", name)
	}
	return storage.Properties{ContentLength: int64(len(data)), ContentType: m.types[m.key(container, name)]}, nil
}

func (m *memClient) DeleteBlob(ctx context.Context, container, name string) error {
	m.deletes.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.blobs[m.key(container, name)]; !ok {
		return storage.E(storage.KindNotFound, "delete blob", name)
	}
	delete(m.blobs, m.key(container, name))
	return nil
}

func (m *memClient) PutBlob(ctx context.Context, container, name string, data []byte, kind storage.BlobType, contentType string) error {
	m.puts.Add(1)
	if m.putErr != nil {
		return m.putErr
	}
	if kind != storage.BlockBlob {
		return fmt.Errorf("unexpected blob type %q", kind)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[m.key(container, name)] = append([]byte(nil), data...)
	m.types[m.key(container, name)] = contentType
	return nil
}

func testConfig() Config {
	return Config{
		AccountName: "acct",
		AccountKey:  "k",
		Container:   "media",
		MediaURL:    "https://cdn.example/",
	}
}

func newTestAdapter(t *testing.T, client BlobClient, opts ...Option) *Adapter {
	t.Helper()
	opts = append([]Option{WithDialer(func(Config) (BlobClient, error) { return client, nil })}, opts...)
	a, err := New(testConfig(), opts...)
	require.NoError(t, err)
	return a
}

func TestAdapterExample(t *testing.T) {
	ctx := context.Background()
	client := newMemClient()
	a := newTestAdapter(t, client)

	stored, err := a.Save(ctx, "a\\b\\c.txt", storage.ChunksOf([]byte("hello"), []byte(" world")))
	require.NoError(t, err)
	assert.Equal(t, "a/b/c.txt", stored)

	f, err := a.Open(ctx, "a/b/c.txt", storage.ModeRead)
	require.NoError(t, err)
	content, err := io.ReadAll(f)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
	assert.Equal(t, "a/b/c.txt", f.Name())

	assert.Equal(t, "https://cdn.example/media/a/b/c.txt", a.URL("a/b/c.txt"))
	assert.Equal(t, "text/plain; charset=utf-8", client.types["media/a/b/c.txt"])
}

func TestAdapterSaveOpenRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, newMemClient())

	chunks := [][]byte{[]byte("alpha-"), {}, []byte("beta-"), []byte{0x00, 0xff}, []byte("gamma")}
	var want []byte
	for _, c := range chunks {
		want = append(want, c...)
	}

	name, err := a.Save(ctx, "bin/data.bin", storage.ChunksOf(chunks...))
	require.NoError(t, err)

	f, err := a.Open(ctx, name, storage.OpenMode("r"))
	require.NoError(t, err)
	assert.Equal(t, want, f.Bytes())

	size, err := a.Size(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(len(want)), size)
}

func TestAdapterExistsAfterDelete(t *testing.T) {
	ctx := context.Background()
	a := newTestAdapter(t, newMemClient())

	_, err := a.Save(ctx, "doc.pdf", storage.ChunksOf([]byte("%PDF")))
	require.NoError(t, err)

	ok, err := a.Exists(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, a.Delete(ctx, "doc.pdf"))

	ok, err = a.Exists(ctx, "doc.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAdapterDeleteMissingIsNoop(t *testing.T) {
	client := newMemClient()
	a := newTestAdapter(t, client)

	require.NoError(t, a.Delete(context.Background(), "never/saved.txt"))
	assert.Equal(t, int64(1), client.deletes.Load())
}

func TestAdapterSizeMissingIsNotFound(t *testing.T) {
	a := newTestAdapter(t, newMemClient())

	_, err := a.Size(context.Background(), "missing.txt")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestAdapterOpenMissingIsNotFound(t *testing.T) {
	a := newTestAdapter(t, newMemClient())

	_, err := a.Open(context.Background(), "missing.txt", storage.ModeRead)
	assert.True(t, storage.IsNotFound(err))
}

func TestAdapterExistsPropagatesOtherFailures(t *testing.T) {
	client := newMemClient()
	client.propsErr = storage.Wrap(storage.KindUnauthorized, "get blob properties", "x", errors.New("403"))
	a := newTestAdapter(t, client)

	ok, err := a.Exists(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, storage.KindUnauthorized, storage.KindOf(err))

	_, err = a.Size(context.Background(), "x")
	assert.Equal(t, storage.KindUnauthorized, storage.KindOf(err))
}

func TestAdapterURLMakesNoRemoteCall(t *testing.T) {
	dials := 0
	client := newMemClient()
	a, err := New(testConfig(), WithDialer(func(Config) (BlobClient, error) {
		dials++
		return client, nil
	}))
	require.NoError(t, err)

	first := a.URL("photos\\2024/./cat.jpg")
	second := a.URL("photos\\2024/./cat.jpg")
	assert.Equal(t, first, second)
	assert.Equal(t, "https://cdn.example/media/photos/2024/cat.jpg", first)
	assert.Equal(t, "https://cdn.example/media/with space?.txt", a.URL("with space?.txt"))
	assert.Zero(t, dials)
	assert.Zero(t, client.calls())
}

func TestAdapterSaveTooLarge(t *testing.T) {
	client := newMemClient()
	a := newTestAdapter(t, client)

	big := make([]byte, 1<<20)
	chunks := make([][]byte, 0, 65)
	for i := 0; i < 65; i++ {
		chunks = append(chunks, big)
	}

	_, err := a.Save(context.Background(), "huge.bin", storage.ChunksOf(chunks...))
	require.Error(t, err)
	assert.Equal(t, storage.KindTooLarge, storage.KindOf(err))
	assert.Zero(t, client.puts.Load(), "oversized content must not reach the remote store")
}

func TestAdapterSaveAtLimit(t *testing.T) {
	client := newMemClient()
	cfg := testConfig()
	cfg.MaxUploadSize = 8
	a, err := New(cfg, WithDialer(func(Config) (BlobClient, error) { return client, nil }))
	require.NoError(t, err)

	_, err = a.Save(context.Background(), "eight.bin", storage.ChunksOf([]byte("1234"), []byte("5678")))
	require.NoError(t, err)
	_, err = a.Save(context.Background(), "nine.bin", storage.ChunksOf([]byte("12345"), []byte("6789")))
	assert.Equal(t, storage.KindTooLarge, storage.KindOf(err))
}

func TestAdapterSavePropagatesPutFailure(t *testing.T) {
	remote := errors.New("RequestBodyTooLarge")
	client := newMemClient()
	client.putErr = storage.Wrap(storage.KindTooLarge, "put blob", "x", remote)
	a := newTestAdapter(t, client)

	name, err := a.Save(context.Background(), "x", storage.ChunksOf([]byte("data")))
	assert.Empty(t, name)
	assert.ErrorIs(t, err, remote)
	assert.Equal(t, int64(1), client.puts.Load())
}

func TestAdapterRejectsInvalidNames(t *testing.T) {
	client := newMemClient()
	a := newTestAdapter(t, client)
	ctx := context.Background()

	for _, name := range []string{"", ".", "..", "../escape.txt"} {
		_, err := a.Save(ctx, name, storage.ChunksOf([]byte("x")))
		assert.Equal(t, storage.KindInvalid, storage.KindOf(err), "save %q", name)
		_, err = a.Exists(ctx, name)
		assert.Equal(t, storage.KindInvalid, storage.KindOf(err), "exists %q", name)
	}
	assert.Zero(t, client.calls())
}

func TestAdapterConnectsLazilyOnce(t *testing.T) {
	var dials atomic.Int64
	client := newMemClient()
	a, err := New(testConfig(), WithDialer(func(Config) (BlobClient, error) {
		dials.Add(1)
		return client, nil
	}))
	require.NoError(t, err)
	assert.Zero(t, dials.Load(), "New must not connect")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = a.Exists(context.Background(), fmt.Sprintf("blob-%d", i))
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), dials.Load())
	assert.Equal(t, int64(16), client.props.Load())
}

func TestAdapterRetriesFailedDial(t *testing.T) {
	attempts := 0
	client := newMemClient()
	a, err := New(testConfig(), WithDialer(func(Config) (BlobClient, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("dns failure")
		}
		return client, nil
	}))
	require.NoError(t, err)

	_, err = a.Exists(context.Background(), "x")
	require.Error(t, err)
	assert.Equal(t, storage.KindFatal, storage.KindOf(err))

	ok, err := a.Exists(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, attempts)
}

func TestNewFailsFastOnMissingSettings(t *testing.T) {
	cases := map[string]func(*Config){
		"account":   func(c *Config) { c.AccountName = "" },
		"key":       func(c *Config) { c.AccountKey = "" },
		"container": func(c *Config) { c.Container = " " },
		"media url": func(c *Config) { c.MediaURL = "" },
		"endpoint":  func(c *Config) { c.Endpoint = "ftp://example.com" },
		"size":      func(c *Config) { c.MaxUploadSize = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			_, err := New(cfg, WithDialer(func(Config) (BlobClient, error) {
				t.Fatal("dialer must not be called")
				return nil, nil
			}))
			require.Error(t, err)
		})
	}
}

func TestAdapterDefaults(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxUploadSize, a.Config().MaxUploadSize)
	assert.Equal(t, "https://acct.blob.core.windows.net/", a.Config().ServiceURL())
}

type countingRecorder struct {
	mu      sync.Mutex
	results map[string]int
	bytes   map[string]int
}

func (r *countingRecorder) ObserveOperation(op, result string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[op+":"+result]++
}

func (r *countingRecorder) AddBytes(direction string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bytes[direction] += n
}

func TestAdapterRecordsMetricsAndLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	rec := &countingRecorder{results: map[string]int{}, bytes: map[string]int{}}
	client := newMemClient()
	client.propsErr = storage.Wrap(storage.KindTransient, "get blob properties", "x", errors.New("503"))
	a := newTestAdapter(t, client, WithLogger(logging.Wrap(zap.New(core))), WithMetrics(rec))
	ctx := context.Background()

	_, err := a.Save(ctx, "x", storage.ChunksOf([]byte("abc")))
	require.NoError(t, err)
	_, err = a.Open(ctx, "x", storage.ModeRead)
	require.NoError(t, err)
	_, err = a.Size(ctx, "x")
	require.Error(t, err)

	assert.Equal(t, 1, rec.results["save:ok"])
	assert.Equal(t, 1, rec.results["open:ok"])
	assert.Equal(t, 1, rec.results["size:transient"])
	assert.Equal(t, 3, rec.bytes["upload"])
	assert.Equal(t, 3, rec.bytes["download"])

	warned := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warned, 1)
	assert.Equal(t, "size", warned[0].ContextMap()["op"])
	assert.Equal(t, "media", warned[0].ContextMap()["container"])
}

func TestAdapterAgainstFileStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.Endpoint = "file://" + t.TempDir()
	a, err := New(cfg)
	require.NoError(t, err)

	name, err := a.Save(ctx, "nested\\dir\\note.md", storage.ReaderChunks(strings.NewReader("# title\nbody"), 4))
	require.NoError(t, err)
	assert.Equal(t, "nested/dir/note.md", name)

	size, err := a.Size(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, int64(12), size)

	f, err := a.Open(ctx, name, storage.ModeRead)
	require.NoError(t, err)
	assert.Equal(t, "# title\nbody", string(f.Bytes()))

	require.NoError(t, a.Delete(ctx, name))
	require.NoError(t, a.Delete(ctx, name))
	ok, err := a.Exists(ctx, name)
	require.NoError(t, err)
	assert.False(t, ok)
}
