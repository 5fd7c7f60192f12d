package azure

import (
	"context"
	"fmt"
	"net/url"

	"github.com/asad/azstorage/internal/storage"
	"github.com/asad/azstorage/internal/storage/filestore"
)

// BlobClient is the remote capability set the adapter consumes. Failures must
// already carry a storage.Kind so callers can tell a missing blob apart from
// every other failure.
type BlobClient interface {
	GetBlob(ctx context.Context, container, name string) ([]byte, error)
	GetBlobProperties(ctx context.Context, container, name string) (storage.Properties, error)
	DeleteBlob(ctx context.Context, container, name string) error
	PutBlob(ctx context.Context, container, name string, data []byte, kind storage.BlobType, contentType string) error
}

// Dialer builds the BlobClient for a configuration.
type Dialer func(cfg Config) (BlobClient, error)

// DialAzure connects to the configured blob service. file:// endpoints are
// served from a local directory.
func DialAzure(cfg Config) (BlobClient, error) {
	if cfg.Endpoint != "" {
		u, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("azure: parse endpoint: %w", err)
		}
		if u.Scheme == "file" {
			store, err := filestore.New(localDir(u), cfg.AccountName)
			if err != nil {
				return nil, err
			}
			return store, nil
		}
	}
	client, err := newSDKClient(cfg)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// localDir accepts file:///abs/path, file://rel/path and file:rel/path.
func localDir(u *url.URL) string {
	if u.Opaque != "" {
		return u.Opaque
	}
	return u.Host + u.Path
}

var (
	_ BlobClient = (*sdkClient)(nil)
	_ BlobClient = (*filestore.Store)(nil)
)
