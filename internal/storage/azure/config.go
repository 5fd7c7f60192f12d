package azure

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// DefaultMaxUploadSize is the single-request Put Blob ceiling the adapter
// enforces when none is configured.
const DefaultMaxUploadSize int64 = 64 << 20

// Config holds the fixed account and container an Adapter talks to.
// It is immutable once passed to New.
type Config struct {
	// AccountName is the storage account identifier.
	AccountName string

	// AccountKey is the shared key secret for AccountName.
	AccountKey string

	// Container is the single container every blob lives in.
	Container string

	// MediaURL is the public URL prefix blobs are served from. URL appends
	// "<container>/<name>" to it verbatim, so it normally ends with a slash.
	MediaURL string

	// Endpoint overrides the blob service URL. Empty means
	// https://<account>.blob.core.windows.net/. A file:// endpoint stores
	// blobs in a local directory instead.
	Endpoint string

	// MaxUploadSize caps the content Save accepts. Zero means
	// DefaultMaxUploadSize.
	MaxUploadSize int64
}

// Validate checks that every required setting is present.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.AccountName) == "" {
		errs = append(errs, errors.New("account name is required"))
	}
	if strings.TrimSpace(c.AccountKey) == "" {
		errs = append(errs, errors.New("account key is required"))
	}
	if strings.TrimSpace(c.Container) == "" {
		errs = append(errs, errors.New("container is required"))
	} else if strings.Contains(c.Container, "/") {
		errs = append(errs, fmt.Errorf("container %q must not contain '/'", c.Container))
	}
	if strings.TrimSpace(c.MediaURL) == "" {
		errs = append(errs, errors.New("media URL is required"))
	}
	if c.Endpoint != "" {
		u, err := url.Parse(c.Endpoint)
		switch {
		case err != nil:
			errs = append(errs, fmt.Errorf("invalid endpoint: %w", err))
		case u.Scheme != "http" && u.Scheme != "https" && u.Scheme != "file":
			errs = append(errs, fmt.Errorf("endpoint scheme %q not supported", u.Scheme))
		}
	}
	if c.MaxUploadSize < 0 {
		errs = append(errs, fmt.Errorf("max upload size must not be negative: %d", c.MaxUploadSize))
	}
	if len(errs) > 0 {
		return fmt.Errorf("azure: invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ServiceURL returns the blob service endpoint for the account.
func (c Config) ServiceURL() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.AccountName)
}

func (c Config) withDefaults() Config {
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = DefaultMaxUploadSize
	}
	return c
}
