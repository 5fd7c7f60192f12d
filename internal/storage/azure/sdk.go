package azure

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/streaming"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blockblob"

	"github.com/asad/azstorage/internal/storage"
)

// sdkClient implements BlobClient with the Azure SDK and a shared key.
type sdkClient struct {
	client *azblob.Client
}

func newSDKClient(cfg Config) (*sdkClient, error) {
	cred, err := azblob.NewSharedKeyCredential(cfg.AccountName, cfg.AccountKey)
	if err != nil {
		return nil, storage.Wrap(storage.KindUnauthorized, "connect", "", fmt.Errorf("azure: build credentials: %w", err))
	}
	client, err := azblob.NewClientWithSharedKeyCredential(cfg.ServiceURL(), cred, clientOptions())
	if err != nil {
		return nil, storage.Wrap(storage.KindFatal, "connect", "", fmt.Errorf("azure: create client: %w", err))
	}
	return &sdkClient{client: client}, nil
}

// clientOptions turns off SDK retries: every operation is a single request.
func clientOptions() *azblob.ClientOptions {
	return &azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{MaxRetries: -1},
		},
	}
}

func (c *sdkClient) GetBlob(ctx context.Context, container, name string) ([]byte, error) {
	const op = "get blob"
	resp, err := c.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		return nil, classify(op, name, err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classify(op, name, err)
	}
	return data, nil
}

func (c *sdkClient) GetBlobProperties(ctx context.Context, container, name string) (storage.Properties, error) {
	const op = "get blob properties"
	blobClient := c.client.ServiceClient().NewContainerClient(container).NewBlobClient(name)
	resp, err := blobClient.GetProperties(ctx, nil)
	if err != nil {
		return storage.Properties{}, classify(op, name, err)
	}
	var props storage.Properties
	if resp.ContentLength != nil {
		props.ContentLength = *resp.ContentLength
	}
	if resp.ContentType != nil {
		props.ContentType = *resp.ContentType
	}
	if resp.ETag != nil {
		props.ETag = string(*resp.ETag)
	}
	if resp.LastModified != nil {
		props.LastModified = resp.LastModified.UTC()
	}
	return props, nil
}

func (c *sdkClient) DeleteBlob(ctx context.Context, container, name string) error {
	if _, err := c.client.DeleteBlob(ctx, container, name, nil); err != nil {
		return classify("delete blob", name, err)
	}
	return nil
}

// PutBlob issues one Put Blob request; the payload is never split into blocks.
func (c *sdkClient) PutBlob(ctx context.Context, container, name string, data []byte, kind storage.BlobType, contentType string) error {
	const op = "put blob"
	if kind != storage.BlockBlob {
		return storage.Wrap(storage.KindInvalid, op, name, fmt.Errorf("unsupported blob type %q", kind))
	}
	opts := &blockblob.UploadOptions{}
	if contentType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType)}
	}
	blockClient := c.client.ServiceClient().NewContainerClient(container).NewBlockBlobClient(name)
	if _, err := blockClient.Upload(ctx, streaming.NopCloser(bytes.NewReader(data)), opts); err != nil {
		return classify(op, name, err)
	}
	return nil
}
