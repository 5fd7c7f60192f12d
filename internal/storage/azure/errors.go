package azure

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/asad/azstorage/internal/storage"
)

// classify maps an SDK failure onto the storage error kinds. The SDK error
// stays reachable through errors.As.
func classify(op, name string, err error) error {
	if err == nil {
		return nil
	}
	var se *storage.Error
	if errors.As(err, &se) {
		return err
	}
	return storage.Wrap(kindOf(err), op, name, err)
}

func kindOf(err error) storage.Kind {
	if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound, bloberror.ResourceNotFound) {
		return storage.KindNotFound
	}
	if bloberror.HasCode(err, bloberror.AuthenticationFailed, bloberror.AuthorizationFailure, bloberror.InsufficientAccountPermissions) {
		return storage.KindUnauthorized
	}
	if bloberror.HasCode(err, bloberror.RequestBodyTooLarge) {
		return storage.KindTooLarge
	}

	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		switch code := respErr.StatusCode; {
		case code == http.StatusNotFound:
			return storage.KindNotFound
		case code == http.StatusUnauthorized, code == http.StatusForbidden:
			return storage.KindUnauthorized
		case code == http.StatusRequestEntityTooLarge:
			return storage.KindTooLarge
		case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests, code >= 500:
			return storage.KindTransient
		case code == http.StatusBadRequest:
			return storage.KindInvalid
		default:
			return storage.KindFatal
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return storage.KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return storage.KindTransient
	}
	return storage.KindFatal
}
