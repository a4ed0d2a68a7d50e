package firebase

import (
	"errors"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/rpggio/partdesk/internal/repository"
	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// normalize maps SDK errors onto repository errors. Anything that is not a
// missing entity or an id clash is reported as ErrBackendUnavailable.
func normalize(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) ||
		errors.Is(err, repository.ErrBackendUnavailable) ||
		errors.Is(err, repository.ErrConflict) {
		return err
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("%w: %s", repository.ErrNotFound, op)
	}

	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%w: %s", repository.ErrNotFound, op)
	case codes.AlreadyExists:
		return fmt.Errorf("%w: %s", repository.ErrConflict, op)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusNotFound:
			return fmt.Errorf("%w: %s", repository.ErrNotFound, op)
		case http.StatusConflict:
			return fmt.Errorf("%w: %s", repository.ErrConflict, op)
		}
	}

	return unavailable(op, err)
}

func unavailable(op string, err error) error {
	if errors.Is(err, repository.ErrBackendUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", repository.ErrBackendUnavailable, op, err)
}
