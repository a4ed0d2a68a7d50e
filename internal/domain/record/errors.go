package record

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation indicates caller-supplied data violates the record contract.
	ErrValidation = errors.New("invalid record input")
	// ErrMissingTechnician indicates the technician field is empty.
	ErrMissingTechnician = fmt.Errorf("%w: technician is required", ErrValidation)
	// ErrMissingPart indicates the part field is empty.
	ErrMissingPart = fmt.Errorf("%w: part is required", ErrValidation)
	// ErrInvalidStatus indicates a status outside the workflow enum.
	ErrInvalidStatus = fmt.Errorf("%w: invalid status", ErrValidation)
	// ErrMissingID indicates an operation was called without a record id.
	ErrMissingID = fmt.Errorf("%w: id is required", ErrValidation)
	// ErrEmptyPhoto indicates a photo without content.
	ErrEmptyPhoto = fmt.Errorf("%w: photo is empty", ErrValidation)
	// ErrInvalidDataURL indicates a photo data URL that cannot be decoded.
	ErrInvalidDataURL = fmt.Errorf("%w: malformed data URL", ErrValidation)
)
