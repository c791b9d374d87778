// Package storeerr classifies gorm errors for the relay's persistence adapters.
package storeerr

import (
	"errors"
	"fmt"

	"tracking/internal/core/ports"
	"tracking/internal/pkg/errs"

	"gorm.io/gorm"
)

// Wrap maps a gorm error to the relay's error vocabulary: a missing record
// becomes errs.ErrObjectNotFound for (param, id), any other failure is
// ports.ErrStoreUnavailable. nil stays nil.
func Wrap(err error, param string, id any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errs.NewObjectNotFoundError(param, id)
	case errors.Is(err, ports.ErrStoreUnavailable):
		return err
	default:
		return fmt.Errorf("%w: %w", ports.ErrStoreUnavailable, err)
	}
}
