package service

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Error taxonomy shared by every workflow. Concrete errors wrap one of these
// so handlers can map them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrOutOfStock        = errors.New("no available unit")
	ErrStorage           = errors.New("storage failure")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid status transition")
)

func validationError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, what)
}

// storageError classifies a raw store error. Missing rows become ErrNotFound
// for what; everything else is ErrStorage.
func storageError(what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound(what)
	}
	if isTaxonomy(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, what, err)
}

func isTaxonomy(err error) bool {
	for _, target := range []error{ErrValidation, ErrNotFound, ErrEmptyCart, ErrOutOfStock, ErrStorage, ErrForbidden, ErrInvalidTransition} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
