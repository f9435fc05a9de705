package store

import (
	"errors"
	"fmt"

	"chatseal/internal/domain"
)

// storageErr tags err as a storage failure unless it already is one.
func storageErr(op string, err error) error {
	if errors.Is(err, domain.ErrStorage) || errors.Is(err, domain.ErrQuotaExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorage, err)
}
