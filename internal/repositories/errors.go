package repositories

import (
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned by updates and deletes that matched no row
var ErrNotFound = errors.New("record not found")

func notFoundAsNil(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}
