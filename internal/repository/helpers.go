package repository

import (
	"database/sql"
	"errors"
)

// nilIfNoRows maps sql.ErrNoRows to a (nil, nil) result. Find* methods
// use it so callers can distinguish "absent" from a query failure
// without matching on driver errors themselves.
func nilIfNoRows[T any](result *T, err error) (*T, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return result, nil
}
