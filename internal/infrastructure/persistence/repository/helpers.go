package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/perdin/internal/application/port"
)

func isNotFound(err error) bool {
	return errors.Is(err, port.ErrNotFound)
}

// requireAffected turns an update or delete that matched nothing into port.ErrNotFound
func requireAffected(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, port.ErrNotFound)
	}
	return nil
}
