package sqlutil

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the pipeline reacts to.
const (
	ErrNumDuplicateEntry  uint16 = 1062
	ErrNumLockWaitTimeout uint16 = 1205
	ErrNumDeadlock        uint16 = 1213
)

// IsDuplicateEntry reports whether err is a unique-key violation.
func IsDuplicateEntry(err error) bool {
	return hasNumber(err, ErrNumDuplicateEntry)
}

// IsRetryable reports whether err is a lock wait timeout or deadlock, after
// which the statement can be run again.
func IsRetryable(err error) bool {
	return hasNumber(err, ErrNumLockWaitTimeout) || hasNumber(err, ErrNumDeadlock)
}

func hasNumber(err error, number uint16) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == number
	}
	return false
}
