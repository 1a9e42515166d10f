package services

import (
	"errors"
	"fmt"

	mysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"hotel-booking-engine/engine"
)

// MySQL error numbers that mean another writer got there first.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// PostgreSQL SQLSTATEs with the same meaning. 23P01 is raised by the
// bookings no-overlap exclusion constraint.
var pgRaceCodes = map[string]bool{
	"23P01": true,
	"23505": true,
	"40001": true,
	"40P01": true,
}

// classifyWriteErr turns driver race errors into ConcurrencyConflictError and
// leaves everything else untouched.
func classifyWriteErr(roomID uint, err error) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlDuplicateEntry, mysqlLockWaitTimeout, mysqlDeadlock:
			return &engine.ConcurrencyConflictError{RoomID: roomID, Err: err}
		}
	}
	var pe *pgconn.PgError
	if errors.As(err, &pe) && pgRaceCodes[pe.Code] {
		return &engine.ConcurrencyConflictError{RoomID: roomID, Err: err}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return &engine.ConcurrencyConflictError{RoomID: roomID, Err: err}
	}
	return err
}

func notFound(what string, id uint, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %d: %w", what, id, engine.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s %d: %w", what, id, err)
}
