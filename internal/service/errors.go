package service

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the store reacts to.
const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
	pgErrNotNullViolation    = "23502"
	pgErrClassConnection     = "08"
	pgErrAdminShutdown       = "57P01"
	pgErrCannotConnectNow    = "57P03"
)

const mysqlErrDuplicateEntry = 1062

var (
	// ErrConnection is returned when no database is configured at all.
	ErrConnection = &ConnectionError{Err: errors.New("database not configured")}
	ErrNotFound   = errors.New("not found")
)

// ConnectionError means the database could not be reached. Callers may
// degrade to the file store.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string { return "database unavailable: " + e.Err.Error() }
func (e *ConnectionError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validation(field, msg string) error { return &ValidationError{Field: field, Message: msg} }

// StorageError wraps a failed statement that was not a connectivity problem.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// ExternalServiceError carries the user-facing text of a failed outbound call.
type ExternalServiceError struct {
	Service string
	Status  int
	Message string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

func IsConnection(err error) bool {
	var ce *ConnectionError
	return errors.As(err, &ce)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// classifyDBError maps a driver error into the service taxonomy.
func classifyDBError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	var (
		ce *ConnectionError
		ve *ValidationError
	)
	if errors.As(err, &ce) || errors.As(err, &ve) {
		return err
	}
	if isConnectionFailure(err) {
		return &ConnectionError{Err: fmt.Errorf("%s: %w", op, err)}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return &ValidationError{Message: "record already exists: " + pgErr.Detail}
		case pgErrForeignKeyViolation, pgErrNotNullViolation:
			return &StorageError{Op: op, Err: fmt.Errorf("%s (%s)", pgErr.Message, pgErr.Code)}
		}
	}
	var myErr *gomysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlErrDuplicateEntry {
		return &ValidationError{Message: "record already exists: " + myErr.Message}
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return &ValidationError{Message: "record already exists"}
	}
	return &StorageError{Op: op, Err: err}
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, gomysql.ErrInvalidConn) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, pgErrClassConnection) ||
			pgErr.Code == pgErrAdminShutdown || pgErr.Code == pgErrCannotConnectNow
	}
	return false
}
