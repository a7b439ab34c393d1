// Package tisserr defines the typed error kinds surfaced across TissDB's
// storage, query, and Sinew layers. Each kind is its own struct so callers can
// errors.As into the one they care about; all of them wrap
// github.com/cockroachdb/errors for stack capture and Is/As compatibility.
package tisserr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// ParseError is a lexer/parser failure; Offset is the byte offset into the
// query string where the failure was detected.
type ParseError struct {
	Offset  int
	Message string
	cause   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

func (e *ParseError) Unwrap() error { return e.cause }

func NewParseError(offset int, format string, args ...any) error {
	return &ParseError{Offset: offset, Message: fmt.Sprintf(format, args...), cause: errors.New("parse error")}
}

// CollectionNotFoundError reports a reference to a collection that does not exist.
type CollectionNotFoundError struct {
	Name  string
	cause error
}

func (e *CollectionNotFoundError) Error() string {
	return fmt.Sprintf("collection %q not found", e.Name)
}
func (e *CollectionNotFoundError) Unwrap() error { return e.cause }

func NewCollectionNotFound(name string) error {
	return &CollectionNotFoundError{Name: name, cause: errors.New("collection not found")}
}

// DatabaseNotFoundError reports a reference to a database that does not exist.
type DatabaseNotFoundError struct {
	Name  string
	cause error
}

func (e *DatabaseNotFoundError) Error() string {
	return fmt.Sprintf("database %q not found", e.Name)
}
func (e *DatabaseNotFoundError) Unwrap() error { return e.cause }

func NewDatabaseNotFound(name string) error {
	return &DatabaseNotFoundError{Name: name, cause: errors.New("database not found")}
}

// SchemaViolationError reports a document that fails schema validation.
type SchemaViolationError struct {
	Field   string
	Message string
	cause   error
}

func (e *SchemaViolationError) Error() string {
	return fmt.Sprintf("schema violation on field %q: %s", e.Field, e.Message)
}
func (e *SchemaViolationError) Unwrap() error { return e.cause }

func NewSchemaViolation(field, format string, args ...any) error {
	return &SchemaViolationError{Field: field, Message: fmt.Sprintf(format, args...), cause: errors.New("schema violation")}
}

// PrimaryKeyViolationError reports a missing or duplicate primary key.
type PrimaryKeyViolationError struct {
	Collection string
	Key        string
	cause      error
}

func (e *PrimaryKeyViolationError) Error() string {
	return fmt.Sprintf("primary key violation in %q: key %q", e.Collection, e.Key)
}
func (e *PrimaryKeyViolationError) Unwrap() error { return e.cause }

func NewPrimaryKeyViolation(collection, key string) error {
	return &PrimaryKeyViolationError{Collection: collection, Key: key, cause: errors.New("primary key violation")}
}

// ForeignKeyViolationError reports a reference to a missing foreign row.
type ForeignKeyViolationError struct {
	LocalField    string
	RefCollection string
	RefValue      string
	cause         error
}

func (e *ForeignKeyViolationError) Error() string {
	return fmt.Sprintf("foreign key violation: %s=%q not found in %q", e.LocalField, e.RefValue, e.RefCollection)
}
func (e *ForeignKeyViolationError) Unwrap() error { return e.cause }

func NewForeignKeyViolation(localField, refCollection, refValue string) error {
	return &ForeignKeyViolationError{LocalField: localField, RefCollection: refCollection, RefValue: refValue, cause: errors.New("foreign key violation")}
}

// UniqueViolationError reports a duplicate value in a UNIQUE index.
type UniqueViolationError struct {
	Index string
	Key   string
	cause error
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique violation on index %q: key %q", e.Index, e.Key)
}
func (e *UniqueViolationError) Unwrap() error { return e.cause }

func NewUniqueViolation(index, key string) error {
	return &UniqueViolationError{Index: index, Key: key, cause: errors.New("unique violation")}
}

// ParameterCountError reports a mismatch between placeholders and bound params.
type ParameterCountError struct {
	Expected int
	Got      int
	cause    error
}

func (e *ParameterCountError) Error() string {
	return fmt.Sprintf("expected %d parameters, got %d", e.Expected, e.Got)
}
func (e *ParameterCountError) Unwrap() error { return e.cause }

func NewParameterCount(expected, got int) error {
	return &ParameterCountError{Expected: expected, Got: got, cause: errors.New("parameter count mismatch")}
}

// TransactionNotActiveError reports an operation on a non-active transaction.
type TransactionNotActiveError struct {
	ID    int64
	cause error
}

func (e *TransactionNotActiveError) Error() string {
	return fmt.Sprintf("transaction %d is not active", e.ID)
}
func (e *TransactionNotActiveError) Unwrap() error { return e.cause }

func NewTransactionNotActive(id int64) error {
	return &TransactionNotActiveError{ID: id, cause: errors.New("transaction not active")}
}

// TransactionAlreadyTerminalError reports a commit/rollback on a terminal transaction.
type TransactionAlreadyTerminalError struct {
	ID    int64
	cause error
}

func (e *TransactionAlreadyTerminalError) Error() string {
	return fmt.Sprintf("transaction %d already terminal", e.ID)
}
func (e *TransactionAlreadyTerminalError) Unwrap() error { return e.cause }

func NewTransactionAlreadyTerminal(id int64) error {
	return &TransactionAlreadyTerminalError{ID: id, cause: errors.New("transaction already terminal")}
}

// DurabilityError reports a WAL append/fsync failure; the caller's mutation
// was not acknowledged and in-memory state was left unmodified.
type DurabilityError struct {
	Op    string
	cause error
}

func (e *DurabilityError) Error() string {
	return fmt.Sprintf("durability failure during %s", e.Op)
}
func (e *DurabilityError) Unwrap() error { return e.cause }

func NewDurability(op string, cause error) error {
	return &DurabilityError{Op: op, cause: errors.Wrapf(cause, "durability failure during %s", op)}
}

// CorruptDataError reports a framing or checksum mismatch encountered while reading.
type CorruptDataError struct {
	Source string
	Offset int64
	cause  error
}

func (e *CorruptDataError) Error() string {
	return fmt.Sprintf("corrupt data in %s at offset %d", e.Source, e.Offset)
}
func (e *CorruptDataError) Unwrap() error { return e.cause }

func NewCorruptData(source string, offset int64) error {
	return &CorruptDataError{Source: source, Offset: offset, cause: errors.New("corrupt data")}
}

// ConnectionInitError reports a Sinew pool construction failure.
type ConnectionInitError struct {
	Addr  string
	cause error
}

func (e *ConnectionInitError) Error() string {
	return fmt.Sprintf("failed to initialize connection to %s", e.Addr)
}
func (e *ConnectionInitError) Unwrap() error { return e.cause }

func NewConnectionInit(addr string, cause error) error {
	return &ConnectionInitError{Addr: addr, cause: errors.Wrapf(cause, "connection init failed: %s", addr)}
}

// ConnectionTimeoutError reports a pool wait that exceeded its deadline.
type ConnectionTimeoutError struct {
	WaitedMS int64
	cause    error
}

func (e *ConnectionTimeoutError) Error() string {
	return fmt.Sprintf("timed out waiting %dms for a pooled connection", e.WaitedMS)
}
func (e *ConnectionTimeoutError) Unwrap() error { return e.cause }

func NewConnectionTimeout(waitedMS int64) error {
	return &ConnectionTimeoutError{WaitedMS: waitedMS, cause: errors.New("connection timeout")}
}

// QueryError wraps a Sinew client-side query failure (dead connection, bad framing, etc).
type QueryError struct {
	Message string
	cause   error
}

func (e *QueryError) Error() string { return fmt.Sprintf("query error: %s", e.Message) }
func (e *QueryError) Unwrap() error  { return e.cause }

func NewQuery(format string, args ...any) error {
	return &QueryError{Message: fmt.Sprintf(format, args...), cause: errors.New("query error")}
}
