package bisync

import (
	"errors"
	"fmt"
)

var (
	// ErrExternalService matches every ExternalServiceError via errors.Is.
	ErrExternalService = errors.New("external service error")

	// ErrSchemaConflict matches every SchemaConflictError via errors.Is.
	ErrSchemaConflict = errors.New("schema conflict")

	// ErrNoData means the source side had nothing to sync.
	ErrNoData = errors.New("no data")

	// ErrRecentOppositeSync means the echo guard suppressed the pass.
	ErrRecentOppositeSync = errors.New("recent opposite-direction sync")

	// ErrNoChanges means the source fingerprint matched the stored one.
	ErrNoChanges = errors.New("no changes since last sync")

	// ErrInvalidRequest means the request itself was malformed.
	ErrInvalidRequest = errors.New("invalid sync request")
)

// Service names an external collaborator in errors.
type Service string

const (
	ServiceSpreadsheet Service = "spreadsheet"
	ServiceTable       Service = "table"
	ServiceState       Service = "state"
)

// ExternalServiceError reports a collaborator that failed or rejected a call.
// It aborts the pass and leaves sync state untouched.
type ExternalServiceError struct {
	Service Service
	Op      string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Service, e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrExternalService) true.
func (e *ExternalServiceError) Is(target error) bool {
	return target == ErrExternalService
}

// SchemaConflictError reports a best-effort schema fix that failed. It is
// recorded on the Result and the pass continues.
type SchemaConflictError struct {
	Table string
	Err   error
}

func (e *SchemaConflictError) Error() string {
	return fmt.Sprintf("schema conflict on %s: %v", e.Table, e.Err)
}

func (e *SchemaConflictError) Unwrap() error {
	return e.Err
}

func (e *SchemaConflictError) Is(target error) bool {
	return target == ErrSchemaConflict
}

func external(svc Service, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExternalServiceError{Service: svc, Op: op, Err: err}
}

// IsSkip reports whether err is one of the no-op outcomes.
func IsSkip(err error) bool {
	return errors.Is(err, ErrNoData) ||
		errors.Is(err, ErrRecentOppositeSync) ||
		errors.Is(err, ErrNoChanges)
}
