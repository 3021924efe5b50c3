// Package errs carries the engine's integer error taxonomy and the sticky
// per-context error manager shared by the solver and the output-file
// reader. Code ranges are fixed for wire compatibility: 10 warning,
// 100s input/validation, 200s numerical, 300s file IO, 400-409 API
// lifecycle, 410-429 API values, 430+ output-file format.
package errs

import "errors"

// Warning and error codes.
const (
	OK = 0

	WarnRunIssues = 10 // run completed but issued warnings

	// input / validation
	ErrInput        = 100
	ErrKeyword      = 111
	ErrNumber       = 113
	ErrDupID        = 114
	ErrUndefinedRef = 115

	// simulation numerical
	ErrTimestep = 201
	ErrNumeric  = 203

	// file IO
	ErrIdenticalNames = 301
	ErrInpOpen        = 303
	ErrRptOpen        = 304
	ErrOutOpen        = 305
	ErrOutWrite       = 306
	ErrHotstartFormat = 330
	ErrHotstartOpen   = 331
	ErrHotstartTopo   = 332

	// API lifecycle
	ErrAPINotOpen    = 401
	ErrAPINotStarted = 402
	ErrAPINotEnded   = 403
	ErrAPIIsRunning  = 404

	// API values
	ErrAPIMemory        = 411
	ErrAPIObjectType    = 413
	ErrAPIObjectIndex   = 414
	ErrAPIPropertyType  = 415
	ErrAPIPropertyValue = 416
	ErrAPIParameter     = 421
	ErrAPIPeriodRange   = 422
	ErrAPIElementIndex  = 423

	// output-file format
	ErrOutfileOpen      = 434
	ErrOutfileMagic     = 435
	ErrOutfileNoResults = 436

	ErrUnspecified = 440
)

// Lookup maps an error code to message text. The solver and the output
// reader attach different tables to their managers.
type Lookup func(code int) string

// Manager holds one sticky error code per independent consumer.
type Manager struct {
	code   int
	lookup Lookup
}

// NewManager attaches a message table to a fresh context.
func NewManager(lookup Lookup) *Manager {
	return &Manager{lookup: lookup}
}

// Set records a non-zero code; setting 0 is a no-op so hot paths can
// write `m.Set(fn())` without clobbering a prior error.
func (m *Manager) Set(code int) int {
	if code != 0 {
		m.code = code
	}
	return code
}

// Code returns the current sticky code.
func (m *Manager) Code() int { return m.code }

// Check returns a freshly-built message for the current code, or ""
// when no error is set.
func (m *Manager) Check() string {
	if m.code == 0 {
		return ""
	}
	return m.lookup(m.code)
}

// Clear resets the context.
func (m *Manager) Clear() { m.code = 0 }

// Error is a code-carrying error for Go call sites.
type Error struct {
	Code int
	msg  string
}

func (e *Error) Error() string { return e.msg }

// New builds an Error from a solver code.
func New(code int) *Error { return &Error{Code: code, msg: SolverMessage(code)} }

// CodeOf extracts the numeric code from any error (0 for nil, the
// carried code for an *Error even when wrapped, 440 for foreign errors).
func CodeOf(err error) int {
	if err == nil {
		return OK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnspecified
}
